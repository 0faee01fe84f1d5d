package cliauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/gatekit/internal/http/services/session"
	"github.com/dropDatabas3/gatekit/internal/metrics"
	"github.com/dropDatabas3/gatekit/internal/oauth"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

// Notifier recibe eventos de login completado. Las implementaciones deben
// retornar rápido; el envío real ocurre fuera del request.
type Notifier interface {
	LoginSucceeded(ctx context.Context, email, provider string)
}

// InitiateResult es la respuesta de Initiate.
type InitiateResult struct {
	AuthURL  string
	State    string
	Provider string // vacío cuando se retorna la URL de selección
}

// CompleteResult es la respuesta de Complete: la sesión de CLI recién emitida.
type CompleteResult struct {
	SessionToken   string
	UserID         string
	Email          string
	OrganizationID string
	ExpiresAt      time.Time
}

// LoginService orquesta el flujo de login de CLI de punta a punta.
type LoginService interface {
	// Initiate crea el registro de autorización y arma la URL a abrir en el
	// browser: la del provider si hay hint, o la página de selección si no.
	Initiate(ctx context.Context, callbackURL, providerHint string) (*InitiateResult, error)

	// Complete consume el state (falla rápido si es inválido), canjea el
	// código con el provider, provisiona cuenta y organización por defecto,
	// y emite la sesión usando el token pre-acuñado del registro.
	Complete(ctx context.Context, state, code, provider string) (*CompleteResult, error)

	// RedirectURI arma la redirect URI registrada en el provider dado.
	RedirectURI(provider string) string
}

// LoginDeps contiene las dependencias del LoginService.
type LoginDeps struct {
	States       StateService
	Providers    *oauth.Registry
	Provisioning ProvisioningService
	Sessions     session.Service

	// BaseURL es la URL pública del backend; de acá salen la redirect URI
	// de los providers y la página de selección.
	BaseURL string

	// Notifier es opcional.
	Notifier Notifier
}

type loginService struct {
	states       StateService
	providers    *oauth.Registry
	provisioning ProvisioningService
	sessions     session.Service
	baseURL      string
	notifier     Notifier
}

// NewLoginService crea el orquestador de login.
func NewLoginService(d LoginDeps) LoginService {
	return &loginService{
		states:       d.States,
		providers:    d.Providers,
		provisioning: d.Provisioning,
		sessions:     d.Sessions,
		baseURL:      strings.TrimRight(d.BaseURL, "/"),
		notifier:     d.Notifier,
	}
}

// RedirectURI es la redirect URI registrada en el provider dado. El nombre
// va en el path para que el callback del browser sepa qué provider reenviar.
func (s *loginService) RedirectURI(provider string) string {
	return s.baseURL + "/cli/login/callback/" + provider
}

func (s *loginService) Initiate(ctx context.Context, callbackURL, providerHint string) (*InitiateResult, error) {
	if callbackURL == "" {
		return nil, fmt.Errorf("callback url is required")
	}

	// valida el hint antes de persistir nada
	var provider oauth.Provider
	if providerHint != "" {
		p, err := s.providers.Get(providerHint)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	st, err := s.states.Create(ctx, callbackURL, providerHint)
	if err != nil {
		return nil, err
	}

	res := &InitiateResult{State: st.State}
	if provider != nil {
		authURL, err := provider.AuthURL(ctx, st.State, s.RedirectURI(provider.Name()))
		if err != nil {
			return nil, err
		}
		res.AuthURL = authURL
		res.Provider = provider.Name()
	} else {
		res.AuthURL = s.baseURL + "/cli/login/select?state=" + url.QueryEscape(st.State)
	}

	metrics.LoginInitiated(res.Provider)
	logger.From(ctx).Info("login initiated",
		logger.Component("cliauth.login"),
		logger.Provider(res.Provider),
	)
	return res, nil
}

func (s *loginService) Complete(ctx context.Context, state, code, providerName string) (*CompleteResult, error) {
	// consumir primero: un state inválido corta el flujo antes de tocar al
	// provider, y el consumo atómico garantiza a lo sumo un complete por state
	st, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}

	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	identity, err := provider.Exchange(ctx, code, s.RedirectURI(providerName))
	if err != nil {
		metrics.LoginCompleted(providerName, false)
		logger.From(ctx).Warn("code exchange failed",
			logger.Component("cliauth.login"),
			logger.Provider(providerName),
			logger.Err(err),
		)
		return nil, err
	}

	user, err := s.provisioning.FindOrCreateUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	orgID, err := s.provisioning.EnsureDefaultOrganization(ctx, user.ID, orgNameHint(identity))
	if err != nil {
		return nil, err
	}

	// el token pendiente del registro se vuelve válido recién acá
	sess, err := s.sessions.IssueToken(ctx, st.PendingSessionToken, user.ID, orgID, user.Email)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.LoginSucceeded(ctx, user.Email, providerName)
	}
	metrics.LoginCompleted(providerName, true)
	logger.From(ctx).Info("login completed",
		logger.Component("cliauth.login"),
		logger.Provider(providerName),
		logger.UserID(user.ID),
		logger.OrgID(orgID),
	)

	return &CompleteResult{
		SessionToken:   st.PendingSessionToken,
		UserID:         user.ID,
		Email:          user.Email,
		OrganizationID: orgID,
		ExpiresAt:      sess.ExpiresAt,
	}, nil
}

// orgNameHint arma el nombre del workspace personal a partir de la identidad.
func orgNameHint(id *oauth.Identity) string {
	name := strings.TrimSpace(id.FirstName + " " + id.LastName)
	if name == "" {
		return ""
	}
	return name + "'s Workspace"
}
