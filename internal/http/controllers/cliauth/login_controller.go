// Package cliauth contains the controllers for the CLI login flow.
package cliauth

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	dto "github.com/dropDatabas3/gatekit/internal/http/dto/cliauth"
	httperrors "github.com/dropDatabas3/gatekit/internal/http/errors"
	"github.com/dropDatabas3/gatekit/internal/http/helpers"
	svc "github.com/dropDatabas3/gatekit/internal/http/services/cliauth"
	"github.com/dropDatabas3/gatekit/internal/oauth"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

// LoginController maneja los endpoints del flujo de login de CLI.
type LoginController struct {
	login     svc.LoginService
	states    svc.StateService
	providers *oauth.Registry
}

// NewLoginController crea el controller.
func NewLoginController(login svc.LoginService, states svc.StateService, providers *oauth.Registry) *LoginController {
	return &LoginController{login: login, states: states, providers: providers}
}

// Initiate handles POST /cli/login/initiate
func (c *LoginController) Initiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("cliauth.initiate"))

	var req dto.InitiateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.CallbackURL) == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields.WithDetail("callbackUrl es requerido"))
		return
	}
	if u, err := url.Parse(req.CallbackURL); err != nil || u.Scheme == "" || u.Host == "" {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("callbackUrl debe ser una URL absoluta"))
		return
	}

	res, err := c.login.Initiate(ctx, req.CallbackURL, req.Provider)
	if err != nil {
		if errors.Is(err, oauth.ErrUnknownProvider) {
			httperrors.WriteError(w, r, httperrors.ErrUnknownProvider.WithDetail(req.Provider))
			return
		}
		log.Error("initiate failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	resp := dto.InitiateResponse{AuthURL: res.AuthURL, State: res.State}
	if res.Provider != "" {
		resp.Provider = &res.Provider
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// Complete handles POST /cli/login/complete
func (c *LoginController) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("cliauth.complete"))

	var req dto.CompleteRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.State == "" || req.Code == "" || req.Provider == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields.WithDetail("state, code y provider son requeridos"))
		return
	}

	res, err := c.login.Complete(ctx, req.State, req.Code, req.Provider)
	if err != nil {
		c.handleCompleteError(w, r, err, log)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.CompleteResponse{
		Token:          res.SessionToken,
		UserID:         res.UserID,
		Email:          res.Email,
		OrganizationID: res.OrganizationID,
		ExpiresAt:      res.ExpiresAt,
	})
}

func (c *LoginController) handleCompleteError(w http.ResponseWriter, r *http.Request, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrInvalidState):
		httperrors.WriteError(w, r, httperrors.ErrInvalidState)
	case errors.Is(err, oauth.ErrUnknownProvider):
		httperrors.WriteError(w, r, httperrors.ErrUnknownProvider)
	case errors.Is(err, oauth.ErrExchangeFailed):
		httperrors.WriteError(w, r, httperrors.ErrProviderExchangeFailed.WithDetail(err.Error()))
	default:
		log.Error("complete failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
	}
}

// selectTmpl es la página mínima de selección de provider. Cada link lleva a
// la authorization URL del provider con el mismo state.
var selectTmpl = template.Must(template.New("select").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Elegí cómo iniciar sesión</title></head>
<body>
<h1>Iniciar sesión</h1>
<ul>
{{range .Providers}}<li><a href="{{.URL}}">Continuar con {{.Name}}</a></li>
{{end}}</ul>
</body>
</html>`))

type selectLink struct {
	Name string
	URL  string
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Select handles GET /cli/login/select?state=...
func (c *LoginController) Select(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := r.URL.Query().Get("state")
	if state == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields.WithDetail("state es requerido"))
		return
	}
	// Peek, no Consume: el state se consume recién en complete
	if _, err := c.states.Peek(ctx, state); err != nil {
		httperrors.WriteError(w, r, httperrors.ErrInvalidState)
		return
	}

	links := make([]selectLink, 0, 3)
	for _, name := range c.providers.Names() {
		p, err := c.providers.Get(name)
		if err != nil {
			continue
		}
		authURL, err := p.AuthURL(ctx, state, c.login.RedirectURI(name))
		if err != nil {
			continue
		}
		links = append(links, selectLink{Name: titleCase(name), URL: authURL})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	_ = selectTmpl.Execute(w, struct{ Providers []selectLink }{links})
}

// Callback handles GET /cli/login/callback/{provider}?state=...&code=...
// El provider redirige acá al browser; reenviamos code+state al callback
// local de la CLI sin consumir el state (lo consume complete).
func (c *LoginController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provider := chi.URLParam(r, "provider")
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields.WithDetail("state y code son requeridos"))
		return
	}

	st, err := c.states.Peek(ctx, state)
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrInvalidState)
		return
	}

	target, err := url.Parse(st.CallbackURL)
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("callback url inválida"))
		return
	}
	q := target.Query()
	q.Set("state", state)
	q.Set("code", code)
	q.Set("provider", provider)
	target.RawQuery = q.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}
