// Package apikey implementa la emisión, listado, vinculación y verificación
// de API keys con alcance de organización.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
	tokens "github.com/dropDatabas3/gatekit/internal/security/token"
)

const (
	// KeyPrefix antecede toda key en claro. Reconocible a simple vista y
	// útil para scanners de secretos.
	KeyPrefix = "gk_"

	// displayPrefixLen son los caracteres del plaintext que se persisten
	// como prefijo visible (no secreto).
	displayPrefixLen = 8

	secretBytes = 24
)

// ErrLimitReached indica que la organización llegó al tope de keys activas
// que permite su tier de licencia.
var ErrLimitReached = errors.New("api key limit reached")

// ErrInvalidKey cubre key desconocida, revocada o con secreto inválido.
var ErrInvalidKey = errors.New("invalid api key")

// AlreadyLinkedError señala que la key ya está vinculada a otra aplicación
// activa. Lleva la identidad de la aplicación en conflicto para que el
// cliente pueda resolverlo (desvincular allá o usar otra key).
type AlreadyLinkedError struct {
	ApplicationID   string
	ApplicationName string
}

func (e *AlreadyLinkedError) Error() string {
	return fmt.Sprintf("api key already linked to application %q (%s)", e.ApplicationName, e.ApplicationID)
}

// Licensing resuelve el tope de API keys por organización. La implementación
// real consulta el plan contratado; StaticLicensing sirve para despliegues
// sin servicio de licencias.
type Licensing interface {
	MaxAPIKeys(ctx context.Context, orgID string) (int, error)
}

// StaticLicensing retorna el mismo límite para toda organización.
type StaticLicensing struct {
	Limit int
}

func (s StaticLicensing) MaxAPIKeys(ctx context.Context, orgID string) (int, error) {
	return s.Limit, nil
}

// Service define las operaciones sobre API keys.
type Service interface {
	// Generate acuña una key nueva. El plaintext se retorna exactamente una
	// vez; después solo queda el hash bcrypt y el prefijo visible.
	Generate(ctx context.Context, orgID, callerUserID, name string, scopes []string) (string, *repository.APIKey, error)

	// List retorna las keys de la organización, sin secretos.
	List(ctx context.Context, orgID string) ([]repository.APIKey, error)

	// Quota retorna el límite del plan y la cantidad de keys activas.
	Quota(ctx context.Context, orgID string) (limit, current int, err error)

	// Bind vincula una key activa a una aplicación. Si otra aplicación
	// activa ya tiene la key retorna *AlreadyLinkedError; re-vincular a la
	// misma aplicación es un no-op exitoso.
	Bind(ctx context.Context, appID, keyID string) error

	// VerifyKey valida una key presentada en claro y retorna su registro.
	VerifyKey(ctx context.Context, plaintext string) (*repository.APIKey, error)

	// Revoke marca la key como revocada.
	Revoke(ctx context.Context, keyID string) error

	// CreateApplication registra una aplicación conectada, sin key vinculada.
	CreateApplication(ctx context.Context, orgID, name string) (*repository.Application, error)

	// GetApplication retorna la aplicación por id.
	GetApplication(ctx context.Context, appID string) (*repository.Application, error)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Keys         repository.APIKeyRepository
	Applications repository.ApplicationRepository
	Licensing    Licensing
	BcryptCost   int
}

type service struct {
	keys       repository.APIKeyRepository
	apps       repository.ApplicationRepository
	licensing  Licensing
	bcryptCost int
}

// New crea el servicio de API keys.
func New(d Deps) Service {
	return &service{keys: d.Keys, apps: d.Applications, licensing: d.Licensing, bcryptCost: d.BcryptCost}
}

func (s *service) Generate(ctx context.Context, orgID, callerUserID, name string, scopes []string) (string, *repository.APIKey, error) {
	limit, err := s.licensing.MaxAPIKeys(ctx, orgID)
	if err != nil {
		return "", nil, fmt.Errorf("resolve api key limit: %w", err)
	}
	if limit > 0 {
		count, err := s.keys.CountActiveByOrganization(ctx, orgID)
		if err != nil {
			return "", nil, err
		}
		if count >= limit {
			return "", nil, ErrLimitReached
		}
	}

	secret, err := tokens.GenerateOpaqueToken(secretBytes)
	if err != nil {
		return "", nil, fmt.Errorf("generate api key secret: %w", err)
	}
	plaintext := KeyPrefix + secret

	hash, err := tokens.HashAPIKeySecret(plaintext, s.bcryptCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash api key secret: %w", err)
	}

	if len(scopes) == 0 {
		scopes = []string{"*"}
	}
	key, err := s.keys.Create(ctx, repository.CreateAPIKeyInput{
		OrganizationID: orgID,
		Name:           name,
		SecretHash:     hash,
		Fingerprint:    tokens.SHA256Hex(plaintext),
		Prefix:         plaintext[:displayPrefixLen],
		Scopes:         scopes,
		CreatedBy:      callerUserID,
	})
	if err != nil {
		return "", nil, err
	}

	logger.From(ctx).Info("api key generated",
		logger.Component("apikey"),
		logger.OrgID(orgID),
		logger.KeyID(key.ID),
		logger.UserID(callerUserID),
	)
	return plaintext, key, nil
}

func (s *service) List(ctx context.Context, orgID string) ([]repository.APIKey, error) {
	return s.keys.ListByOrganization(ctx, orgID)
}

func (s *service) Quota(ctx context.Context, orgID string) (int, int, error) {
	limit, err := s.licensing.MaxAPIKeys(ctx, orgID)
	if err != nil {
		return 0, 0, err
	}
	current, err := s.keys.CountActiveByOrganization(ctx, orgID)
	if err != nil {
		return 0, 0, err
	}
	return limit, current, nil
}

func (s *service) Bind(ctx context.Context, appID, keyID string) error {
	app, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return err
	}
	key, err := s.keys.GetByID(ctx, keyID)
	if err != nil {
		return err
	}
	if key.Status != repository.APIKeyStatusActive {
		return ErrInvalidKey
	}
	if key.OrganizationID != app.OrganizationID {
		return repository.ErrInvalidInput
	}
	if app.APIKeyID != nil && *app.APIKeyID == keyID {
		// ya vinculada acá: no-op
		return nil
	}

	if other, err := s.apps.FindActiveByAPIKey(ctx, keyID); err == nil && other.ID != appID {
		return &AlreadyLinkedError{ApplicationID: other.ID, ApplicationName: other.Name}
	} else if err != nil && !repository.IsNotFound(err) {
		return err
	}

	if err := s.apps.BindAPIKey(ctx, appID, keyID); err != nil {
		// el índice único parcial resuelve la carrera que el scan no ve:
		// recuperamos al ganador para armar el mismo conflicto estructurado
		if repository.IsConflict(err) {
			if other, lerr := s.apps.FindActiveByAPIKey(ctx, keyID); lerr == nil && other.ID != appID {
				return &AlreadyLinkedError{ApplicationID: other.ID, ApplicationName: other.Name}
			}
		}
		return err
	}

	logger.From(ctx).Info("api key bound",
		logger.Component("apikey"),
		logger.KeyID(keyID),
		logger.String("application_id", appID),
	)
	return nil
}

func (s *service) VerifyKey(ctx context.Context, plaintext string) (*repository.APIKey, error) {
	if !strings.HasPrefix(plaintext, KeyPrefix) {
		return nil, ErrInvalidKey
	}
	key, err := s.keys.GetByFingerprint(ctx, tokens.SHA256Hex(plaintext))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidKey
		}
		return nil, err
	}
	if key.Status != repository.APIKeyStatusActive {
		return nil, ErrInvalidKey
	}
	if !tokens.VerifyAPIKeySecret(key.SecretHash, plaintext) {
		return nil, ErrInvalidKey
	}

	_ = s.keys.UpdateLastUsed(ctx, key.ID, time.Now().UTC())
	return key, nil
}

func (s *service) CreateApplication(ctx context.Context, orgID, name string) (*repository.Application, error) {
	return s.apps.Create(ctx, repository.CreateApplicationInput{
		OrganizationID: orgID,
		Name:           name,
	})
}

func (s *service) GetApplication(ctx context.Context, appID string) (*repository.Application, error) {
	return s.apps.GetByID(ctx, appID)
}

func (s *service) Revoke(ctx context.Context, keyID string) error {
	err := s.keys.Revoke(ctx, keyID)
	if err == nil {
		logger.From(ctx).Info("api key revoked", logger.Component("apikey"), logger.KeyID(keyID))
	}
	return err
}
