package cliauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
	tokens "github.com/dropDatabas3/gatekit/internal/security/token"
)

// DefaultStateTTL es la vida máxima de un registro de state.
const DefaultStateTTL = 10 * time.Minute

// ErrInvalidState cubre state desconocido, expirado o ya consumido. El
// caller nunca distingue entre los tres casos ni reintenta el flujo.
var ErrInvalidState = errors.New("invalid_or_expired_state")

// StateService administra los registros de autorización de un solo uso.
type StateService interface {
	// Create acuña un state CSRF y un token de sesión pendiente, ambos
	// aleatorios e independientes, y persiste el registro con TTL.
	Create(ctx context.Context, callbackURL, providerHint string) (*repository.AuthorizationState, error)

	// Peek lee el registro sin consumirlo (página de selección, reenvío del
	// callback). Retorna ErrInvalidState si no existe o expiró.
	Peek(ctx context.Context, state string) (*repository.AuthorizationState, error)

	// Consume lee y elimina el registro de forma atómica. Exactamente un
	// caller puede consumir cada state; el resto recibe ErrInvalidState.
	Consume(ctx context.Context, state string) (*repository.AuthorizationState, error)
}

// StateDeps contiene las dependencias del StateService.
type StateDeps struct {
	States repository.AuthStateRepository
	TTL    time.Duration
}

type stateService struct {
	states repository.AuthStateRepository
	ttl    time.Duration
}

// NewStateService crea un StateService.
func NewStateService(d StateDeps) StateService {
	ttl := d.TTL
	if ttl == 0 {
		ttl = DefaultStateTTL
	}
	return &stateService{states: d.States, ttl: ttl}
}

func (s *stateService) Create(ctx context.Context, callbackURL, providerHint string) (*repository.AuthorizationState, error) {
	state, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	pending, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate pending token: %w", err)
	}

	now := time.Now().UTC()
	st := repository.AuthorizationState{
		State:               state,
		PendingSessionToken: pending,
		CallbackURL:         callbackURL,
		ProviderHint:        providerHint,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.ttl),
	}
	if err := s.states.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}
	return &st, nil
}

func (s *stateService) Peek(ctx context.Context, state string) (*repository.AuthorizationState, error) {
	st, err := s.states.Peek(ctx, state)
	if err != nil {
		if repository.IsNotFound(err) || repository.IsExpired(err) {
			return nil, ErrInvalidState
		}
		return nil, err
	}
	return st, nil
}

func (s *stateService) Consume(ctx context.Context, state string) (*repository.AuthorizationState, error) {
	st, err := s.states.Consume(ctx, state)
	if err != nil {
		if repository.IsNotFound(err) || repository.IsExpired(err) {
			logger.From(ctx).Warn("state rejected",
				logger.Component("cliauth.state"),
				logger.Err(err),
			)
			return nil, ErrInvalidState
		}
		return nil, err
	}
	return st, nil
}
