// Package session implementa la emisión, validación, rotación y revocación
// de sesiones de CLI sobre tokens opacos hasheados.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	"github.com/dropDatabas3/gatekit/internal/metrics"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
	tokens "github.com/dropDatabas3/gatekit/internal/security/token"
)

// DefaultSessionTTL es la vida de una sesión sin refresh.
const DefaultSessionTTL = 30 * 24 * time.Hour

// ErrInvalidSession cubre token desconocido, expirado, rotado o revocado.
// No se distingue de "nunca existió" para no filtrar información.
var ErrInvalidSession = errors.New("invalid or expired session")

// ValidateResult es el resultado de validar un token.
type ValidateResult struct {
	UserID         string
	Email          string
	OrganizationID string
	ExpiresAt      time.Time
	Organizations  []repository.Organization
}

// Service define las operaciones sobre sesiones de CLI.
type Service interface {
	// Issue acuña un token opaco nuevo y persiste su hash. Retorna el token
	// en claro (única vez) junto con el registro.
	Issue(ctx context.Context, userID, organizationID, email string) (string, *repository.CliSession, error)

	// IssueToken persiste un token pre-acuñado (el pendingSessionToken del
	// flujo de login). Mismas garantías que Issue.
	IssueToken(ctx context.Context, token, userID, organizationID, email string) (*repository.CliSession, error)

	// Validate verifica un token presentado. Resuelve además la lista
	// completa de organizaciones del usuario (consulta de solo lectura).
	Validate(ctx context.Context, token string) (*ValidateResult, error)

	// Refresh rota el token: acuña uno nuevo, extiende la expiración e
	// invalida el anterior en la misma operación. Un token viejo filtrado
	// no puede reusarse después del refresh.
	Refresh(ctx context.Context, token string) (string, *repository.CliSession, error)

	// Revoke elimina la sesión. Idempotente: un token desconocido o ya
	// revocado también retorna nil, para que logout no sirva de oráculo.
	Revoke(ctx context.Context, token string) error
}

// Deps contiene las dependencias del servicio de sesiones.
type Deps struct {
	Sessions    repository.SessionRepository
	Memberships repository.MembershipRepository
	Hasher      *tokens.Hasher
	TTL         time.Duration
}

type service struct {
	sessions repository.SessionRepository
	mems     repository.MembershipRepository
	hasher   *tokens.Hasher
	ttl      time.Duration
}

// New crea el servicio de sesiones.
func New(d Deps) Service {
	ttl := d.TTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	return &service{sessions: d.Sessions, mems: d.Memberships, hasher: d.Hasher, ttl: ttl}
}

func (s *service) Issue(ctx context.Context, userID, organizationID, email string) (string, *repository.CliSession, error) {
	token, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", nil, fmt.Errorf("generate session token: %w", err)
	}
	sess, err := s.IssueToken(ctx, token, userID, organizationID, email)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

func (s *service) IssueToken(ctx context.Context, token, userID, organizationID, email string) (*repository.CliSession, error) {
	sess, err := s.sessions.Create(ctx, repository.CreateSessionInput{
		TokenHash:      s.hasher.HashSessionToken(token),
		UserID:         userID,
		OrganizationID: organizationID,
		Email:          email,
		ExpiresAt:      time.Now().UTC().Add(s.ttl),
	})
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("session issued",
		logger.Component("session"),
		logger.UserID(userID),
		logger.OrgID(organizationID),
	)
	return sess, nil
}

func (s *service) Validate(ctx context.Context, token string) (*ValidateResult, error) {
	sess, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	// best-effort, no bloquea la validación
	_ = s.sessions.UpdateLastUsed(ctx, sess.TokenHash, time.Now().UTC())

	orgs, err := s.mems.ListOrganizationsByUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &ValidateResult{
		UserID:         sess.UserID,
		Email:          sess.Email,
		OrganizationID: sess.OrganizationID,
		ExpiresAt:      sess.ExpiresAt,
		Organizations:  orgs,
	}, nil
}

func (s *service) Refresh(ctx context.Context, token string) (string, *repository.CliSession, error) {
	oldHash := s.hasher.HashSessionToken(token)

	newToken, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", nil, fmt.Errorf("generate session token: %w", err)
	}

	sess, err := s.sessions.Rotate(ctx, oldHash, s.hasher.HashSessionToken(newToken), time.Now().UTC().Add(s.ttl))
	if err != nil {
		if repository.IsNotFound(err) {
			return "", nil, ErrInvalidSession
		}
		return "", nil, err
	}
	metrics.SessionsRotated.Inc()
	logger.From(ctx).Info("session rotated",
		logger.Component("session"),
		logger.UserID(sess.UserID),
	)
	return newToken, sess, nil
}

func (s *service) Revoke(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, s.hasher.HashSessionToken(token))
}

// lookup resuelve el token presentado a una sesión vigente.
func (s *service) lookup(ctx context.Context, token string) (*repository.CliSession, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	sess, err := s.sessions.GetByTokenHash(ctx, s.hasher.HashSessionToken(token))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		// expirada equivale a eliminada; la limpieza real la hace el sweeper
		return nil, ErrInvalidSession
	}
	return sess, nil
}
