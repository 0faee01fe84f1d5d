package repository

import (
	"context"
	"time"
)

// CliSession representa una sesión de CLI persistida. El token opaco nunca
// se guarda en claro: TokenHash es su HMAC-SHA256 con el pepper del servidor
// y sirve como clave de búsqueda.
type CliSession struct {
	ID             string
	TokenHash      string
	UserID         string
	OrganizationID string
	Email          string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastUsedAt     *time.Time
}

// CreateSessionInput contiene los datos para crear una sesión.
type CreateSessionInput struct {
	TokenHash      string
	UserID         string
	OrganizationID string
	Email          string
	ExpiresAt      time.Time
}

// SessionRepository define operaciones sobre sesiones de CLI.
type SessionRepository interface {
	// Create crea una nueva sesión.
	Create(ctx context.Context, input CreateSessionInput) (*CliSession, error)

	// GetByTokenHash busca una sesión por el hash de su token.
	// Retorna ErrNotFound si no existe. No filtra por expiración: eso lo
	// decide el caller comparando ExpiresAt.
	GetByTokenHash(ctx context.Context, tokenHash string) (*CliSession, error)

	// Rotate reemplaza oldHash por newHash y extiende la expiración, todo en
	// una sola operación condicional: si oldHash ya no existe (rotado o
	// revocado por otro caller) retorna ErrNotFound y no escribe nada. Tras
	// rotar, el token anterior jamás vuelve a validar.
	Rotate(ctx context.Context, oldHash, newHash string, expiresAt time.Time) (*CliSession, error)

	// Delete elimina la sesión con el hash dado. No distingue entre sesión
	// inexistente y eliminada: ambas retornan nil (revoke idempotente).
	Delete(ctx context.Context, tokenHash string) error

	// UpdateLastUsed actualiza el timestamp de último uso. Best-effort.
	UpdateLastUsed(ctx context.Context, tokenHash string, at time.Time) error

	// DeleteExpired elimina sesiones vencidas. Retorna cuántas borró.
	DeleteExpired(ctx context.Context) (int, error)
}
