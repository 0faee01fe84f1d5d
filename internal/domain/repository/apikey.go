package repository

import (
	"context"
	"time"
)

// Estados posibles de una API key.
const (
	APIKeyStatusActive  = "active"
	APIKeyStatusRevoked = "revoked"
)

// APIKey representa una API key con alcance de organización. El secreto se
// guarda como hash bcrypt; Fingerprint (SHA-256 del plaintext completo)
// permite lookups O(1) y Prefix son los primeros caracteres visibles para
// mostrar la key de forma segura.
type APIKey struct {
	ID             string
	OrganizationID string
	Name           string
	SecretHash     string
	Fingerprint    string
	Prefix         string
	Scopes         []string // "*" significa sin restricciones
	Status         string
	CreatedBy      string
	CreatedAt      time.Time
	LastUsedAt     *time.Time
}

// CreateAPIKeyInput contiene los datos para crear una API key.
type CreateAPIKeyInput struct {
	OrganizationID string
	Name           string
	SecretHash     string
	Fingerprint    string
	Prefix         string
	Scopes         []string
	CreatedBy      string
}

// APIKeyRepository define operaciones sobre API keys.
type APIKeyRepository interface {
	// Create crea una API key activa.
	Create(ctx context.Context, input CreateAPIKeyInput) (*APIKey, error)

	// GetByID busca una API key por ID.
	GetByID(ctx context.Context, keyID string) (*APIKey, error)

	// GetByFingerprint busca una API key por fingerprint SHA-256.
	GetByFingerprint(ctx context.Context, fingerprint string) (*APIKey, error)

	// ListByOrganization retorna las keys de una organización, más recientes primero.
	ListByOrganization(ctx context.Context, orgID string) ([]APIKey, error)

	// CountActiveByOrganization cuenta las keys activas de una organización.
	CountActiveByOrganization(ctx context.Context, orgID string) (int, error)

	// Revoke marca una key como revocada.
	Revoke(ctx context.Context, keyID string) error

	// UpdateLastUsed actualiza el timestamp de último uso. Best-effort.
	UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error
}
