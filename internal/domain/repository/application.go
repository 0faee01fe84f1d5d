package repository

import (
	"context"
	"time"
)

// Application representa una aplicación conectada que puede tener una API key
// vinculada. Una key activa pertenece a lo sumo a una aplicación.
type Application struct {
	ID             string
	OrganizationID string
	Name           string
	APIKeyID       *string
	Archived       bool
	CreatedAt      time.Time
}

// CreateApplicationInput contiene los datos para crear una aplicación.
type CreateApplicationInput struct {
	OrganizationID string
	Name           string
}

// ApplicationRepository define operaciones sobre aplicaciones conectadas.
type ApplicationRepository interface {
	// Create crea una aplicación sin API key vinculada.
	Create(ctx context.Context, input CreateApplicationInput) (*Application, error)

	// GetByID busca una aplicación por ID.
	GetByID(ctx context.Context, appID string) (*Application, error)

	// FindActiveByAPIKey retorna la aplicación no archivada que tiene
	// vinculada la key dada, o ErrNotFound si ninguna la tiene.
	FindActiveByAPIKey(ctx context.Context, apiKeyID string) (*Application, error)

	// BindAPIKey vincula la key a la aplicación. El índice único parcial
	// sobre (api_key_id) de aplicaciones activas hace que el segundo
	// escritor concurrente reciba ErrConflict en lugar de pisar el vínculo.
	// Re-vincular la misma key a la misma aplicación es un no-op exitoso.
	BindAPIKey(ctx context.Context, appID, apiKeyID string) error
}
