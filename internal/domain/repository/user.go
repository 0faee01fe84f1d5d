package repository

import (
	"context"
	"time"
)

// User representa una cuenta de usuario.
type User struct {
	ID                    string
	Email                 string // siempre en minúsculas
	FirstName             string
	LastName              string
	DefaultOrganizationID *string
	IsActive              bool
	CreatedAt             time.Time
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Email     string
	FirstName string
	LastName  string
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetByEmail busca un usuario por email (case-insensitive).
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID busca un usuario por ID.
	GetByID(ctx context.Context, userID string) (*User, error)

	// Create crea un usuario activo sin organización por defecto.
	// La unicidad de email la garantiza el store (índice único sobre
	// lower(email)), no un check-then-insert: retorna ErrConflict si el
	// email ya existe, incluso bajo escritores concurrentes.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// SetDefaultOrganization fija la organización por defecto del usuario.
	SetDefaultOrganization(ctx context.Context, userID, orgID string) error
}
