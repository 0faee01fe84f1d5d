package repository

import (
	"context"
	"time"
)

// Organization representa una organización (workspace).
type Organization struct {
	ID                  string
	Name                string
	Slug                string // único a nivel global
	IsPersonalWorkspace bool
	OwnerRoleID         string
	CreatedAt           time.Time
}

// Role representa un rol de membresía (owner, member, ...).
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Membership vincula un usuario con una organización y un rol.
type Membership struct {
	ID             string
	UserID         string
	OrganizationID string
	RoleID         string
	IsActive       bool
	AcceptedAt     *time.Time
	CreatedAt      time.Time
}

// CreateOrganizationInput contiene los datos para crear una organización.
type CreateOrganizationInput struct {
	Name                string
	Slug                string
	IsPersonalWorkspace bool
	OwnerRoleID         string
}

// CreateMembershipInput contiene los datos para crear una membresía.
type CreateMembershipInput struct {
	UserID         string
	OrganizationID string
	RoleID         string
	AcceptedAt     *time.Time
}

// OrganizationRepository define operaciones sobre organizaciones.
type OrganizationRepository interface {
	// Create crea una organización. El slug está protegido por un índice
	// único: retorna ErrConflict si otro escritor lo tomó primero.
	Create(ctx context.Context, input CreateOrganizationInput) (*Organization, error)

	// GetByID busca una organización por ID.
	GetByID(ctx context.Context, orgID string) (*Organization, error)

	// GetBySlug busca una organización por slug.
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
}

// RoleRepository define operaciones sobre roles.
type RoleRepository interface {
	// EnsureOwner retorna el rol "owner", creándolo si no existe.
	EnsureOwner(ctx context.Context) (*Role, error)
}

// MembershipRepository define operaciones sobre membresías.
type MembershipRepository interface {
	// Create crea una membresía activa.
	Create(ctx context.Context, input CreateMembershipInput) (*Membership, error)

	// ListByUser retorna las membresías activas de un usuario.
	ListByUser(ctx context.Context, userID string) ([]Membership, error)

	// ListOrganizationsByUser resuelve las organizaciones de las membresías
	// activas de un usuario (consulta de solo lectura para validate).
	ListOrganizationsByUser(ctx context.Context, userID string) ([]Organization, error)
}
