// Package store expone el acceso a datos detrás de las interfaces de
// internal/domain/repository, con drivers intercambiables (memoria para
// dev/test, PostgreSQL para producción).
package store

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
)

// Store agrupa todos los repositorios del bridge.
type Store interface {
	AuthStates() repository.AuthStateRepository
	Users() repository.UserRepository
	Organizations() repository.OrganizationRepository
	Roles() repository.RoleRepository
	Memberships() repository.MembershipRepository
	Sessions() repository.SessionRepository
	APIKeys() repository.APIKeyRepository
	Applications() repository.ApplicationRepository

	// Ping verifica la conexión al backend.
	Ping(ctx context.Context) error

	// Close libera recursos (pools, conexiones).
	Close() error
}

// Config configuración para abrir un Store.
type Config struct {
	Driver string // "memory" | "postgres"
	DSN    string
	Postgres struct {
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime string
	}
}

// Opener abre un Store a partir de la configuración. Los drivers se
// registran via Register en sus paquetes.
type Opener func(ctx context.Context, cfg Config) (Store, error)

var openers = map[string]Opener{}

// Register registra un driver. Llamar desde init() del paquete del driver.
func Register(name string, open Opener) {
	openers[name] = open
}

// Open abre un Store con el driver configurado.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = "memory"
	}
	open, ok := openers[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("store: driver desconocido %q", cfg.Driver)
	}
	return open(ctx, cfg)
}
