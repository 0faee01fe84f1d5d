// Package pg implementa el Store sobre PostgreSQL usando pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	"github.com/dropDatabas3/gatekit/internal/store"
)

func init() {
	store.Register("postgres", Open)
}

// PG implementa store.Store sobre un pool pgx.
type PG struct {
	pool *pgxpool.Pool
}

// Open abre un pool de conexiones según la configuración.
func Open(ctx context.Context, cfg store.Config) (store.Store, error) {
	if cfg.DSN == "" {
		return nil, repository.ErrNoDatabase
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.Postgres.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}
	if cfg.Postgres.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.Postgres.ConnMaxLifetime); err == nil {
			poolCfg.MaxConnLifetime = d
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	return &PG{pool: pool}, nil
}

func (p *PG) AuthStates() repository.AuthStateRepository       { return &stateRepo{pool: p.pool} }
func (p *PG) Users() repository.UserRepository                 { return &userRepo{pool: p.pool} }
func (p *PG) Organizations() repository.OrganizationRepository { return &orgRepo{pool: p.pool} }
func (p *PG) Roles() repository.RoleRepository                 { return &roleRepo{pool: p.pool} }
func (p *PG) Memberships() repository.MembershipRepository     { return &membershipRepo{pool: p.pool} }
func (p *PG) Sessions() repository.SessionRepository           { return &sessionRepo{pool: p.pool} }
func (p *PG) APIKeys() repository.APIKeyRepository             { return &apiKeyRepo{pool: p.pool} }
func (p *PG) Applications() repository.ApplicationRepository   { return &appRepo{pool: p.pool} }

func (p *PG) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *PG) Close() error {
	p.pool.Close()
	return nil
}

// mapErr traduce errores de pgx a errores de dominio.
// 23505 = unique_violation: el índice único rechazó al segundo escritor.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return repository.ErrConflict
	}
	return err
}
