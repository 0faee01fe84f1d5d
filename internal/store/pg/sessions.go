package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
)

type sessionRepo struct {
	pool *pgxpool.Pool
}

const sessionColumns = `id, token_hash, user_id, organization_id, email, created_at, expires_at, last_used_at`

func scanSession(row pgx.Row) (*repository.CliSession, error) {
	var s repository.CliSession
	err := row.Scan(&s.ID, &s.TokenHash, &s.UserID, &s.OrganizationID, &s.Email,
		&s.CreatedAt, &s.ExpiresAt, &s.LastUsedAt)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Create(ctx context.Context, input repository.CreateSessionInput) (*repository.CliSession, error) {
	const query = `
		INSERT INTO cli_sessions (id, token_hash, user_id, organization_id, email, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, now(), $6)
		RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, query,
		uuid.NewString(), input.TokenHash, input.UserID, input.OrganizationID, input.Email, input.ExpiresAt))
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

func (r *sessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*repository.CliSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM cli_sessions WHERE token_hash = $1`
	return scanSession(r.pool.QueryRow(ctx, query, tokenHash))
}

func (r *sessionRepo) Rotate(ctx context.Context, oldHash, newHash string, expiresAt time.Time) (*repository.CliSession, error) {
	// UPDATE condicional sobre el hash viejo: si otro refresh o revoke ganó
	// la carrera, o la sesión ya venció, no hay fila que actualizar y el
	// caller recibe ErrNotFound.
	const query = `
		UPDATE cli_sessions
		SET token_hash = $2, expires_at = $3
		WHERE token_hash = $1 AND expires_at > now()
		RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, query, oldHash, newHash, expiresAt))
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, tokenHash string) error {
	const query = `DELETE FROM cli_sessions WHERE token_hash = $1`
	_, err := r.pool.Exec(ctx, query, tokenHash)
	return err
}

func (r *sessionRepo) UpdateLastUsed(ctx context.Context, tokenHash string, at time.Time) error {
	const query = `UPDATE cli_sessions SET last_used_at = $2 WHERE token_hash = $1`
	_, err := r.pool.Exec(ctx, query, tokenHash, at)
	return err
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int, error) {
	const query = `DELETE FROM cli_sessions WHERE expires_at < now()`
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
