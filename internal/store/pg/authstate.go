package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
)

type stateRepo struct {
	pool *pgxpool.Pool
}

func (r *stateRepo) Create(ctx context.Context, st repository.AuthorizationState) error {
	const query = `
		INSERT INTO auth_state (state, pending_session_token, callback_url, provider_hint, created_at, expires_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		st.State, st.PendingSessionToken, st.CallbackURL, st.ProviderHint,
		st.CreatedAt, st.ExpiresAt,
	)
	return mapErr(err)
}

func (r *stateRepo) Peek(ctx context.Context, state string) (*repository.AuthorizationState, error) {
	const query = `
		SELECT state, pending_session_token, callback_url, COALESCE(provider_hint, ''), created_at, expires_at
		FROM auth_state WHERE state = $1
	`
	var st repository.AuthorizationState
	err := r.pool.QueryRow(ctx, query, state).Scan(
		&st.State, &st.PendingSessionToken, &st.CallbackURL, &st.ProviderHint,
		&st.CreatedAt, &st.ExpiresAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(st.ExpiresAt) {
		return nil, repository.ErrExpired
	}
	return &st, nil
}

func (r *stateRepo) Consume(ctx context.Context, state string) (*repository.AuthorizationState, error) {
	// DELETE ... RETURNING: lectura y borrado en una sola sentencia, de modo
	// que dos callbacks concurrentes con el mismo state no pueden completar
	// ambos. El que pierde ve cero filas.
	const query = `
		DELETE FROM auth_state
		WHERE state = $1
		RETURNING state, pending_session_token, callback_url, COALESCE(provider_hint, ''), created_at, expires_at
	`
	var st repository.AuthorizationState
	err := r.pool.QueryRow(ctx, query, state).Scan(
		&st.State, &st.PendingSessionToken, &st.CallbackURL, &st.ProviderHint,
		&st.CreatedAt, &st.ExpiresAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(st.ExpiresAt) {
		return nil, repository.ErrExpired
	}
	return &st, nil
}

func (r *stateRepo) DeleteExpired(ctx context.Context) (int, error) {
	const query = `DELETE FROM auth_state WHERE expires_at < now()`
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
