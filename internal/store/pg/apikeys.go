package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
)

type apiKeyRepo struct {
	pool *pgxpool.Pool
}

const apiKeyColumns = `id, organization_id, name, secret_hash, fingerprint, prefix, scopes, status, created_by, created_at, last_used_at`

func scanAPIKey(row pgx.Row) (*repository.APIKey, error) {
	var k repository.APIKey
	err := row.Scan(&k.ID, &k.OrganizationID, &k.Name, &k.SecretHash, &k.Fingerprint,
		&k.Prefix, &k.Scopes, &k.Status, &k.CreatedBy, &k.CreatedAt, &k.LastUsedAt)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *apiKeyRepo) Create(ctx context.Context, input repository.CreateAPIKeyInput) (*repository.APIKey, error) {
	const query = `
		INSERT INTO api_keys (id, organization_id, name, secret_hash, fingerprint, prefix, scopes, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $8, now())
		RETURNING ` + apiKeyColumns
	k, err := scanAPIKey(r.pool.QueryRow(ctx, query,
		uuid.NewString(), input.OrganizationID, input.Name, input.SecretHash,
		input.Fingerprint, input.Prefix, input.Scopes, input.CreatedBy))
	if err != nil {
		return nil, mapErr(err)
	}
	return k, nil
}

func (r *apiKeyRepo) GetByID(ctx context.Context, keyID string) (*repository.APIKey, error) {
	const query = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`
	return scanAPIKey(r.pool.QueryRow(ctx, query, keyID))
}

func (r *apiKeyRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*repository.APIKey, error) {
	const query = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE fingerprint = $1`
	return scanAPIKey(r.pool.QueryRow(ctx, query, fingerprint))
}

func (r *apiKeyRepo) ListByOrganization(ctx context.Context, orgID string) ([]repository.APIKey, error) {
	const query = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE organization_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.APIKey
	for rows.Next() {
		var k repository.APIKey
		if err := rows.Scan(&k.ID, &k.OrganizationID, &k.Name, &k.SecretHash, &k.Fingerprint,
			&k.Prefix, &k.Scopes, &k.Status, &k.CreatedBy, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *apiKeyRepo) CountActiveByOrganization(ctx context.Context, orgID string) (int, error) {
	const query = `SELECT count(*) FROM api_keys WHERE organization_id = $1 AND status = 'active'`
	var n int
	if err := r.pool.QueryRow(ctx, query, orgID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *apiKeyRepo) Revoke(ctx context.Context, keyID string) error {
	const query = `UPDATE api_keys SET status = 'revoked' WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, keyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *apiKeyRepo) UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error {
	const query = `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, keyID, at)
	return err
}

// ─── ApplicationRepository ───

type appRepo struct {
	pool *pgxpool.Pool
}

const appColumns = `id, organization_id, name, api_key_id, archived, created_at`

func scanApp(row pgx.Row) (*repository.Application, error) {
	var a repository.Application
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.APIKeyID, &a.Archived, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appRepo) Create(ctx context.Context, input repository.CreateApplicationInput) (*repository.Application, error) {
	const query = `
		INSERT INTO applications (id, organization_id, name, archived, created_at)
		VALUES ($1, $2, $3, FALSE, now())
		RETURNING ` + appColumns
	a, err := scanApp(r.pool.QueryRow(ctx, query, uuid.NewString(), input.OrganizationID, input.Name))
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func (r *appRepo) GetByID(ctx context.Context, appID string) (*repository.Application, error) {
	const query = `SELECT ` + appColumns + ` FROM applications WHERE id = $1`
	return scanApp(r.pool.QueryRow(ctx, query, appID))
}

func (r *appRepo) FindActiveByAPIKey(ctx context.Context, apiKeyID string) (*repository.Application, error) {
	const query = `SELECT ` + appColumns + ` FROM applications WHERE api_key_id = $1 AND NOT archived`
	return scanApp(r.pool.QueryRow(ctx, query, apiKeyID))
}

func (r *appRepo) BindAPIKey(ctx context.Context, appID, apiKeyID string) error {
	// el índice único parcial sobre api_key_id (WHERE NOT archived) rechaza
	// al segundo bind concurrente de la misma key con unique_violation
	const query = `UPDATE applications SET api_key_id = $2 WHERE id = $1 AND NOT archived`
	tag, err := r.pool.Exec(ctx, query, appID, apiKeyID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
