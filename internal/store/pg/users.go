package pg

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
)

type userRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, first_name, last_name, default_organization_id, is_active, created_at`

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.DefaultOrganizationID, &u.IsActive, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`
	return scanUser(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, userID))
}

func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, repository.ErrInvalidInput
	}
	// el índice único sobre lower(email) es quien garantiza la idempotencia
	// del find-or-create bajo dos primeros logins concurrentes
	const query = `
		INSERT INTO users (id, email, first_name, last_name, is_active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, now())
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, query, uuid.NewString(), email, input.FirstName, input.LastName))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *userRepo) SetDefaultOrganization(ctx context.Context, userID, orgID string) error {
	const query = `UPDATE users SET default_organization_id = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, userID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ─── OrganizationRepository ───

type orgRepo struct {
	pool *pgxpool.Pool
}

const orgColumns = `id, name, slug, is_personal_workspace, owner_role_id, created_at`

func scanOrg(row pgx.Row) (*repository.Organization, error) {
	var o repository.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.IsPersonalWorkspace, &o.OwnerRoleID, &o.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orgRepo) Create(ctx context.Context, input repository.CreateOrganizationInput) (*repository.Organization, error) {
	if input.Slug == "" {
		return nil, repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO organizations (id, name, slug, is_personal_workspace, owner_role_id, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING ` + orgColumns
	o, err := scanOrg(r.pool.QueryRow(ctx, query,
		uuid.NewString(), input.Name, input.Slug, input.IsPersonalWorkspace, input.OwnerRoleID))
	if err != nil {
		return nil, mapErr(err)
	}
	return o, nil
}

func (r *orgRepo) GetByID(ctx context.Context, orgID string) (*repository.Organization, error) {
	const query = `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrg(r.pool.QueryRow(ctx, query, orgID))
}

func (r *orgRepo) GetBySlug(ctx context.Context, slug string) (*repository.Organization, error) {
	const query = `SELECT ` + orgColumns + ` FROM organizations WHERE slug = $1`
	return scanOrg(r.pool.QueryRow(ctx, query, slug))
}

// ─── RoleRepository ───

type roleRepo struct {
	pool *pgxpool.Pool
}

func (r *roleRepo) EnsureOwner(ctx context.Context) (*repository.Role, error) {
	// upsert: reusa el rol existente si ya fue creado por otro provisioning
	const query = `
		INSERT INTO roles (id, name, created_at)
		VALUES ($1, 'owner', now())
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at
	`
	var role repository.Role
	err := r.pool.QueryRow(ctx, query, uuid.NewString()).Scan(&role.ID, &role.Name, &role.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// ─── MembershipRepository ───

type membershipRepo struct {
	pool *pgxpool.Pool
}

func (r *membershipRepo) Create(ctx context.Context, input repository.CreateMembershipInput) (*repository.Membership, error) {
	const query = `
		INSERT INTO memberships (id, user_id, organization_id, role_id, is_active, accepted_at, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, now())
		RETURNING id, user_id, organization_id, role_id, is_active, accepted_at, created_at
	`
	var m repository.Membership
	err := r.pool.QueryRow(ctx, query,
		uuid.NewString(), input.UserID, input.OrganizationID, input.RoleID, input.AcceptedAt,
	).Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.RoleID, &m.IsActive, &m.AcceptedAt, &m.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (r *membershipRepo) ListByUser(ctx context.Context, userID string) ([]repository.Membership, error) {
	const query = `
		SELECT id, user_id, organization_id, role_id, is_active, accepted_at, created_at
		FROM memberships WHERE user_id = $1 AND is_active ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Membership
	for rows.Next() {
		var m repository.Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.RoleID, &m.IsActive, &m.AcceptedAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membershipRepo) ListOrganizationsByUser(ctx context.Context, userID string) ([]repository.Organization, error) {
	const query = `
		SELECT o.id, o.name, o.slug, o.is_personal_workspace, o.owner_role_id, o.created_at
		FROM organizations o
		JOIN memberships m ON m.organization_id = o.id
		WHERE m.user_id = $1 AND m.is_active
		ORDER BY o.created_at
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Organization
	for rows.Next() {
		var o repository.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.IsPersonalWorkspace, &o.OwnerRoleID, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
