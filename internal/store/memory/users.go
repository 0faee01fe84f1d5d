package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
)

// ─── UserRepository ───

type userRepo Mem

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := r.users[id]
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, repository.ErrInvalidInput
	}
	if _, ok := r.usersByEmail[email]; ok {
		return nil, repository.ErrConflict
	}
	u := repository.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	r.users[u.ID] = u
	r.usersByEmail[email] = u.ID
	return &u, nil
}

func (r *userRepo) SetDefaultOrganization(ctx context.Context, userID, orgID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.DefaultOrganizationID = &orgID
	r.users[userID] = u
	return nil
}

// ─── OrganizationRepository ───

type orgRepo Mem

func (r *orgRepo) Create(ctx context.Context, input repository.CreateOrganizationInput) (*repository.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if input.Slug == "" {
		return nil, repository.ErrInvalidInput
	}
	if _, ok := r.orgsBySlug[input.Slug]; ok {
		return nil, repository.ErrConflict
	}
	o := repository.Organization{
		ID:                  uuid.NewString(),
		Name:                input.Name,
		Slug:                input.Slug,
		IsPersonalWorkspace: input.IsPersonalWorkspace,
		OwnerRoleID:         input.OwnerRoleID,
		CreatedAt:           time.Now().UTC(),
	}
	r.orgs[o.ID] = o
	r.orgsBySlug[o.Slug] = o.ID
	return &o, nil
}

func (r *orgRepo) GetByID(ctx context.Context, orgID string) (*repository.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orgs[orgID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r *orgRepo) GetBySlug(ctx context.Context, slug string) (*repository.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.orgsBySlug[slug]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o := r.orgs[id]
	return &o, nil
}

// ─── RoleRepository ───

type roleRepo Mem

func (r *roleRepo) EnsureOwner(ctx context.Context) (*repository.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.roles["owner"]; ok {
		return &role, nil
	}
	role := repository.Role{
		ID:        uuid.NewString(),
		Name:      "owner",
		CreatedAt: time.Now().UTC(),
	}
	r.roles["owner"] = role
	return &role, nil
}

// ─── MembershipRepository ───

type membershipRepo Mem

func (r *membershipRepo) Create(ctx context.Context, input repository.CreateMembershipInput) (*repository.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := repository.Membership{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		OrganizationID: input.OrganizationID,
		RoleID:         input.RoleID,
		IsActive:       true,
		AcceptedAt:     input.AcceptedAt,
		CreatedAt:      time.Now().UTC(),
	}
	r.memberships[m.ID] = m
	return &m, nil
}

func (r *membershipRepo) ListByUser(ctx context.Context, userID string) ([]repository.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Membership
	for _, m := range r.memberships {
		if m.UserID == userID && m.IsActive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *membershipRepo) ListOrganizationsByUser(ctx context.Context, userID string) ([]repository.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Organization
	for _, m := range r.memberships {
		if m.UserID == userID && m.IsActive {
			if o, ok := r.orgs[m.OrganizationID]; ok {
				out = append(out, o)
			}
		}
	}
	return out, nil
}
