package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
)

// ─── APIKeyRepository ───

type apiKeyRepo Mem

func (r *apiKeyRepo) Create(ctx context.Context, input repository.CreateAPIKeyInput) (*repository.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apikeysByFp[input.Fingerprint]; ok {
		return nil, repository.ErrConflict
	}
	k := repository.APIKey{
		ID:             uuid.NewString(),
		OrganizationID: input.OrganizationID,
		Name:           input.Name,
		SecretHash:     input.SecretHash,
		Fingerprint:    input.Fingerprint,
		Prefix:         input.Prefix,
		Scopes:         append([]string(nil), input.Scopes...),
		Status:         repository.APIKeyStatusActive,
		CreatedBy:      input.CreatedBy,
		CreatedAt:      time.Now().UTC(),
	}
	r.apikeys[k.ID] = k
	r.apikeysByFp[k.Fingerprint] = k.ID
	return &k, nil
}

func (r *apiKeyRepo) GetByID(ctx context.Context, keyID string) (*repository.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.apikeys[keyID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &k, nil
}

func (r *apiKeyRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*repository.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.apikeysByFp[fingerprint]
	if !ok {
		return nil, repository.ErrNotFound
	}
	k := r.apikeys[id]
	return &k, nil
}

func (r *apiKeyRepo) ListByOrganization(ctx context.Context, orgID string) ([]repository.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.APIKey
	for _, k := range r.apikeys {
		if k.OrganizationID == orgID {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *apiKeyRepo) CountActiveByOrganization(ctx context.Context, orgID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.apikeys {
		if k.OrganizationID == orgID && k.Status == repository.APIKeyStatusActive {
			n++
		}
	}
	return n, nil
}

func (r *apiKeyRepo) Revoke(ctx context.Context, keyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.apikeys[keyID]
	if !ok {
		return repository.ErrNotFound
	}
	k.Status = repository.APIKeyStatusRevoked
	r.apikeys[keyID] = k
	return nil
}

func (r *apiKeyRepo) UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.apikeys[keyID]
	if !ok {
		return repository.ErrNotFound
	}
	k.LastUsedAt = &at
	r.apikeys[keyID] = k
	return nil
}

// ─── ApplicationRepository ───

type appRepo Mem

func (r *appRepo) Create(ctx context.Context, input repository.CreateApplicationInput) (*repository.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := repository.Application{
		ID:             uuid.NewString(),
		OrganizationID: input.OrganizationID,
		Name:           input.Name,
		CreatedAt:      time.Now().UTC(),
	}
	r.apps[a.ID] = a
	return &a, nil
}

func (r *appRepo) GetByID(ctx context.Context, appID string) (*repository.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[appID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *appRepo) FindActiveByAPIKey(ctx context.Context, apiKeyID string) (*repository.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.apps {
		if !a.Archived && a.APIKeyID != nil && *a.APIKeyID == apiKeyID {
			out := a
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *appRepo) BindAPIKey(ctx context.Context, appID, apiKeyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[appID]
	if !ok {
		return repository.ErrNotFound
	}
	// chequeo de exclusividad bajo el mismo lock que la escritura
	for _, other := range r.apps {
		if other.ID == appID || other.Archived {
			continue
		}
		if other.APIKeyID != nil && *other.APIKeyID == apiKeyID {
			return repository.ErrConflict
		}
	}
	a.APIKeyID = &apiKeyID
	r.apps[appID] = a
	return nil
}
