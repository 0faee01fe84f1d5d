package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
)

// ─── SessionRepository ───

type sessionRepo Mem

func (r *sessionRepo) Create(ctx context.Context, input repository.CreateSessionInput) (*repository.CliSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[input.TokenHash]; ok {
		return nil, repository.ErrConflict
	}
	s := repository.CliSession{
		ID:             uuid.NewString(),
		TokenHash:      input.TokenHash,
		UserID:         input.UserID,
		OrganizationID: input.OrganizationID,
		Email:          input.Email,
		CreatedAt:      time.Now().UTC(),
		ExpiresAt:      input.ExpiresAt,
	}
	r.sessions[s.TokenHash] = s
	return &s, nil
}

func (r *sessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*repository.CliSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *sessionRepo) Rotate(ctx context.Context, oldHash, newHash string, expiresAt time.Time) (*repository.CliSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[oldHash]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, repository.ErrNotFound
	}
	// borrado + alta bajo el mismo lock: el token viejo no vuelve a validar
	delete(r.sessions, oldHash)
	s.TokenHash = newHash
	s.ExpiresAt = expiresAt
	r.sessions[newHash] = s
	return &s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tokenHash)
	return nil
}

func (r *sessionRepo) UpdateLastUsed(ctx context.Context, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenHash]
	if !ok {
		return repository.ErrNotFound
	}
	s.LastUsedAt = &at
	r.sessions[tokenHash] = s
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	n := 0
	for k, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, k)
			n++
		}
	}
	return n, nil
}
