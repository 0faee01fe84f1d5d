// Package memory implementa el Store en memoria. Útil para desarrollo y
// tests: mismas garantías de unicidad y atomicidad que el driver de
// PostgreSQL, protegidas por un mutex en lugar de índices únicos.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	"github.com/dropDatabas3/gatekit/internal/store"
)

func init() {
	store.Register("memory", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return New(), nil
	})
}

// Mem implementa store.Store en memoria.
type Mem struct {
	mu sync.Mutex

	states map[string]repository.AuthorizationState

	users        map[string]repository.User
	usersByEmail map[string]string // lower(email) -> userID

	orgs        map[string]repository.Organization
	orgsBySlug  map[string]string
	roles       map[string]repository.Role // name -> role
	memberships map[string]repository.Membership

	sessions map[string]repository.CliSession // tokenHash -> session

	apikeys     map[string]repository.APIKey
	apikeysByFp map[string]string

	apps map[string]repository.Application
}

// New crea un Store en memoria vacío.
func New() *Mem {
	return &Mem{
		states:       make(map[string]repository.AuthorizationState),
		users:        make(map[string]repository.User),
		usersByEmail: make(map[string]string),
		orgs:         make(map[string]repository.Organization),
		orgsBySlug:   make(map[string]string),
		roles:        make(map[string]repository.Role),
		memberships:  make(map[string]repository.Membership),
		sessions:     make(map[string]repository.CliSession),
		apikeys:      make(map[string]repository.APIKey),
		apikeysByFp:  make(map[string]string),
		apps:         make(map[string]repository.Application),
	}
}

func (m *Mem) AuthStates() repository.AuthStateRepository       { return (*stateRepo)(m) }
func (m *Mem) Users() repository.UserRepository                 { return (*userRepo)(m) }
func (m *Mem) Organizations() repository.OrganizationRepository { return (*orgRepo)(m) }
func (m *Mem) Roles() repository.RoleRepository                 { return (*roleRepo)(m) }
func (m *Mem) Memberships() repository.MembershipRepository     { return (*membershipRepo)(m) }
func (m *Mem) Sessions() repository.SessionRepository           { return (*sessionRepo)(m) }
func (m *Mem) APIKeys() repository.APIKeyRepository             { return (*apiKeyRepo)(m) }
func (m *Mem) Applications() repository.ApplicationRepository   { return (*appRepo)(m) }

func (m *Mem) Ping(ctx context.Context) error { return nil }
func (m *Mem) Close() error                   { return nil }

// ─── AuthStateRepository ───

type stateRepo Mem

func (r *stateRepo) Create(ctx context.Context, st repository.AuthorizationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[st.State]; ok {
		return repository.ErrConflict
	}
	r.states[st.State] = st
	return nil
}

func (r *stateRepo) Peek(ctx context.Context, state string) (*repository.AuthorizationState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[state]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if time.Now().After(st.ExpiresAt) {
		return nil, repository.ErrExpired
	}
	return &st, nil
}

func (r *stateRepo) Consume(ctx context.Context, state string) (*repository.AuthorizationState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[state]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// lectura + borrado bajo el mismo lock: consumo at-most-once
	delete(r.states, state)
	if time.Now().After(st.ExpiresAt) {
		return nil, repository.ErrExpired
	}
	return &st, nil
}

func (r *stateRepo) DeleteExpired(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	n := 0
	for k, st := range r.states {
		if now.After(st.ExpiresAt) {
			delete(r.states, k)
			n++
		}
	}
	return n, nil
}
