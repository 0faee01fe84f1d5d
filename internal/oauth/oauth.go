// Package oauth defines the identity provider contract used by the login
// orchestrator, plus the provider registry. Concrete providers live in
// subpackages (google, microsoft, github).
package oauth

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Identity is the normalized result of a code exchange. It is transient:
// produced during complete() and never persisted.
type Identity struct {
	Email     string
	FirstName string
	LastName  string
}

// Provider is implemented by each identity provider adapter.
type Provider interface {
	// Name returns the provider identifier ("google", "microsoft", "github").
	Name() string

	// AuthURL builds the provider authorization URL for the given CSRF state
	// and redirect URI.
	AuthURL(ctx context.Context, state, redirectURI string) (string, error)

	// Exchange trades an authorization code for a normalized identity.
	// Any non-2xx response or provider-reported error is a hard failure
	// wrapping ErrExchangeFailed; the code is single-use at the provider so
	// callers must never retry.
	Exchange(ctx context.Context, code, redirectURI string) (*Identity, error)
}

// ErrExchangeFailed marks a failed code exchange or profile fetch.
var ErrExchangeFailed = errors.New("provider exchange failed")

// ErrUnknownProvider marks a provider name with no registered adapter.
var ErrUnknownProvider = errors.New("unknown provider")

// Config holds the per-provider OAuth client credentials.
type Config struct {
	ClientID     string
	ClientSecret string
}

// Registry holds the configured providers, keyed by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider with the given name, or ErrUnknownProvider.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SplitName splits a display name into first/last on the first whitespace.
// "Ada Lovelace King" -> ("Ada", "Lovelace King").
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}
