package microsoft

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropDatabas3/gatekit/internal/oauth"
)

func newStub(t *testing.T, token, graph http.HandlerFunc) *OAuth {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", token)
	mux.HandleFunc("/me", graph)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	m := New(oauth.Config{ClientID: "cid", ClientSecret: "csec"})
	m.TokenEndpoint = srv.URL + "/token"
	m.GraphEndpoint = srv.URL + "/me"
	return m
}

func TestExchange_PrefersMailOverUPN(t *testing.T) {
	t.Parallel()
	m := newStub(t,
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1"})
		},
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{
				"displayName": "Ada Lovelace", "givenName": "Ada", "surname": "Lovelace",
				"mail": "ada@example.com", "userPrincipalName": "ada_example.com#EXT@t.onmicrosoft.com",
			})
		},
	)

	id, err := m.Exchange(context.Background(), "code-1", "https://api.test/cb")
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if id.Email != "ada@example.com" {
		t.Fatalf("email = %q, quería mail antes que userPrincipalName", id.Email)
	}
}

func TestExchange_FallsBackToUPN(t *testing.T) {
	t.Parallel()
	m := newStub(t,
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1"})
		},
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{
				"displayName": "Ada Lovelace", "userPrincipalName": "ada@tenant.onmicrosoft.com",
			})
		},
	)

	id, err := m.Exchange(context.Background(), "code-1", "https://api.test/cb")
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if id.Email != "ada@tenant.onmicrosoft.com" {
		t.Fatalf("email = %q", id.Email)
	}
	// sin given/surname, el displayName se parte
	if id.FirstName != "Ada" || id.LastName != "Lovelace" {
		t.Fatalf("nombre = %q %q", id.FirstName, id.LastName)
	}
}

func TestExchange_GraphErrorFails(t *testing.T) {
	t.Parallel()
	m := newStub(t,
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1"})
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		},
	)

	_, err := m.Exchange(context.Background(), "code-1", "https://api.test/cb")
	if !errors.Is(err, oauth.ErrExchangeFailed) {
		t.Fatalf("err = %v, quería ErrExchangeFailed", err)
	}
}

func TestExchange_TokenErrorBody(t *testing.T) {
	t.Parallel()
	m := newStub(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant", "error_description": "expired code"})
		},
		func(w http.ResponseWriter, r *http.Request) { t.Error("no debería llegar a graph") },
	)

	_, err := m.Exchange(context.Background(), "code-vencido", "https://api.test/cb")
	if !errors.Is(err, oauth.ErrExchangeFailed) {
		t.Fatalf("err = %v, quería ErrExchangeFailed", err)
	}
}
