package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dropDatabas3/gatekit/internal/oauth"
)

func newStub(t *testing.T, token, userinfo http.HandlerFunc) *OIDC {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", token)
	mux.HandleFunc("/userinfo", userinfo)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g := New(oauth.Config{ClientID: "cid", ClientSecret: "csec"})
	g.TokenEndpoint = srv.URL + "/token"
	g.UserinfoEndpoint = srv.URL + "/userinfo"
	g.VerifyIDToken = false // el stub no firma id_tokens
	return g
}

func TestAuthURL_OIDCParams(t *testing.T) {
	t.Parallel()
	g := New(oauth.Config{ClientID: "cid"})

	u, err := g.AuthURL(context.Background(), "st-1", "https://api.test/cli/login/callback/google")
	if err != nil {
		t.Fatalf("AuthURL err: %v", err)
	}
	for _, want := range []string{"response_type=code", "state=st-1", "openid+email+profile"} {
		if !strings.Contains(u, want) {
			t.Errorf("AuthURL sin %q: %s", want, u)
		}
	}
}

func TestExchange_NormalizesIdentity(t *testing.T) {
	t.Parallel()
	g := newStub(t,
		func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if r.PostForm.Get("grant_type") != "authorization_code" {
				t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
			}
			if r.PostForm.Get("code") != "code-1" {
				t.Errorf("code = %q", r.PostForm.Get("code"))
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1"})
		},
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{
				"sub": "123", "email": "ada@example.com",
				"given_name": "Ada", "family_name": "Lovelace",
			})
		},
	)

	id, err := g.Exchange(context.Background(), "code-1", "https://api.test/cb")
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if id.Email != "ada@example.com" || id.FirstName != "Ada" || id.LastName != "Lovelace" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestExchange_SplitsDisplayNameWhenNoGivenFamily(t *testing.T) {
	t.Parallel()
	g := newStub(t,
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1"})
		},
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{
				"sub": "123", "email": "ada@example.com", "name": "Ada Lovelace King",
			})
		},
	)

	id, err := g.Exchange(context.Background(), "code-1", "https://api.test/cb")
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if id.FirstName != "Ada" || id.LastName != "Lovelace King" {
		t.Fatalf("split = %q / %q", id.FirstName, id.LastName)
	}
}

func TestExchange_TokenErrorFails(t *testing.T) {
	t.Parallel()
	g := newStub(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		},
		func(w http.ResponseWriter, r *http.Request) { t.Error("no debería llegar a userinfo") },
	)

	_, err := g.Exchange(context.Background(), "code-malo", "https://api.test/cb")
	if !errors.Is(err, oauth.ErrExchangeFailed) {
		t.Fatalf("err = %v, quería ErrExchangeFailed", err)
	}
}

func TestExchange_MissingEmailFails(t *testing.T) {
	t.Parallel()
	g := newStub(t,
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1"})
		},
		func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"sub": "123"})
		},
	)

	_, err := g.Exchange(context.Background(), "code-1", "https://api.test/cb")
	if !errors.Is(err, oauth.ErrExchangeFailed) {
		t.Fatalf("err = %v, quería ErrExchangeFailed", err)
	}
}
