package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apikeyctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/apikey"
	cliauthctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/cliauth"
	healthctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/health"
	orgctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/organization"
	sessionctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/session"
	"github.com/dropDatabas3/gatekit/internal/http/router"
	apikeysvc "github.com/dropDatabas3/gatekit/internal/http/services/apikey"
	cliauthsvc "github.com/dropDatabas3/gatekit/internal/http/services/cliauth"
	sessionsvc "github.com/dropDatabas3/gatekit/internal/http/services/session"
	"github.com/dropDatabas3/gatekit/internal/oauth"
	"github.com/dropDatabas3/gatekit/internal/rate"
	tokens "github.com/dropDatabas3/gatekit/internal/security/token"
	"github.com/dropDatabas3/gatekit/internal/store/memory"
)

type stubProvider struct {
	name       string
	identities map[string]*oauth.Identity
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) AuthURL(ctx context.Context, state, redirectURI string) (string, error) {
	return fmt.Sprintf("https://idp.test/%s/authorize?state=%s", s.name, state), nil
}

func (s *stubProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth.Identity, error) {
	id, ok := s.identities[code]
	if !ok {
		return nil, fmt.Errorf("%w: bad code", oauth.ErrExchangeFailed)
	}
	return id, nil
}

// newTestServer arma el árbol completo contra el store en memoria, con un
// provider stub y sin rate limit.
func newTestServer(t *testing.T, limiter rate.Limiter) *httptest.Server {
	t.Helper()
	m := memory.New()
	hasher := tokens.NewHasher("test-pepper")

	registry := oauth.NewRegistry(&stubProvider{name: "google", identities: map[string]*oauth.Identity{
		"code-ok":  {Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
		"code-eve": {Email: "eve@example.com", FirstName: "Eve", LastName: "Mallory"},
	}})

	states := cliauthsvc.NewStateService(cliauthsvc.StateDeps{States: m.AuthStates()})
	provisioning := cliauthsvc.NewProvisioningService(cliauthsvc.ProvisioningDeps{
		Users:         m.Users(),
		Organizations: m.Organizations(),
		Roles:         m.Roles(),
		Memberships:   m.Memberships(),
	})
	sessions := sessionsvc.New(sessionsvc.Deps{
		Sessions:    m.Sessions(),
		Memberships: m.Memberships(),
		Hasher:      hasher,
		TTL:         time.Hour,
	})
	keys := apikeysvc.New(apikeysvc.Deps{
		Keys:         m.APIKeys(),
		Applications: m.Applications(),
		Licensing:    apikeysvc.StaticLicensing{Limit: 10},
		BcryptCost:   4,
	})
	login := cliauthsvc.NewLoginService(cliauthsvc.LoginDeps{
		States:       states,
		Providers:    registry,
		Provisioning: provisioning,
		Sessions:     sessions,
		BaseURL:      "https://api.gatekit.test",
	})

	handler := router.New(router.Deps{
		Login:        cliauthctrl.NewLoginController(login, states, registry),
		Session:      sessionctrl.NewSessionController(sessions),
		Organization: orgctrl.NewOrganizationController(provisioning),
		APIKey:       apikeyctrl.NewAPIKeyController(keys, m.Memberships()),
		Health:       healthctrl.NewHealthController(m),
		Sessions:     sessions,
		LoginLimiter: limiter,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body map[string]any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest("POST", url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return out
}

// completeLogin corre initiate+complete y retorna el token de sesión.
func completeLogin(t *testing.T, base string) string {
	return completeLoginAs(t, base, "code-ok")
}

// completeLoginAs loguea con el code dado contra el provider stub.
func completeLoginAs(t *testing.T, base, code string) string {
	t.Helper()
	resp, body := postJSON(t, base+"/cli/login/initiate", map[string]any{
		"callbackUrl": "http://127.0.0.1:8976/callback",
		"provider":    "google",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := body["state"].(string)

	resp, body = postJSON(t, base+"/cli/login/complete", map[string]any{
		"state": state, "code": code, "provider": "google",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["token"].(string)
}

func TestLoginFlow_EndToEnd(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	resp, body := postJSON(t, srv.URL+"/cli/login/initiate", map[string]any{
		"callbackUrl": "http://127.0.0.1:8976/callback",
		"provider":    "google",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Contains(t, body["authUrl"], "https://idp.test/google/authorize")
	require.Equal(t, "google", body["provider"])
	state := body["state"].(string)

	resp, body = postJSON(t, srv.URL+"/cli/login/complete", map[string]any{
		"state": state, "code": "code-ok", "provider": "google",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)
	require.NotEmpty(t, token)
	require.Equal(t, "ada@example.com", body["email"])

	// el mismo state no completa dos veces
	resp, body = postJSON(t, srv.URL+"/cli/login/complete", map[string]any{
		"state": state, "code": "code-ok", "provider": "google",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "INVALID_STATE", body["code"])

	// la sesión emitida valida
	req, _ := http.NewRequest("GET", srv.URL+"/cli/session/validate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	vresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	vbody := decodeBody(t, vresp)
	require.Equal(t, http.StatusOK, vresp.StatusCode)
	require.Equal(t, true, vbody["valid"])
	require.Equal(t, "ada@example.com", vbody["email"])
	require.NotEmpty(t, vbody["organizations"])
}

func TestInitiate_BadRequests(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	resp, body := postJSON(t, srv.URL+"/cli/login/initiate", map[string]any{}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "MISSING_FIELDS", body["code"])

	resp, body = postJSON(t, srv.URL+"/cli/login/initiate", map[string]any{
		"callbackUrl": "no-es-una-url",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "BAD_REQUEST", body["code"])

	resp, body = postJSON(t, srv.URL+"/cli/login/initiate", map[string]any{
		"callbackUrl": "http://127.0.0.1:8976/callback",
		"provider":    "gitlab",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "UNKNOWN_PROVIDER", body["code"])
}

func TestComplete_ExchangeFailureIsBadGateway(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	resp, body := postJSON(t, srv.URL+"/cli/login/initiate", map[string]any{
		"callbackUrl": "http://127.0.0.1:8976/callback",
		"provider":    "google",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := body["state"].(string)

	resp, body = postJSON(t, srv.URL+"/cli/login/complete", map[string]any{
		"state": state, "code": "code-malo", "provider": "google",
	}, nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, "PROVIDER_EXCHANGE_FAILED", body["code"])
}

func TestBrowserCallback_ForwardsToCLI(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	resp, body := postJSON(t, srv.URL+"/cli/login/initiate", map[string]any{
		"callbackUrl": "http://127.0.0.1:8976/callback",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, body["provider"])
	state := body["state"].(string)

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	cbResp, err := client.Get(srv.URL + "/cli/login/callback/google?state=" + state + "&code=abc123")
	require.NoError(t, err)
	cbResp.Body.Close()
	require.Equal(t, http.StatusFound, cbResp.StatusCode)

	loc := cbResp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "http://127.0.0.1:8976/callback?"), loc)
	require.Contains(t, loc, "state="+state)
	require.Contains(t, loc, "code=abc123")
	require.Contains(t, loc, "provider=google")

	// el reenvío no consumió el state: la página de selección sigue viva
	selResp, err := client.Get(srv.URL + "/cli/login/select?state=" + state)
	require.NoError(t, err)
	sel, err := io.ReadAll(selResp.Body)
	selResp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, selResp.StatusCode)
	require.Contains(t, string(sel), "Google")
}

func TestSessionEndpoints(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	token := completeLogin(t, srv.URL)

	// refresh rota el token
	resp, body := postJSON(t, srv.URL+"/cli/session/refresh", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newToken := body["token"].(string)
	require.NotEqual(t, token, newToken)

	// el token anterior quedó inválido
	resp, body = postJSON(t, srv.URL+"/cli/session/refresh", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "INVALID_OR_EXPIRED_SESSION", body["code"])

	// revoke responde success aun con token ya revocado
	resp, body = postJSON(t, srv.URL+"/cli/session/revoke", nil, map[string]string{
		"Authorization": "Bearer " + newToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	resp, body = postJSON(t, srv.URL+"/cli/session/revoke", nil, map[string]string{
		"Authorization": "Bearer " + newToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	// sin Bearer
	req, _ := http.NewRequest("GET", srv.URL+"/cli/session/validate", nil)
	vresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	vbody := decodeBody(t, vresp)
	require.Equal(t, http.StatusUnauthorized, vresp.StatusCode)
	require.Equal(t, "TOKEN_MISSING", vbody["code"])
}

func TestAPIKeyEndpoints_RequireAuth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	req, _ := http.NewRequest("GET", srv.URL+"/cli/api-keys", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "TOKEN_MISSING", body["code"])
}

func TestAPIKeyEndpoints_CreateListBind(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	token := completeLogin(t, srv.URL)
	auth := map[string]string{"Authorization": "Bearer " + token}

	// crear key en la organización por defecto del principal
	resp, body := postJSON(t, srv.URL+"/cli/api-keys", map[string]any{"name": "ci key"}, auth)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	plaintext := body["key"].(string)
	keyID := body["id"].(string)
	require.True(t, strings.HasPrefix(plaintext, "gk_"))

	// listar: el plaintext no vuelve, solo el preview
	req, _ := http.NewRequest("GET", srv.URL+"/cli/api-keys", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	lresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	lbody := decodeBody(t, lresp)
	require.Equal(t, http.StatusOK, lresp.StatusCode)
	keys := lbody["keys"].([]any)
	require.Len(t, keys, 1)
	first := keys[0].(map[string]any)
	require.Equal(t, plaintext[:8]+"...", first["keyPreview"])
	require.Equal(t, float64(10), lbody["limit"])
	require.Equal(t, float64(1), lbody["currentCount"])

	// dos aplicaciones, una key: la segunda recibe el conflicto estructurado
	resp, body = postJSON(t, srv.URL+"/cli/applications", map[string]any{"name": "backend"}, auth)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	app1 := body["id"].(string)

	resp, body = postJSON(t, srv.URL+"/cli/applications", map[string]any{"name": "worker"}, auth)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	app2 := body["id"].(string)

	resp, body = postJSON(t, srv.URL+"/cli/applications/"+app1+"/api-key", map[string]any{"apiKeyId": keyID}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	resp, body = postJSON(t, srv.URL+"/cli/applications/"+app2+"/api-key", map[string]any{"apiKeyId": keyID}, auth)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "API_KEY_ALREADY_LINKED", body["code"])
	meta := body["meta"].(map[string]any)
	require.Equal(t, app1, meta["existingApplicationId"])
	require.Equal(t, "backend", meta["existingApplicationName"])
}

func TestBind_RejectsForeignOrganization(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	adaToken := completeLogin(t, srv.URL)
	adaAuth := map[string]string{"Authorization": "Bearer " + adaToken}

	resp, body := postJSON(t, srv.URL+"/cli/api-keys", map[string]any{"name": "ci key"}, adaAuth)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	keyID := body["id"].(string)

	resp, body = postJSON(t, srv.URL+"/cli/applications", map[string]any{"name": "backend"}, adaAuth)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appID := body["id"].(string)

	// una sesión de otra organización no puede vincular keys ajenas ni
	// enterarse de nombres de aplicaciones vía el payload de conflicto
	eveToken := completeLoginAs(t, srv.URL, "code-eve")
	resp, body = postJSON(t, srv.URL+"/cli/applications/"+appID+"/api-key",
		map[string]any{"apiKeyId": keyID},
		map[string]string{"Authorization": "Bearer " + eveToken})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "FORBIDDEN", body["code"])

	// el rechazo no dejó nada vinculado: la dueña todavía puede hacerlo
	resp, body = postJSON(t, srv.URL+"/cli/applications/"+appID+"/api-key",
		map[string]any{"apiKeyId": keyID}, adaAuth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
}

func TestOrganizationCreate(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	token := completeLogin(t, srv.URL)

	resp, body := postJSON(t, srv.URL+"/cli/organizations", map[string]any{"name": "Acme Corp"}, map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "Acme Corp", body["name"])
	require.Equal(t, "acme-corp", body["slug"])
}

func TestRateLimit_LoginEndpoints(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, rate.NewMemoryLimiter(2, time.Hour))

	payload := map[string]any{"callbackUrl": "http://127.0.0.1:8976/callback", "provider": "google"}
	for i := 0; i < 2; i++ {
		resp, _ := postJSON(t, srv.URL+"/cli/login/initiate", payload, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := postJSON(t, srv.URL+"/cli/login/initiate", payload, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestUnknownRoute_JSONError(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/no-existe")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "ROUTE_NOT_FOUND", body["code"])
}
