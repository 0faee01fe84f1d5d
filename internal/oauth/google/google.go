// Package google implements OIDC authentication with Google. The profile
// comes from the userinfo endpoint; when the token response carries an
// id_token it is additionally verified against Google's JWKS before the
// identity is trusted.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/gatekit/internal/oauth"
)

const ProviderName = "google"

// OIDC is the Google OIDC client.
type OIDC struct {
	ClientID     string
	ClientSecret string

	// Endpoints are overridable for tests.
	AuthEndpoint     string
	TokenEndpoint    string
	UserinfoEndpoint string
	JWKSEndpoint     string
	Issuer           string

	// VerifyIDToken controls whether an id_token in the token response is
	// signature-checked. Disabled in tests that stub the endpoints.
	VerifyIDToken bool

	http *http.Client
}

// New creates a new Google OIDC client.
func New(cfg oauth.Config) *OIDC {
	return &OIDC{
		ClientID:         cfg.ClientID,
		ClientSecret:     cfg.ClientSecret,
		AuthEndpoint:     "https://accounts.google.com/o/oauth2/v2/auth",
		TokenEndpoint:    "https://oauth2.googleapis.com/token",
		UserinfoEndpoint: "https://openidconnect.googleapis.com/v1/userinfo",
		JWKSEndpoint:     "https://www.googleapis.com/oauth2/v3/certs",
		Issuer:           "https://accounts.google.com",
		VerifyIDToken:    true,
		http:             &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the provider name.
func (g *OIDC) Name() string { return ProviderName }

// AuthURL builds the Google authorization URL.
func (g *OIDC) AuthURL(ctx context.Context, state, redirectURI string) (string, error) {
	u, err := url.Parse(g.AuthEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

type userinfo struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Exchange trades an authorization code for a normalized identity.
func (g *OIDC) Exchange(ctx context.Context, code, redirectURI string) (*oauth.Identity, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, "POST", g.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google token: %v", oauth.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: google token decode: %v", oauth.ErrExchangeFailed, err)
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" {
		return nil, fmt.Errorf("%w: google token http %d: %s %s", oauth.ErrExchangeFailed, resp.StatusCode, tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: google: no access_token in response", oauth.ErrExchangeFailed)
	}

	if g.VerifyIDToken && tr.IDToken != "" {
		if err := g.verifyIDToken(ctx, tr.IDToken); err != nil {
			return nil, fmt.Errorf("%w: google id_token: %v", oauth.ErrExchangeFailed, err)
		}
	}

	ui, err := g.fetchUserinfo(ctx, tr.AccessToken)
	if err != nil {
		return nil, err
	}

	first, last := ui.GivenName, ui.FamilyName
	if first == "" && last == "" {
		first, last = oauth.SplitName(ui.Name)
	}
	return &oauth.Identity{Email: ui.Email, FirstName: first, LastName: last}, nil
}

func (g *OIDC) fetchUserinfo(ctx context.Context, accessToken string) (*userinfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", g.UserinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google userinfo: %v", oauth.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google userinfo http %d", oauth.ErrExchangeFailed, resp.StatusCode)
	}
	var ui userinfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("%w: google userinfo decode: %v", oauth.ErrExchangeFailed, err)
	}
	if ui.Email == "" {
		return nil, fmt.Errorf("%w: google: no email in userinfo", oauth.ErrExchangeFailed)
	}
	return &ui, nil
}
