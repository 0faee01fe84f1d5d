// Package microsoft implements OAuth 2.0 authentication with Microsoft.
// The profile comes from the Graph /me endpoint; personal accounts often
// lack `mail`, so `userPrincipalName` is the email fallback.
package microsoft

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

const ProviderName = "microsoft"

// OAuth is the Microsoft OAuth 2.0 client.
type OAuth struct {
	ClientID     string
	ClientSecret string

	// Endpoints are overridable for tests.
	AuthEndpoint  string
	TokenEndpoint string
	GraphEndpoint string

	http *http.Client
}

// New creates a new Microsoft OAuth client.
func New(cfg oauth.Config) *OAuth {
	return &OAuth{
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		AuthEndpoint:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		TokenEndpoint: "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		GraphEndpoint: "https://graph.microsoft.com/v1.0/me",
		http:          &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the provider name.
func (m *OAuth) Name() string { return ProviderName }

// AuthURL builds the Microsoft authorization URL.
func (m *OAuth) AuthURL(ctx context.Context, state, redirectURI string) (string, error) {
	u, err := url.Parse(m.AuthEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", m.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", "openid email profile User.Read")
	q.Set("state", state)
	q.Set("response_mode", "query")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

type graphProfile struct {
	DisplayName       string `json:"displayName"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Exchange trades an authorization code for a normalized identity.
func (m *OAuth) Exchange(ctx context.Context, code, redirectURI string) (*oauth.Identity, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", m.ClientID)
	form.Set("client_secret", m.ClientSecret)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, "POST", m.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: microsoft token: %v", oauth.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: microsoft token decode: %v", oauth.ErrExchangeFailed, err)
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" {
		return nil, fmt.Errorf("%w: microsoft token http %d: %s %s", oauth.ErrExchangeFailed, resp.StatusCode, tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: microsoft: no access_token in response", oauth.ErrExchangeFailed)
	}

	profile, err := m.fetchProfile(ctx, tr.AccessToken)
	if err != nil {
		return nil, err
	}

	email := profile.Mail
	if email == "" {
		email = profile.UserPrincipalName
	}
	if email == "" {
		return nil, fmt.Errorf("%w: microsoft: no email in profile", oauth.ErrExchangeFailed)
	}

	first, last := profile.GivenName, profile.Surname
	if first == "" && last == "" {
		first, last = oauth.SplitName(profile.DisplayName)
	}
	return &oauth.Identity{Email: email, FirstName: first, LastName: last}, nil
}

func (m *OAuth) fetchProfile(ctx context.Context, accessToken string) (*graphProfile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", m.GraphEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: graph: %v", oauth.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: graph http %d", oauth.ErrExchangeFailed, resp.StatusCode)
	}
	var p graphProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: graph decode: %v", oauth.ErrExchangeFailed, err)
	}
	return &p, nil
}
