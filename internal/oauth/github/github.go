// Package github implements OAuth 2.0 authentication with GitHub. GitHub's
// profile endpoint does not guarantee an email (users can keep it private),
// so a secondary call to /user/emails selects the primary verified address.
package github

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

const ProviderName = "github"

// OAuth is the GitHub OAuth 2.0 client.
type OAuth struct {
	ClientID     string
	ClientSecret string

	// Endpoints are overridable for tests.
	AuthEndpoint  string
	TokenEndpoint string
	UserEndpoint  string
	EmailEndpoint string

	// NoreplyDomain se usa para sintetizar login@dominio cuando el usuario
	// no expone ningún email.
	NoreplyDomain string

	http *http.Client
}

// New creates a new GitHub OAuth client.
func New(cfg oauth.Config) *OAuth {
	return &OAuth{
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		AuthEndpoint:  "https://github.com/login/oauth/authorize",
		TokenEndpoint: "https://github.com/login/oauth/access_token",
		UserEndpoint:  "https://api.github.com/user",
		EmailEndpoint: "https://api.github.com/user/emails",
		NoreplyDomain: "users.noreply.github.com",
		http:          &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the provider name.
func (g *OAuth) Name() string { return ProviderName }

// AuthURL builds the authorization URL for GitHub OAuth.
func (g *OAuth) AuthURL(ctx context.Context, state, redirectURI string) (string, error) {
	u, err := url.Parse(g.AuthEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", "user:email read:user")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

type userInfo struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Exchange trades an authorization code for a normalized identity.
func (g *OAuth) Exchange(ctx context.Context, code, redirectURI string) (*oauth.Identity, error) {
	form := url.Values{}
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, "POST", g.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: github token: %v", oauth.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: github token decode: %v", oauth.ErrExchangeFailed, err)
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" {
		return nil, fmt.Errorf("%w: github token http %d: %s %s", oauth.ErrExchangeFailed, resp.StatusCode, tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: github: no access_token in response", oauth.ErrExchangeFailed)
	}

	info, err := g.fetchUser(ctx, tr.AccessToken)
	if err != nil {
		return nil, err
	}

	email := info.Email
	if email == "" {
		email, err = g.resolveEmail(ctx, tr.AccessToken)
		if err != nil {
			return nil, err
		}
	}
	if email == "" {
		// último recurso: dirección noreply sintetizada a partir del login
		email = info.Login + "@" + g.NoreplyDomain
	}

	first, last := oauth.SplitName(info.Name)
	if first == "" {
		first = info.Login
	}
	return &oauth.Identity{Email: email, FirstName: first, LastName: last}, nil
}

func (g *OAuth) fetchUser(ctx context.Context, accessToken string) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", g.UserEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: github user: %v", oauth.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: github user http %d", oauth.ErrExchangeFailed, resp.StatusCode)
	}
	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: github user decode: %v", oauth.ErrExchangeFailed, err)
	}
	return &info, nil
}

// resolveEmail lists the user's emails and picks primary-verified, falling
// back to any verified, falling back to the first entry.
func (g *OAuth) resolveEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", g.EmailEndpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: github emails: %v", oauth.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: github emails http %d", oauth.ErrExchangeFailed, resp.StatusCode)
	}
	var emails []emailInfo
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("%w: github emails decode: %v", oauth.ErrExchangeFailed, err)
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}
