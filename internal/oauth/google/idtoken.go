package google

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"context"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

var (
	jwksMu sync.RWMutex
	jwksAt time.Time
	cached *jwks
)

func (g *OIDC) getJWKS(ctx context.Context) (*jwks, error) {
	jwksMu.RLock()
	j, age := cached, time.Since(jwksAt)
	jwksMu.RUnlock()
	if j != nil && age < time.Hour {
		return j, nil
	}

	req, _ := http.NewRequestWithContext(ctx, "GET", g.JWKSEndpoint, nil)
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
	}
	var jj jwks
	if err := json.NewDecoder(resp.Body).Decode(&jj); err != nil {
		return nil, err
	}

	jwksMu.Lock()
	cached = &jj
	jwksAt = time.Now()
	jwksMu.Unlock()
	return &jj, nil
}

func (g *OIDC) rsaKeyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	jj, err := g.getJWKS(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range jj.Keys {
		if k.Kid == kid && strings.EqualFold(k.Kty, "RSA") {
			nb, err := base64.RawURLEncoding.DecodeString(k.N)
			if err != nil {
				return nil, err
			}
			eb, err := base64.RawURLEncoding.DecodeString(k.E)
			if err != nil {
				return nil, err
			}
			e := 0
			for _, b := range eb {
				e = (e << 8) | int(b)
			}
			if e == 0 {
				e = 65537
			}
			return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
		}
	}
	return nil, errors.New("kid not found")
}

// verifyIDToken valida firma, iss y aud del id_token. Las claims del perfil
// igual salen de userinfo; esto solo confirma que el token vino de Google.
func (g *OIDC) verifyIDToken(ctx context.Context, idToken string) error {
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return errors.New("bad jwt format")
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return err
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return err
	}
	if header.Alg != "RS256" {
		return fmt.Errorf("unexpected alg: %s", header.Alg)
	}

	key, err := g.rsaKeyForKid(ctx, header.Kid)
	if err != nil {
		return err
	}
	tok, err := jwtv5.Parse(idToken,
		func(t *jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{"RS256"}),
	)
	if err != nil || !tok.Valid {
		return errors.New("invalid id_token")
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return errors.New("claims type")
	}
	if iss, _ := claims["iss"].(string); iss != g.Issuer && iss != strings.TrimPrefix(g.Issuer, "https://") {
		return fmt.Errorf("bad iss: %s", iss)
	}
	switch a := claims["aud"].(type) {
	case string:
		if a != g.ClientID {
			return errors.New("bad aud")
		}
	case []any:
		found := false
		for _, v := range a {
			if s, _ := v.(string); s == g.ClientID {
				found = true
				break
			}
		}
		if !found {
			return errors.New("bad aud")
		}
	}
	return nil
}
