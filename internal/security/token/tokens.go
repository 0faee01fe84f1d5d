// Package tokens genera y hashea tokens opacos (state, sesiones CLI, API keys).
package tokens

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
// nBytes >= 16 para los tokens de state y sesión (128+ bits de entropía).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// SHA256Hex devuelve sha256(input) en hexadecimal (fingerprints de API keys).
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)
}

// Hasher hashea tokens para almacenamiento. Los tokens de sesión se guardan
// como HMAC-SHA256 con un pepper del servidor: determinístico (sirve como
// clave de búsqueda) y de un solo sentido. La comparación es por igualdad del
// hash, que HMAC hace segura frente a timing.
type Hasher struct {
	pepper []byte
}

// NewHasher crea un Hasher con el pepper dado. El pepper viene de la
// configuración y nunca se persiste junto a los hashes.
func NewHasher(pepper string) *Hasher {
	return &Hasher{pepper: []byte(pepper)}
}

// HashSessionToken devuelve el hash HMAC-SHA256 (base64url) de un token de sesión.
func (h *Hasher) HashSessionToken(token string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// HashAPIKeySecret hashea el secreto de una API key con bcrypt y el cost dado.
// El lookup se hace por fingerprint SHA-256; bcrypt cubre la verificación final.
func HashAPIKeySecret(plaintext string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyAPIKeySecret compara un secreto en claro contra su hash bcrypt.
func VerifyAPIKeySecret(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
