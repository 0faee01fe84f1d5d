package cliauth

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// maxSlugLen limita el largo del slug base antes de los sufijos.
const maxSlugLen = 48

// Slugify deriva un slug URL-safe de un nombre: minúsculas, corridas de
// caracteres no alfanuméricos colapsadas a "-", guiones de los extremos
// recortados, largo acotado.
func Slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	prevDash := false
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash && b.Len() > 0 {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "workspace"
	}
	return slug
}

// randomSlugSuffix genera un sufijo numérico aleatorio para el fallback
// cuando todos los candidatos secuenciales están tomados.
func randomSlugSuffix() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "0"
	}
	return n.String()
}
