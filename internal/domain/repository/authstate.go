package repository

import (
	"context"
	"time"
)

// AuthorizationState es un registro efímero que ata el valor CSRF `state`
// al token de sesión pre-acuñado y al callback del CLI que inició el flujo.
// Vive como máximo 10 minutos y se consume exactamente una vez.
type AuthorizationState struct {
	State               string
	PendingSessionToken string
	CallbackURL         string
	ProviderHint        string
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// AuthStateRepository define operaciones sobre estados de autorización.
type AuthStateRepository interface {
	// Create persiste un nuevo registro de state. Retorna ErrConflict si el
	// valor de state ya existe (colisión criptográficamente despreciable).
	Create(ctx context.Context, st AuthorizationState) error

	// Peek busca el registro por state sin consumirlo. Solo para la página
	// de selección de provider y el reenvío del callback al CLI; el flujo de
	// complete usa Consume. Retorna ErrNotFound o ErrExpired igual que Consume.
	Peek(ctx context.Context, state string) (*AuthorizationState, error)

	// Consume busca el registro por state y lo elimina en la misma operación
	// (lectura + borrado condicional atómico). Retorna:
	//   - ErrNotFound si no existe o ya fue consumido
	//   - ErrExpired si existía pero su TTL venció (el registro se elimina igual)
	Consume(ctx context.Context, state string) (*AuthorizationState, error)

	// DeleteExpired elimina registros vencidos. Retorna cuántos borró.
	DeleteExpired(ctx context.Context) (int, error)
}
