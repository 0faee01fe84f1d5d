package apikey_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	"github.com/dropDatabas3/gatekit/internal/http/services/apikey"
	"github.com/dropDatabas3/gatekit/internal/store/memory"
)

func newKeyService(t *testing.T, limit int) (apikey.Service, *memory.Mem) {
	t.Helper()
	m := memory.New()
	svc := apikey.New(apikey.Deps{
		Keys:         m.APIKeys(),
		Applications: m.Applications(),
		Licensing:    apikey.StaticLicensing{Limit: limit},
		BcryptCost:   4, // cost mínimo para que los tests no tarden
	})
	return svc, m
}

func TestGenerate_PlaintextShownOnce(t *testing.T) {
	t.Parallel()
	svc, m := newKeyService(t, 10)
	ctx := context.Background()

	plaintext, key, err := svc.Generate(ctx, "org1", "u1", "ci key", nil)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(plaintext, "gk_"))
	require.Equal(t, plaintext[:8], key.Prefix)
	require.Equal(t, []string{"*"}, key.Scopes)
	require.Equal(t, "u1", key.CreatedBy)

	// el plaintext no queda persistido en ninguna columna
	stored, err := m.APIKeys().GetByID(ctx, key.ID)
	require.NoError(t, err)
	require.NotContains(t, stored.SecretHash, plaintext)
	require.NotEqual(t, plaintext, stored.Fingerprint)
}

func TestGenerate_EnforcesLicenseLimit(t *testing.T) {
	t.Parallel()
	svc, _ := newKeyService(t, 2)
	ctx := context.Background()

	_, _, err := svc.Generate(ctx, "org1", "u1", "k1", nil)
	require.NoError(t, err)
	_, _, err = svc.Generate(ctx, "org1", "u1", "k2", nil)
	require.NoError(t, err)

	_, _, err = svc.Generate(ctx, "org1", "u1", "k3", nil)
	require.ErrorIs(t, err, apikey.ErrLimitReached)

	// otra organización tiene su propio cupo
	_, _, err = svc.Generate(ctx, "org2", "u1", "k1", nil)
	require.NoError(t, err)
}

func TestGenerate_RevokedKeysFreeQuota(t *testing.T) {
	t.Parallel()
	svc, _ := newKeyService(t, 1)
	ctx := context.Background()

	_, key, err := svc.Generate(ctx, "org1", "u1", "k1", nil)
	require.NoError(t, err)
	_, _, err = svc.Generate(ctx, "org1", "u1", "k2", nil)
	require.ErrorIs(t, err, apikey.ErrLimitReached)

	require.NoError(t, svc.Revoke(ctx, key.ID))
	_, _, err = svc.Generate(ctx, "org1", "u1", "k2", nil)
	require.NoError(t, err)
}

func TestQuota(t *testing.T) {
	t.Parallel()
	svc, _ := newKeyService(t, 5)
	ctx := context.Background()

	_, _, err := svc.Generate(ctx, "org1", "u1", "k1", []string{"read"})
	require.NoError(t, err)

	limit, current, err := svc.Quota(ctx, "org1")
	require.NoError(t, err)
	require.Equal(t, 5, limit)
	require.Equal(t, 1, current)
}

func TestVerifyKey(t *testing.T) {
	t.Parallel()
	svc, _ := newKeyService(t, 10)
	ctx := context.Background()

	plaintext, key, err := svc.Generate(ctx, "org1", "u1", "ci", nil)
	require.NoError(t, err)

	got, err := svc.VerifyKey(ctx, plaintext)
	require.NoError(t, err)
	require.Equal(t, key.ID, got.ID)

	_, err = svc.VerifyKey(ctx, "gk_inventada")
	require.ErrorIs(t, err, apikey.ErrInvalidKey)

	_, err = svc.VerifyKey(ctx, "sin-prefijo")
	require.ErrorIs(t, err, apikey.ErrInvalidKey)

	require.NoError(t, svc.Revoke(ctx, key.ID))
	_, err = svc.VerifyKey(ctx, plaintext)
	require.ErrorIs(t, err, apikey.ErrInvalidKey)
}

func TestBind_ExclusivityAndRebindNoop(t *testing.T) {
	t.Parallel()
	svc, _ := newKeyService(t, 10)
	ctx := context.Background()

	_, key, err := svc.Generate(ctx, "org1", "u1", "ci", nil)
	require.NoError(t, err)
	app1, err := svc.CreateApplication(ctx, "org1", "backend")
	require.NoError(t, err)
	app2, err := svc.CreateApplication(ctx, "org1", "worker")
	require.NoError(t, err)

	require.NoError(t, svc.Bind(ctx, app1.ID, key.ID))

	// re-vincular a la misma aplicación es no-op exitoso
	require.NoError(t, svc.Bind(ctx, app1.ID, key.ID))

	// otra aplicación recibe el conflicto estructurado con el ganador
	err = svc.Bind(ctx, app2.ID, key.ID)
	var linked *apikey.AlreadyLinkedError
	require.ErrorAs(t, err, &linked)
	require.Equal(t, app1.ID, linked.ApplicationID)
	require.Equal(t, "backend", linked.ApplicationName)
}

func TestBind_RejectsRevokedAndCrossOrgKeys(t *testing.T) {
	t.Parallel()
	svc, _ := newKeyService(t, 10)
	ctx := context.Background()

	_, key, err := svc.Generate(ctx, "org1", "u1", "ci", nil)
	require.NoError(t, err)

	otherOrgApp, err := svc.CreateApplication(ctx, "org2", "ajena")
	require.NoError(t, err)
	require.ErrorIs(t, svc.Bind(ctx, otherOrgApp.ID, key.ID), repository.ErrInvalidInput)

	app, err := svc.CreateApplication(ctx, "org1", "propia")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, key.ID))
	require.ErrorIs(t, svc.Bind(ctx, app.ID, key.ID), apikey.ErrInvalidKey)
}

func TestBind_UnknownTargets(t *testing.T) {
	t.Parallel()
	svc, _ := newKeyService(t, 10)
	ctx := context.Background()

	_, key, err := svc.Generate(ctx, "org1", "u1", "ci", nil)
	require.NoError(t, err)
	app, err := svc.CreateApplication(ctx, "org1", "backend")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Bind(ctx, "app-inexistente", key.ID), repository.ErrNotFound)
	require.ErrorIs(t, svc.Bind(ctx, app.ID, "key-inexistente"), repository.ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	t.Parallel()
	svc, _ := newKeyService(t, 10)
	ctx := context.Background()

	_, _, err := svc.Generate(ctx, "org1", "u1", "k1", nil)
	require.NoError(t, err)
	_, _, err = svc.Generate(ctx, "org1", "u1", "k2", nil)
	require.NoError(t, err)
	_, _, err = svc.Generate(ctx, "org2", "u1", "ajena", nil)
	require.NoError(t, err)

	keys, err := svc.List(ctx, "org1")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	for _, k := range keys {
		require.Equal(t, "org1", k.OrganizationID)
		require.Empty(t, k.LastUsedAt)
	}
}
