package cliauth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/gatekit/internal/http/services/cliauth"
	"github.com/dropDatabas3/gatekit/internal/oauth"
	"github.com/dropDatabas3/gatekit/internal/store/memory"
)

func newProvisioning(m *memory.Mem) cliauth.ProvisioningService {
	return cliauth.NewProvisioningService(cliauth.ProvisioningDeps{
		Users:         m.Users(),
		Organizations: m.Organizations(),
		Roles:         m.Roles(),
		Memberships:   m.Memberships(),
	})
}

func TestFindOrCreateUser_Idempotent(t *testing.T) {
	t.Parallel()
	m := memory.New()
	svc := newProvisioning(m)
	ctx := context.Background()

	id := &oauth.Identity{Email: "Ada@Example.com", FirstName: "Ada", LastName: "Lovelace"}

	u1, err := svc.FindOrCreateUser(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", u1.Email)

	// un segundo login con la misma identidad resuelve al mismo usuario
	u2, err := svc.FindOrCreateUser(ctx, id)
	require.NoError(t, err)
	require.Equal(t, u1.ID, u2.ID)
}

func TestFindOrCreateUser_RejectsEmptyEmail(t *testing.T) {
	t.Parallel()
	m := memory.New()
	svc := newProvisioning(m)

	_, err := svc.FindOrCreateUser(context.Background(), &oauth.Identity{Email: ""})
	require.Error(t, err)
}

func TestEnsureDefaultOrganization_Idempotent(t *testing.T) {
	t.Parallel()
	m := memory.New()
	svc := newProvisioning(m)
	ctx := context.Background()

	u, err := svc.FindOrCreateUser(ctx, &oauth.Identity{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)

	orgID, err := svc.EnsureDefaultOrganization(ctx, u.ID, "Ada Lovelace's Workspace")
	require.NoError(t, err)
	require.NotEmpty(t, orgID)

	org, err := m.Organizations().GetByID(ctx, orgID)
	require.NoError(t, err)
	require.True(t, org.IsPersonalWorkspace)
	require.Equal(t, "ada-lovelace-s-workspace", org.Slug)

	// la membresía owner quedó creada y activa
	mems, err := m.Memberships().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mems, 1)
	require.NotNil(t, mems[0].AcceptedAt)

	// volver a entrar no crea una segunda organización
	again, err := svc.EnsureDefaultOrganization(ctx, u.ID, "ignored")
	require.NoError(t, err)
	require.Equal(t, orgID, again)
}

func TestCreateOrganization_ProbesSlugOnCollision(t *testing.T) {
	t.Parallel()
	m := memory.New()
	svc := newProvisioning(m)
	ctx := context.Background()

	u, err := svc.FindOrCreateUser(ctx, &oauth.Identity{Email: "ada@example.com"})
	require.NoError(t, err)

	org1, err := svc.CreateOrganization(ctx, u.ID, "Acme Corp")
	require.NoError(t, err)
	require.Equal(t, "acme-corp", org1.Slug)

	org2, err := svc.CreateOrganization(ctx, u.ID, "Acme Corp")
	require.NoError(t, err)
	require.Equal(t, "acme-corp-2", org2.Slug)

	org3, err := svc.CreateOrganization(ctx, u.ID, "Acme Corp!")
	require.NoError(t, err)
	require.Equal(t, "acme-corp-3", org3.Slug)
}

func TestCreateOrganization_FirstOrgBecomesDefault(t *testing.T) {
	t.Parallel()
	m := memory.New()
	svc := newProvisioning(m)
	ctx := context.Background()

	u, err := svc.FindOrCreateUser(ctx, &oauth.Identity{Email: "ada@example.com"})
	require.NoError(t, err)
	require.Nil(t, u.DefaultOrganizationID)

	org, err := svc.CreateOrganization(ctx, u.ID, "Acme")
	require.NoError(t, err)

	reread, err := m.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, reread.DefaultOrganizationID)
	require.Equal(t, org.ID, *reread.DefaultOrganizationID)

	// una segunda organización no pisa el default
	_, err = svc.CreateOrganization(ctx, u.ID, "Otra")
	require.NoError(t, err)
	reread, err = m.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, org.ID, *reread.DefaultOrganizationID)
}
