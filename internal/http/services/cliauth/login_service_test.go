package cliauth_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	"github.com/dropDatabas3/gatekit/internal/http/services/cliauth"
	"github.com/dropDatabas3/gatekit/internal/http/services/session"
	"github.com/dropDatabas3/gatekit/internal/oauth"
	tokens "github.com/dropDatabas3/gatekit/internal/security/token"
	"github.com/dropDatabas3/gatekit/internal/store/memory"
)

// fakeProvider resuelve exchanges contra un mapa de códigos en memoria.
type fakeProvider struct {
	name       string
	identities map[string]*oauth.Identity // code -> identity
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthURL(ctx context.Context, state, redirectURI string) (string, error) {
	return fmt.Sprintf("https://idp.test/%s/authorize?state=%s&redirect_uri=%s", f.name, state, redirectURI), nil
}

func (f *fakeProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth.Identity, error) {
	id, ok := f.identities[code]
	if !ok {
		return nil, fmt.Errorf("%w: bad code", oauth.ErrExchangeFailed)
	}
	return id, nil
}

type captureNotifier struct {
	emails []string
}

func (c *captureNotifier) LoginSucceeded(ctx context.Context, email, provider string) {
	c.emails = append(c.emails, email)
}

type loginFixture struct {
	svc      cliauth.LoginService
	sessions session.Service
	store    *memory.Mem
	notifier *captureNotifier
}

func newLoginFixture(t *testing.T) *loginFixture {
	t.Helper()
	m := memory.New()

	google := &fakeProvider{name: "google", identities: map[string]*oauth.Identity{
		"code-ok": {Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
	}}
	github := &fakeProvider{name: "github", identities: map[string]*oauth.Identity{}}

	sessions := session.New(session.Deps{
		Sessions:    m.Sessions(),
		Memberships: m.Memberships(),
		Hasher:      tokens.NewHasher("test-pepper"),
		TTL:         time.Hour,
	})
	notifier := &captureNotifier{}
	svc := cliauth.NewLoginService(cliauth.LoginDeps{
		States: cliauth.NewStateService(cliauth.StateDeps{States: m.AuthStates()}),
		Providers: oauth.NewRegistry(google, github),
		Provisioning: cliauth.NewProvisioningService(cliauth.ProvisioningDeps{
			Users:         m.Users(),
			Organizations: m.Organizations(),
			Roles:         m.Roles(),
			Memberships:   m.Memberships(),
		}),
		Sessions: sessions,
		BaseURL:  "https://api.gatekit.test/",
		Notifier: notifier,
	})
	return &loginFixture{svc: svc, sessions: sessions, store: m, notifier: notifier}
}

func TestInitiate_WithHintReturnsProviderURL(t *testing.T) {
	t.Parallel()
	f := newLoginFixture(t)

	res, err := f.svc.Initiate(context.Background(), "http://127.0.0.1:8976/callback", "google")
	require.NoError(t, err)
	require.Equal(t, "google", res.Provider)
	require.NotEmpty(t, res.State)
	require.Contains(t, res.AuthURL, "https://idp.test/google/authorize")
	require.Contains(t, res.AuthURL, res.State)
	// la redirect URI lleva el provider en el path
	require.Contains(t, res.AuthURL, "https://api.gatekit.test/cli/login/callback/google")
}

func TestInitiate_WithoutHintReturnsSelectionPage(t *testing.T) {
	t.Parallel()
	f := newLoginFixture(t)

	res, err := f.svc.Initiate(context.Background(), "http://127.0.0.1:8976/callback", "")
	require.NoError(t, err)
	require.Empty(t, res.Provider)
	require.True(t, strings.HasPrefix(res.AuthURL, "https://api.gatekit.test/cli/login/select?state="), res.AuthURL)
}

func TestInitiate_UnknownHintFailsWithoutPersisting(t *testing.T) {
	t.Parallel()
	f := newLoginFixture(t)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, "http://127.0.0.1:8976/callback", "gitlab")
	require.ErrorIs(t, err, oauth.ErrUnknownProvider)

	// nada quedó persistido: el sweep no encuentra registros
	n, err := f.store.AuthStates().DeleteExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestComplete_HappyPath(t *testing.T) {
	t.Parallel()
	f := newLoginFixture(t)
	ctx := context.Background()

	init, err := f.svc.Initiate(ctx, "http://127.0.0.1:8976/callback", "google")
	require.NoError(t, err)

	res, err := f.svc.Complete(ctx, init.State, "code-ok", "google")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", res.Email)
	require.NotEmpty(t, res.SessionToken)
	require.NotEmpty(t, res.OrganizationID)

	// la sesión emitida usa el token pre-acuñado y ya valida
	v, err := f.sessions.Validate(ctx, res.SessionToken)
	require.NoError(t, err)
	require.Equal(t, res.UserID, v.UserID)
	require.Equal(t, res.OrganizationID, v.OrganizationID)

	// el workspace personal se nombró a partir de la identidad
	org, err := f.store.Organizations().GetByID(ctx, res.OrganizationID)
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace's Workspace", org.Name)
	require.True(t, org.IsPersonalWorkspace)

	require.Equal(t, []string{"ada@example.com"}, f.notifier.emails)
}

func TestComplete_SecondAttemptSameStateFails(t *testing.T) {
	t.Parallel()
	f := newLoginFixture(t)
	ctx := context.Background()

	init, err := f.svc.Initiate(ctx, "http://127.0.0.1:8976/callback", "google")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, init.State, "code-ok", "google")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, init.State, "code-ok", "google")
	require.ErrorIs(t, err, cliauth.ErrInvalidState)
}

func TestComplete_UnknownState(t *testing.T) {
	t.Parallel()
	f := newLoginFixture(t)

	_, err := f.svc.Complete(context.Background(), "state-inventado", "code-ok", "google")
	require.ErrorIs(t, err, cliauth.ErrInvalidState)
}

func TestComplete_BadCodeCreatesNothing(t *testing.T) {
	t.Parallel()
	f := newLoginFixture(t)
	ctx := context.Background()

	init, err := f.svc.Initiate(ctx, "http://127.0.0.1:8976/callback", "google")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, init.State, "code-malo", "google")
	require.ErrorIs(t, err, oauth.ErrExchangeFailed)

	// ni usuario ni sesión quedaron creados
	_, err = f.store.Users().GetByEmail(ctx, "ada@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.Empty(t, f.notifier.emails)

	// el state se quemó con el intento: los códigos son de un solo uso en
	// el provider, así que no hay retry posible
	_, err = f.svc.Complete(ctx, init.State, "code-ok", "google")
	require.ErrorIs(t, err, cliauth.ErrInvalidState)
}

func TestComplete_UnknownProviderBurnsState(t *testing.T) {
	t.Parallel()
	f := newLoginFixture(t)
	ctx := context.Background()

	init, err := f.svc.Initiate(ctx, "http://127.0.0.1:8976/callback", "")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, init.State, "code-ok", "gitlab")
	require.ErrorIs(t, err, oauth.ErrUnknownProvider)

	_, err = f.svc.Complete(ctx, init.State, "code-ok", "google")
	require.ErrorIs(t, err, cliauth.ErrInvalidState)
}
