package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	"github.com/dropDatabas3/gatekit/internal/http/services/session"
	tokens "github.com/dropDatabas3/gatekit/internal/security/token"
	"github.com/dropDatabas3/gatekit/internal/store/memory"
)

func newService(t *testing.T, ttl time.Duration) (session.Service, *memory.Mem) {
	t.Helper()
	m := memory.New()
	svc := session.New(session.Deps{
		Sessions:    m.Sessions(),
		Memberships: m.Memberships(),
		Hasher:      tokens.NewHasher("test-pepper"),
		TTL:         ttl,
	})
	return svc, m
}

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()
	svc, m := newService(t, time.Hour)
	ctx := context.Background()

	org, err := m.Organizations().Create(ctx, repository.CreateOrganizationInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	_, err = m.Memberships().Create(ctx, repository.CreateMembershipInput{UserID: "u1", OrganizationID: org.ID, RoleID: "r1"})
	require.NoError(t, err)

	token, sess, err := svc.Issue(ctx, "u1", org.ID, "ada@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "u1", sess.UserID)

	res, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "u1", res.UserID)
	require.Equal(t, "ada@example.com", res.Email)
	require.Equal(t, org.ID, res.OrganizationID)
	require.Len(t, res.Organizations, 1)
	require.Equal(t, "acme", res.Organizations[0].Slug)
}

func TestNew_ZeroTTLUsesDefault(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, 0)
	ctx := context.Background()

	token, sess, err := svc.Issue(ctx, "u1", "o1", "ada@example.com")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(session.DefaultSessionTTL), sess.ExpiresAt, 5*time.Second)

	_, err = svc.Validate(ctx, token)
	require.NoError(t, err)
}

func TestValidate_RejectsUnknownAndEmpty(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, time.Hour)
	ctx := context.Background()

	_, err := svc.Validate(ctx, "")
	require.ErrorIs(t, err, session.ErrInvalidSession)

	_, err = svc.Validate(ctx, "no-existe")
	require.ErrorIs(t, err, session.ErrInvalidSession)
}

func TestValidate_RejectsExpired(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, -time.Minute) // emitida ya vencida
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, "u1", "o1", "ada@example.com")
	require.NoError(t, err)

	_, err = svc.Validate(ctx, token)
	require.ErrorIs(t, err, session.ErrInvalidSession)
}

func TestRefresh_RotatesAndInvalidatesPredecessor(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, time.Hour)
	ctx := context.Background()

	oldToken, _, err := svc.Issue(ctx, "u1", "o1", "ada@example.com")
	require.NoError(t, err)

	newToken, sess, err := svc.Refresh(ctx, oldToken)
	require.NoError(t, err)
	require.NotEqual(t, oldToken, newToken)
	require.Equal(t, "u1", sess.UserID)

	// el token anterior jamás vuelve a validar
	_, err = svc.Validate(ctx, oldToken)
	require.ErrorIs(t, err, session.ErrInvalidSession)

	// ni a refrescar: la carrera de dos CLIs la gana exactamente uno
	_, _, err = svc.Refresh(ctx, oldToken)
	require.ErrorIs(t, err, session.ErrInvalidSession)

	_, err = svc.Validate(ctx, newToken)
	require.NoError(t, err)
}

func TestRefresh_RejectsExpired(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, -time.Minute)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, "u1", "o1", "ada@example.com")
	require.NoError(t, err)

	_, _, err = svc.Refresh(ctx, token)
	require.ErrorIs(t, err, session.ErrInvalidSession)
}

func TestRevoke_Idempotent(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, time.Hour)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, "u1", "o1", "ada@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, token))
	_, err = svc.Validate(ctx, token)
	require.ErrorIs(t, err, session.ErrInvalidSession)

	// revocar de nuevo (o un token desconocido) también es éxito
	require.NoError(t, svc.Revoke(ctx, token))
	require.NoError(t, svc.Revoke(ctx, "nunca-existió"))
}

func TestIssueToken_UsesProvidedToken(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, time.Hour)
	ctx := context.Background()

	_, err := svc.IssueToken(ctx, "token-preacuñado", "u1", "o1", "ada@example.com")
	require.NoError(t, err)

	res, err := svc.Validate(ctx, "token-preacuñado")
	require.NoError(t, err)
	require.Equal(t, "u1", res.UserID)
}
