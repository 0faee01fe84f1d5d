package cliauth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/gatekit/internal/http/services/cliauth"
	"github.com/dropDatabas3/gatekit/internal/store/memory"
)

func TestStateCreate_MintsIndependentSecrets(t *testing.T) {
	t.Parallel()
	m := memory.New()
	svc := cliauth.NewStateService(cliauth.StateDeps{States: m.AuthStates(), TTL: 10 * time.Minute})
	ctx := context.Background()

	st, err := svc.Create(ctx, "http://127.0.0.1:8976/callback", "google")
	require.NoError(t, err)
	require.NotEmpty(t, st.State)
	require.NotEmpty(t, st.PendingSessionToken)
	require.NotEqual(t, st.State, st.PendingSessionToken)
	require.Equal(t, "http://127.0.0.1:8976/callback", st.CallbackURL)
	require.Equal(t, "google", st.ProviderHint)
	require.WithinDuration(t, time.Now().Add(10*time.Minute), st.ExpiresAt, 5*time.Second)
}

func TestStateService_ZeroTTLUsesDefault(t *testing.T) {
	t.Parallel()
	m := memory.New()
	svc := cliauth.NewStateService(cliauth.StateDeps{States: m.AuthStates()})
	ctx := context.Background()

	st, err := svc.Create(ctx, "http://127.0.0.1:8976/callback", "")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(cliauth.DefaultStateTTL), st.ExpiresAt, 5*time.Second)
}

func TestStatePeek_DoesNotConsume(t *testing.T) {
	t.Parallel()
	m := memory.New()
	svc := cliauth.NewStateService(cliauth.StateDeps{States: m.AuthStates()})
	ctx := context.Background()

	st, err := svc.Create(ctx, "http://127.0.0.1:8976/callback", "")
	require.NoError(t, err)

	// peek repetido no gasta el registro
	for i := 0; i < 3; i++ {
		got, err := svc.Peek(ctx, st.State)
		require.NoError(t, err)
		require.Equal(t, st.PendingSessionToken, got.PendingSessionToken)
	}

	_, err = svc.Consume(ctx, st.State)
	require.NoError(t, err)
}

func TestStateConsume_SecondCallerLoses(t *testing.T) {
	t.Parallel()
	m := memory.New()
	svc := cliauth.NewStateService(cliauth.StateDeps{States: m.AuthStates()})
	ctx := context.Background()

	st, err := svc.Create(ctx, "http://127.0.0.1:8976/callback", "")
	require.NoError(t, err)

	_, err = svc.Consume(ctx, st.State)
	require.NoError(t, err)

	_, err = svc.Consume(ctx, st.State)
	require.ErrorIs(t, err, cliauth.ErrInvalidState)

	// tras el consume, peek tampoco lo ve
	_, err = svc.Peek(ctx, st.State)
	require.ErrorIs(t, err, cliauth.ErrInvalidState)
}

func TestStateConsume_UnknownAndExpired(t *testing.T) {
	t.Parallel()
	m := memory.New()
	ctx := context.Background()

	svc := cliauth.NewStateService(cliauth.StateDeps{States: m.AuthStates(), TTL: -time.Minute})
	st, err := svc.Create(ctx, "http://127.0.0.1:8976/callback", "")
	require.NoError(t, err)

	// el caller recibe el mismo error para vencido y desconocido
	_, err = svc.Consume(ctx, st.State)
	require.ErrorIs(t, err, cliauth.ErrInvalidState)

	_, err = svc.Consume(ctx, "inexistente")
	require.ErrorIs(t, err, cliauth.ErrInvalidState)
}
