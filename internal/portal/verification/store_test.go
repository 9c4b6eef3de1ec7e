package verification

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdg-portal/internal/pkg/metrics"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, metrics.NewPortalMetricsWithRegistry("test", prometheus.NewRegistry())).
		WithClock(clock.Now)

	f := NewFlow(KindSignUp, clock.Now())
	f.Identifier = "441234567"
	require.NoError(t, store.Save(ctx, f))

	got, err := store.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "441234567", got.Identifier)

	// 返回副本，修改不影响存储
	got.Identifier = "changed"
	again, err := store.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "441234567", again.Identifier)

	clock.Advance(time.Minute)
	_, err = store.Get(ctx, f.ID)
	assert.ErrorIs(t, err, ErrFlowNotFound)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, metrics.NewPortalMetricsWithRegistry("test", prometheus.NewRegistry())).
		WithClock(clock.Now)

	old := NewFlow(KindSignUp, clock.Now())
	require.NoError(t, store.Save(ctx, old))
	clock.Advance(45 * time.Second)
	fresh := NewFlow(KindSecondFactor, clock.Now())
	require.NoError(t, store.Save(ctx, fresh))

	clock.Advance(20 * time.Second)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestFlowCodec(t *testing.T) {
	clock := newFakeClock()
	f := NewFlow(KindPasswordReset, clock.Now())
	f.State = StateAwaitingCode
	f.Email = "441234567@qu.edu.sa"
	f.CooldownUntil = clock.Now().Add(DefaultCooldown)
	f.RedirectURL = "https://gdg-q.com/events"

	raw, err := encodeFlow(f)
	require.NoError(t, err)
	got, err := decodeFlow(raw)
	require.NoError(t, err)

	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, f.State, got.State)
	assert.True(t, f.CooldownUntil.Equal(got.CooldownUntil))
	assert.Equal(t, f.RedirectURL, got.RedirectURL)

	_, err = decodeFlow([]byte(`{}`))
	assert.ErrorIs(t, err, ErrFlowNotFound)
	_, err = decodeFlow([]byte(`not json`))
	assert.Error(t, err)
}

func TestGuard(t *testing.T) {
	g := NewGuard()

	release, err := g.Acquire("flow-1")
	require.NoError(t, err)

	_, err = g.Acquire("flow-1")
	require.Error(t, err)

	other, err := g.Acquire("flow-2")
	require.NoError(t, err)
	assert.Equal(t, 2, g.InFlight())

	release()
	release()
	other()
	assert.Zero(t, g.InFlight())

	_, err = g.Acquire("flow-1")
	assert.NoError(t, err)
}
