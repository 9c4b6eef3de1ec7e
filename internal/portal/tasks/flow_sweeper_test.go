package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
	"gdg-portal/internal/pkg/sessioncache"
	"gdg-portal/internal/portal/verification"
)

func TestSweepTask_Run(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	pm := metrics.NewPortalMetricsWithRegistry("test", prometheus.NewRegistry())
	sm := metrics.NewSessionMetricsWithRegistry("test", prometheus.NewRegistry())
	flows := verification.NewMemoryStore(time.Minute, pm).WithClock(clock)
	cache := sessioncache.New(time.Minute, sm, log.Discard()).WithClock(clock)

	ctx := context.Background()
	require.NoError(t, flows.Save(ctx, verification.NewFlow(verification.KindSignUp, now)))
	require.NoError(t, flows.Save(ctx, verification.NewFlow(verification.KindPasswordReset, now)))
	cache.Set(ctx, sessioncache.Session{SessionToken: "token-1", UserID: "identity-1"})

	task := NewSweepTask(flows, cache, "", log.Discard())

	task.Run()
	assert.Equal(t, 2, flows.Len())
	assert.Equal(t, 1, cache.Len())

	now = now.Add(2 * time.Minute)
	task.Run()
	assert.Zero(t, flows.Len())
	assert.Zero(t, cache.Len())
}

func TestSweepTask_StartRejectsBadSchedule(t *testing.T) {
	task := NewSweepTask(nil, nil, "not a schedule", log.Discard())
	assert.Error(t, task.Start())

	task = NewSweepTask(nil, nil, DefaultSchedule, log.Discard())
	require.NoError(t, task.Start())
	task.Stop()
}
