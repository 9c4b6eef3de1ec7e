package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
	"gdg-portal/internal/pkg/sessioncache"
	"gdg-portal/internal/portal/identity"
	"gdg-portal/internal/portal/identity/identitytest"
)

type countingProvider struct {
	*identitytest.Provider
	calls int
	err   error
}

func (p *countingProvider) GetSession(ctx context.Context, token string) (*identity.Session, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.Provider.GetSession(ctx, token)
}

func newTestReader(p identity.Provider) *Reader {
	m := metrics.NewSessionMetricsWithRegistry("test", prometheus.NewRegistry())
	cache := sessioncache.New(time.Minute, m, log.Discard())
	return NewReader(p, cache, m, log.Discard())
}

func TestReader_Current(t *testing.T) {
	fake := identitytest.New()
	fake.AddAccount("441234567@qu.edu.sa", "441234567", "password1")
	token := fake.SignInAs("441234567@qu.edu.sa")
	p := &countingProvider{Provider: fake}
	r := newTestReader(p)

	t.Run("空令牌_匿名", func(t *testing.T) {
		s, err := r.Current(context.Background(), "")
		require.NoError(t, err)
		assert.False(t, s.IsAuthenticated())
	})

	t.Run("失效令牌_匿名且无错误", func(t *testing.T) {
		s, err := r.Current(context.Background(), "unknown")
		require.NoError(t, err)
		assert.Equal(t, Anonymous.UserID, s.UserID)
	})

	t.Run("有效令牌_命中缓存", func(t *testing.T) {
		p.calls = 0
		s, err := r.Current(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, s.IsAuthenticated())
		assert.False(t, s.OnboardingComplete)

		_, err = r.Current(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, 1, p.calls)
	})
}

func TestReader_RefreshSeesNewClaims(t *testing.T) {
	fake := identitytest.New()
	acc := fake.AddAccount("441234567@qu.edu.sa", "441234567", "password1")
	token := fake.SignInAs("441234567@qu.edu.sa")
	r := newTestReader(fake)

	before, err := r.Current(context.Background(), token)
	require.NoError(t, err)
	require.False(t, before.OnboardingComplete)

	require.NoError(t, fake.UpdateUserMetadata(context.Background(), acc.IdentityID,
		map[string]any{identity.ClaimOnboardingComplete: true}))

	stale, err := r.Current(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, stale.OnboardingComplete, "缓存未失效前仍是旧声明")

	fresh, err := r.Refresh(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, fresh.OnboardingComplete)
	assert.Equal(t, true, fresh.Claims[identity.ClaimOnboardingComplete])
}

func TestReader_ProviderFailure(t *testing.T) {
	p := &countingProvider{Provider: identitytest.New(), err: errors.New("dial tcp: connection refused")}
	r := newTestReader(p)

	s, err := r.Current(context.Background(), "some-token")
	assert.Error(t, err)
	assert.False(t, s.IsAuthenticated())
}

func TestStateContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithState(context.Background(), State{UserID: "identity-1", OnboardingComplete: true})
	s, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "identity-1", s.Gate().UserID)
	assert.True(t, s.Gate().OnboardingComplete)
}
