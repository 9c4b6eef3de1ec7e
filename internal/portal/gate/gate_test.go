package gate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	anonymous  = Session{}
	signedUp   = Session{UserID: "user_1"}
	onboarded  = Session{UserID: "user_1", OnboardingComplete: true}
	// 未登录但带有完成标记（非法组合）仍按未登录处理
	staleClaim = Session{OnboardingComplete: true}
)

// TestDecide_Exhaustive 覆盖全部路由类别与四种会话组合
func TestDecide_Exhaustive(t *testing.T) {
	sessions := []struct {
		name    string
		session Session
	}{
		{"未登录", anonymous},
		{"未登录_带完成标记", staleClaim},
		{"已登录_未引导", signedUp},
		{"已登录_已引导", onboarded},
	}

	routes := []struct {
		path string
		want [4]Outcome // 顺序与 sessions 一致
	}{
		{"/sign-in", [4]Outcome{Allow, Allow, Allow, Allow}},
		{"/sign-in/factor-two", [4]Outcome{Allow, Allow, Allow, Allow}},
		{"/sign-up", [4]Outcome{Allow, Allow, Allow, Allow}},
		{"/sign-up/tasks", [4]Outcome{Allow, Allow, Allow, Allow}},
		{"/sign-up/verify", [4]Outcome{Allow, Allow, Allow, Allow}},
		{"/forgot-password", [4]Outcome{Allow, Allow, Allow, Allow}},
		{"/forgot-password/reset", [4]Outcome{Allow, Allow, Allow, Allow}},
		{"/onboarding", [4]Outcome{RedirectSignUp, RedirectSignUp, Allow, Allow}},
		{"/onboarding/sign-out", [4]Outcome{RedirectSignUp, RedirectSignUp, Allow, Allow}},
		{"/user-profile", [4]Outcome{RedirectSignUp, RedirectSignUp, RedirectOnboarding, Allow}},
		{"/", [4]Outcome{RedirectSignUp, RedirectSignUp, RedirectOnboarding, RedirectProfile}},
		{"/events", [4]Outcome{RedirectSignUp, RedirectSignUp, RedirectOnboarding, RedirectProfile}},
		{"/user-profile/security", [4]Outcome{RedirectSignUp, RedirectSignUp, RedirectOnboarding, RedirectProfile}},
		{"/onboarding/step-2", [4]Outcome{RedirectSignUp, RedirectSignUp, RedirectOnboarding, RedirectProfile}},
		{"/sign-inx", [4]Outcome{RedirectSignUp, RedirectSignUp, RedirectOnboarding, RedirectProfile}},
	}

	for _, route := range routes {
		for i, s := range sessions {
			t.Run(fmt.Sprintf("%s/%s", route.path, s.name), func(t *testing.T) {
				assert.Equal(t, route.want[i], Decide(route.path, s.session))
			})
		}
	}
}

func TestDecide_NeverAllowsUnknownRoutes(t *testing.T) {
	for _, s := range []Session{anonymous, signedUp, onboarded} {
		got := Decide("/definitely-not-a-page", s)
		assert.True(t, got.IsRedirect())
		assert.NotEqual(t, "/definitely-not-a-page", got.Target())
	}
}

func TestClassify_Normalization(t *testing.T) {
	tests := []struct {
		path string
		want RouteClass
	}{
		{"", ClassRoot},
		{"/", ClassRoot},
		{"/user-profile/", ClassProfile},
		{"/onboarding?redirect_url=https://gdg-q.com", ClassOnboarding},
		{"/sign-up//", ClassAuth},
		{"/forgot-password#code", ClassAuth},
		{"/api/members", ClassOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}

func TestOutcome_Target(t *testing.T) {
	assert.Equal(t, "", Allow.Target())
	assert.Equal(t, "/sign-up", RedirectSignUp.Target())
	assert.Equal(t, "/sign-in", RedirectSignIn.Target())
	assert.Equal(t, "/onboarding", RedirectOnboarding.Target())
	assert.Equal(t, "/user-profile", RedirectProfile.Target())
}

func TestSignedInLanding(t *testing.T) {
	assert.Equal(t, Allow, SignedInLanding(anonymous))
	assert.Equal(t, RedirectOnboarding, SignedInLanding(signedUp))
	assert.Equal(t, RedirectProfile, SignedInLanding(onboarded))
}
