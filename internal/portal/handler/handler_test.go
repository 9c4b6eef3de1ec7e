package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdg-portal/internal/middleware"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
	"gdg-portal/internal/pkg/response"
	"gdg-portal/internal/pkg/sessioncache"
	"gdg-portal/internal/pkg/validator"
	"gdg-portal/internal/portal/identity"
	"gdg-portal/internal/portal/identity/identitytest"
	"gdg-portal/internal/portal/members"
	"gdg-portal/internal/portal/onboarding"
	"gdg-portal/internal/portal/redirect"
	"gdg-portal/internal/portal/session"
	"gdg-portal/internal/portal/verification"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubRegistrar struct {
	mu    sync.Mutex
	calls int
}

func (r *stubRegistrar) CreateMember(context.Context, string) (*members.CreateMemberResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return &members.CreateMemberResponse{Member: members.Member{ID: int64(r.calls)}}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

type portal struct {
	e         *echo.Echo
	fake      *identitytest.Provider
	clock     *fakeClock
	flows     *verification.MemoryStore
	registrar *stubRegistrar
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	fake := identitytest.New()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	pm := metrics.NewPortalMetricsWithRegistry("test", prometheus.NewRegistry())
	sm := metrics.NewSessionMetricsWithRegistry("test", prometheus.NewRegistry())
	logger := log.Discard()
	respWriter := response.NewResponseHandler(logger)
	allowlist := redirect.NewAllowlist(redirect.DefaultDomains...)
	v := validator.New("qu.edu.sa")

	reader := session.NewReader(fake, sessioncache.New(time.Minute, sm, logger), sm, logger)
	flows := verification.NewMemoryStore(time.Hour, pm)
	registrar := &stubRegistrar{}

	h := New(Deps{
		Provider: fake,
		Sessions: reader,
		Onboarding: onboarding.NewService(onboarding.Deps{
			Provider:  fake,
			Sessions:  reader,
			Registrar: registrar,
			Publisher: nopPublisher{},
			Allowlist: allowlist,
			Validator: v,
			Metrics:   pm,
			Logger:    logger,
		}),
		Machine:    verification.NewMachine(time.Minute, pm, logger).WithClock(clock.Now),
		Flows:      flows,
		Allowlist:  allowlist,
		Validator:  v,
		RespWriter: respWriter,
		Logger:     logger,
	})

	e := echo.New()
	e.Validator = v
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(respWriter, logger, pm)
	e.Use(middleware.GateMiddleware(middleware.GateConfig{
		Sessions:  reader,
		Allowlist: allowlist,
		Metrics:   pm,
		Logger:    logger,
	}))
	h.Register(e)

	return &portal{e: e, fake: fake, clock: clock, flows: flows, registrar: registrar}
}

// browser 保存 Cookie 的测试客户端
type browser struct {
	p       *portal
	cookies map[string]string
}

func (p *portal) browser() *browser {
	return &browser{p: p, cookies: map[string]string{}}
}

func (b *browser) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	rec := httptest.NewRecorder()
	b.p.e.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(b.cookies, cookie.Name)
			continue
		}
		b.cookies[cookie.Name] = cookie.Value
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, "")
}

func (b *browser) post(target, body string) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, target, body)
}

func location(rec *httptest.ResponseRecorder) string {
	return rec.Header().Get(echo.HeaderLocation)
}

const onboardingBody = `{"full_arabic_name":"محمد عبدالله","saudi_phone":"0512345678","gender":"Male",` +
	`"personal_email":"mohammed@gmail.com","uni_level":3,"uni_college":"كلية الحاسب"}`

func TestSignUpToProfile(t *testing.T) {
	p := newPortal(t)
	b := p.browser()

	rec := b.post("/sign-up?redirect_url="+url.QueryEscape("https://event.gdg-q.com/e/1"),
		`{"university_id":"441000001","password":"password1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"state":"awaiting_code"`)
	assert.Contains(t, rec.Body.String(), `"cooldown_remaining":60`)
	require.NotEmpty(t, b.cookies[FlowCookieName])

	// 错误验证码：停留在 awaiting_code，输入被清空并标记字段
	rec = b.post("/sign-up/verify", `{"code":"000000"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"code"`)

	rec = b.get("/sign-up")
	assert.Contains(t, rec.Body.String(), `"state":"awaiting_code"`)
	assert.Contains(t, rec.Body.String(), `"code_error":true`)

	rec = b.get("/sign-up/tasks")
	assert.Contains(t, rec.Body.String(), `"tasks":["verify_email"]`)

	rec = b.post("/sign-up/verify", `{"code":"`+identitytest.DefaultCode+`"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/onboarding?redirect_url="+url.QueryEscape("https://event.gdg-q.com/e/1"), location(rec))
	assert.NotEmpty(t, b.cookies[session.CookieName])
	assert.Empty(t, b.cookies[FlowCookieName])

	// 未完成引导不能进入个人主页
	rec = b.get("/user-profile")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/onboarding", location(rec))

	rec = b.post("/onboarding?redirect_url="+url.QueryEscape("https://event.gdg-q.com/e/1"), onboardingBody)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "https://event.gdg-q.com/e/1", location(rec))
	assert.Equal(t, 1, p.registrar.calls)

	acc, ok := p.fake.Account("441000001@qu.edu.sa")
	require.True(t, ok)
	assert.Equal(t, true, acc.Metadata[identity.ClaimOnboardingComplete])
	assert.Equal(t, "441000001", acc.Metadata[identity.ClaimUniversityID])

	// 刷新后的声明立即生效
	rec = b.get("/user-profile")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"onboarding_complete":true`)

	rec = b.get("/")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/user-profile", location(rec))
}

func TestSignUp_InvalidInput(t *testing.T) {
	p := newPortal(t)
	b := p.browser()

	tests := []struct {
		name string
		body string
	}{
		{"学号不是 9 位", `{"university_id":"4410","password":"password1"}`},
		{"密码过短", `{"university_id":"441000001","password":"short"}`},
		{"缺少密码", `{"university_id":"441000001"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := b.post("/sign-up", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Zero(t, p.fake.SendCount)
}

func TestSignInWithSecondFactor(t *testing.T) {
	p := newPortal(t)
	p.fake.RequireSecondFactor = true
	done := p.fake.AddAccount("441000002@qu.edu.sa", "441000002", "password1")
	done.Metadata[identity.ClaimOnboardingComplete] = true
	b := p.browser()

	rec := b.post("/sign-in", `{"identifier":"441000002","password":"password1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"kind":"second_factor"`)
	assert.Contains(t, rec.Body.String(), `"state":"awaiting_code"`)
	assert.Empty(t, b.cookies[session.CookieName])

	rec = b.post("/sign-in/verify", `{"code":"111111"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"code"`)

	flow, err := p.flows.Get(context.Background(), b.cookies[FlowCookieName])
	require.NoError(t, err)
	assert.Equal(t, verification.StateAwaitingCode, flow.State)
	assert.True(t, flow.CodeError)
	assert.Empty(t, flow.Code)

	rec = b.post("/sign-in/verify", `{"code":"123-456"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/user-profile", location(rec))

	rec = b.get("/user-profile")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignIn_Errors(t *testing.T) {
	p := newPortal(t)
	p.fake.AddAccount("441000003@qu.edu.sa", "441000003", "password1")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"账号不存在", `{"identifier":"441999999","password":"password1"}`, http.StatusNotFound, `"field":"identifier"`},
		{"密码错误", `{"identifier":"441000003@qu.edu.sa","password":"wrong"}`, http.StatusUnauthorized, `"code":200004`},
		{"标识格式错误", `{"identifier":"someone@gmail.com","password":"password1"}`, http.StatusBadRequest, `"field":"identifier"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := p.browser().post("/sign-in", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestSignIn_CompleteFollowsAllowlistedRedirect(t *testing.T) {
	p := newPortal(t)
	p.fake.AddAccount("441000004@qu.edu.sa", "441000004", "password1")

	rec := p.browser().post("/sign-in",
		`{"identifier":"441000004","password":"password1","redirect_url":"https://gdg-q.com/events"}`)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://gdg-q.com/events", location(rec))

	rec = p.browser().post("/sign-in",
		`{"identifier":"441000004","password":"password1","redirect_url":"https://evil.com"}`)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/user-profile", location(rec))
}

func TestResendCooldown(t *testing.T) {
	p := newPortal(t)
	p.fake.RequireSecondFactor = true
	p.fake.AddAccount("441000005@qu.edu.sa", "441000005", "password1")
	b := p.browser()

	rec := b.post("/sign-in", `{"identifier":"441000005","password":"password1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sent := p.fake.SendCount

	p.clock.Advance(20 * time.Second)
	rec = b.post("/sign-in/resend", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"can_resend":false`)
	assert.Contains(t, rec.Body.String(), `"cooldown_remaining":40`)
	assert.NotContains(t, rec.Body.String(), `"resent":true`)
	assert.Equal(t, sent, p.fake.SendCount)

	p.clock.Advance(40 * time.Second)
	rec = b.post("/sign-in/resend", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"resent":true`)
	assert.Contains(t, rec.Body.String(), `"cooldown_remaining":60`)
	assert.Equal(t, sent+1, p.fake.SendCount)
}

func TestForgotPassword(t *testing.T) {
	p := newPortal(t)
	p.fake.AddAccount("441000006@qu.edu.sa", "441000006", "password1")
	b := p.browser()

	rec := b.post("/forgot-password", `{"university_id":"441999999"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":200009`)
	assert.Empty(t, b.cookies[FlowCookieName])

	rec = b.post("/forgot-password", `{"university_id":"441000006"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// 长度不足在本地拒绝
	rec = b.post("/forgot-password/code", `{"code":"123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.post("/forgot-password/code", `{"code":"654321"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"awaiting_password"`)

	// 验证码错误：回到输入验证码步骤
	rec = b.post("/forgot-password/reset", `{"password":"newpassword"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = b.get("/forgot-password")
	assert.Contains(t, rec.Body.String(), `"state":"awaiting_code"`)
	assert.Contains(t, rec.Body.String(), `"code_error":true`)

	rec = b.post("/forgot-password/code", `{"code":"`+identitytest.DefaultCode+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = b.post("/forgot-password/reset", `{"password":"newpassword"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/user-profile", location(rec))

	acc, _ := p.fake.Account("441000006@qu.edu.sa")
	assert.Equal(t, "newpassword", acc.Password)
}

func TestForgotPassword_Back(t *testing.T) {
	p := newPortal(t)
	p.fake.AddAccount("441000007@qu.edu.sa", "441000007", "password1")
	b := p.browser()

	require.Equal(t, http.StatusOK, b.post("/forgot-password", `{"university_id":"441000007"}`).Code)
	require.Equal(t, http.StatusOK, b.post("/forgot-password/code", `{"code":"123456"}`).Code)

	rec := b.post("/forgot-password/back", "")
	assert.Contains(t, rec.Body.String(), `"state":"awaiting_code"`)
	rec = b.post("/forgot-password/back", "")
	assert.Contains(t, rec.Body.String(), `"state":"collecting_identifier"`)
}

func TestMissingFlowIsSessionMissing(t *testing.T) {
	p := newPortal(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"注册验证", http.MethodPost, "/sign-up/verify", `{"code":"123456"}`},
		{"二次验证", http.MethodPost, "/sign-in/verify", `{"code":"123456"}`},
		{"重置重发", http.MethodPost, "/forgot-password/resend", ""},
		{"注册待办", http.MethodGet, "/sign-up/tasks", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := p.browser()
			b.cookies[FlowCookieName] = uuid.NewString()
			rec := b.do(tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusGone, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":200008`)
		})
	}
}

func TestAuthPagesSelfRedirect(t *testing.T) {
	p := newPortal(t)
	p.fake.AddAccount("441000008@qu.edu.sa", "441000008", "password1")
	b := p.browser()
	b.cookies[session.CookieName] = p.fake.SignInAs("441000008@qu.edu.sa")

	for _, target := range []string{"/sign-in", "/sign-up", "/forgot-password"} {
		rec := b.get(target)
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code, target)
		assert.Equal(t, "/onboarding", location(rec), target)
	}

	rec := p.browser().get("/sign-in")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignOut(t *testing.T) {
	p := newPortal(t)
	acc := p.fake.AddAccount("441000009@qu.edu.sa", "441000009", "password1")
	acc.Metadata[identity.ClaimOnboardingComplete] = true
	b := p.browser()
	b.cookies[session.CookieName] = p.fake.SignInAs("441000009@qu.edu.sa")

	require.Equal(t, http.StatusOK, b.get("/user-profile").Code)

	rec := b.post("/user-profile", "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sign-in", location(rec))
	assert.Empty(t, b.cookies[session.CookieName])

	rec = b.get("/user-profile")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/sign-up", location(rec))
}

func TestSignOut_BeforeOnboarding(t *testing.T) {
	p := newPortal(t)
	p.fake.AddAccount("441000011@qu.edu.sa", "441000011", "password1")
	b := p.browser()
	token := p.fake.SignInAs("441000011@qu.edu.sa")
	b.cookies[session.CookieName] = token

	// 个人主页仍只对完成引导的用户开放
	rec := b.post("/user-profile", "")
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/onboarding", location(rec))
	assert.Equal(t, token, b.cookies[session.CookieName])

	rec = b.post("/onboarding/sign-out", "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sign-in", location(rec))
	assert.Empty(t, b.cookies[session.CookieName])

	_, err := p.fake.GetSession(context.Background(), token)
	assert.Error(t, err)

	rec = b.get("/onboarding")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/sign-up", location(rec))
}

func TestSignOut_AnonymousOnboardingSignOut(t *testing.T) {
	p := newPortal(t)
	rec := p.browser().post("/onboarding/sign-out", "")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/sign-up", location(rec))
}

func TestOnboardingPage(t *testing.T) {
	p := newPortal(t)
	p.fake.AddAccount("441000010@qu.edu.sa", "441000010", "password1")
	b := p.browser()
	b.cookies[session.CookieName] = p.fake.SignInAs("441000010@qu.edu.sa")

	rec := b.get("/onboarding?redirect_url=" + url.QueryEscape("https://evil.com/x"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), onboarding.Colleges[0])
	assert.NotContains(t, rec.Body.String(), "evil.com")

	rec = b.post("/onboarding", `{"full_arabic_name":"Mohammed","saudi_phone":"12345"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"full_arabic_name"`)
	assert.Contains(t, rec.Body.String(), `"field":"saudi_phone"`)
	assert.Zero(t, p.fake.MetadataCalls)
}

func TestOpsHandler_Ready(t *testing.T) {
	e := echo.New()
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return assert.AnError }

	tests := []struct {
		name       string
		checks     map[string]ReadyCheck
		wantStatus int
	}{
		{"全部就绪", map[string]ReadyCheck{"kratos": ok, "redis": ok}, http.StatusOK},
		{"身份服务不可用", map[string]ReadyCheck{"kratos": down, "redis": ok}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOpsHandler(tt.checks, response.NewResponseHandler(log.Discard()), log.Discard())
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ready", nil), rec)
			require.NoError(t, h.Ready(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
