// Package handler 门户的 Echo 控制器。
//
// 页面以 JSON 页面模型返回；每个改变状态的步骤都是 POST。
// 流程完成时以 303 跳转到下一页，其余步骤返回最新的流程视图。
package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gdg-portal/internal/middleware"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/response"
	"gdg-portal/internal/pkg/validator"
	"gdg-portal/internal/pkg/xerrors"
	"gdg-portal/internal/portal/gate"
	"gdg-portal/internal/portal/identity"
	"gdg-portal/internal/portal/onboarding"
	"gdg-portal/internal/portal/redirect"
	"gdg-portal/internal/portal/session"
	"gdg-portal/internal/portal/verification"
)

// FlowCookieName 保存进行中验证流程 ID 的 Cookie
const FlowCookieName = "portal_flow"

// Deps 构造参数
type Deps struct {
	Provider   identity.Provider
	Sessions   *session.Reader
	Onboarding *onboarding.Service
	Machine    *verification.Machine
	Flows      verification.Store
	Guard      *verification.Guard
	Allowlist  *redirect.Allowlist
	Validator  *validator.CustomValidator
	RespWriter response.Writer
	Logger     log.Logger

	CookieSecure bool
	FlowTTL      time.Duration
}

// Handler 所有页面与流程端点
type Handler struct {
	provider   identity.Provider
	sessions   *session.Reader
	onboarding *onboarding.Service
	machine    *verification.Machine
	flows      verification.Store
	guard      *verification.Guard
	allowlist  *redirect.Allowlist
	rules      *validator.Rules
	respWriter response.Writer
	logger     log.Logger

	cookieSecure bool
	flowTTL      time.Duration
}

func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = log.GetLogger()
	}
	if d.Guard == nil {
		d.Guard = verification.NewGuard()
	}
	if d.Allowlist == nil {
		d.Allowlist = redirect.NewAllowlist(redirect.DefaultDomains...)
	}
	if d.RespWriter == nil {
		d.RespWriter = response.NewResponseHandler(d.Logger)
	}
	if d.FlowTTL <= 0 {
		d.FlowTTL = 30 * time.Minute
	}
	return &Handler{
		provider:     d.Provider,
		sessions:     d.Sessions,
		onboarding:   d.Onboarding,
		machine:      d.Machine,
		flows:        d.Flows,
		guard:        d.Guard,
		allowlist:    d.Allowlist,
		rules:        d.Validator.Rules(),
		respWriter:   d.RespWriter,
		logger:       d.Logger.With("component", "handler"),
		cookieSecure: d.CookieSecure,
		flowTTL:      d.FlowTTL,
	}
}

// Register 注册门户路由
func (h *Handler) Register(e *echo.Echo) {
	e.GET(gate.SignUpPath, h.SignUpPage)
	e.POST(gate.SignUpPath, h.SignUp)
	e.POST(gate.SignUpPath+"/verify", h.SignUpVerify)
	e.POST(gate.SignUpPath+"/resend", h.SignUpResend)
	e.POST(gate.SignUpPath+"/back", h.SignUpBack)
	e.GET(gate.SignUpTasksPath, h.SignUpTasks)

	e.GET(gate.SignInPath, h.SignInPage)
	e.POST(gate.SignInPath, h.SignIn)
	e.POST(gate.SignInPath+"/verify", h.SignInVerify)
	e.POST(gate.SignInPath+"/resend", h.SignInResend)
	e.POST(gate.SignInPath+"/back", h.SignInBack)

	e.GET(gate.ForgotPasswordPath, h.ForgotPasswordPage)
	e.POST(gate.ForgotPasswordPath, h.ForgotPassword)
	e.POST(gate.ForgotPasswordPath+"/code", h.ForgotPasswordCode)
	e.POST(gate.ForgotPasswordPath+"/reset", h.ForgotPasswordReset)
	e.POST(gate.ForgotPasswordPath+"/resend", h.ForgotPasswordResend)
	e.POST(gate.ForgotPasswordPath+"/back", h.ForgotPasswordBack)

	e.GET(gate.OnboardingPath, h.OnboardingPage)
	e.POST(gate.OnboardingPath, h.SubmitOnboarding)
	e.POST(gate.OnboardingSignOutPath, h.SignOut)

	e.GET(gate.ProfilePath, h.Profile)
	e.POST(gate.ProfilePath, h.SignOut)
}

// selfRedirect 已登录用户打开认证页面时离开，与门禁共用落地策略
func (h *Handler) selfRedirect(c echo.Context) (bool, error) {
	outcome := gate.SignedInLanding(middleware.CurrentSession(c).Gate())
	if !outcome.IsRedirect() {
		return false, nil
	}
	target := middleware.RedirectTarget(outcome, h.redirectParam(c, ""))
	return true, c.Redirect(http.StatusTemporaryRedirect, target)
}

// redirectParam 请求体优先，其次查询参数；不在白名单内的直接丢弃
func (h *Handler) redirectParam(c echo.Context, fromBody string) string {
	if fromBody != "" {
		return h.allowlist.Sanitize(fromBody)
	}
	return h.allowlist.Sanitize(c.QueryParam(redirect.QueryParam))
}

// completeSession 写入会话 Cookie 并刷新缓存中的会话投影
func (h *Handler) completeSession(c echo.Context, token string) {
	h.setCookie(c, session.CookieName, token, 0)
	ctx := c.Request().Context()
	state, err := h.sessions.Refresh(ctx, token)
	if err != nil {
		h.logger.WarnContext(ctx, "会话建立后读取失败", log.Err(err))
		return
	}
	middleware.SetCurrentSession(c, state)
}

func (h *Handler) setCookie(c echo.Context, name, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(c echo.Context, name string) {
	h.setCookie(c, name, "", -1)
}

// bind 绑定并校验请求，返回的错误尚未写出
func (h *Handler) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return xerrors.NewValidationError("request", "请求格式错误")
	}
	return c.Validate(req)
}
