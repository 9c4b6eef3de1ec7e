package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"gdg-portal/internal/pkg/ctxkey"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
	"gdg-portal/internal/portal/gate"
	"gdg-portal/internal/portal/redirect"
	"gdg-portal/internal/portal/session"
)

// HeaderSessionToken 原生客户端可以用请求头代替 Cookie 携带会话
const HeaderSessionToken = "X-Session-Token"

// GateConfig 门禁中间件配置
type GateConfig struct {
	Skipper   middleware.Skipper
	Sessions  *session.Reader
	Allowlist *redirect.Allowlist
	Metrics   *metrics.PortalMetrics
	Logger    log.Logger
}

// SessionToken 从 Cookie 或请求头读取会话令牌
func SessionToken(c echo.Context) string {
	if cookie, err := c.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return c.Request().Header.Get(HeaderSessionToken)
}

// CurrentSession 读取门禁放入 context 的会话投影
func CurrentSession(c echo.Context) session.State {
	if s, ok := c.Get(string(ctxkey.Session)).(session.State); ok {
		return s
	}
	if s, ok := session.FromContext(c.Request().Context()); ok {
		return s
	}
	return session.Anonymous
}

// SetCurrentSession 更新 context 中的会话投影（登录、引导、登出后）
func SetCurrentSession(c echo.Context, s session.State) {
	c.Set(string(ctxkey.Session), s)
	c.SetRequest(c.Request().WithContext(session.WithState(c.Request().Context(), s)))
}

// GateMiddleware 门禁：每次导航读取会话投影，放行或 307 重定向。
// 门禁自身从不失败，读取会话出错时按未登录处理。
func GateMiddleware(cfg GateConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = OpsSkipper
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultPortalMetrics
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger()
	}
	if cfg.Allowlist == nil {
		cfg.Allowlist = redirect.NewAllowlist(redirect.DefaultDomains...)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) || c.Request().Method == http.MethodOptions {
				return next(c)
			}

			ctx := c.Request().Context()
			state, err := cfg.Sessions.Current(ctx, SessionToken(c))
			if err != nil {
				cfg.Logger.WarnContext(ctx, "门禁读取会话失败，按未登录处理", log.Err(err))
				state = session.Anonymous
			}
			SetCurrentSession(c, state)

			path := c.Request().URL.Path
			outcome := gate.Decide(path, state.Gate())
			cfg.Metrics.RecordGateDecision(gate.Classify(path).String(), outcome.String())

			if !outcome.IsRedirect() {
				return next(c)
			}

			target := RedirectTarget(outcome, cfg.Allowlist.Sanitize(c.QueryParam(redirect.QueryParam)))
			cfg.Logger.DebugContext(ctx, "门禁重定向",
				log.String("path", path),
				log.String("outcome", outcome.String()))
			return c.Redirect(http.StatusTemporaryRedirect, target)
		}
	}
}

// RedirectTarget 重定向地址；去往认证与引导页时继续携带已校验的 redirect_url
func RedirectTarget(outcome gate.Outcome, redirectURL string) string {
	target := outcome.Target()
	if redirectURL == "" {
		return target
	}
	switch outcome {
	case gate.RedirectSignUp, gate.RedirectSignIn, gate.RedirectOnboarding:
		return target + "?" + url.Values{redirect.QueryParam: {redirectURL}}.Encode()
	default:
		return target
	}
}
