package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gdg-portal/internal/middleware"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/response"
	"gdg-portal/internal/portal/gate"
	"gdg-portal/internal/portal/session"
)

// ProfileView 个人主页模型
type ProfileView struct {
	UserID             string         `json:"user_id"`
	Email              string         `json:"email"`
	OnboardingComplete bool           `json:"onboarding_complete"`
	Claims             map[string]any `json:"claims"`
}

// Profile 个人主页
// @Summary 个人主页
// @Tags 个人主页
// @Produce json
// @Success 200 {object} response.ResponseResult[ProfileView]
// @Router /user-profile [get]
func (h *Handler) Profile(c echo.Context) error {
	current := middleware.CurrentSession(c)
	return response.EchoOK(c, h.respWriter, ProfileView{
		UserID:             current.UserID,
		Email:              current.Email,
		OnboardingComplete: current.OnboardingComplete,
		Claims:             current.Claims,
	})
}

// SignOut 注销会话并回到登录页。身份服务注销失败也会清除本地状态。
// @Summary 退出登录
// @Tags 个人主页
// @Success 303 "跳转登录页"
// @Router /user-profile [post]
// @Router /onboarding/sign-out [post]
func (h *Handler) SignOut(c echo.Context) error {
	ctx := c.Request().Context()
	token := middleware.SessionToken(c)

	if token != "" {
		if err := h.provider.RevokeSession(ctx, token); err != nil {
			h.logger.WarnContext(ctx, "注销身份服务会话失败", log.Err(err))
		}
		h.sessions.Invalidate(ctx, token, "sign_out")
	}

	h.clearCookie(c, session.CookieName)
	h.clearCookie(c, FlowCookieName)
	middleware.SetCurrentSession(c, session.Anonymous)
	return c.Redirect(http.StatusSeeOther, gate.SignInPath)
}
