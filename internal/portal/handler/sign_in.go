package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/response"
	"gdg-portal/internal/pkg/xerrors"
	"gdg-portal/internal/portal/gate"
	"gdg-portal/internal/portal/identity"
	"gdg-portal/internal/portal/verification"
)

// SignInRequest 登录请求，标识可以是 9 位学号或学校邮箱
type SignInRequest struct {
	Identifier  string `json:"identifier" form:"identifier" validate:"required,portal_identifier"`
	Password    string `json:"password" form:"password" validate:"required"`
	RedirectURL string `json:"redirect_url,omitempty" form:"redirect_url"`
}

// SignInPage 登录页
// @Summary 登录页
// @Tags 登录
// @Produce json
// @Param redirect_url query string false "完成后的跳转地址"
// @Success 200 {object} response.ResponseResult[AuthPage]
// @Success 307 "已登录，离开登录页"
// @Router /sign-in [get]
func (h *Handler) SignInPage(c echo.Context) error {
	if redirected, err := h.selfRedirect(c); redirected {
		return err
	}
	page := AuthPage{RedirectURL: h.redirectParam(c, "")}
	if f := h.peekFlow(c, verification.KindSecondFactor); f != nil {
		page.Flow = h.flowView(f)
	}
	return response.EchoOK(c, h.respWriter, page)
}

// SignIn 学号/邮箱 + 密码登录。需要二次验证时发送邮箱验证码并返回流程视图。
// @Summary 登录
// @Tags 登录
// @Accept json
// @Produce json
// @Param request body SignInRequest true "登录请求"
// @Success 200 {object} response.ResponseResult[FlowView] "需要二次验证"
// @Success 303 "登录完成"
// @Failure 401 {object} response.ResponseResult[response.EmptyData] "账号或密码错误"
// @Failure 404 {object} response.ResponseResult[response.EmptyData] "账号不存在"
// @Router /sign-in [post]
func (h *Handler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := h.bind(c, &req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	ctx := c.Request().Context()
	email, ok := h.rules.NormalizeIdentifier(req.Identifier)
	if !ok {
		return response.EchoError(c, h.respWriter, xerrors.NewIdentifierNotFoundError())
	}
	redirectURL := h.redirectParam(c, req.RedirectURL)

	res, err := h.provider.CreateSignIn(ctx, email, req.Password)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	if res.Status == identity.StatusComplete {
		h.completeSession(c, res.SessionToken)
		h.logger.InfoContext(ctx, "登录完成", log.String("identity_id", res.IdentityID))
		return c.Redirect(http.StatusSeeOther, h.allowlist.Resolve(redirectURL, gate.ProfilePath))
	}

	f := h.machine.Start(verification.KindSecondFactor)
	f.Identifier = req.Identifier
	f.Email = email
	f.PendingToken = res.SessionToken
	f.RedirectURL = redirectURL

	if err := h.machine.Send(ctx, f, h.sendSecondFactor); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	if err := h.beginFlow(c, f); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, h.flowView(f))
}

// SignInVerify 校验二次验证码
// @Summary 二次验证
// @Tags 登录
// @Accept json
// @Produce json
// @Param request body CodeRequest true "验证码"
// @Success 303 "登录完成"
// @Failure 400 {object} response.ResponseResult[response.EmptyData] "验证码错误"
// @Failure 409 {object} response.ResponseResult[response.EmptyData] "上一个请求仍在处理"
// @Router /sign-in/verify [post]
func (h *Handler) SignInVerify(c echo.Context) error {
	var req CodeRequest
	if err := h.bind(c, &req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	f, err := h.step(c, verification.KindSecondFactor, func(ctx context.Context, f *verification.Flow) error {
		return h.machine.Submit(ctx, f, req.Code, h.attemptSecondFactor)
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	h.completeSession(c, f.PendingToken)
	return c.Redirect(http.StatusSeeOther, h.allowlist.Resolve(f.RedirectURL, gate.ProfilePath))
}

// SignInResend 重发二次验证码
// @Summary 重发二次验证码
// @Tags 登录
// @Produce json
// @Success 200 {object} response.ResponseResult[FlowView]
// @Router /sign-in/resend [post]
func (h *Handler) SignInResend(c echo.Context) error {
	view, err := h.resend(c, verification.KindSecondFactor, h.sendSecondFactor)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, view)
}

// SignInBack 放弃二次验证，回到登录表单
// @Summary 返回登录表单
// @Tags 登录
// @Produce json
// @Success 200 {object} response.ResponseResult[FlowView]
// @Router /sign-in/back [post]
func (h *Handler) SignInBack(c echo.Context) error {
	view, err := h.back(c, verification.KindSecondFactor)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, view)
}

func (h *Handler) sendSecondFactor(ctx context.Context, f *verification.Flow) error {
	id, err := h.provider.PrepareSecondFactor(ctx, f.ProviderFlowID, f.PendingToken, f.Email)
	if err != nil {
		return err
	}
	f.ProviderFlowID = id
	return nil
}

func (h *Handler) attemptSecondFactor(ctx context.Context, f *verification.Flow, code string) error {
	token, err := h.provider.AttemptSecondFactor(ctx, f.ProviderFlowID, f.PendingToken, code)
	if err != nil {
		return err
	}
	f.PendingToken = token
	return nil
}
