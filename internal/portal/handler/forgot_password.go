package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"gdg-portal/internal/pkg/response"
	"gdg-portal/internal/portal/gate"
	"gdg-portal/internal/portal/verification"
)

// ForgotPasswordRequest 按学号找回密码
type ForgotPasswordRequest struct {
	UniversityID string `json:"university_id" form:"university_id" validate:"required,university_id"`
}

// ResetPasswordRequest 新密码；验证码已在上一步保存
type ResetPasswordRequest struct {
	Password string `json:"password" form:"password" validate:"required,min=8"`
}

// ForgotPasswordPage 找回密码页
// @Summary 找回密码页
// @Tags 找回密码
// @Produce json
// @Success 200 {object} response.ResponseResult[AuthPage]
// @Success 307 "已登录，离开找回密码页"
// @Router /forgot-password [get]
func (h *Handler) ForgotPasswordPage(c echo.Context) error {
	if redirected, err := h.selfRedirect(c); redirected {
		return err
	}
	page := AuthPage{RedirectURL: h.redirectParam(c, "")}
	if f := h.peekFlow(c, verification.KindPasswordReset); f != nil {
		page.Flow = h.flowView(f)
	}
	return response.EchoOK(c, h.respWriter, page)
}

// ForgotPassword 查找账号并发送重置验证码
// @Summary 发送重置验证码
// @Tags 找回密码
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "学号"
// @Success 200 {object} response.ResponseResult[FlowView]
// @Failure 404 {object} response.ResponseResult[response.EmptyData] "账号不存在"
// @Router /forgot-password [post]
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	f := h.machine.Start(verification.KindPasswordReset)
	f.Identifier = req.UniversityID
	f.Email = h.rules.InstitutionalEmail(req.UniversityID)

	if err := h.machine.Send(c.Request().Context(), f, h.sendReset); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	if err := h.beginFlow(c, f); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, h.flowView(f))
}

// ForgotPasswordCode 保存验证码（只做长度校验），进入设置新密码步骤
// @Summary 提交重置验证码
// @Tags 找回密码
// @Accept json
// @Produce json
// @Param request body CodeRequest true "验证码"
// @Success 200 {object} response.ResponseResult[FlowView]
// @Failure 400 {object} response.ResponseResult[response.EmptyData] "验证码不足 6 位"
// @Router /forgot-password/code [post]
func (h *Handler) ForgotPasswordCode(c echo.Context) error {
	var req CodeRequest
	if err := h.bind(c, &req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	f, err := h.step(c, verification.KindPasswordReset, func(_ context.Context, f *verification.Flow) error {
		return h.machine.HoldCode(f, req.Code)
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, h.flowView(f))
}

// ForgotPasswordReset 提交验证码与新密码。验证码错误时回到输入验证码步骤。
// @Summary 设置新密码
// @Tags 找回密码
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "新密码"
// @Success 303 "重置完成，跳转个人主页"
// @Failure 400 {object} response.ResponseResult[response.EmptyData] "验证码错误"
// @Router /forgot-password/reset [post]
func (h *Handler) ForgotPasswordReset(c echo.Context) error {
	var req ResetPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	f, err := h.step(c, verification.KindPasswordReset, func(ctx context.Context, f *verification.Flow) error {
		return h.machine.Submit(ctx, f, f.Code, func(ctx context.Context, f *verification.Flow, code string) error {
			token, err := h.provider.AttemptReset(ctx, f.ProviderFlowID, code, req.Password)
			if err != nil {
				return err
			}
			f.PendingToken = token
			return nil
		})
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	h.completeSession(c, f.PendingToken)
	return c.Redirect(http.StatusSeeOther, gate.ProfilePath)
}

// ForgotPasswordResend 重发重置验证码
// @Summary 重发重置验证码
// @Tags 找回密码
// @Produce json
// @Success 200 {object} response.ResponseResult[FlowView]
// @Router /forgot-password/resend [post]
func (h *Handler) ForgotPasswordResend(c echo.Context) error {
	view, err := h.resend(c, verification.KindPasswordReset, h.sendReset)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, view)
}

// ForgotPasswordBack 返回上一步
// @Summary 返回上一步
// @Tags 找回密码
// @Produce json
// @Success 200 {object} response.ResponseResult[FlowView]
// @Router /forgot-password/back [post]
func (h *Handler) ForgotPasswordBack(c echo.Context) error {
	view, err := h.back(c, verification.KindPasswordReset)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, view)
}

func (h *Handler) sendReset(ctx context.Context, f *verification.Flow) error {
	id, err := h.provider.PrepareReset(ctx, f.ProviderFlowID, f.Email)
	if err != nil {
		return err
	}
	f.ProviderFlowID = id
	return nil
}
