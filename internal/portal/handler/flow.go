package handler

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/xerrors"
	"gdg-portal/internal/portal/verification"
)

// FlowView 验证流程的页面模型
type FlowView struct {
	FlowID     string `json:"flow_id"`
	Kind       string `json:"kind"`
	State      string `json:"state"`
	Identifier string `json:"identifier,omitempty"`
	Email      string `json:"email,omitempty"`
	// CodeError 验证码错误，前端标记输入框
	CodeError         bool   `json:"code_error"`
	Error             string `json:"error,omitempty"`
	CooldownRemaining int    `json:"cooldown_remaining"`
	CanResend         bool   `json:"can_resend"`
	Resent            bool   `json:"resent,omitempty"`
	RedirectURL       string `json:"redirect_url,omitempty"`
}

func (h *Handler) flowView(f *verification.Flow) *FlowView {
	return &FlowView{
		FlowID:            f.ID,
		Kind:              string(f.Kind),
		State:             string(f.State),
		Identifier:        f.Identifier,
		Email:             f.Email,
		CodeError:         f.CodeError,
		Error:             f.Error,
		CooldownRemaining: int(h.machine.CooldownRemaining(f).Seconds()),
		CanResend:         h.machine.CanResend(f),
		RedirectURL:       f.RedirectURL,
	}
}

// flowID 读取流程 Cookie；不是合法 UUID 的值直接忽略，不会访问存储
func flowID(c echo.Context) string {
	cookie, err := c.Cookie(FlowCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

// loadFlow 读取当前流程；不存在、已过期或类型不符都视为 session-missing
func (h *Handler) loadFlow(ctx context.Context, id string, kind verification.Kind) (*verification.Flow, error) {
	if id == "" {
		return nil, xerrors.NewSessionMissingError(string(kind))
	}
	f, err := h.flows.Get(ctx, id)
	if errors.Is(err, verification.ErrFlowNotFound) {
		return nil, xerrors.NewSessionMissingError(string(kind))
	}
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeCacheError, "读取验证流程失败")
	}
	if f.Kind != kind {
		return nil, xerrors.NewSessionMissingError(string(kind))
	}
	return f, nil
}

// peekFlow 页面渲染用，读不到时返回 nil
func (h *Handler) peekFlow(c echo.Context, kind verification.Kind) *verification.Flow {
	f, err := h.loadFlow(c.Request().Context(), flowID(c), kind)
	if err != nil {
		return nil
	}
	return f
}

// beginFlow 保存新建的流程并下发 Cookie
func (h *Handler) beginFlow(c echo.Context, f *verification.Flow) error {
	if err := h.flows.Save(c.Request().Context(), f); err != nil {
		return xerrors.Wrap(err, xerrors.CodeCacheError, "保存验证流程失败")
	}
	h.setCookie(c, FlowCookieName, f.ID, int(h.flowTTL.Seconds()))
	return nil
}

// step 在流程锁内执行一步。无论 fn 成败都持久化流程；
// 完成的流程被删除，Cookie 一并清除。
func (h *Handler) step(c echo.Context, kind verification.Kind, fn func(ctx context.Context, f *verification.Flow) error) (*verification.Flow, error) {
	ctx := c.Request().Context()
	id := flowID(c)
	if id == "" {
		return nil, xerrors.NewSessionMissingError(string(kind))
	}

	release, err := h.guard.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	f, err := h.loadFlow(ctx, id, kind)
	if err != nil {
		return nil, err
	}

	stepErr := fn(ctx, f)

	if f.State == verification.StateComplete {
		if err := h.flows.Delete(ctx, f.ID); err != nil {
			h.logger.WarnContext(ctx, "删除已完成流程失败", log.String("flow_id", f.ID), log.Err(err))
		}
		h.clearCookie(c, FlowCookieName)
		return f, stepErr
	}

	if err := h.flows.Save(ctx, f); err != nil {
		h.logger.ErrorContext(ctx, "保存验证流程失败", err, log.String("flow_id", f.ID))
		if stepErr == nil {
			stepErr = xerrors.Wrap(err, xerrors.CodeCacheError, "保存验证流程失败")
		}
	}
	return f, stepErr
}

// resend 冷却中为空操作，返回的视图 Resent=false
func (h *Handler) resend(c echo.Context, kind verification.Kind, send verification.SendFunc) (*FlowView, error) {
	var resent bool
	f, err := h.step(c, kind, func(ctx context.Context, f *verification.Flow) error {
		var err error
		resent, err = h.machine.Resend(ctx, f, send)
		return err
	})
	if err != nil {
		return nil, err
	}
	view := h.flowView(f)
	view.Resent = resent
	return view, nil
}

// back 回到上一步
func (h *Handler) back(c echo.Context, kind verification.Kind) (*FlowView, error) {
	f, err := h.step(c, kind, func(_ context.Context, f *verification.Flow) error {
		h.machine.Back(f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h.flowView(f), nil
}

// CodeRequest 提交验证码
type CodeRequest struct {
	Code string `json:"code" form:"code"`
}
