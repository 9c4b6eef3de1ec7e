package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"gdg-portal/internal/middleware"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/response"
	"gdg-portal/internal/portal/gate"
	"gdg-portal/internal/portal/verification"
)

// SignUpRequest 注册请求，邮箱由学号拼出
type SignUpRequest struct {
	UniversityID string `json:"university_id" form:"university_id" validate:"required,university_id"`
	Password     string `json:"password" form:"password" validate:"required,min=8"`
	RedirectURL  string `json:"redirect_url,omitempty" form:"redirect_url"`
}

// AuthPage 认证页面模型；存在进行中的流程时附带流程视图
type AuthPage struct {
	RedirectURL string    `json:"redirect_url,omitempty"`
	Flow        *FlowView `json:"flow,omitempty"`
}

// SignUpTasks 注册后尚未完成的任务
type SignUpTasks struct {
	Tasks []string  `json:"tasks"`
	Flow  *FlowView `json:"flow,omitempty"`
}

// TaskVerifyEmail 邮箱验证未完成
const TaskVerifyEmail = "verify_email"

// SignUpPage 注册页
// @Summary 注册页
// @Tags 注册
// @Produce json
// @Param redirect_url query string false "完成后的跳转地址"
// @Success 200 {object} response.ResponseResult[AuthPage]
// @Success 307 "已登录，离开注册页"
// @Router /sign-up [get]
func (h *Handler) SignUpPage(c echo.Context) error {
	if redirected, err := h.selfRedirect(c); redirected {
		return err
	}
	page := AuthPage{RedirectURL: h.redirectParam(c, "")}
	if f := h.peekFlow(c, verification.KindSignUp); f != nil {
		page.Flow = h.flowView(f)
	}
	return response.EchoOK(c, h.respWriter, page)
}

// SignUp 创建账号并发送邮箱验证码
// @Summary 注册
// @Tags 注册
// @Accept json
// @Produce json
// @Param request body SignUpRequest true "注册请求"
// @Success 200 {object} response.ResponseResult[FlowView] "验证码已发送"
// @Failure 400 {object} response.ResponseResult[response.EmptyData] "参数错误"
// @Failure 409 {object} response.ResponseResult[response.EmptyData] "账号已存在"
// @Router /sign-up [post]
func (h *Handler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := h.bind(c, &req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	ctx := c.Request().Context()
	f := h.machine.Start(verification.KindSignUp)
	f.Identifier = req.UniversityID
	f.Email = h.rules.InstitutionalEmail(req.UniversityID)
	f.RedirectURL = h.redirectParam(c, req.RedirectURL)

	err := h.machine.Send(ctx, f, func(ctx context.Context, f *verification.Flow) error {
		res, err := h.provider.CreateSignUp(ctx, f.Email, f.Identifier, req.Password)
		if err != nil {
			return err
		}
		f.ProviderFlowID = res.VerificationFlowID
		f.PendingToken = res.SessionToken
		return nil
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	if err := h.beginFlow(c, f); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	h.logger.InfoContext(ctx, "注册验证码已发送", log.String("flow_id", f.ID))
	return response.EchoOK(c, h.respWriter, h.flowView(f))
}

// SignUpVerify 校验邮箱验证码，成功后进入引导页
// @Summary 注册验证码校验
// @Tags 注册
// @Accept json
// @Produce json
// @Param request body CodeRequest true "验证码"
// @Success 303 "跳转到引导页"
// @Failure 400 {object} response.ResponseResult[response.EmptyData] "验证码错误"
// @Failure 410 {object} response.ResponseResult[response.EmptyData] "流程不存在或已过期"
// @Router /sign-up/verify [post]
func (h *Handler) SignUpVerify(c echo.Context) error {
	var req CodeRequest
	if err := h.bind(c, &req); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	f, err := h.step(c, verification.KindSignUp, func(ctx context.Context, f *verification.Flow) error {
		return h.machine.Submit(ctx, f, req.Code, h.attemptFirstFactor)
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	// 身份服务未在注册时签发会话，改走登录
	if f.PendingToken == "" {
		return c.Redirect(http.StatusSeeOther, middleware.RedirectTarget(gate.RedirectSignIn, f.RedirectURL))
	}
	h.completeSession(c, f.PendingToken)
	return c.Redirect(http.StatusSeeOther, middleware.RedirectTarget(gate.RedirectOnboarding, f.RedirectURL))
}

// SignUpResend 重发邮箱验证码，冷却中为空操作
// @Summary 重发注册验证码
// @Tags 注册
// @Produce json
// @Success 200 {object} response.ResponseResult[FlowView]
// @Router /sign-up/resend [post]
func (h *Handler) SignUpResend(c echo.Context) error {
	view, err := h.resend(c, verification.KindSignUp, h.sendFirstFactor)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, view)
}

// SignUpBack 返回注册表单
// @Summary 返回上一步
// @Tags 注册
// @Produce json
// @Success 200 {object} response.ResponseResult[FlowView]
// @Router /sign-up/back [post]
func (h *Handler) SignUpBack(c echo.Context) error {
	view, err := h.back(c, verification.KindSignUp)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, view)
}

// SignUpTasks 注册后待完成的任务
// @Summary 注册待办
// @Tags 注册
// @Produce json
// @Success 200 {object} response.ResponseResult[SignUpTasks]
// @Failure 410 {object} response.ResponseResult[response.EmptyData] "流程不存在或已过期"
// @Router /sign-up/tasks [get]
func (h *Handler) SignUpTasks(c echo.Context) error {
	f := h.peekFlow(c, verification.KindSignUp)
	if f == nil {
		if middleware.CurrentSession(c).IsAuthenticated() {
			return response.EchoOK(c, h.respWriter, SignUpTasks{Tasks: []string{}})
		}
		_, err := h.loadFlow(c.Request().Context(), flowID(c), verification.KindSignUp)
		return response.EchoError(c, h.respWriter, err)
	}

	tasks := SignUpTasks{Tasks: []string{}, Flow: h.flowView(f)}
	if f.State != verification.StateComplete {
		tasks.Tasks = append(tasks.Tasks, TaskVerifyEmail)
	}
	return response.EchoOK(c, h.respWriter, tasks)
}

func (h *Handler) sendFirstFactor(ctx context.Context, f *verification.Flow) error {
	id, err := h.provider.PrepareFirstFactor(ctx, f.ProviderFlowID, f.Email)
	if err != nil {
		return err
	}
	f.ProviderFlowID = id
	return nil
}

func (h *Handler) attemptFirstFactor(ctx context.Context, f *verification.Flow, code string) error {
	return h.provider.AttemptFirstFactor(ctx, f.ProviderFlowID, code)
}
