package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gdg-portal/internal/middleware"
	"gdg-portal/internal/pkg/response"
	"gdg-portal/internal/portal/onboarding"
)

// OnboardingPage 引导页模型
type OnboardingPage struct {
	Colleges     []string       `json:"colleges"`
	OtherCollege string         `json:"other_college"`
	Genders      []string       `json:"genders"`
	MinUniLevel  int            `json:"min_uni_level"`
	MaxUniLevel  int            `json:"max_uni_level"`
	RedirectURL  string         `json:"redirect_url,omitempty"`
	Completed    bool           `json:"completed"`
	Profile      map[string]any `json:"profile,omitempty"`
}

// OnboardingPage 引导页：学院列表与已校验的 redirect_url
// @Summary 引导页
// @Tags 引导
// @Produce json
// @Param redirect_url query string false "完成后的跳转地址"
// @Success 200 {object} response.ResponseResult[OnboardingPage]
// @Router /onboarding [get]
func (h *Handler) OnboardingPage(c echo.Context) error {
	current := middleware.CurrentSession(c)
	page := OnboardingPage{
		Colleges:     onboarding.Colleges,
		OtherCollege: onboarding.OtherCollege,
		Genders:      []string{onboarding.GenderMale, onboarding.GenderFemale},
		MinUniLevel:  onboarding.MinUniLevel,
		MaxUniLevel:  onboarding.MaxUniLevel,
		RedirectURL:  h.redirectParam(c, ""),
		Completed:    current.OnboardingComplete,
	}
	if current.OnboardingComplete {
		page.Profile = current.Claims
	}
	return response.EchoOK(c, h.respWriter, page)
}

// SubmitOnboarding 提交引导资料
// @Summary 提交引导资料
// @Tags 引导
// @Accept json
// @Produce json
// @Param request body onboarding.Form true "引导资料"
// @Success 303 "跳转到 redirect_url 或个人主页"
// @Failure 400 {object} response.ResponseResult[response.EmptyData] "字段校验失败"
// @Failure 500 {object} response.ResponseResult[response.EmptyData] "写入资料失败"
// @Router /onboarding [post]
func (h *Handler) SubmitOnboarding(c echo.Context) error {
	var form onboarding.Form
	if err := c.Bind(&form); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if form.RedirectURL == "" {
		form.RedirectURL = c.QueryParam("redirect_url")
	}

	result, err := h.onboarding.Submit(c.Request().Context(), middleware.CurrentSession(c), form)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	middleware.SetCurrentSession(c, result.Session)
	return c.Redirect(http.StatusSeeOther, result.RedirectTo)
}
