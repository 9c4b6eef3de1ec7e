package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/response"
)

// ReadyCheck 就绪检查项
type ReadyCheck func(ctx context.Context) error

// OpsHandler 健康与就绪端点
type OpsHandler struct {
	checks     map[string]ReadyCheck
	respWriter response.Writer
	logger     log.Logger
}

func NewOpsHandler(checks map[string]ReadyCheck, respWriter response.Writer, logger log.Logger) *OpsHandler {
	return &OpsHandler{checks: checks, respWriter: respWriter, logger: logger}
}

// Health 存活检查
// @Summary 存活检查
// @Tags 运维
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *OpsHandler) Health(c echo.Context) error {
	return response.EchoJSON(c, h.respWriter, map[string]string{"status": "ok"}, http.StatusOK)
}

// Ready 依赖就绪检查，任一失败返回 503
// @Summary 就绪检查
// @Tags 运维
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *OpsHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	result := map[string]string{"status": "ok"}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WarnContext(ctx, "就绪检查失败", log.String("check", name), log.Err(err))
			result[name] = "unavailable"
			result["status"] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}
	return response.EchoJSON(c, h.respWriter, result, status)
}
