// Package middleware Echo 中间件：链路追踪、恢复、日志、安全头/CORS、错误处理与门禁。
package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"gdg-portal/internal/pkg/ctxkey"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/response"
)

// 链路追踪头
const (
	HeaderTraceID   = "X-Trace-ID"
	HeaderRequestID = echo.HeaderXRequestID
)

// Config 中间件公共配置
type Config struct {
	Logger     log.Logger
	RespWriter response.Writer
	Skipper    middleware.Skipper
}

// OpsPaths 运维端点，绕过门禁与访问日志
var OpsPaths = []string{"/health", "/ready", "/metrics", "/swagger"}

// OpsSkipper 跳过运维端点
func OpsSkipper(c echo.Context) bool {
	return isOpsPath(c.Request().URL.Path)
}

func isOpsPath(path string) bool {
	for _, p := range OpsPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// TraceMiddleware 生成或沿用 trace ID，写入 context 与响应头
func TraceMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			traceID := c.Request().Header.Get(HeaderTraceID)
			if traceID == "" {
				traceID = uuid.NewString()
			}
			requestID := uuid.NewString()

			c.Set(string(ctxkey.TraceID), traceID)
			c.Response().Header().Set(HeaderTraceID, traceID)
			c.Response().Header().Set(HeaderRequestID, requestID)

			ctx := ctxkey.WithValue(c.Request().Context(), ctxkey.TraceID, traceID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
