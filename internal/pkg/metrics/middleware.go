// File: internal/pkg/metrics/middleware.go
package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Middleware 记录 HTTP 请求指标（按路由模板聚合）
func Middleware(m *HTTPMetrics) echo.MiddlewareFunc {
	if m == nil {
		m = DefaultHTTPMetrics
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsHealthCheckEndpoint(c.Request().URL.Path) {
				return next(c)
			}

			service := GetServiceName()
			m.IncInProgress(service)
			defer m.DecInProgress(service)

			start := time.Now()
			err := next(c)
			if err != nil {
				// 让 Echo 的错误处理器先写出响应，状态码才准确
				c.Error(err)
			}

			m.RecordRequest(service, c.Path(), c.Request().Method, c.Response().Status, time.Since(start))
			return nil
		}
	}
}

// EchoHandler 暴露门户注册表中的指标
func EchoHandler() echo.HandlerFunc {
	h := promhttp.HandlerFor(Gatherer(), promhttp.HandlerOpts{Registry: registry})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
