package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"gdg-portal/internal/pkg/ctxkey"
	"gdg-portal/internal/pkg/log"
)

// LoggingConfig 日志配置
type LoggingConfig struct {
	// SkipPaths 跳过日志记录的路径前缀
	SkipPaths []string

	// DetailedLog 是否记录查询串、UA 与脱敏后的请求头
	DetailedLog bool

	// SensitiveHeaders 需要脱敏的 Header
	SensitiveHeaders []string
}

// DefaultLoggingConfig 默认日志配置
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		SkipPaths: append([]string{"/favicon.ico"}, OpsPaths...),
		SensitiveHeaders: []string{
			"Authorization",
			"Cookie",
			HeaderSessionToken,
		},
	}
}

// LoggingMiddleware 日志中间件
func LoggingMiddleware(logger log.Logger) echo.MiddlewareFunc {
	return LoggingMiddlewareWithConfig(logger, DefaultLoggingConfig())
}

// LoggingMiddlewareWithConfig 带配置的日志中间件。
// 请求体从不记录：表单里有密码和验证码。
func LoggingMiddlewareWithConfig(logger log.Logger, config *LoggingConfig) echo.MiddlewareFunc {
	if config == nil {
		config = DefaultLoggingConfig()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if shouldSkip(req.URL.Path, config.SkipPaths) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// 先让错误处理器写出响应，状态码才准确
				c.Error(err)
			}

			ctx := c.Request().Context()
			statusCode := c.Response().Status
			fields := []any{
				log.String("method", req.Method),
				log.String("path", req.URL.Path),
				log.String("route", c.Path()),
				log.Int("status_code", statusCode),
				log.Int64("duration_ms", time.Since(start).Milliseconds()),
				log.Int64("response_size", c.Response().Size),
				log.String("client_ip", c.RealIP()),
			}
			if userID := ctxkey.GetString(ctx, ctxkey.UserID); userID != "" {
				fields = append(fields, log.String("user_id", userID))
			}
			if location := c.Response().Header().Get(echo.HeaderLocation); location != "" {
				fields = append(fields, log.String("location", location))
			}
			if config.DetailedLog {
				fields = append(fields,
					log.String("user_agent", req.UserAgent()),
					log.Any("headers", sanitizeHeaders(req.Header, config.SensitiveHeaders)),
				)
			}

			switch {
			case statusCode >= 500:
				logger.ErrorContext(ctx, "请求完成（服务器错误）", err, fields...)
			case statusCode >= 400:
				logger.WarnContext(ctx, "请求完成（客户端错误）", fields...)
			default:
				logger.InfoContext(ctx, "请求完成", fields...)
			}
			return nil
		}
	}
}

// shouldSkip 检查是否应该跳过日志记录
func shouldSkip(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
			return true
		}
	}
	return false
}

// sanitizeHeaders 脱敏敏感 Header
func sanitizeHeaders(headers map[string][]string, sensitiveHeaders []string) map[string]string {
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if len(v) == 0 {
			continue
		}
		result[k] = v[0]
		for _, sensitive := range sensitiveHeaders {
			if strings.EqualFold(k, sensitive) {
				result[k] = "***REDACTED***"
				break
			}
		}
	}
	return result
}
