// File: internal/pkg/i18n/middleware.go
package i18n

import (
	"github.com/labstack/echo/v4"
)

// Middleware Echo 中间件 - 从请求中提取语言偏好并存储到 context
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// 查询参数优先 (?lang=ar)，其次 Accept-Language
			lang := ParseAcceptLanguage(c.Request().Header.Get("Accept-Language"))
			if langCode := c.QueryParam("lang"); langCode != "" {
				lang = ParseLanguageCode(langCode)
			}

			ctx := WithLanguage(c.Request().Context(), lang)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set("Content-Language", GetLanguageCode(lang))

			return next(c)
		}
	}
}
