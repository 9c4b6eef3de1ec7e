// File: internal/pkg/ctxkey/ctxkey.go
package ctxkey

import "context"

// ContextKey 统一的 context key 类型
type ContextKey string

const (
	// Language 语言偏好
	Language ContextKey = "language"

	// TraceID 请求追踪 ID
	TraceID ContextKey = "trace_id"

	// UserID 已登录用户的 identity ID（由门禁中间件设置）
	UserID ContextKey = "user_id"

	// Session 当前请求的会话投影（存储在 Echo Context 中）
	Session ContextKey = "portal_session"

	// SessionToken 当前请求携带的会话令牌（存储在 Echo Context 中，不写入日志）
	SessionToken ContextKey = "portal_session_token"
)

// WithValue 在 context 中设置指定 key 的值
func WithValue(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

// GetString 从 context 中获取字符串类型的值
func GetString(ctx context.Context, key ContextKey) string {
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}
