// Package session 会话状态读取：请求级的会话访问器，带显式的 Refresh 操作。
//
// 门禁中间件、页面处理器与引导提交都通过 Reader 读取会话，
// 身份服务的 whoami 结果按令牌短时缓存。
package session

import (
	"context"
	"errors"
	"maps"
	"time"

	"gdg-portal/internal/pkg/ctxkey"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
	"gdg-portal/internal/pkg/sessioncache"
	"gdg-portal/internal/pkg/xerrors"
	"gdg-portal/internal/portal/gate"
	"gdg-portal/internal/portal/identity"
)

// State 会话投影
type State struct {
	Token              string         `json:"-"`
	UserID             string         `json:"user_id,omitempty"`
	Email              string         `json:"email,omitempty"`
	OnboardingComplete bool           `json:"onboarding_complete"`
	Claims             map[string]any `json:"claims,omitempty"`
}

// Anonymous 未登录投影
var Anonymous = State{}

// IsAuthenticated 是否已登录
func (s State) IsAuthenticated() bool {
	return s.UserID != ""
}

// Gate 门禁需要的两个字段
func (s State) Gate() gate.Session {
	return gate.Session{UserID: s.UserID, OnboardingComplete: s.OnboardingComplete}
}

// Reader 会话读取器
type Reader struct {
	provider identity.Provider
	cache    *sessioncache.Cache
	metrics  *metrics.SessionMetrics
	logger   log.Logger
}

func NewReader(provider identity.Provider, cache *sessioncache.Cache, m *metrics.SessionMetrics, logger log.Logger) *Reader {
	if m == nil {
		m = metrics.DefaultSessionMetrics
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Reader{
		provider: provider,
		cache:    cache,
		metrics:  m,
		logger:   logger.With("component", "session_reader"),
	}
}

// Current 返回令牌对应的会话投影。
// 令牌为空或会话已失效时返回 Anonymous 且 err 为 nil；仅身份服务异常时返回错误。
func (r *Reader) Current(ctx context.Context, token string) (State, error) {
	if token == "" {
		return Anonymous, nil
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, token); ok {
			return fromCache(cached), nil
		}
	}
	return r.load(ctx, token)
}

// Refresh 丢弃缓存后重新向身份服务读取，元数据写入后必须调用
func (r *Reader) Refresh(ctx context.Context, token string) (State, error) {
	r.Invalidate(ctx, token, "refresh")
	return r.load(ctx, token)
}

// Invalidate 删除缓存
func (r *Reader) Invalidate(ctx context.Context, token, reason string) {
	if r.cache != nil {
		r.cache.Delete(ctx, token, reason)
	}
}

// BackendToken 调用后端 API 的 Bearer 令牌，每次重新签发以携带最新声明
func (r *Reader) BackendToken(ctx context.Context, token string) (string, error) {
	return r.provider.GetSessionToken(ctx, token)
}

func (r *Reader) load(ctx context.Context, token string) (State, error) {
	if token == "" {
		return Anonymous, nil
	}

	start := time.Now()
	s, err := r.provider.GetSession(ctx, token)
	if err != nil {
		if isInactive(err) {
			r.metrics.ObserveDuration("", "inactive", time.Since(start))
			return Anonymous, nil
		}
		r.metrics.ObserveDuration("", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "读取会话失败", err,
			log.String("token_hash", sessioncache.HashToken(token)))
		return Anonymous, err
	}
	r.metrics.ObserveDuration("", "success", time.Since(start))

	state := State{
		Token:              token,
		UserID:             s.IdentityID,
		Email:              s.Email,
		OnboardingComplete: s.OnboardingComplete(),
		Claims:             maps.Clone(s.Claims),
	}
	if r.cache != nil {
		r.cache.Set(ctx, toCache(state))
	}
	return state, nil
}

func isInactive(err error) bool {
	var appErr *xerrors.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case xerrors.CodeAuthenticationFailed, xerrors.CodeSessionMissing:
		return true
	}
	return false
}

func fromCache(c sessioncache.Session) State {
	return State{
		Token:              c.SessionToken,
		UserID:             c.UserID,
		Email:              c.Email,
		OnboardingComplete: c.OnboardingComplete,
		Claims:             c.Claims,
	}
}

func toCache(s State) sessioncache.Session {
	return sessioncache.Session{
		SessionToken:       s.Token,
		UserID:             s.UserID,
		Email:              s.Email,
		OnboardingComplete: s.OnboardingComplete,
		Claims:             s.Claims,
	}
}

// WithState 把会话投影放入 context，后续处理器无需再次读取
func WithState(ctx context.Context, s State) context.Context {
	ctx = ctxkey.WithValue(ctx, ctxkey.Session, s)
	if s.UserID != "" {
		ctx = ctxkey.WithValue(ctx, ctxkey.UserID, s.UserID)
	}
	return ctx
}

// FromContext 读取 WithState 放入的投影
func FromContext(ctx context.Context) (State, bool) {
	s, ok := ctx.Value(ctxkey.Session).(State)
	return s, ok
}

// CookieName 保存身份服务会话令牌的 Cookie
const CookieName = "portal_session"
