// Package identity 身份服务边界。
//
// 门户不保存凭证、不签发会话，所有操作都委托给身份服务；
// Provider 把这些远程调用收敛为状态 + 可选会话 + 错误的统一形式。
package identity

import (
	"context"
)

// SignInStatus 登录尝试的结果状态
type SignInStatus string

const (
	StatusComplete          SignInStatus = "complete"
	StatusNeedsSecondFactor SignInStatus = "needs_second_factor"
)

// 会话声明中的键
const (
	ClaimOnboardingComplete = "onboardingComplete"
	ClaimUniversityID       = "uni_id"
	ClaimFullArabicName     = "fullArabicName"
	ClaimSaudiPhone         = "saudiPhone"
	ClaimGender             = "gender"
	ClaimPersonalEmail      = "personalEmail"
	ClaimUniLevel           = "uniLevel"
	ClaimUniCollege         = "uniCollege"
)

// SignUpResult 注册结果。SessionToken 在邮箱验证完成前不可写入 Cookie。
type SignUpResult struct {
	IdentityID         string
	SessionToken       string
	VerificationFlowID string
}

// SignInResult 登录结果。需要二次验证时 SessionToken 为一级会话。
type SignInResult struct {
	Status       SignInStatus
	IdentityID   string
	SessionToken string
}

// Session 身份服务返回的会话
type Session struct {
	Token      string
	ID         string
	IdentityID string
	Email      string
	AAL        string
	Active     bool
	// Claims 身份的公开元数据，引导资料与 onboardingComplete 都在这里
	Claims map[string]any
}

// OnboardingComplete 读取声明中的引导完成标记
func (s *Session) OnboardingComplete() bool {
	if s == nil || s.Claims == nil {
		return false
	}
	done, _ := s.Claims[ClaimOnboardingComplete].(bool)
	return done
}

// Provider 身份服务操作集合
type Provider interface {
	// CreateSignUp 创建账号，身份服务随即发送邮箱验证码
	CreateSignUp(ctx context.Context, email, universityID, password string) (*SignUpResult, error)
	// PrepareFirstFactor 发送（或重发）邮箱验证码，flowID 为空时新建验证流程
	PrepareFirstFactor(ctx context.Context, flowID, email string) (string, error)
	// AttemptFirstFactor 校验邮箱验证码
	AttemptFirstFactor(ctx context.Context, flowID, code string) error

	CreateSignIn(ctx context.Context, identifier, password string) (*SignInResult, error)
	// PrepareSecondFactor 使用一级会话发送二次验证码，flowID 为空时新建流程
	PrepareSecondFactor(ctx context.Context, flowID, sessionToken, email string) (string, error)
	// AttemptSecondFactor 校验二次验证码，返回提升后的会话令牌
	AttemptSecondFactor(ctx context.Context, flowID, sessionToken, code string) (string, error)

	// PrepareReset 发送密码重置验证码，账号不存在时返回 identifier-not-found
	PrepareReset(ctx context.Context, flowID, email string) (string, error)
	// AttemptReset 校验验证码并设置新密码，返回新会话令牌
	AttemptReset(ctx context.Context, flowID, code, password string) (string, error)

	GetSession(ctx context.Context, sessionToken string) (*Session, error)
	// GetSessionToken 返回调用后端 API 用的令牌（配置了模板时为 JWT）
	GetSessionToken(ctx context.Context, sessionToken string) (string, error)
	// UpdateUserMetadata 一次调用写入全部公开元数据
	UpdateUserMetadata(ctx context.Context, identityID string, metadata map[string]any) error
	RevokeSession(ctx context.Context, sessionToken string) error

	Ready(ctx context.Context) error
}
