// Package verification 邮箱验证码流程状态机。
//
// 同一张状态图服务于三种用途：注册邮箱验证、登录二次验证、密码重置。
// Kind 只决定调用身份服务的哪个操作以及页面文案，状态转换完全一致。
package verification

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CodeLength 验证码位数
const CodeLength = 6

// DefaultCooldown 重发冷却时间
const DefaultCooldown = 60 * time.Second

// Kind 流程类型
type Kind string

const (
	KindSignUp        Kind = "sign_up"
	KindSecondFactor  Kind = "second_factor"
	KindPasswordReset Kind = "password_reset"
)

// State 流程状态
type State string

const (
	StateCollectingIdentifier State = "collecting_identifier"
	StateSendingCode          State = "sending_code"
	StateAwaitingCode         State = "awaiting_code"
	StateVerifyingCode        State = "verifying_code"
	// StateAwaitingPassword 仅密码重置使用：验证码已通过长度校验，等待新密码
	StateAwaitingPassword State = "awaiting_password"
	StateComplete         State = "complete"
)

// Flow 一次验证流程的服务端记录，以 portal_flow Cookie 中的 ID 为键。
// 不保存明文密码。
type Flow struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	State State  `json:"state"`

	Identifier string `json:"identifier,omitempty"`
	Email      string `json:"email,omitempty"`
	Code       string `json:"code,omitempty"`

	// CodeError 验证码错误的字段级标记，与 Error 区分
	CodeError bool   `json:"code_error,omitempty"`
	Error     string `json:"error,omitempty"`

	CooldownUntil time.Time `json:"cooldown_until"`

	ProviderFlowID string `json:"provider_flow_id,omitempty"`
	PendingToken   string `json:"pending_token,omitempty"`
	RedirectURL    string `json:"redirect_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFlow 创建处于 collecting_identifier 的新流程
func NewFlow(kind Kind, now time.Time) *Flow {
	return &Flow{
		ID:        uuid.NewString(),
		Kind:      kind,
		State:     StateCollectingIdentifier,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ClearErrors 清除字段级与通用错误
func (f *Flow) ClearErrors() {
	f.CodeError = false
	f.Error = ""
}

// SanitizeCode 去掉所有非数字字符，最多保留 CodeLength 位
func SanitizeCode(raw string) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		if b.Len() == CodeLength {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CodeReady 验证码长度是否恰好为 CodeLength
func CodeReady(code string) bool {
	return len(code) == CodeLength
}
