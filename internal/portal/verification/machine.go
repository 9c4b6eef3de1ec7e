package verification

import (
	"context"
	"errors"
	"time"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
	"gdg-portal/internal/pkg/xerrors"
)

// 通用错误文案的错误类型，写入 Flow.Error
const (
	ErrorKindUnexpected         = "unexpected"
	ErrorKindIdentifierNotFound = "identifier_not_found"
)

// errCodeNotReady 验证码不足 6 位，本地拒绝，不会发出请求
func errCodeNotReady() error {
	return xerrors.NewValidationError("code", "verification code must be 6 digits")
}

// SendFunc 请求身份服务发送验证码
type SendFunc func(ctx context.Context, f *Flow) error

// VerifyFunc 请求身份服务校验验证码
type VerifyFunc func(ctx context.Context, f *Flow, code string) error

// Machine 状态转换规则。只修改传入的 Flow，持久化由调用方负责。
type Machine struct {
	cooldown time.Duration
	clock    func() time.Time
	metrics  *metrics.PortalMetrics
	logger   log.Logger
}

// NewMachine 创建状态机，cooldown <= 0 时使用 DefaultCooldown
func NewMachine(cooldown time.Duration, m *metrics.PortalMetrics, logger log.Logger) *Machine {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if m == nil {
		m = metrics.DefaultPortalMetrics
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Machine{
		cooldown: cooldown,
		clock:    time.Now,
		metrics:  m,
		logger:   logger.With("component", "verification"),
	}
}

// WithClock 替换时钟，测试用
func (m *Machine) WithClock(clock func() time.Time) *Machine {
	m.clock = clock
	return m
}

// Now 当前时间
func (m *Machine) Now() time.Time {
	return m.clock()
}

// Cooldown 冷却时长
func (m *Machine) Cooldown() time.Duration {
	return m.cooldown
}

// Start 创建新流程
func (m *Machine) Start(kind Kind) *Flow {
	m.metrics.RecordVerificationEvent(string(kind), "started")
	return NewFlow(kind, m.clock())
}

// CooldownRemaining 剩余冷却时间，向上取整到秒
func (m *Machine) CooldownRemaining(f *Flow) time.Duration {
	remaining := f.CooldownUntil.Sub(m.clock())
	if remaining <= 0 {
		return 0
	}
	// 向上取整：只要仍在冷却中就至少报告 1 秒
	return ((remaining + time.Second - 1) / time.Second) * time.Second
}

// CanResend 冷却结束且处于等待验证码阶段
func (m *Machine) CanResend(f *Flow) bool {
	if f.State != StateAwaitingCode && f.State != StateAwaitingPassword {
		return false
	}
	return !m.clock().Before(f.CooldownUntil)
}

// Send collecting_identifier -> sending_code -> awaiting_code。
// 失败时回到 collecting_identifier 并记录错误类型。
func (m *Machine) Send(ctx context.Context, f *Flow, send SendFunc) error {
	if f.State != StateCollectingIdentifier {
		return xerrors.New(xerrors.CodeInvalidRequest, "verification code already requested")
	}

	f.ClearErrors()
	f.State = StateSendingCode
	m.touch(f)

	if err := send(ctx, f); err != nil {
		f.State = StateCollectingIdentifier
		f.Error = errorKind(err)
		m.metrics.RecordVerificationEvent(string(f.Kind), "send_failed")
		m.logger.WarnContext(ctx, "发送验证码失败",
			log.String("flow_id", f.ID),
			log.String("kind", string(f.Kind)),
			log.Err(err))
		return err
	}

	f.State = StateAwaitingCode
	f.CooldownUntil = m.clock().Add(m.cooldown)
	m.touch(f)
	m.metrics.RecordVerificationEvent(string(f.Kind), "code_sent")
	return nil
}

// Resend 冷却中调用为空操作，返回 false。
// 成功重发后冷却重新计时。
func (m *Machine) Resend(ctx context.Context, f *Flow, send SendFunc) (bool, error) {
	if !m.CanResend(f) {
		return false, nil
	}

	if err := send(ctx, f); err != nil {
		f.Error = errorKind(err)
		m.touch(f)
		m.metrics.RecordVerificationEvent(string(f.Kind), "resend_failed")
		return false, err
	}

	f.ClearErrors()
	f.CooldownUntil = m.clock().Add(m.cooldown)
	m.touch(f)
	m.metrics.RecordVerificationEvent(string(f.Kind), "code_resent")
	return true, nil
}

// Submit awaiting_code -> verifying_code -> complete。
// 长度不足在本地拒绝；验证码错误回到 awaiting_code 并清空输入、设置字段级标记；
// 其他错误回到 awaiting_code 并设置通用错误。
func (m *Machine) Submit(ctx context.Context, f *Flow, raw string, verify VerifyFunc) error {
	if f.State != StateAwaitingCode && f.State != StateAwaitingPassword {
		return xerrors.New(xerrors.CodeInvalidRequest, "no verification code is pending")
	}

	code := SanitizeCode(raw)
	if !CodeReady(code) {
		f.Code = code
		return errCodeNotReady()
	}

	f.Code = code
	f.ClearErrors()
	f.State = StateVerifyingCode
	m.touch(f)

	if err := verify(ctx, f, code); err != nil {
		f.State = StateAwaitingCode
		if xerrors.HasCode(err, xerrors.CodeIncorrectCode) {
			f.CodeError = true
			f.Code = ""
			m.metrics.RecordVerificationEvent(string(f.Kind), "incorrect_code")
		} else {
			f.Error = ErrorKindUnexpected
			m.metrics.RecordVerificationEvent(string(f.Kind), "verify_failed")
			m.logger.ErrorContext(ctx, "验证码校验失败", err,
				log.String("flow_id", f.ID),
				log.String("kind", string(f.Kind)))
		}
		m.touch(f)
		return err
	}

	f.State = StateComplete
	f.Code = ""
	m.touch(f)
	m.metrics.RecordVerificationEvent(string(f.Kind), "completed")
	return nil
}

// HoldCode 密码重置的中间步骤：保存已通过长度校验的验证码，等待新密码
func (m *Machine) HoldCode(f *Flow, raw string) error {
	if f.State != StateAwaitingCode {
		return xerrors.New(xerrors.CodeInvalidRequest, "no verification code is pending")
	}

	code := SanitizeCode(raw)
	f.Code = code
	if !CodeReady(code) {
		return errCodeNotReady()
	}

	f.ClearErrors()
	f.State = StateAwaitingPassword
	m.touch(f)
	return nil
}

// Back 回到上一步：awaiting_password -> awaiting_code，awaiting_code -> collecting_identifier。
// 丢弃验证码与全部错误状态。
func (m *Machine) Back(f *Flow) {
	switch f.State {
	case StateAwaitingPassword:
		f.State = StateAwaitingCode
	case StateAwaitingCode, StateSendingCode, StateVerifyingCode:
		f.State = StateCollectingIdentifier
		f.CooldownUntil = time.Time{}
	}
	f.Code = ""
	f.ClearErrors()
	m.touch(f)
	m.metrics.RecordVerificationEvent(string(f.Kind), "back")
}

func (m *Machine) touch(f *Flow) {
	f.UpdatedAt = m.clock()
}

func errorKind(err error) string {
	var appErr *xerrors.AppError
	if errors.As(err, &appErr) && appErr.Code == xerrors.CodeIdentifierNotFound {
		return ErrorKindIdentifierNotFound
	}
	return ErrorKindUnexpected
}
