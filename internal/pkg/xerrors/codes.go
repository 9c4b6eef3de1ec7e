// File: internal/pkg/xerrors/codes.go
package xerrors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型（类型安全）
type ErrorCode int

// IsValid 检查错误码是否在预定义列表中
func (c ErrorCode) IsValid() bool {
	_, exists := codeMessages[c]
	return exists
}

// String 返回错误码的字符串表示
func (c ErrorCode) String() string {
	if msg, ok := codeMessages[c]; ok {
		return fmt.Sprintf("%d (%s)", c, msg)
	}
	return fmt.Sprintf("%d (undefined)", c)
}

// Message 返回错误码对应的默认（英文）消息
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return codeMessages[CodeInternalError]
}

// ToInt 转换为 int（用于 JSON 序列化等场景）
func (c ErrorCode) ToInt() int {
	return int(c)
}

// -----------------------------------------------------------------------------
// 业务错误码统一定义
// 按领域分段：1xxxxx 通用，2xxxxx 认证/验证流程，7xxxxx 外部服务。
// -----------------------------------------------------------------------------
const (
	// 1xxxxx: 通用错误码
	CodeSuccess          ErrorCode = 100000 // 操作成功
	CodeInternalError    ErrorCode = 100001 // 意外错误（unexpected）
	CodeInvalidParams    ErrorCode = 100002 // 字段校验失败
	CodeInvalidRequest   ErrorCode = 100003 // 请求格式错误
	CodeResourceNotFound ErrorCode = 100404 // 资源不存在
	CodeFlowBusy         ErrorCode = 100409 // 流程正在处理上一个请求

	// 2xxxxx: 认证与验证流程错误码
	CodeAuthenticationFailed ErrorCode = 200001 // 未登录或会话无效
	CodeInvalidCredentials   ErrorCode = 200004 // 账号或密码错误
	CodeSessionMissing       ErrorCode = 200008 // 进行中的流程不存在（需重新开始）
	CodeIdentifierNotFound   ErrorCode = 200009 // 学号对应的账号不存在
	CodeIncorrectCode        ErrorCode = 200010 // 验证码错误
	CodeAccountExists        ErrorCode = 200011 // 账号已存在
	CodeResendCooldown       ErrorCode = 200012 // 重发冷却中

	// 7xxxxx: 外部服务错误码
	CodeExternalServiceError ErrorCode = 700001 // 外部服务错误
	CodeKratosError          ErrorCode = 700002 // Kratos 服务错误
	CodeCacheError           ErrorCode = 700004 // 缓存服务错误
	CodeMessageQueueError    ErrorCode = 700005 // 消息队列错误
)

// codeMessages 面向用户的默认文案，本地化版本见 internal/pkg/i18n
var codeMessages = map[ErrorCode]string{
	CodeSuccess:          "OK",
	CodeInternalError:    "An unexpected error occurred. Please try again or contact support.",
	CodeInvalidParams:    "Please correct the highlighted fields.",
	CodeInvalidRequest:   "The request could not be understood.",
	CodeResourceNotFound: "The requested resource was not found.",
	CodeFlowBusy:         "Your previous request is still being processed.",

	CodeAuthenticationFailed: "You need to sign in to continue.",
	CodeInvalidCredentials:   "Invalid email or password",
	CodeSessionMissing:       "Your session has expired. Please start again.",
	CodeIdentifierNotFound:   "No account found with this University ID",
	CodeIncorrectCode:        "Incorrect verification code. Please try again.",
	CodeAccountExists:        "An account associated with this email already exists. Please sign in instead.",
	CodeResendCooldown:       "Please wait before requesting a new code.",

	CodeExternalServiceError: "An unexpected error occurred. Please try again or contact support.",
	CodeKratosError:          "An unexpected error occurred. Please try again or contact support.",
	CodeCacheError:           "An unexpected error occurred. Please try again or contact support.",
	CodeMessageQueueError:    "An unexpected error occurred. Please try again or contact support.",
}

// codeLongMessages 对应错误列表中的 longMessage 字段
var codeLongMessages = map[ErrorCode]string{
	CodeSessionMissing:     "The verification attempt could not be found. It may have expired or the page was reloaded. Restart the process from the beginning.",
	CodeIdentifierNotFound: "Check the University ID you entered or create a new account.",
	CodeIncorrectCode:      "The code you entered does not match the one we sent. Enter the latest 6-digit code from your inbox.",
	CodeInternalError:      "If the problem persists, contact the GDG support team.",
}

// LongMessage 返回错误码的补充说明
func (c ErrorCode) LongMessage() string {
	return codeLongMessages[c]
}

// GetHTTPStatus 错误码到 HTTP 状态码的映射
func GetHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParams, CodeInvalidRequest, CodeIncorrectCode:
		return http.StatusBadRequest
	case CodeAuthenticationFailed, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeResourceNotFound, CodeIdentifierNotFound:
		return http.StatusNotFound
	case CodeFlowBusy, CodeAccountExists:
		return http.StatusConflict
	case CodeSessionMissing:
		return http.StatusGone
	case CodeResendCooldown:
		return http.StatusTooManyRequests
	case CodeExternalServiceError, CodeKratosError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// getCategoryByCode 根据错误码段位返回分类
func getCategoryByCode(code ErrorCode) string {
	switch int(code) / 100000 {
	case 1:
		return "general"
	case 2:
		return "auth"
	case 7:
		return "external"
	default:
		return "unknown"
	}
}

// getLevelByCode 客户端可纠正的错误记为 Warn，其余为 Error
func getLevelByCode(code ErrorCode) ErrorLevel {
	switch code {
	case CodeInvalidParams, CodeInvalidRequest, CodeFlowBusy, CodeResendCooldown,
		CodeInvalidCredentials, CodeIdentifierNotFound, CodeIncorrectCode,
		CodeAccountExists, CodeSessionMissing, CodeAuthenticationFailed, CodeResourceNotFound:
		return LevelWarn
	case CodeInternalError:
		return LevelCritical
	default:
		return LevelError
	}
}

func isRetryableByCode(code ErrorCode) bool {
	switch code {
	case CodeExternalServiceError, CodeKratosError, CodeCacheError, CodeMessageQueueError, CodeFlowBusy:
		return true
	default:
		return false
	}
}

// codeKinds 对外暴露的错误类别（错误列表中的 code 字段）
var codeKinds = map[ErrorCode]string{
	CodeInvalidParams:        "validation",
	CodeInvalidRequest:       "invalid_request",
	CodeResourceNotFound:     "not_found",
	CodeFlowBusy:             "in_flight",
	CodeAuthenticationFailed: "unauthenticated",
	CodeInvalidCredentials:   "invalid_credentials",
	CodeSessionMissing:       "session_missing",
	CodeIdentifierNotFound:   "identifier_not_found",
	CodeIncorrectCode:        "incorrect_code",
	CodeAccountExists:        "account_exists",
	CodeResendCooldown:       "resend_cooldown",
}

// Kind 返回错误类别，未分类的统一视为 unexpected
func (c ErrorCode) Kind() string {
	if kind, ok := codeKinds[c]; ok {
		return kind
	}
	return "unexpected"
}
