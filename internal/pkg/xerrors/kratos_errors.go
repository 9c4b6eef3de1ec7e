// File: internal/pkg/xerrors/kratos_errors.go
package xerrors

import (
	"net/http"
	"strings"
)

// KratosID Kratos UI 消息 ID
type KratosID int64

// 只保留门户流程会遇到的 ID
const (
	ErrorValidationInvalidCredentials   KratosID = 4000006
	ErrorValidationDuplicateCredentials KratosID = 4000007
	ErrorValidationAccountNotFound      KratosID = 4000037

	ErrorValidationLoginFlowExpired              KratosID = 4010001
	ErrorValidationLoginCodeInvalidOrAlreadyUsed KratosID = 4010008
	ErrorValidationLoginAddressUnknown           KratosID = 4010010

	ErrorValidationRegistrationFlowExpired          KratosID = 4040001
	ErrorValidationRegistrationCodeInvalidOrAlready KratosID = 4040003

	ErrorValidationSettingsFlowExpired KratosID = 4050001

	ErrorValidationRecoveryFlowExpired              KratosID = 4060005
	ErrorValidationRecoveryCodeInvalidOrAlreadyUsed KratosID = 4060006

	ErrorValidationVerificationFlowExpired              KratosID = 4070005
	ErrorValidationVerificationCodeInvalidOrAlreadyUsed KratosID = 4070006
)

// kratosErrorMap Kratos 错误 ID 到门户错误码的映射
var kratosErrorMap = map[KratosID]ErrorCode{
	ErrorValidationInvalidCredentials:   CodeInvalidCredentials,
	ErrorValidationDuplicateCredentials: CodeAccountExists,
	ErrorValidationAccountNotFound:      CodeIdentifierNotFound,
	ErrorValidationLoginAddressUnknown:  CodeIdentifierNotFound,

	ErrorValidationLoginCodeInvalidOrAlreadyUsed:        CodeIncorrectCode,
	ErrorValidationRegistrationCodeInvalidOrAlready:     CodeIncorrectCode,
	ErrorValidationRecoveryCodeInvalidOrAlreadyUsed:     CodeIncorrectCode,
	ErrorValidationVerificationCodeInvalidOrAlreadyUsed: CodeIncorrectCode,

	ErrorValidationLoginFlowExpired:        CodeSessionMissing,
	ErrorValidationRegistrationFlowExpired: CodeSessionMissing,
	ErrorValidationSettingsFlowExpired:     CodeSessionMissing,
	ErrorValidationRecoveryFlowExpired:     CodeSessionMissing,
	ErrorValidationVerificationFlowExpired: CodeSessionMissing,
}

// TranslateKratosError 将 Kratos 错误 ID 转换为门户错误码
func TranslateKratosError(id int64) (ErrorCode, bool) {
	code, ok := kratosErrorMap[KratosID(id)]
	return code, ok
}

// KratosMessage Kratos 返回的单条 UI 消息
type KratosMessage struct {
	ID   int64
	Text string
	Type string
}

// FromKratos 根据 Kratos 返回的 UI 消息与 HTTP 状态码构造 AppError。
// 优先使用已映射的消息 ID；410/403/404 表示流程已失效。
func FromKratos(operation string, statusCode int, messages []KratosMessage, err error) *AppError {
	for _, m := range messages {
		if code, ok := TranslateKratosError(m.ID); ok {
			appErr := FromCode(code).
				WithService("kratos", operation).
				WithMetadata("kratos_error_id", m.ID)
			if code == CodeIncorrectCode {
				appErr.WithMetadata("field", "code")
			}
			appErr.Err = err
			return appErr
		}
	}

	switch statusCode {
	case http.StatusGone, http.StatusForbidden, http.StatusNotFound:
		appErr := FromCode(CodeSessionMissing).
			WithService("kratos", operation).
			WithMetadata("status_code", statusCode)
		appErr.Err = err
		return appErr
	case http.StatusUnauthorized:
		appErr := FromCode(CodeAuthenticationFailed).
			WithService("kratos", operation)
		appErr.Err = err
		return appErr
	}

	appErr := NewKratosError(operation, err).WithService("kratos", operation)
	if statusCode > 0 {
		appErr.WithMetadata("status_code", statusCode)
	}
	if len(messages) > 0 {
		texts := make([]string, 0, len(messages))
		for _, m := range messages {
			texts = append(texts, m.Text)
		}
		appErr.WithMetadata("kratos_messages", strings.Join(texts, "; "))
	}
	return appErr
}
