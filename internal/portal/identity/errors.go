package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	ory "github.com/ory/kratos-client-go"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/xerrors"
)

// failure 把 SDK 错误转换为 AppError：优先使用响应体中 UI 消息的 ID，其次看状态码
func (p *KratosProvider) failure(ctx context.Context, operation string, resp *http.Response, err error) *xerrors.AppError {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	var messages []xerrors.KratosMessage
	var apiErr *ory.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		messages = modelMessages(apiErr.Model())
	}

	appErr := xerrors.FromKratos(operation, status, messages, err)
	if appErr.Code == xerrors.CodeKratosError {
		p.logger.ErrorContext(ctx, "Kratos 调用失败", err,
			log.String("operation", operation),
			log.Int("status_code", status))
	} else {
		p.logger.DebugContext(ctx, "Kratos 返回业务错误",
			log.String("operation", operation),
			log.Int("status_code", status),
			log.String("kind", appErr.Code.Kind()))
	}
	return appErr
}

// uiFailure 处理 200 响应中携带的错误消息（验证码错误等）
func uiFailure(operation string, ui ory.UiContainer) *xerrors.AppError {
	messages := uiMessages(ui)
	for _, m := range messages {
		if m.Type == "error" {
			return xerrors.FromKratos(operation, http.StatusOK, messages, nil)
		}
	}
	return nil
}

func uiMessages(ui ory.UiContainer) []xerrors.KratosMessage {
	var out []xerrors.KratosMessage
	for _, m := range ui.Messages {
		out = append(out, xerrors.KratosMessage{ID: m.Id, Text: m.Text, Type: m.Type})
	}
	for _, node := range ui.Nodes {
		for _, m := range node.Messages {
			out = append(out, xerrors.KratosMessage{ID: m.Id, Text: m.Text, Type: m.Type})
		}
	}
	return out
}

func modelMessages(model any) []xerrors.KratosMessage {
	switch m := model.(type) {
	case ory.LoginFlow:
		return uiMessages(m.Ui)
	case *ory.LoginFlow:
		return uiMessages(m.Ui)
	case ory.RegistrationFlow:
		return uiMessages(m.Ui)
	case *ory.RegistrationFlow:
		return uiMessages(m.Ui)
	case ory.VerificationFlow:
		return uiMessages(m.Ui)
	case *ory.VerificationFlow:
		return uiMessages(m.Ui)
	case ory.RecoveryFlow:
		return uiMessages(m.Ui)
	case *ory.RecoveryFlow:
		return uiMessages(m.Ui)
	case ory.SettingsFlow:
		return uiMessages(m.Ui)
	case *ory.SettingsFlow:
		return uiMessages(m.Ui)
	default:
		return nil
	}
}

// loginFlowState 从 400 响应体里取登录流程状态
func loginFlowState(err error) string {
	var apiErr *ory.GenericOpenAPIError
	if !errors.As(err, &apiErr) {
		return ""
	}
	switch m := apiErr.Model().(type) {
	case ory.LoginFlow:
		return fmt.Sprint(m.State)
	case *ory.LoginFlow:
		return fmt.Sprint(m.State)
	default:
		return ""
	}
}
