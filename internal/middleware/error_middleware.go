package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"gdg-portal/internal/pkg/ctxkey"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
	"gdg-portal/internal/pkg/response"
	"gdg-portal/internal/pkg/xerrors"
)

// HTTPErrorHandler 替换 Echo 默认错误处理：AppError 原样输出，其余转换为业务错误
func HTTPErrorHandler(respWriter response.Writer, logger log.Logger, m *metrics.PortalMetrics) echo.HTTPErrorHandler {
	if m == nil {
		m = metrics.DefaultPortalMetrics
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()

		var appErr *xerrors.AppError
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
		case errors.As(err, &echoErr):
			appErr = convertEchoError(echoErr)
		default:
			appErr = xerrors.NewUnexpectedError(err).WithService("echo-middleware", "error_handler")
			logger.ErrorContext(ctx, "未处理的错误", err,
				log.String("error_type", fmt.Sprintf("%T", err)),
				log.String("path", c.Request().URL.Path))
		}

		if traceID := ctxkey.GetString(ctx, ctxkey.TraceID); traceID != "" {
			appErr.WithTraceID(traceID)
		}
		if userID := ctxkey.GetString(ctx, ctxkey.UserID); userID != "" {
			appErr.WithUser(userID)
		}

		m.RecordError(appErr.Code.Kind(), fmt.Sprintf("%d", xerrors.GetHTTPStatus(appErr.Code)))

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(xerrors.GetHTTPStatus(appErr.Code))
			return
		}
		if writeErr := respWriter.WriteError(ctx, c.Response(), appErr); writeErr != nil {
			logger.ErrorContext(ctx, "写入错误响应失败", writeErr)
		}
	}
}

// convertEchoError 将 Echo 错误转换为业务错误
func convertEchoError(echoErr *echo.HTTPError) *xerrors.AppError {
	msg := fmt.Sprintf("%v", echoErr.Message)
	switch echoErr.Code {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return xerrors.FromCode(xerrors.CodeInvalidRequest).WithMetadata("echo_message", msg)
	case http.StatusUnauthorized:
		return xerrors.FromCode(xerrors.CodeAuthenticationFailed).WithMetadata("echo_message", msg)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return xerrors.FromCode(xerrors.CodeResourceNotFound).WithMetadata("echo_message", msg)
	case http.StatusConflict:
		return xerrors.FromCode(xerrors.CodeFlowBusy).WithMetadata("echo_message", msg)
	default:
		return xerrors.FromCode(xerrors.CodeInternalError).
			WithMetadata("echo_code", echoErr.Code).
			WithMetadata("echo_message", msg)
	}
}
