package response

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"gdg-portal/internal/pkg/ctxkey"
	"gdg-portal/internal/pkg/i18n"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/xerrors"
)

// Writer 统一的响应写入接口
type Writer interface {
	WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error
	WriteError(ctx context.Context, w http.ResponseWriter, err error) error
	WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error
}

// ResponseHandler Writer 的默认实现：错误文案按请求语言本地化
type ResponseHandler struct {
	logger log.Logger
}

// NewResponseHandler 创建响应处理器
func NewResponseHandler(logger log.Logger) *ResponseHandler {
	return &ResponseHandler{logger: logger}
}

// WriteSuccess 写入 200 成功响应
func (h *ResponseHandler) WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error {
	resp := Success(&data)
	resp.TraceID = ctxkey.GetString(ctx, ctxkey.TraceID)
	return h.WriteJSON(ctx, w, resp, http.StatusOK)
}

// WriteError 将错误转换为统一的错误列表响应
func (h *ResponseHandler) WriteError(ctx context.Context, w http.ResponseWriter, err error) error {
	appErr, ok := xerrors.As(err)
	if !ok {
		appErr = xerrors.NewUnexpectedError(err)
	}

	if appErr.Level >= xerrors.LevelError {
		h.logger.ErrorContext(ctx, "请求处理失败", appErr.Err, log.Any("app_error", appErr))
	} else {
		h.logger.DebugContext(ctx, "请求被拒绝", log.Any("app_error", appErr))
	}

	lang := i18n.GetLanguage(ctx)
	message := i18n.GetErrorMessage(appErr.Code, lang)

	resp := Failure(appErr.Code.ToInt(), message, errorItems(appErr, message))
	resp.TraceID = ctxkey.GetString(ctx, ctxkey.TraceID)
	return h.WriteJSON(ctx, w, resp, xerrors.GetHTTPStatus(appErr.Code))
}

// WriteJSON 直接写入 JSON
func (h *ResponseHandler) WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// header 已写出，只能记录日志
		h.logger.ErrorContext(ctx, "写入JSON响应失败", err)
		return err
	}
	return nil
}

func errorItems(appErr *xerrors.AppError, message string) []ErrorItem {
	kind := appErr.Code.Kind()

	if appErr.Context != nil {
		if fields, ok := appErr.Context.Metadata["fields"].(map[string]string); ok && len(fields) > 0 {
			names := make([]string, 0, len(fields))
			for name := range fields {
				names = append(names, name)
			}
			sort.Strings(names)

			items := make([]ErrorItem, 0, len(fields))
			for _, name := range names {
				items = append(items, ErrorItem{Code: kind, Message: fields[name], Field: name})
			}
			return items
		}
	}

	item := ErrorItem{
		Code:        kind,
		Message:     message,
		LongMessage: appErr.LongMessage(),
		Field:       appErr.Field(),
	}
	if appErr.Context != nil {
		if detail, ok := appErr.Context.Metadata["validation_message"].(string); ok && detail != "" {
			item.LongMessage = detail
		}
	}
	return []ErrorItem{item}
}
