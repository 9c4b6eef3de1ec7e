package response

import (
	"time"
)

// EmptyData 表示“无数据”的成功响应
type EmptyData struct{}

// ErrorItem 错误列表中的单项
type ErrorItem struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	LongMessage string `json:"longMessage,omitempty"`
	// Field 字段级错误对应的表单字段（如 code），前端据此高亮
	Field string `json:"field,omitempty"`
}

// ResponseResult 通用 API 响应结构体
type ResponseResult[T any] struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      *T          `json:"data,omitempty"`
	Errors    []ErrorItem `json:"errors,omitempty"`
	Timestamp int64       `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Success 创建一个成功的响应
func Success[T any](data *T) *ResponseResult[T] {
	return &ResponseResult[T]{
		Code:      100000,
		Message:   "OK",
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// Failure 创建一个失败的响应
func Failure(code int, message string, errs []ErrorItem) *ResponseResult[EmptyData] {
	return &ResponseResult[EmptyData]{
		Code:      code,
		Message:   message,
		Errors:    errs,
		Timestamp: time.Now().Unix(),
	}
}
