package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Type 错误分类
type Type string

const (
	NetworkError    Type = "NETWORK_ERROR"
	APIError        Type = "API_ERROR"
	ParseError      Type = "PARSE_ERROR"
	ValidationError Type = "VALIDATION_ERROR"
)

// AppError 对外暴露的统一错误，按次构造、不落库
type AppError struct {
	Type      Type   `json:"type"`
	Message   string `json:"message"`
	Code      int    `json:"code,omitempty"`
	Retryable bool   `json:"retryable"`
}

func (e *AppError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ResponseError 上游已返回响应但 HTTP 状态码非 2xx
type ResponseError struct {
	StatusCode int
	// Message 从响应体中解析出的 message 字段，可能为空
	Message string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

var (
	// ErrNoResponse 请求已发出但没有收到任何响应
	ErrNoResponse = errors.New("no response received from server")
	// ErrMalformedBody 响应体不是预期的结构
	ErrMalformedBody = errors.New("malformed response body")
)

const (
	msgBadRequest  = "请求参数错误"
	msgUnavailable = "服务器暂时不可用"
	msgNetwork     = "网络连接失败，请检查您的网络设置"
	msgParse       = "数据格式错误"
	msgUnknown     = "发生未知错误"
	msgAPIFailed   = "API请求失败"
	msgValidation  = "数据验证失败"
)

// Validation 调用方传入了未知分类等非法输入
func Validation(msg string) *AppError {
	return &AppError{Type: ValidationError, Message: msg}
}

// API 上游可达但拒绝或失败
func API(code int, msg string, retryable bool) *AppError {
	return &AppError{Type: APIError, Message: msg, Code: code, Retryable: retryable}
}

// Classify 将任意错误映射为 AppError，按顺序匹配，先命中者生效
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if isNoResponse(err) {
		return &AppError{Type: NetworkError, Message: msgNetwork, Retryable: true}
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		status := respErr.StatusCode
		switch {
		case status >= 400 && status < 500:
			msg := respErr.Message
			if msg == "" {
				msg = msgBadRequest
			}
			return &AppError{Type: APIError, Message: msg, Code: status, Retryable: false}
		case status >= 500:
			return &AppError{Type: APIError, Message: msgUnavailable, Code: status, Retryable: true}
		}
	}

	if isParseFailure(err) {
		return &AppError{Type: ParseError, Message: msgParse, Retryable: false}
	}

	msg := err.Error()
	if msg == "" {
		msg = msgUnknown
	}
	return &AppError{Type: APIError, Message: msg, Retryable: false}
}

func isNoResponse(err error) bool {
	if errors.Is(err, ErrNoResponse) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isParseFailure(err error) bool {
	if errors.Is(err, ErrMalformedBody) {
		return true
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

// UserFriendlyMessage 面向用户的提示文案，与原始技术信息无关；
// 仅 5xx 以下的 API 错误会透出上游给出的 message。
func UserFriendlyMessage(e *AppError) string {
	if e == nil {
		return ""
	}
	switch e.Type {
	case NetworkError:
		return msgNetwork
	case APIError:
		if e.Code >= 500 {
			return msgUnavailable
		}
		if e.Message != "" {
			return e.Message
		}
		return msgAPIFailed
	case ParseError:
		return msgParse
	case ValidationError:
		if e.Message != "" {
			return e.Message
		}
		return msgValidation
	default:
		return msgUnknown
	}
}
