package api

import (
	"errors"
	"fmt"
)

// TransportError 请求没有拿到任何响应：网络不可达、超时或被取消。
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError 服务器返回了非 2xx 状态码。
// 响应体是标准信封时 Message 为其中的 message，否则为空。
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.Code)
}

// APIError 服务器返回 2xx 但 success=false，Message 是服务器给出的原因。
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IntegrityError 服务器返回的数据违反约束，例如日程 id 为空。
type IntegrityError struct {
	Entity string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
}

// ErrBlankScheduleID 服务器返回的日程 id 为空
var ErrBlankScheduleID = &IntegrityError{Entity: "schedule", Reason: "服务器返回的日程ID为空，无法创建日程。"}

// ErrMissingToken 登录类接口返回 success=true 但没有 token
var ErrMissingToken = &IntegrityError{Entity: "login", Reason: "服务器未返回 token"}

// IsTransport 判断 err 是否为传输层错误
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ServerMessage 返回服务器给出的失败原因；不是服务器错误或没有原因时返回空字符串。
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message
	}
	return ""
}
