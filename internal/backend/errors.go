// Package backend 实现了开发用后端的业务逻辑：账号、日程、对话与助手回复。
package backend

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Error 是可以直接返回给客户端的业务错误，Status 为 HTTP 状态码。
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func badRequest(msg string) *Error   { return &Error{Status: http.StatusBadRequest, Message: msg} }
func unauthorized(msg string) *Error { return &Error{Status: http.StatusUnauthorized, Message: msg} }
func notFound(msg string) *Error     { return &Error{Status: http.StatusNotFound, Message: msg} }
func conflict(msg string) *Error     { return &Error{Status: http.StatusConflict, Message: msg} }
func tooMany(msg string) *Error      { return &Error{Status: http.StatusTooManyRequests, Message: msg} }

// ErrUnauthorized token 缺失、无效、已过期或已注销
var ErrUnauthorized = unauthorized("未登录或登录已过期")

// notFoundOr 把 gorm.ErrRecordNotFound 转成 404，其余错误原样返回
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(msg)
	}
	return err
}
