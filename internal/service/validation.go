// Package service 包含了客户端的业务逻辑层：登录会话与对话管理。
package service

import (
	"strings"

	"quickplan-go/internal/i18n"
	"quickplan-go/internal/model"
)

// ValidationError 本地校验失败，不会发出任何请求。MsgID 对应一条提示文案。
type ValidationError struct {
	MsgID string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.MsgID
}

// 校验错误
var (
	ErrPhoneRequired         = &ValidationError{MsgID: i18n.MsgPhoneRequired}
	ErrPhoneInvalid          = &ValidationError{MsgID: i18n.MsgPhoneInvalid}
	ErrCooldownActive        = &ValidationError{MsgID: i18n.MsgCooldownActive}
	ErrPhoneCodeRequired     = &ValidationError{MsgID: i18n.MsgPhoneCodeRequired}
	ErrCodeRequired          = &ValidationError{MsgID: i18n.MsgCodeRequired}
	ErrPasswordRequired      = &ValidationError{MsgID: i18n.MsgPasswordRequired}
	ErrPasswordTooShort      = &ValidationError{MsgID: i18n.MsgPasswordTooShort}
	ErrPasswordMismatch      = &ValidationError{MsgID: i18n.MsgPasswordMismatch}
	ErrEmailPasswordRequired = &ValidationError{MsgID: i18n.MsgEmailPasswordRequired}
	ErrEmailRequired         = &ValidationError{MsgID: i18n.MsgEmailRequired}
	ErrEmailInvalid          = &ValidationError{MsgID: i18n.MsgEmailInvalid}
	ErrNotLoggedIn           = &ValidationError{MsgID: i18n.MsgNotLoggedIn}
)

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func validatePhoneLogin(phone, code string) error {
	if blank(phone) || blank(code) {
		return ErrPhoneCodeRequired
	}
	if !model.ValidPhone(phone) {
		return ErrPhoneInvalid
	}
	return nil
}

func validateEmailLogin(email, password string) error {
	if blank(email) || blank(password) {
		return ErrEmailPasswordRequired
	}
	if !model.ValidEmail(email) {
		return ErrEmailInvalid
	}
	return nil
}

func validatePassword(password, confirm string) error {
	if blank(password) {
		return ErrPasswordRequired
	}
	if len([]rune(password)) < model.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

func validatePhoneRegister(phone, code, password, confirm string) error {
	if blank(phone) {
		return ErrPhoneRequired
	}
	if !model.ValidPhone(phone) {
		return ErrPhoneInvalid
	}
	if blank(code) {
		return ErrCodeRequired
	}
	return validatePassword(password, confirm)
}

func validateEmailRegister(email, password, confirm string) error {
	if blank(email) {
		return ErrEmailRequired
	}
	if !model.ValidEmail(email) {
		return ErrEmailInvalid
	}
	return validatePassword(password, confirm)
}
