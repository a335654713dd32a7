// Package i18n 提供面向用户的提示文案，默认中文。
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Languages 内置支持的语言
var Languages = []string{"zh", "en"}

// Localizer 按语言返回提示文案
type Localizer struct {
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer 加载内置语言文件，defaultLanguage 不受支持时回退到中文。
func NewLocalizer(defaultLanguage string) (*Localizer, error) {
	bundle := i18n.NewBundle(language.Chinese)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	localizers := make(map[string]*i18n.Localizer, len(Languages))
	for _, lang := range Languages {
		if _, err := bundle.LoadMessageFileFS(localeFS, fmt.Sprintf("locales/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	if _, ok := localizers[defaultLanguage]; !ok {
		defaultLanguage = "zh"
	}
	return &Localizer{defaultLanguage: defaultLanguage, localizers: localizers}, nil
}

// MustNewLocalizer 与 NewLocalizer 相同，失败时 panic。内置文件总能加载，测试和入口直接使用。
func MustNewLocalizer(defaultLanguage string) *Localizer {
	l, err := NewLocalizer(defaultLanguage)
	if err != nil {
		panic(err)
	}
	return l
}

// Get 以默认语言返回文案
func (l *Localizer) Get(messageID string, data map[string]interface{}) string {
	return l.GetIn(l.defaultLanguage, messageID, data)
}

// GetIn 以指定语言返回文案，找不到时返回 messageID。
func (l *Localizer) GetIn(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// Message IDs
const (
	MsgPhoneRequired          = "phone_required"
	MsgPhoneInvalid           = "phone_invalid"
	MsgCooldownActive         = "cooldown_active"
	MsgCodeSent               = "code_sent"
	MsgPhoneCodeRequired      = "phone_code_required"
	MsgCodeRequired           = "code_required"
	MsgPasswordRequired       = "password_required"
	MsgPasswordTooShort       = "password_too_short"
	MsgPasswordMismatch       = "password_mismatch"
	MsgEmailPasswordRequired  = "email_password_required"
	MsgEmailRequired          = "email_required"
	MsgEmailInvalid           = "email_invalid"
	MsgNetworkError           = "network_error"
	MsgHTTPError              = "http_error"
	MsgSendCodeFailed         = "send_code_failed"
	MsgLoginFailed            = "login_failed"
	MsgRegisterFailed         = "register_failed"
	MsgWechatLoginFailed      = "wechat_login_failed"
	MsgQQLoginFailed          = "qq_login_failed"
	MsgRefreshFailed          = "refresh_failed"
	MsgFetchProfileFailed     = "fetch_profile_failed"
	MsgNotLoggedIn            = "not_logged_in"
	MsgThinking               = "thinking"
	MsgAIUnavailable          = "ai_unavailable"
	MsgConversationTitle      = "conversation_title"
	MsgCreateConversationFail = "create_conversation_failed"
	MsgSendFailed             = "send_failed"
	MsgLoadConversationFailed = "load_conversation_failed"
	MsgOCRRecognizing         = "ocr_recognizing"
	MsgOCREmpty               = "ocr_empty"
	MsgOCREmptyMessage        = "ocr_empty_message"
	MsgOCRError               = "ocr_error"
	MsgOCRErrorMessage        = "ocr_error_message"
	MsgOCRDisplay             = "ocr_display"
)
