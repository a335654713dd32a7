package api

import (
	"bytes"
	"encoding/json"
	"strconv"

	"quickplan-go/internal/model"
)

// ==================== 认证 ====================

// SendCodeRequest 发送验证码请求
type SendCodeRequest struct {
	Phone string `json:"phone"`
	Type  string `json:"type"` // login | register
}

// SendCodeData 发送验证码响应数据
type SendCodeData struct {
	ExpiresIn int    `json:"expiresIn"`
	Code      string `json:"code,omitempty"` // 仅开发后端的 debug 模式返回
}

// PhoneLoginRequest 手机号验证码登录
type PhoneLoginRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// PhoneRegisterRequest 手机号注册
type PhoneRegisterRequest struct {
	Phone    string  `json:"phone"`
	Code     string  `json:"code"`
	Password string  `json:"password"`
	Nickname *string `json:"nickname,omitempty"`
}

// EmailRegisterRequest 邮箱注册
type EmailRegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Nickname *string `json:"nickname,omitempty"`
}

// EmailLoginRequest 邮箱登录
type EmailLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// WechatUserInfo 微信授权返回的用户资料
type WechatUserInfo struct {
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl"`
	OpenID    string `json:"openId"`
}

// WechatLoginRequest 微信登录
type WechatLoginRequest struct {
	Code     string          `json:"code"`
	UserInfo *WechatUserInfo `json:"userInfo,omitempty"`
}

// QQUserInfo QQ 授权返回的用户资料
type QQUserInfo struct {
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl"`
}

// QQLoginRequest QQ 登录
type QQLoginRequest struct {
	AccessToken string      `json:"accessToken"`
	OpenID      string      `json:"openId"`
	UserInfo    *QQUserInfo `json:"userInfo,omitempty"`
}

// RefreshTokenRequest 刷新 token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LoginData 登录、注册与刷新成功后返回的数据
type LoginData struct {
	UserID       string            `json:"userId"`
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken"`
	ExpiresIn    int64             `json:"expiresIn"`
	UserInfo     model.UserProfile `json:"userInfo"`
}

// ==================== 日程 ====================

// ScheduleDto 日程的线上结构
type ScheduleDto struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Title       string  `json:"title"`
	Location    *string `json:"location"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Description *string `json:"description"`
}

// CreateScheduleRequest 创建日程
type CreateScheduleRequest struct {
	UserID      string  `json:"userId"`
	Title       string  `json:"title"`
	Location    *string `json:"location"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Description *string `json:"description"`
}

// UpdateScheduleRequest 更新日程
type UpdateScheduleRequest struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Title       string  `json:"title"`
	Location    *string `json:"location"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Description *string `json:"description"`
}

// ==================== 对话 ====================

// ChatRequest 发送一条对话消息
type ChatRequest struct {
	MemoryID string `json:"memoryId"`
	Message  string `json:"message"`
	UserID   string `json:"userId"`
}

// CreateConversationRequest 新建对话
type CreateConversationRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
}

// CreateConversationData 新建对话返回的数据
type CreateConversationData struct {
	ID FlexibleID `json:"id"`
}

// MessageDto 对话中的一条历史消息
type MessageDto struct {
	ID        FlexibleID `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	CreatedAt string     `json:"createdAt,omitempty"`
}

// FlexibleID 兼容后端以数字或字符串返回的 id
type FlexibleID string

// UnmarshalJSON 接受 JSON 字符串或数字
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexibleID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string { return string(f) }
