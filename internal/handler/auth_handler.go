package handler

import (
	"quickplan-go/internal/api"
	"quickplan-go/internal/backend"
	"quickplan-go/internal/middleware"
	"quickplan-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责处理验证码、注册、登录、刷新与登出请求。
type AuthHandler struct {
	accounts backend.AccountService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(accounts backend.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// SendCode 处理发送手机验证码请求。
func (h *AuthHandler) SendCode(c *gin.Context) {
	var req api.SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "SendCode", err)
		return
	}
	data, err := h.accounts.SendCode(c.Request.Context(), req.Phone, req.Type)
	if err != nil {
		fail(c, "SendCode", err)
		return
	}
	ok(c, "验证码已发送", data)
}

// PhoneRegister 处理手机号注册请求。
func (h *AuthHandler) PhoneRegister(c *gin.Context) {
	var req api.PhoneRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "PhoneRegister", err)
		return
	}
	h.respondLogin(c, "PhoneRegister", "注册成功")(h.accounts.PhoneRegister(c.Request.Context(), req))
}

// EmailRegister 处理邮箱注册请求。
func (h *AuthHandler) EmailRegister(c *gin.Context) {
	var req api.EmailRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "EmailRegister", err)
		return
	}
	h.respondLogin(c, "EmailRegister", "注册成功")(h.accounts.EmailRegister(c.Request.Context(), req))
}

// PhoneLogin 处理手机号验证码登录请求。
func (h *AuthHandler) PhoneLogin(c *gin.Context) {
	var req api.PhoneLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "PhoneLogin", err)
		return
	}
	h.respondLogin(c, "PhoneLogin", "登录成功")(h.accounts.PhoneLogin(c.Request.Context(), req))
}

// EmailLogin 处理邮箱密码登录请求。
func (h *AuthHandler) EmailLogin(c *gin.Context) {
	var req api.EmailLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "EmailLogin", err)
		return
	}
	h.respondLogin(c, "EmailLogin", "登录成功")(h.accounts.EmailLogin(c.Request.Context(), req))
}

// WechatLogin 处理微信登录请求。
func (h *AuthHandler) WechatLogin(c *gin.Context) {
	var req api.WechatLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "WechatLogin", err)
		return
	}
	h.respondLogin(c, "WechatLogin", "登录成功")(h.accounts.WechatLogin(c.Request.Context(), req))
}

// QQLogin 处理 QQ 登录请求。
func (h *AuthHandler) QQLogin(c *gin.Context) {
	var req api.QQLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "QQLogin", err)
		return
	}
	h.respondLogin(c, "QQLogin", "登录成功")(h.accounts.QQLogin(c.Request.Context(), req))
}

// RefreshToken 处理刷新 token 的请求。旧的 refresh token 会被作废。
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req api.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "RefreshToken", err)
		return
	}
	h.respondLogin(c, "RefreshToken", "刷新成功")(h.accounts.RefreshToken(c.Request.Context(), req.RefreshToken))
}

// Logout 处理登出请求，需经过 AuthMiddleware。
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), c.GetString(middleware.ContextToken)); err != nil {
		fail(c, "Logout", err)
		return
	}
	ok(c, "已退出登录", nil)
}

func (h *AuthHandler) respondLogin(c *gin.Context, where, message string) func(*api.LoginData, error) {
	return func(data *api.LoginData, err error) {
		if err != nil {
			fail(c, where, err)
			return
		}
		log.Infof("%s: user %s", where, data.UserID)
		ok(c, message, data)
	}
}
