package api

import (
	"context"
	"net/http"
	"strings"

	"quickplan-go/internal/model"
)

// SendVerificationCode POST api/auth/phone/send-code
func (c *Client) SendVerificationCode(ctx context.Context, req SendCodeRequest) (*SendCodeData, error) {
	if req.Type == "" {
		req.Type = "login"
	}
	var data SendCodeData
	_, err := c.do(ctx, call{op: "auth.send_code", method: http.MethodPost, path: "api/auth/phone/send-code", body: req}, &data)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// PhoneRegister POST api/auth/phone/register
func (c *Client) PhoneRegister(ctx context.Context, req PhoneRegisterRequest) (*LoginData, error) {
	return c.login(ctx, "auth.phone_register", "api/auth/phone/register", req)
}

// EmailRegister POST api/auth/email/register
func (c *Client) EmailRegister(ctx context.Context, req EmailRegisterRequest) (*LoginData, error) {
	return c.login(ctx, "auth.email_register", "api/auth/email/register", req)
}

// PhoneLogin POST api/auth/phone/login
func (c *Client) PhoneLogin(ctx context.Context, req PhoneLoginRequest) (*LoginData, error) {
	return c.login(ctx, "auth.phone_login", "api/auth/phone/login", req)
}

// EmailLogin POST api/auth/email/login
func (c *Client) EmailLogin(ctx context.Context, req EmailLoginRequest) (*LoginData, error) {
	return c.login(ctx, "auth.email_login", "api/auth/email/login", req)
}

// WechatLogin POST api/auth/wechat/login
func (c *Client) WechatLogin(ctx context.Context, req WechatLoginRequest) (*LoginData, error) {
	return c.login(ctx, "auth.wechat_login", "api/auth/wechat/login", req)
}

// QQLogin POST api/auth/qq/login
func (c *Client) QQLogin(ctx context.Context, req QQLoginRequest) (*LoginData, error) {
	return c.login(ctx, "auth.qq_login", "api/auth/qq/login", req)
}

// RefreshToken POST api/auth/refresh-token
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*LoginData, error) {
	return c.login(ctx, "auth.refresh_token", "api/auth/refresh-token", RefreshTokenRequest{RefreshToken: refreshToken})
}

// Logout POST api/auth/logout，携带 Bearer token
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, call{op: "auth.logout", method: http.MethodPost, path: "api/auth/logout", token: token}, nil)
	return err
}

// UserInfo GET api/user/info，携带 Bearer token
func (c *Client) UserInfo(ctx context.Context, token string) (*model.UserProfile, error) {
	var profile model.UserProfile
	if _, err := c.do(ctx, call{op: "user.info", method: http.MethodGet, path: "api/user/info", token: token}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// login 是登录、注册与刷新共用的调用，data 缺失或 token 为空时返回 ErrMissingToken。
func (c *Client) login(ctx context.Context, op, path string, body interface{}) (*LoginData, error) {
	var data *LoginData
	if _, err := c.do(ctx, call{op: op, method: http.MethodPost, path: path, body: body}, &data); err != nil {
		return nil, err
	}
	if data == nil || strings.TrimSpace(data.Token) == "" {
		return nil, ErrMissingToken
	}
	return data, nil
}
