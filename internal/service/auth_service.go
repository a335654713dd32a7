package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"quickplan-go/internal/api"
	"quickplan-go/internal/i18n"
	"quickplan-go/internal/model"
	"quickplan-go/internal/observable"
	"quickplan-go/internal/repository"
	"quickplan-go/pkg/log"
	"quickplan-go/pkg/token"
)

// CooldownSeconds 发送验证码后的冷却秒数
const CooldownSeconds = 60

// AuthAPI 定义了登录会话依赖的远端接口，*api.Client 实现了它。
type AuthAPI interface {
	SendVerificationCode(ctx context.Context, req api.SendCodeRequest) (*api.SendCodeData, error)
	PhoneRegister(ctx context.Context, req api.PhoneRegisterRequest) (*api.LoginData, error)
	EmailRegister(ctx context.Context, req api.EmailRegisterRequest) (*api.LoginData, error)
	PhoneLogin(ctx context.Context, req api.PhoneLoginRequest) (*api.LoginData, error)
	EmailLogin(ctx context.Context, req api.EmailLoginRequest) (*api.LoginData, error)
	WechatLogin(ctx context.Context, req api.WechatLoginRequest) (*api.LoginData, error)
	QQLogin(ctx context.Context, req api.QQLoginRequest) (*api.LoginData, error)
	RefreshToken(ctx context.Context, refreshToken string) (*api.LoginData, error)
	Logout(ctx context.Context, token string) error
	UserInfo(ctx context.Context, token string) (*model.UserProfile, error)
}

// AuthState 登录会话对外暴露的可订阅状态。ErrorMessage 与 Notice 为空字符串表示没有。
type AuthState struct {
	Profile      *observable.Value[*model.UserProfile]
	LoggedIn     *observable.Value[bool]
	Busy         *observable.Value[bool]
	ErrorMessage *observable.Value[string]
	Notice       *observable.Value[string]
	Cooldown     *observable.Value[int] // 0 表示可以再次发送验证码
}

// AuthService 接口定义了登录、注册、刷新与登出操作。
// 远端操作失败时同时设置 ErrorMessage 并返回错误，校验失败返回 *ValidationError 且不发请求。
type AuthService interface {
	SendVerificationCode(ctx context.Context, phone string) error
	PhoneLogin(ctx context.Context, phone, code string) error
	PhoneRegister(ctx context.Context, phone, code, password, confirm string, nickname *string) error
	EmailLogin(ctx context.Context, email, password string) error
	EmailRegister(ctx context.Context, email, password, confirm string, nickname *string) error
	WechatLogin(ctx context.Context, code string, hint *api.WechatUserInfo) error
	QQLogin(ctx context.Context, accessToken, openID string, hint *api.QQUserInfo) error
	Logout(ctx context.Context)
	RefreshSession(ctx context.Context) error
	EnsureFreshToken(ctx context.Context) error
	FetchProfile(ctx context.Context) error
	ClearError()
	State() *AuthState
	Close()
}

// AuthOptions 控制冷却计时与提前刷新窗口
type AuthOptions struct {
	CooldownTick time.Duration // 冷却每次递减的间隔，默认 1s
	RefreshSkew  time.Duration // access token 剩余有效期小于该值时刷新
}

type authService struct {
	api   AuthAPI
	store *repository.CredentialStore
	loc   *i18n.Localizer
	opts  AuthOptions
	state *AuthState

	// cooldownMu 保护 sending 与 cooldownStop；冷却检查与占用发送在同一临界区内完成
	cooldownMu   sync.Mutex
	sending      bool
	cooldownStop chan struct{}

	stop       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewAuthService 创建一个 AuthService，初始状态从凭证存储中恢复。
func NewAuthService(ctx context.Context, authAPI AuthAPI, store *repository.CredentialStore, loc *i18n.Localizer, opts AuthOptions) AuthService {
	if opts.CooldownTick <= 0 {
		opts.CooldownTick = time.Second
	}
	return &authService{
		api:   authAPI,
		store: store,
		loc:   loc,
		opts:  opts,
		state: &AuthState{
			Profile:      observable.NewValue(store.Profile(ctx)),
			LoggedIn:     observable.NewValue(store.IsLoggedIn(ctx)),
			Busy:         observable.NewValue(false),
			ErrorMessage: observable.NewValue(""),
			Notice:       observable.NewValue(""),
			Cooldown:     observable.NewValue(0),
		},
		stop: make(chan struct{}),
	}
}

func (s *authService) State() *AuthState { return s.state }

func (s *authService) ClearError() { s.state.ErrorMessage.Set("") }

// Close 停止冷却计时
func (s *authService) Close() {
	s.closeOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// SendVerificationCode 发送登录验证码，成功后开始 60 秒冷却。
func (s *authService) SendVerificationCode(ctx context.Context, phone string) error {
	switch {
	case blank(phone):
		return s.reject(ErrPhoneRequired)
	case !model.ValidPhone(phone):
		return s.reject(ErrPhoneInvalid)
	case !s.claimSend():
		return s.reject(ErrCooldownActive)
	}
	defer s.releaseSend()

	return s.run(i18n.MsgSendCodeFailed, func() error {
		if _, err := s.api.SendVerificationCode(ctx, api.SendCodeRequest{Phone: phone, Type: "login"}); err != nil {
			return err
		}
		s.state.Notice.Set(s.loc.Get(i18n.MsgCodeSent, nil))
		s.startCooldown(CooldownSeconds)
		return nil
	})
}

// PhoneLogin 手机号验证码登录
func (s *authService) PhoneLogin(ctx context.Context, phone, code string) error {
	if err := validatePhoneLogin(phone, code); err != nil {
		return s.reject(err)
	}
	return s.run(i18n.MsgLoginFailed, func() error {
		data, err := s.api.PhoneLogin(ctx, api.PhoneLoginRequest{Phone: phone, Code: code})
		if err != nil {
			return err
		}
		return s.handleLoginSuccess(ctx, data)
	})
}

// PhoneRegister 手机号注册
func (s *authService) PhoneRegister(ctx context.Context, phone, code, password, confirm string, nickname *string) error {
	if err := validatePhoneRegister(phone, code, password, confirm); err != nil {
		return s.reject(err)
	}
	return s.run(i18n.MsgRegisterFailed, func() error {
		data, err := s.api.PhoneRegister(ctx, api.PhoneRegisterRequest{
			Phone: phone, Code: code, Password: password, Nickname: nickname,
		})
		if err != nil {
			return err
		}
		return s.handleLoginSuccess(ctx, data)
	})
}

// EmailLogin 邮箱密码登录
func (s *authService) EmailLogin(ctx context.Context, email, password string) error {
	if err := validateEmailLogin(email, password); err != nil {
		return s.reject(err)
	}
	return s.run(i18n.MsgLoginFailed, func() error {
		data, err := s.api.EmailLogin(ctx, api.EmailLoginRequest{Email: email, Password: password})
		if err != nil {
			return err
		}
		return s.handleLoginSuccess(ctx, data)
	})
}

// EmailRegister 邮箱注册
func (s *authService) EmailRegister(ctx context.Context, email, password, confirm string, nickname *string) error {
	if err := validateEmailRegister(email, password, confirm); err != nil {
		return s.reject(err)
	}
	return s.run(i18n.MsgRegisterFailed, func() error {
		data, err := s.api.EmailRegister(ctx, api.EmailRegisterRequest{Email: email, Password: password, Nickname: nickname})
		if err != nil {
			return err
		}
		return s.handleLoginSuccess(ctx, data)
	})
}

// WechatLogin 微信授权码登录，不做本地校验
func (s *authService) WechatLogin(ctx context.Context, code string, hint *api.WechatUserInfo) error {
	return s.run(i18n.MsgWechatLoginFailed, func() error {
		data, err := s.api.WechatLogin(ctx, api.WechatLoginRequest{Code: code, UserInfo: hint})
		if err != nil {
			return err
		}
		return s.handleLoginSuccess(ctx, data)
	})
}

// QQLogin QQ 授权登录，不做本地校验
func (s *authService) QQLogin(ctx context.Context, accessToken, openID string, hint *api.QQUserInfo) error {
	return s.run(i18n.MsgQQLoginFailed, func() error {
		data, err := s.api.QQLogin(ctx, api.QQLoginRequest{AccessToken: accessToken, OpenID: openID, UserInfo: hint})
		if err != nil {
			return err
		}
		return s.handleLoginSuccess(ctx, data)
	})
}

// Logout 通知后端注销 token（失败只记录日志），无论结果如何都清除本地会话。
func (s *authService) Logout(ctx context.Context) {
	if tok, ok := s.store.Token(ctx); ok {
		if err := s.api.Logout(ctx, tok); err != nil {
			log.Warnf("[AuthService] 登出请求失败: %v", err)
		}
	}
	s.resetLocal(ctx)
}

// RefreshSession 用 refresh token 换取新的 token 对，只更新 token，用户信息不变。
// 服务器明确拒绝时清除本地会话；网络错误时保留会话。
func (s *authService) RefreshSession(ctx context.Context) error {
	refresh, ok := s.store.RefreshToken(ctx)
	if !ok || blank(refresh) {
		return s.reject(ErrNotLoggedIn)
	}
	return s.run(i18n.MsgRefreshFailed, func() error {
		data, err := s.api.RefreshToken(ctx, refresh)
		if err != nil {
			if sessionRejected(err) {
				log.Infof("[AuthService] refresh token 已失效，清除本地会话")
				s.resetLocal(ctx)
			}
			return err
		}
		if blank(data.Token) {
			return api.ErrMissingToken
		}
		return s.store.UpdateToken(ctx, data.Token, data.RefreshToken)
	})
}

// EnsureFreshToken 当 access token 是 JWT 且将在 RefreshSkew 内过期时刷新会话。
// 非 JWT 的 token 无法判断有效期，直接返回。
func (s *authService) EnsureFreshToken(ctx context.Context) error {
	tok, ok := s.store.Token(ctx)
	if !ok {
		return nil
	}
	exp, err := token.PeekExpiry(tok)
	if err != nil {
		log.Debugf("[AuthService] token 不是 JWT，跳过过期检查: %v", err)
		return nil
	}
	if time.Until(exp) > s.opts.RefreshSkew {
		return nil
	}
	return s.RefreshSession(ctx)
}

// FetchProfile 从后端重新拉取用户信息并写回凭证存储。
func (s *authService) FetchProfile(ctx context.Context) error {
	tok, ok := s.store.Token(ctx)
	if !ok {
		return s.reject(ErrNotLoggedIn)
	}
	refresh, _ := s.store.RefreshToken(ctx)
	return s.run(i18n.MsgFetchProfileFailed, func() error {
		profile, err := s.api.UserInfo(ctx, tok)
		if err != nil {
			return err
		}
		if err := s.store.Save(ctx, tok, refresh, *profile); err != nil {
			return err
		}
		s.state.Profile.Set(profile)
		return nil
	})
}

// handleLoginSuccess 持久化 token 与用户信息并更新状态
func (s *authService) handleLoginSuccess(ctx context.Context, data *api.LoginData) error {
	if data == nil || blank(data.Token) {
		return api.ErrMissingToken
	}
	if err := s.store.Save(ctx, data.Token, data.RefreshToken, data.UserInfo); err != nil {
		return err
	}
	profile := data.UserInfo
	s.state.Profile.Set(&profile)
	s.state.LoggedIn.Set(true)
	log.Infof("[AuthService] 登录成功: %s", profile.UserID)
	return nil
}

// run 包裹一次远端操作：置忙、清错误、执行、失败时写入错误文案。
func (s *authService) run(fallbackID string, fn func() error) error {
	s.state.Busy.Set(true)
	s.state.ErrorMessage.Set("")
	defer s.state.Busy.Set(false)

	if err := fn(); err != nil {
		log.Warnf("[AuthService] 操作失败: %v", err)
		s.state.ErrorMessage.Set(describeError(s.loc, err, fallbackID))
		return err
	}
	return nil
}

// reject 记录本地校验失败
func (s *authService) reject(err error) error {
	s.state.ErrorMessage.Set(describeError(s.loc, err, i18n.MsgLoginFailed))
	return err
}

func (s *authService) resetLocal(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		log.Error("[AuthService] 清除本地会话失败", err)
	}
	s.state.Profile.Set(nil)
	s.state.LoggedIn.Set(false)
	s.state.Busy.Set(false)
	s.state.ErrorMessage.Set("")
}

// claimSend 冷却中或已有发送在进行时返回 false
func (s *authService) claimSend() bool {
	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()
	if s.sending || s.state.Cooldown.Get() > 0 {
		return false
	}
	s.sending = true
	return true
}

func (s *authService) releaseSend() {
	s.cooldownMu.Lock()
	s.sending = false
	s.cooldownMu.Unlock()
}

// startCooldown 在独立 goroutine 中每个 tick 递减一次，直到 0。
// 同一时刻只有一个计时 goroutine，重新开始会停止上一个。
func (s *authService) startCooldown(seconds int) {
	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()

	if s.cooldownStop != nil {
		close(s.cooldownStop)
	}
	restart := make(chan struct{})
	s.cooldownStop = restart

	s.state.Cooldown.Set(seconds)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.CooldownTick)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-restart:
				return
			case <-ticker.C:
				if s.state.Cooldown.Update(func(n int) int {
					if n > 0 {
						return n - 1
					}
					return 0
				}) == 0 {
					return
				}
			}
		}
	}()
}

// sessionRejected 服务器明确拒绝 refresh token
func sessionRejected(err error) bool {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return true
	}
	var statusErr *api.StatusError
	return errors.As(err, &statusErr) &&
		(statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden)
}
