package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"quickplan-go/internal/api"
	"quickplan-go/internal/model"
	"quickplan-go/internal/repository"
	"quickplan-go/pkg/hash"
	"quickplan-go/pkg/log"
	"quickplan-go/pkg/token"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// CodeDigits 验证码位数
const CodeDigits = 6

// AccountOptions 控制验证码行为
type AccountOptions struct {
	CodeTTL      time.Duration // 验证码有效期
	SendInterval time.Duration // 同一号码两次发送的最小间隔
	ExposeCode   bool          // debug 模式下在响应中返回验证码
}

// AccountService 接口定义了所有与账号和登录会话相关的业务操作。
type AccountService interface {
	SendCode(ctx context.Context, phone, purpose string) (*api.SendCodeData, error)
	PhoneRegister(ctx context.Context, req api.PhoneRegisterRequest) (*api.LoginData, error)
	EmailRegister(ctx context.Context, req api.EmailRegisterRequest) (*api.LoginData, error)
	PhoneLogin(ctx context.Context, req api.PhoneLoginRequest) (*api.LoginData, error)
	EmailLogin(ctx context.Context, req api.EmailLoginRequest) (*api.LoginData, error)
	WechatLogin(ctx context.Context, req api.WechatLoginRequest) (*api.LoginData, error)
	QQLogin(ctx context.Context, req api.QQLoginRequest) (*api.LoginData, error)
	RefreshToken(ctx context.Context, refreshToken string) (*api.LoginData, error)
	Logout(ctx context.Context, accessToken string) error
	// Authenticate 校验 access token 并返回对应的用户
	Authenticate(ctx context.Context, accessToken string) (*model.User, *token.CustomClaims, error)
}

type accountService struct {
	users      repository.UserRepository
	jwtManager *token.JWTManager
	blacklist  TokenBlacklist
	codesMu    sync.Mutex // 保证验证码的比对与作废是一步完成的
	codes      *cache.Cache
	limiter    *codeLimiter
	opts       AccountOptions
}

// NewAccountService 创建一个新的 AccountService 实例。
func NewAccountService(users repository.UserRepository, jwtManager *token.JWTManager, blacklist TokenBlacklist, opts AccountOptions) AccountService {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 5 * time.Minute
	}
	return &accountService{
		users:      users,
		jwtManager: jwtManager,
		blacklist:  blacklist,
		codes:      cache.New(opts.CodeTTL, 10*time.Minute),
		limiter:    newCodeLimiter(opts.SendInterval),
		opts:       opts,
	}
}

// SendCode 生成并保存验证码。开发后端不接短信网关，验证码写入日志。
func (s *accountService) SendCode(_ context.Context, phone, purpose string) (*api.SendCodeData, error) {
	if !model.ValidPhone(phone) {
		return nil, badRequest("手机号格式不正确")
	}
	if !s.limiter.Allow(phone) {
		return nil, tooMany("验证码发送过于频繁，请稍后再试")
	}

	code := token.GenerateNumericCode(CodeDigits)
	s.codes.Set(phone, code, cache.DefaultExpiration)
	log.Infof("[AccountService] 验证码已生成, phone: %s, type: %s, code: %s", phone, purpose, code)

	data := &api.SendCodeData{ExpiresIn: int(s.opts.CodeTTL / time.Second)}
	if s.opts.ExposeCode {
		data.Code = code
	}
	return data, nil
}

// PhoneRegister 校验验证码后创建手机号账号。
func (s *accountService) PhoneRegister(ctx context.Context, req api.PhoneRegisterRequest) (*api.LoginData, error) {
	if !model.ValidPhone(req.Phone) {
		return nil, badRequest("手机号格式不正确")
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}
	if err := s.consumeCode(req.Phone, req.Code); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByPhone(ctx, req.Phone); err == nil {
		return nil, conflict("手机号已注册")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	phone := req.Phone
	user := &model.User{
		ID:        uuid.NewString(),
		Phone:     &phone,
		Password:  hashed,
		Nickname:  nicknameOr(req.Nickname, "用户"+phone[len(phone)-4:]),
		LoginType: model.LoginTypePhone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	log.Infof("[AccountService] 手机号用户注册成功: %s", user.ID)
	return s.issue(user)
}

// EmailRegister 创建邮箱账号。
func (s *accountService) EmailRegister(ctx context.Context, req api.EmailRegisterRequest) (*api.LoginData, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !model.ValidEmail(email) {
		return nil, badRequest("邮箱格式不正确")
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, conflict("邮箱已注册")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		ID:        uuid.NewString(),
		Email:     &email,
		Password:  hashed,
		Nickname:  nicknameOr(req.Nickname, strings.SplitN(email, "@", 2)[0]),
		LoginType: model.LoginTypeEmail,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	log.Infof("[AccountService] 邮箱用户注册成功: %s", user.ID)
	return s.issue(user)
}

// PhoneLogin 验证码登录，号码未注册时自动创建账号。
func (s *accountService) PhoneLogin(ctx context.Context, req api.PhoneLoginRequest) (*api.LoginData, error) {
	if !model.ValidPhone(req.Phone) {
		return nil, badRequest("手机号格式不正确")
	}
	if err := s.consumeCode(req.Phone, req.Code); err != nil {
		return nil, err
	}

	user, err := s.users.FindByPhone(ctx, req.Phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		phone := req.Phone
		user = &model.User{
			ID:        uuid.NewString(),
			Phone:     &phone,
			Nickname:  nicknameOr(nil, "用户"+phone[len(phone)-4:]),
			LoginType: model.LoginTypePhone,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("创建用户失败: %w", err)
		}
	} else if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// EmailLogin 邮箱密码登录。
func (s *accountService) EmailLogin(ctx context.Context, req api.EmailLoginRequest) (*api.LoginData, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unauthorized("邮箱或密码错误")
		}
		return nil, err
	}
	if !hash.CheckPasswordHash(req.Password, user.Password) {
		return nil, unauthorized("邮箱或密码错误")
	}
	return s.issue(user)
}

// WechatLogin 以授权码换取账号。开发后端没有对接微信，openId 取自用户资料或由授权码派生。
func (s *accountService) WechatLogin(ctx context.Context, req api.WechatLoginRequest) (*api.LoginData, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, badRequest("微信授权码不能为空")
	}
	openID := "wx_" + req.Code
	var nickname, avatar string
	if req.UserInfo != nil {
		if req.UserInfo.OpenID != "" {
			openID = "wx_" + req.UserInfo.OpenID
		}
		nickname, avatar = req.UserInfo.Nickname, req.UserInfo.AvatarURL
	}
	return s.thirdPartyLogin(ctx, openID, model.LoginTypeWechat, nickname, avatar)
}

// QQLogin 以 openId 换取账号。
func (s *accountService) QQLogin(ctx context.Context, req api.QQLoginRequest) (*api.LoginData, error) {
	if strings.TrimSpace(req.OpenID) == "" || strings.TrimSpace(req.AccessToken) == "" {
		return nil, badRequest("QQ 授权信息不完整")
	}
	var nickname, avatar string
	if req.UserInfo != nil {
		nickname, avatar = req.UserInfo.Nickname, req.UserInfo.AvatarURL
	}
	return s.thirdPartyLogin(ctx, "qq_"+req.OpenID, model.LoginTypeQQ, nickname, avatar)
}

func (s *accountService) thirdPartyLogin(ctx context.Context, openID string, loginType model.LoginType, nickname, avatar string) (*api.LoginData, error) {
	user, err := s.users.FindByOpenID(ctx, openID)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = &model.User{
		ID:        uuid.NewString(),
		OpenID:    &openID,
		LoginType: loginType,
	}
	if nickname != "" {
		user.Nickname = &nickname
	}
	if avatar != "" {
		user.Avatar = &avatar
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	log.Infof("[AccountService] 第三方用户注册成功: %s (%s)", user.ID, loginType)
	return s.issue(user)
}

// RefreshToken 校验 refresh token 并签发新的 token 对，旧的 refresh token 作废。
func (s *accountService) RefreshToken(ctx context.Context, refreshToken string) (*api.LoginData, error) {
	claims, err := s.jwtManager.VerifyTyped(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, unauthorized("refresh token 无效或已过期")
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, unauthorized("refresh token 已失效")
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, notFoundOr(err, "用户不存在")
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Logout 将 access token 加入黑名单，直到其自然过期。
func (s *accountService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtManager.VerifyTyped(accessToken, token.TypeAccess)
	if err != nil {
		return ErrUnauthorized
	}
	return s.blacklist.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

func (s *accountService) Authenticate(ctx context.Context, accessToken string) (*model.User, *token.CustomClaims, error) {
	claims, err := s.jwtManager.VerifyTyped(accessToken, token.TypeAccess)
	if err != nil {
		return nil, nil, ErrUnauthorized
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, err
	}
	return user, claims, nil
}

// issue 为用户签发 access token 与 refresh token
func (s *accountService) issue(user *model.User) (*api.LoginData, error) {
	loginType := string(user.LoginType)
	access, err := s.jwtManager.GenerateToken(user.ID, loginType)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(user.ID, loginType)
	if err != nil {
		return nil, err
	}
	return &api.LoginData{
		UserID:       user.ID,
		Token:        access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL() / time.Second),
		UserInfo:     user.Profile(),
	}, nil
}

// consumeCode 校验验证码，成功后立即作废
func (s *accountService) consumeCode(phone, code string) error {
	s.codesMu.Lock()
	defer s.codesMu.Unlock()
	stored, found := s.codes.Get(phone)
	if !found || code == "" || stored.(string) != code {
		return badRequest("验证码错误或已过期")
	}
	s.codes.Delete(phone)
	return nil
}

func checkPassword(password string) error {
	if len([]rune(password)) < model.MinPasswordLength {
		return badRequest(fmt.Sprintf("密码长度至少%d位", model.MinPasswordLength))
	}
	return nil
}

func nicknameOr(nickname *string, fallback string) *string {
	if nickname != nil && strings.TrimSpace(*nickname) != "" {
		n := strings.TrimSpace(*nickname)
		return &n
	}
	return &fallback
}
