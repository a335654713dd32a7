// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// token 类型
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrWrongTokenType token 类型与期望不符，例如用 refresh token 调用业务接口。
var ErrWrongTokenType = errors.New("wrong token type")

// JWTManager 负责管理 JWT 的生成和验证。
type JWTManager struct {
	secretKey       []byte        // 签名和验证 token 的密钥
	accessTokenDur  time.Duration // access token 的有效期
	refreshTokenDur time.Duration // refresh token 的有效期
}

// CustomClaims 定义了 JWT 中存储的自定义数据。
type CustomClaims struct {
	UserID    string `json:"userId"`
	LoginType string `json:"loginType"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
// accessTokenExpireHours: access token 的过期时间（小时）。
// refreshTokenExpireDays: refresh token 的过期时间（天）。
func NewJWTManager(secret string, accessTokenExpireHours, refreshTokenExpireDays int) *JWTManager {
	return NewJWTManagerWithDurations(secret,
		time.Hour*time.Duration(accessTokenExpireHours),
		time.Duration(refreshTokenExpireDays)*24*time.Hour)
}

// NewJWTManagerWithDurations 以任意有效期创建 JWTManager，测试中用来构造即将过期的 token。
func NewJWTManagerWithDurations(secret string, accessDur, refreshDur time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:       []byte(secret),
		accessTokenDur:  accessDur,
		refreshTokenDur: refreshDur,
	}
}

// AccessTokenTTL access token 的有效期
func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.accessTokenDur
}

// GenerateToken 生成一个新的 access token。
func (m *JWTManager) GenerateToken(userID, loginType string) (string, error) {
	return m.generate(userID, loginType, TypeAccess, m.accessTokenDur)
}

// GenerateRefreshToken 生成一个新的 refresh token，有效期更长。
func (m *JWTManager) GenerateRefreshToken(userID, loginType string) (string, error) {
	return m.generate(userID, loginType, TypeRefresh, m.refreshTokenDur)
}

func (m *JWTManager) generate(userID, loginType, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		UserID:    userID,
		LoginType: loginType,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 验证 token 的签名与有效期，返回其中的 claims。
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// VerifyTyped 验证 token 并要求其类型为 tokenType。
func (m *JWTManager) VerifyTyped(tokenString, tokenType string) (*CustomClaims, error) {
	claims, err := m.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// PeekExpiry 不校验签名，只读出 token 的过期时间。客户端据此判断是否需要提前刷新。
func PeekExpiry(tokenString string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

// GenerateNumericCode 生成指定位数的数字验证码
func GenerateNumericCode(digits int) string {
	code := make([]byte, digits)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// 随机源不可用时退化为时间戳
			return fmt.Sprintf("%0*d", digits, time.Now().UnixNano()%pow10(digits))
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code)
}

func pow10(n int) int64 {
	p := int64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}
