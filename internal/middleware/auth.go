// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"quickplan-go/internal/backend"
	"quickplan-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 上下文中保存认证信息的 key
const (
	ContextUser   = "user"
	ContextClaims = "claims"
	ContextToken  = "token"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，校验签名、类型和黑名单，并将完整的 User 对象存入 Gin 的上下文中。
func AuthMiddleware(accounts backend.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "请求未包含授权头")
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abort(c, http.StatusUnauthorized, "无效的授权头格式")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		user, claims, err := accounts.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			var bizErr *backend.Error
			if errors.As(err, &bizErr) {
				abort(c, bizErr.Status, bizErr.Message)
				return
			}
			log.Error("AuthMiddleware: 认证失败", err)
			abort(c, http.StatusInternalServerError, "认证服务异常")
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextClaims, claims)
		c.Set(ContextToken, tokenString)
		c.Next()
	}
}

// abort 以统一信封中止请求
func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
