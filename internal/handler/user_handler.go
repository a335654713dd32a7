package handler

import (
	"net/http"

	"quickplan-go/internal/middleware"
	"quickplan-go/internal/model"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理用户资料相关的 API 请求。
type UserHandler struct{}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Info 返回当前登录用户的资料，用户由 AuthMiddleware 放入上下文。
func (h *UserHandler) Info(c *gin.Context) {
	user, exists := c.Get(middleware.ContextUser)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "未登录或登录已过期"})
		return
	}
	ok(c, "获取成功", user.(*model.User).Profile())
}
