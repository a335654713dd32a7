// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"quickplan-go/internal/backend"
	"quickplan-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ok 返回 {success: true, message, data}
func ok(c *gin.Context, message string, data interface{}) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusOK, body)
}

// fail 把业务错误映射为对应状态码，其余错误记录日志后返回 500。
func fail(c *gin.Context, where string, err error) {
	var bizErr *backend.Error
	if errors.As(err, &bizErr) {
		log.Warnf("%s: %s", where, bizErr.Message)
		c.JSON(bizErr.Status, gin.H{"success": false, "message": bizErr.Message})
		return
	}
	log.Errorf("%s: %v", where, err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "服务器内部错误"})
}

// badPayload 请求体无法解析
func badPayload(c *gin.Context, where string, err error) {
	log.Warnf("%s: Invalid request payload, error: %v", where, err)
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "无效的请求负载"})
}
