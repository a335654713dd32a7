package handler

import (
	"quickplan-go/internal/backend"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 负责处理对话历史相关的 API 请求。
type ConversationHandler struct {
	conversations backend.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler 实例。
func NewConversationHandler(conversations backend.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// List 返回用户的对话摘要，最近更新的在前。
func (h *ConversationHandler) List(c *gin.Context) {
	list, err := h.conversations.List(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, "ListConversations", err)
		return
	}
	ok(c, "获取成功", list)
}

// Messages 返回对话中的全部消息，按时间先后排列。
func (h *ConversationHandler) Messages(c *gin.Context) {
	list, err := h.conversations.Messages(c.Request.Context(), c.Param("id"), c.Query("userId"))
	if err != nil {
		fail(c, "ConversationMessages", err)
		return
	}
	ok(c, "获取成功", list)
}

// Delete 删除对话及其消息。
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.conversations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, "DeleteConversation", err)
		return
	}
	ok(c, "删除成功", nil)
}
