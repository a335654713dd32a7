package handler

import (
	"net/http"

	"quickplan-go/internal/api"
	"quickplan-go/internal/backend"

	"github.com/gin-gonic/gin"
)

// ChatHandler 负责新建对话与发送消息。
type ChatHandler struct {
	conversations backend.ConversationService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(conversations backend.ConversationService) *ChatHandler {
	return &ChatHandler{conversations: conversations}
}

// New POST /api/ai/chat/new，data 中返回新对话 id
func (h *ChatHandler) New(c *gin.Context) {
	var req api.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "NewConversation", err)
		return
	}
	id, err := h.conversations.Create(c.Request.Context(), req.UserID, req.Title)
	if err != nil {
		fail(c, "NewConversation", err)
		return
	}
	ok(c, "创建成功", api.CreateConversationData{ID: api.FlexibleID(id)})
}

// Chat POST /api/ai/chat，助手回复放在 message 字段
func (h *ChatHandler) Chat(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "Chat", err)
		return
	}
	reply, err := h.conversations.Chat(c.Request.Context(), req)
	if err != nil {
		fail(c, "Chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": reply})
}
