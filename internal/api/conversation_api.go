package api

import (
	"context"
	"net/http"
	"net/url"

	"quickplan-go/internal/model"
)

// SendChat POST api/ai/chat，成功时返回 message 字段中的助手回复。
func (c *Client) SendChat(ctx context.Context, req ChatRequest) (string, error) {
	return c.do(ctx, call{op: "ai.chat", method: http.MethodPost, path: "api/ai/chat", body: req}, nil)
}

// CreateConversation POST api/ai/chat/new，返回新对话 id
func (c *Client) CreateConversation(ctx context.Context, req CreateConversationRequest) (string, error) {
	var data CreateConversationData
	msg, err := c.do(ctx, call{op: "ai.chat_new", method: http.MethodPost, path: "api/ai/chat/new", body: req}, &data)
	if err != nil {
		return "", err
	}
	if data.ID == "" {
		return "", &APIError{Op: "ai.chat_new", Message: msg}
	}
	return data.ID.String(), nil
}

// ListConversations GET api/conversation/list/{userId}
func (c *Client) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	var list []model.ConversationSummary
	_, err := c.do(ctx, call{op: "conversation.list", method: http.MethodGet, path: "api/conversation/list/" + escape(userID)}, &list)
	return list, err
}

// ConversationMessages GET api/conversation/messages/{id}?userId=
func (c *Client) ConversationMessages(ctx context.Context, conversationID, userID string) ([]MessageDto, error) {
	var list []MessageDto
	q := url.Values{"userId": {userID}}
	_, err := c.do(ctx, call{op: "conversation.messages", method: http.MethodGet, path: "api/conversation/messages/" + escape(conversationID), query: q}, &list)
	return list, err
}

// DeleteConversation DELETE api/conversation/delete/{id}
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := c.do(ctx, call{op: "conversation.delete", method: http.MethodDelete, path: "api/conversation/delete/" + escape(conversationID)}, nil)
	return err
}
