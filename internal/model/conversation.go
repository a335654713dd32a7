package model

import "time"

// Author 消息作者
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// ChatMessage 代表对话记录中的单条消息。
type ChatMessage struct {
	ID        string
	Text      string
	Author    Author
	Timestamp time.Time
}

// IsUser 是否为用户发送的消息
func (m ChatMessage) IsUser() bool {
	return m.Author == AuthorUser
}

// ConversationSummary 对话列表中的一项。
type ConversationSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
	MessageCount int    `json:"messageCount"`
}

// ConversationRecord 是开发后端持久化的对话。
type ConversationRecord struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	UserID    string    `gorm:"type:varchar(64);index;not null"`
	Title     string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ConversationRecord) TableName() string {
	return "conversations"
}

// MessageRecord 是开发后端持久化的对话消息，ID 自增。
type MessageRecord struct {
	ID             uint      `gorm:"primaryKey"`
	ConversationID string    `gorm:"type:varchar(64);index;not null"`
	Role           string    `gorm:"type:varchar(16);not null"`
	Content        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (MessageRecord) TableName() string {
	return "conversation_messages"
}
