package repository

import (
	"context"
	"fmt"

	"quickplan-go/internal/model"

	"gorm.io/gorm"
)

// ConversationRepository 定义了开发后端对话与消息的持久化操作。
type ConversationRepository interface {
	Create(ctx context.Context, conv *model.ConversationRecord) error
	FindByID(ctx context.Context, conversationID string) (*model.ConversationRecord, error)
	ListByUser(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	Delete(ctx context.Context, conversationID string) error
	AppendMessages(ctx context.Context, conversationID string, messages ...*model.MessageRecord) error
	Messages(ctx context.Context, conversationID string) ([]model.MessageRecord, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.ConversationRecord) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*model.ConversationRecord, error) {
	var conv model.ConversationRecord
	if err := r.db.WithContext(ctx).Where("id = ?", conversationID).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListByUser 返回用户的对话列表，最近更新的在前。
func (r *conversationRepository) ListByUser(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	var convs []model.ConversationRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		ConversationID string
		Total          int
	}
	var rows []countRow
	err := r.db.WithContext(ctx).Model(&model.MessageRecord{}).
		Select("conversation_id, COUNT(*) AS total").
		Joins("JOIN conversations ON conversations.id = conversation_messages.conversation_id").
		Where("conversations.user_id = ?", userID).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ConversationID] = row.Total
	}

	summaries := make([]model.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summaries = append(summaries, summarize(c, counts[c.ID]))
	}
	return summaries, nil
}

// Delete 删除对话及其全部消息。
func (r *conversationRepository) Delete(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&model.MessageRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", conversationID).Delete(&model.ConversationRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AppendMessages 追加消息并刷新对话的更新时间。
func (r *conversationRepository) AppendMessages(ctx context.Context, conversationID string, messages ...*model.MessageRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range messages {
			m.ConversationID = conversationID
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.ConversationRecord{}).Where("id = ?", conversationID).
			Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
	})
}

func (r *conversationRepository) Messages(ctx context.Context, conversationID string) ([]model.MessageRecord, error) {
	var msgs []model.MessageRecord
	err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Order("id ASC").Find(&msgs).Error
	return msgs, err
}

func summarize(c model.ConversationRecord, count int) model.ConversationSummary {
	return model.ConversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		CreatedAt:    model.LocalTime(c.CreatedAt).String(),
		UpdatedAt:    model.LocalTime(c.UpdatedAt).String(),
		MessageCount: count,
	}
}
