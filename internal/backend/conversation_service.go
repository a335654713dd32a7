package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"quickplan-go/internal/api"
	"quickplan-go/internal/model"
	"quickplan-go/internal/repository"
	"quickplan-go/pkg/log"

	"github.com/google/uuid"
)

// ConversationService 接口定义了对话管理与聊天操作。
type ConversationService interface {
	Create(ctx context.Context, userID, title string) (string, error)
	List(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	Messages(ctx context.Context, conversationID, userID string) ([]api.MessageDto, error)
	Delete(ctx context.Context, conversationID string) error
	// Chat 保存用户消息并生成助手回复
	Chat(ctx context.Context, req api.ChatRequest) (string, error)
}

type conversationService struct {
	repo      repository.ConversationRepository
	assistant *Assistant
}

// NewConversationService 创建一个新的 ConversationService 实例。
func NewConversationService(repo repository.ConversationRepository, assistant *Assistant) ConversationService {
	return &conversationService{repo: repo, assistant: assistant}
}

func (s *conversationService) Create(ctx context.Context, userID, title string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", badRequest("用户 id 不能为空")
	}
	if strings.TrimSpace(title) == "" {
		title = "新对话"
	}
	conv := &model.ConversationRecord{ID: uuid.NewString(), UserID: userID, Title: title}
	if err := s.repo.Create(ctx, conv); err != nil {
		return "", fmt.Errorf("创建对话失败: %w", err)
	}
	return conv.ID, nil
}

func (s *conversationService) List(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *conversationService) Messages(ctx context.Context, conversationID, userID string) ([]api.MessageDto, error) {
	if _, err := s.owned(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	records, err := s.repo.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	dtos := make([]api.MessageDto, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, api.MessageDto{
			ID:        api.FlexibleID(fmt.Sprint(r.ID)),
			Role:      r.Role,
			Content:   r.Content,
			CreatedAt: model.LocalTime(r.CreatedAt).String(),
		})
	}
	return dtos, nil
}

func (s *conversationService) Delete(ctx context.Context, conversationID string) error {
	if err := s.repo.Delete(ctx, conversationID); err != nil {
		return notFoundOr(err, "对话不存在")
	}
	return nil
}

// Chat 助手出错时只保存用户消息，该对话再次加载时最后一条是用户消息。
func (s *conversationService) Chat(ctx context.Context, req api.ChatRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", badRequest("消息不能为空")
	}
	if _, err := s.owned(ctx, req.MemoryID, req.UserID); err != nil {
		return "", err
	}

	userMsg := &model.MessageRecord{Role: string(model.AuthorUser), Content: req.Message}
	reply, err := s.assistant.Reply(ctx, req.UserID, req.Message)
	if err != nil {
		log.Errorf("[ConversationService] 生成回复失败, conversation: %s, error: %v", req.MemoryID, err)
		if saveErr := s.repo.AppendMessages(ctx, req.MemoryID, userMsg); saveErr != nil {
			log.Error("[ConversationService] 保存用户消息失败", saveErr)
		}
		return "", &Error{Status: http.StatusServiceUnavailable, Message: "AI 服务不可用"}
	}

	replyMsg := &model.MessageRecord{Role: string(model.AuthorAssistant), Content: reply}
	if err := s.repo.AppendMessages(ctx, req.MemoryID, userMsg, replyMsg); err != nil {
		return "", fmt.Errorf("保存消息失败: %w", err)
	}
	return reply, nil
}

// owned 校验对话存在且属于该用户
func (s *conversationService) owned(ctx context.Context, conversationID, userID string) (*model.ConversationRecord, error) {
	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, notFoundOr(err, "对话不存在")
	}
	if conv.UserID != userID {
		return nil, notFound("对话不存在")
	}
	return conv, nil
}
