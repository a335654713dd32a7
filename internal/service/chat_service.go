package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"quickplan-go/internal/api"
	"quickplan-go/internal/i18n"
	"quickplan-go/internal/model"
	"quickplan-go/internal/observable"
	"quickplan-go/internal/repository"
	"quickplan-go/pkg/log"

	"github.com/google/uuid"
)

const (
	// GuestUserID 未登录时对话接口使用的用户 id
	GuestUserID = "guest_user"
	// OCRTriggerPrefix 后端据此前缀触发创建日程的工具调用
	OCRTriggerPrefix = model.ScheduleCommandPrefix
)

var (
	// ErrOCREmpty 图片中没有识别到文字
	ErrOCREmpty = errors.New("ocr returned no text")
	// ErrNoRecognizer 未配置 OCR 识别器
	ErrNoRecognizer = errors.New("ocr recognizer not configured")
)

// ChatAPI 定义了对话管理依赖的远端接口，*api.Client 实现了它。
type ChatAPI interface {
	SendChat(ctx context.Context, req api.ChatRequest) (string, error)
	CreateConversation(ctx context.Context, req api.CreateConversationRequest) (string, error)
	ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	ConversationMessages(ctx context.Context, conversationID, userID string) ([]api.MessageDto, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

// Recognizer 从图片中提取文字
type Recognizer interface {
	RecognizeText(ctx context.Context, image io.Reader, fileName string) (string, error)
}

// ChatState 对话管理对外暴露的可订阅状态。
// 订阅回调中不要同步调用 ChatService 的方法。
type ChatState struct {
	ConversationID *observable.Value[string]
	Messages       *observable.Value[[]model.ChatMessage]
	Conversations  *observable.Value[[]model.ConversationSummary]
	Busy           *observable.Value[bool]
	ErrorMessage   *observable.Value[string]
	SidebarVisible *observable.Value[bool]
}

// ChatService 接口定义了对话与消息相关的操作。
type ChatService interface {
	SendMessage(ctx context.Context, text string) error
	LoadConversations(ctx context.Context)
	LoadConversation(ctx context.Context, conversationID string) error
	CreateNewConversation(ctx context.Context) error
	DeleteConversation(ctx context.Context, conversationID string) error
	StartNewConversation()
	ProcessOCRImage(ctx context.Context, image io.Reader, fileName string) error
	ToggleSidebar()
	ClearError()
	SetError(message string)
	State() *ChatState
}

type chatService struct {
	api      ChatAPI
	profiles repository.ProfileSource
	ocr      Recognizer
	loc      *i18n.Localizer
	state    *ChatState

	// mu 保护 seq/cancel 以及对状态的读改写。
	// 同一时刻只有一个发送（或加载）操作有效，seq 不再是当前值的操作不得再修改状态。
	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	creating *conversationCreate // 尚未被任何发送采用的创建对话请求
}

// conversationCreate 是发送时发起的一次创建对话请求。
// 发起它的发送被取消后请求仍会完成，结果由下一次发送采用，后端不会多出空对话。
type conversationCreate struct {
	done chan struct{}
	id   string
	err  error
}

func (c *conversationCreate) wait(ctx context.Context) (string, error) {
	select {
	case <-c.done:
		return c.id, c.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// NewChatService 创建一个新的 ChatService 实例。ocr 可以为 nil，此时图片识别不可用。
func NewChatService(chatAPI ChatAPI, profiles repository.ProfileSource, ocr Recognizer, loc *i18n.Localizer) ChatService {
	return &chatService{
		api:      chatAPI,
		profiles: profiles,
		ocr:      ocr,
		loc:      loc,
		state: &ChatState{
			ConversationID: observable.NewValue(""),
			Messages:       observable.NewValue([]model.ChatMessage{}),
			Conversations:  observable.NewValue([]model.ConversationSummary{}),
			Busy:           observable.NewValue(false),
			ErrorMessage:   observable.NewValue(""),
			SidebarVisible: observable.NewValue(false),
		},
	}
}

func (s *chatService) State() *ChatState { return s.state }

// SendMessage 发送一条消息。没有当前对话时先创建对话；新的发送会取消尚未完成的上一次发送。
func (s *chatService) SendMessage(ctx context.Context, text string) error {
	if blank(text) {
		return nil
	}
	return s.send(ctx, text, text)
}

// send 是 SendMessage 与图片识别共用的发送流程，display 显示在对话中，payload 发往后端。
func (s *chatService) send(parent context.Context, display, payload string) error {
	seq, ctx, release := s.begin(parent)
	defer release()

	s.apply(seq, func() {
		s.state.Busy.Set(true)
		s.state.ErrorMessage.Set("")
	})

	convID := s.state.ConversationID.Get()
	if convID == "" {
		pending := s.pendingConversation(ctx)
		id, err := pending.wait(ctx)
		if err != nil {
			s.apply(seq, func() {
				s.state.ErrorMessage.Set(describeError(s.loc, err, i18n.MsgCreateConversationFail))
				s.state.Busy.Set(false)
			})
			return err
		}
		if !s.apply(seq, func() {
			s.state.ConversationID.Set(id)
			s.state.SidebarVisible.Set(false)
			if s.creating == pending {
				s.creating = nil
			}
		}) {
			return context.Canceled
		}
		convID = id
		s.refreshSummaries(ctx)
	}

	userMsg := newMessage(display, model.AuthorUser)
	placeholder := newMessage(s.loc.Get(i18n.MsgThinking, nil), model.AuthorAssistant)
	if !s.apply(seq, func() { s.appendMessages(userMsg, placeholder) }) {
		return context.Canceled
	}

	reply, err := s.api.SendChat(ctx, api.ChatRequest{
		MemoryID: convID,
		Message:  payload,
		UserID:   s.currentUserID(ctx),
	})
	if err != nil {
		var apiErr *api.APIError
		applied := s.apply(seq, func() {
			msg := s.failureText(err, i18n.MsgSendFailed)
			if errors.As(err, &apiErr) {
				// 后端已经应答，占位消息改为失败原因
				s.replaceMessageText(placeholder.ID, msg)
			} else {
				s.removeMessage(placeholder.ID)
			}
			s.state.ErrorMessage.Set(msg)
			s.state.Busy.Set(false)
		})
		if !applied {
			log.Debugf("[ChatService] 丢弃已取消的发送结果: %v", err)
			return context.Canceled
		}
		log.Warnf("[ChatService] 发送消息失败: %v", err)
		return err
	}

	if !s.apply(seq, func() {
		s.replaceMessageText(placeholder.ID, reply)
		s.state.Busy.Set(false)
	}) {
		log.Debugf("[ChatService] 丢弃已取消的回复")
		return context.Canceled
	}
	s.refreshSummaries(ctx)
	return nil
}

// LoadConversations 刷新对话列表。忙时直接返回，失败只记录日志。
func (s *chatService) LoadConversations(ctx context.Context) {
	if s.state.Busy.Get() {
		return
	}
	s.refreshSummaries(ctx)
}

// LoadConversation 加载一个历史对话。会先取消进行中的发送并立即清空当前记录。
func (s *chatService) LoadConversation(parent context.Context, conversationID string) error {
	seq, ctx, release := s.begin(parent)
	defer release()

	s.apply(seq, func() {
		s.state.Messages.Set([]model.ChatMessage{})
		s.state.Busy.Set(true)
		s.state.ErrorMessage.Set("")
	})

	dtos, err := s.api.ConversationMessages(ctx, conversationID, s.currentUserID(ctx))
	if err != nil {
		s.apply(seq, func() {
			s.state.ErrorMessage.Set(s.failureText(err, i18n.MsgLoadConversationFailed))
			s.state.Busy.Set(false)
		})
		log.Warnf("[ChatService] 加载对话 %s 失败: %v", conversationID, err)
		return err
	}

	messages := make([]model.ChatMessage, 0, len(dtos)+1)
	for _, dto := range dtos {
		messages = append(messages, toChatMessage(dto))
	}
	// 最后一条是用户消息说明助手没有回复
	if n := len(messages); n > 0 && messages[n-1].IsUser() {
		messages = append(messages, newMessage(s.loc.Get(i18n.MsgAIUnavailable, nil), model.AuthorAssistant))
	}

	if !s.apply(seq, func() {
		s.state.ConversationID.Set(conversationID)
		s.state.Messages.Set(messages)
		s.state.SidebarVisible.Set(false)
		s.state.Busy.Set(false)
	}) {
		return context.Canceled
	}
	return nil
}

// CreateNewConversation 在后端创建一个新对话并切换过去。
func (s *chatService) CreateNewConversation(parent context.Context) error {
	seq, ctx, release := s.begin(parent)
	defer release()

	s.apply(seq, func() {
		s.state.Busy.Set(true)
		s.state.ErrorMessage.Set("")
	})

	id, err := s.createConversation(ctx)
	if err != nil {
		s.apply(seq, func() {
			s.state.ErrorMessage.Set(describeError(s.loc, err, i18n.MsgCreateConversationFail))
			s.state.Busy.Set(false)
		})
		return err
	}

	if !s.apply(seq, func() {
		s.state.ConversationID.Set(id)
		s.state.Messages.Set([]model.ChatMessage{})
		s.state.SidebarVisible.Set(false)
		s.state.Busy.Set(false)
	}) {
		return context.Canceled
	}
	s.refreshSummaries(ctx)
	return nil
}

// DeleteConversation 删除对话。删除的是当前对话时清空当前记录。
// 失败只记录日志并返回错误，不写入 ErrorMessage。
func (s *chatService) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := s.api.DeleteConversation(ctx, conversationID); err != nil {
		log.Warnf("[ChatService] 删除对话 %s 失败: %v", conversationID, err)
		return err
	}

	s.mu.Lock()
	if s.creating != nil && s.creating.id == conversationID {
		s.creating = nil
	}
	if s.state.ConversationID.Get() == conversationID {
		s.cancelLocked()
		s.state.ConversationID.Set("")
		s.state.Messages.Set([]model.ChatMessage{})
		s.state.Busy.Set(false)
	}
	s.mu.Unlock()

	s.refreshSummaries(ctx)
	return nil
}

// StartNewConversation 纯本地操作：取消进行中的发送并重置全部状态。
// 真正的对话在下一次发送时才会创建。
func (s *chatService) StartNewConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.state.ConversationID.Set("")
	s.state.Messages.Set([]model.ChatMessage{})
	s.state.SidebarVisible.Set(false)
	s.state.Busy.Set(false)
	s.state.ErrorMessage.Set("")
}

// ProcessOCRImage 识别图片中的文字，并以创建日程的指令发送给助手。
func (s *chatService) ProcessOCRImage(ctx context.Context, image io.Reader, fileName string) error {
	if s.ocr == nil {
		return ErrNoRecognizer
	}

	recognizing := newMessage(s.loc.Get(i18n.MsgOCRRecognizing, nil), model.AuthorAssistant)
	s.locked(func() { s.appendMessages(recognizing) })

	text, err := s.ocr.RecognizeText(ctx, image, fileName)
	s.locked(func() { s.removeMessage(recognizing.ID) })

	if err != nil {
		detail := map[string]interface{}{"Detail": err.Error()}
		s.locked(func() {
			s.appendMessages(newMessage(s.loc.Get(i18n.MsgOCRErrorMessage, detail), model.AuthorAssistant))
			s.state.ErrorMessage.Set(s.loc.Get(i18n.MsgOCRError, detail))
		})
		log.Warnf("[ChatService] 图片识别失败: %v", err)
		return err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.locked(func() {
			s.appendMessages(newMessage(s.loc.Get(i18n.MsgOCREmptyMessage, nil), model.AuthorAssistant))
			s.state.ErrorMessage.Set(s.loc.Get(i18n.MsgOCREmpty, nil))
		})
		return ErrOCREmpty
	}

	display := s.loc.Get(i18n.MsgOCRDisplay, map[string]interface{}{"Text": text})
	return s.send(ctx, display, OCRTriggerPrefix+text)
}

func (s *chatService) ToggleSidebar() {
	s.state.SidebarVisible.Update(func(v bool) bool { return !v })
}

func (s *chatService) ClearError() { s.state.ErrorMessage.Set("") }

func (s *chatService) SetError(message string) { s.state.ErrorMessage.Set(message) }

// begin 开启一个新的主操作：取消上一个并分配新的序号。
// 返回的 release 在操作结束时释放 context。
func (s *chatService) begin(parent context.Context) (uint64, context.Context, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	ctx, cancel := context.WithCancel(parent)
	seq := s.seq
	s.cancel = cancel

	return seq, ctx, func() {
		s.mu.Lock()
		if s.seq == seq {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}
}

// cancelLocked 取消当前主操作并使其序号失效，调用方需持有 mu。
func (s *chatService) cancelLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}

// apply 仅当 seq 仍是当前操作时在锁内执行 fn，返回是否执行。
func (s *chatService) apply(seq uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return false
	}
	fn()
	return true
}

func (s *chatService) locked(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *chatService) createConversation(ctx context.Context) (string, error) {
	return s.api.CreateConversation(ctx, api.CreateConversationRequest{
		UserID: s.currentUserID(ctx),
		Title:  s.loc.Get(i18n.MsgConversationTitle, nil),
	})
}

// pendingConversation 返回尚未被采用的创建请求，没有时发起一个新的。
// 请求不随发送取消，失败时自行清除。
func (s *chatService) pendingConversation(ctx context.Context) *conversationCreate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creating != nil {
		return s.creating
	}

	c := &conversationCreate{done: make(chan struct{})}
	s.creating = c
	go func() {
		id, err := s.createConversation(context.WithoutCancel(ctx))
		s.mu.Lock()
		c.id, c.err = id, err
		if err != nil && s.creating == c {
			s.creating = nil
		}
		s.mu.Unlock()
		close(c.done)
	}()
	return c
}

// refreshSummaries 拉取对话列表，失败只记录日志
func (s *chatService) refreshSummaries(ctx context.Context) {
	list, err := s.api.ListConversations(ctx, s.currentUserID(ctx))
	if err != nil {
		log.Debugf("[ChatService] 刷新对话列表失败: %v", err)
		return
	}
	if list == nil {
		list = []model.ConversationSummary{}
	}
	s.state.Conversations.Set(list)
}

func (s *chatService) currentUserID(ctx context.Context) string {
	if s.profiles != nil {
		if p := s.profiles.Profile(ctx); p != nil && p.UserID != "" {
			return p.UserID
		}
	}
	return GuestUserID
}

// failureText 没有服务器原因的 HTTP 错误使用 statusMsgID 模板
func (s *chatService) failureText(err error, statusMsgID string) string {
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Message == "" {
		return s.loc.Get(statusMsgID, map[string]interface{}{"Code": statusErr.Code})
	}
	return describeError(s.loc, err, i18n.MsgAIUnavailable)
}

// 以下方法修改对话记录，调用方需持有 mu

func (s *chatService) appendMessages(msgs ...model.ChatMessage) {
	s.state.Messages.Update(func(cur []model.ChatMessage) []model.ChatMessage {
		next := make([]model.ChatMessage, 0, len(cur)+len(msgs))
		next = append(next, cur...)
		return append(next, msgs...)
	})
}

func (s *chatService) replaceMessageText(id, text string) {
	s.state.Messages.Update(func(cur []model.ChatMessage) []model.ChatMessage {
		next := make([]model.ChatMessage, len(cur))
		copy(next, cur)
		for i := range next {
			if next[i].ID == id {
				next[i].Text = text
			}
		}
		return next
	})
}

func (s *chatService) removeMessage(id string) {
	s.state.Messages.Update(func(cur []model.ChatMessage) []model.ChatMessage {
		next := make([]model.ChatMessage, 0, len(cur))
		for _, m := range cur {
			if m.ID != id {
				next = append(next, m)
			}
		}
		return next
	})
}

func newMessage(text string, author model.Author) model.ChatMessage {
	return model.ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Author:    author,
		Timestamp: time.Now(),
	}
}

var messageTimeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

func toChatMessage(dto api.MessageDto) model.ChatMessage {
	author := model.AuthorAssistant
	if dto.Role == string(model.AuthorUser) {
		author = model.AuthorUser
	}
	id := dto.ID.String()
	if id == "" {
		id = uuid.NewString()
	}
	ts := time.Now()
	for _, layout := range messageTimeLayouts {
		if t, err := time.ParseInLocation(layout, dto.CreatedAt, time.Local); err == nil {
			ts = t
			break
		}
	}
	return model.ChatMessage{ID: id, Text: dto.Content, Author: author, Timestamp: ts}
}
