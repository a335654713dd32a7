package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"quickplan-go/internal/api"
	"quickplan-go/internal/i18n"
	"quickplan-go/internal/model"
	"quickplan-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatAPI 是内存中的对话后端，send 可替换以模拟慢请求
type fakeChatAPI struct {
	mu       sync.Mutex
	requests []api.ChatRequest
	creates  int
	lists    int
	deleted  []string
	messages []api.MessageDto
	loadErr  error
	listErr  error
	send     func(ctx context.Context, req api.ChatRequest) (string, error)
	create   func() // 创建对话前调用，可用于阻塞
}

func (f *fakeChatAPI) SendChat(ctx context.Context, req api.ChatRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	send := f.send
	f.mu.Unlock()
	if send != nil {
		return send(ctx, req)
	}
	return "reply:" + req.Message, nil
}

func (f *fakeChatAPI) CreateConversation(context.Context, api.CreateConversationRequest) (string, error) {
	if f.create != nil {
		f.create()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return "conv-new", nil
}

func (f *fakeChatAPI) ListConversations(context.Context, string) ([]model.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []model.ConversationSummary{{ID: "conv-new", Title: "新对话"}}, nil
}

func (f *fakeChatAPI) ConversationMessages(context.Context, string, string) ([]api.MessageDto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages, f.loadErr
}

func (f *fakeChatAPI) DeleteConversation(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRecognizer struct {
	text string
	err  error
}

func (f fakeRecognizer) RecognizeText(context.Context, io.Reader, string) (string, error) {
	return f.text, f.err
}

func texts(msgs []model.ChatMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func newChatFixture(fake ChatAPI, ocr Recognizer) ChatService {
	return NewChatService(fake, nil, ocr, i18n.MustNewLocalizer("zh"))
}

func writeEnvelope(w http.ResponseWriter, success bool, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": success, "message": message, "data": data})
}

// chatBackend 模拟后端，记录请求顺序，chat 接口的行为由 chat 决定。
// 返回的 order 读取到目前为止的请求顺序。
func chatBackend(t *testing.T, chat http.HandlerFunc) (client *api.Client, order func() []string) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ai/chat/new", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, "create")
		mu.Unlock()
		writeEnvelope(w, true, "ok", map[string]interface{}{"id": 42})
	})
	mux.HandleFunc("/api/ai/chat", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, "chat")
		mu.Unlock()
		chat(w, r)
	})
	mux.HandleFunc("/api/conversation/list/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, true, "ok", []interface{}{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(api.Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	return client, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), seen...)
	}
}

func TestSendMessageCreatesConversationFirst(t *testing.T) {
	client, order := chatBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "42", req.MemoryID)
		assert.Equal(t, GuestUserID, req.UserID)
		writeEnvelope(w, true, "你好，有什么可以帮你？", nil)
	})
	svc := newChatFixture(client, nil)

	require.NoError(t, svc.SendMessage(context.Background(), "hi"))

	assert.Equal(t, []string{"create", "chat"}, order())
	state := svc.State()
	assert.Equal(t, "42", state.ConversationID.Get())
	msgs := state.Messages.Get()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.True(t, msgs[0].IsUser())
	assert.Equal(t, "你好，有什么可以帮你？", msgs[1].Text)
	assert.Equal(t, model.AuthorAssistant, msgs[1].Author)
	assert.False(t, state.Busy.Get())
}

func TestSendMessageTimeoutRemovesPlaceholder(t *testing.T) {
	client, order := chatBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	svc := newChatFixture(client, nil)

	err := svc.SendMessage(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, api.IsTransport(err))

	require.Eventually(t, func() bool { return len(order()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"create", "chat"}, order())
	assert.Equal(t, []string{"hi"}, texts(svc.State().Messages.Get()))
	assert.True(t, strings.HasPrefix(svc.State().ErrorMessage.Get(), "网络错误: "))
	assert.False(t, svc.State().Busy.Get())
}

func TestSendMessagePayloadFailureKeepsPlaceholder(t *testing.T) {
	client, _ := chatBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, false, "AI 服务繁忙", nil)
	})
	svc := newChatFixture(client, nil)

	require.Error(t, svc.SendMessage(context.Background(), "hi"))
	assert.Equal(t, []string{"hi", "AI 服务繁忙"}, texts(svc.State().Messages.Get()))
	assert.Equal(t, "AI 服务繁忙", svc.State().ErrorMessage.Get())
}

func TestSendMessageStatusFailureRemovesPlaceholder(t *testing.T) {
	client, _ := chatBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	svc := newChatFixture(client, nil)

	require.Error(t, svc.SendMessage(context.Background(), "hi"))
	assert.Equal(t, []string{"hi"}, texts(svc.State().Messages.Get()))
	assert.Equal(t, "发送失败: 502", svc.State().ErrorMessage.Get())
}

func TestSendBlankIsNoop(t *testing.T) {
	fake := &fakeChatAPI{}
	svc := newChatFixture(fake, nil)

	require.NoError(t, svc.SendMessage(context.Background(), "   "))
	assert.Zero(t, fake.creates)
	assert.Empty(t, fake.requests)
	assert.Empty(t, svc.State().Messages.Get())
}

func TestNewSendDiscardsStaleReply(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fake := &fakeChatAPI{}
	fake.send = func(_ context.Context, req api.ChatRequest) (string, error) {
		if req.Message == "a" {
			close(started)
			// 忽略取消，模拟迟到的响应
			<-release
			return "reply-a", nil
		}
		return "reply-b", nil
	}
	svc := newChatFixture(fake, nil)
	ctx := context.Background()

	errA := make(chan error, 1)
	go func() { errA <- svc.SendMessage(ctx, "a") }()
	<-started

	require.NoError(t, svc.SendMessage(ctx, "b"))
	close(release)
	assert.ErrorIs(t, <-errA, context.Canceled)

	msgs := texts(svc.State().Messages.Get())
	assert.NotContains(t, msgs, "reply-a")
	assert.Equal(t, "reply-b", msgs[len(msgs)-1])
	assert.Equal(t, []string{"a", "正在思考...", "b", "reply-b"}, msgs)
	assert.Equal(t, 1, fake.creates)
	assert.False(t, svc.State().Busy.Get())
}

func TestNewSendReusesConversationCreatedByCancelledSend(t *testing.T) {
	createStarted := make(chan struct{})
	releaseCreate := make(chan struct{})
	fake := &fakeChatAPI{create: func() {
		close(createStarted)
		<-releaseCreate
	}}
	svc := newChatFixture(fake, nil)
	ctx := context.Background()

	errA := make(chan error, 1)
	go func() { errA <- svc.SendMessage(ctx, "a") }()
	<-createStarted

	errB := make(chan error, 1)
	go func() { errB <- svc.SendMessage(ctx, "b") }()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(releaseCreate)
	require.NoError(t, <-errB)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.creates)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, "conv-new", fake.requests[0].MemoryID)
	assert.Equal(t, "b", fake.requests[0].Message)
	assert.Equal(t, "conv-new", svc.State().ConversationID.Get())
	assert.Equal(t, []string{"b", "reply:b"}, texts(svc.State().Messages.Get()))
}

func TestLoadConversationAppendsUnavailableMarker(t *testing.T) {
	fake := &fakeChatAPI{messages: []api.MessageDto{
		{ID: "1", Role: "user", Content: "明天有什么安排", CreatedAt: "2024-03-01 10:00:00"},
		{ID: "2", Role: "assistant", Content: "明天没有日程"},
		{ID: "3", Role: "user", Content: "帮我加一个"},
	}}
	svc := newChatFixture(fake, nil)

	require.NoError(t, svc.LoadConversation(context.Background(), "conv-1"))

	state := svc.State()
	assert.Equal(t, "conv-1", state.ConversationID.Get())
	msgs := state.Messages.Get()
	assert.Equal(t, []string{"明天有什么安排", "明天没有日程", "帮我加一个", "AI 服务不可用"}, texts(msgs))
	assert.Equal(t, model.AuthorAssistant, msgs[3].Author)
	assert.Equal(t, 2024, msgs[0].Timestamp.Year())
}

func TestLoadConversationFailure(t *testing.T) {
	fake := &fakeChatAPI{loadErr: &api.APIError{Op: "conversation.messages", Message: "对话不存在"}}
	svc := newChatFixture(fake, nil)
	svc.State().Messages.Set([]model.ChatMessage{{ID: "x", Text: "旧消息"}})

	require.Error(t, svc.LoadConversation(context.Background(), "missing"))
	assert.Empty(t, svc.State().Messages.Get())
	assert.Empty(t, svc.State().ConversationID.Get())
	assert.Equal(t, "对话不存在", svc.State().ErrorMessage.Get())
}

func TestLoadConversationsSilentAndSkipsWhenBusy(t *testing.T) {
	fake := &fakeChatAPI{listErr: errors.New("boom")}
	svc := newChatFixture(fake, nil)

	svc.LoadConversations(context.Background())
	assert.Equal(t, 1, fake.lists)
	assert.Empty(t, svc.State().ErrorMessage.Get())

	svc.State().Busy.Set(true)
	svc.LoadConversations(context.Background())
	assert.Equal(t, 1, fake.lists)
}

func TestCreateAndDeleteConversation(t *testing.T) {
	fake := &fakeChatAPI{}
	svc := newChatFixture(fake, nil)
	ctx := context.Background()
	svc.ToggleSidebar()
	assert.True(t, svc.State().SidebarVisible.Get())

	require.NoError(t, svc.CreateNewConversation(ctx))
	state := svc.State()
	assert.Equal(t, "conv-new", state.ConversationID.Get())
	assert.False(t, state.SidebarVisible.Get())
	assert.Len(t, state.Conversations.Get(), 1)

	require.NoError(t, svc.SendMessage(ctx, "hi"))
	assert.Len(t, state.Messages.Get(), 2)

	require.NoError(t, svc.DeleteConversation(ctx, "other"))
	assert.Equal(t, "conv-new", state.ConversationID.Get())

	require.NoError(t, svc.DeleteConversation(ctx, "conv-new"))
	assert.Empty(t, state.ConversationID.Get())
	assert.Empty(t, state.Messages.Get())
	assert.Equal(t, []string{"other", "conv-new"}, fake.deleted)
}

func TestStartNewConversationResetsLocally(t *testing.T) {
	fake := &fakeChatAPI{}
	svc := newChatFixture(fake, nil)
	require.NoError(t, svc.SendMessage(context.Background(), "hi"))
	svc.SetError("出错了")

	svc.StartNewConversation()

	state := svc.State()
	assert.Empty(t, state.ConversationID.Get())
	assert.Empty(t, state.Messages.Get())
	assert.Empty(t, state.ErrorMessage.Get())
	assert.False(t, state.Busy.Get())
	assert.Equal(t, 1, fake.creates)
}

func TestProcessOCRImage(t *testing.T) {
	ctx := context.Background()

	t.Run("recognized text is sent with trigger prefix", func(t *testing.T) {
		fake := &fakeChatAPI{}
		svc := newChatFixture(fake, fakeRecognizer{text: " 明天下午3点开会\n"})

		require.NoError(t, svc.ProcessOCRImage(ctx, strings.NewReader("img"), "a.png"))

		require.Len(t, fake.requests, 1)
		assert.Equal(t, OCRTriggerPrefix+"明天下午3点开会", fake.requests[0].Message)
		assert.Equal(t, []string{
			"📷 图片识别内容:\n明天下午3点开会",
			"reply:" + OCRTriggerPrefix + "明天下午3点开会",
		}, texts(svc.State().Messages.Get()))
	})

	t.Run("empty text is not sent", func(t *testing.T) {
		fake := &fakeChatAPI{}
		svc := newChatFixture(fake, fakeRecognizer{text: "  "})

		assert.ErrorIs(t, svc.ProcessOCRImage(ctx, strings.NewReader("img"), "a.png"), ErrOCREmpty)
		assert.Empty(t, fake.requests)
		assert.Equal(t, []string{"❌ OCR 识别失败,图片中没有识别到文字内容"}, texts(svc.State().Messages.Get()))
		assert.Equal(t, "OCR 识别失败,未能识别出文字", svc.State().ErrorMessage.Get())
	})

	t.Run("recognizer error", func(t *testing.T) {
		fake := &fakeChatAPI{}
		svc := newChatFixture(fake, fakeRecognizer{err: errors.New("tika down")})

		require.Error(t, svc.ProcessOCRImage(ctx, strings.NewReader("img"), "a.png"))
		assert.Empty(t, fake.requests)
		assert.Equal(t, []string{"❌ OCR 识别异常: tika down"}, texts(svc.State().Messages.Get()))
		assert.Equal(t, "OCR 识别出错: tika down", svc.State().ErrorMessage.Get())
	})

	t.Run("no recognizer", func(t *testing.T) {
		svc := newChatFixture(&fakeChatAPI{}, nil)
		assert.ErrorIs(t, svc.ProcessOCRImage(ctx, strings.NewReader("img"), "a.png"), ErrNoRecognizer)
	})
}

func TestCurrentUserFromProfile(t *testing.T) {
	ctx := context.Background()
	store := repository.NewCredentialStore(repository.NewMemoryKVStore("chat"))
	require.NoError(t, store.Save(ctx, "t", "r", model.UserProfile{UserID: "u-7"}))

	fake := &fakeChatAPI{}
	svc := NewChatService(fake, store, nil, i18n.MustNewLocalizer("zh"))
	require.NoError(t, svc.SendMessage(ctx, "hi"))

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "u-7", fake.requests[0].UserID)
}
