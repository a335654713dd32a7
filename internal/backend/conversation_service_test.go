package backend

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"quickplan-go/internal/api"
	"quickplan-go/internal/model"
	"quickplan-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore 在创建日程时返回错误，用于模拟助手故障
type failingStore struct {
	repository.ScheduleStore
}

func (failingStore) Create(context.Context, *model.ScheduleRecord) error {
	return errors.New("disk full")
}

func TestConversationChat(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryConversationRepository()
	convs := NewConversationService(repo, NewAssistant(NewScheduleService(repository.NewMemoryScheduleStore())))

	id, err := convs.Create(ctx, "u1", "")
	require.NoError(t, err)

	list, err := convs.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "新对话", list[0].Title)

	reply, err := convs.Chat(ctx, api.ChatRequest{MemoryID: id, UserID: "u1", Message: "你好"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	msgs, err := convs.Messages(ctx, id, "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "你好", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)

	_, err = convs.Messages(ctx, id, "someone-else")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = convs.Chat(ctx, api.ChatRequest{MemoryID: id, UserID: "u1", Message: "  "})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	require.NoError(t, convs.Delete(ctx, id))
	err = convs.Delete(ctx, id)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestConversationChatAssistantFailure(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryConversationRepository()
	schedules := NewScheduleService(failingStore{repository.NewMemoryScheduleStore()})
	convs := NewConversationService(repo, NewAssistant(schedules))

	id, err := convs.Create(ctx, "u1", "t")
	require.NoError(t, err)

	_, err = convs.Chat(ctx, api.ChatRequest{MemoryID: id, UserID: "u1", Message: "帮我添加日程：明天开会"})
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))

	msgs, err := convs.Messages(ctx, id, "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Role)
}
