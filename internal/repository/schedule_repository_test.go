package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"quickplan-go/internal/api"
	"quickplan-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduleBackend 模拟日程接口，记录收到的请求
type fakeScheduleBackend struct {
	mu            sync.Mutex
	list          []api.ScheduleDto
	deleteSuccess bool
	updateReply   *api.ScheduleDto
	created       []api.CreateScheduleRequest
	listUserIDs   []string
	deletedIDs    []string
}

func (f *fakeScheduleBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reply := func(v map[string]interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/api/schedule/list/"):
		f.listUserIDs = append(f.listUserIDs, strings.TrimPrefix(r.URL.Path, "/api/schedule/list/"))
		reply(map[string]interface{}{"success": true, "message": "", "data": f.list})
	case r.URL.Path == "/api/schedule/create":
		var req api.CreateScheduleRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.created = append(f.created, req)
		reply(map[string]interface{}{"success": true, "data": api.ScheduleDto{
			ID: "new-1", UserID: req.UserID, Title: req.Title, Date: req.Date, Time: req.Time,
		}})
	case r.URL.Path == "/api/schedule/update":
		reply(map[string]interface{}{"success": true, "data": f.updateReply})
	case strings.HasPrefix(r.URL.Path, "/api/schedule/delete/"):
		f.deletedIDs = append(f.deletedIDs, strings.TrimPrefix(r.URL.Path, "/api/schedule/delete/"))
		if f.deleteSuccess {
			reply(map[string]interface{}{"success": true, "message": "删除成功"})
		} else {
			reply(map[string]interface{}{"success": false, "message": "删除失败"})
		}
	case r.URL.Path == "/api/schedule/date":
		reply(map[string]interface{}{"success": true, "data": []api.ScheduleDto{
			{ID: "d1", Title: "same day", Date: r.URL.Query().Get("date"), Time: "08:00"},
		}})
	default:
		http.NotFound(w, r)
	}
}

type staticProfile struct{ profile *model.UserProfile }

func (s staticProfile) Profile(context.Context) *model.UserProfile { return s.profile }

func newScheduleRepo(t *testing.T, backend *fakeScheduleBackend, profile *model.UserProfile) *ScheduleRepository {
	t.Helper()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	client, err := api.NewClient(api.Options{BaseURL: server.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return NewScheduleRepository(client, staticProfile{profile: profile})
}

func dates(list []model.Schedule) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = model.FormatDate(s.Date)
	}
	return out
}

func TestRefreshSortsByDateAndUpdateResorts(t *testing.T) {
	backend := &fakeScheduleBackend{list: []api.ScheduleDto{
		{ID: "b", Title: "B", Date: "2024-03-05", Time: "09:30:00"},
		{ID: "a", Title: "A", Date: "2024-03-01", Time: "10:00"},
		{ID: "c", Title: "C", Date: "2024-03-10", Time: "11:00:00"},
	}}
	repo := newScheduleRepo(t, backend, nil)

	require.NoError(t, repo.Refresh(context.Background()))
	assert.Equal(t, []string{"2024-03-01", "2024-03-05", "2024-03-10"}, dates(repo.Schedules()))
	assert.Equal(t, []string{DefaultUserID}, backend.listUserIDs)

	moved := repo.Schedules()[1]
	moved.Date = time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	backend.updateReply = &api.ScheduleDto{ID: "b", Title: "B", Date: "2024-03-12", Time: "09:30:00"}

	updated, err := repo.Update(context.Background(), moved)
	require.NoError(t, err)
	assert.Equal(t, "b", updated.ID)
	assert.Equal(t, []string{"2024-03-01", "2024-03-10", "2024-03-12"}, dates(repo.Schedules()))
	assert.Equal(t, "b", repo.Schedules()[2].ID)
}

func TestRefreshFailureLeavesCacheUntouched(t *testing.T) {
	backend := &fakeScheduleBackend{list: []api.ScheduleDto{{ID: "a", Title: "A", Date: "2024-03-01", Time: "10:00"}}}
	repo := newScheduleRepo(t, backend, &model.UserProfile{UserID: "u1"})
	require.NoError(t, repo.Refresh(context.Background()))
	assert.Equal(t, []string{"u1"}, backend.listUserIDs)

	backend.list = []api.ScheduleDto{{ID: "", Title: "broken", Date: "2024-03-02", Time: "10:00"}}
	err := repo.Refresh(context.Background())
	var integrity *api.IntegrityError
	require.True(t, errors.As(err, &integrity))
	require.Len(t, repo.Schedules(), 1)
	assert.Equal(t, "a", repo.Schedules()[0].ID)
}

func TestDeleteOnlyAfterServerConfirms(t *testing.T) {
	backend := &fakeScheduleBackend{list: []api.ScheduleDto{
		{ID: "a", Title: "A", Date: "2024-03-01", Time: "10:00"},
		{ID: "b", Title: "B", Date: "2024-03-02", Time: "10:00"},
	}}
	repo := newScheduleRepo(t, backend, nil)
	require.NoError(t, repo.Refresh(context.Background()))
	target := repo.Schedules()[0]

	backend.deleteSuccess = false
	err := repo.Delete(context.Background(), target)
	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "删除失败", apiErr.Message)
	assert.Len(t, repo.Schedules(), 2)

	backend.deleteSuccess = true
	require.NoError(t, repo.Delete(context.Background(), target))
	require.Len(t, repo.Schedules(), 1)
	assert.Equal(t, "b", repo.Schedules()[0].ID)
	assert.Equal(t, []string{"a", "a"}, backend.deletedIDs)
}

func TestAddDoesNotTouchCache(t *testing.T) {
	backend := &fakeScheduleBackend{}
	repo := newScheduleRepo(t, backend, &model.UserProfile{UserID: "u9"})

	loc := "会议室"
	created, err := repo.Add(context.Background(), NewSchedule{
		Title:    "周会",
		Date:     time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Time:     model.NewTimeOfDay(9, 30, 0),
		Location: &loc,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)
	assert.Equal(t, "new-1", created.ServerID)
	assert.Empty(t, repo.Schedules())

	require.Len(t, backend.created, 1)
	assert.Equal(t, "u9", backend.created[0].UserID)
	assert.Equal(t, "2024-03-05", backend.created[0].Date)
	assert.Equal(t, "09:30:00", backend.created[0].Time)
}

func TestUpdateInsertsWhenAbsentAndUsesServerID(t *testing.T) {
	backend := &fakeScheduleBackend{updateReply: &api.ScheduleDto{ID: "srv-7", Title: "X", Date: "2024-01-01", Time: "07:00"}}
	repo := newScheduleRepo(t, backend, nil)

	_, err := repo.Update(context.Background(), model.Schedule{ID: "srv-7", ServerID: "srv-7", Title: "X", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, repo.Schedules(), 1)
	assert.Equal(t, model.NewTimeOfDay(7, 0, 0), repo.Schedules()[0].Time)
}

func TestByDateDoesNotTouchCache(t *testing.T) {
	repo := newScheduleRepo(t, &fakeScheduleBackend{}, nil)
	list, err := repo.ByDate(context.Background(), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-03-05", model.FormatDate(list[0].Date))
	assert.Empty(t, repo.Schedules())
}

func TestSubscribeAndClearCache(t *testing.T) {
	backend := &fakeScheduleBackend{list: []api.ScheduleDto{{ID: "a", Title: "A", Date: "2024-03-01", Time: "10:00"}}}
	repo := newScheduleRepo(t, backend, nil)

	var sizes []int
	unsubscribe := repo.Subscribe(func(list []model.Schedule) { sizes = append(sizes, len(list)) })
	defer unsubscribe()

	require.NoError(t, repo.Refresh(context.Background()))
	repo.ClearCache()
	assert.Equal(t, []int{0, 1, 0}, sizes)
}
