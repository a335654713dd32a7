package backend

import (
	"context"
	"net/http"
	"testing"

	"quickplan-go/internal/api"
	"quickplan-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleServiceNormalizes(t *testing.T) {
	ctx := context.Background()
	svc := NewScheduleService(repository.NewMemoryScheduleStore())

	dto, err := svc.Create(ctx, api.CreateScheduleRequest{UserID: "u1", Title: "晨跑", Date: "2024-03-10", Time: "07:05"})
	require.NoError(t, err)
	assert.Equal(t, "07:05:00", dto.Time)
	assert.NotEmpty(t, dto.ID)

	_, err = svc.Create(ctx, api.CreateScheduleRequest{UserID: "u1", Title: "x", Date: "2024/03/10", Time: "07:05"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	_, err = svc.Create(ctx, api.CreateScheduleRequest{UserID: "u1", Title: " ", Date: "2024-03-10", Time: "07:05"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	updated, err := svc.Update(ctx, api.UpdateScheduleRequest{ID: dto.ID, UserID: "u1", Title: "夜跑", Date: "2024-03-11", Time: "21:00:00"})
	require.NoError(t, err)
	assert.Equal(t, "夜跑", updated.Title)

	_, err = svc.Update(ctx, api.UpdateScheduleRequest{ID: "missing", Title: "x", Date: "2024-03-11", Time: "21:00:00"})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestScheduleServiceRanges(t *testing.T) {
	ctx := context.Background()
	svc := NewScheduleService(repository.NewMemoryScheduleStore())
	for _, req := range []api.CreateScheduleRequest{
		{UserID: "u1", Title: "b", Date: "2024-03-12", Time: "08:00:00"},
		{UserID: "u1", Title: "a", Date: "2024-03-10", Time: "18:00:00"},
		{UserID: "u1", Title: "c", Date: "2024-03-10", Time: "09:00:00"},
		{UserID: "u2", Title: "other", Date: "2024-03-10", Time: "09:00:00"},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	day, err := svc.ByDate(ctx, "u1", "2024-03-10")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "c", day[0].Title)
	assert.Equal(t, "a", day[1].Title)

	rng, err := svc.ByDateRange(ctx, "u1", "2024-03-10", "2024-03-12")
	require.NoError(t, err)
	assert.Len(t, rng, 3)

	_, err = svc.ByDateRange(ctx, "u1", "2024-03-12", "2024-03-10")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	require.NoError(t, svc.Delete(ctx, rng[0].ID))
	_, err = svc.Detail(ctx, rng[0].ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}
