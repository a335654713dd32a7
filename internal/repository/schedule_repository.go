package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quickplan-go/internal/api"
	"quickplan-go/internal/model"
	"quickplan-go/internal/observable"
	"quickplan-go/pkg/log"
)

// DefaultUserID 未登录时日程接口使用的用户 id
const DefaultUserID = "default_user_001"

// ScheduleAPI 定义了日程仓库依赖的远端接口，*api.Client 实现了它。
type ScheduleAPI interface {
	ListSchedules(ctx context.Context, userID string) ([]api.ScheduleDto, error)
	CreateSchedule(ctx context.Context, req api.CreateScheduleRequest) (*api.ScheduleDto, error)
	UpdateSchedule(ctx context.Context, req api.UpdateScheduleRequest) (*api.ScheduleDto, error)
	DeleteSchedule(ctx context.Context, id string) error
	SchedulesByDate(ctx context.Context, userID, date string) ([]api.ScheduleDto, error)
	SchedulesByDateRange(ctx context.Context, userID, startDate, endDate string) ([]api.ScheduleDto, error)
	ScheduleDetail(ctx context.Context, id string) (*api.ScheduleDto, error)
}

// ProfileSource 提供当前登录用户，*CredentialStore 实现了它。
type ProfileSource interface {
	Profile(ctx context.Context) *model.UserProfile
}

// NewSchedule 新建日程的字段
type NewSchedule struct {
	Title       string
	Date        time.Time
	Time        model.TimeOfDay
	Location    *string
	Description *string
}

// ScheduleRepository 与后端同步日程，并在内存中缓存按日期排序的列表。
// 应用内只创建一个实例并共享引用。
type ScheduleRepository struct {
	api       ScheduleAPI
	profiles  ProfileSource
	mu        sync.Mutex // 串行化对缓存的写
	schedules *observable.Value[[]model.Schedule]
}

// NewScheduleRepository 创建一个 ScheduleRepository 实例。
func NewScheduleRepository(scheduleAPI ScheduleAPI, profiles ProfileSource) *ScheduleRepository {
	return &ScheduleRepository{
		api:       scheduleAPI,
		profiles:  profiles,
		schedules: observable.NewValue([]model.Schedule{}),
	}
}

// Schedules 返回当前缓存的副本
func (r *ScheduleRepository) Schedules() []model.Schedule {
	return cloneSchedules(r.schedules.Get())
}

// Subscribe 订阅缓存变化，立即以当前列表回调一次。
func (r *ScheduleRepository) Subscribe(fn func([]model.Schedule)) (unsubscribe func()) {
	return r.schedules.Subscribe(func(list []model.Schedule) { fn(cloneSchedules(list)) })
}

// ClearCache 清空本地缓存
func (r *ScheduleRepository) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules.Set([]model.Schedule{})
}

// Refresh 拉取当前用户的全部日程并按日期排序后替换缓存；失败时缓存保持不变。
func (r *ScheduleRepository) Refresh(ctx context.Context) error {
	userID := r.currentUserID(ctx)
	log.Debugf("[ScheduleRepository] 开始刷新日程, userId: %s", userID)

	dtos, err := r.api.ListSchedules(ctx, userID)
	if err != nil {
		return err
	}
	list, err := toModels(dtos)
	if err != nil {
		return err
	}
	sortByDate(list)

	r.mu.Lock()
	r.schedules.Set(list)
	r.mu.Unlock()
	log.Debugf("[ScheduleRepository] 刷新完成, 当前日程数: %d", len(list))
	return nil
}

// Add 在后端创建日程并返回创建结果。不写入缓存，调用方需要时自行 Refresh。
func (r *ScheduleRepository) Add(ctx context.Context, s NewSchedule) (model.Schedule, error) {
	dto, err := r.api.CreateSchedule(ctx, api.CreateScheduleRequest{
		UserID:      r.currentUserID(ctx),
		Title:       s.Title,
		Location:    s.Location,
		Date:        model.FormatDate(s.Date),
		Time:        s.Time.String(),
		Description: s.Description,
	})
	if err != nil {
		return model.Schedule{}, err
	}
	return toModel(*dto)
}

// Update 更新日程；成功后按本地 id 替换缓存中的条目（不存在则追加）并重新排序。
func (r *ScheduleRepository) Update(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	dto, err := r.api.UpdateSchedule(ctx, api.UpdateScheduleRequest{
		ID:          s.RemoteID(),
		UserID:      r.currentUserID(ctx),
		Title:       s.Title,
		Location:    s.Location,
		Date:        model.FormatDate(s.Date),
		Time:        s.Time.String(),
		Description: s.Description,
	})
	if err != nil {
		return model.Schedule{}, err
	}
	updated, err := toModel(*dto)
	if err != nil {
		return model.Schedule{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules.Update(func(current []model.Schedule) []model.Schedule {
		next := cloneSchedules(current)
		replaced := false
		for i := range next {
			if next[i].ID == updated.ID {
				next[i] = updated
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, updated)
		}
		sortByDate(next)
		return next
	})
	return updated, nil
}

// Delete 删除日程；只有服务器确认后才从缓存移除。
func (r *ScheduleRepository) Delete(ctx context.Context, s model.Schedule) error {
	if err := r.api.DeleteSchedule(ctx, s.RemoteID()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules.Update(func(current []model.Schedule) []model.Schedule {
		next := make([]model.Schedule, 0, len(current))
		for _, item := range current {
			if item.ID != s.ID {
				next = append(next, item)
			}
		}
		return next
	})
	return nil
}

// ByDate 直接查询某一天的日程，不影响缓存。
func (r *ScheduleRepository) ByDate(ctx context.Context, date time.Time) ([]model.Schedule, error) {
	dtos, err := r.api.SchedulesByDate(ctx, r.currentUserID(ctx), model.FormatDate(date))
	if err != nil {
		return nil, err
	}
	return toModels(dtos)
}

// ByDateRange 直接查询日期区间内的日程，不影响缓存。
func (r *ScheduleRepository) ByDateRange(ctx context.Context, start, end time.Time) ([]model.Schedule, error) {
	dtos, err := r.api.SchedulesByDateRange(ctx, r.currentUserID(ctx), model.FormatDate(start), model.FormatDate(end))
	if err != nil {
		return nil, err
	}
	return toModels(dtos)
}

// Detail 获取单个日程详情
func (r *ScheduleRepository) Detail(ctx context.Context, id string) (model.Schedule, error) {
	dto, err := r.api.ScheduleDetail(ctx, id)
	if err != nil {
		return model.Schedule{}, err
	}
	return toModel(*dto)
}

func (r *ScheduleRepository) currentUserID(ctx context.Context) string {
	if r.profiles != nil {
		if p := r.profiles.Profile(ctx); p != nil && p.UserID != "" {
			return p.UserID
		}
	}
	return DefaultUserID
}

// toModel 将线上结构转换为本地日程，本地 id 即服务器 id。
func toModel(dto api.ScheduleDto) (model.Schedule, error) {
	if strings.TrimSpace(dto.ID) == "" {
		return model.Schedule{}, api.ErrBlankScheduleID
	}
	t, err := model.ParseTimeOfDay(dto.Time)
	if err != nil {
		return model.Schedule{}, err
	}
	d, err := model.ParseDate(dto.Date)
	if err != nil {
		return model.Schedule{}, err
	}
	return model.Schedule{
		ID:          dto.ID,
		ServerID:    dto.ID,
		Title:       dto.Title,
		Date:        d,
		Time:        t,
		Location:    dto.Location,
		Description: dto.Description,
	}, nil
}

func toModels(dtos []api.ScheduleDto) ([]model.Schedule, error) {
	list := make([]model.Schedule, 0, len(dtos))
	for _, dto := range dtos {
		s, err := toModel(dto)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// sortByDate 按日期升序稳定排序，同一天保持原有顺序。
func sortByDate(list []model.Schedule) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Date.Before(list[j].Date)
	})
}

func cloneSchedules(list []model.Schedule) []model.Schedule {
	out := make([]model.Schedule, len(list))
	copy(out, list)
	return out
}
