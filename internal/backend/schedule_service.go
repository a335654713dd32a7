package backend

import (
	"context"
	"fmt"
	"strings"

	"quickplan-go/internal/api"
	"quickplan-go/internal/model"
	"quickplan-go/internal/repository"
	"quickplan-go/pkg/log"

	"github.com/google/uuid"
)

// ScheduleService 接口定义了日程的增删改查。日期与时间在这里统一规范化。
type ScheduleService interface {
	List(ctx context.Context, userID string) ([]api.ScheduleDto, error)
	Create(ctx context.Context, req api.CreateScheduleRequest) (*api.ScheduleDto, error)
	Update(ctx context.Context, req api.UpdateScheduleRequest) (*api.ScheduleDto, error)
	Delete(ctx context.Context, scheduleID string) error
	ByDate(ctx context.Context, userID, date string) ([]api.ScheduleDto, error)
	ByDateRange(ctx context.Context, userID, startDate, endDate string) ([]api.ScheduleDto, error)
	Detail(ctx context.Context, scheduleID string) (*api.ScheduleDto, error)
}

type scheduleService struct {
	store repository.ScheduleStore
}

// NewScheduleService 创建一个新的 ScheduleService 实例。
func NewScheduleService(store repository.ScheduleStore) ScheduleService {
	return &scheduleService{store: store}
}

func (s *scheduleService) List(ctx context.Context, userID string) ([]api.ScheduleDto, error) {
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toDtos(records), nil
}

func (s *scheduleService) Create(ctx context.Context, req api.CreateScheduleRequest) (*api.ScheduleDto, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, badRequest("用户 id 不能为空")
	}
	record := &model.ScheduleRecord{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Title:       req.Title,
		Location:    req.Location,
		Description: req.Description,
	}
	if err := normalize(record, req.Date, req.Time); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("创建日程失败: %w", err)
	}
	log.Infof("[ScheduleService] 日程已创建: %s (%s %s)", record.ID, record.Date, record.Time)
	dto := toDto(*record)
	return &dto, nil
}

func (s *scheduleService) Update(ctx context.Context, req api.UpdateScheduleRequest) (*api.ScheduleDto, error) {
	existing, err := s.store.FindByID(ctx, req.ID)
	if err != nil {
		return nil, notFoundOr(err, "日程不存在")
	}
	existing.Title = req.Title
	existing.Location = req.Location
	existing.Description = req.Description
	if err := normalize(existing, req.Date, req.Time); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, existing); err != nil {
		return nil, notFoundOr(err, "日程不存在")
	}
	dto := toDto(*existing)
	return &dto, nil
}

func (s *scheduleService) Delete(ctx context.Context, scheduleID string) error {
	if err := s.store.Delete(ctx, scheduleID); err != nil {
		return notFoundOr(err, "日程不存在")
	}
	return nil
}

func (s *scheduleService) ByDate(ctx context.Context, userID, date string) ([]api.ScheduleDto, error) {
	return s.ByDateRange(ctx, userID, date, date)
}

func (s *scheduleService) ByDateRange(ctx context.Context, userID, startDate, endDate string) ([]api.ScheduleDto, error) {
	start, err := model.ParseDate(startDate)
	if err != nil {
		return nil, badRequest("日期格式应为 YYYY-MM-DD")
	}
	end, err := model.ParseDate(endDate)
	if err != nil {
		return nil, badRequest("日期格式应为 YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, badRequest("结束日期不能早于开始日期")
	}
	records, err := s.store.ListByDateRange(ctx, userID, model.FormatDate(start), model.FormatDate(end))
	if err != nil {
		return nil, err
	}
	return toDtos(records), nil
}

func (s *scheduleService) Detail(ctx context.Context, scheduleID string) (*api.ScheduleDto, error) {
	record, err := s.store.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, notFoundOr(err, "日程不存在")
	}
	dto := toDto(*record)
	return &dto, nil
}

// normalize 校验标题与日期时间，并写成 YYYY-MM-DD 与 HH:MM:SS
func normalize(record *model.ScheduleRecord, date, timeOfDay string) error {
	if strings.TrimSpace(record.Title) == "" {
		return badRequest("日程标题不能为空")
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return badRequest("日期格式应为 YYYY-MM-DD")
	}
	t, err := model.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return badRequest("时间格式应为 HH:MM:SS")
	}
	record.Date = model.FormatDate(d)
	record.Time = t.String()
	return nil
}

func toDto(r model.ScheduleRecord) api.ScheduleDto {
	return api.ScheduleDto{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Location:    r.Location,
		Date:        r.Date,
		Time:        r.Time,
		Description: r.Description,
	}
}

func toDtos(records []model.ScheduleRecord) []api.ScheduleDto {
	dtos := make([]api.ScheduleDto, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, toDto(r))
	}
	return dtos
}
