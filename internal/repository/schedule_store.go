package repository

import (
	"context"

	"quickplan-go/internal/model"

	"gorm.io/gorm"
)

// ScheduleStore 定义了开发后端日程记录的持久化操作。
// 与客户端的 ScheduleRepository 不同，它直接读写数据库。
type ScheduleStore interface {
	Create(ctx context.Context, record *model.ScheduleRecord) error
	Update(ctx context.Context, record *model.ScheduleRecord) error
	Delete(ctx context.Context, scheduleID string) error
	FindByID(ctx context.Context, scheduleID string) (*model.ScheduleRecord, error)
	ListByUser(ctx context.Context, userID string) ([]model.ScheduleRecord, error)
	// ListByDateRange 返回 [startDate, endDate] 内的日程，日期格式 YYYY-MM-DD
	ListByDateRange(ctx context.Context, userID, startDate, endDate string) ([]model.ScheduleRecord, error)
}

type scheduleStore struct {
	db *gorm.DB
}

// NewScheduleStore 创建一个 GORM 实现的 ScheduleStore。
func NewScheduleStore(db *gorm.DB) ScheduleStore {
	return &scheduleStore{db: db}
}

func (s *scheduleStore) Create(ctx context.Context, record *model.ScheduleRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *scheduleStore) Update(ctx context.Context, record *model.ScheduleRecord) error {
	res := s.db.WithContext(ctx).Model(&model.ScheduleRecord{}).Where("id = ?", record.ID).
		Select("title", "location", "date", "time", "description").
		Updates(record)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *scheduleStore) Delete(ctx context.Context, scheduleID string) error {
	res := s.db.WithContext(ctx).Where("id = ?", scheduleID).Delete(&model.ScheduleRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *scheduleStore) FindByID(ctx context.Context, scheduleID string) (*model.ScheduleRecord, error) {
	var record model.ScheduleRecord
	if err := s.db.WithContext(ctx).Where("id = ?", scheduleID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *scheduleStore) ListByUser(ctx context.Context, userID string) ([]model.ScheduleRecord, error) {
	var records []model.ScheduleRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("date ASC, time ASC").Find(&records).Error
	return records, err
}

func (s *scheduleStore) ListByDateRange(ctx context.Context, userID, startDate, endDate string) ([]model.ScheduleRecord, error) {
	var records []model.ScheduleRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, startDate, endDate).
		Order("date ASC, time ASC").
		Find(&records).Error
	return records, err
}
