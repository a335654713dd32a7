package model

import "time"

// Schedule 客户端的日程条目。
// ID 是本地标识，从后端创建后与 ServerID 相同；ServerID 为空表示尚未同步。
type Schedule struct {
	ID          string
	ServerID    string
	Title       string
	Date        time.Time
	Time        TimeOfDay
	Location    *string
	Description *string
}

// RemoteID 返回用于远端请求的 id：优先 ServerID，否则回退到本地 ID。
func (s Schedule) RemoteID() string {
	if s.ServerID != "" {
		return s.ServerID
	}
	return s.ID
}

// ScheduleRecord 是开发后端持久化的日程记录。
type ScheduleRecord struct {
	ID          string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(64);index;not null" json:"userId"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Location    *string   `gorm:"type:varchar(255)" json:"location"`
	Date        string    `gorm:"type:char(10);index" json:"date"`
	Time        string    `gorm:"type:char(8)" json:"time"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (ScheduleRecord) TableName() string {
	return "schedules"
}
