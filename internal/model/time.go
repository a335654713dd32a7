package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout 日程日期的线上格式
	DateLayout = "2006-01-02"
	// TimeLayout 发往后端的时间格式，始终带秒
	TimeLayout = "15:04:05"

	timestampLayout = "2006-01-02 15:04:05"
)

// timeLayouts 解析后端返回时间时依次尝试的格式，先成功者为准。
var timeLayouts = []string{TimeLayout, "15:04", time.Kitchen}

// TimeParseError 表示时间字符串无法按任何已知格式解析。
type TimeParseError struct {
	Value string
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("无法解析时间 %q", e.Value)
}

// TimeOfDay 一天中的时刻，精确到秒。
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// NewTimeOfDay 构造一个 TimeOfDay。
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}
}

// ParseTimeOfDay 依次尝试 HH:MM:SS、HH:MM 以及 3:04PM 格式。
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	value := strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, &TimeParseError{Value: s}
}

// String 按 HH:MM:SS 输出
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseDate 解析 YYYY-MM-DD 格式的日期，结果为 UTC 零点。
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("无法解析日期 %q: %w", s, err)
	}
	return d, nil
}

// FormatDate 按 YYYY-MM-DD 输出日期。
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// LocalTime 以 "YYYY-MM-DD HH:MM:SS" 格式序列化的时间戳。
type LocalTime time.Time

// MarshalJSON implements the json.Marshaler interface.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	formatted := fmt.Sprintf("\"%s\"", time.Time(t).Format(timestampLayout))
	return []byte(formatted), nil
}

// UnmarshalJSON 同时接受 "YYYY-MM-DD HH:MM:SS" 与 RFC3339。
func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), "\"")
	if s == "" || s == "null" {
		*t = LocalTime(time.Time{})
		return nil
	}
	parsed, err := time.ParseInLocation(timestampLayout, s, time.Local)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("无法解析时间戳 %q: %w", s, err)
		}
	}
	*t = LocalTime(parsed)
	return nil
}

// String 按 "YYYY-MM-DD HH:MM:SS" 输出。
func (t LocalTime) String() string {
	return time.Time(t).Format(timestampLayout)
}
