package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListSchedules GET api/schedule/list/{userId}
func (c *Client) ListSchedules(ctx context.Context, userID string) ([]ScheduleDto, error) {
	var list []ScheduleDto
	_, err := c.do(ctx, call{op: "schedule.list", method: http.MethodGet, path: "api/schedule/list/" + escape(userID)}, &list)
	return list, err
}

// CreateSchedule POST api/schedule/create
func (c *Client) CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*ScheduleDto, error) {
	return c.scheduleCall(ctx, call{op: "schedule.create", method: http.MethodPost, path: "api/schedule/create", body: req})
}

// UpdateSchedule PUT api/schedule/update
func (c *Client) UpdateSchedule(ctx context.Context, req UpdateScheduleRequest) (*ScheduleDto, error) {
	return c.scheduleCall(ctx, call{op: "schedule.update", method: http.MethodPut, path: "api/schedule/update", body: req})
}

// DeleteSchedule DELETE api/schedule/delete/{id}
func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	_, err := c.do(ctx, call{op: "schedule.delete", method: http.MethodDelete, path: "api/schedule/delete/" + escape(id)}, nil)
	return err
}

// SchedulesByDate GET api/schedule/date?userId=&date=
func (c *Client) SchedulesByDate(ctx context.Context, userID, date string) ([]ScheduleDto, error) {
	var list []ScheduleDto
	q := url.Values{"userId": {userID}, "date": {date}}
	_, err := c.do(ctx, call{op: "schedule.by_date", method: http.MethodGet, path: "api/schedule/date", query: q}, &list)
	return list, err
}

// SchedulesByDateRange GET api/schedule/range?userId=&startDate=&endDate=
func (c *Client) SchedulesByDateRange(ctx context.Context, userID, startDate, endDate string) ([]ScheduleDto, error) {
	var list []ScheduleDto
	q := url.Values{"userId": {userID}, "startDate": {startDate}, "endDate": {endDate}}
	_, err := c.do(ctx, call{op: "schedule.by_range", method: http.MethodGet, path: "api/schedule/range", query: q}, &list)
	return list, err
}

// ScheduleDetail GET api/schedule/detail/{id}
func (c *Client) ScheduleDetail(ctx context.Context, id string) (*ScheduleDto, error) {
	return c.scheduleCall(ctx, call{op: "schedule.detail", method: http.MethodGet, path: "api/schedule/detail/" + escape(id)})
}

// scheduleCall 返回单个日程的调用；success=true 但 data 缺失同样视为失败。
func (c *Client) scheduleCall(ctx context.Context, req call) (*ScheduleDto, error) {
	var dto *ScheduleDto
	msg, err := c.do(ctx, req, &dto)
	if err != nil {
		return nil, err
	}
	if dto == nil {
		if msg == "" {
			msg = "日程操作失败"
		}
		return nil, &APIError{Op: req.op, Message: msg}
	}
	return dto, nil
}
