package handler

import (
	"quickplan-go/internal/api"
	"quickplan-go/internal/backend"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler 负责处理日程的增删改查请求。
type ScheduleHandler struct {
	schedules backend.ScheduleService
}

// NewScheduleHandler 创建一个新的 ScheduleHandler 实例。
func NewScheduleHandler(schedules backend.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// List GET /api/schedule/list/:userId
func (h *ScheduleHandler) List(c *gin.Context) {
	list, err := h.schedules.List(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, "ListSchedules", err)
		return
	}
	ok(c, "获取成功", list)
}

// Create POST /api/schedule/create
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req api.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "CreateSchedule", err)
		return
	}
	dto, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, "CreateSchedule", err)
		return
	}
	ok(c, "创建成功", dto)
}

// Update PUT /api/schedule/update
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req api.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, "UpdateSchedule", err)
		return
	}
	dto, err := h.schedules.Update(c.Request.Context(), req)
	if err != nil {
		fail(c, "UpdateSchedule", err)
		return
	}
	ok(c, "更新成功", dto)
}

// Delete DELETE /api/schedule/delete/:id
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, "DeleteSchedule", err)
		return
	}
	ok(c, "删除成功", nil)
}

// ByDate GET /api/schedule/date?userId=&date=
func (h *ScheduleHandler) ByDate(c *gin.Context) {
	list, err := h.schedules.ByDate(c.Request.Context(), c.Query("userId"), c.Query("date"))
	if err != nil {
		fail(c, "SchedulesByDate", err)
		return
	}
	ok(c, "获取成功", list)
}

// ByDateRange GET /api/schedule/range?userId=&startDate=&endDate=
func (h *ScheduleHandler) ByDateRange(c *gin.Context) {
	list, err := h.schedules.ByDateRange(c.Request.Context(), c.Query("userId"), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		fail(c, "SchedulesByDateRange", err)
		return
	}
	ok(c, "获取成功", list)
}

// Detail GET /api/schedule/detail/:id
func (h *ScheduleHandler) Detail(c *gin.Context) {
	dto, err := h.schedules.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "ScheduleDetail", err)
		return
	}
	ok(c, "获取成功", dto)
}
