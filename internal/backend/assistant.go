package backend

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"quickplan-go/internal/api"
	"quickplan-go/internal/model"
	"quickplan-go/pkg/llm"
)

// 助手识别的日期与时间写法
var (
	isoDatePattern   = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	monthDayPattern  = regexp.MustCompile(`(\d{1,2})月(\d{1,2})[日号]`)
	clockPattern     = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	chineseHourRegex = regexp.MustCompile(`(上午|中午|下午|晚上)?(\d{1,2})点(半|(\d{1,2})分)?`)
)

const (
	maxTitleRunes  = 30
	upcomingWindow = 7 // 查询最近几天的日程
)

// ScheduleDraft 从一段文字中解析出的日程
type ScheduleDraft struct {
	Title string
	Date  time.Time
	Time  model.TimeOfDay
}

// systemPrompt 交给大模型的系统提示
const systemPrompt = "你是 QuickPlan 的日程助手，回答简洁。用户想添加日程时，提示他以「" + model.ScheduleCommandPrefix + "」开头描述日程。"

// Assistant 是开发后端的助手：按固定前缀创建日程，或回答最近的日程安排。
// 其余消息交给大模型，未配置大模型时原样回显。
type Assistant struct {
	schedules ScheduleService
	llm       llm.Client
	now       func() time.Time
}

// NewAssistant 创建助手
func NewAssistant(schedules ScheduleService) *Assistant {
	return &Assistant{schedules: schedules, now: time.Now}
}

// WithLLM 为助手配置大模型
func (a *Assistant) WithLLM(client llm.Client) *Assistant {
	a.llm = client
	return a
}

// Reply 生成对 message 的回复
func (a *Assistant) Reply(ctx context.Context, userID, message string) (string, error) {
	message = strings.TrimSpace(message)
	now := a.now()

	if text, ok := strings.CutPrefix(message, model.ScheduleCommandPrefix); ok {
		draft, err := ParseScheduleDraft(text, now)
		if err != nil {
			return "没有从内容中找到日程信息，请补充标题和时间。", nil
		}
		dto, err := a.schedules.Create(ctx, api.CreateScheduleRequest{
			UserID: userID,
			Title:  draft.Title,
			Date:   model.FormatDate(draft.Date),
			Time:   draft.Time.String(),
		})
		if err != nil {
			return "", fmt.Errorf("创建日程失败: %w", err)
		}
		return fmt.Sprintf("已为你添加日程「%s」，时间 %s %s", dto.Title, dto.Date, dto.Time[:5]), nil
	}

	if strings.Contains(message, "日程") || strings.Contains(message, "安排") {
		start := model.FormatDate(now)
		end := model.FormatDate(now.AddDate(0, 0, upcomingWindow))
		list, err := a.schedules.ByDateRange(ctx, userID, start, end)
		if err != nil {
			return "", err
		}
		if len(list) == 0 {
			return fmt.Sprintf("最近 %d 天没有日程安排。", upcomingWindow), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "最近 %d 天共有 %d 个日程：", upcomingWindow, len(list))
		for _, s := range list {
			fmt.Fprintf(&b, "\n%s %s %s", s.Date, s.Time[:5], s.Title)
		}
		return b.String(), nil
	}

	if a.llm != nil {
		return a.llm.Complete(ctx, []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		})
	}
	return fmt.Sprintf("收到：%s\n发送「%s内容」可以让我帮你创建日程。", message, model.ScheduleCommandPrefix), nil
}

// ParseScheduleDraft 从自然语言中提取标题、日期与时间。
// 未写日期时为当天，未写时间时为 09:00。
func ParseScheduleDraft(text string, now time.Time) (ScheduleDraft, error) {
	title := firstLine(text)
	if title == "" {
		return ScheduleDraft{}, badRequest("日程内容为空")
	}
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	draft := ScheduleDraft{Title: title, Date: today, Time: model.NewTimeOfDay(9, 0, 0)}

	switch {
	case isoDatePattern.MatchString(text):
		m := isoDatePattern.FindStringSubmatch(text)
		draft.Date = time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), 0, 0, 0, 0, time.UTC)
	case monthDayPattern.MatchString(text):
		m := monthDayPattern.FindStringSubmatch(text)
		draft.Date = time.Date(now.Year(), time.Month(atoi(m[1])), atoi(m[2]), 0, 0, 0, 0, time.UTC)
	case strings.Contains(text, "后天"):
		draft.Date = today.AddDate(0, 0, 2)
	case strings.Contains(text, "明天"):
		draft.Date = today.AddDate(0, 0, 1)
	}

	if m := clockPattern.FindStringSubmatch(text); m != nil && atoi(m[1]) < 24 && atoi(m[2]) < 60 {
		draft.Time = model.NewTimeOfDay(atoi(m[1]), atoi(m[2]), 0)
	} else if m := chineseHourRegex.FindStringSubmatch(text); m != nil {
		hour, minute := atoi(m[2]), 0
		switch {
		case m[3] == "半":
			minute = 30
		case m[4] != "":
			minute = atoi(m[4])
		}
		if (m[1] == "下午" || m[1] == "晚上") && hour < 12 {
			hour += 12
		}
		if hour < 24 && minute < 60 {
			draft.Time = model.NewTimeOfDay(hour, minute, 0)
		}
	}
	return draft, nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
