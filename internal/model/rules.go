package model

import "regexp"

// 客户端与开发后端共用的输入规则

// MinPasswordLength 密码最短长度
const MinPasswordLength = 6

// ScheduleCommandPrefix 以此开头的聊天消息由助手解析为一条新日程
const ScheduleCommandPrefix = "帮我添加日程："

var (
	phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)+$`)
)

// ValidPhone 大陆手机号：1 开头，第二位 3-9，共 11 位
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidEmail local@domain，domain 至少包含一个点
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
