// Package model 包含了应用的数据模型定义。
package model

import "time"

// LoginType 登录方式
type LoginType string

const (
	LoginTypePhone  LoginType = "phone"
	LoginTypeEmail  LoginType = "email"
	LoginTypeWechat LoginType = "wechat"
	LoginTypeQQ     LoginType = "qq"
)

// UserProfile 是客户端缓存的用户信息，与后端返回的 userInfo 结构一致。
type UserProfile struct {
	UserID    string    `json:"userId"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Nickname  *string   `json:"nickname,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
	CreatedAt string    `json:"createdAt"`
	LoginType LoginType `json:"loginType"`
}

// User 是开发后端持久化的账号记录。
type User struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"userId"`
	Phone     *string   `gorm:"type:varchar(20);uniqueIndex" json:"phone,omitempty"`
	Email     *string   `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`
	OpenID    *string   `gorm:"type:varchar(128);uniqueIndex" json:"-"`
	Password  string    `gorm:"type:varchar(255)" json:"-"`
	Nickname  *string   `gorm:"type:varchar(64)" json:"nickname,omitempty"`
	Avatar    *string   `gorm:"type:varchar(512)" json:"avatar,omitempty"`
	LoginType LoginType `gorm:"type:varchar(16)" json:"loginType"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Profile 将账号记录转换为返回给客户端的用户信息。
func (u *User) Profile() UserProfile {
	return UserProfile{
		UserID:    u.ID,
		Phone:     u.Phone,
		Email:     u.Email,
		Nickname:  u.Nickname,
		Avatar:    u.Avatar,
		CreatedAt: LocalTime(u.CreatedAt).String(),
		LoginType: u.LoginType,
	}
}
