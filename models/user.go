package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// UserStatusPending 待验证：邮箱验证码通过前不可登录
	UserStatusPending = "pending"
	// UserStatusActive 正常：可登录
	UserStatusActive = "active"
)

// User 用户模型
type User struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Username   string         `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Password   string         `json:"-" gorm:"size:255;not null"`
	Email      string         `json:"email" gorm:"uniqueIndex;size:100;not null"`
	Status     string         `json:"status" gorm:"size:20;default:pending;index"`
	VerifiedAt *time.Time     `json:"verified_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// IsActive 是否已完成邮箱验证
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
