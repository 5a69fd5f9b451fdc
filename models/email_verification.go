package models

import (
	cryptoRand "crypto/rand"
	"fmt"
	"time"
)

// VerificationPurposeRegister 注册验证
const VerificationPurposeRegister = "register"

// EmailVerification 邮箱验证码（OTP）
type EmailVerification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Email     string    `json:"email" gorm:"index;size:100;not null"`
	Code      string    `json:"-" gorm:"size:6;not null"`
	Purpose   string    `json:"purpose" gorm:"size:20;not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	Used      bool      `json:"used" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 设置表名
func (EmailVerification) TableName() string {
	return "email_verifications"
}

// IsExpired 验证码在 now 时刻是否已过期
func (e *EmailVerification) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// IsValid 未使用且未过期
func (e *EmailVerification) IsValid(now time.Time) bool {
	return !e.Used && !e.IsExpired(now)
}

// GenerateVerificationCode 生成6位数字验证码
func GenerateVerificationCode() (string, error) {
	b := make([]byte, 3)
	if _, err := randRead(b); err != nil {
		return "", err
	}
	code := int(b[0])<<16 | int(b[1])<<8 | int(b[2])
	code = code%900000 + 100000
	return fmt.Sprintf("%06d", code), nil
}

var randRead = func(b []byte) (int, error) {
	return cryptoRand.Read(b)
}
