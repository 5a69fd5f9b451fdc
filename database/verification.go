package database

import (
	"context"
	"time"

	"ledger/models"

	"gorm.io/gorm"
)

// VerificationStore 邮箱验证码存储
type VerificationStore struct {
	db *gorm.DB
}

// NewVerificationStore 创建验证码存储
func NewVerificationStore(db *gorm.DB) *VerificationStore {
	return &VerificationStore{db: db}
}

// PurgeExpired 删除已使用或已过期的验证码
func (s *VerificationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("used = ? OR expires_at < ?", true, now.UTC()).
		Delete(&models.EmailVerification{})
	if res.Error != nil {
		return 0, storeErr("清理验证码", res.Error)
	}
	return res.RowsAffected, nil
}
