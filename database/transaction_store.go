package database

import (
	"context"
	"errors"
	"time"

	"ledger/models"

	"gorm.io/gorm"
)

// 列表排序方向
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListQuery 分页查询条件，只查询 Active 记录
type ListQuery struct {
	Page     int
	PageSize int
	Type     models.TransactionType
	Category string
	Sort     string
}

// TransactionStore 基于 gorm 的收支记录存储，所有查询都以 user_id 作为过滤条件
type TransactionStore struct {
	db *gorm.DB
}

// NewTransactionStore 创建收支记录存储
func NewTransactionStore(db *gorm.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func storeErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return &models.StoreError{Op: op, Err: err}
}

// Create 新增记录
func (s *TransactionStore) Create(ctx context.Context, tx *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		return storeErr("创建记录", err)
	}
	return nil
}

// Get 按 ID 查询当前用户指定状态的记录
func (s *TransactionStore) Get(ctx context.Context, owner, id uint, state models.TransactionState) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, owner, state == models.StateTrashed).
		First(&tx).Error
	if err != nil {
		return nil, storeErr("查询记录", err)
	}
	return &tx, nil
}

// List 分页查询，默认按日期倒序
func (s *TransactionStore) List(ctx context.Context, owner uint, q ListQuery) ([]models.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND is_deleted = ?", owner, false)
	if q.Type != "" {
		query = query.Where("type = ?", q.Type)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeErr("统计记录数", err)
	}

	order := "date DESC, id DESC"
	if q.Sort == SortAsc {
		order = "date ASC, id ASC"
	}
	var list []models.Transaction
	offset := (q.Page - 1) * q.PageSize
	if err := query.Order(order).Offset(offset).Limit(q.PageSize).Find(&list).Error; err != nil {
		return nil, 0, storeErr("查询记录列表", err)
	}
	return list, total, nil
}

// ListTrash 回收站中的全部记录，最近删除的在前
func (s *TransactionStore) ListTrash(ctx context.Context, owner uint) ([]models.Transaction, error) {
	var list []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", owner, true).
		Order("deleted_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, storeErr("查询回收站", err)
	}
	return list, nil
}

// Update 整体写回可变字段，仅对未删除的记录生效
func (s *TransactionStore) Update(ctx context.Context, tx *models.Transaction) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", tx.ID, tx.UserID, false).
		Updates(map[string]interface{}{
			"date":        tx.Date,
			"type":        tx.Type,
			"category":    tx.Category,
			"amount":      tx.Amount,
			"description": tx.Description,
		})
	if res.Error != nil {
		return storeErr("更新记录", res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL 在值未变化时返回 0 行，需要再确认记录是否存在
		if _, err := s.Get(ctx, tx.UserID, tx.ID, models.StateActive); err != nil {
			return err
		}
	}
	return nil
}

// SoftDelete 移入回收站
func (s *TransactionStore) SoftDelete(ctx context.Context, owner, id uint, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, owner, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": at.UTC(),
		})
	return affected("移入回收站", res)
}

// Restore 从回收站恢复
func (s *TransactionStore) Restore(ctx context.Context, owner, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, owner, true).
		Updates(map[string]interface{}{
			"is_deleted": false,
			"deleted_at": nil,
		})
	return affected("恢复记录", res)
}

// HardDelete 物理删除回收站中的记录，未命中返回 false
func (s *TransactionStore) HardDelete(ctx context.Context, owner, id uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, owner, true).
		Delete(&models.Transaction{})
	if res.Error != nil {
		return false, storeErr("彻底删除记录", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// PurgeOlderThan 清理所有用户中删除时间早于 cutoff 的记录
func (s *TransactionStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff.UTC()).
		Delete(&models.Transaction{})
	if res.Error != nil {
		return 0, storeErr("清理回收站", res.Error)
	}
	return res.RowsAffected, nil
}

// ListActive 查询 [from, to) 区间内未删除的记录，from/to 为 nil 表示不限
func (s *TransactionStore) ListActive(ctx context.Context, owner uint, from, to *time.Time) ([]models.Transaction, error) {
	query := s.db.WithContext(ctx).
		Select("id", "date", "type", "category", "amount").
		Where("user_id = ? AND is_deleted = ?", owner, false)
	if from != nil {
		query = query.Where("date >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("date < ?", to.UTC())
	}

	var list []models.Transaction
	if err := query.Order("date ASC, id ASC").Find(&list).Error; err != nil {
		return nil, storeErr("查询统计数据", err)
	}
	return list, nil
}

// Recent 最近的 n 条未删除记录
func (s *TransactionStore) Recent(ctx context.Context, owner uint, n int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", owner, false).
		Order("date DESC, id DESC").
		Limit(n).
		Find(&list).Error
	if err != nil {
		return nil, storeErr("查询最近记录", err)
	}
	return list, nil
}

func affected(op string, res *gorm.DB) error {
	if res.Error != nil {
		return storeErr(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListPeriod 查询 [from, to) 区间内未删除记录的完整字段，用于导出
func (s *TransactionStore) ListPeriod(ctx context.Context, owner uint, from, to time.Time) ([]models.Transaction, error) {
	var list []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", owner, false).
		Where("date >= ? AND date < ?", from.UTC(), to.UTC()).
		Order("date ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, storeErr("查询导出数据", err)
	}
	return list, nil
}
