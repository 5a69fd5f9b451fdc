package service

import (
	"context"
	"math"
	"strings"
	"time"

	"ledger/database"
	"ledger/models"

	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// TransactionStore 收支记录存储
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	Get(ctx context.Context, owner, id uint, state models.TransactionState) (*models.Transaction, error)
	List(ctx context.Context, owner uint, q database.ListQuery) ([]models.Transaction, int64, error)
	ListTrash(ctx context.Context, owner uint) ([]models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
	SoftDelete(ctx context.Context, owner, id uint, at time.Time) error
	Restore(ctx context.Context, owner, id uint) error
	HardDelete(ctx context.Context, owner, id uint) (bool, error)
}

// CreateInput 新增记录参数
type CreateInput struct {
	Date        time.Time
	Type        models.TransactionType
	Category    string
	Amount      decimal.Decimal
	Description string
}

// UpdateInput 更新记录参数，nil 表示不修改
type UpdateInput struct {
	Date        *time.Time
	Type        *models.TransactionType
	Category    *string
	Amount      *decimal.Decimal
	Description *string
}

// ListInput 分页参数，Sort 为 asc 或 desc（按日期），缺省 desc
type ListInput struct {
	Page     int
	Limit    int
	Type     models.TransactionType
	Category string
	Sort     string
}

// Pagination 分页信息
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// TransactionPage 分页结果
type TransactionPage struct {
	Items      []models.Transaction `json:"items"`
	Pagination Pagination           `json:"pagination"`
}

// TransactionService 收支记录生命周期：Active -> Trashed -> Purged
//
// 状态不符、记录不存在、不属于当前用户统一返回 models.ErrNotFound。
type TransactionService struct {
	store    TransactionStore
	registry *models.CategoryRegistry
	now      func() time.Time
}

// NewTransactionService 创建收支记录服务
func NewTransactionService(store TransactionStore, registry *models.CategoryRegistry) *TransactionService {
	return &TransactionService{
		store:    store,
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Registry 当前使用的类别注册表
func (s *TransactionService) Registry() *models.CategoryRegistry {
	return s.registry
}

// Create 新增一条 Active 记录
func (s *TransactionService) Create(ctx context.Context, owner uint, in CreateInput) (*models.Transaction, error) {
	tx := &models.Transaction{
		UserID:      owner,
		Date:        models.NormalizeDate(in.Date),
		Type:        in.Type,
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
	}
	if err := models.ValidateTransaction(tx, s.registry); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Get 查询一条 Active 记录
func (s *TransactionService) Get(ctx context.Context, owner, id uint) (*models.Transaction, error) {
	return s.store.Get(ctx, owner, id, models.StateActive)
}

// List 分页查询 Active 记录
func (s *TransactionService) List(ctx context.Context, owner uint, in ListInput) (*TransactionPage, error) {
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.Limit <= 0 {
		in.Limit = defaultPageSize
	}
	if in.Limit > maxPageSize {
		in.Limit = maxPageSize
	}
	// 偏移量 (page-1)*limit 不能溢出
	if in.Page > math.MaxInt/in.Limit {
		return nil, models.NewValidationError("page", "页码超出范围")
	}
	if in.Type != "" && !in.Type.Valid() {
		return nil, models.NewValidationError("type", "类型必须为 Income 或 Expense")
	}
	sortOrder := strings.ToLower(strings.TrimSpace(in.Sort))
	switch sortOrder {
	case "":
		sortOrder = database.SortDesc
	case database.SortAsc, database.SortDesc:
	default:
		return nil, models.NewValidationError("sort", "排序方式必须为 asc 或 desc")
	}

	items, total, err := s.store.List(ctx, owner, database.ListQuery{
		Page:     in.Page,
		PageSize: in.Limit,
		Type:     in.Type,
		Category: strings.TrimSpace(in.Category),
		Sort:     sortOrder,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Transaction{}
	}

	return &TransactionPage{
		Items: items,
		Pagination: Pagination{
			Total:      total,
			Page:       in.Page,
			Limit:      in.Limit,
			TotalPages: int((total + int64(in.Limit) - 1) / int64(in.Limit)),
		},
	}, nil
}

// ListTrash 回收站列表
func (s *TransactionService) ListTrash(ctx context.Context, owner uint) ([]models.Transaction, error) {
	list, err := s.store.ListTrash(ctx, owner)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Transaction{}
	}
	return list, nil
}

// Update 合并字段后整体重新校验，再写回
func (s *TransactionService) Update(ctx context.Context, owner, id uint, in UpdateInput) (*models.Transaction, error) {
	tx, err := s.store.Get(ctx, owner, id, models.StateActive)
	if err != nil {
		return nil, err
	}

	if in.Date != nil {
		if in.Date.IsZero() {
			return nil, models.NewValidationError("date", "日期不能为空")
		}
		tx.Date = models.NormalizeDate(*in.Date)
	}
	if in.Type != nil {
		tx.Type = *in.Type
	}
	if in.Category != nil {
		tx.Category = strings.TrimSpace(*in.Category)
	}
	if in.Amount != nil {
		tx.Amount = *in.Amount
	}
	if in.Description != nil {
		tx.Description = strings.TrimSpace(*in.Description)
	}

	if err := models.ValidateTransaction(tx, s.registry); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, tx); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, owner, id, models.StateActive)
}

// MoveToTrash Active -> Trashed
func (s *TransactionService) MoveToTrash(ctx context.Context, owner, id uint) (*models.Transaction, error) {
	if err := s.store.SoftDelete(ctx, owner, id, s.now()); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, owner, id, models.StateTrashed)
}

// Restore Trashed -> Active
func (s *TransactionService) Restore(ctx context.Context, owner, id uint) (*models.Transaction, error) {
	if err := s.store.Restore(ctx, owner, id); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, owner, id, models.StateActive)
}

// PermanentlyDelete Trashed -> Purged，Active 记录必须先移入回收站
func (s *TransactionService) PermanentlyDelete(ctx context.Context, owner, id uint) error {
	ok, err := s.store.HardDelete(ctx, owner, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrNotFound
	}
	return nil
}
