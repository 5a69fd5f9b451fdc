package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// 金额以 JSON 数字输出，与前端图表组件保持一致
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType 交易类型
type TransactionType string

const (
	TypeIncome  TransactionType = "Income"
	TypeExpense TransactionType = "Expense"
)

// Valid 是否为合法的交易类型
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// TransactionState 交易生命周期状态
type TransactionState string

const (
	StateActive  TransactionState = "active"
	StateTrashed TransactionState = "trashed"
	// StatePurged 物理删除后的终态，数据库中不存在对应记录
	StatePurged TransactionState = "purged"
)

// Transaction 收支记录模型
type Transaction struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserID      uint            `json:"user_id" gorm:"not null;index:idx_tx_owner_date,priority:1;index:idx_tx_owner_trash,priority:1"`
	Date        time.Time       `json:"date" gorm:"not null;index:idx_tx_owner_date,priority:2"`
	Type        TransactionType `json:"type" gorm:"size:20;not null"`
	Category    string          `json:"category" gorm:"size:50;not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Description string          `json:"description" gorm:"size:255"`
	IsDeleted   bool            `json:"is_deleted" gorm:"not null;default:false;index:idx_tx_owner_trash,priority:2"`
	DeletedAt   *time.Time      `json:"deleted_at" gorm:"index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	User        User            `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Transaction) TableName() string {
	return "transactions"
}

// State 根据回收站标记推导当前状态
func (t *Transaction) State() TransactionState {
	if t.IsDeleted {
		return StateTrashed
	}
	return StateActive
}

// MoveToTrash 标记为已删除，isDeleted 与 deletedAt 必须同时设置
func (t *Transaction) MoveToTrash(at time.Time) {
	at = at.UTC()
	t.IsDeleted = true
	t.DeletedAt = &at
}

// Restore 从回收站恢复
func (t *Transaction) Restore() {
	t.IsDeleted = false
	t.DeletedAt = nil
}

// NormalizeDate 截断为 UTC 当天零点，避免时区边界导致月份归属错误
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
