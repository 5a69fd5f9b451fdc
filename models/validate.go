package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxDescriptionLength 备注最大长度
	MaxDescriptionLength = 255
	// MaxYear 允许的最大年份，保证次年1月1日的窗口终点仍可存储
	MaxYear = 9998
)

// MaxAmount decimal(12,2) 可容纳的最大金额
var MaxAmount = decimal.RequireFromString("9999999999.99")

// ValidateTransaction 校验一条完整的记录，新增与更新（合并后）走同一套规则
func ValidateTransaction(tx *Transaction, r *CategoryRegistry) error {
	if tx.UserID == 0 {
		return NewValidationError("user_id", "所属用户不能为空")
	}
	if tx.Date.IsZero() {
		return NewValidationError("date", "日期不能为空")
	}
	if tx.Date.Year() > MaxYear {
		return NewValidationError("date", "日期年份不能超过 9998")
	}
	if !tx.Type.Valid() {
		return NewValidationError("type", "类型必须为 Income 或 Expense")
	}
	if strings.TrimSpace(tx.Category) == "" {
		return NewValidationError("category", "类别不能为空")
	}
	if !IsValidCategory(tx.Type, tx.Category, r) {
		return NewValidationError("category", "类别 "+tx.Category+" 不属于 "+string(tx.Type))
	}
	if err := ValidateAmount(tx.Amount); err != nil {
		return err
	}
	if len([]rune(tx.Description)) > MaxDescriptionLength {
		return NewValidationError("description", "备注过长")
	}
	if tx.IsDeleted != (tx.DeletedAt != nil) {
		return NewValidationError("is_deleted", "删除标记与删除时间不一致")
	}
	return nil
}

// ValidateAmount 金额必须为正数且最多两位小数
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewValidationError("amount", "金额必须大于 0")
	}
	if amount.GreaterThan(MaxAmount) {
		return NewValidationError("amount", "金额超出上限 9999999999.99")
	}
	if !amount.Equal(amount.Round(2)) {
		return NewValidationError("amount", "金额最多保留两位小数")
	}
	return nil
}
