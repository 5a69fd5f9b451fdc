package models

// 默认收入类别（顺序即报表顺序）
var defaultIncomeCategories = []string{
	"Salary",
	"Freelance",
	"Investments",
	"Business",
	"Rental",
	"Gifts",
	"Other",
}

// 默认支出类别（顺序即报表顺序）
var defaultExpenseCategories = []string{
	"Food",
	"Transportation",
	"Housing",
	"Utilities",
	"Entertainment",
	"Shopping",
	"Healthcare",
	"Education",
	"Travel",
	"Other",
}

// CategoryRegistry 收入/支出类别注册表，运行期只读
type CategoryRegistry struct {
	income  []string
	expense []string
}

// NewCategoryRegistry 创建类别注册表，去除空值与重复项并保留首次出现的顺序
func NewCategoryRegistry(income, expense []string) *CategoryRegistry {
	return &CategoryRegistry{
		income:  dedupe(income),
		expense: dedupe(expense),
	}
}

// DefaultCategoryRegistry 内置类别注册表
func DefaultCategoryRegistry() *CategoryRegistry {
	return NewCategoryRegistry(defaultIncomeCategories, defaultExpenseCategories)
}

// DefaultIncomeCategories 内置收入类别副本
func DefaultIncomeCategories() []string {
	return append([]string(nil), defaultIncomeCategories...)
}

// DefaultExpenseCategories 内置支出类别副本
func DefaultExpenseCategories() []string {
	return append([]string(nil), defaultExpenseCategories...)
}

// Income 收入类别（返回副本）
func (r *CategoryRegistry) Income() []string {
	return append([]string(nil), r.income...)
}

// Expense 支出类别（返回副本）
func (r *CategoryRegistry) Expense() []string {
	return append([]string(nil), r.expense...)
}

// For 按交易类型返回类别列表，未知类型返回 nil
func (r *CategoryRegistry) For(t TransactionType) []string {
	switch t {
	case TypeIncome:
		return r.Income()
	case TypeExpense:
		return r.Expense()
	}
	return nil
}

// IsValidCategory 类别是否属于该交易类型
func IsValidCategory(t TransactionType, category string, r *CategoryRegistry) bool {
	if r == nil {
		return false
	}
	var list []string
	switch t {
	case TypeIncome:
		list = r.income
	case TypeExpense:
		list = r.expense
	default:
		return false
	}
	for _, c := range list {
		if c == category {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
