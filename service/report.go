package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ledger/models"

	"github.com/shopspring/decimal"
)

const recentLimit = 5

// ReportStore 统计所需的只读查询
type ReportStore interface {
	ListActive(ctx context.Context, owner uint, from, to *time.Time) ([]models.Transaction, error)
	Recent(ctx context.Context, owner uint, n int) ([]models.Transaction, error)
}

// CategoryTotal 单个类别的合计
type CategoryTotal struct {
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// MonthSummary 月度汇总，两个分类明细始终包含注册表中的全部类别
type MonthSummary struct {
	Year             int             `json:"year"`
	Month            int             `json:"month"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	Balance          decimal.Decimal `json:"balance"`
	IncomeBreakdown  []CategoryTotal `json:"income_breakdown"`
	ExpenseBreakdown []CategoryTotal `json:"expense_breakdown"`
}

// WeekBucket 月内按周汇总
type WeekBucket struct {
	Week         string          `json:"week"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}

// MonthBucket 年内按月汇总
type MonthBucket struct {
	Month        int             `json:"month"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}

// YearBucket 按年汇总
type YearBucket struct {
	Year         int             `json:"year"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetBalance   decimal.Decimal `json:"net_balance"`
}

// Overview 全部时间的汇总与最近记录
type Overview struct {
	TotalIncome      decimal.Decimal      `json:"total_income"`
	TotalExpense     decimal.Decimal      `json:"total_expense"`
	Balance          decimal.Decimal      `json:"balance"`
	TransactionCount int                  `json:"transaction_count"`
	Recent           []models.Transaction `json:"recent"`
}

// ReportService 统计报表，只统计 Active 记录
type ReportService struct {
	store    ReportStore
	registry *models.CategoryRegistry
	now      func() time.Time
}

// NewReportService 创建统计服务
func NewReportService(store ReportStore, registry *models.CategoryRegistry) *ReportService {
	return &ReportService{
		store:    store,
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ResolvePeriod 缺省年份/月份取当前 UTC 时间
func (s *ReportService) ResolvePeriod(year, month int) (int, int, error) {
	now := s.now().UTC()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if year < 1 || year > models.MaxYear {
		return 0, 0, models.NewValidationError("year", "年份必须在 1-9998 之间")
	}
	if month < 1 || month > 12 {
		return 0, 0, models.NewValidationError("month", "月份必须在 1-12 之间")
	}
	return year, month, nil
}

// MonthWindow 月份窗口 [当月1日, 次月1日)
func MonthWindow(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// YearWindow 年份窗口 [当年1月1日, 次年1月1日)
func YearWindow(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

// MonthSummary 月度汇总
func (s *ReportService) MonthSummary(ctx context.Context, owner uint, year, month int) (*MonthSummary, error) {
	year, month, err := s.ResolvePeriod(year, month)
	if err != nil {
		return nil, err
	}
	from, to := MonthWindow(year, month)
	txs, err := s.store.ListActive(ctx, owner, &from, &to)
	if err != nil {
		return nil, err
	}

	summary := Summarize(txs, s.registry)
	summary.Year = year
	summary.Month = month
	return summary, nil
}

// WeeklyBreakdown 月内按周汇总，周序号 = ceil(日期/7)，空周不返回
func (s *ReportService) WeeklyBreakdown(ctx context.Context, owner uint, year, month int) ([]WeekBucket, error) {
	year, month, err := s.ResolvePeriod(year, month)
	if err != nil {
		return nil, err
	}
	from, to := MonthWindow(year, month)
	txs, err := s.store.ListActive(ctx, owner, &from, &to)
	if err != nil {
		return nil, err
	}
	return GroupByWeekOfMonth(txs), nil
}

// MonthlyBreakdown 年内按月汇总，空月不返回
func (s *ReportService) MonthlyBreakdown(ctx context.Context, owner uint, year int) ([]MonthBucket, error) {
	year, _, err := s.ResolvePeriod(year, 0)
	if err != nil {
		return nil, err
	}
	from, to := YearWindow(year)
	txs, err := s.store.ListActive(ctx, owner, &from, &to)
	if err != nil {
		return nil, err
	}
	return GroupByMonth(txs), nil
}

// YearlyBreakdown 全部历史按年汇总
func (s *ReportService) YearlyBreakdown(ctx context.Context, owner uint) ([]YearBucket, error) {
	txs, err := s.store.ListActive(ctx, owner, nil, nil)
	if err != nil {
		return nil, err
	}
	return GroupByYear(txs), nil
}

// Overview 全部时间的收支合计与最近记录
func (s *ReportService) Overview(ctx context.Context, owner uint) (*Overview, error) {
	txs, err := s.store.ListActive(ctx, owner, nil, nil)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.Recent(ctx, owner, recentLimit)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []models.Transaction{}
	}

	var t totals
	for i := range txs {
		t.add(&txs[i])
	}
	return &Overview{
		TotalIncome:      t.income,
		TotalExpense:     t.expense,
		Balance:          t.income.Sub(t.expense),
		TransactionCount: len(txs),
		Recent:           recent,
	}, nil
}

type totals struct {
	income  decimal.Decimal
	expense decimal.Decimal
}

func (t *totals) add(tx *models.Transaction) {
	switch tx.Type {
	case models.TypeIncome:
		t.income = t.income.Add(tx.Amount)
	case models.TypeExpense:
		t.expense = t.expense.Add(tx.Amount)
	}
}

// Summarize 汇总收支并按注册表顺序补零生成分类明细
//
// 不在注册表中的历史类别计入合计，但不出现在明细中。
func Summarize(txs []models.Transaction, registry *models.CategoryRegistry) *MonthSummary {
	var t totals
	byCategory := map[models.TransactionType]map[string]decimal.Decimal{
		models.TypeIncome:  {},
		models.TypeExpense: {},
	}
	for i := range txs {
		tx := &txs[i]
		t.add(tx)
		if m, ok := byCategory[tx.Type]; ok {
			m[tx.Category] = m[tx.Category].Add(tx.Amount)
		}
	}

	return &MonthSummary{
		TotalIncome:      t.income,
		TotalExpense:     t.expense,
		Balance:          t.income.Sub(t.expense),
		IncomeBreakdown:  zeroFill(registry.Income(), byCategory[models.TypeIncome]),
		ExpenseBreakdown: zeroFill(registry.Expense(), byCategory[models.TypeExpense]),
	}
}

func zeroFill(categories []string, sums map[string]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(categories))
	for _, c := range categories {
		// map 缺省值为 decimal 零值
		out = append(out, CategoryTotal{Category: c, TotalAmount: sums[c]})
	}
	return out
}

// WeekOfMonth 月内周序号 1..5
func WeekOfMonth(t time.Time) int {
	return (t.UTC().Day()-1)/7 + 1
}

// GroupByWeekOfMonth 按月内周序号分组，升序
func GroupByWeekOfMonth(txs []models.Transaction) []WeekBucket {
	keys, sums := groupBy(txs, func(t time.Time) int { return WeekOfMonth(t) })
	out := make([]WeekBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, WeekBucket{
			Week:         fmt.Sprintf("Week %d", k),
			TotalIncome:  sums[k].income,
			TotalExpense: sums[k].expense,
		})
	}
	return out
}

// GroupByMonth 按自然月分组，升序
func GroupByMonth(txs []models.Transaction) []MonthBucket {
	keys, sums := groupBy(txs, func(t time.Time) int { return int(t.UTC().Month()) })
	out := make([]MonthBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, MonthBucket{
			Month:        k,
			TotalIncome:  sums[k].income,
			TotalExpense: sums[k].expense,
		})
	}
	return out
}

// GroupByYear 按自然年分组，升序
func GroupByYear(txs []models.Transaction) []YearBucket {
	keys, sums := groupBy(txs, func(t time.Time) int { return t.UTC().Year() })
	out := make([]YearBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, YearBucket{
			Year:         k,
			TotalIncome:  sums[k].income,
			TotalExpense: sums[k].expense,
			NetBalance:   sums[k].income.Sub(sums[k].expense),
		})
	}
	return out
}

func groupBy(txs []models.Transaction, key func(time.Time) int) ([]int, map[int]*totals) {
	sums := make(map[int]*totals)
	for i := range txs {
		k := key(txs[i].Date)
		t, ok := sums[k]
		if !ok {
			t = &totals{}
			sums[k] = t
		}
		t.add(&txs[i])
	}
	keys := make([]int, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys, sums
}
