package service

import (
	"context"
	"time"

	"ledger/models"
)

// StatementStore 导出所需的查询
type StatementStore interface {
	ListPeriod(ctx context.Context, owner uint, from, to time.Time) ([]models.Transaction, error)
}

// Statement 月度对账单：当月全部有效记录及其汇总
type Statement struct {
	Summary *MonthSummary
	Items   []models.Transaction
}

// ExportService 月度对账单
type ExportService struct {
	store   StatementStore
	reports *ReportService
}

// NewExportService 创建导出服务，年月解析与汇总规则与报表一致
func NewExportService(store StatementStore, reports *ReportService) *ExportService {
	return &ExportService{store: store, reports: reports}
}

// Statement 生成指定月份的对账单，year/month 为 0 表示当前月份
func (s *ExportService) Statement(ctx context.Context, owner uint, year, month int) (*Statement, error) {
	year, month, err := s.reports.ResolvePeriod(year, month)
	if err != nil {
		return nil, err
	}
	from, to := MonthWindow(year, month)
	items, err := s.store.ListPeriod(ctx, owner, from, to)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Transaction{}
	}

	summary := Summarize(items, s.reports.registry)
	summary.Year = year
	summary.Month = month
	return &Statement{Summary: summary, Items: items}, nil
}
