package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"ledger/database"
	"ledger/models"
	"ledger/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testHandlers struct {
	tx     *TransactionHandler
	report *ReportHandler
	export *ExportHandler
}

func newTestHandlers(t *testing.T) *testHandlers {
	db := setupTestDB(t)
	store := database.NewTransactionStore(db)
	registry := models.DefaultCategoryRegistry()
	reports := service.NewReportService(store, registry)
	return &testHandlers{
		tx:     NewTransactionHandler(service.NewTransactionService(store, registry)),
		report: NewReportHandler(reports),
		export: NewExportHandler(service.NewExportService(store, reports)),
	}
}

func (h *testHandlers) router(userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(setUserIDMiddleware(userID))
	r.POST("/transactions", h.tx.Create)
	r.GET("/transactions", h.tx.List)
	r.GET("/transactions/trash", h.tx.ListTrash)
	r.GET("/transactions/:id", h.tx.Get)
	r.PUT("/transactions/:id", h.tx.Update)
	r.DELETE("/transactions/:id", h.tx.Trash)
	r.POST("/transactions/:id/restore", h.tx.Restore)
	r.DELETE("/transactions/:id/permanent", h.tx.PermanentDelete)
	r.GET("/reports/dashboard", h.report.Dashboard)
	r.GET("/reports/weekly", h.report.Weekly)
	r.GET("/reports/monthly", h.report.Monthly)
	r.GET("/reports/overall", h.report.Overall)
	r.GET("/reports/overview", h.report.Overview)
	r.GET("/export/csv", h.export.ExportCSV)
	r.GET("/export/excel", h.export.ExportExcel)
	return r
}

func createTx(t *testing.T, r *gin.Engine, body string) uint {
	t.Helper()
	w, resp := doJSON(r, "POST", "/transactions", body)
	require.Equalf(t, 200, w.Code, "body: %s", w.Body.String())
	return uint(resp["data"].(map[string]interface{})["id"].(float64))
}

func TestTransactionHandler_CRUD(t *testing.T) {
	h := newTestHandlers(t)
	r := h.router(1)

	w, resp := doJSON(r, "POST", "/transactions", `{"date":"2025-03-15","type":"Income","category":"Freelance","amount":500,"description":"logo"}`)
	require.Equal(t, 200, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(500), data["amount"])
	assert.Equal(t, false, data["is_deleted"])
	id := uint(data["id"].(float64))

	w, resp = doJSON(r, "GET", fmt.Sprintf("/transactions/%d", id), "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "Freelance", resp["data"].(map[string]interface{})["category"])

	w, resp = doJSON(r, "PUT", fmt.Sprintf("/transactions/%d", id), `{"type":"Expense","category":"Travel","amount":"120.50"}`)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, 120.5, resp["data"].(map[string]interface{})["amount"])

	// 合并后类型与类别不匹配
	w, _ = doJSON(r, "PUT", fmt.Sprintf("/transactions/%d", id), `{"type":"Income"}`)
	assert.Equal(t, 400, w.Code)

	w, _ = doJSON(r, "GET", "/transactions/abc", "")
	assert.Equal(t, 400, w.Code)
	w, resp = doJSON(r, "GET", "/transactions/9999", "")
	assert.Equal(t, 404, w.Code)
	assert.Equal(t, "记录不存在", resp["message"])
}

func TestTransactionHandler_CreateValidation(t *testing.T) {
	h := newTestHandlers(t)
	r := h.router(1)

	cases := []string{
		`{"date":"2025-03-15","type":"Income","category":"Food","amount":10}`,
		`{"date":"2025-03-15","type":"Transfer","category":"Food","amount":10}`,
		`{"date":"15/03/2025","type":"Expense","category":"Food","amount":10}`,
		`{"date":"2025-03-15","type":"Expense","category":"Food","amount":0}`,
		`{"date":"2025-03-15","type":"Expense","category":"Food","amount":1.005}`,
		`{"date":"2025-03-15","type":"Expense","category":"Food"}`,
		`{"type":"Expense","category":"Food","amount":10}`,
		`{"date":"2025-03-15","type":"Expense","category":"Food","amount":1000000000000}`,
		`{"date":"9999-12-15","type":"Income","category":"Salary","amount":100}`,
	}
	for _, body := range cases {
		w, _ := doJSON(r, "POST", "/transactions", body)
		assert.Equalf(t, 400, w.Code, "body: %s", body)
	}
}

func TestTransactionHandler_TrashLifecycle(t *testing.T) {
	h := newTestHandlers(t)
	owner := h.router(1)
	intruder := h.router(2)
	id := createTx(t, owner, `{"date":"2025-03-15","type":"Expense","category":"Food","amount":12.3}`)
	path := fmt.Sprintf("/transactions/%d", id)

	// 彻底删除前必须先移入回收站
	w, _ := doJSON(owner, "DELETE", path+"/permanent", "")
	assert.Equal(t, 404, w.Code)

	w, _ = doJSON(intruder, "DELETE", path, "")
	assert.Equal(t, 404, w.Code)

	w, resp := doJSON(owner, "DELETE", path, "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, true, resp["data"].(map[string]interface{})["is_deleted"])

	w, resp = doJSON(owner, "GET", "/transactions", "")
	require.Equal(t, 200, w.Code)
	assert.Empty(t, resp["data"].(map[string]interface{})["items"])

	w, resp = doJSON(owner, "GET", "/transactions/trash", "")
	require.Equal(t, 200, w.Code)
	assert.Len(t, resp["data"], 1)

	w, _ = doJSON(intruder, "POST", path+"/restore", "")
	assert.Equal(t, 404, w.Code)
	w, _ = doJSON(owner, "POST", path+"/restore", "")
	require.Equal(t, 200, w.Code)

	_, _ = doJSON(owner, "DELETE", path, "")
	w, _ = doJSON(owner, "DELETE", path+"/permanent", "")
	require.Equal(t, 200, w.Code)
	w, _ = doJSON(owner, "POST", path+"/restore", "")
	assert.Equal(t, 404, w.Code)
}

func TestTransactionHandler_ListFilters(t *testing.T) {
	h := newTestHandlers(t)
	r := h.router(1)
	createTx(t, r, `{"date":"2025-03-01","type":"Income","category":"Salary","amount":1000}`)
	createTx(t, r, `{"date":"2025-03-02","type":"Expense","category":"Food","amount":20}`)
	createTx(t, r, `{"date":"2025-03-03","type":"Expense","category":"Travel","amount":30}`)

	w, resp := doJSON(r, "GET", "/transactions?type=Expense&limit=1", "")
	require.Equal(t, 200, w.Code)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "2025-03-03T00:00:00Z", items[0].(map[string]interface{})["date"])
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["total"])
	assert.Equal(t, float64(2), pagination["total_pages"])

	w, resp = doJSON(r, "GET", "/transactions?category=Food", "")
	require.Equal(t, 200, w.Code)
	assert.Len(t, resp["data"].(map[string]interface{})["items"], 1)

	w, _ = doJSON(r, "GET", "/transactions?type=Other", "")
	assert.Equal(t, 400, w.Code)

	w, resp = doJSON(r, "GET", "/transactions?sort=asc&limit=1", "")
	require.Equal(t, 200, w.Code)
	items = resp["data"].(map[string]interface{})["items"].([]interface{})
	assert.Equal(t, "2025-03-01T00:00:00Z", items[0].(map[string]interface{})["date"])

	w, _ = doJSON(r, "GET", "/transactions?sort=amount", "")
	assert.Equal(t, 400, w.Code)
	w, resp = doJSON(r, "GET", "/transactions?page=1844674407370955160", "")
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "page: 页码超出范围", resp["message"])
}

func TestReportHandler(t *testing.T) {
	h := newTestHandlers(t)
	r := h.router(1)
	createTx(t, r, `{"date":"2025-03-15","type":"Income","category":"Freelance","amount":500}`)
	createTx(t, r, `{"date":"2024-06-01","type":"Expense","category":"Food","amount":"40.25"}`)

	w, resp := doJSON(r, "GET", "/reports/dashboard?year=2025&month=3", "")
	require.Equal(t, 200, w.Code)
	summary := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(500), summary["total_income"])
	assert.Equal(t, float64(0), summary["total_expense"])
	assert.Equal(t, float64(500), summary["balance"])
	assert.Len(t, summary["income_breakdown"], len(models.DefaultIncomeCategories()))
	assert.Len(t, summary["expense_breakdown"], len(models.DefaultExpenseCategories()))

	w, _ = doJSON(r, "GET", "/reports/dashboard?month=13", "")
	assert.Equal(t, 400, w.Code)
	w, _ = doJSON(r, "GET", "/reports/dashboard?year=abc", "")
	assert.Equal(t, 400, w.Code)

	// 显式传 0 不等同于未传
	w, resp = doJSON(r, "GET", "/reports/dashboard?year=2025&month=0", "")
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "month: 必须为正整数", resp["message"])
	w, _ = doJSON(r, "GET", "/reports/monthly?year=0", "")
	assert.Equal(t, 400, w.Code)
	w, _ = doJSON(r, "GET", "/reports/dashboard?year=9999&month=12", "")
	assert.Equal(t, 400, w.Code)
	w, resp = doJSON(r, "GET", "/reports/dashboard?year=&month=", "")
	require.Equal(t, 200, w.Code)

	w, resp = doJSON(r, "GET", "/reports/weekly?year=2025&month=3", "")
	require.Equal(t, 200, w.Code)
	weeks := resp["data"].([]interface{})
	require.Len(t, weeks, 1)
	assert.Equal(t, "Week 3", weeks[0].(map[string]interface{})["week"])

	w, resp = doJSON(r, "GET", "/reports/monthly?year=2024", "")
	require.Equal(t, 200, w.Code)
	months := resp["data"].([]interface{})
	require.Len(t, months, 1)
	assert.Equal(t, float64(6), months[0].(map[string]interface{})["month"])

	w, resp = doJSON(r, "GET", "/reports/overall", "")
	require.Equal(t, 200, w.Code)
	years := resp["data"].([]interface{})
	require.Len(t, years, 2)
	assert.Equal(t, -40.25, years[0].(map[string]interface{})["net_balance"])

	w, resp = doJSON(r, "GET", "/reports/overview", "")
	require.Equal(t, 200, w.Code)
	overview := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), overview["transaction_count"])
	assert.Equal(t, 459.75, overview["balance"])
}

func TestExportHandler(t *testing.T) {
	h := newTestHandlers(t)
	r := h.router(1)
	createTx(t, r, `{"date":"2025-03-15","type":"Income","category":"Freelance","amount":500,"description":"设计, 第一期"}`)
	createTx(t, r, `{"date":"2025-03-20","type":"Expense","category":"Food","amount":"12.5"}`)
	createTx(t, r, `{"date":"2025-04-01","type":"Expense","category":"Food","amount":"1"}`)

	req := httptest.NewRequest("GET", "/export/csv?year=2025&month=3", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transactions_2025-03.csv")
	body := w.Body.String()
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\xEF\xBB\xBF")))
	assert.Contains(t, body, `2025-03-15,Income,Freelance,500.00,"设计, 第一期"`)
	assert.Contains(t, body, "12.50")
	assert.NotContains(t, body, "2025-04-01")

	req = httptest.NewRequest("GET", "/export/excel?year=2025&month=3", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(detailSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Freelance", rows[1][3])
	v, err := f.GetCellValue(summarySheet, "A4")
	require.NoError(t, err)
	assert.Equal(t, "结余", v)

	w, _ = doJSON(r, "GET", "/export/csv?month=0&year=-1", "")
	assert.Equal(t, 400, w.Code)
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
	}{
		{models.NewValidationError("amount", "金额必须大于 0"), 400},
		{models.ErrNotFound, 404},
		{&models.StoreError{Op: "查询", Err: assert.AnError}, 500},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err, "失败")
		assert.Equal(t, tc.code, w.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tc.code, resp.Code)
	}
}

func TestBuildWorkbook_StylesAndErrors(t *testing.T) {
	st := &service.Statement{
		Summary: &service.MonthSummary{Year: 2025, Month: 3},
		Items: []models.Transaction{
			{ID: 1, Type: models.TypeExpense, Category: "Food", Amount: decimal.RequireFromString("12.5")},
		},
	}
	f, err := buildWorkbook(st)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellStyle(detailSheet, "A1")
	require.NoError(t, err)
	assert.NotZero(t, header)
	amount, err := f.GetCellStyle(detailSheet, "E2")
	require.NoError(t, err)
	assert.NotZero(t, amount)
	assert.NotEqual(t, header, amount)

	// 写入失败后保留第一个错误，后续写入跳过
	w := &sheetWriter{f: f, sheet: "不存在"}
	w.set("A", 1, "x")
	require.Error(t, w.err)
	first := w.err
	w.sheet = detailSheet
	w.set("A", 99, "skipped")
	w.width("A", "A", 10)
	assert.Equal(t, first, w.err)
	v, err := f.GetCellValue(detailSheet, "A99")
	require.NoError(t, err)
	assert.Empty(t, v)
}
