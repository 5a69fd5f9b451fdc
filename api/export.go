package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"ledger/middleware"
	"ledger/service"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	svc *service.ExportService
}

// NewExportHandler 创建导出处理器
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

var exportHeaders = []string{"ID", "日期", "类型", "类别", "金额", "描述"}

func (h *ExportHandler) statement(c *gin.Context) (*service.Statement, bool) {
	year, month, err := queryPeriod(c)
	if err != nil {
		respondError(c, err, "导出失败")
		return nil, false
	}
	st, err := h.svc.Statement(c.Request.Context(), middleware.GetCurrentUserID(c), year, month)
	if err != nil {
		respondError(c, err, "导出失败")
		return nil, false
	}
	return st, true
}

// ExportCSV 导出月度记录为 CSV
// @Summary 导出 CSV
// @Description 导出指定月份的有效记录，缺省为当前月份（UTC）
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份 1-12"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	st, ok := h.statement(c)
	if !ok {
		return
	}

	buf := new(bytes.Buffer)
	// 添加 BOM 以支持 Excel 中文显示
	buf.WriteString("\xEF\xBB\xBF")
	writer := csv.NewWriter(buf)

	rows := [][]string{exportHeaders}
	for _, tx := range st.Items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(tx.ID), 10),
			tx.Date.Format(dateLayout),
			string(tx.Type),
			tx.Category,
			tx.Amount.StringFixed(2),
			tx.Description,
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	filename := fmt.Sprintf("transactions_%04d-%02d.csv", st.Summary.Year, st.Summary.Month)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExcel 导出月度记录为 Excel
// @Summary 导出 Excel
// @Description 两个工作表：收支明细与按类别汇总
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份 1-12"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	st, ok := h.statement(c)
	if !ok {
		return
	}

	f, err := buildWorkbook(st)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "生成 Excel 失败"))
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		InternalError(c, "生成 Excel 失败")
		return
	}

	filename := fmt.Sprintf("transactions_%04d-%02d.xlsx", st.Summary.Year, st.Summary.Month)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

const (
	detailSheet  = "收支明细"
	summarySheet = "分类汇总"
)

// sheetWriter 记录第一次写入失败，后续写入直接跳过
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) width(from, to string, v float64) {
	if w.err == nil {
		w.err = w.f.SetColWidth(w.sheet, from, to, v)
	}
}

func (w *sheetWriter) set(col string, row int, v interface{}) {
	if w.err == nil {
		w.err = w.f.SetCellValue(w.sheet, fmt.Sprintf("%s%d", col, row), v)
	}
}

func (w *sheetWriter) style(from, to string, styleID int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, from, to, styleID)
	}
}

func buildWorkbook(st *service.Statement) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fillWorkbook(f, st); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fillWorkbook(f *excelize.File, st *service.Statement) error {
	if err := f.SetSheetName("Sheet1", detailSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("创建表头样式失败: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("创建金额样式失败: %w", err)
	}

	detail := &sheetWriter{f: f, sheet: detailSheet}
	detail.width("A", "A", 8)
	detail.width("B", "E", 14)
	detail.width("F", "F", 40)
	detail.style("A1", "F1", headerStyle)
	for i, header := range exportHeaders {
		detail.set(string(rune('A'+i)), 1, header)
	}
	for i, tx := range st.Items {
		row := i + 2
		amount, _ := tx.Amount.Float64()
		detail.set("A", row, tx.ID)
		detail.set("B", row, tx.Date.Format(dateLayout))
		detail.set("C", row, string(tx.Type))
		detail.set("D", row, tx.Category)
		detail.set("E", row, amount)
		detail.set("F", row, tx.Description)
	}
	if len(st.Items) > 0 {
		detail.style("E2", fmt.Sprintf("E%d", len(st.Items)+1), amountStyle)
	}
	if detail.err != nil {
		return fmt.Errorf("写入明细表失败: %w", detail.err)
	}

	// 汇总表：合计在上，分类明细在下
	s := st.Summary
	sum := &sheetWriter{f: f, sheet: summarySheet}
	sum.width("A", "C", 16)
	row := 1
	put := func(a, b, c interface{}) {
		sum.set("A", row, a)
		sum.set("B", row, b)
		sum.set("C", row, c)
		row++
	}
	money := func(d interface{ Float64() (float64, bool) }) float64 {
		v, _ := d.Float64()
		return v
	}

	put("月份", fmt.Sprintf("%04d-%02d", s.Year, s.Month), "")
	put("总收入", money(s.TotalIncome), "")
	put("总支出", money(s.TotalExpense), "")
	put("结余", money(s.Balance), "")
	row++
	sum.style(fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), headerStyle)
	put("类型", "类别", "金额")
	for _, ct := range s.IncomeBreakdown {
		put("Income", ct.Category, money(ct.TotalAmount))
	}
	for _, ct := range s.ExpenseBreakdown {
		put("Expense", ct.Category, money(ct.TotalAmount))
	}
	sum.style("B2", fmt.Sprintf("C%d", row-1), amountStyle)
	if sum.err != nil {
		return fmt.Errorf("写入汇总表失败: %w", sum.err)
	}
	return nil
}
