package api

import (
	"strconv"

	"ledger/middleware"
	"ledger/models"
	"ledger/service"

	"github.com/gin-gonic/gin"
)

// ReportHandler 统计报表处理器
type ReportHandler struct {
	svc *service.ReportService
}

// NewReportHandler 创建统计报表处理器
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// queryInt 读取正整数查询参数，未传返回 0（由服务层取当前时间），显式传 0 视为非法
func queryInt(c *gin.Context, key string) (int, error) {
	s, ok := c.GetQuery(key)
	if !ok || s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, models.NewValidationError(key, "必须为整数")
	}
	if v <= 0 {
		return 0, models.NewValidationError(key, "必须为正整数")
	}
	return v, nil
}

func queryPeriod(c *gin.Context) (year, month int, err error) {
	if year, err = queryInt(c, "year"); err != nil {
		return
	}
	month, err = queryInt(c, "month")
	return
}

// Dashboard 月度汇总
// @Summary 月度收支汇总
// @Description 指定月份的收入、支出、结余以及各类别合计，未出现的类别金额为 0。缺省为当前月份（UTC）
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份 1-12"
// @Success 200 {object} Response{data=service.MonthSummary} "获取成功"
// @Failure 400 {object} Response "参数错误"
// @Router /api/v1/reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	year, month, err := queryPeriod(c)
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	summary, err := h.svc.MonthSummary(c.Request.Context(), middleware.GetCurrentUserID(c), year, month)
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, summary)
}

// Weekly 月内按周统计
// @Summary 月内按周统计
// @Description 第 N 周为当月第 7N-6 到 7N 日，没有记录的周不返回
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份 1-12"
// @Success 200 {object} Response{data=[]service.WeekBucket} "获取成功"
// @Router /api/v1/reports/weekly [get]
func (h *ReportHandler) Weekly(c *gin.Context) {
	year, month, err := queryPeriod(c)
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	weeks, err := h.svc.WeeklyBreakdown(c.Request.Context(), middleware.GetCurrentUserID(c), year, month)
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, weeks)
}

// Monthly 年内按月统计
// @Summary 年内按月统计
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param year query int false "年份"
// @Success 200 {object} Response{data=[]service.MonthBucket} "获取成功"
// @Router /api/v1/reports/monthly [get]
func (h *ReportHandler) Monthly(c *gin.Context) {
	year, err := queryInt(c, "year")
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	months, err := h.svc.MonthlyBreakdown(c.Request.Context(), middleware.GetCurrentUserID(c), year)
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, months)
}

// Overall 按年统计
// @Summary 全部年份统计
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.YearBucket} "获取成功"
// @Router /api/v1/reports/overall [get]
func (h *ReportHandler) Overall(c *gin.Context) {
	years, err := h.svc.YearlyBreakdown(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, years)
}

// Overview 总览
// @Summary 收支总览
// @Description 全部时间的收支合计、记录数与最近 5 条记录
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=service.Overview} "获取成功"
// @Router /api/v1/reports/overview [get]
func (h *ReportHandler) Overview(c *gin.Context) {
	o, err := h.svc.Overview(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, o)
}
