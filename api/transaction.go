package api

import (
	"strconv"
	"time"

	"ledger/middleware"
	"ledger/models"
	"ledger/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// TransactionHandler 收支记录处理器
type TransactionHandler struct {
	svc *service.TransactionService
}

// NewTransactionHandler 创建收支记录处理器
func NewTransactionHandler(svc *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

// CreateTransactionRequest 创建收支记录请求
type CreateTransactionRequest struct {
	Date        string           `json:"date" binding:"required" example:"2025-03-15"`
	Type        string           `json:"type" binding:"required" example:"Income"`
	Category    string           `json:"category" binding:"required" example:"Freelance"`
	Amount      *decimal.Decimal `json:"amount" swaggertype:"number" example:"500"`
	Description string           `json:"description" example:"logo design"`
}

// UpdateTransactionRequest 更新收支记录请求，未提供的字段保持不变
type UpdateTransactionRequest struct {
	Date        *string          `json:"date" example:"2025-03-16"`
	Type        *string          `json:"type" example:"Expense"`
	Category    *string          `json:"category" example:"Travel"`
	Amount      *decimal.Decimal `json:"amount" swaggertype:"number" example:"120.50"`
	Description *string          `json:"description" example:"train ticket"`
}

// TransactionListRequest 列表查询参数
type TransactionListRequest struct {
	Page     int    `form:"page" example:"1"`
	Limit    int    `form:"limit" example:"10"`
	Type     string `form:"type" example:"Expense"`
	Category string `form:"category" example:"Food"`
	Sort     string `form:"sort" example:"desc"`
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, models.NewValidationError("date", "日期格式错误，应为: 2006-01-02")
	}
	return d, nil
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id), true
}

// Create 创建收支记录
// @Summary 创建收支记录
// @Description 新增一条收入或支出记录，类别必须属于对应类型
// @Tags 收支记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "收支记录"
// @Success 200 {object} Response{data=models.Transaction} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	if req.Amount == nil {
		BadRequest(c, "amount: 金额不能为空")
		return
	}
	d, err := parseDate(req.Date)
	if err != nil {
		respondError(c, err, "创建记录失败")
		return
	}

	tx, err := h.svc.Create(c.Request.Context(), userID, service.CreateInput{
		Date:        d,
		Type:        models.TransactionType(req.Type),
		Category:    req.Category,
		Amount:      *req.Amount,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err, "创建记录失败")
		return
	}
	SuccessWithMessage(c, "创建成功", tx)
}

// List 收支记录列表
// @Summary 获取收支记录列表
// @Description 分页获取当前用户的有效记录，默认按日期倒序
// @Tags 收支记录
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Param type query string false "类型 Income/Expense"
// @Param category query string false "类别"
// @Param sort query string false "按日期排序 asc/desc" default(desc)
// @Success 200 {object} Response{data=service.TransactionPage} "获取成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req TransactionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	page, err := h.svc.List(c.Request.Context(), userID, service.ListInput{
		Page:     req.Page,
		Limit:    req.Limit,
		Type:     models.TransactionType(req.Type),
		Category: req.Category,
		Sort:     req.Sort,
	})
	if err != nil {
		respondError(c, err, "查询记录失败")
		return
	}
	Success(c, page)
}

// Get 收支记录详情
// @Summary 获取收支记录详情
// @Tags 收支记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "记录ID"
// @Success 200 {object} Response{data=models.Transaction} "获取成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tx, err := h.svc.Get(c.Request.Context(), middleware.GetCurrentUserID(c), id)
	if err != nil {
		respondError(c, err, "查询记录失败")
		return
	}
	Success(c, tx)
}

// Update 更新收支记录
// @Summary 更新收支记录
// @Description 合并字段后整体校验，回收站中的记录不能修改
// @Tags 收支记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "记录ID"
// @Param request body UpdateTransactionRequest true "需要修改的字段"
// @Success 200 {object} Response{data=models.Transaction} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	in := service.UpdateInput{
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			respondError(c, err, "更新记录失败")
			return
		}
		in.Date = &d
	}
	if req.Type != nil {
		t := models.TransactionType(*req.Type)
		in.Type = &t
	}

	tx, err := h.svc.Update(c.Request.Context(), middleware.GetCurrentUserID(c), id, in)
	if err != nil {
		respondError(c, err, "更新记录失败")
		return
	}
	SuccessWithMessage(c, "更新成功", tx)
}

// Trash 移入回收站
// @Summary 删除收支记录（移入回收站）
// @Description 记录保留 30 天，期间可恢复
// @Tags 回收站
// @Produce json
// @Security BearerAuth
// @Param id path int true "记录ID"
// @Success 200 {object} Response{data=models.Transaction} "已移入回收站"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Trash(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tx, err := h.svc.MoveToTrash(c.Request.Context(), middleware.GetCurrentUserID(c), id)
	if err != nil {
		respondError(c, err, "删除记录失败")
		return
	}
	SuccessWithMessage(c, "已移入回收站", tx)
}

// ListTrash 回收站列表
// @Summary 获取回收站列表
// @Description 按删除时间倒序
// @Tags 回收站
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Transaction} "获取成功"
// @Router /api/v1/transactions/trash [get]
func (h *TransactionHandler) ListTrash(c *gin.Context) {
	list, err := h.svc.ListTrash(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "查询回收站失败")
		return
	}
	Success(c, list)
}

// Restore 从回收站恢复
// @Summary 恢复回收站中的记录
// @Tags 回收站
// @Produce json
// @Security BearerAuth
// @Param id path int true "记录ID"
// @Success 200 {object} Response{data=models.Transaction} "恢复成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id}/restore [post]
func (h *TransactionHandler) Restore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tx, err := h.svc.Restore(c.Request.Context(), middleware.GetCurrentUserID(c), id)
	if err != nil {
		respondError(c, err, "恢复记录失败")
		return
	}
	SuccessWithMessage(c, "恢复成功", tx)
}

// PermanentDelete 彻底删除
// @Summary 彻底删除回收站中的记录
// @Description 只能删除回收站中的记录，删除后不可恢复
// @Tags 回收站
// @Produce json
// @Security BearerAuth
// @Param id path int true "记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id}/permanent [delete]
func (h *TransactionHandler) PermanentDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.PermanentlyDelete(c.Request.Context(), middleware.GetCurrentUserID(c), id); err != nil {
		respondError(c, err, "删除记录失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// CategoryHandler 类别查询
type CategoryHandler struct {
	registry *models.CategoryRegistry
}

// NewCategoryHandler 创建类别处理器
func NewCategoryHandler(registry *models.CategoryRegistry) *CategoryHandler {
	return &CategoryHandler{registry: registry}
}

// CategoriesResponse 收入/支出类别
type CategoriesResponse struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

// List 获取全部类别
// @Summary 获取收支类别
// @Tags 类别
// @Produce json
// @Success 200 {object} Response{data=CategoriesResponse} "获取成功"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	Success(c, CategoriesResponse{
		Income:  h.registry.Income(),
		Expense: h.registry.Expense(),
	})
}
