package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"ledger/config"
	"ledger/database"
	"ledger/middleware"
	"ledger/models"
	"ledger/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg      *config.Config
	notifier service.Notifier
	notify   func(what string, send func() error)
	now      func() time.Time
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, notifier service.Notifier) *AuthHandler {
	if notifier == nil {
		notifier = service.NewNotifier(&cfg.Email)
	}
	return &AuthHandler{
		cfg:      cfg,
		notifier: notifier,
		notify:   service.NotifyAsync,
		now:      time.Now,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50" example:"testuser"`
	Password string `json:"password" binding:"required,min=6,max=50" example:"password123"`
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
}

// LoginRequest 登录请求（支持用户名或邮箱）
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"testuser"` // 可为用户名或邮箱
	Password string `json:"password" binding:"required" example:"password123"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token    string      `json:"token"`
	UserInfo models.User `json:"user_info"`
}

// issueCode 作废该用户未使用的验证码并生成新验证码，邮件异步发送
func (h *AuthHandler) issueCode(user *models.User) error {
	code, err := models.GenerateVerificationCode()
	if err != nil {
		return err
	}
	ttl := h.cfg.Email.CodeTTL()
	verification := models.EmailVerification{
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		Purpose:   models.VerificationPurposeRegister,
		ExpiresAt: h.now().UTC().Add(ttl),
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.EmailVerification{}).
			Where("user_id = ? AND purpose = ? AND used = ?", user.ID, models.VerificationPurposeRegister, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&verification).Error
	})
	if err != nil {
		return err
	}

	email, username := user.Email, user.Username
	h.notify("发送验证码到 "+email, func() error {
		return h.notifier.SendVerificationCode(email, username, code, ttl)
	})
	return nil
}

// Register 用户注册
// @Summary 用户注册
// @Description 创建待验证账号并向邮箱发送 6 位验证码，验证通过后才能登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 200 {object} Response{data=models.User} "注册成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 500 {object} Response "服务器错误"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	if err := database.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		BadRequest(c, "用户名已存在")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		InternalError(c, SafeErrorMessage(err, "注册失败"))
		return
	}
	if err := database.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		BadRequest(c, "该邮箱已被注册")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		InternalError(c, SafeErrorMessage(err, "注册失败"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "密码加密失败")
		return
	}

	user := models.User{
		Username: req.Username,
		Password: string(hashedPassword),
		Email:    req.Email,
		Status:   models.UserStatusPending,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建用户失败"))
		return
	}

	if err := h.issueCode(&user); err != nil {
		InternalError(c, SafeErrorMessage(err, "生成验证码失败"))
		return
	}

	SuccessWithMessage(c, "注册成功，验证码已发送至邮箱", user)
}

// SendCodeRequest 重新发送验证码请求
type SendCodeRequest struct {
	Email string `json:"email" binding:"required,email" example:"test@example.com"`
}

// SendCode 重新发送验证码
// @Summary 重新发送邮箱验证码
// @Description 旧验证码立即失效
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body SendCodeRequest true "邮箱"
// @Success 200 {object} Response "发送成功"
// @Failure 400 {object} Response "邮箱未注册或已验证"
// @Failure 429 {object} Response "请求过于频繁"
// @Router /api/v1/auth/send-code [post]
func (h *AuthHandler) SendCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请输入有效的邮箱地址")
		return
	}

	var user models.User
	err := database.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && user.IsActive()) {
		BadRequest(c, "该邮箱未注册或已完成验证")
		return
	}
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "发送验证码失败"))
		return
	}

	// 一分钟内不重复发送
	var latest models.EmailVerification
	if err := database.DB.Where("user_id = ? AND purpose = ? AND used = ?", user.ID, models.VerificationPurposeRegister, false).
		Order("id DESC").First(&latest).Error; err == nil {
		if h.now().Sub(latest.CreatedAt) < time.Minute {
			Error(c, http.StatusTooManyRequests, "请求过于频繁，请稍后再试")
			return
		}
	}

	if err := h.issueCode(&user); err != nil {
		InternalError(c, SafeErrorMessage(err, "发送验证码失败"))
		return
	}
	SuccessWithMessage(c, "验证码已发送，请查收邮件", nil)
}

// VerifyCodeRequest 邮箱验证请求
type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required,email" example:"test@example.com"`
	Code  string `json:"code" binding:"required,len=6" example:"123456"`
}

// VerifyCode 校验验证码并激活账号
// @Summary 验证邮箱
// @Description 验证码正确且未过期时激活账号
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body VerifyCodeRequest true "验证信息"
// @Success 200 {object} Response{data=models.User} "验证成功"
// @Failure 400 {object} Response "验证码错误或已过期"
// @Router /api/v1/auth/verify-code [post]
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var verification models.EmailVerification
	if err := database.DB.Where("email = ? AND code = ? AND purpose = ?", email, req.Code, models.VerificationPurposeRegister).
		Order("id DESC").First(&verification).Error; err != nil {
		BadRequest(c, "验证码错误")
		return
	}

	now := h.now().UTC()
	if !verification.IsValid(now) {
		if verification.Used {
			BadRequest(c, "验证码已失效")
		} else {
			BadRequest(c, "验证码已过期，请重新获取")
		}
		return
	}

	var user models.User
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.EmailVerification{}).
			Where("id = ? AND used = ?", verification.ID, false).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrNotFound
		}
		if err := tx.Model(&models.User{}).Where("id = ?", verification.UserID).
			Updates(map[string]interface{}{"status": models.UserStatusActive, "verified_at": now}).Error; err != nil {
			return err
		}
		return tx.First(&user, verification.UserID).Error
	})
	if errors.Is(err, models.ErrNotFound) {
		BadRequest(c, "验证码已失效")
		return
	}
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "验证失败"))
		return
	}

	SuccessWithMessage(c, "验证成功", user)
}

// Login 用户登录
// @Summary 用户登录
// @Description 用户登录获取 JWT token，未完成邮箱验证的账号不能登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "用户名或密码错误"
// @Failure 403 {object} Response "账号未验证"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	// 查找用户（支持用户名或邮箱）
	var user models.User
	err := database.DB.Where("username = ? OR email = ?", req.Username, strings.ToLower(req.Username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		Unauthorized(c, "用户名或密码错误")
		return
	}
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "登录失败"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		Unauthorized(c, "用户名或密码错误")
		return
	}

	if !user.IsActive() {
		Error(c, http.StatusForbidden, "账号尚未完成邮箱验证")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Username, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	Success(c, LoginResponse{
		Token:    token,
		UserInfo: user,
	})
}

// GetProfile 获取用户信息
// @Summary 获取当前用户信息
// @Description 获取当前登录用户的详细信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.User} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	Success(c, user)
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required" example:"oldpassword123"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=50" example:"newpassword123"`
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Description 修改当前用户密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "密码信息"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "原密码错误"
// @Router /api/v1/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		Unauthorized(c, "原密码错误")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "密码加密失败")
		return
	}

	if err := database.DB.Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		InternalError(c, "更新密码失败")
		return
	}

	SuccessWithMessage(c, "密码修改成功", nil)
}
