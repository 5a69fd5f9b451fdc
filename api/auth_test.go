package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ledger/config"
	"ledger/database"
	"ledger/middleware"
	"ledger/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	oldDB := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = oldDB
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Email:  config.EmailConfig{CodeTTLMinutes: 10},
	}
	config.GlobalConfig = cfg
	middleware.InitJWT(cfg)
	return cfg
}

// recordingNotifier 记录发送的验证码
type recordingNotifier struct {
	mu    sync.Mutex
	codes map[string][]string
}

func (n *recordingNotifier) SendVerificationCode(toEmail, username, code string, ttl time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.codes == nil {
		n.codes = map[string][]string{}
	}
	n.codes[toEmail] = append(n.codes[toEmail], code)
	return nil
}

func (n *recordingNotifier) last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	codes := n.codes[email]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

func newTestAuthHandler(cfg *config.Config, n *recordingNotifier) *AuthHandler {
	h := NewAuthHandler(cfg, n)
	h.notify = func(_ string, send func() error) { _ = send() }
	return h
}

func doJSON(router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func authRouter(h *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/register", h.Register)
	router.POST("/send-code", h.SendCode)
	router.POST("/verify-code", h.VerifyCode)
	router.POST("/login", h.Login)
	return router
}

func TestAuthHandler_RegisterVerifyLogin(t *testing.T) {
	setupTestDB(t)
	cfg := testConfig()
	defer func() { config.GlobalConfig = nil }()
	n := &recordingNotifier{}
	router := authRouter(newTestAuthHandler(cfg, n))

	w, resp := doJSON(router, "POST", "/register", `{"username":"newuser","password":"password123","email":"New@Example.com"}`)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "注册成功，验证码已发送至邮箱", resp["message"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, models.UserStatusPending, data["status"])
	assert.NotContains(t, data, "password")

	code := n.last("new@example.com")
	require.Len(t, code, 6)

	// 未验证不能登录
	w, _ = doJSON(router, "POST", "/login", `{"username":"newuser","password":"password123"}`)
	assert.Equal(t, 403, w.Code)

	// 错误验证码
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	w, _ = doJSON(router, "POST", "/verify-code", `{"email":"new@example.com","code":"`+wrong+`"}`)
	assert.Equal(t, 400, w.Code)

	w, resp = doJSON(router, "POST", "/verify-code", `{"email":"new@example.com","code":"`+code+`"}`)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, models.UserStatusActive, resp["data"].(map[string]interface{})["status"])

	// 验证码只能使用一次
	w, resp = doJSON(router, "POST", "/verify-code", `{"email":"new@example.com","code":"`+code+`"}`)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "验证码已失效", resp["message"])

	w, resp = doJSON(router, "POST", "/login", `{"username":"new@example.com","password":"password123"}`)
	require.Equal(t, 200, w.Code)
	token := resp["data"].(map[string]interface{})["token"].(string)
	claims, err := middleware.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "newuser", claims.Username)

	w, _ = doJSON(router, "POST", "/login", `{"username":"newuser","password":"wrong-password"}`)
	assert.Equal(t, 401, w.Code)
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	setupTestDB(t)
	cfg := testConfig()
	defer func() { config.GlobalConfig = nil }()
	router := authRouter(newTestAuthHandler(cfg, &recordingNotifier{}))

	w, _ := doJSON(router, "POST", "/register", `{"username":"taken","password":"password123","email":"a@example.com"}`)
	require.Equal(t, 200, w.Code)

	w, resp := doJSON(router, "POST", "/register", `{"username":"taken","password":"password123","email":"b@example.com"}`)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "用户名已存在", resp["message"])

	w, resp = doJSON(router, "POST", "/register", `{"username":"other","password":"password123","email":"a@example.com"}`)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "该邮箱已被注册", resp["message"])

	w, _ = doJSON(router, "POST", "/register", `{"username":"ab","password":"123","email":"not-an-email"}`)
	assert.Equal(t, 400, w.Code)
}

func TestAuthHandler_SendCodeInvalidatesOldCode(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	defer func() { config.GlobalConfig = nil }()
	n := &recordingNotifier{}
	h := newTestAuthHandler(cfg, n)
	router := authRouter(h)

	w, _ := doJSON(router, "POST", "/register", `{"username":"resend","password":"password123","email":"r@example.com"}`)
	require.Equal(t, 200, w.Code)
	first := n.last("r@example.com")

	// 一分钟内拒绝重复发送
	w, _ = doJSON(router, "POST", "/send-code", `{"email":"r@example.com"}`)
	assert.Equal(t, 429, w.Code)

	h.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	w, _ = doJSON(router, "POST", "/send-code", `{"email":"r@example.com"}`)
	require.Equal(t, 200, w.Code)
	second := n.last("r@example.com")

	var unused int64
	require.NoError(t, db.Model(&models.EmailVerification{}).Where("email = ? AND used = ?", "r@example.com", false).Count(&unused).Error)
	assert.EqualValues(t, 1, unused)

	if first != second {
		w, _ = doJSON(router, "POST", "/verify-code", `{"email":"r@example.com","code":"`+first+`"}`)
		assert.Equal(t, 400, w.Code)
	}
	w, _ = doJSON(router, "POST", "/verify-code", `{"email":"r@example.com","code":"`+second+`"}`)
	assert.Equal(t, 200, w.Code)

	// 已验证的邮箱不再发送
	w, _ = doJSON(router, "POST", "/send-code", `{"email":"r@example.com"}`)
	assert.Equal(t, 400, w.Code)
	w, _ = doJSON(router, "POST", "/send-code", `{"email":"nobody@example.com"}`)
	assert.Equal(t, 400, w.Code)
}

func TestAuthHandler_VerifyCode_Expired(t *testing.T) {
	setupTestDB(t)
	cfg := testConfig()
	defer func() { config.GlobalConfig = nil }()
	n := &recordingNotifier{}
	h := newTestAuthHandler(cfg, n)
	router := authRouter(h)

	w, _ := doJSON(router, "POST", "/register", `{"username":"slow","password":"password123","email":"s@example.com"}`)
	require.Equal(t, 200, w.Code)

	h.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	w, resp := doJSON(router, "POST", "/verify-code", `{"email":"s@example.com","code":"`+n.last("s@example.com")+`"}`)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "验证码已过期，请重新获取", resp["message"])
}

func TestAuthHandler_Login_DBError(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg := testConfig()
	defer func() { config.GlobalConfig = nil }()

	mock.ExpectQuery("SELECT .* FROM `users`").WillReturnError(assert.AnError)

	router := authRouter(newTestAuthHandler(cfg, &recordingNotifier{}))
	w, _ := doJSON(router, "POST", "/login", `{"username":"u","password":"p"}`)
	assert.Equal(t, 500, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	defer func() { config.GlobalConfig = nil }()

	hash, err := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Username: "u1", Password: string(hash), Email: "u1@example.com", Status: models.UserStatusActive}
	require.NoError(t, db.Create(&user).Error)

	h := newTestAuthHandler(cfg, &recordingNotifier{})
	router := gin.New()
	router.Use(setUserIDMiddleware(user.ID))
	router.PUT("/password", h.ChangePassword)
	router.GET("/profile", h.GetProfile)

	w, _ := doJSON(router, "PUT", "/password", `{"old_password":"bad","new_password":"newpassword"}`)
	assert.Equal(t, 401, w.Code)

	w, _ = doJSON(router, "PUT", "/password", `{"old_password":"oldpassword","new_password":"newpassword"}`)
	require.Equal(t, 200, w.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.Password), []byte("newpassword")))

	w, resp := doJSON(router, "GET", "/profile", "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "u1", resp["data"].(map[string]interface{})["username"])
}

func setUserIDMiddleware(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}
