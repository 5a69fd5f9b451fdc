package router

import (
	"time"

	"ledger/api"
	"ledger/config"
	_ "ledger/docs"
	"ledger/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Auth        *api.AuthHandler
	Category    *api.CategoryHandler
	Transaction *api.TransactionHandler
	Report      *api.ReportHandler
	Export      *api.ExportHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h *Handlers) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", middleware.LoginRateLimit(10, time.Minute), h.Auth.Login)
			auth.POST("/send-code", middleware.SendCodeRateLimit(5, 10*time.Minute), h.Auth.SendCode)
			auth.POST("/verify-code", middleware.LoginRateLimit(10, time.Minute), h.Auth.VerifyCode)
		}

		// 收支类别（无需登录）
		v1.GET("/categories", h.Category.List)

		// 需要 JWT 认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(), middleware.RequireActiveUser())
		{
			authorized.GET("/auth/profile", h.Auth.GetProfile)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			transactions := authorized.Group("/transactions")
			{
				transactions.POST("", h.Transaction.Create)
				transactions.GET("", h.Transaction.List)
				transactions.GET("/trash", h.Transaction.ListTrash)
				transactions.GET("/:id", h.Transaction.Get)
				transactions.PUT("/:id", h.Transaction.Update)
				transactions.DELETE("/:id", h.Transaction.Trash)
				transactions.POST("/:id/restore", h.Transaction.Restore)
				transactions.DELETE("/:id/permanent", h.Transaction.PermanentDelete)
			}

			reports := authorized.Group("/reports")
			{
				reports.GET("/dashboard", h.Report.Dashboard)
				reports.GET("/weekly", h.Report.Weekly)
				reports.GET("/monthly", h.Report.Monthly)
				reports.GET("/overall", h.Report.Overall)
				reports.GET("/overview", h.Report.Overview)
			}

			export := authorized.Group("/export")
			{
				export.GET("/csv", h.Export.ExportCSV)
				export.GET("/excel", h.Export.ExportExcel)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
