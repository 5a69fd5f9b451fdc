package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ledger/api"
	"ledger/config"
	"ledger/database"
	"ledger/middleware"
	"ledger/models"
	"ledger/router"
	"ledger/service"
)

// @title 个人记账 API
// @version 1.0
// @description 收支记录、回收站、月度/周/年统计与导出
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
	sweepOnce   bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&sweepOnce, "sweep", false, "执行一次回收站清理后退出")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		log.Println("ledger v1.0.0")
		return
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 命令行参数覆盖端口配置
	if port != "" {
		// 自动添加冒号前缀
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		log.Printf("命令行指定端口: %s", port)
	}

	// 打印配置信息
	config.PrintConfig()

	// 初始化数据库
	if err := database.Init(cfg); err != nil {
		log.Fatalf("数据库初始化失败: %v", err)
	}

	db := database.GetDB()
	store := database.NewTransactionStore(db)
	sweeper := service.NewRetentionSweeper(store, cfg.Retention.Window())
	if sweepOnce {
		if err := sweeper.Run(context.Background()); err != nil {
			log.Fatalf("回收站清理失败: %v", err)
		}
		return
	}

	// 初始化 JWT
	middleware.InitJWT(cfg)

	registry := models.DefaultCategoryRegistry()
	if len(cfg.Categories.Income) > 0 && len(cfg.Categories.Expense) > 0 {
		registry = models.NewCategoryRegistry(cfg.Categories.Income, cfg.Categories.Expense)
	}

	transactions := service.NewTransactionService(store, registry)
	reports := service.NewReportService(store, registry)
	exports := service.NewExportService(store, reports)
	notifier := service.NewNotifier(&cfg.Email)

	// 定时任务：回收站清理、过期验证码清理
	verifications := database.NewVerificationStore(db)
	scheduler := service.NewScheduler()
	if err := scheduler.Register("回收站清理", cfg.Retention.SweepInterval, sweeper.Run); err != nil {
		log.Fatalf("注册定时任务失败: %v", err)
	}
	if err := scheduler.Register("验证码清理", cfg.Retention.VerificationCleanup, func(ctx context.Context) error {
		_, err := verifications.PurgeExpired(ctx, time.Now())
		return err
	}); err != nil {
		log.Fatalf("注册定时任务失败: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// 设置路由
	r := router.SetupRouter(cfg, &router.Handlers{
		Auth:        api.NewAuthHandler(cfg, notifier),
		Category:    api.NewCategoryHandler(registry),
		Transaction: api.NewTransactionHandler(transactions),
		Report:      api.NewReportHandler(reports),
		Export:      api.NewExportHandler(exports),
	})

	// 启动服务器
	log.Printf("==========================================")
	log.Printf("  💰 记账服务已启动")
	log.Printf("==========================================")
	log.Printf("  Swagger:  http://localhost%s/swagger/index.html", cfg.Server.Port)
	log.Printf("  API接口:  http://localhost%s/api/v1/", cfg.Server.Port)
	log.Printf("==========================================")

	ln, err := net.Listen("tcp", cfg.Server.Port)
	if err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}
	if err := router.Serve(ctx, ln, r, 10*time.Second); err != nil {
		log.Printf("服务器退出异常: %v", err)
	}
	log.Println("服务已停止，正在停止定时任务")
}
