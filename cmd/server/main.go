package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/fleetguard/internal/api/handlers"
	"github.com/langchou/fleetguard/internal/config"
	"github.com/langchou/fleetguard/internal/letters"
	"github.com/langchou/fleetguard/internal/repository"
	"github.com/langchou/fleetguard/internal/service"
	"github.com/langchou/fleetguard/pkg/ws"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting Fleetguard", zap.String("port", cfg.ServerPort))

	// 创建 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库
	db, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()

	// 执行数据库迁移
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	// 创建 Repository
	eventRepo := repository.NewSafetyEventRepository(db)
	letterRepo := repository.NewWarningLetterRepository(db)

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)

	// 创建报表服务
	reportService := service.NewReportService(cfg, logger, eventRepo)

	// 新连接的初始数据：最近 30 天的 KPI 汇总
	wsHub.SetInitDataProvider(func() interface{} {
		initCtx, initCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer initCancel()

		end := time.Now().UTC().Truncate(24 * time.Hour)
		summary, err := reportService.BuildSummary(initCtx, repository.Filter{
			Start: end.AddDate(0, 0, -30),
			End:   end,
		})
		if err != nil {
			logger.Warn("Failed to build init summary", zap.Error(err))
			return nil
		}
		return summary
	})
	go wsHub.Run()

	// 创建信函渲染器和可选的 PDF 转换客户端
	renderer, err := newRenderer(cfg)
	if err != nil {
		logger.Fatal("Failed to create letter renderer", zap.Error(err))
	}

	var converter service.Converter
	if cfg.PDFConverterURL != "" {
		converter = letters.NewConverterClient(cfg.PDFConverterURL)
		logger.Info("PDF converter enabled", zap.String("url", cfg.PDFConverterURL))
	}

	// 创建警告信生成服务
	letterService := service.NewLetterService(cfg, logger, renderer, converter, letterRepo)

	// 订阅任务进度并广播到 WebSocket
	go func() {
		for progress := range letterService.Subscribe() {
			wsHub.BroadcastLetterProgress(progress)
		}
	}()

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(
		logger,
		cfg,
		eventRepo,
		letterRepo,
		reportService,
		letterService,
		wsHub,
	)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 注册路由
	handler.RegisterRoutes(router)

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// newRenderer 创建信函渲染器，支持外部模板文件
func newRenderer(cfg *config.Config) (*letters.HTMLRenderer, error) {
	templateText := ""
	if cfg.LetterTemplate != "" {
		data, err := os.ReadFile(cfg.LetterTemplate)
		if err != nil {
			return nil, fmt.Errorf("read letter template: %w", err)
		}
		templateText = string(data)
	}
	return letters.NewHTMLRenderer(templateText)
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
