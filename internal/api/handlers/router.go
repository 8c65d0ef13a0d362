package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/fleetguard/internal/config"
	"github.com/langchou/fleetguard/internal/repository"
	"github.com/langchou/fleetguard/internal/service"
	"github.com/langchou/fleetguard/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger        *zap.Logger
	cfg           *config.Config
	eventRepo     *repository.SafetyEventRepository
	letterRepo    *repository.WarningLetterRepository
	reportService *service.ReportService
	letterService *service.LetterService
	wsHub         *ws.Hub
	upgrader      websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	cfg *config.Config,
	eventRepo *repository.SafetyEventRepository,
	letterRepo *repository.WarningLetterRepository,
	reportService *service.ReportService,
	letterService *service.LetterService,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:        logger,
		cfg:           cfg,
		eventRepo:     eventRepo,
		letterRepo:    letterRepo,
		reportService: reportService,
		letterService: letterService,
		wsHub:         wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 开发环境允许所有来源
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// API 路由
	api := r.Group("/api")
	{
		// 事件
		api.POST("/events/upload", h.UploadEvents) // Excel 报表上传
		api.GET("/events", h.ListEvents)

		// 报表
		api.GET("/reports/summary", h.GetSummary)

		// 警告信
		api.POST("/letters/preview", h.PreviewLetters) // 只算不生成
		api.GET("/letters/export", h.ExportLetters)    // 导出 Excel 复核表
		api.POST("/letters/jobs", h.StartLetterJob)
		api.GET("/letters/jobs", h.ListLetterJobs)
		api.GET("/letters/jobs/:id", h.GetLetterJob)
		api.GET("/letters/jobs/:id/letters", h.ListIssuedLetters)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
