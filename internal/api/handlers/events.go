package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/fleetguard/internal/ingest"
	"github.com/langchou/fleetguard/internal/models"
	"github.com/langchou/fleetguard/internal/repository"
)

// UploadEvents 上传 Excel 事件报表
// POST /api/events/upload (multipart, 字段名 file)
func (h *Handler) UploadEvents(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing upload file"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open upload file"})
		return
	}
	defer f.Close()

	events, skipped, err := ingest.ParseWorkbook(f)
	if err != nil {
		var schemaErr *ingest.SchemaError
		if errors.As(err, &schemaErr) {
			// 表头缺列是配置问题，必须让用户看到具体列名
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":           "Invalid report schema",
				"missing_columns": schemaErr.Missing,
			})
			return
		}
		h.logger.Error("Failed to parse workbook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse workbook"})
		return
	}

	count, err := h.eventRepo.BulkInsert(c.Request.Context(), events)
	if err != nil {
		h.logger.Error("Failed to insert events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store events"})
		return
	}

	h.logger.Info("Imported safety events",
		zap.String("file", fileHeader.Filename),
		zap.Int64("rows", count),
		zap.Int("skipped", skipped),
	)

	// 通知看板刷新
	h.wsHub.BroadcastReportUpdate(gin.H{"imported": count, "skipped": skipped})

	c.JSON(http.StatusOK, gin.H{"imported": count, "skipped": skipped})
}

// ListEvents 查询带风险等级标注的事件
// GET /api/events?start=2024-01-01&end=2024-01-31&fleet_group=&event_type=
func (h *Handler) ListEvents(c *gin.Context) {
	start, end, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	labeled, err := h.reportService.ListLabeledEvents(c.Request.Context(), repository.Filter{
		Start:      start,
		End:        end,
		FleetGroup: c.Query("fleet_group"),
		EventType:  c.Query("event_type"),
	})
	if err != nil {
		h.logger.Error("Failed to list events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": labeled, "count": len(labeled)})
}

// parseDateRange 解析 start/end 查询参数，缺省为最近 30 天
func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	start := now.AddDate(0, 0, -30)
	end := now

	if s := c.Query("start"); s != "" {
		t, err := time.Parse(models.DateOnly, s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start date, expected YYYY-MM-DD")
		}
		start = t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse(models.DateOnly, s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end date, expected YYYY-MM-DD")
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end date before start date")
	}
	return start, end, nil
}
