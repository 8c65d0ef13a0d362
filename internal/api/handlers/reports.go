package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/fleetguard/internal/repository"
)

// GetSummary 看板 KPI 汇总
// GET /api/reports/summary?start=...&end=...&fleet_group=
func (h *Handler) GetSummary(c *gin.Context) {
	start, end, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.reportService.BuildSummary(c.Request.Context(), repository.Filter{
		Start:      start,
		End:        end,
		FleetGroup: c.Query("fleet_group"),
	})
	if err != nil {
		h.logger.Error("Failed to build summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
