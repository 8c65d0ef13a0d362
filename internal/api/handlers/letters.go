package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langchou/fleetguard/internal/ingest"
	"github.com/langchou/fleetguard/internal/warning"
)

// PreviewLetters 构建警告信集合但不生成文档
// POST /api/letters/preview?start=...&end=...&threshold=6
func (h *Handler) PreviewLetters(c *gin.Context) {
	set, ok := h.buildLetterSet(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": set,
		"counts": gin.H{
			"total_violations": set.TotalViolations,
			"named":            len(set.Named),
			"unnamed":          len(set.Unnamed),
			"total_letters":    set.TotalLetters(),
		},
	})
}

// ExportLetters 导出警告信复核表 (Excel)
// GET /api/letters/export?start=...&end=...&threshold=6
func (h *Handler) ExportLetters(c *gin.Context) {
	set, ok := h.buildLetterSet(c)
	if !ok {
		return
	}

	data, err := ingest.GenerateIncidentWorkbook(set)
	if err != nil {
		h.logger.Error("Failed to export letters", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export letters"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="warning_letters.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// StartLetterJob 启动警告信文档生成任务
// POST /api/letters/jobs?start=...&end=...&threshold=6
func (h *Handler) StartLetterJob(c *gin.Context) {
	set, ok := h.buildLetterSet(c)
	if !ok {
		return
	}

	if set.TotalLetters() == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message": "No qualifying violations in range",
			"counts":  gin.H{"total_letters": 0},
		})
		return
	}

	job, err := h.letterService.StartJob(warning.BuildLetterPayloads(set))
	if err != nil {
		h.logger.Error("Failed to start letter job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start letter job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID(),
		"counts": gin.H{
			"total_violations": set.TotalViolations,
			"named":            len(set.Named),
			"unnamed":          len(set.Unnamed),
			"total_letters":    set.TotalLetters(),
		},
	})
}

// ListLetterJobs 列出所有生成任务
func (h *Handler) ListLetterJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.letterService.ListJobs()})
}

// GetLetterJob 查询任务进度
func (h *Handler) GetLetterJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID"})
		return
	}

	progress, ok := h.letterService.GetJob(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": progress})
}

// ListIssuedLetters 查询任务签发的警告信审计记录
func (h *Handler) ListIssuedLetters(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID"})
		return
	}

	letters, err := h.letterRepo.ListByJob(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list issued letters", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list issued letters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": letters, "count": len(letters)})
}

// buildLetterSet 解析筛选参数并构建警告信集合，失败时已写好响应
func (h *Handler) buildLetterSet(c *gin.Context) (*warning.LetterSet, bool) {
	start, end, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	threshold := 0.0
	if s := c.Query("threshold"); s != "" {
		threshold, err = strconv.ParseFloat(s, 64)
		if err != nil || threshold < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid threshold %q", s)})
			return nil, false
		}
	}

	set, err := h.reportService.BuildWarningLetters(c.Request.Context(), start, end, threshold)
	if err != nil {
		h.logger.Error("Failed to build warning letters", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build warning letters"})
		return nil, false
	}

	return set, true
}
