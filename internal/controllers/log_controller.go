package controllers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/telcolog/backend/internal/config"
	"github.com/telcolog/backend/internal/models"
	"github.com/telcolog/backend/internal/parser"
	"github.com/telcolog/backend/internal/services"
	"github.com/telcolog/backend/internal/storage"
)

type LogController struct {
	store      storage.Store
	pipeline   *services.IngestionPipeline
	upload     config.UploadConfig
	sampleSize int
}

func NewLogController(store storage.Store, pipeline *services.IngestionPipeline,
	upload config.UploadConfig, sampleSize int) *LogController {
	if sampleSize <= 0 {
		sampleSize = parser.DefaultSampleSize
	}
	return &LogController{
		store:      store,
		pipeline:   pipeline,
		upload:     upload,
		sampleSize: sampleSize,
	}
}

// UploadLog accepts a multipart log file, validates it and enqueues it for
// background processing. The response returns immediately with the pending
// record; clients poll the record status for completion.
func (lc *LogController) UploadLog(c *gin.Context) {
	userID := c.GetUint("userID")

	file, err := c.FormFile("logfile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !lc.allowedExtension(ext) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unsupported file type, expected one of: " + strings.Join(lc.upload.Extensions, ", "),
		})
		return
	}
	if lc.upload.MaxSizeBytes > 0 && file.Size > lc.upload.MaxSizeBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the upload size limit"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}

	if !parser.IsValidTelecomLog(string(content), lc.sampleSize) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "File does not look like a telecom equipment log",
		})
		return
	}

	record := &models.LogRecord{
		Filename:   file.Filename,
		Content:    string(content),
		Size:       file.Size,
		UploadedBy: userID,
		Status:     models.StatusPending,
	}
	if err := lc.store.CreateLog(record); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save log record"})
		return
	}

	if err := lc.pipeline.Enqueue(record.ID); err != nil {
		// The record stays pending; the client can retry processing later.
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Ingestion queue is full, try again later",
			"log":   record,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Log file uploaded successfully",
		"log":     record,
	})
}

func (lc *LogController) ListLogs(c *gin.Context) {
	records, err := lc.store.ListLogs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": records})
}

func (lc *LogController) GetLog(c *gin.Context) {
	id, ok := lc.paramID(c)
	if !ok {
		return
	}

	record, err := lc.store.GetLog(id)
	if err != nil {
		lc.notFoundOr500(c, err, "Log not found", "Failed to fetch log")
		return
	}
	c.JSON(http.StatusOK, gin.H{"log": record})
}

func (lc *LogController) GetLogAnalysis(c *gin.Context) {
	id, ok := lc.paramID(c)
	if !ok {
		return
	}

	analysis, err := lc.store.GetAnalysisByLogID(id)
	if err != nil {
		lc.notFoundOr500(c, err, "No analysis for this log", "Failed to fetch analysis")
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

// GetLogTimeline returns the timestamped lines of a log in file order, for
// timeline rendering.
func (lc *LogController) GetLogTimeline(c *gin.Context) {
	id, ok := lc.paramID(c)
	if !ok {
		return
	}

	record, err := lc.store.GetLog(id)
	if err != nil {
		lc.notFoundOr500(c, err, "Log not found", "Failed to fetch log")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logId":    record.ID,
		"timeline": parser.ExtractTimestamps(record.Content),
	})
}

type resolutionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateResolutionStatus moves an analysis through the resolution workflow
// and records the transition in the activity feed.
func (lc *LogController) UpdateResolutionStatus(c *gin.Context) {
	id, ok := lc.paramID(c)
	if !ok {
		return
	}

	var req resolutionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidResolutionStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resolution status"})
		return
	}
	status := models.ResolutionStatus(req.Status)

	analysis, err := lc.store.GetAnalysis(id)
	if err != nil {
		lc.notFoundOr500(c, err, "Analysis not found", "Failed to fetch analysis")
		return
	}

	if err := lc.store.UpdateResolutionStatus(id, status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update resolution status"})
		return
	}

	logID := analysis.LogID
	_ = lc.store.CreateActivity(&models.Activity{
		LogID:       &logID,
		Type:        models.ActivityStatusChange,
		Description: "Resolution status changed to " + string(status),
		Status:      string(status),
	})

	updated, err := lc.store.GetAnalysis(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch updated analysis"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": updated})
}

func (lc *LogController) allowedExtension(ext string) bool {
	for _, allowed := range lc.upload.Extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func (lc *LogController) paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (lc *LogController) notFoundOr500(c *gin.Context, err error, notFoundMsg, failMsg string) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": failMsg})
}
