package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/telcolog/backend/internal/storage"
)

type StatsController struct {
	store storage.Store
}

func NewStatsController(store storage.Store) *StatsController {
	return &StatsController{store: store}
}

// GetStats returns the dashboard statistics.
func (sc *StatsController) GetStats(c *gin.Context) {
	stats, err := sc.store.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetActivities returns the recent activity feed, newest first.
func (sc *StatsController) GetActivities(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	activities, err := sc.store.ListRecentActivities(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch activities"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}
