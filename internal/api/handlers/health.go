package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"momentum-allocator/internal/api/models"
)

// Health handles GET /health and GET /api/health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339Nano),
	})
}

// History handles GET /api/history. Calculations are not persisted.
func History(c *gin.Context) {
	c.JSON(http.StatusOK, models.HistoryResponse{Success: true, History: []any{}})
}
