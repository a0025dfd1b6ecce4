package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"momentum-allocator/internal/api/models"
	"momentum-allocator/internal/performance"
)

// PerformanceHandler serves stored backtest snapshots. A nil runner means
// performance tracking is disabled.
type PerformanceHandler struct {
	runner *performance.Runner
}

func NewPerformanceHandler(runner *performance.Runner) *PerformanceHandler {
	return &PerformanceHandler{runner: runner}
}

func (h *PerformanceHandler) enabled(c *gin.Context) bool {
	if h.runner != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "PERFORMANCE_DISABLED",
			Message: "Performance tracking is disabled",
		},
	})
	return false
}

// GetPerformance handles GET /api/performance/:id
func (h *PerformanceHandler) GetPerformance(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	id := c.Param("id")
	snap, err := h.runner.Get(c.Request.Context(), id)
	if errors.Is(err, performance.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "No performance snapshot for strategy " + id,
			},
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "STORE_ERROR",
				Message: err.Error(),
			},
		})
		return
	}
	c.JSON(http.StatusOK, models.PerformanceResponse{Success: true, Performance: snap})
}

// Refresh handles POST /api/performance/refresh
func (h *PerformanceHandler) Refresh(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	rep := h.runner.RefreshAll(c.Request.Context(), nil)
	c.JSON(http.StatusOK, models.RefreshResponse{Success: rep.OK, Report: rep})
}
