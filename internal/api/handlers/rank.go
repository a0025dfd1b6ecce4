package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"momentum-allocator/internal/analysis"
	"momentum-allocator/internal/api/models"
)

// RankStrategies handles GET /api/performance
func (h *PerformanceHandler) RankStrategies(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	snaps, err := h.runner.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "STORE_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	ranked, err := analysis.RankByMetric(snaps, req.Sort)
	if errors.Is(err, analysis.ErrUnknownMetric) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_METRIC",
				Message: err.Error(),
				Details: map[string]any{"metrics": analysis.Metrics()},
			},
		})
		return
	}

	if req.Limit > 0 && req.Limit < len(ranked) {
		ranked = ranked[:req.Limit]
	}
	metric := req.Sort
	if metric == "" {
		metric = analysis.DefaultMetric
	}
	c.JSON(http.StatusOK, models.RankResponse{
		Success:  true,
		Metric:   metric,
		Metrics:  analysis.Metrics(),
		Rankings: ranked,
	})
}
