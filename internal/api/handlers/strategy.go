package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"momentum-allocator/internal/api/models"
	"momentum-allocator/internal/plan"
	"momentum-allocator/internal/strategy"
)

// StrategyHandler serves the strategy listing and allocation routes.
type StrategyHandler struct {
	planner *plan.Planner
}

func NewStrategyHandler(planner *plan.Planner) *StrategyHandler {
	return &StrategyHandler{planner: planner}
}

// ListStrategies handles GET /api/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, models.StrategiesResponse{
		Success:    true,
		Strategies: h.planner.Registry().Describe(),
	})
}

// Calculate handles POST /api/calculate
func (h *StrategyHandler) Calculate(c *gin.Context) {
	var req models.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Failure(err.Error()))
		return
	}
	req.StrategyID = strings.TrimSpace(req.StrategyID)
	if req.StrategyID == "" {
		c.JSON(http.StatusBadRequest, models.Failure("Strategy ID is required"))
		return
	}
	if !(req.TotalMoney > 0) {
		c.JSON(http.StatusBadRequest, models.Failure("Total money must be greater than 0"))
		return
	}

	spec, err := h.planner.Registry().Get(req.StrategyID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.Failure(fmt.Sprintf("Strategy %s not found", req.StrategyID)))
		return
	}

	p, cached, err := h.planner.PlanCached(c.Request.Context(), req.StrategyID, req.Parameters)
	if err != nil {
		log.Warn().Str("component", "api").Str("strategy", req.StrategyID).Err(err).Msg("plan failed")
		c.JSON(http.StatusInternalServerError, planFailure(err))
		return
	}

	result, err := plan.Scale(p, req.TotalMoney, spec.Name())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Failure(err.Error()))
		return
	}

	c.JSON(http.StatusOK, models.CalculateResponse{Success: true, Result: result, Cached: cached})
}

func planFailure(err error) models.FailureResponse {
	out := models.Failure(err.Error())
	var sErr *strategy.Error
	if errors.As(err, &sErr) {
		out.MissingTickers = sErr.MissingTickers
	}
	return out
}
