package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"momentum-allocator/internal/api/models"
	"momentum-allocator/internal/backtest"
	"momentum-allocator/internal/strategy"
)

// Backtester runs one on-demand walk-forward backtest.
type Backtester interface {
	Run(ctx context.Context, spec strategy.Spec, raw strategy.Params) (*backtest.Result, error)
}

// BacktestHandler handles backtest-related requests
type BacktestHandler struct {
	registry *strategy.Registry
	engine   Backtester
}

func NewBacktestHandler(registry *strategy.Registry, engine Backtester) *BacktestHandler {
	return &BacktestHandler{registry: registry, engine: engine}
}

// RunBacktest handles POST /api/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	spec, err := h.registry.Get(req.StrategyID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "STRATEGY_NOT_FOUND",
				Message: "Strategy " + req.StrategyID + " not found",
			},
		})
		return
	}

	res, err := h.engine.Run(c.Request.Context(), spec, req.Parameters)
	if err != nil {
		log.Warn().Str("component", "api").Str("strategy", req.StrategyID).Err(err).Msg("backtest failed")
		status, detail := backtestError(err)
		c.JSON(status, models.ErrorResponse{Error: detail})
		return
	}

	c.JSON(http.StatusOK, models.BacktestResponse{
		Success:    true,
		Metrics:    res.Metrics,
		Periods:    res.Periods,
		Parameters: res.Parameters,
	})
}

func backtestError(err error) (int, models.ErrorDetail) {
	var bErr *backtest.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, models.ErrorDetail{
			Code:    "BACKTEST_CANCELLED",
			Message: err.Error(),
		}
	case errors.As(err, &bErr):
		return http.StatusUnprocessableEntity, models.ErrorDetail{
			Code:    "BACKTEST_ERROR",
			Message: bErr.Message,
			Details: map[string]any{"missing_tickers": bErr.MissingTickers},
		}
	default:
		return http.StatusInternalServerError, models.ErrorDetail{
			Code:    "BACKTEST_ERROR",
			Message: err.Error(),
		}
	}
}
