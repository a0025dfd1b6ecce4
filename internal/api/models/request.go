package models

import "momentum-allocator/internal/strategy"

// CalculateRequest is the body of POST /api/calculate. Missing fields are
// validated by the handler so the error messages match the public API.
type CalculateRequest struct {
	StrategyID string          `json:"strategy_id"`
	TotalMoney float64         `json:"total_money"`
	Parameters strategy.Params `json:"parameters,omitempty"`
}

// BacktestRequest is the body of POST /api/backtest.
type BacktestRequest struct {
	StrategyID string          `json:"strategy_id" binding:"required"`
	Parameters strategy.Params `json:"parameters,omitempty"`
}

// RankRequest is the query of GET /api/performance.
type RankRequest struct {
	Sort  string `form:"sort"`
	Limit int    `form:"limit" binding:"omitempty,min=0"`
}

// TickerRequest is the query of GET /api/tickers.
type TickerRequest struct {
	AssetClass string `form:"asset_class"`
}
