package models

import (
	"momentum-allocator/internal/analysis"
	"momentum-allocator/internal/backtest"
	"momentum-allocator/internal/data"
	"momentum-allocator/internal/performance"
	"momentum-allocator/internal/plan"
	"momentum-allocator/internal/strategy"
)

// FailureResponse is the {success:false, error} shape of the public
// allocation routes.
type FailureResponse struct {
	Success        bool     `json:"success"`
	Error          string   `json:"error"`
	MissingTickers []string `json:"missing_tickers,omitempty"`
}

// Failure builds a FailureResponse.
func Failure(msg string) FailureResponse {
	return FailureResponse{Success: false, Error: msg}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type StrategiesResponse struct {
	Success    bool                     `json:"success"`
	Strategies map[string]strategy.Info `json:"strategies"`
}

type CalculateResponse struct {
	Success bool             `json:"success"`
	Result  *plan.Allocation `json:"result"`
	Cached  bool             `json:"cached"`
}

type HistoryResponse struct {
	Success bool  `json:"success"`
	History []any `json:"history"`
}

type BacktestResponse struct {
	Success    bool              `json:"success"`
	Metrics    backtest.Metrics  `json:"metrics"`
	Periods    []backtest.Period `json:"periods"`
	Parameters strategy.Params   `json:"parameters"`
}

type PerformanceResponse struct {
	Success     bool                  `json:"success"`
	Performance *performance.Snapshot `json:"performance"`
}

type RankResponse struct {
	Success  bool              `json:"success"`
	Metric   string            `json:"metric"`
	Metrics  []string          `json:"metrics"`
	Rankings []analysis.Ranked `json:"rankings"`
}

type RefreshResponse struct {
	Success bool `json:"success"`
	performance.Report
}

type TickersResponse struct {
	Success   bool              `json:"success"`
	UpdatedAt string            `json:"updated_at"`
	Count     int               `json:"count"`
	Tickers   []data.TickerInfo `json:"tickers"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
