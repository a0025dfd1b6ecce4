package backtest

import (
	"fmt"

	"momentum-allocator/internal/model"
	"momentum-allocator/internal/strategy"
)

// Period is one holding interval between two rebalance dates.
// This is the primary artifact for "what happened" in a backtest.
type Period struct {
	AsOf         string        `json:"as_of"`
	NextAsOf     string        `json:"next_as_of"`
	PeriodReturn float64       `json:"period_return"`
	Weights      model.Weights `json:"weights"`
	Equity       float64       `json:"-"` // growth of 1 at NextAsOf
}

type Result struct {
	Metrics    Metrics         `json:"metrics"`
	Parameters strategy.Params `json:"parameters"`
	Periods    []Period        `json:"periods"`
}

// Error is a failed run. MissingTickers is never nil.
type Error struct {
	Message        string
	MissingTickers []string
	cause          error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.cause }

// Cancelled wraps a context error so errors.Is still sees it.
func Cancelled(cause error, missing []string) *Error {
	return newError(cause, missing, "Backtest cancelled")
}

func newError(cause error, missing []string, format string, args ...any) *Error {
	if missing == nil {
		missing = []string{}
	}
	return &Error{Message: fmt.Sprintf(format, args...), MissingTickers: missing, cause: cause}
}
