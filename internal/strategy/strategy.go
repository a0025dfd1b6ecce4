package strategy

import (
	"errors"
	"fmt"
	"strings"

	"momentum-allocator/internal/model"
)

// Params holds strategy parameters. Normalized params contain only
// []string ticker lists and int values.
type Params map[string]any

// Decision is the output of one weight computation.
type Decision struct {
	Weights model.Weights
	// Details carries strategy-specific diagnostics for the live plan view.
	Details map[string]any
}

// Spec is a pure allocation rule. Implementations do no I/O and keep no
// state between calls, so the backtest may call them repeatedly.
type Spec interface {
	ID() string
	Name() string
	Description() string
	Version() string
	RebalanceFrequency() string
	MinLookbackDays() int

	DefaultParameters() Params
	NormalizeParameters(raw Params) Params
	Universe(params Params) []string
	ComputeWeights(history *model.PriceHistory, params Params) (*Decision, error)

	// Parameters describes the UI inputs this spec accepts.
	Parameters() []ParameterInfo
}

// ParameterInfo is UI metadata for one strategy input.
type ParameterInfo struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"` // "text" or "number"
	Default     any    `json:"default"`
	Min         *int   `json:"min,omitempty"`
	Max         *int   `json:"max,omitempty"`
	Description string `json:"description"`
}

// Meta carries the identity fields shared by every spec.
type Meta struct {
	id, name, description string
	version, frequency    string
	minLookback           int
}

func (m Meta) ID() string                 { return m.id }
func (m Meta) Name() string               { return m.name }
func (m Meta) Description() string        { return m.description }
func (m Meta) Version() string            { return m.version }
func (m Meta) RebalanceFrequency() string { return m.frequency }
func (m Meta) MinLookbackDays() int       { return m.minLookback }

var ErrUnknownStrategy = errors.New("unknown strategy")

// Error is a failed weight computation. It may carry the tickers that could
// not be used and whatever scores were computed before the failure.
type Error struct {
	Message         string
	MissingTickers  []string
	AvailableScores map[string]float64
}

func (e *Error) Error() string { return e.Message }

func fail(format string, args ...any) *Error {
	if len(args) == 0 {
		return &Error{Message: format}
	}
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// finalize cleans weights and rejects an empty result.
func finalize(d *Decision) (*Decision, error) {
	d.Weights = d.Weights.Clean()
	if len(d.Weights) == 0 {
		return nil, fail("No valid positive allocation weights")
	}
	return d, nil
}

func joinTickers(ts []string) string { return strings.Join(ts, ",") }

func intPtr(v int) *int { return &v }
