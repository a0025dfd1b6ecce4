package strategy

import (
	"sort"

	"momentum-allocator/internal/model"
)

const demoTopN = 3

// Demo uses a fixed momentum table and never reads prices. It exists to
// exercise the allocation path without a data source.
type Demo struct {
	Meta
	table    map[string]float64
	fallback string
}

func NewDemo() *Demo {
	return &Demo{
		Meta: Meta{
			id:          "simple_momentum",
			name:        "Simple Momentum (Demo)",
			description: "Momentum-based strategy with simulated data for testing",
			version:     "1",
			frequency:   "monthly",
		},
		table: map[string]float64{
			"SPY": 0.12,
			"QQQ": 0.18,
			"IWM": -0.05,
			"VGK": 0.08,
			"EEM": -0.03,
			"IEF": 0.04,
		},
		fallback: "IEF",
	}
}

// NewDemoWithTable swaps the momentum table, mainly for tests.
func NewDemoWithTable(table map[string]float64) *Demo {
	d := NewDemo()
	d.table = table
	return d
}

func (s *Demo) DefaultParameters() Params           { return Params{} }
func (s *Demo) NormalizeParameters(_ Params) Params { return Params{} }
func (s *Demo) Parameters() []ParameterInfo         { return []ParameterInfo{} }

func (s *Demo) Universe(_ Params) []string {
	ts := make([]string, 0, len(s.table)+1)
	for t := range s.table {
		ts = append(ts, t)
	}
	return union(ts, []string{s.fallback})
}

func (s *Demo) ComputeWeights(_ *model.PriceHistory, _ Params) (*Decision, error) {
	ranked := make([]string, 0, len(s.table))
	for t, m := range s.table {
		if m > 0 {
			ranked = append(ranked, t)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := s.table[ranked[i]], s.table[ranked[j]]
		if a != b {
			return a > b
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > demoTopN {
		ranked = ranked[:demoTopN]
	}

	scores := make(map[string]float64, len(s.table))
	for t, m := range s.table {
		scores[t] = model.Round(m, 4)
	}

	weights := model.Weights{}
	note := "This is a demo with simulated data. Connect to real data sources for production use."
	if len(ranked) == 0 {
		weights[s.fallback] = 1
		ranked = []string{s.fallback}
		note = "All assets showing negative momentum - 100% defensive allocation"
	} else {
		for _, t := range ranked {
			weights[t] = 1 / float64(len(ranked))
		}
	}

	return finalize(&Decision{
		Weights: weights,
		Details: map[string]any{
			"momentum_scores": scores,
			"selected_assets": ranked,
			"note":            note,
		},
	})
}

var _ Spec = (*Demo)(nil)
