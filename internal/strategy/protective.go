package strategy

import (
	"sort"

	"momentum-allocator/internal/model"
)

const (
	protectiveWindow   = 252
	protectiveFallback = "IEF"
)

var protectiveDefaultETFs = []string{"SPY", "QQQ", "IWM", "VGK", "EWJ", "EEM", "VNQ", "GLD", "DBC", "HYG", "LQD"}

// defensiveRatios maps a negative-momentum count to the fraction held in
// the fallback asset. Counts above the table map to 1.
var defensiveRatios = []float64{0, 1.0 / 6, 2.0 / 6, 3.0 / 6, 4.0 / 6, 5.0 / 6, 1}

// Protective ranks a ticker set by distance from its 12-month average and
// moves a stepped fraction into a bond fallback as breadth weakens.
type Protective struct {
	Meta
}

func NewProtective() *Protective {
	return &Protective{Meta: Meta{
		id:   "paa",
		name: "PAA (Protective Asset Allocation)",
		description: "Ranks ETFs by 12-month momentum and allocates to the top performers. " +
			"If momentum is weak, shifts a portion into defensive bonds (IEF).",
		version:     "1",
		frequency:   "monthly",
		minLookback: protectiveWindow,
	}}
}

func (s *Protective) DefaultParameters() Params {
	return Params{
		"etfs":            model.CanonicalTickers(protectiveDefaultETFs),
		"top_n":           6,
		"lookback_months": 12,
	}
}

func (s *Protective) NormalizeParameters(raw Params) Params {
	out := s.DefaultParameters()
	out["etfs"] = tickerParam(raw, "etfs", model.CanonicalTickers(protectiveDefaultETFs))
	out["top_n"] = max(1, intParam(raw, "top_n", 6))
	out["lookback_months"] = max(1, intParam(raw, "lookback_months", 12))
	return out
}

func (s *Protective) Universe(params Params) []string {
	p := s.NormalizeParameters(params)
	return union(p.Tickers("etfs"), []string{protectiveFallback})
}

// DefensiveRatio returns the fallback fraction for a count of tickers with
// negative momentum.
func DefensiveRatio(negatives int) float64 {
	if negatives < 0 {
		return 0
	}
	if negatives >= len(defensiveRatios) {
		return 1
	}
	return defensiveRatios[negatives]
}

// momentum is last / mean(last window rows) - 1. A gap anywhere in the
// window leaves the ticker unscored.
func momentum(col []float64, window int) (float64, bool) {
	if len(col) < window {
		return 0, false
	}
	sum := 0.0
	for _, v := range col[len(col)-window:] {
		if !model.Valid(v) {
			return 0, false
		}
		sum += v
	}
	mean := sum / float64(window)
	if mean == 0 {
		return 0, false
	}
	m := col[len(col)-1]/mean - 1
	if !model.Valid(m) {
		return 0, false
	}
	return m, true
}

func (s *Protective) ComputeWeights(history *model.PriceHistory, params Params) (*Decision, error) {
	p := s.NormalizeParameters(params)
	etfs := p.Tickers("etfs")
	topN := p.Int("top_n", 6)

	if history.Empty() {
		return nil, fail("No historical data")
	}
	if history.Len() < protectiveWindow {
		return nil, fail("Insufficient data: need at least %d days, got %d", protectiveWindow, history.Len())
	}

	scores := map[string]float64{}
	for _, t := range history.Tickers {
		if m, ok := momentum(history.Column(t), protectiveWindow); ok {
			scores[t] = m
		}
	}
	if len(scores) == 0 {
		return nil, fail("Unable to calculate momentum")
	}

	var requested, missing []string
	for _, t := range etfs {
		if _, ok := scores[t]; ok {
			requested = append(requested, t)
		} else {
			missing = append(missing, t)
		}
	}
	if len(requested) == 0 {
		return nil, &Error{Message: "No price data available for requested ETFs", MissingTickers: missing}
	}

	ranked := cloneTickers(requested)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := scores[ranked[i]], scores[ranked[j]]
		if a != b {
			return a > b
		}
		return ranked[i] < ranked[j]
	})
	topN = min(max(1, topN), len(ranked))
	selected := ranked[:topN]

	negatives := 0
	for _, t := range requested {
		if scores[t] < 0 {
			negatives++
		}
	}
	ratio := DefensiveRatio(negatives)
	each := (1 - ratio) / float64(topN)

	weights := model.Weights{}
	momentumScores := map[string]float64{}
	sum := 0.0
	for _, t := range selected {
		// A selected ticker below its average keeps its slot but holds nothing.
		if scores[t] >= 0 {
			weights[t] = each
		}
		momentumScores[t] = model.Round(scores[t], 4)
		sum += scores[t]
	}
	if ratio > 0 {
		weights[protectiveFallback] = ratio
	}

	return finalize(&Decision{
		Weights: weights,
		Details: map[string]any{
			"defensive_ratio":       model.Round(ratio, 4),
			"offensive_ratio":       model.Round(1-ratio, 4),
			"num_negative_momentum": negatives,
			"momentum_scores":       momentumScores,
			"selected_etfs":         cloneTickers(selected),
			"avg_momentum":          model.Round(sum/float64(len(selected)), 4),
			"best_etf":              selected[0],
			"worst_etf":             selected[len(selected)-1],
			"missing_tickers":       nonNil(missing),
		},
	})
}

func (s *Protective) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "etfs",
			Label:       "ETF Tickers",
			Type:        "text",
			Default:     joinTickers(protectiveDefaultETFs),
			Description: "Comma-separated list of ETF tickers",
		},
		{
			Name:        "top_n",
			Label:       "Top N ETFs",
			Type:        "number",
			Default:     6,
			Min:         intPtr(1),
			Max:         intPtr(12),
			Description: "Number of top-performing ETFs to select",
		},
		{
			Name:        "lookback_months",
			Label:       "Lookback Period (Months)",
			Type:        "number",
			Default:     12,
			Min:         intPtr(6),
			Max:         intPtr(24),
			Description: "Historical period for momentum calculation",
		},
	}
}

func nonNil(ts []string) []string {
	if ts == nil {
		return []string{}
	}
	return ts
}

var _ Spec = (*Protective)(nil)
