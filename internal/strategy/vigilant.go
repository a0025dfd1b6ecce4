package strategy

import (
	"momentum-allocator/internal/model"
)

var (
	vigilantDefaultOffensive = []string{"SPY", "EFA", "EEM", "AGG"}
	vigilantDefaultDefensive = []string{"LQD", "IEF", "SHY"}
)

// Horizon lengths in trading days for the 1, 3, 6 and 12 month returns.
const (
	horizonR1  = 21
	horizonR3  = 63
	horizonR6  = 126
	horizonR12 = 252
)

// Vigilant switches the whole portfolio between the strongest offensive
// asset and the strongest defensive asset on a breadth test.
type Vigilant struct {
	Meta
}

func NewVigilant() *Vigilant {
	return &Vigilant{Meta: Meta{
		id:   "vaa",
		name: "VAA Aggressive (Vigilant Asset Allocation)",
		description: "Monthly momentum scoring using 1/3/6/12-month returns. " +
			"If all offensive assets have non-negative momentum, invest 100% in the best offensive asset; " +
			"otherwise invest 100% in the best defensive asset.",
		version:     "1",
		frequency:   "monthly",
		minLookback: horizonR12,
	}}
}

func (s *Vigilant) DefaultParameters() Params {
	return Params{
		"offensive_assets": model.CanonicalTickers(vigilantDefaultOffensive),
		"defensive_assets": model.CanonicalTickers(vigilantDefaultDefensive),
	}
}

func (s *Vigilant) NormalizeParameters(raw Params) Params {
	return Params{
		"offensive_assets": tickerParam(raw, "offensive_assets", model.CanonicalTickers(vigilantDefaultOffensive)),
		"defensive_assets": tickerParam(raw, "defensive_assets", model.CanonicalTickers(vigilantDefaultDefensive)),
	}
}

func (s *Vigilant) Universe(params Params) []string {
	p := s.NormalizeParameters(params)
	return union(p.Tickers("offensive_assets"), p.Tickers("defensive_assets"))
}

// horizonReturn is the simple return over the last n observations of the
// ticker's non-missing values. It needs more than n values.
func horizonReturn(values []float64, n int) (float64, bool) {
	if len(values) <= n {
		return 0, false
	}
	base := values[len(values)-1-n]
	if base == 0 {
		return 0, false
	}
	return values[len(values)-1]/base - 1, true
}

// VigilantScore blends the four horizon returns as 12*R1 + 4*R3 + 2*R6 + R12.
func VigilantScore(col []float64) (float64, bool) {
	values := make([]float64, 0, len(col))
	for _, v := range col {
		if model.Valid(v) {
			values = append(values, v)
		}
	}
	r1, ok1 := horizonReturn(values, horizonR1)
	r3, ok3 := horizonReturn(values, horizonR3)
	r6, ok6 := horizonReturn(values, horizonR6)
	r12, ok12 := horizonReturn(values, horizonR12)
	if !ok1 || !ok3 || !ok6 || !ok12 {
		return 0, false
	}
	return 12*r1 + 4*r3 + 2*r6 + r12, true
}

func (s *Vigilant) ComputeWeights(history *model.PriceHistory, params Params) (*Decision, error) {
	p := s.NormalizeParameters(params)
	offensive := p.Tickers("offensive_assets")
	defensive := p.Tickers("defensive_assets")
	required := union(offensive, defensive)

	if history.Empty() {
		return nil, fail("No historical data")
	}

	scores := map[string]float64{}
	var missing []string
	for _, t := range required {
		if !history.Has(t) {
			missing = append(missing, t)
			continue
		}
		score, ok := VigilantScore(history.Column(t))
		if !ok {
			missing = append(missing, t)
			continue
		}
		scores[t] = score
	}
	if len(missing) > 0 {
		return nil, &Error{
			Message:         "Insufficient data to score all required assets",
			MissingTickers:  missing,
			AvailableScores: roundScores(scores),
		}
	}

	riskOn := true
	for _, t := range offensive {
		if scores[t] < 0 {
			riskOn = false
			break
		}
	}
	mode, pool := "defensive", defensive
	if riskOn {
		mode, pool = "offensive", offensive
	}
	chosen := best(pool, scores)

	return finalize(&Decision{
		Weights: model.Weights{chosen: 1},
		Details: map[string]any{
			"mode":            mode,
			"selected_asset":  chosen,
			"momentum_scores": roundScores(scores),
			"missing_tickers": []string{},
		},
	})
}

// best returns the highest-scoring ticker. pool is sorted, so equal scores
// resolve to the ticker that sorts first.
func best(pool []string, scores map[string]float64) string {
	chosen := pool[0]
	for _, t := range pool[1:] {
		if scores[t] > scores[chosen] {
			chosen = t
		}
	}
	return chosen
}

func roundScores(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for t, v := range scores {
		out[t] = model.Round(v, 6)
	}
	return out
}

func (s *Vigilant) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "offensive_assets",
			Label:       "Offensive Assets (tickers)",
			Type:        "text",
			Default:     joinTickers(vigilantDefaultOffensive),
			Description: "Comma-separated tickers (e.g., SPY,EFA,EEM,AGG)",
		},
		{
			Name:        "defensive_assets",
			Label:       "Defensive Assets (tickers)",
			Type:        "text",
			Default:     joinTickers(vigilantDefaultDefensive),
			Description: "Comma-separated tickers (e.g., LQD,IEF,SHY)",
		},
	}
}

var _ Spec = (*Vigilant)(nil)
