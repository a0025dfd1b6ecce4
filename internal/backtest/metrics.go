package backtest

import (
	"math"

	"momentum-allocator/internal/model"
	"momentum-allocator/internal/strategy"
)

// MonthlyReturn is the return of the period ending on PeriodEnd.
type MonthlyReturn struct {
	PeriodEnd string  `json:"period_end"`
	Return    float64 `json:"return"`
}

// Metrics summarizes a run. Ratios are rounded to 6 decimals. The *1y
// aliases are set only when exactly 12 periods were tested.
type Metrics struct {
	AsOf            string `json:"as_of"`
	WindowStart     string `json:"window_start"`
	MonthsTested    int    `json:"months_tested"`
	LookbackMinDays int    `json:"lookback_min_days"`

	CumulativeReturnPeriod float64 `json:"cumulative_return_period"`
	CAGRAnnualized         float64 `json:"cagr_annualized"`
	MaxDrawdownPeriod      float64 `json:"max_drawdown_period"`
	VolatilityAnnualized   float64 `json:"volatility_annualized"`
	WinRateMonthly         float64 `json:"win_rate_monthly"`
	BestMonthReturn        float64 `json:"best_month_return"`
	WorstMonthReturn       float64 `json:"worst_month_return"`

	RebalanceFrequency string          `json:"rebalance_frequency"`
	StrategyVersion    string          `json:"strategy_version"`
	MissingTickers     []string        `json:"missing_tickers"`
	MonthlyReturns     []MonthlyReturn `json:"monthly_returns"`

	CumulativeReturn1Y *float64 `json:"cumulative_return_1y,omitempty"`
	CAGR1Y             *float64 `json:"cagr_1y,omitempty"`
	MaxDrawdown1Y      *float64 `json:"max_drawdown_1y,omitempty"`
	VolatilityAnnual   *float64 `json:"volatility_annual,omitempty"`
}

// equityCurve starts at 1 and compounds each return.
func equityCurve(returns []float64) []float64 {
	out := make([]float64, 0, len(returns)+1)
	out = append(out, 1)
	for _, r := range returns {
		out = append(out, out[len(out)-1]*(1+r))
	}
	return out
}

// maxDrawdown is the most negative value/running-peak - 1 along the curve.
func maxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0]
	worst := 0.0
	for _, v := range curve {
		peak = math.Max(peak, v)
		if dd := v/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

func mean(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// sampleStddev uses n-1 in the denominator; it is 0 below two samples.
func sampleStddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// computeMetrics expects len(dates) == len(returns)+1 == len(equity).
func computeMetrics(spec strategy.Spec, dates []string, returns, equity []float64, lookback int, missing []string) Metrics {
	n := len(returns)
	total := equity[len(equity)-1] - 1
	cagr := math.Pow(1+total, 12/float64(n)) - 1

	wins := 0
	best, worst := returns[0], returns[0]
	monthly := make([]MonthlyReturn, n)
	for i, r := range returns {
		if r > 0 {
			wins++
		}
		best = math.Max(best, r)
		worst = math.Min(worst, r)
		monthly[i] = MonthlyReturn{PeriodEnd: dates[i+1], Return: model.Round(r, 6)}
	}

	m := Metrics{
		AsOf:            dates[len(dates)-1],
		WindowStart:     dates[0],
		MonthsTested:    n,
		LookbackMinDays: lookback,

		CumulativeReturnPeriod: model.Round(total, 6),
		CAGRAnnualized:         model.Round(cagr, 6),
		MaxDrawdownPeriod:      model.Round(maxDrawdown(equity), 6),
		VolatilityAnnualized:   model.Round(sampleStddev(returns)*math.Sqrt(12), 6),
		WinRateMonthly:         model.Round(float64(wins)/float64(n), 6),
		BestMonthReturn:        model.Round(best, 6),
		WorstMonthReturn:       model.Round(worst, 6),

		RebalanceFrequency: spec.RebalanceFrequency(),
		StrategyVersion:    spec.Version(),
		MissingTickers:     missing,
		MonthlyReturns:     monthly,
	}
	if n == 12 {
		cum, cg, dd, vol := m.CumulativeReturnPeriod, m.CAGRAnnualized, m.MaxDrawdownPeriod, m.VolatilityAnnualized
		m.CumulativeReturn1Y, m.CAGR1Y, m.MaxDrawdown1Y, m.VolatilityAnnual = &cum, &cg, &dd, &vol
	}
	return m
}
