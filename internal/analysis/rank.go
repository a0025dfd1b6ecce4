package analysis

import (
	"errors"
	"fmt"
	"sort"

	"momentum-allocator/internal/backtest"
	"momentum-allocator/internal/performance"
)

// ErrUnknownMetric is returned for a metric name RankByMetric cannot sort on.
var ErrUnknownMetric = errors.New("unknown ranking metric")

// DefaultMetric is used when the caller names none.
const DefaultMetric = "cagr_annualized"

type metricSpec struct {
	value       func(m backtest.Metrics) float64
	lowerBetter bool
}

var rankMetrics = map[string]metricSpec{
	"cagr_annualized":          {value: func(m backtest.Metrics) float64 { return m.CAGRAnnualized }},
	"cumulative_return_period": {value: func(m backtest.Metrics) float64 { return m.CumulativeReturnPeriod }},
	"max_drawdown_period":      {value: func(m backtest.Metrics) float64 { return m.MaxDrawdownPeriod }},
	"win_rate_monthly":         {value: func(m backtest.Metrics) float64 { return m.WinRateMonthly }},
	"best_month_return":        {value: func(m backtest.Metrics) float64 { return m.BestMonthReturn }},
	"worst_month_return":       {value: func(m backtest.Metrics) float64 { return m.WorstMonthReturn }},
	"volatility_annualized":    {value: func(m backtest.Metrics) float64 { return m.VolatilityAnnualized }, lowerBetter: true},
}

// Metrics lists the names RankByMetric accepts.
func Metrics() []string {
	out := make([]string, 0, len(rankMetrics))
	for name := range rankMetrics {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type Ranked struct {
	Rank         int         `json:"rank"`
	StrategyID   string      `json:"strategy_id"`
	StrategyName string      `json:"strategy_name"`
	Metric       string      `json:"metric"`
	Value        float64     `json:"value"`
	AsOf         string      `json:"as_of"`
	Returns      ReturnStats `json:"returns"`
}

// RankByMetric orders snapshots best first. Higher is better for every
// metric except volatility. Ties go to the lower strategy ID.
func RankByMetric(snapshots []*performance.Snapshot, metric string) ([]Ranked, error) {
	if metric == "" {
		metric = DefaultMetric
	}
	spec, ok := rankMetrics[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}

	out := make([]Ranked, 0, len(snapshots))
	for _, s := range snapshots {
		if s == nil {
			continue
		}
		out = append(out, Ranked{
			StrategyID:   s.StrategyID,
			StrategyName: s.StrategyName,
			Metric:       metric,
			Value:        spec.value(s.Metrics),
			AsOf:         s.Metrics.AsOf,
			Returns:      ComputeReturnStats(s.Metrics.MonthlyReturns),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			if spec.lowerBetter {
				return out[i].Value < out[j].Value
			}
			return out[i].Value > out[j].Value
		}
		return out[i].StrategyID < out[j].StrategyID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}
