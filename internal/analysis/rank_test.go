package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-allocator/internal/backtest"
	"momentum-allocator/internal/performance"
)

func snap(id string, cagr, vol float64, monthly ...float64) *performance.Snapshot {
	m := backtest.Metrics{CAGRAnnualized: cagr, VolatilityAnnualized: vol, AsOf: "2024-05-31"}
	for _, r := range monthly {
		m.MonthlyReturns = append(m.MonthlyReturns, backtest.MonthlyReturn{Return: r})
	}
	return &performance.Snapshot{StrategyID: id, StrategyName: id + " name", Metrics: m}
}

func TestRankByMetric(t *testing.T) {
	snaps := []*performance.Snapshot{
		snap("vaa", 0.08, 0.12),
		snap("paa", 0.11, 0.09),
		nil,
		snap("aaa", 0.08, 0.20),
	}

	tests := []struct {
		metric string
		want   []string
	}{
		{"", []string{"paa", "aaa", "vaa"}},
		{"cagr_annualized", []string{"paa", "aaa", "vaa"}},
		{"volatility_annualized", []string{"paa", "vaa", "aaa"}},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			got, err := RankByMetric(snaps, tt.metric)
			require.NoError(t, err)
			ids := make([]string, len(got))
			for i, r := range got {
				ids[i] = r.StrategyID
				assert.Equal(t, i+1, r.Rank)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRankByMetricUnknown(t *testing.T) {
	_, err := RankByMetric(nil, "sharpe")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestRankByMetricEmpty(t *testing.T) {
	got, err := RankByMetric(nil, "")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestMetricsListed(t *testing.T) {
	assert.Contains(t, Metrics(), DefaultMetric)
	assert.Len(t, Metrics(), 7)
}

func TestComputeReturnStats(t *testing.T) {
	assert.Equal(t, ReturnStats{}, ComputeReturnStats(nil))

	var monthly []backtest.MonthlyReturn
	for _, r := range []float64{0.03, -0.02, 0.01, 0.04, 0.00} {
		monthly = append(monthly, backtest.MonthlyReturn{Return: r})
	}
	s := ComputeReturnStats(monthly)
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, -0.02, s.Min)
	assert.Equal(t, 0.04, s.Max)
	assert.InDelta(t, 0.012, s.Mean, 1e-12)
	// sorted: -0.02 0 0.01 0.03 0.04; p05 at pos 0.2, p95 at pos 3.8
	assert.InDelta(t, -0.016, s.P05, 1e-12)
	assert.InDelta(t, 0.038, s.P95, 1e-12)
	assert.InDelta(t, 0.054, s.SpreadP95P05, 1e-12)
}
