package strategy

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-allocator/internal/model"
)

var t0 = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

// history builds n daily rows where each ticker's close is f(i).
func history(t *testing.T, n int, cols map[string]func(i int) float64) *model.PriceHistory {
	t.Helper()
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = t0.AddDate(0, 0, i)
	}
	closes := make(map[string][]float64, len(cols))
	for name, f := range cols {
		col := make([]float64, n)
		for i := range col {
			col[i] = f(i)
		}
		closes[name] = col
	}
	h, err := model.NewPriceHistory(dates, closes)
	require.NoError(t, err)
	return h
}

func growth(rate float64) func(int) float64 {
	return func(i int) float64 { return 100 * math.Pow(1+rate, float64(i)) }
}

func flat(i int) float64 { return 100 }

func assertNormalized(t *testing.T, w model.Weights) {
	t.Helper()
	require.NotEmpty(t, w)
	for ticker, v := range w {
		assert.Greater(t, v, 0.0, ticker)
	}
	assert.InDelta(t, 1.0, w.Sum(), model.WeightTolerance)
}

func TestDefensiveRatioTable(t *testing.T) {
	tests := []struct {
		negatives int
		want      float64
	}{
		{0, 0}, {1, 1.0 / 6}, {2, 2.0 / 6}, {3, 0.5}, {4, 4.0 / 6}, {5, 5.0 / 6}, {6, 1}, {7, 1}, {11, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefensiveRatio(tt.negatives), "negatives=%d", tt.negatives)
	}
}

func TestProtectiveNormalizeParameters(t *testing.T) {
	s := NewProtective()

	p := s.NormalizeParameters(Params{"etfs": " spy, qqq,SPY", "top_n": "6.9", "lookback_months": 0})
	assert.Equal(t, []string{"QQQ", "SPY"}, p.Tickers("etfs"))
	assert.Equal(t, 6, p["top_n"])
	assert.Equal(t, 1, p["lookback_months"])

	p = s.NormalizeParameters(Params{"etfs": 12, "top_n": "abc"})
	assert.Len(t, p.Tickers("etfs"), len(protectiveDefaultETFs))
	assert.Equal(t, 6, p["top_n"])

	a := s.NormalizeParameters(Params{"etfs": []any{"qqq", "spy"}})
	b := s.NormalizeParameters(Params{"etfs": "SPY,QQQ"})
	assert.Equal(t, a, b)

	defaults := s.NormalizeParameters(Params{})
	spelled := s.NormalizeParameters(Params{"etfs": "SPY,QQQ,IWM,VGK,EWJ,EEM,VNQ,GLD,DBC,HYG,LQD"})
	assert.Equal(t, spelled, defaults)
	assert.Equal(t, defaults, s.DefaultParameters())
	assert.IsNonDecreasing(t, defaults.Tickers("etfs"))
}

func TestIntParamClampsHugeValues(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{"huge string", "1e300", math.MaxInt32},
		{"huge float", 1e19, math.MaxInt32},
		{"huge negative", "-1e300", math.MinInt32},
		{"plain", "7.9", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, intParam(Params{"n": tt.raw}, "n", 3))
		})
	}

	p := NewProtective().NormalizeParameters(Params{"top_n": "1e300"})
	assert.Equal(t, math.MaxInt32, p["top_n"])
}

func TestProtectiveUniverseIncludesFallback(t *testing.T) {
	u := NewProtective().Universe(Params{"etfs": "spy,qqq"})
	assert.Equal(t, []string{"IEF", "QQQ", "SPY"}, u)
}

func TestProtectiveNoNegativesMeansNoDefense(t *testing.T) {
	cols := map[string]func(int) float64{}
	for _, tk := range []string{"A", "B", "C", "D", "E", "F"} {
		cols[tk] = growth(0.001)
	}
	h := history(t, 300, cols)

	d, err := NewProtective().ComputeWeights(h, Params{"etfs": "A,B,C,D,E,F", "top_n": 6})
	require.NoError(t, err)
	assertNormalized(t, d.Weights)
	assert.Equal(t, 0.0, d.Details["defensive_ratio"])
	assert.NotContains(t, d.Weights, "IEF")
	assert.InDelta(t, 1.0/6, d.Weights["A"], 1e-12)
}

func TestProtectiveAllNegativeGoesFullyDefensive(t *testing.T) {
	cols := map[string]func(int) float64{}
	for _, tk := range []string{"A", "B", "C", "D", "E", "F"} {
		cols[tk] = growth(-0.001)
	}
	h := history(t, 300, cols)

	d, err := NewProtective().ComputeWeights(h, Params{"etfs": "A,B,C,D,E,F", "top_n": 3})
	require.NoError(t, err)
	assert.Equal(t, 1.0, d.Details["defensive_ratio"])
	assert.Equal(t, model.Weights{"IEF": 1}, d.Weights)
}

func TestProtectiveHalfNegative(t *testing.T) {
	h := history(t, 300, map[string]func(int) float64{
		"A": growth(0.002), "B": growth(0.001), "C": growth(0.0005),
		"D": growth(-0.001), "E": growth(-0.002), "F": growth(-0.003),
	})

	d, err := NewProtective().ComputeWeights(h, Params{"etfs": "A,B,C,D,E,F", "top_n": 6})
	require.NoError(t, err)
	assert.Equal(t, 0.5, d.Details["defensive_ratio"])
	assert.Equal(t, 3, d.Details["num_negative_momentum"])

	// Three positives get (1-0.5)/6 each, then the set is renormalized.
	assertNormalized(t, d.Weights)
	assert.InDelta(t, 2.0/3, d.Weights["IEF"], 1e-12)
	assert.InDelta(t, 1.0/9, d.Weights["A"], 1e-12)
	assert.NotContains(t, d.Weights, "D", "selected negative ticker keeps its slot but holds nothing")
}

func TestProtectiveRisingVersusFlat(t *testing.T) {
	h := history(t, 300, map[string]func(int) float64{
		"A":   growth(0.01),
		"B":   flat,
		"IEF": flat,
	})

	d, err := NewProtective().ComputeWeights(h, Params{"etfs": "A,B", "top_n": 1, "lookback_months": 12})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, d.Details["selected_etfs"])
	// B sits exactly on its average, so nothing counts as negative.
	assert.Equal(t, 0, d.Details["num_negative_momentum"])
	assert.Equal(t, 0.0, d.Details["defensive_ratio"])
	assert.Equal(t, model.Weights{"A": 1}, d.Weights)
}

func TestProtectiveTieBreaksByTicker(t *testing.T) {
	h := history(t, 260, map[string]func(int) float64{
		"ZZZ": growth(0.001),
		"AAA": growth(0.001),
	})
	d, err := NewProtective().ComputeWeights(h, Params{"etfs": "ZZZ,AAA", "top_n": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, d.Details["selected_etfs"])
}

func TestProtectiveTopNClampedToAvailable(t *testing.T) {
	h := history(t, 260, map[string]func(int) float64{"A": growth(0.001), "B": growth(0.002)})
	d, err := NewProtective().ComputeWeights(h, Params{"etfs": "A,B,C", "top_n": 12})
	require.NoError(t, err)
	assert.Len(t, d.Details["selected_etfs"], 2)
	assert.Equal(t, []string{"C"}, d.Details["missing_tickers"])
	assert.InDelta(t, 0.5, d.Weights["A"], 1e-12)
}

func TestProtectiveErrors(t *testing.T) {
	s := NewProtective()

	_, err := s.ComputeWeights(history(t, 100, map[string]func(int) float64{"SPY": flat}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need at least 252 days, got 100")

	_, err = s.ComputeWeights(history(t, 260, map[string]func(int) float64{"XYZ": flat}), Params{"etfs": "SPY"})
	var serr *Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "No price data available for requested ETFs", serr.Message)
	assert.Equal(t, []string{"SPY"}, serr.MissingTickers)

	gappy := history(t, 260, map[string]func(int) float64{"SPY": func(i int) float64 {
		if i == 200 {
			return math.NaN()
		}
		return 100
	}})
	_, err = s.ComputeWeights(gappy, Params{"etfs": "SPY"})
	require.Error(t, err)
	assert.Equal(t, "Unable to calculate momentum", err.Error())
}

func TestVigilantScoreMatchesHandComputed(t *testing.T) {
	const g = 0.0015
	col := make([]float64, 300)
	for i := range col {
		col[i] = 50 * math.Pow(1+g, float64(i))
	}
	r := func(n int) float64 { return math.Pow(1+g, float64(n)) - 1 }
	want := 12*r(21) + 4*r(63) + 2*r(126) + r(252)

	got, ok := VigilantScore(col)
	require.True(t, ok)
	assert.InDelta(t, want, got, 1e-6)
}

func TestVigilantScoreSkipsGaps(t *testing.T) {
	col := make([]float64, 254)
	for i := range col {
		col[i] = 100 + float64(i)
	}
	col[10] = math.NaN()
	// 253 usable values is enough for R12.
	_, ok := VigilantScore(col)
	assert.True(t, ok)

	col[11] = math.NaN()
	_, ok = VigilantScore(col)
	assert.False(t, ok)
}

func vigilantHistory(t *testing.T, rates map[string]float64) *model.PriceHistory {
	cols := map[string]func(int) float64{}
	for tk, r := range rates {
		cols[tk] = growth(r)
	}
	return history(t, 300, cols)
}

func TestVigilantRiskOnPicksBestOffensive(t *testing.T) {
	h := vigilantHistory(t, map[string]float64{
		"SPY": 0.002, "EFA": 0.001, "EEM": 0.003, "AGG": 0.0005,
		"LQD": 0.004, "IEF": 0.0001, "SHY": 0.0001,
	})
	d, err := NewVigilant().ComputeWeights(h, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Weights{"EEM": 1}, d.Weights)
	assert.Equal(t, "offensive", d.Details["mode"])
}

func TestVigilantOneNegativeOffensiveGoesDefensive(t *testing.T) {
	h := vigilantHistory(t, map[string]float64{
		"SPY": 0.005, "EFA": 0.004, "EEM": -0.0001, "AGG": 0.003,
		"LQD": 0.0002, "IEF": 0.0004, "SHY": 0.0001,
	})
	d, err := NewVigilant().ComputeWeights(h, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Weights{"IEF": 1}, d.Weights)
	assert.Equal(t, "defensive", d.Details["mode"])
}

func TestVigilantTieBreaksByTicker(t *testing.T) {
	h := vigilantHistory(t, map[string]float64{"B": 0.001, "A": 0.001, "Y": 0.0, "X": 0.0})
	d, err := NewVigilant().ComputeWeights(h, Params{"offensive_assets": "B,A", "defensive_assets": "Y,X"})
	require.NoError(t, err)
	assert.Equal(t, model.Weights{"A": 1}, d.Weights)
}

func TestVigilantInsufficientData(t *testing.T) {
	h := history(t, 300, map[string]func(int) float64{
		"SPY": growth(0.001), "EFA": growth(0.001), "EEM": growth(0.001),
		"LQD": growth(0.001), "IEF": growth(0.001),
		"SHY": func(i int) float64 {
			if i < 100 {
				return math.NaN()
			}
			return 100
		},
	})
	_, err := NewVigilant().ComputeWeights(h, nil)
	var serr *Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "Insufficient data to score all required assets", serr.Message)
	assert.Equal(t, []string{"AGG", "SHY"}, serr.MissingTickers)
	assert.Contains(t, serr.AvailableScores, "SPY")
}

func TestVigilantUniverse(t *testing.T) {
	u := NewVigilant().Universe(Params{"offensive_assets": []string{"spy"}, "defensive_assets": "ief,spy"})
	assert.Equal(t, []string{"IEF", "SPY"}, u)
}

func TestDemoWeights(t *testing.T) {
	d, err := NewDemo().ComputeWeights(nil, nil)
	require.NoError(t, err)
	assertNormalized(t, d.Weights)
	assert.Equal(t, []string{"QQQ", "SPY", "VGK"}, d.Weights.Tickers())
	assert.InDelta(t, 1.0/3, d.Weights["QQQ"], 1e-12)

	neg := NewDemoWithTable(map[string]float64{"SPY": -0.1, "QQQ": -0.2})
	d, err = neg.ComputeWeights(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Weights{"IEF": 1}, d.Weights)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"paa", "simple_momentum", "vaa"}, r.IDs())
	assert.Equal(t, []string{"paa", "vaa"}, r.PerformanceIDs())

	s, err := r.Get("vaa")
	require.NoError(t, err)
	assert.Equal(t, "VAA Aggressive (Vigilant Asset Allocation)", s.Name())

	_, err = r.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownStrategy))

	info := r.Describe()
	require.Contains(t, info, "paa")
	assert.Len(t, info["paa"].Parameters, 3)
	assert.Equal(t, "SPY,QQQ,IWM,VGK,EWJ,EEM,VNQ,GLD,DBC,HYG,LQD", info["paa"].Parameters[0].Default)
	assert.Empty(t, info["simple_momentum"].Parameters)

	_, err = NewRegistry([]Spec{NewDemo(), NewDemo()}, nil)
	assert.Error(t, err)
	_, err = NewRegistry([]Spec{NewDemo()}, []string{"paa"})
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}
