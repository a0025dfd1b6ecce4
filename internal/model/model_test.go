package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTickerListCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   TickerList
		want []string
	}{
		{"delimited", TickersFromString(" spy, qqq ,SPY,,iwm"), []string{"IWM", "QQQ", "SPY"}},
		{"list", TickersFromSlice([]string{"qqq", " spy", "QQQ", ""}), []string{"QQQ", "SPY"}},
		{"mixed delimiters", TickersFromString("IEF;shy lqd"), []string{"IEF", "LQD", "SHY"}},
		{"empty", TickersFromString("  , "), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Canonical())
		})
	}
}

func TestTickerListEquivalentForms(t *testing.T) {
	a := TickersFromString("SPY,EFA,EEM,AGG")
	b := TickersFromSlice([]string{"agg", "eem", "efa", "spy", "spy"})
	assert.Equal(t, a.Canonical(), b.Canonical())
}

func TestTickerListJSON(t *testing.T) {
	var fromString, fromList TickerList
	require.NoError(t, json.Unmarshal([]byte(`"spy,ief"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`["IEF","spy"]`), &fromList))
	assert.Equal(t, fromString.Canonical(), fromList.Canonical())

	var bad TickerList
	assert.Error(t, json.Unmarshal([]byte(`12`), &bad))
}

func TestParseTickerList(t *testing.T) {
	l, ok := ParseTickerList([]any{"spy", "ief"})
	require.True(t, ok)
	assert.Equal(t, []string{"IEF", "SPY"}, l.Canonical())

	_, ok = ParseTickerList(42)
	assert.False(t, ok)
}

func TestWeightsClean(t *testing.T) {
	w := Weights{"A": 2, "B": 2, "C": 0, "D": -1, "E": math.NaN()}
	c := w.Clean()
	assert.Equal(t, []string{"A", "B"}, c.Tickers())
	assert.InDelta(t, 1.0, c.Sum(), WeightTolerance)
	assert.InDelta(t, 0.5, c["A"], 1e-12)

	assert.Empty(t, Weights{"A": 0}.Clean())
}

func TestRoundNoNegativeZero(t *testing.T) {
	r := Round(-1e-9, 6)
	assert.False(t, math.Signbit(r))
	assert.Equal(t, 0.123457, Round(0.1234567, 6))
}

func TestFromSeriesAlignsAndFills(t *testing.T) {
	h := FromSeries(map[string][]Bar{
		"A": {{Date: day(2024, 1, 2), Close: 10}, {Date: day(2024, 1, 4), Close: 12}},
		"B": {{Date: day(2024, 1, 3), Close: 5}},
	})
	require.Equal(t, 3, h.Len())
	assert.Equal(t, []string{"A", "B"}, h.Tickers)
	assert.True(t, math.IsNaN(h.Column("A")[1]))

	f := h.ForwardFill()
	assert.Equal(t, 10.0, f.Column("A")[1])
	assert.True(t, math.IsNaN(f.Column("B")[0]), "leading gap is never back-filled")
	assert.Equal(t, 5.0, f.Column("B")[2])
	assert.True(t, math.IsNaN(h.Column("A")[1]), "source is untouched")
}

func TestNewPriceHistoryRejectsUnorderedDates(t *testing.T) {
	_, err := NewPriceHistory([]time.Time{day(2024, 1, 3), day(2024, 1, 2)}, map[string][]float64{"A": {1, 2}})
	assert.Error(t, err)
}

func TestUntilAndMonthEnds(t *testing.T) {
	dates := []time.Time{day(2024, 1, 30), day(2024, 1, 31), day(2024, 2, 1), day(2024, 2, 29), day(2024, 3, 1)}
	h, err := NewPriceHistory(dates, map[string][]float64{"A": {1, 2, 3, 4, 5}})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 4}, h.MonthEnds())

	cut := h.Until(day(2024, 2, 1))
	assert.Equal(t, 3, cut.Len())
	assert.Equal(t, day(2024, 2, 1), cut.LastDate())
}

func TestDropEmpty(t *testing.T) {
	nan := math.NaN()
	h, err := NewPriceHistory(
		[]time.Time{day(2024, 1, 2), day(2024, 1, 3)},
		map[string][]float64{"A": {nan, 1}, "B": {nan, nan}},
	)
	require.NoError(t, err)

	d := h.DropEmptyTickers().DropEmptyRows()
	assert.Equal(t, []string{"A"}, d.Tickers)
	assert.Equal(t, 1, d.Len())
}

func TestMergeKeepsFirstSource(t *testing.T) {
	a := FromSeries(map[string][]Bar{"A": {{Date: day(2024, 1, 2), Close: 1}}})
	b := FromSeries(map[string][]Bar{
		"A": {{Date: day(2024, 1, 2), Close: 99}},
		"B": {{Date: day(2024, 1, 3), Close: 2}},
	})
	m := a.Merge(b)
	assert.Equal(t, []string{"A", "B"}, m.Tickers)
	assert.Equal(t, 1.0, m.Column("A")[0])
	assert.Equal(t, 2, m.Len())
}
