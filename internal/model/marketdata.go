package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Bar is one daily close for a single ticker.
type Bar struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceHistory is a date-ordered table of daily closes.
//
// Rows are strictly increasing by date. Missing values are NaN. A history
// handed to a strategy is treated as read-only and contains nothing after
// its last date.
type PriceHistory struct {
	Dates   []time.Time
	Tickers []string
	Closes  map[string][]float64
}

// NewPriceHistory builds a history from aligned columns. Every column must
// have one value per date.
func NewPriceHistory(dates []time.Time, closes map[string][]float64) (*PriceHistory, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("dates not strictly increasing at row %d (%s)", i, dates[i].Format("2006-01-02"))
		}
	}
	tickers := make([]string, 0, len(closes))
	for t, col := range closes {
		if len(col) != len(dates) {
			return nil, fmt.Errorf("ticker %s has %d values for %d dates", t, len(col), len(dates))
		}
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return &PriceHistory{Dates: dates, Tickers: tickers, Closes: closes}, nil
}

// FromSeries aligns per-ticker bars onto the union of their dates.
// Bars are truncated to their UTC calendar day; a later bar on the same day wins.
func FromSeries(series map[string][]Bar) *PriceHistory {
	daySet := map[time.Time]struct{}{}
	byTicker := make(map[string]map[time.Time]float64, len(series))
	for t, bars := range series {
		m := make(map[time.Time]float64, len(bars))
		for _, b := range bars {
			d := Day(b.Date)
			m[d] = b.Close
			daySet[d] = struct{}{}
		}
		if len(m) > 0 {
			byTicker[t] = m
		}
	}
	dates := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	closes := make(map[string][]float64, len(byTicker))
	for t, m := range byTicker {
		col := make([]float64, len(dates))
		for i, d := range dates {
			if v, ok := m[d]; ok {
				col[i] = v
			} else {
				col[i] = math.NaN()
			}
		}
		closes[t] = col
	}
	h, _ := NewPriceHistory(dates, closes)
	return h
}

// Day truncates t to midnight UTC of its UTC calendar date.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func (h *PriceHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Dates)
}

func (h *PriceHistory) Empty() bool { return h.Len() == 0 || len(h.Tickers) == 0 }

func (h *PriceHistory) Has(ticker string) bool {
	if h == nil {
		return false
	}
	_, ok := h.Closes[ticker]
	return ok
}

// Column returns the close series for ticker, or nil.
func (h *PriceHistory) Column(ticker string) []float64 {
	if h == nil {
		return nil
	}
	return h.Closes[ticker]
}

// LastDate returns the date of the final row.
func (h *PriceHistory) LastDate() time.Time {
	if h.Len() == 0 {
		return time.Time{}
	}
	return h.Dates[len(h.Dates)-1]
}

// Head returns the first n rows. Slices share storage with h.
func (h *PriceHistory) Head(n int) *PriceHistory {
	if n > h.Len() {
		n = h.Len()
	}
	closes := make(map[string][]float64, len(h.Closes))
	for t, col := range h.Closes {
		closes[t] = col[:n:n]
	}
	return &PriceHistory{Dates: h.Dates[:n:n], Tickers: h.Tickers, Closes: closes}
}

// Until returns the rows dated on or before asOf.
func (h *PriceHistory) Until(asOf time.Time) *PriceHistory {
	n := sort.Search(h.Len(), func(i int) bool { return h.Dates[i].After(asOf) })
	return h.Head(n)
}

// ForwardFill returns a copy where each missing value takes the previous
// value of the same ticker. Leading gaps stay missing.
func (h *PriceHistory) ForwardFill() *PriceHistory {
	closes := make(map[string][]float64, len(h.Closes))
	for t, col := range h.Closes {
		out := make([]float64, len(col))
		last := math.NaN()
		for i, v := range col {
			if !math.IsNaN(v) {
				last = v
			}
			out[i] = last
		}
		closes[t] = out
	}
	return &PriceHistory{Dates: h.Dates, Tickers: h.Tickers, Closes: closes}
}

// DropEmptyTickers removes tickers with no values at all.
func (h *PriceHistory) DropEmptyTickers() *PriceHistory {
	closes := make(map[string][]float64, len(h.Closes))
	tickers := make([]string, 0, len(h.Tickers))
	for _, t := range h.Tickers {
		col := h.Closes[t]
		for _, v := range col {
			if !math.IsNaN(v) {
				closes[t] = col
				tickers = append(tickers, t)
				break
			}
		}
	}
	return &PriceHistory{Dates: h.Dates, Tickers: tickers, Closes: closes}
}

// DropEmptyRows removes rows where every ticker is missing.
func (h *PriceHistory) DropEmptyRows() *PriceHistory {
	keep := make([]int, 0, h.Len())
	for i := range h.Dates {
		for _, t := range h.Tickers {
			if !math.IsNaN(h.Closes[t][i]) {
				keep = append(keep, i)
				break
			}
		}
	}
	if len(keep) == h.Len() {
		return h
	}
	dates := make([]time.Time, len(keep))
	closes := make(map[string][]float64, len(h.Closes))
	for _, t := range h.Tickers {
		closes[t] = make([]float64, len(keep))
	}
	for j, i := range keep {
		dates[j] = h.Dates[i]
		for _, t := range h.Tickers {
			closes[t][j] = h.Closes[t][i]
		}
	}
	return &PriceHistory{Dates: dates, Tickers: h.Tickers, Closes: closes}
}

// Select keeps only the given tickers that are present, in sorted order.
func (h *PriceHistory) Select(tickers []string) *PriceHistory {
	closes := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		if col, ok := h.Closes[t]; ok {
			closes[t] = col
		}
	}
	out := &PriceHistory{Dates: h.Dates, Closes: closes}
	for t := range closes {
		out.Tickers = append(out.Tickers, t)
	}
	sort.Strings(out.Tickers)
	return out
}

// Merge combines two histories over the union of their dates. Tickers
// present in both keep the values from h.
func (h *PriceHistory) Merge(other *PriceHistory) *PriceHistory {
	if other.Empty() {
		return h
	}
	if h.Empty() {
		return other
	}
	series := make(map[string][]Bar, len(h.Tickers)+len(other.Tickers))
	collect := func(src *PriceHistory) {
		for _, t := range src.Tickers {
			if _, seen := series[t]; seen {
				continue
			}
			col := src.Closes[t]
			bars := make([]Bar, 0, len(col))
			for i, v := range col {
				if !math.IsNaN(v) {
					bars = append(bars, Bar{Date: src.Dates[i], Close: v})
				}
			}
			series[t] = bars
		}
	}
	collect(h)
	collect(other)
	return FromSeries(series)
}

// MonthEnds returns the index of the last row in each calendar month.
func (h *PriceHistory) MonthEnds() []int {
	var out []int
	for i := range h.Dates {
		if i == h.Len()-1 {
			out = append(out, i)
			break
		}
		cur, next := h.Dates[i], h.Dates[i+1]
		if cur.Year() != next.Year() || cur.Month() != next.Month() {
			out = append(out, i)
		}
	}
	return out
}

// Valid reports whether v is a usable close.
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
