package model

import (
	"math"
	"sort"
)

// WeightTolerance bounds how far a normalized weight set may drift from 1.
const WeightTolerance = 1e-6

// Weights maps ticker to portfolio fraction.
type Weights map[string]float64

// Clean keeps strictly positive finite entries and rescales them to sum to 1.
// It returns an empty map when nothing positive remains. Sums run in ticker
// order so results do not depend on map iteration.
func (w Weights) Clean() Weights {
	out := Weights{}
	total := 0.0
	for _, t := range w.Tickers() {
		v := w[t]
		if !Valid(v) || v <= 0 {
			continue
		}
		out[t] = v
		total += v
	}
	if total <= 0 {
		return Weights{}
	}
	for t, v := range out {
		out[t] = v / total
	}
	return out
}

func (w Weights) Sum() float64 {
	s := 0.0
	for _, t := range w.Tickers() {
		s += w[t]
	}
	return s
}

// Tickers returns the keys in ascending order.
func (w Weights) Tickers() []string {
	out := make([]string, 0, len(w))
	for t := range w {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Rounded returns a copy with every weight rounded to places decimals.
func (w Weights) Rounded(places int) Weights {
	out := make(Weights, len(w))
	for t, v := range w {
		out[t] = Round(v, places)
	}
	return out
}

// Round rounds half away from zero and never returns negative zero.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(x*p) / p
	if r == 0 {
		return 0
	}
	return r
}
