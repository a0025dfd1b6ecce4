package strategy

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"momentum-allocator/internal/model"
)

// intParam reads an integer, accepting numbers and numeric strings ("6",
// "6.0", " 7 "). Fractions truncate toward zero and magnitudes clamp to
// the int32 range. Anything unparsable returns def.
func intParam(raw Params, key string, def int) int {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	var f float64
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float32:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return def
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	f = math.Max(math.MinInt32, math.Min(math.MaxInt32, f))
	return int(math.Trunc(f))
}

// tickerParam reads a ticker list. It returns def when the key is absent,
// of the wrong shape, or canonicalizes to nothing.
func tickerParam(raw Params, key string, def []string) []string {
	v, ok := raw[key]
	if !ok || v == nil {
		return cloneTickers(def)
	}
	list, ok := model.ParseTickerList(v)
	if !ok {
		return cloneTickers(def)
	}
	out := list.Canonical()
	if len(out) == 0 {
		return cloneTickers(def)
	}
	return out
}

func cloneTickers(ts []string) []string {
	out := make([]string, len(ts))
	copy(out, ts)
	return out
}

// Tickers reads a normalized ticker list back out of params.
func (p Params) Tickers(key string) []string {
	if ts, ok := p[key].([]string); ok {
		return ts
	}
	return nil
}

// Int reads a normalized integer back out of params.
func (p Params) Int(key string, def int) int { return intParam(p, key, def) }

// union returns the sorted, deduplicated union of ticker groups.
func union(groups ...[]string) []string {
	var all []string
	for _, g := range groups {
		all = append(all, g...)
	}
	return model.CanonicalTickers(all)
}
