package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TickerList is either a delimited string ("SPY, qqq;IWM") or an ordered
// list of tickers. Both forms canonicalize the same way.
type TickerList struct {
	Delimited string
	Items     []string
	IsList    bool
}

func TickersFromString(s string) TickerList { return TickerList{Delimited: s} }

func TickersFromSlice(items []string) TickerList {
	return TickerList{Items: items, IsList: true}
}

// ParseTickerList accepts a string, []string or []any of strings.
func ParseTickerList(v any) (TickerList, bool) {
	switch x := v.(type) {
	case TickerList:
		return x, true
	case string:
		return TickersFromString(x), true
	case []string:
		return TickersFromSlice(x), true
	case []any:
		items := make([]string, 0, len(x))
		for _, it := range x {
			if it == nil {
				continue
			}
			items = append(items, fmt.Sprint(it))
		}
		return TickersFromSlice(items), true
	}
	return TickerList{}, false
}

// Canonical returns the trimmed, uppercased, deduplicated tickers sorted
// ascending. Blank entries are dropped.
func (l TickerList) Canonical() []string {
	var parts []string
	if l.IsList {
		parts = l.Items
	} else {
		parts = strings.FieldsFunc(l.Delimited, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
		})
	}
	return CanonicalTickers(parts)
}

// CanonicalTickers applies the canonical form to a raw slice.
func CanonicalTickers(parts []string) []string {
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (l *TickerList) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*l = TickersFromString(s)
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("ticker list must be a string or an array of strings")
	}
	*l = TickersFromSlice(items)
	return nil
}

func (l TickerList) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Canonical())
}
