package data

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"momentum-allocator/internal/model"
)

// PriceFile is the on-disk JSON layout of a price archive.
type PriceFile struct {
	Generated time.Time              `json:"generated"`
	Series    map[string][]model.Bar `json:"series"`
}

func LoadPricesJSON(path string) (*model.PriceHistory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f PriceFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return model.FromSeries(f.Series), nil
}

func SavePricesJSON(path string, h *model.PriceHistory, generated time.Time) error {
	raw, err := json.MarshalIndent(PriceFile{Generated: generated.UTC(), Series: toSeries(h)}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// toSeries splits a history into per-ticker bars, skipping NaN cells.
func toSeries(h *model.PriceHistory) map[string][]model.Bar {
	out := map[string][]model.Bar{}
	if h == nil {
		return out
	}
	for _, t := range h.Tickers {
		col := h.Closes[t]
		var bars []model.Bar
		for i, v := range col {
			if model.Valid(v) {
				bars = append(bars, model.Bar{Date: h.Dates[i], Close: v})
			}
		}
		if len(bars) > 0 {
			out[t] = bars
		}
	}
	return out
}
