package data

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"momentum-allocator/internal/model"
)

// SyntheticHistory generates weekday closes for tickers over the days
// calendar days ending at end. Each ticker follows a seeded random walk
// with its own drift, so equal inputs give equal tables.
func SyntheticHistory(tickers []string, end time.Time, days int, seed int64) *model.PriceHistory {
	last := model.Day(end)
	first := last.AddDate(0, 0, -days)

	series := make(map[string][]model.Bar, len(tickers))
	for _, t := range model.CanonicalTickers(tickers) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(t))
		rng := rand.New(rand.NewSource(seed ^ int64(h.Sum64())))

		drift := (rng.Float64() - 0.4) * 0.001
		vol := 0.004 + rng.Float64()*0.012
		price := 50 + rng.Float64()*150

		var bars []model.Bar
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			price *= math.Exp(drift + vol*rng.NormFloat64())
			bars = append(bars, model.Bar{Date: d, Close: model.Round(price, 4)})
		}
		series[t] = bars
	}
	return model.FromSeries(series)
}
