package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"momentum-allocator/internal/model"
)

// PriceRecord is one row of a Parquet price archive.
type PriceRecord struct {
	Ticker string    `parquet:"ticker,dict"`
	Date   time.Time `parquet:"date,timestamp(millisecond)"`
	Close  float64   `parquet:"close"`
}

// ArchiveParquet writes h in long format, ordered by ticker then date.
// NaN cells are not written.
func ArchiveParquet(path string, h *model.PriceHistory) error {
	series := toSeries(h)
	tickers := make([]string, 0, len(series))
	for t := range series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var records []PriceRecord
	for _, t := range tickers {
		for _, b := range series[t] {
			records = append(records, PriceRecord{Ticker: t, Date: b.Date.UTC(), Close: b.Close})
		}
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}

func LoadParquet(path string) (*model.PriceHistory, error) {
	records, err := parquet.ReadFile[PriceRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	series := map[string][]model.Bar{}
	for _, r := range records {
		series[r.Ticker] = append(series[r.Ticker], model.Bar{Date: r.Date, Close: r.Close})
	}
	return model.FromSeries(series), nil
}
