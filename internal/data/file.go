package data

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"momentum-allocator/internal/model"
)

// FileSource serves closes from a local JSON or Parquet archive. The file is
// read once on first use.
type FileSource struct {
	path string

	once    sync.Once
	history *model.PriceHistory
	err     error
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

// LoadPrices picks the decoder from the file extension.
func LoadPrices(path string) (*model.PriceHistory, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return LoadParquet(path)
	case ".json":
		return LoadPricesJSON(path)
	default:
		return nil, fmt.Errorf("unsupported price file %q (want .json or .parquet)", path)
	}
}

func (s *FileSource) Fetch(ctx context.Context, tickers []string, start, end time.Time) (*model.PriceHistory, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.once.Do(func() {
		s.history, s.err = LoadPrices(s.path)
	})
	if s.err != nil {
		return nil, nil, s.err
	}

	from, to := model.Day(start), model.Day(end)
	series := map[string][]model.Bar{}
	for t, bars := range toSeries(s.history.Select(tickers)) {
		var kept []model.Bar
		for _, b := range bars {
			if !b.Date.Before(from) && !b.Date.After(to) {
				kept = append(kept, b)
			}
		}
		if len(kept) > 0 {
			series[t] = kept
		}
	}

	var failed []string
	for _, t := range tickers {
		if _, ok := series[t]; !ok {
			failed = append(failed, t)
		}
	}
	return model.FromSeries(series), model.CanonicalTickers(failed), nil
}

var _ Source = (*FileSource)(nil)
