package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"momentum-allocator/internal/model"
)

// barsClient is the slice of the Alpaca client used here.
type barsClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// AlpacaSource reads split- and dividend-adjusted daily bars in one batch.
type AlpacaSource struct {
	client barsClient
	feed   string
}

// NewAlpacaSource builds a source from API credentials. dataURL and feed
// may be empty to use the client defaults and the IEX feed.
func NewAlpacaSource(apiKey, apiSecret, dataURL, feed string) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if feed == "" {
		feed = "iex"
	}
	return &AlpacaSource{client: marketdata.NewClient(opts), feed: feed}
}

func (s *AlpacaSource) Name() string { return "alpaca" }

func (s *AlpacaSource) Fetch(ctx context.Context, tickers []string, start, end time.Time) (*model.PriceHistory, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	multiBars, err := s.client.GetMultiBars(tickers, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Start:      start,
		End:        end,
		Adjustment: marketdata.All,
		Feed:       s.feed,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	series := make(map[string][]model.Bar, len(multiBars))
	for symbol, bars := range multiBars {
		out := make([]model.Bar, 0, len(bars))
		for _, b := range bars {
			out = append(out, model.Bar{Date: b.Timestamp, Close: b.Close})
		}
		if len(out) > 0 {
			series[strings.ToUpper(symbol)] = out
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

var _ Source = (*AlpacaSource)(nil)
