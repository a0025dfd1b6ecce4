package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"momentum-allocator/internal/model"
)

const defaultStooqBaseURL = "https://stooq.com"

// StooqClient downloads daily closes as CSV, one request per ticker.
type StooqClient struct {
	BaseURL     string
	Client      *http.Client
	Concurrency int
	MaxAttempts int
	RetryDelay  time.Duration
}

// NewStooqClient creates a Stooq client.
// If baseURL is empty, defaults to "https://stooq.com".
func NewStooqClient(baseURL string) *StooqClient {
	if baseURL == "" {
		baseURL = defaultStooqBaseURL
	}
	return &StooqClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		Concurrency: 4,
		MaxAttempts: 3,
		RetryDelay:  500 * time.Millisecond,
	}
}

// SourceError is a non-success answer from an upstream price source.
type SourceError struct {
	Source     string
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // For rate limit errors
}

func (e *SourceError) Error() string {
	return e.Message
}

// Retryable reports whether a later attempt might succeed.
func (e *SourceError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// errNoData marks a symbol the source does not know.
var errNoData = errors.New("no data")

func (c *StooqClient) Name() string { return "stooq" }

// StooqSymbol maps a ticker to its Stooq symbol. US listings take a ".US"
// suffix unless the ticker already names an exchange.
func StooqSymbol(ticker string) string {
	if strings.Contains(ticker, ".") {
		return strings.ToLower(ticker)
	}
	return strings.ToLower(ticker) + ".us"
}

// Fetch downloads each ticker independently. A ticker that errors or has no
// rows is reported in failed; only context cancellation fails the call.
func (c *StooqClient) Fetch(ctx context.Context, tickers []string, start, end time.Time) (*model.PriceHistory, []string, error) {
	var (
		mu     sync.Mutex
		series = make(map[string][]model.Bar, len(tickers))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.Concurrency))
	for _, t := range tickers {
		ticker := t
		g.Go(func() error {
			var bars []model.Bar
			err := Retry(gctx, max(1, c.MaxAttempts), c.RetryDelay, func() error {
				var ferr error
				bars, ferr = c.fetchOne(gctx, ticker, start, end)
				var serr *SourceError
				if errors.As(ferr, &serr) && !serr.Retryable() {
					return permanent(ferr)
				}
				if errors.Is(ferr, errNoData) {
					return permanent(ferr)
				}
				return ferr
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Debug().Str("component", "stooq").Str("ticker", ticker).Err(err).Msg("ticker unavailable")
				return nil
			}
			mu.Lock()
			series[ticker] = bars
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var failed []string
	for _, t := range tickers {
		if len(series[t]) == 0 {
			failed = append(failed, t)
			delete(series, t)
		}
	}
	return model.FromSeries(series), model.CanonicalTickers(failed), nil
}

func (c *StooqClient) fetchOne(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error) {
	u, err := url.Parse(c.BaseURL + "/q/d/l/")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("s", StooqSymbol(ticker))
	q.Set("d1", start.UTC().Format("20060102"))
	q.Set("d2", end.UTC().Format("20060102"))
	q.Set("i", "d")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	began := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().Str("component", "stooq").Str("ticker", ticker).
		Int("status", resp.StatusCode).Dur("duration", time.Since(began)).Msg("response")

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errNoData
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return nil, &SourceError{
			Source:     c.Name(),
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &SourceError{
			Source:     c.Name(),
			StatusCode: resp.StatusCode,
			Code:       "UNAUTHORIZED",
			Message:    "Unauthorized by price source",
		}
	default:
		return nil, &SourceError{
			Source:     c.Name(),
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	return parseStooqCSV(resp.Body)
}

// parseStooqCSV reads Date and Close columns. Stooq answers unknown symbols
// with a 200 and a "No data" body.
func parseStooqCSV(r io.Reader) ([]model.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errNoData
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	dateCol, closeCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateCol = i
		case "close":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, errNoData
	}

	var bars []model.Bar
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) <= dateCol || len(rec) <= closeCol {
			continue
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(rec[dateCol]))
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil || !model.Valid(v) {
			continue
		}
		bars = append(bars, model.Bar{Date: d, Close: v})
	}
	if len(bars) == 0 {
		return nil, errNoData
	}
	return bars, nil
}

var _ Source = (*StooqClient)(nil)
