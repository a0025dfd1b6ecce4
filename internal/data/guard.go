package data

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"momentum-allocator/internal/model"
)

// GuardConfig tunes the breaker and limiter around a network source.
type GuardConfig struct {
	FailureThreshold uint32        // consecutive failures that open the breaker
	OpenTimeout      time.Duration // how long the breaker stays open
	RequestsPerSec   float64       // 0 disables rate limiting
	Burst            int
}

// DefaultGuardConfig returns the settings used for Stooq and Alpaca.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		FailureThreshold: 3,
		OpenTimeout:      60 * time.Second,
		RequestsPerSec:   2,
		Burst:            2,
	}
}

type fetchResult struct {
	history *model.PriceHistory
	failed  []string
}

// GuardedSource wraps a Source with a circuit breaker and a rate limiter.
// An open breaker fails fast so the fallback chain moves to the next source.
type GuardedSource struct {
	inner   Source
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewGuardedSource(inner Source, cfg GuardConfig) *GuardedSource {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}
	st := gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
	g := &GuardedSource{inner: inner, breaker: gobreaker.NewCircuitBreaker(st)}
	if cfg.RequestsPerSec > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), max(1, cfg.Burst))
	}
	return g
}

func (g *GuardedSource) Name() string { return g.inner.Name() }

// State reports the breaker state, e.g. "closed" or "open".
func (g *GuardedSource) State() string { return g.breaker.State().String() }

func (g *GuardedSource) Fetch(ctx context.Context, tickers []string, start, end time.Time) (*model.PriceHistory, []string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		h, failed, err := g.inner.Fetch(ctx, tickers, start, end)
		if err != nil {
			return nil, err
		}
		return fetchResult{history: h, failed: failed}, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", g.inner.Name(), err)
	}
	res := out.(fetchResult)
	return res.history, res.failed, nil
}

var _ Source = (*GuardedSource)(nil)
