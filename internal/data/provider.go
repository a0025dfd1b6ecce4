package data

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"momentum-allocator/internal/model"
)

// Provider fetches daily closes for a ticker set over [start, end].
// failed lists tickers that no source could resolve. The returned history
// may omit any ticker in failed.
type Provider interface {
	Fetch(ctx context.Context, tickers []string, start, end time.Time) (history *model.PriceHistory, failed []string, err error)
}

// Source is one upstream of daily closes.
type Source interface {
	Provider
	Name() string
}

// Observer receives per-source fetch outcomes. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveFetch(source, result string, d time.Duration)
}

// FallbackProvider asks each source in order, passing only the tickers the
// earlier sources could not resolve.
type FallbackProvider struct {
	sources  []Source
	observer Observer
}

func NewFallbackProvider(observer Observer, sources ...Source) *FallbackProvider {
	return &FallbackProvider{sources: sources, observer: observer}
}

func (p *FallbackProvider) Fetch(ctx context.Context, tickers []string, start, end time.Time) (*model.PriceHistory, []string, error) {
	if len(p.sources) == 0 {
		return nil, nil, fmt.Errorf("no price sources configured")
	}
	pending := model.CanonicalTickers(tickers)
	var merged *model.PriceHistory
	var lastErr error

	for _, src := range p.sources {
		if len(pending) == 0 {
			break
		}
		began := time.Now()
		h, _, err := src.Fetch(ctx, pending, start, end)
		if err != nil {
			p.observe(src.Name(), "error", time.Since(began))
			log.Warn().Str("component", "provider").Str("source", src.Name()).
				Strs("tickers", pending).Err(err).Msg("source failed")
			lastErr = err
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			continue
		}
		p.observe(src.Name(), "ok", time.Since(began))
		if h != nil {
			h = h.Select(pending).DropEmptyTickers()
			if merged == nil {
				merged = h
			} else {
				merged = merged.Merge(h)
			}
		}
		pending = unresolved(pending, merged)
		log.Debug().Str("component", "provider").Str("source", src.Name()).
			Int("remaining", len(pending)).Msg("source done")
	}

	if merged == nil || merged.Empty() {
		if lastErr != nil {
			return &model.PriceHistory{}, pending, fmt.Errorf("all price sources failed: %w", lastErr)
		}
		return &model.PriceHistory{}, pending, nil
	}
	return merged, pending, nil
}

func (p *FallbackProvider) observe(source, result string, d time.Duration) {
	if p.observer != nil {
		p.observer.ObserveFetch(source, result, d)
	}
}

func unresolved(tickers []string, h *model.PriceHistory) []string {
	out := []string{}
	for _, t := range tickers {
		if !h.Has(t) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
