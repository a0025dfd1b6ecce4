package plan

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"momentum-allocator/internal/cache"
	"momentum-allocator/internal/data"
	"momentum-allocator/internal/model"
	"momentum-allocator/internal/strategy"
)

// Plan is the amount-independent output of one strategy run.
type Plan struct {
	Date              string         `json:"date"`
	StrategyID        string         `json:"strategy_id"`
	AllocationWeights model.Weights  `json:"allocation_weights"`
	Details           map[string]any `json:"details,omitempty"`
	MissingTickers    []string       `json:"missing_tickers"`
}

// Observer counts plan requests. *metrics.Metrics satisfies it.
type Observer interface {
	ObservePlan(strategyID, result string)
}

// Planner computes today's plan for a registered strategy.
type Planner struct {
	registry *strategy.Registry
	provider data.Provider
	cache    *cache.JSONCache
	observer Observer
	now      func() time.Time
}

type Option func(*Planner)

// WithCache memoizes plans per UTC day and parameter set.
func WithCache(c *cache.JSONCache) Option { return func(p *Planner) { p.cache = c } }

func WithObserver(o Observer) Option { return func(p *Planner) { p.observer = o } }

func WithClock(now func() time.Time) Option { return func(p *Planner) { p.now = now } }

func NewPlanner(registry *strategy.Registry, provider data.Provider, opts ...Option) *Planner {
	p := &Planner{registry: registry, provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the strategies this planner serves.
func (p *Planner) Registry() *strategy.Registry { return p.registry }

// fetchDays converts a trading-row lookback into a calendar window.
func fetchDays(lookbackRows int) int {
	return lookbackRows*365/252 + 45
}

// Plan runs the strategy on fresh prices.
func (p *Planner) Plan(ctx context.Context, strategyID string, raw strategy.Params) (*Plan, error) {
	spec, err := p.registry.Get(strategyID)
	if err != nil {
		return nil, err
	}
	res, err := p.compute(ctx, spec, normalize(spec, raw))
	p.observe(strategyID, err, false)
	return res, err
}

// PlanCached serves from the cache when possible and stores fresh plans.
// cached reports whether the plan came from the cache.
func (p *Planner) PlanCached(ctx context.Context, strategyID string, raw strategy.Params) (res *Plan, cached bool, err error) {
	spec, err := p.registry.Get(strategyID)
	if err != nil {
		return nil, false, err
	}
	params := normalize(spec, raw)

	key, kerr := cache.Key(p.now(), strategyID, params)
	if kerr != nil {
		log.Warn().Str("component", "planner").Str("strategy", strategyID).Err(kerr).Msg("cache key")
	}
	if kerr == nil {
		var hit Plan
		if p.cache.Load(ctx, key, &hit) && len(hit.AllocationWeights) > 0 {
			p.observe(strategyID, nil, true)
			return &hit, true, nil
		}
	}

	res, err = p.compute(ctx, spec, params)
	p.observe(strategyID, err, false)
	if err != nil {
		return nil, false, err
	}
	if kerr == nil {
		p.cache.Save(ctx, key, res)
	}
	return res, false, nil
}

func normalize(spec strategy.Spec, raw strategy.Params) strategy.Params {
	if raw == nil {
		raw = spec.DefaultParameters()
	}
	return spec.NormalizeParameters(raw)
}

func (p *Planner) compute(ctx context.Context, spec strategy.Spec, params strategy.Params) (*Plan, error) {
	now := p.now().UTC()
	universe := spec.Universe(params)

	history := &model.PriceHistory{}
	missing := []string{}
	if lookback := spec.MinLookbackDays(); lookback > 0 {
		if len(universe) == 0 {
			return nil, &strategy.Error{Message: "Strategy universe is empty", MissingTickers: []string{}}
		}
		h, failed, err := p.provider.Fetch(ctx, universe, now.AddDate(0, 0, -fetchDays(lookback)), now)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if h.Empty() {
			if err != nil {
				log.Warn().Str("component", "planner").Str("strategy", spec.ID()).Err(err).Msg("fetch failed")
			}
			return nil, &strategy.Error{Message: "No price data available", MissingTickers: model.CanonicalTickers(failed)}
		}
		history = h.Until(now).ForwardFill().DropEmptyTickers()
		absent := append([]string{}, failed...)
		for _, t := range universe {
			if !history.Has(t) {
				absent = append(absent, t)
			}
		}
		missing = model.CanonicalTickers(absent)
	}

	decision, err := spec.ComputeWeights(history, params)
	if err != nil {
		return nil, err
	}

	date := now
	if !history.Empty() {
		date = history.LastDate()
	}
	return &Plan{
		Date:              date.Format("2006-01-02"),
		StrategyID:        spec.ID(),
		AllocationWeights: decision.Weights,
		Details:           decision.Details,
		MissingTickers:    missing,
	}, nil
}

func (p *Planner) observe(strategyID string, err error, cached bool) {
	if p.observer == nil {
		return
	}
	switch {
	case err != nil:
		p.observer.ObservePlan(strategyID, "error")
	case cached:
		p.observer.ObservePlan(strategyID, "cached")
	default:
		p.observer.ObservePlan(strategyID, "computed")
	}
}
