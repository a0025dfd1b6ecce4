package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"momentum-allocator/internal/backtest"
	"momentum-allocator/internal/strategy"
)

// Backtester runs one walk-forward backtest. *backtest.Engine satisfies it.
type Backtester interface {
	Run(ctx context.Context, spec strategy.Spec, raw strategy.Params) (*backtest.Result, error)
}

// Outcome is the per-strategy result of a refresh.
type Outcome struct {
	StrategyID string            `json:"strategy_id"`
	OK         bool              `json:"ok"`
	Error      string            `json:"error,omitempty"`
	Metrics    *backtest.Metrics `json:"metrics,omitempty"`
}

// Report summarizes a full refresh.
type Report struct {
	OK      bool      `json:"ok"`
	Total   int       `json:"total"`
	Updated int       `json:"updated"`
	Results []Outcome `json:"results"`
}

// Runner backtests the registry's performance strategies with default
// parameters and stores the snapshots.
type Runner struct {
	registry *strategy.Registry
	engine   Backtester
	store    Store
	ttl      time.Duration
	now      func() time.Time
}

func NewRunner(registry *strategy.Registry, engine Backtester, store Store, ttl time.Duration) *Runner {
	return &Runner{registry: registry, engine: engine, store: store, ttl: ttl, now: time.Now}
}

func (r *Runner) tracked(id string) bool {
	for _, p := range r.registry.PerformanceIDs() {
		if p == id {
			return true
		}
	}
	return false
}

// ComputeAndStore refreshes one strategy. Failures are reported in the
// outcome, never returned.
func (r *Runner) ComputeAndStore(ctx context.Context, strategyID string) Outcome {
	out := Outcome{StrategyID: strategyID}
	spec, err := r.registry.Get(strategyID)
	if err != nil || !r.tracked(strategyID) {
		out.Error = fmt.Sprintf("No performance spec registered for strategy '%s'", strategyID)
		return out
	}

	began := time.Now()
	res, err := r.engine.Run(ctx, spec, spec.DefaultParameters())
	if err != nil {
		log.Warn().Str("component", "performance").Str("strategy", strategyID).Err(err).Msg("backtest failed")
		out.Error = err.Error()
		return out
	}

	now := r.now().UTC()
	snap := &Snapshot{
		StrategyID:         strategyID,
		StrategyName:       spec.Name(),
		StrategyVersion:    spec.Version(),
		RebalanceFrequency: spec.RebalanceFrequency(),
		Parameters:         res.Parameters,
		Metrics:            res.Metrics,
		UpdatedAt:          now,
		ExpiresAt:          now.Add(r.ttl),
	}
	if err := r.store.Put(ctx, Key(strategyID), snap); err != nil {
		log.Error().Str("component", "performance").Str("strategy", strategyID).Err(err).Msg("persist failed")
		out.Error = fmt.Sprintf("Failed to persist performance metrics: %v", err)
		return out
	}

	log.Info().Str("component", "performance").Str("strategy", strategyID).
		Int("months", res.Metrics.MonthsTested).Dur("duration", time.Since(began)).Msg("snapshot stored")
	out.OK = true
	out.Metrics = &snap.Metrics
	return out
}

// RefreshAll runs ComputeAndStore for every performance strategy in ID
// order. progress, when set, is called after each one.
func (r *Runner) RefreshAll(ctx context.Context, progress func(Outcome)) Report {
	ids := r.registry.PerformanceIDs()
	rep := Report{Total: len(ids), Results: make([]Outcome, 0, len(ids))}
	for _, id := range ids {
		o := r.ComputeAndStore(ctx, id)
		if o.OK {
			rep.Updated++
		}
		rep.Results = append(rep.Results, o)
		if progress != nil {
			progress(o)
		}
	}
	rep.OK = rep.Updated == rep.Total
	return rep
}

// Get reads the stored snapshot of one strategy.
func (r *Runner) Get(ctx context.Context, strategyID string) (*Snapshot, error) {
	return r.store.Get(ctx, Key(strategyID))
}

// List returns every stored snapshot.
func (r *Runner) List(ctx context.Context) ([]*Snapshot, error) {
	return r.store.List(ctx)
}
