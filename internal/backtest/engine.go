package backtest

import (
	"context"
	"time"

	"momentum-allocator/internal/data"
	"momentum-allocator/internal/model"
	"momentum-allocator/internal/strategy"
)

const dateLayout = "2006-01-02"

// Config sets the walk-forward window.
type Config struct {
	BacktestMonths int // periods to test; values below 1 mean 1
	LookbackDays   int // minimum daily rows before a month-end may rebalance
}

// Observer receives one call per finished run.
type Observer interface {
	ObserveBacktest(strategyID, result string, d time.Duration)
}

// Engine runs monthly walk-forward backtests against a price provider.
type Engine struct {
	provider data.Provider
	cfg      Config
	now      func() time.Time
	observer Observer
}

type Option func(*Engine)

// WithClock fixes the end of the fetch window.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func New(provider data.Provider, cfg Config, opts ...Option) *Engine {
	e := &Engine{provider: provider, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the window the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Run rebalances spec at each qualifying month-end and holds the weights
// until the next one. Failures are returned as *Error; no partial result is
// ever produced.
func (e *Engine) Run(ctx context.Context, spec strategy.Spec, raw strategy.Params) (*Result, error) {
	began := time.Now()
	res, err := e.run(ctx, spec, raw)
	if e.observer != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		e.observer.ObserveBacktest(spec.ID(), outcome, time.Since(began))
	}
	return res, err
}

func (e *Engine) run(ctx context.Context, spec strategy.Spec, raw strategy.Params) (*Result, error) {
	if raw == nil {
		raw = spec.DefaultParameters()
	}
	params := spec.NormalizeParameters(raw)
	universe := spec.Universe(params)
	if len(universe) == 0 {
		return nil, newError(nil, nil, "Strategy universe is empty")
	}

	months := max(1, e.cfg.BacktestMonths)
	minLookback := max(spec.MinLookbackDays(), e.cfg.LookbackDays)
	// minLookback counts trading rows; scale it to calendar days.
	fetchDays := minLookback*365/252 + (months+2)*31 + 45

	end := e.now().UTC()
	start := end.AddDate(0, 0, -fetchDays)
	prices, failed, err := e.provider.Fetch(ctx, universe, start, end)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, Cancelled(ctxErr, model.CanonicalTickers(failed))
	}
	if prices.Empty() {
		return nil, newError(err, model.CanonicalTickers(failed), "No price data available")
	}

	prices = prices.Until(end).ForwardFill().DropEmptyTickers()
	var available, absent []string
	for _, t := range universe {
		if prices.Has(t) {
			available = append(available, t)
		} else {
			absent = append(absent, t)
		}
	}
	missing := model.CanonicalTickers(append(append([]string{}, failed...), absent...))
	if len(available) == 0 {
		return nil, newError(nil, missing, "No valid tickers available for backtest")
	}
	prices = prices.Select(available).DropEmptyRows()

	monthEnds := prices.MonthEnds()
	if len(monthEnds) < months+2 {
		return nil, newError(nil, missing,
			"Insufficient monthly history: need at least %d monthly points, got %d", months+2, len(monthEnds))
	}

	var eligible []int
	for _, idx := range monthEnds {
		if idx+1 >= minLookback {
			eligible = append(eligible, idx)
		}
	}
	if len(eligible) < months+1 {
		return nil, newError(nil, missing,
			"Insufficient lookback-qualified rebalance points: need %d, got %d. "+
				"Try PERFORMANCE_LOOKBACK_DAYS=252 or reduce PERFORMANCE_BACKTEST_MONTHS.",
			months+1, len(eligible))
	}
	points := eligible[len(eligible)-(months+1):]

	periods := make([]Period, 0, months)
	returns := make([]float64, 0, months)
	for i := 0; i+1 < len(points); i++ {
		if err := ctx.Err(); err != nil {
			return nil, Cancelled(err, missing)
		}
		asOfIdx, nextIdx := points[i], points[i+1]
		asOf := prices.Dates[asOfIdx].Format(dateLayout)

		decision, err := spec.ComputeWeights(prices.Head(asOfIdx+1), params)
		if err != nil {
			return nil, newError(err, missing, "%s failed at %s: %v", spec.ID(), asOf, err)
		}
		var weights model.Weights
		if decision != nil {
			weights = decision.Weights.Clean()
		}
		if len(weights) == 0 {
			return nil, newError(nil, missing, "%s returned empty/invalid weights at %s", spec.ID(), asOf)
		}

		held := model.Weights{}
		for _, t := range weights.Tickers() {
			col := prices.Column(t)
			if col == nil {
				continue
			}
			p0, p1 := col[asOfIdx], col[nextIdx]
			if !model.Valid(p0) || !model.Valid(p1) || p0 <= 0 {
				continue
			}
			held[t] = weights[t]
		}
		if len(held) == 0 {
			return nil, newError(nil, missing, "No valid price path for weighted assets at %s", asOf)
		}
		held = held.Clean()

		ret := 0.0
		for _, t := range held.Tickers() {
			col := prices.Column(t)
			ret += held[t] * (col[nextIdx]/col[asOfIdx] - 1)
		}
		returns = append(returns, ret)
		periods = append(periods, Period{
			AsOf:         asOf,
			NextAsOf:     prices.Dates[nextIdx].Format(dateLayout),
			PeriodReturn: model.Round(ret, 6),
			Weights:      held.Rounded(6),
		})
	}
	if len(periods) == 0 {
		return nil, newError(nil, missing, "No backtest periods were produced")
	}

	dates := make([]string, len(points))
	for i, idx := range points {
		dates[i] = prices.Dates[idx].Format(dateLayout)
	}
	equity := equityCurve(returns)
	for i := range periods {
		periods[i].Equity = model.Round(equity[i+1], 6)
	}

	return &Result{
		Metrics:    computeMetrics(spec, dates, returns, equity, minLookback, missing),
		Parameters: params,
		Periods:    periods,
	}, nil
}
