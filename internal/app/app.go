// Package app builds the allocator's collaborators from a Config. The API
// server and the CLI share it.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"momentum-allocator/internal/backtest"
	"momentum-allocator/internal/cache"
	"momentum-allocator/internal/config"
	"momentum-allocator/internal/data"
	"momentum-allocator/internal/metrics"
	"momentum-allocator/internal/performance"
	"momentum-allocator/internal/plan"
	"momentum-allocator/internal/strategy"
)

// App holds the wired services. Runner is nil when performance tracking
// is disabled.
type App struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Registry *strategy.Registry
	Provider data.Provider
	Planner  *plan.Planner
	Engine   *backtest.Engine
	Runner   *performance.Runner
	Catalog  *data.TickerCatalog

	closers []func()
}

// New connects every backend named in cfg. On error, whatever was already
// opened is closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{
		Config:   cfg,
		Metrics:  metrics.New(),
		Registry: strategy.DefaultRegistry(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	provider, stop := NewProvider(cfg.Data, a.Metrics)
	a.Provider = provider
	a.closers = append(a.closers, stop)

	planCache, err := a.openPlanCache(ctx)
	if err != nil {
		return nil, err
	}
	a.Planner = plan.NewPlanner(a.Registry, provider, plan.WithCache(planCache), plan.WithObserver(a.Metrics))
	a.Engine = backtest.New(provider, backtest.Config{
		BacktestMonths: cfg.Performance.BacktestMonths,
		LookbackDays:   cfg.Performance.LookbackDays,
	}, backtest.WithObserver(a.Metrics))

	if cfg.Performance.Enabled {
		store, err := a.openSnapshotStore(ctx)
		if err != nil {
			return nil, err
		}
		a.Runner = performance.NewRunner(a.Registry, a.Engine, store, cfg.Performance.TTL())
	}

	a.Catalog = data.DefaultCatalog()
	if cfg.Data.CatalogFile != "" {
		catalog, err := data.LoadCatalog(cfg.Data.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		a.Catalog = catalog
	}
	return a, nil
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// NewProvider builds the price provider chain. A configured price file
// replaces the network sources. Otherwise Alpaca (when keyed) is tried
// before Stooq, each behind a breaker and rate limiter.
func NewProvider(cfg config.DataConfig, observer data.Observer) (data.Provider, func()) {
	var sources []data.Source
	if cfg.PriceFile != "" {
		sources = append(sources, data.NewFileSource(cfg.PriceFile))
	} else {
		if cfg.AlpacaAPIKey != "" && cfg.AlpacaAPISecret != "" {
			alpaca := data.NewAlpacaSource(cfg.AlpacaAPIKey, cfg.AlpacaAPISecret, "", cfg.AlpacaFeed)
			sources = append(sources, data.NewGuardedSource(alpaca, data.DefaultGuardConfig()))
		}
		sources = append(sources, data.NewGuardedSource(data.NewStooqClient(cfg.StooqURL), data.DefaultGuardConfig()))
	}

	var provider data.Provider = data.NewFallbackProvider(observer, sources...)
	if ttl := cfg.FetchCacheTTL(); ttl > 0 {
		cached := data.NewCachedProvider(provider, ttl)
		return cached, cached.Stop
	}
	return provider, func() {}
}

func (a *App) openPlanCache(ctx context.Context) (*cache.JSONCache, error) {
	cfg := a.Config.Cache
	if !cfg.Enabled {
		log.Info().Str("component", "app").Msg("plan cache disabled")
		return nil, nil
	}

	var store cache.Store
	switch cfg.Backend {
	case "redis":
		rs, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rs.Close() })
		store = rs
	default:
		store = cache.NewMemoryStore()
	}
	log.Info().Str("component", "app").Str("backend", cfg.Backend).Dur("ttl", cfg.TTL()).Msg("plan cache ready")
	return cache.NewJSONCache("plan", store, cfg.TTL(), a.Metrics), nil
}

func (a *App) openSnapshotStore(ctx context.Context) (performance.Store, error) {
	cfg := a.Config.Performance
	switch cfg.Backend {
	case "postgres":
		pool, err := performance.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		store := performance.NewPostgresStore(pool, cfg.Table)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite":
		store, err := performance.NewSQLiteStore(ctx, cfg.SQLitePath, cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	default:
		return performance.NewMemoryStore(), nil
	}
}
