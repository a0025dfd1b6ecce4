package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"momentum-allocator/internal/backtest"
	"momentum-allocator/internal/data"
	"momentum-allocator/internal/logging"
	"momentum-allocator/internal/plan"
	"momentum-allocator/internal/strategy"
)

// Demo:
// - Build a synthetic price archive and write it as Parquet
// - Serve it through the file source, as an offline run would
// - Print the demo plan scaled to an amount and a protective backtest
func main() {
	months := flag.Int("months", 6, "Backtest length in months")
	total := flag.Float64("total", 10000, "Amount to allocate in the demo plan")
	seed := flag.Int64("seed", 42, "Seed for the synthetic prices")
	archive := flag.String("archive", "", "Optional path to keep the synthetic .parquet archive")
	outCSV := flag.String("out", "", "Optional path to write the period ledger CSV")
	flag.Parse()

	logging.Setup("warn", true)
	ctx := context.Background()
	registry := strategy.DefaultRegistry()

	paa, err := registry.Get("paa")
	if err != nil {
		panic(err)
	}

	path := *archive
	if path == "" {
		dir, err := os.MkdirTemp("", "allocator-demo")
		if err != nil {
			panic(err)
		}
		defer os.RemoveAll(dir)
		path = filepath.Join(dir, "prices.parquet")
	}

	demo, err := registry.Get("simple_momentum")
	if err != nil {
		panic(err)
	}

	now := time.Now().UTC()
	universe := append(paa.Universe(paa.DefaultParameters()), demo.Universe(nil)...)
	history := data.SyntheticHistory(universe, now, 365+(*months+3)*31+60, *seed)
	if err := data.ArchiveParquet(path, history); err != nil {
		panic(err)
	}
	fmt.Printf("Synthetic archive: %d tickers x %d days -> %s\n\n", len(history.Tickers), history.Len(), path)

	provider := data.NewFallbackProvider(nil, data.NewFileSource(path))

	planner := plan.NewPlanner(registry, provider)
	p, err := planner.Plan(ctx, demo.ID(), nil)
	if err != nil {
		panic(err)
	}
	alloc, err := plan.Scale(p, *total, demo.Name())
	if err != nil {
		panic(err)
	}
	fmt.Printf("%s plan for $%.2f (%s)\n", alloc.Strategy, alloc.TotalAmount, alloc.Date)
	for _, t := range alloc.AllocationWeights.Tickers() {
		fmt.Printf("  %-5s %6.2f%%  $%10.2f\n", t, 100*alloc.AllocationWeights[t], alloc.Allocation[t])
	}

	engine := backtest.New(provider, backtest.Config{BacktestMonths: *months, LookbackDays: 0})
	res, err := engine.Run(ctx, paa, nil)
	if err != nil {
		log.Error().Err(err).Msg("backtest failed")
		os.Exit(1)
	}

	m := res.Metrics
	fmt.Printf("\n%s backtest %s .. %s (%d months)\n", paa.Name(), m.WindowStart, m.AsOf, m.MonthsTested)
	for _, period := range res.Periods {
		fmt.Printf("  %s -> %s  ret=%7.2f%%  equity=%.4f  hold=%v\n",
			period.AsOf, period.NextAsOf, 100*period.PeriodReturn, period.Equity, period.Weights.Tickers())
	}

	if *outCSV != "" {
		if err := backtest.WritePeriodsCSV(*outCSV, res.Periods); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	fmt.Printf("\nDone. Cumulative=%.2f%% CAGR=%.2f%% MaxDD=%.2f%% Vol=%.2f%%\n",
		100*m.CumulativeReturnPeriod, 100*m.CAGRAnnualized, 100*m.MaxDrawdownPeriod, 100*m.VolatilityAnnualized)
}
