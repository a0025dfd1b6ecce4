package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"momentum-allocator/internal/analysis"
	"momentum-allocator/internal/app"
	"momentum-allocator/internal/backtest"
	"momentum-allocator/internal/config"
	"momentum-allocator/internal/data"
	"momentum-allocator/internal/model"
	"momentum-allocator/internal/performance"
	"momentum-allocator/internal/plan"
	"momentum-allocator/internal/strategy"
)

func newStrategiesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List registered strategies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := strategy.DefaultRegistry()
			info := registry.Describe()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-16s %-40s %s\n", "id", "name", "parameters")
			for _, id := range registry.IDs() {
				names := make([]string, 0, len(info[id].Parameters))
				for _, p := range info[id].Parameters {
					names = append(names, p.Name)
				}
				fmt.Fprintf(out, "%-16s %-40s %s\n", id, info[id].Name, strings.Join(names, ","))
			}
			return nil
		},
	}
}

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var (
		strategyID string
		params     []string
		total      float64
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute today's allocation plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := parseParams(params)
			if err != nil {
				return err
			}
			a, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			spec, err := a.Registry.Get(strategyID)
			if err != nil {
				return err
			}
			p, err := a.Planner.Plan(cmd.Context(), strategyID, raw)
			if err != nil {
				return err
			}
			if total <= 0 {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			alloc, err := plan.Scale(p, total, spec.Name())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), alloc)
		},
	}
	cmd.Flags().StringVar(&strategyID, "strategy", "paa", "Strategy ID")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Strategy parameter as key=value (repeatable)")
	cmd.Flags().Float64Var(&total, "total", 0, "Amount to allocate; 0 prints weights only")
	return cmd
}

func newBacktestCmd(opts *rootOptions) *cobra.Command {
	var (
		strategyID string
		params     []string
		months     int
		csvPath    string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a walk-forward monthly backtest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := parseParams(params)
			if err != nil {
				return err
			}
			a, err := opts.open(cmd.Context(), func(c *config.Config) {
				if months > 0 {
					c.Performance.BacktestMonths = months
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			spec, err := a.Registry.Get(strategyID)
			if err != nil {
				return err
			}
			res, err := a.Engine.Run(cmd.Context(), spec, raw)
			if err != nil {
				var bErr *backtest.Error
				if errors.As(err, &bErr) && len(bErr.MissingTickers) > 0 {
					return fmt.Errorf("%w (missing: %s)", err, strings.Join(bErr.MissingTickers, ","))
				}
				return err
			}

			if csvPath != "" {
				if err := os.MkdirAll(filepath.Dir(csvPath), 0o755); err != nil {
					return err
				}
				if err := backtest.WritePeriodsCSV(csvPath, res.Periods); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d periods to %s\n", len(res.Periods), csvPath)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printMetrics(cmd.OutOrStdout(), spec, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategyID, "strategy", "paa", "Strategy ID")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Strategy parameter as key=value (repeatable)")
	cmd.Flags().IntVar(&months, "months", 0, "Backtest length in months (default from config)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Optional path to write the period ledger CSV")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Recompute stored performance snapshots for every tracked strategy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context(), func(c *config.Config) { c.Performance.Enabled = true })
			if err != nil {
				return err
			}
			defer a.Close()

			bar := progressbar.NewOptions(len(a.Registry.PerformanceIDs()),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("Refreshing performance..."),
				progressbar.OptionSetElapsedTime(true),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			rep := a.Runner.RefreshAll(cmd.Context(), func(o performance.Outcome) {
				bar.Describe(o.StrategyID)
				_ = bar.Add(1)
			})
			_ = bar.Finish()

			out := cmd.OutOrStdout()
			for _, o := range rep.Results {
				if o.OK {
					fmt.Fprintf(out, "%-16s ok    cagr=%.4f months=%d\n", o.StrategyID, o.Metrics.CAGRAnnualized, o.Metrics.MonthsTested)
				} else {
					fmt.Fprintf(out, "%-16s FAIL  %s\n", o.StrategyID, o.Error)
				}
			}
			fmt.Fprintf(out, "updated %d/%d\n", rep.Updated, rep.Total)
			if !rep.OK {
				return fmt.Errorf("refresh incomplete: %d of %d strategies failed", rep.Total-rep.Updated, rep.Total)
			}
			return nil
		},
	}
}

func newRankCmd(opts *rootOptions) *cobra.Command {
	var metric string
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank stored performance snapshots by a metric",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context(), func(c *config.Config) { c.Performance.Enabled = true })
			if err != nil {
				return err
			}
			defer a.Close()

			snaps, err := a.Runner.List(cmd.Context())
			if err != nil {
				return err
			}
			ranked, err := analysis.RankByMetric(snaps, metric)
			if err != nil {
				return fmt.Errorf("%w (choose from %s)", err, strings.Join(analysis.Metrics(), ", "))
			}
			printRanking(cmd.OutOrStdout(), ranked)
			return nil
		},
	}
	cmd.Flags().StringVar(&metric, "sort", analysis.DefaultMetric, "Metric to rank by")
	return cmd
}

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	var (
		tickers string
		days    int
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Download daily closes and save them as .parquet or .json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := model.CanonicalTickers(strings.Split(tickers, ","))
			if len(list) == 0 {
				return errors.New("--tickers is required")
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			provider, stop := app.NewProvider(cfg.Data, nil)
			defer stop()

			end := time.Now().UTC()
			h, failed, err := provider.Fetch(cmd.Context(), list, end.AddDate(0, 0, -days), end)
			if h.Empty() {
				if err != nil {
					return err
				}
				return fmt.Errorf("no price data for %s", strings.Join(list, ","))
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			switch strings.ToLower(filepath.Ext(outPath)) {
			case ".parquet":
				err = data.ArchiveParquet(outPath, h)
			case ".json":
				err = data.SavePricesJSON(outPath, h, end)
			default:
				err = fmt.Errorf("unsupported output %q (want .json or .parquet)", outPath)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows x %d tickers to %s\n", h.Len(), len(list)-len(failed), outPath)
			if len(failed) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "missing: %s\n", strings.Join(failed, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tickers, "tickers", "", "Comma-separated tickers")
	cmd.Flags().IntVar(&days, "days", 800, "Calendar days of history ending today")
	cmd.Flags().StringVar(&outPath, "out", "prices.parquet", "Output path (.parquet or .json)")
	return cmd
}

// parseParams turns key=value pairs into raw strategy parameters. Values
// stay strings; the strategies parse numbers and ticker lists themselves.
func parseParams(pairs []string) (strategy.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := strategy.Params{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q (want key=value)", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMetrics(w io.Writer, spec strategy.Spec, res *backtest.Result) {
	m := res.Metrics
	fmt.Fprintf(w, "%s  %s .. %s  (%d months)\n", spec.Name(), m.WindowStart, m.AsOf, m.MonthsTested)
	fmt.Fprintf(w, "  cumulative  %8.2f%%\n", 100*m.CumulativeReturnPeriod)
	fmt.Fprintf(w, "  cagr        %8.2f%%\n", 100*m.CAGRAnnualized)
	fmt.Fprintf(w, "  max dd      %8.2f%%\n", 100*m.MaxDrawdownPeriod)
	fmt.Fprintf(w, "  volatility  %8.2f%%\n", 100*m.VolatilityAnnualized)
	fmt.Fprintf(w, "  win rate    %8.2f%%\n", 100*m.WinRateMonthly)
	if len(m.MissingTickers) > 0 {
		fmt.Fprintf(w, "  missing     %s\n", strings.Join(m.MissingTickers, ","))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-12s %-12s %9s  %s\n", "as_of", "next_as_of", "return", "weights")
	for _, p := range res.Periods {
		tickers := p.Weights.Tickers()
		parts := make([]string, 0, len(tickers))
		for _, t := range tickers {
			parts = append(parts, fmt.Sprintf("%s=%.2f", t, p.Weights[t]))
		}
		fmt.Fprintf(w, "%-12s %-12s %8.2f%%  %s\n", p.AsOf, p.NextAsOf, 100*p.PeriodReturn, strings.Join(parts, " "))
	}
}

func printRanking(w io.Writer, ranked []analysis.Ranked) {
	fmt.Fprintf(w, "%-4s %-16s %-10s %-12s %-8s %-10s %-10s\n", "rank", "strategy", "value", "as_of", "months", "p05", "p95")
	for _, r := range ranked {
		fmt.Fprintf(w, "%-4d %-16s %-10.4f %-12s %-8d %-10.4f %-10.4f\n",
			r.Rank, r.StrategyID, r.Value, r.AsOf, r.Returns.Count, r.Returns.P05, r.Returns.P95)
	}
}
