package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"momentum-allocator/internal/app"
	"momentum-allocator/internal/config"
	"momentum-allocator/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	prices     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "allocator",
		Short:         "Momentum allocation plans and walk-forward backtests",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Setup(opts.logLevel, true)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config (optional)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&opts.prices, "prices", "", "Serve prices from a .json or .parquet archive instead of the network")

	root.AddCommand(
		newStrategiesCmd(opts),
		newPlanCmd(opts),
		newBacktestCmd(opts),
		newRefreshCmd(opts),
		newRankCmd(opts),
		newArchiveCmd(opts),
	)
	return root
}

// loadConfig reads the config file, applies the environment and the
// command-line overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadUnchecked(o.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if o.prices != "" {
		cfg.Data.PriceFile = o.prices
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) open(ctx context.Context, mutate func(*config.Config)) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if mutate != nil {
		mutate(cfg)
	}
	return app.New(ctx, cfg)
}
