package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"EarnRev/internal/di"
	"EarnRev/pkg/config"
)

var configPath string

// rootCmd is the base command for the EarnRev CLI
var rootCmd = &cobra.Command{
	Use:   "earnrev",
	Short: "Earnings call semantic reversal backtester",
	Long: `EarnRev reads earnings call transcripts, scores management tone against
the day-0 price reaction and backtests the resulting calls over 5, 10, 30
and 60 trading days.

Credentials come from the config file or FMP_API_KEY, ANTHROPIC_API_KEY and
DATABASE_URL.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (defaults plus env when empty)")
}

// loadRuntime builds the use cases for one command. Logs go to stderr so
// stdout stays clean for tables and JSON.
func loadRuntime() (*di.Runtime, func(), error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	cfg.Logging.Collector.Enabled = false

	rt, cleanup, err := di.InitializeRuntime(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init: %w", err)
	}
	return rt, cleanup, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
