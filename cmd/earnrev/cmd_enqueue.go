package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"EarnRev/internal/domain/models"
	"EarnRev/internal/usecase"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue TICKER...",
	Short: "Queue ticker analyses for the Redis workers",
	Long: `Publish one analyze_ticker job per ticker to the Redis queue. Requires
redis.enabled and redis.queue.enabled in the config.

Examples:
  earnrev enqueue AAPL MSFT --config config/config.yaml
  earnrev enqueue BRK.B --max-events 12`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnqueue,
}

var enqueueMaxEvents int

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().IntVar(&enqueueMaxEvents, "max-events", 8, "Recent earnings events per ticker (1-20)")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	tickers := make([]string, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, a := range args {
		t, err := models.NormalizeTicker(a)
		if err != nil {
			return err
		}
		if !seen[t] {
			seen[t] = true
			tickers = append(tickers, t)
		}
	}

	rt, cleanup, err := loadRuntime()
	if err != nil {
		return err
	}
	defer cleanup()
	if rt.Queue == nil {
		return fmt.Errorf("queue disabled: enable redis and redis.queue in the config")
	}

	ctx, cancel := signalContext()
	defer cancel()

	for _, t := range tickers {
		payload := models.AnalyzeJobPayload{Ticker: t, MaxEvents: enqueueMaxEvents}
		if err := rt.Queue.PublishMessage(ctx, usecase.AnalyzeJobType, payload); err != nil {
			return fmt.Errorf("enqueue %s: %w", t, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", t)
	}
	return nil
}
