package main

import (
	"github.com/spf13/cobra"

	"EarnRev/internal/usecase"
	applogger "EarnRev/pkg/logger"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze TICKER",
	Short: "Backtest the most recent earnings events of one ticker",
	Long: `Fetch the most recent earnings events of TICKER, extract transcript
features, score the five reversal rules and report forward returns.

Examples:
  earnrev analyze AAPL
  earnrev analyze msft --max-events 12
  earnrev analyze NVDA --json > nvda.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeMaxEvents int
	analyzeJSON      bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeMaxEvents, "max-events", 8, "Number of recent earnings events (1-20)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the full result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rt, cleanup, err := loadRuntime()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	res, err := rt.Analyzer.Analyze(ctx, usecase.AnalyzeParams{Ticker: args[0], MaxEvents: analyzeMaxEvents})
	if err != nil {
		return err
	}
	if err := rt.Processor.Process(ctx, res); err != nil {
		rt.Log.Warn("routing result failed", applogger.Error(err))
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		return writeJSON(out, res)
	}
	return printAnalysis(out, res)
}
