package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"EarnRev/internal/usecase"
	"EarnRev/pkg/util"
)

var scanCmd = &cobra.Command{
	Use:   "scan [TICKER...]",
	Short: "Scan a ticker list for non-neutral reversal calls",
	Long: `Backtest every ticker in the list and print the non-neutral final calls,
strongest first (by distance of the score from 5).

Tickers come from arguments, --tickers or --file. The file holds one or
more tickers per line separated by commas or spaces; # starts a comment.

Examples:
  earnrev scan --tickers AAPL,MSFT,NVDA
  earnrev scan --file sp500.txt --workers 8 --since 2023
  earnrev scan TSLA AMD --max-events 6 --json`,
	RunE: runScan,
}

var (
	scanTickers   string
	scanFile      string
	scanMaxEvents int
	scanWorkers   int
	scanSince     int
	scanJSON      bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanTickers, "tickers", "", "Comma separated ticker list")
	scanCmd.Flags().StringVar(&scanFile, "file", "", "File with tickers")
	scanCmd.Flags().IntVar(&scanMaxEvents, "max-events", 4, "Recent earnings events per ticker (1-20)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 5, "Tickers analyzed concurrently")
	scanCmd.Flags().IntVar(&scanSince, "since", 0, "Only report events dated in or after this year")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the report as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	tickers, err := collectTickers(args, scanTickers, scanFile)
	if err != nil {
		return err
	}
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers: pass arguments, --tickers or --file")
	}

	rt, cleanup, err := loadRuntime()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	report := rt.Scanner.Scan(ctx, usecase.ScanParams{
		Tickers:   tickers,
		MaxEvents: scanMaxEvents,
		Workers:   scanWorkers,
		SinceYear: scanSince,
	})

	out := cmd.OutOrStdout()
	if scanJSON {
		return writeJSON(out, report)
	}
	return printScan(out, report)
}

// collectTickers merges positional args, the --tickers list and the file.
// Order is kept; duplicates are removed later by the scanner.
func collectTickers(args []string, list, file string) ([]string, error) {
	out := append([]string{}, args...)
	out = append(out, util.SplitList(list)...)
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open ticker file: %w", err)
		}
		defer f.Close()
		fromFile, err := readTickers(f)
		if err != nil {
			return nil, fmt.Errorf("read ticker file: %w", err)
		}
		out = append(out, fromFile...)
	}
	return out, nil
}

func readTickers(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		out = append(out, util.SplitList(line)...)
	}
	return out, sc.Err()
}
