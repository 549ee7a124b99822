package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"EarnRev/internal/domain/models"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAnalysis(w io.Writer, r *models.AnalysisResult) error {
	s := r.Summary
	fmt.Fprintf(w, "%s: %d events found, %d analyzed, %d with signals\n\n",
		r.Ticker, s.TotalEventsFound, s.EventsAnalyzed, s.EventsWithSignals)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"DATE", "QUARTER", "CALL", "SCORE", "SIGNAL", "DAY0"}
	for _, h := range models.Horizons {
		header = append(header, fmt.Sprintf("%dD", h))
	}
	fmt.Fprintln(tw, strings.Join(append(header, "NOTE"), "\t"))

	for _, ev := range r.Events {
		row := []string{
			ev.Date,
			ev.Quarter,
			string(ev.CallTime),
			fmt.Sprintf("%.2f", ev.Signals.Final.Score),
			ev.Signals.Final.Direction.String(),
			fmtPct(ev.Day0Return),
		}
		for _, fr := range ev.ForwardReturns {
			row = append(row, fmtForward(fr))
		}
		fmt.Fprintln(tw, strings.Join(append(row, ev.Status.ErrorMessage), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nHit rates:")
	for _, hs := range s.HitRates {
		rate := "n/a"
		if hs.HitRate != nil {
			rate = fmt.Sprintf("%.0f%%", *hs.HitRate*100)
		}
		fmt.Fprintf(w, "  %2dd  %s (%d/%d)\n", hs.Horizon, rate, hs.NumHits, hs.NumTrades)
	}
	return nil
}

func printScan(w io.Writer, r *models.ScanReport) error {
	bull, bear := r.Count()
	fmt.Fprintf(w, "scanned %d tickers: %d bullish, %d bearish, %d failed\n\n",
		r.Scanned, bull, bear, len(r.Failures))

	if len(r.Hits) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TICKER\tDATE\tSCORE\tSIGNAL\tDAY0\tWHY")
		for _, h := range r.Hits {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
				h.Ticker, h.Date, h.Score, h.Direction, fmtPct(h.Day0Return), h.Explanation)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, f := range r.Failures {
		fmt.Fprintf(w, "failed %s: %s\n", f.Ticker, f.Error)
	}
	return nil
}

func fmtPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *v*100)
}

// fmtForward marks hits with * and misses with x.
func fmtForward(fr models.ForwardReturn) string {
	s := fmtPct(fr.ReturnPct)
	if fr.Hit != nil {
		if *fr.Hit {
			return s + "*"
		}
		return s + "x"
	}
	return s
}
