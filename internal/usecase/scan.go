package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"EarnRev/internal/domain/models"
	"EarnRev/pkg/logger"
)

// Analyzer runs one ticker backtest.
type Analyzer interface {
	Analyze(ctx context.Context, p AnalyzeParams) (*models.AnalysisResult, error)
}

var _ Analyzer = (*AnalyzeUseCase)(nil)

// ScanUseCase backtests a ticker list with a fixed worker pool and keeps the
// non-neutral calls.
type ScanUseCase struct {
	analyzer  Analyzer
	processor *ResultProcessor
	log       *logger.Logger
}

func NewScanUseCase(analyzer Analyzer, processor *ResultProcessor, log *logger.Logger) *ScanUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ScanUseCase{analyzer: analyzer, processor: processor, log: log}
}

type ScanParams struct {
	Tickers   []string
	MaxEvents int
	Workers   int
	// SinceYear drops events dated before Jan 1 of that year; 0 keeps all.
	SinceYear int
}

// Scan never fails as a whole; per-ticker errors land in the report.
func (s *ScanUseCase) Scan(ctx context.Context, p ScanParams) *models.ScanReport {
	tickers := dedupeTickers(p.Tickers)
	workers := p.Workers
	if workers <= 0 {
		workers = 5
	}
	workers = min(workers, max(len(tickers), 1))

	type item struct {
		ticker string
		res    *models.AnalysisResult
		err    error
	}
	jobs := make(chan string)
	ch := make(chan item, len(tickers))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				res, err := s.analyzer.Analyze(ctx, AnalyzeParams{Ticker: t, MaxEvents: p.MaxEvents})
				ch <- item{t, res, err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, t := range tickers {
			select {
			case jobs <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() { wg.Wait(); close(ch) }()

	report := &models.ScanReport{Hits: []models.ScanHit{}}
	var done []*models.AnalysisResult
	for it := range ch {
		report.Scanned++
		if it.err != nil {
			s.log.Warn("scan: ticker skipped", logger.String("ticker", it.ticker), logger.Error(it.err))
			report.Failures = append(report.Failures, models.ScanFailure{Ticker: it.ticker, Error: it.err.Error()})
			continue
		}
		done = append(done, it.res)
		report.Hits = append(report.Hits, Hits(it.res, p.SinceYear)...)
	}

	if s.processor != nil && len(done) > 0 {
		if err := s.processor.ProcessBatch(ctx, done); err != nil {
			s.log.Error("scan: routing results failed", logger.Error(err))
		}
	}

	sortHits(report.Hits)
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].Ticker < report.Failures[j].Ticker })
	s.log.Info("scan complete",
		logger.Int("scanned", report.Scanned),
		logger.Int("hits", len(report.Hits)),
		logger.Int("failures", len(report.Failures)),
	)
	return report
}

// Hits returns the non-neutral final calls of r dated in or after sinceYear.
func Hits(r *models.AnalysisResult, sinceYear int) []models.ScanHit {
	if r == nil {
		return nil
	}
	var out []models.ScanHit
	for _, ev := range r.Events {
		if ev.Signals.Final.Direction == models.Neutral {
			continue
		}
		if sinceYear > 0 && eventYear(ev.Date) < sinceYear {
			continue
		}
		out = append(out, models.ScanHit{
			Ticker:      ev.Ticker,
			Date:        ev.Date,
			Score:       ev.Signals.Final.Score,
			Direction:   strings.ToUpper(ev.Signals.Final.Direction.String()),
			Day0Return:  ev.Day0Return,
			Explanation: ev.Signals.Final.Explanation,
			Summary:     ev.Features.Summary,
		})
	}
	return out
}

func sortHits(hits []models.ScanHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Strength() != b.Strength() {
			return a.Strength() > b.Strength()
		}
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		return a.Date < b.Date
	})
}

func eventYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

func dedupeTickers(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
