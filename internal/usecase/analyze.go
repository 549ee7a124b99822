package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"EarnRev/internal/domain/models"
	domrepo "EarnRev/internal/domain/repository"
	"EarnRev/internal/domain/service"
	"EarnRev/internal/services/assembler"
	"EarnRev/internal/services/regime"
	"EarnRev/internal/services/returns"
	"EarnRev/internal/services/signals"
	"EarnRev/pkg/logger"
)

const (
	DefaultMaxEvents = 8
	MaxEventsLimit   = 20
)

// AnalyzeUseCase runs the full backtest for one ticker.
type AnalyzeUseCase struct {
	source      domrepo.EventSource
	extractor   service.FeatureExtractor
	cache       domrepo.AnalysisCache
	metrics     domrepo.Metrics
	log         *logger.Logger
	timeout     time.Duration
	concurrency int
	defaultMax  int
}

type AnalyzeOption func(*AnalyzeUseCase)

func WithAnalysisCache(c domrepo.AnalysisCache) AnalyzeOption {
	return func(uc *AnalyzeUseCase) { uc.cache = c }
}

func WithAnalyzeMetrics(m domrepo.Metrics) AnalyzeOption {
	return func(uc *AnalyzeUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

// WithAnalyzeTimeout bounds a whole ticker run; 0 disables the bound.
func WithAnalyzeTimeout(d time.Duration) AnalyzeOption {
	return func(uc *AnalyzeUseCase) { uc.timeout = d }
}

// WithDefaultMaxEvents sets the event count used when a request names none.
func WithDefaultMaxEvents(n int) AnalyzeOption {
	return func(uc *AnalyzeUseCase) {
		if n > 0 {
			uc.defaultMax = min(n, MaxEventsLimit)
		}
	}
}

// WithEventConcurrency caps how many events fetch transcripts and extract at once.
func WithEventConcurrency(n int) AnalyzeOption {
	return func(uc *AnalyzeUseCase) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

func NewAnalyzeUseCase(source domrepo.EventSource, extractor service.FeatureExtractor, log *logger.Logger, opts ...AnalyzeOption) *AnalyzeUseCase {
	if log == nil {
		log = logger.Nop()
	}
	uc := &AnalyzeUseCase{
		source:      source,
		extractor:   extractor,
		metrics:     nopMetrics{},
		log:         log,
		timeout:     5 * time.Minute,
		concurrency: 4,
		defaultMax:  DefaultMaxEvents,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type AnalyzeParams struct {
	Ticker    string
	MaxEvents int
	// NoCache skips both the cache lookup and the write-back.
	NoCache bool
}

// prepared is one event after I/O, before any history-dependent step.
type prepared struct {
	event    models.EarningsEvent
	features models.FeatureBundle
	status   models.EventStatus
	problems []string
}

// Analyze returns the per-event results oldest first plus the summary.
// Only an invalid ticker or an empty event list fails the run; every
// per-event problem is recorded on the event instead.
func (uc *AnalyzeUseCase) Analyze(ctx context.Context, p AnalyzeParams) (*models.AnalysisResult, error) {
	start := time.Now()
	ticker, err := models.NormalizeTicker(p.Ticker)
	if err != nil {
		uc.metrics.RecordAnalysis("invalid_ticker")
		return nil, err
	}
	maxEvents := p.MaxEvents
	if maxEvents <= 0 {
		maxEvents = uc.defaultMax
	}
	maxEvents = min(maxEvents, MaxEventsLimit)

	if uc.cache != nil && !p.NoCache {
		if r, ok := uc.cache.Get(ctx, ticker, maxEvents); ok {
			uc.metrics.RecordAnalysis("cached")
			return r, nil
		}
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	res, err := uc.run(ctx, ticker, maxEvents)
	uc.metrics.RecordLatency("analyze", time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidTicker):
			uc.metrics.RecordAnalysis("invalid_ticker")
		case errors.Is(err, models.ErrNoEventsFound):
			uc.metrics.RecordAnalysis("no_events")
		default:
			uc.metrics.RecordAnalysis("error")
			uc.metrics.RecordError("analyze")
		}
		uc.log.Error("analysis failed", logger.String("ticker", ticker), logger.Error(err))
		return nil, err
	}

	uc.metrics.RecordAnalysis("ok")
	uc.log.Info("analysis complete",
		logger.String("ticker", ticker),
		logger.Int("events", res.Summary.TotalEventsFound),
		logger.Int("analyzed", res.Summary.EventsAnalyzed),
		logger.Int("with_signals", res.Summary.EventsWithSignals),
		logger.Duration("duration_ms", time.Since(start)),
	)
	if uc.cache != nil && !p.NoCache {
		uc.cache.Set(ctx, ticker, maxEvents, res)
	}
	return res, nil
}

func (uc *AnalyzeUseCase) run(ctx context.Context, ticker string, maxEvents int) (*models.AnalysisResult, error) {
	if err := uc.source.ValidateTicker(ctx, ticker); err != nil {
		if errors.Is(err, models.ErrInvalidTicker) {
			return nil, err
		}
		uc.log.Warn("ticker validation unavailable, continuing", logger.String("ticker", ticker), logger.Error(err))
	}

	calendar, bars, lookup, err := uc.discover(ctx, ticker, maxEvents)
	if err != nil {
		return nil, err
	}
	events := assembler.Events(ticker, calendar, lookup, maxEvents)
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoEventsFound, ticker)
	}

	items := uc.prepare(ctx, events, bars)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis of %s interrupted: %w", ticker, err)
	}
	return evaluate(ticker, items, bars), nil
}

// discover fetches the calendar, prices and fiscal dates concurrently.
// Only the calendar is required; the other two degrade to empty.
func (uc *AnalyzeUseCase) discover(ctx context.Context, ticker string, maxEvents int) ([]models.CalendarEntry, []models.PriceBar, assembler.FiscalLookup, error) {
	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		// over-fetch so dedupe and missing dates still leave maxEvents
		v, err := uc.source.EarningsCalendar(ctx, ticker, maxEvents*2+4)
		ch <- item{"calendar", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.source.PriceHistory(ctx, ticker)
		ch <- item{"prices", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.source.TranscriptDates(ctx, ticker)
		ch <- item{"transcript_dates", v, err}
	}()

	go func() { wg.Wait(); close(ch) }()

	var (
		calendar []models.CalendarEntry
		bars     []models.PriceBar
		dates    []models.TranscriptDate
		calErr   error
	)
	for it := range ch {
		if it.err != nil {
			if it.name == "calendar" {
				calErr = it.err
				continue
			}
			uc.metrics.RecordError(it.name)
			uc.log.Warn("event discovery degraded",
				logger.String("ticker", ticker),
				logger.String("source", it.name),
				logger.Error(it.err))
			continue
		}
		switch it.name {
		case "calendar":
			calendar = it.val.([]models.CalendarEntry)
		case "prices":
			bars = it.val.([]models.PriceBar)
		case "transcript_dates":
			dates = it.val.([]models.TranscriptDate)
		}
	}
	if calErr != nil {
		uc.metrics.RecordError("calendar")
		return nil, nil, nil, fmt.Errorf("earnings calendar for %s: %w", ticker, calErr)
	}
	return calendar, returns.SortBars(bars), assembler.NewFiscalLookup(dates), nil
}

// prepare fetches transcripts, locates price reactions and extracts features
// with bounded concurrency. Output order matches events.
func (uc *AnalyzeUseCase) prepare(ctx context.Context, events []models.EarningsEvent, bars []models.PriceBar) []prepared {
	out := make([]prepared, len(events))
	sem := make(chan struct{}, uc.concurrency)
	var wg sync.WaitGroup
	for i := range events {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				out[i] = prepared{
					event:    assembler.WithPrices(events[i], bars),
					features: models.NeutralFeatureBundle(),
					problems: []string{"cancelled: " + ctx.Err().Error()},
				}
				return
			}
			out[i] = uc.prepareOne(ctx, events[i], bars)
		}(i)
	}
	wg.Wait()
	return out
}

func (uc *AnalyzeUseCase) prepareOne(ctx context.Context, e models.EarningsEvent, bars []models.PriceBar) prepared {
	p := prepared{features: models.NeutralFeatureBundle()}
	fields := []logger.Field{
		logger.String("ticker", e.Ticker),
		logger.String("date", e.DateString()),
		logger.String("quarter", e.QuarterLabel()),
	}

	text, err := uc.source.Transcript(ctx, e.Ticker, e.FiscalYear, e.FiscalQuarter)
	switch {
	case err != nil:
		uc.metrics.RecordEvent("transcript", "error")
		uc.log.Warn("transcript fetch failed", append(fields, logger.Error(err))...)
		p.problems = append(p.problems, "transcript unavailable: "+err.Error())
	case strings.TrimSpace(text) == "":
		uc.metrics.RecordEvent("transcript", "missing")
		p.problems = append(p.problems, "transcript unavailable")
	default:
		uc.metrics.RecordEvent("transcript", "ok")
		p.status.TranscriptAvailable = true
		e = assembler.WithTranscript(e, text)
	}

	e = assembler.WithPrices(e, bars)
	if e.HasPriceData() {
		uc.metrics.RecordEvent("price", "ok")
	} else {
		uc.metrics.RecordEvent("price", "missing")
		p.problems = append(p.problems, "price data unavailable")
	}

	if p.status.TranscriptAvailable {
		b, err := uc.extractor.Extract(ctx, service.ExtractionInput{
			Ticker:          e.Ticker,
			Date:            e.DateString(),
			Quarter:         e.QuarterLabel(),
			EPSActual:       e.EPSActual,
			EPSEstimate:     e.EPSEstimate,
			RevenueActual:   e.RevenueActual,
			RevenueEstimate: e.RevenueEstimate,
			Day0Return:      e.Day0Return,
			Transcript:      e.Transcript,
		})
		if err != nil {
			uc.metrics.RecordEvent("extraction", "fallback")
			uc.log.Warn("feature extraction failed, using neutral bundle", append(fields, logger.Error(err))...)
			p.problems = append(p.problems, err.Error())
		} else {
			uc.metrics.RecordEvent("extraction", "ok")
			p.features = b
			p.status.ExtractionSuccess = true
		}
	}

	// transcripts are large; results never carry them
	e.Transcript = ""
	p.event = e
	return p
}

// evaluate threads the regime history through the prepared events in
// chronological order and scores every call against the price series.
// It is deterministic for identical inputs.
func evaluate(ticker string, items []prepared, bars []models.PriceBar) *models.AnalysisResult {
	tracker := regime.NewTracker()
	res := &models.AnalysisResult{
		Ticker: ticker,
		Events: make([]models.EventResult, 0, len(items)),
	}
	rows := make([][]models.ForwardReturn, 0, len(items))

	for _, it := range items {
		e := it.event
		in := signals.Input{
			Event:        e,
			Features:     it.features,
			PriorEntries: tracker.Len(),
			ZeroVariance: tracker.ZeroVariance(),
		}
		in.RiskZ = tracker.Observe(e.Date, float64(it.features.RiskFocusScore))
		set := signals.Evaluate(in)
		fwd := returns.Forward(bars, e.Day0Index, set.Final.Direction, models.Horizons)
		rows = append(rows, fwd)

		status := it.status
		status.Success = e.HasPriceData()
		status.ErrorMessage = strings.Join(it.problems, "; ")

		res.Events = append(res.Events, models.EventResult{
			Ticker:          e.Ticker,
			Date:            e.DateString(),
			Quarter:         e.QuarterLabel(),
			FiscalYear:      e.FiscalYear,
			FiscalQuarter:   e.FiscalQuarter,
			CallTime:        e.CallTime,
			EPSActual:       e.EPSActual,
			EPSEstimate:     e.EPSEstimate,
			RevenueActual:   e.RevenueActual,
			RevenueEstimate: e.RevenueEstimate,
			Day0Return:      e.Day0Return,
			Features:        it.features,
			Signals:         set,
			ForwardReturns:  fwd,
			Status:          status,
		})
		if status.Success {
			res.Summary.EventsAnalyzed++
		}
		if status.ExtractionSuccess {
			res.Summary.EventsWithSignals++
		}
	}
	res.Summary.TotalEventsFound = len(items)
	res.Summary.HitRates = returns.HitRates(rows, models.Horizons)
	return res
}

type nopMetrics struct{}

func (nopMetrics) RecordAnalysis(string)         {}
func (nopMetrics) RecordEvent(string, string)    {}
func (nopMetrics) RecordResultSent(string)       {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}
