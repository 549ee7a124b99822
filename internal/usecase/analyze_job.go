package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"EarnRev/internal/domain/models"
	pkgcache "EarnRev/pkg/cache"
	xhttp "EarnRev/pkg/http"
	"EarnRev/pkg/logger"
	"EarnRev/pkg/queue"
)

const AnalyzeJobType = "analyze_ticker"

// AnalyzeJob runs queued ticker analyses and routes the results.
type AnalyzeJob struct {
	analyzer  Analyzer
	processor *ResultProcessor
	locker    pkgcache.Service
	lockTTL   time.Duration
	log       *logger.Logger
}

type AnalyzeJobOption func(*AnalyzeJob)

// WithJobLock makes workers skip a ticker another worker is already running.
func WithJobLock(locker pkgcache.Service, ttl time.Duration) AnalyzeJobOption {
	return func(j *AnalyzeJob) {
		j.locker = locker
		if ttl > 0 {
			j.lockTTL = ttl
		}
	}
}

func NewAnalyzeJob(analyzer Analyzer, processor *ResultProcessor, log *logger.Logger, opts ...AnalyzeJobOption) *AnalyzeJob {
	if log == nil {
		log = logger.Nop()
	}
	j := &AnalyzeJob{
		analyzer:  analyzer,
		processor: processor,
		lockTTL:   10 * time.Minute,
		log:       log,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *AnalyzeJob) Name() string { return "analyze-ticker-job" }

func (j *AnalyzeJob) Type() string { return AnalyzeJobType }

// Handle marks failures that a retry cannot fix (bad payload, unknown
// ticker, no events) as permanent so the queue dead-letters them at once.
func (j *AnalyzeJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.Decode[models.AnalyzeJobPayload](payload)
	if err != nil {
		return queue.Permanent(err)
	}
	if errs := xhttp.DefaultAndValidate(ctx, p); errs != nil {
		return queue.Permanent(fmt.Errorf("invalid payload: %v", errs))
	}

	if j.locker != nil {
		key := "lock:analyze:" + p.Ticker
		ok, err := j.locker.TryLock(ctx, key, j.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if !ok {
			j.log.Info("analyze job: ticker already in progress", logger.String("ticker", p.Ticker))
			return nil
		}
		defer func() { _ = j.locker.Unlock(context.WithoutCancel(ctx), key) }()
	}

	res, err := j.analyzer.Analyze(ctx, AnalyzeParams{Ticker: p.Ticker, MaxEvents: p.MaxEvents})
	switch {
	case errors.Is(err, models.ErrInvalidTicker), errors.Is(err, models.ErrNoEventsFound):
		return queue.Permanent(fmt.Errorf("analyze %s: %w", p.Ticker, err))
	case err != nil:
		return err
	}

	if j.processor != nil {
		if err := j.processor.Process(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

var _ queue.Job = (*AnalyzeJob)(nil)
