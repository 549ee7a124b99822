package usecase

import (
	"context"
	"fmt"
	"time"

	"EarnRev/internal/domain/models"
	drepo "EarnRev/internal/domain/repository"
)

const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendNone       = "none"
)

// ResultProcessor routes finished analyses to the configured backend.
type ResultProcessor struct {
	pub     drepo.ResultPublisher
	store   drepo.ResultStore
	metrics drepo.Metrics
	backend string
}

// NewResultProcessor creates a new ResultProcessor instance.
func NewResultProcessor(
	pub drepo.ResultPublisher,
	store drepo.ResultStore,
	metrics drepo.Metrics,
	backend string,
) *ResultProcessor {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if backend == "" {
		backend = BackendNone
	}
	return &ResultProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

func (p *ResultProcessor) Backend() string { return p.backend }

// Process sends a single result to the configured backend.
func (p *ResultProcessor) Process(ctx context.Context, r *models.AnalysisResult) error {
	if r == nil {
		return fmt.Errorf("result is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		err = p.requirePub()
		if err == nil {
			err = p.pub.Publish(ctx, r)
		}
	case BackendClickHouse:
		err = p.requireStore()
		if err == nil {
			err = p.store.StoreResult(ctx, r)
		}
	case BackendNone:
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process result %s: %w", r.Ticker, err)
	}

	p.metrics.RecordResultSent(p.backend)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch sends multiple results in one call.
func (p *ResultProcessor) ProcessBatch(ctx context.Context, rs []*models.AnalysisResult) error {
	if len(rs) == 0 || p.backend == BackendNone {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		err = p.requirePub()
		if err == nil {
			err = p.pub.PublishBatch(ctx, rs)
		}
	case BackendClickHouse:
		err = p.requireStore()
		if err == nil {
			err = p.store.StoreBatch(ctx, rs)
		}
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for range rs {
		p.metrics.RecordResultSent(p.backend)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

func (p *ResultProcessor) requirePub() error {
	if p.pub == nil {
		return fmt.Errorf("kafka backend selected but no publisher configured")
	}
	return nil
}

func (p *ResultProcessor) requireStore() error {
	if p.store == nil {
		return fmt.Errorf("clickhouse backend selected but no store configured")
	}
	return nil
}

// Close closes underlying resources if available.
func (p *ResultProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
