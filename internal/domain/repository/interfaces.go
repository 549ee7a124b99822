package repository

import (
	"context"

	"EarnRev/internal/domain/models"
)

// EventSource provides the raw inputs for a ticker backtest.
type EventSource interface {
	// ValidateTicker returns models.ErrInvalidTicker when the symbol is unknown upstream.
	ValidateTicker(ctx context.Context, ticker string) error
	EarningsCalendar(ctx context.Context, ticker string, limit int) ([]models.CalendarEntry, error)
	PriceHistory(ctx context.Context, ticker string) ([]models.PriceBar, error)
	TranscriptDates(ctx context.Context, ticker string) ([]models.TranscriptDate, error)
	// Transcript returns "" with a nil error when no transcript exists.
	Transcript(ctx context.Context, ticker string, year, quarter int) (string, error)
}

type ResultPublisher interface {
	Publish(ctx context.Context, r *models.AnalysisResult) error
	PublishBatch(ctx context.Context, rs []*models.AnalysisResult) error
	Close() error
}

type ResultStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreResult(ctx context.Context, r *models.AnalysisResult) error
	StoreBatch(ctx context.Context, rs []*models.AnalysisResult) error
	Health(ctx context.Context) error // ping
	Close() error
}

// AnalysisCache memoizes full results per (ticker, max events).
type AnalysisCache interface {
	Get(ctx context.Context, ticker string, maxEvents int) (*models.AnalysisResult, bool)
	Set(ctx context.Context, ticker string, maxEvents int, r *models.AnalysisResult)
}

type Metrics interface {
	RecordAnalysis(outcome string)
	RecordEvent(stage, outcome string)
	RecordResultSent(backend string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
