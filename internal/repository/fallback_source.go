package repository

import (
	"context"
	"errors"
	"fmt"

	"EarnRev/internal/domain/models"
	"EarnRev/internal/domain/repository"
	"EarnRev/pkg/logger"
)

// NamedSource pairs an EventSource with a label for logs.
type NamedSource struct {
	Name   string
	Source repository.EventSource
}

// FallbackSource asks each source in order and returns the first non-empty success.
type FallbackSource struct {
	sources []NamedSource
	log     *logger.Logger
}

var _ repository.EventSource = (*FallbackSource)(nil)

func NewFallbackSource(log *logger.Logger, sources ...NamedSource) *FallbackSource {
	if log == nil {
		log = logger.Nop()
	}
	kept := make([]NamedSource, 0, len(sources))
	for _, s := range sources {
		if s.Source != nil {
			kept = append(kept, s)
		}
	}
	return &FallbackSource{sources: kept, log: log}
}

// ValidateTicker accepts the symbol if any source knows it. When every source
// rejects it as invalid the result is ErrInvalidTicker; otherwise the first
// transport error is returned.
func (f *FallbackSource) ValidateTicker(ctx context.Context, ticker string) error {
	var firstErr error
	invalid := 0
	for _, s := range f.sources {
		err := s.Source.ValidateTicker(ctx, ticker)
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrInvalidTicker) {
			invalid++
		} else {
			f.log.Warn("ticker validation failed",
				logger.String("source", s.Name),
				logger.String("ticker", ticker),
				logger.Error(err))
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if len(f.sources) == 0 {
		return fmt.Errorf("%w: no event sources configured", models.ErrUpstream)
	}
	if invalid == len(f.sources) {
		return fmt.Errorf("%w: %s", models.ErrInvalidTicker, ticker)
	}
	return firstErr
}

func (f *FallbackSource) EarningsCalendar(ctx context.Context, ticker string, limit int) ([]models.CalendarEntry, error) {
	return firstNonEmpty(f, "earnings_calendar", ticker, func(s repository.EventSource) ([]models.CalendarEntry, error) {
		return s.EarningsCalendar(ctx, ticker, limit)
	})
}

func (f *FallbackSource) PriceHistory(ctx context.Context, ticker string) ([]models.PriceBar, error) {
	return firstNonEmpty(f, "price_history", ticker, func(s repository.EventSource) ([]models.PriceBar, error) {
		return s.PriceHistory(ctx, ticker)
	})
}

func (f *FallbackSource) TranscriptDates(ctx context.Context, ticker string) ([]models.TranscriptDate, error) {
	return firstNonEmpty(f, "transcript_dates", ticker, func(s repository.EventSource) ([]models.TranscriptDate, error) {
		return s.TranscriptDates(ctx, ticker)
	})
}

// Transcript follows the same rule as firstNonEmpty: an empty answer from any
// source wins over an earlier error.
func (f *FallbackSource) Transcript(ctx context.Context, ticker string, year, quarter int) (string, error) {
	var firstErr error
	emptyOK := false
	for _, s := range f.sources {
		text, err := s.Source.Transcript(ctx, ticker, year, quarter)
		if err != nil {
			f.log.Debug("transcript fetch failed",
				logger.String("source", s.Name),
				logger.String("ticker", ticker),
				logger.Int("year", year),
				logger.Int("quarter", quarter),
				logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if text != "" {
			return text, nil
		}
		emptyOK = true
	}
	if emptyOK {
		return "", nil
	}
	return "", firstErr
}

// firstNonEmpty returns the first successful non-empty slice. An empty success
// beats an error so callers can tell "nothing there" from "could not ask".
func firstNonEmpty[T any](f *FallbackSource, op, ticker string, call func(repository.EventSource) ([]T, error)) ([]T, error) {
	var firstErr error
	emptyOK := false
	for _, s := range f.sources {
		out, err := call(s.Source)
		if err != nil {
			f.log.Warn("event source call failed",
				logger.String("source", s.Name),
				logger.String("op", op),
				logger.String("ticker", ticker),
				logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(out) > 0 {
			return out, nil
		}
		emptyOK = true
	}
	if emptyOK || len(f.sources) == 0 {
		return nil, nil
	}
	return nil, firstErr
}
