package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EarnRev/internal/domain/models"
)

type stubAnalyzer struct {
	mu      sync.Mutex
	results map[string]*models.AnalysisResult
	seen    []AnalyzeParams
}

func (s *stubAnalyzer) Analyze(_ context.Context, p AnalyzeParams) (*models.AnalysisResult, error) {
	s.mu.Lock()
	s.seen = append(s.seen, p)
	s.mu.Unlock()
	r, ok := s.results[p.Ticker]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNoEventsFound, p.Ticker)
	}
	return r, nil
}

func callEvent(ticker, date string, dir models.Direction, score float64) models.EventResult {
	return models.EventResult{
		Ticker: ticker,
		Date:   date,
		Signals: models.SignalSet{
			Final: models.SubSignal{Name: "final", Direction: dir, Label: dir.String(), Score: score},
		},
		Features: models.FeatureBundle{Summary: ticker + " quarter"},
	}
}

func TestScan_CollectsAndSortsCalls(t *testing.T) {
	an := &stubAnalyzer{results: map[string]*models.AnalysisResult{
		"AAPL": {Ticker: "AAPL", Events: []models.EventResult{
			callEvent("AAPL", "2024-08-01", models.Bearish, 4.0),
			callEvent("AAPL", "2025-05-01", models.Neutral, 5.0),
		}},
		"MSFT": {Ticker: "MSFT", Events: []models.EventResult{
			callEvent("MSFT", "2025-04-30", models.Bullish, 7.5),
		}},
		"TSLA": {Ticker: "TSLA", Events: []models.EventResult{
			callEvent("TSLA", "2025-01-29", models.Bearish, 2.5),
		}},
	}}
	store, m := &fakeStore{}, newRecordingMetrics()
	uc := NewScanUseCase(an, NewResultProcessor(nil, store, m, BackendClickHouse), nil)

	rep := uc.Scan(context.Background(), ScanParams{
		Tickers:   []string{"aapl", "MSFT", "TSLA", "ZZZZ", "msft", " "},
		MaxEvents: 4,
		Workers:   3,
	})

	assert.Equal(t, 4, rep.Scanned)
	require.Len(t, rep.Hits, 3)
	assert.Equal(t, []string{"MSFT", "TSLA", "AAPL"}, []string{rep.Hits[0].Ticker, rep.Hits[1].Ticker, rep.Hits[2].Ticker})
	assert.Equal(t, "BULLISH", rep.Hits[0].Direction)
	assert.Equal(t, "BEARISH", rep.Hits[1].Direction)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "ZZZZ", rep.Failures[0].Ticker)

	bull, bear := rep.Count()
	assert.Equal(t, 1, bull)
	assert.Equal(t, 2, bear)

	assert.Len(t, store.stored, 3)
	for _, p := range an.seen {
		assert.Equal(t, 4, p.MaxEvents)
	}
}

func TestScan_SinceYear(t *testing.T) {
	an := &stubAnalyzer{results: map[string]*models.AnalysisResult{
		"AAPL": {Ticker: "AAPL", Events: []models.EventResult{
			callEvent("AAPL", "2024-08-01", models.Bearish, 4.0),
			callEvent("AAPL", "2025-05-01", models.Bullish, 6.0),
		}},
	}}
	rep := NewScanUseCase(an, nil, nil).Scan(context.Background(), ScanParams{Tickers: []string{"AAPL"}, SinceYear: 2025})
	require.Len(t, rep.Hits, 1)
	assert.Equal(t, "2025-05-01", rep.Hits[0].Date)
}

func TestHits_Nil(t *testing.T) {
	assert.Nil(t, Hits(nil, 0))
}
