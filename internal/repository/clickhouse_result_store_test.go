package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EarnRev/internal/domain/models"
)

func sampleResult() *models.AnalysisResult {
	hit := true
	return &models.AnalysisResult{
		Ticker: "AAPL",
		Events: []models.EventResult{
			{
				Ticker:        "AAPL",
				Date:          "2024-05-02",
				Quarter:       "Q2 2024",
				FiscalYear:    2024,
				FiscalQuarter: 2,
				CallTime:      models.CallTimeAMC,
				EPSActual:     models.Float(1.53),
				EPSEstimate:   models.Float(1.50),
				Day0Return:    models.Float(0.06),
				Features:      models.NeutralFeatureBundle(),
				Signals: models.SignalSet{
					Final: models.SubSignal{Name: "final", Direction: models.Bullish, Score: 6.6},
				},
				ForwardReturns: []models.ForwardReturn{
					{Horizon: 5, ReturnPct: models.Float(0.021), Hit: &hit},
					{Horizon: 10},
					{Horizon: 30},
					{Horizon: 60},
				},
				Status: models.EventStatus{Success: true, TranscriptAvailable: true, ExtractionSuccess: true},
			},
			{
				Ticker:   "AAPL",
				Date:     "2024-08-01",
				Quarter:  "Q3 2024",
				CallTime: models.CallTimeUnknown,
				Features: models.NeutralFeatureBundle(),
				Status:   models.EventStatus{ErrorMessage: "transcript unavailable"},
			},
		},
	}
}

func TestResultsSchema(t *testing.T) {
	stmts := ResultsSchema("earnrev.event_signals")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS earnrev", stmts[0])
	for _, col := range []string{"ret_5d", "hit_10d", "ret_60d", "risk_z Nullable(Float64)"} {
		assert.Contains(t, stmts[1], col)
	}

	assert.Len(t, ResultsSchema("event_signals"), 1)
}

func TestClickHouseResultStore_Init(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE DATABASE IF NOT EXISTS earnrev`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS earnrev.event_signals`).WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewClickHouseResultStore(db, "earnrev.event_signals", nil)
	require.NoError(t, s.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseResultStore_StoreResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewClickHouseResultStore(db, "earnrev.event_signals", nil)
	s.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }

	mock.ExpectExec(`INSERT INTO earnrev.event_signals \(run_id, analyzed_at, ticker`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, s.StoreResult(context.Background(), sampleResult()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseResultStore_EventRow(t *testing.T) {
	r := sampleResult()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	row, err := eventRow("run-1", at, &r.Events[0])
	require.NoError(t, err)

	cols := resultColumns()
	require.Len(t, row, len(cols))
	idx := func(name string) int {
		for i, c := range cols {
			if c == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}

	assert.Equal(t, "AAPL", row[idx("ticker")])
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), row[idx("event_date")])
	assert.Equal(t, int8(1), row[idx("final_direction")])
	assert.Equal(t, 50.0, row[idx("risk_focus_score")])
	assert.Equal(t, uint8(1), *row[idx("hit_5d")].(*uint8))
	assert.Nil(t, row[idx("hit_10d")].(*uint8))
	assert.Nil(t, row[idx("ret_60d")].(*float64))
	assert.True(t, strings.HasPrefix(row[idx("features")].(string), "{"))
}

func TestClickHouseResultStore_BadDate(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := sampleResult()
	r.Events[0].Date = "05/02/2024"
	s := NewClickHouseResultStore(db, "earnrev.event_signals", nil)
	assert.Error(t, s.StoreResult(context.Background(), r))
}

func TestClickHouseResultStore_InsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO`).WillReturnError(errors.New("table is read only"))
	s := NewClickHouseResultStore(db, "earnrev.event_signals", nil)
	err = s.StoreBatch(context.Background(), []*models.AnalysisResult{sampleResult(), nil})
	assert.ErrorContains(t, err, "insert results")
}

func TestClickHouseResultStore_EmptyBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewClickHouseResultStore(db, "earnrev.event_signals", nil)
	require.NoError(t, s.StoreBatch(context.Background(), []*models.AnalysisResult{{Ticker: "AAPL"}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
