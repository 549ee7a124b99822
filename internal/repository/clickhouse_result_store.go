package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"EarnRev/internal/domain/models"
	"EarnRev/internal/domain/repository"
	applogger "EarnRev/pkg/logger"
)

// ClickHouseResultStore writes one row per analyzed earnings event.
type ClickHouseResultStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

var _ repository.ResultStore = (*ClickHouseResultStore)(nil)

// NewClickHouseResultStore creates the store; table is database-qualified, e.g. "earnrev.event_signals".
func NewClickHouseResultStore(db *sql.DB, table string, l *applogger.Logger) *ClickHouseResultStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseResultStore{db: db, table: table, l: l, now: time.Now}
}

// ResultsSchema returns the idempotent DDL for the results table.
func ResultsSchema(table string) []string {
	var fwd strings.Builder
	for _, h := range models.Horizons {
		fmt.Fprintf(&fwd, "\n            ret_%dd Nullable(Float64),\n            hit_%dd Nullable(UInt8),", h, h)
	}
	stmts := []string{}
	if db, _, ok := strings.Cut(table, "."); ok {
		stmts = append(stmts, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db))
	}
	stmts = append(stmts, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            run_id String,
            analyzed_at DateTime,
            ticker LowCardinality(String),
            event_date Date,
            fiscal_year UInt16,
            fiscal_quarter UInt8,
            call_time LowCardinality(String),
            eps_actual Nullable(Float64),
            eps_estimate Nullable(Float64),
            revenue_actual Nullable(Float64),
            revenue_estimate Nullable(Float64),
            day0_return Nullable(Float64),
            risk_focus_score Float64,
            risk_z Nullable(Float64),
            final_direction Int8,
            final_score Float64,
            sub_signals String,
            features String,%s
            success UInt8,
            transcript_available UInt8,
            extraction_success UInt8,
            error_message String
        ) ENGINE = ReplacingMergeTree(analyzed_at)
        ORDER BY (ticker, event_date)`, table, fwd.String()))
	return stmts
}

func resultColumns() []string {
	cols := []string{
		"run_id", "analyzed_at", "ticker", "event_date", "fiscal_year", "fiscal_quarter", "call_time",
		"eps_actual", "eps_estimate", "revenue_actual", "revenue_estimate", "day0_return",
		"risk_focus_score", "risk_z", "final_direction", "final_score", "sub_signals", "features",
	}
	for _, h := range models.Horizons {
		cols = append(cols, fmt.Sprintf("ret_%dd", h), fmt.Sprintf("hit_%dd", h))
	}
	return append(cols, "success", "transcript_available", "extraction_success", "error_message")
}

func (s *ClickHouseResultStore) Init(ctx context.Context) error {
	for _, stmt := range ResultsSchema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init results schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseResultStore) StoreResult(ctx context.Context, r *models.AnalysisResult) error {
	return s.StoreBatch(ctx, []*models.AnalysisResult{r})
}

// StoreBatch flattens results to event rows and inserts them in chunks of multi-row VALUES.
func (s *ClickHouseResultStore) StoreBatch(ctx context.Context, rs []*models.AnalysisResult) error {
	start := time.Now()
	runID := uuid.NewString()
	at := s.now().UTC().Truncate(time.Second)

	var rows [][]interface{}
	for _, r := range rs {
		if r == nil || r.Ticker == "" {
			continue
		}
		for i := range r.Events {
			row, err := eventRow(runID, at, &r.Events[i])
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	cols := resultColumns()
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	const chunkSize = 2000
	for lo := 0; lo < len(rows); lo += chunkSize {
		hi := min(lo+chunkSize, len(rows))
		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*len(cols))
		for _, row := range rows[lo:hi] {
			values = append(values, placeholder)
			args = append(args, row...)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, strings.Join(cols, ", "), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store results error",
				applogger.String("table", s.table),
				applogger.Int("rows", hi-lo),
				applogger.Error(err),
			)
			return fmt.Errorf("insert results: %w", err)
		}
	}
	s.l.Debug("clickhouse store results ok",
		applogger.String("table", s.table),
		applogger.String("run_id", runID),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func eventRow(runID string, at time.Time, e *models.EventResult) ([]interface{}, error) {
	subs, err := json.Marshal(e.Signals.Subs)
	if err != nil {
		return nil, fmt.Errorf("marshal sub signals: %w", err)
	}
	feats, err := json.Marshal(e.Features)
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}
	date, err := time.Parse(models.DateLayout, e.Date)
	if err != nil {
		return nil, fmt.Errorf("event date %q: %w", e.Date, err)
	}

	row := []interface{}{
		runID, at, e.Ticker, date, uint16(e.FiscalYear), uint8(e.FiscalQuarter), string(e.CallTime),
		e.EPSActual, e.EPSEstimate, e.RevenueActual, e.RevenueEstimate, e.Day0Return,
		float64(e.Features.RiskFocusScore), e.Signals.RiskZScore,
		int8(e.Signals.Final.Direction), e.Signals.Final.Score, string(subs), string(feats),
	}
	byHorizon := make(map[int]models.ForwardReturn, len(e.ForwardReturns))
	for _, fr := range e.ForwardReturns {
		byHorizon[fr.Horizon] = fr
	}
	for _, h := range models.Horizons {
		fr := byHorizon[h]
		row = append(row, fr.ReturnPct, boolFlag(fr.Hit))
	}
	return append(row,
		flag(e.Status.Success), flag(e.Status.TranscriptAvailable), flag(e.Status.ExtractionSuccess),
		e.Status.ErrorMessage,
	), nil
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func boolFlag(b *bool) *uint8 {
	if b == nil {
		return nil
	}
	v := flag(*b)
	return &v
}

func (s *ClickHouseResultStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseResultStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}
