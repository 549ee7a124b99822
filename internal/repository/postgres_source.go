package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"EarnRev/internal/domain/models"
	"EarnRev/internal/domain/repository"
	"EarnRev/pkg/util"
)

// PostgresSource reads earnings data from a local Postgres mirror.
//
// Tables:
//
//	earnings_transcripts(symbol, year, quarter, t_day, market_timing)
//	transcript_content(symbol, year, quarter, content)
//	historical_prices(symbol, date, open, high, low, close, volume)
//
// The mirror carries no EPS figures, so calendar entries come back with nil actuals and estimates.
type PostgresSource struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ repository.EventSource = (*PostgresSource)(nil)

// OpenPostgres opens a pooled connection and pings it.
func OpenPostgres(ctx context.Context, dsn string, maxOpen int) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

// NewPostgresSource wraps an open handle; timeout bounds each query.
func NewPostgresSource(db *sqlx.DB, timeout time.Duration) *PostgresSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresSource{db: db, timeout: timeout}
}

type transcriptRow struct {
	Year         int            `db:"year"`
	Quarter      int            `db:"quarter"`
	Day          time.Time      `db:"t_day"`
	MarketTiming sql.NullString `db:"market_timing"`
}

type priceRow struct {
	Date   time.Time `db:"date"`
	Open   float64   `db:"open"`
	High   float64   `db:"high"`
	Low    float64   `db:"low"`
	Close  float64   `db:"close"`
	Volume float64   `db:"volume"`
}

func (s *PostgresSource) ValidateTicker(ctx context.Context, ticker string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int
	err := s.db.QueryRowxContext(ctx,
		`SELECT COUNT(*) FROM earnings_transcripts WHERE symbol = $1`, ticker).Scan(&n)
	if err != nil {
		return fmt.Errorf("%w: count transcripts: %v", models.ErrUpstream, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s not in local store", models.ErrInvalidTicker, ticker)
	}
	return nil
}

func (s *PostgresSource) EarningsCalendar(ctx context.Context, ticker string, limit int) ([]models.CalendarEntry, error) {
	rows, err := s.transcriptRows(ctx, ticker, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.CalendarEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.CalendarEntry{
			Symbol: ticker,
			Date:   util.Day(r.Day),
			Timing: models.ParseCallTime(strings.TrimSpace(r.MarketTiming.String)),
		})
	}
	return out, nil
}

func (s *PostgresSource) TranscriptDates(ctx context.Context, ticker string) ([]models.TranscriptDate, error) {
	rows, err := s.transcriptRows(ctx, ticker, 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.TranscriptDate, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.TranscriptDate{
			Date:       util.Day(r.Day),
			FiscalYear: r.Year,
			Quarter:    r.Quarter,
		})
	}
	return out, nil
}

func (s *PostgresSource) transcriptRows(ctx context.Context, ticker string, limit int) ([]transcriptRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT year, quarter, t_day, market_timing
		FROM earnings_transcripts
		WHERE symbol = $1
		ORDER BY t_day DESC`
	args := []interface{}{ticker}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	var rows []transcriptRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: select transcripts: %v", models.ErrUpstream, err)
	}
	return rows, nil
}

func (s *PostgresSource) PriceHistory(ctx context.Context, ticker string) ([]models.PriceBar, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT date, open, high, low, close, volume
		FROM historical_prices
		WHERE symbol = $1
		ORDER BY date ASC`

	var rows []priceRow
	if err := s.db.SelectContext(ctx, &rows, query, ticker); err != nil {
		return nil, fmt.Errorf("%w: select prices: %v", models.ErrUpstream, err)
	}
	bars := make([]models.PriceBar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, models.PriceBar{
			Date:   util.Day(r.Date),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return bars, nil
}

func (s *PostgresSource) Transcript(ctx context.Context, ticker string, year, quarter int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var content sql.NullString
	err := s.db.QueryRowxContext(ctx, `
		SELECT content
		FROM transcript_content
		WHERE symbol = $1 AND year = $2 AND quarter = $3
		LIMIT 1`, ticker, year, quarter).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: select transcript: %v", models.ErrUpstream, err)
	}
	return strings.TrimSpace(content.String), nil
}

// Close releases the pool.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}
