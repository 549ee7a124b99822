package fmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"EarnRev/internal/domain/models"
	drepo "EarnRev/internal/domain/repository"
	xhttp "EarnRev/pkg/http"
	"EarnRev/pkg/logger"
	"EarnRev/pkg/util"
)

const DefaultBaseURL = "https://financialmodelingprep.com/stable"

// Config configures the Financial Modeling Prep client.
type Config struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	RateLimit       float64 // requests per second, <= 0 disables
	Burst           int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client implements an EventSource backed by the FMP stable REST API.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
}

var errNotFound = errors.New("fmp: not found")

// New creates a new FMP client.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithUserAgent("earnrev/1.0")),
		log:     log,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fmp",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a missing resource or a rejected request is an answer, not an outage
		IsSuccessful: func(err error) bool {
			var se *xhttp.StatusError
			if errors.As(err, &se) {
				return !se.Retryable()
			}
			return err == nil || errors.Is(err, errNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				logger.String("breaker", name), logger.String("from", from.String()), logger.String("to", to.String()))
		},
	})
	return c
}

var _ drepo.EventSource = (*Client)(nil)

func (c *Client) get(ctx context.Context, path string, params map[string]string, dest interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	q := url.Values{"apikey": {c.apiKey}}
	for k, v := range params {
		q.Set(k, v)
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			URL:   c.baseURL + "/" + path,
			Query: q,
		}, dest)
		if xhttp.IsStatus(err, http.StatusNotFound) {
			return nil, errNotFound
		}
		return nil, err
	})
	switch {
	case err == nil, errors.Is(err, errNotFound):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %s: %v", models.ErrUpstream, path, err)
	default:
		return fmt.Errorf("%w: get %s: %v", models.ErrUpstream, path, err)
	}
}

type profile struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
}

// ValidateTicker checks the symbol against the company profile endpoint.
func (c *Client) ValidateTicker(ctx context.Context, ticker string) error {
	var out []profile
	err := c.get(ctx, "profile", map[string]string{"symbol": ticker}, &out)
	if errors.Is(err, errNotFound) || (err == nil && len(out) == 0) {
		return fmt.Errorf("%w: %s not found upstream", models.ErrInvalidTicker, ticker)
	}
	return err
}

type earning struct {
	Date             string   `json:"date"`
	EPSActual        *float64 `json:"epsActual"`
	EPS              *float64 `json:"eps"`
	EPSEstimated     *float64 `json:"epsEstimated"`
	RevenueActual    *float64 `json:"revenueActual"`
	Revenue          *float64 `json:"revenue"`
	RevenueEstimated *float64 `json:"revenueEstimated"`
}

// EarningsCalendar returns reported earnings; scheduled entries without actuals are dropped.
func (c *Client) EarningsCalendar(ctx context.Context, ticker string, limit int) ([]models.CalendarEntry, error) {
	params := map[string]string{"symbol": ticker}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	var rows []earning
	if err := c.get(ctx, "earnings", params, &rows); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]models.CalendarEntry, 0, len(rows))
	for _, r := range rows {
		date, ok := util.ParseDate(r.Date)
		if !ok {
			continue
		}
		eps := firstNonNil(r.EPSActual, r.EPS)
		rev := firstNonNil(r.RevenueActual, r.Revenue)
		if eps == nil && rev == nil {
			continue
		}
		out = append(out, models.CalendarEntry{
			Symbol:          ticker,
			Date:            date,
			EPSActual:       eps,
			EPSEstimate:     r.EPSEstimated,
			RevenueActual:   rev,
			RevenueEstimate: r.RevenueEstimated,
		})
	}
	return out, nil
}

type bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// PriceHistory returns daily bars. The endpoint answers either with a bare
// array or with {"historical": [...]}.
func (c *Client) PriceHistory(ctx context.Context, ticker string) ([]models.PriceBar, error) {
	var raw []byte
	if err := c.get(ctx, "historical-price-eod/full", map[string]string{"symbol": ticker}, &raw); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	bars, err := decodeBars(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode prices: %v", models.ErrUpstream, err)
	}
	out := make([]models.PriceBar, 0, len(bars))
	for _, b := range bars {
		date, ok := util.ParseDate(b.Date)
		if !ok || b.Close <= 0 {
			continue
		}
		out = append(out, models.PriceBar{Date: date, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume})
	}
	return out, nil
}

func decodeBars(raw []byte) ([]bar, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var bars []bar
		err := json.Unmarshal(raw, &bars)
		return bars, err
	}
	var wrapped struct {
		Historical []bar `json:"historical"`
	}
	err := json.Unmarshal(raw, &wrapped)
	return wrapped.Historical, err
}

type transcriptDate struct {
	Quarter    int    `json:"quarter"`
	FiscalYear int    `json:"fiscalYear"`
	Year       int    `json:"year"`
	Date       string `json:"date"`
}

func (c *Client) TranscriptDates(ctx context.Context, ticker string) ([]models.TranscriptDate, error) {
	var rows []transcriptDate
	if err := c.get(ctx, "earning-call-transcript-dates", map[string]string{"symbol": ticker}, &rows); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]models.TranscriptDate, 0, len(rows))
	for _, r := range rows {
		date, ok := util.ParseDate(r.Date)
		if !ok {
			continue
		}
		year := r.FiscalYear
		if year == 0 {
			year = r.Year
		}
		out = append(out, models.TranscriptDate{Date: date, FiscalYear: year, Quarter: r.Quarter})
	}
	return out, nil
}

type transcript struct {
	Content    string `json:"content"`
	Transcript string `json:"transcript"`
	Text       string `json:"text"`
}

// Transcript returns the call transcript for a fiscal period, or "" when none exists.
func (c *Client) Transcript(ctx context.Context, ticker string, year, quarter int) (string, error) {
	var rows []transcript
	err := c.get(ctx, "earning-call-transcript", map[string]string{
		"symbol":  ticker,
		"year":    strconv.Itoa(year),
		"quarter": strconv.Itoa(quarter),
	}, &rows)
	if errors.Is(err, errNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	for _, r := range rows {
		for _, s := range []string{r.Content, r.Transcript, r.Text} {
			if strings.TrimSpace(s) != "" {
				return s, nil
			}
		}
	}
	return "", nil
}

func firstNonNil(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}
