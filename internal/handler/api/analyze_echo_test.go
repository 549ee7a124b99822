package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EarnRev/internal/domain/models"
	"EarnRev/internal/service/ratelimit"
	"EarnRev/internal/usecase"
)

type stubAnalyzer struct {
	res  *models.AnalysisResult
	err  error
	last usecase.AnalyzeParams
}

func (s *stubAnalyzer) Analyze(_ context.Context, p usecase.AnalyzeParams) (*models.AnalysisResult, error) {
	s.last = p
	return s.res, s.err
}

type queued struct {
	msgType string
	payload interface{}
}

type stubQueue struct {
	msgs []queued
	err  error
}

func (q *stubQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, queued{msgType, payload})
	return nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, h *AnalyzeEchoHandler, method, target, body string) (int, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func errorCode(t *testing.T, env envelope) string {
	t.Helper()
	var errs []struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.NotEmpty(t, errs)
	return errs[0].Code
}

func TestAnalyze_OK(t *testing.T) {
	an := &stubAnalyzer{res: &models.AnalysisResult{Ticker: "AAPL", Events: []models.EventResult{}}}
	h := NewAnalyzeEchoHandler(nil, an)

	code, env := serve(t, h, http.MethodGet, "/api/analyze?ticker=aapl", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "aapl", an.last.Ticker)
	assert.Equal(t, 8, an.last.MaxEvents)

	var res models.AnalysisResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "AAPL", res.Ticker)

	serve(t, h, http.MethodGet, "/api/analyze?ticker=AAPL&max_events=12", "")
	assert.Equal(t, 12, an.last.MaxEvents)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid ticker", fmt.Errorf("%w: \"ZZZZ\"", models.ErrInvalidTicker), http.StatusBadRequest, "ERR_INVALID_TICKER"},
		{"no events", fmt.Errorf("%w: ACME", models.ErrNoEventsFound), http.StatusNotFound, "ERR_NO_EVENTS"},
		{"upstream", fmt.Errorf("earnings calendar: %w", models.ErrUpstream), http.StatusBadGateway, "ERR_UPSTREAM"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAnalyzeEchoHandler(nil, &stubAnalyzer{err: tc.err})
			code, env := serve(t, h, http.MethodGet, "/api/analyze?ticker=ACME", "")
			assert.Equal(t, tc.status, code)
			assert.Equal(t, tc.code, errorCode(t, env))
		})
	}
}

func TestAnalyze_Validation(t *testing.T) {
	an := &stubAnalyzer{res: &models.AnalysisResult{}}
	h := NewAnalyzeEchoHandler(nil, an)

	code, _ := serve(t, h, http.MethodGet, "/api/analyze", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(t, h, http.MethodGet, "/api/analyze?ticker=AAPL&max_events=50", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, an.last.Ticker, "analyzer not called")
}

func TestAnalyze_RateLimited(t *testing.T) {
	an := &stubAnalyzer{res: &models.AnalysisResult{Ticker: "AAPL"}}
	h := NewAnalyzeEchoHandler(nil, an, WithRateLimiter(ratelimit.New(0.001, 1, time.Minute)))

	code, _ := serve(t, h, http.MethodGet, "/api/analyze?ticker=AAPL", "")
	assert.Equal(t, http.StatusOK, code)

	code, env := serve(t, h, http.MethodGet, "/api/analyze?ticker=AAPL", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "ERR_RATE_LIMITED", errorCode(t, env))
}

func TestScan_Enqueues(t *testing.T) {
	q := &stubQueue{}
	h := NewAnalyzeEchoHandler(nil, &stubAnalyzer{}, WithQueue(q))

	code, env := serve(t, h, http.MethodPost, "/api/scan", `{"tickers":["aapl","MSFT","AAPL"]}`)
	assert.Equal(t, http.StatusAccepted, code)

	var out scanAccepted
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 2, out.Queued)
	assert.Equal(t, []string{"AAPL", "MSFT"}, out.Tickers)

	require.Len(t, q.msgs, 2)
	assert.Equal(t, usecase.AnalyzeJobType, q.msgs[0].msgType)
	assert.Equal(t, models.AnalyzeJobPayload{Ticker: "AAPL", MaxEvents: 4}, q.msgs[0].payload)
}

func TestScan_Errors(t *testing.T) {
	code, env := serve(t, NewAnalyzeEchoHandler(nil, &stubAnalyzer{}), http.MethodPost, "/api/scan", `{"tickers":["AAPL"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "ERR_QUEUE_DISABLED", errorCode(t, env))

	q := &stubQueue{}
	h := NewAnalyzeEchoHandler(nil, &stubAnalyzer{}, WithQueue(q))
	code, _ = serve(t, h, http.MethodPost, "/api/scan", `{"tickers":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = serve(t, h, http.MethodPost, "/api/scan", `{"tickers":["AAPL","not a ticker"]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ERR_INVALID_TICKER", errorCode(t, env))
	assert.Empty(t, q.msgs, "nothing enqueued on a bad list")

	h = NewAnalyzeEchoHandler(nil, &stubAnalyzer{}, WithQueue(&stubQueue{err: errors.New("redis down")}))
	code, _ = serve(t, h, http.MethodPost, "/api/scan", `{"tickers":["AAPL"]}`)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestHealth(t *testing.T) {
	h := NewAnalyzeEchoHandler(nil, &stubAnalyzer{},
		WithHealthCheck("redis", func(context.Context) error { return nil }),
		WithHealthCheck("clickhouse", func(context.Context) error { return errors.New("connection refused") }),
	)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	code, env := serve(t, h, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)

	var hs struct {
		Status string            `json:"status"`
		Time   string            `json:"time"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &hs))
	assert.Equal(t, "degraded", hs.Status)
	assert.Equal(t, "2024-05-01T12:00:00Z", hs.Time)
	assert.Equal(t, "ok", hs.Checks["redis"])
	assert.Equal(t, "connection refused", hs.Checks["clickhouse"])
}
