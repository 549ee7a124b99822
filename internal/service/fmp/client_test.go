package fmp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EarnRev/internal/domain/models"
)

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		body := body
		mux.HandleFunc("/"+path, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(url string) *Client {
	return New(Config{APIKey: "test-key", BaseURL: url, Timeout: time.Second}, nil)
}

func TestEarningsCalendar(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"earnings": `[
			{"date":"2025-01-29","epsActual":null,"epsEstimated":3.1,"revenueActual":null,"revenueEstimated":68000000000},
			{"date":"2024-10-30","epsActual":3.30,"epsEstimated":3.10,"revenueActual":65585000000,"revenueEstimated":64510000000},
			{"date":"2024-07-30","eps":2.95,"epsEstimated":2.93,"revenue":64727000000},
			{"date":"garbage","epsActual":1}
		]`,
	})
	entries, err := newClient(srv.URL).EarningsCalendar(context.Background(), "MSFT", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-10-30", entries[0].Date.Format(models.DateLayout))
	assert.Equal(t, 3.30, *entries[0].EPSActual)
	assert.Equal(t, 3.10, *entries[0].EPSEstimate)
	assert.Equal(t, 2.95, *entries[1].EPSActual)
	assert.Equal(t, 64727000000.0, *entries[1].RevenueActual)
	assert.Nil(t, entries[1].RevenueEstimate)
}

func TestPriceHistoryBothShapes(t *testing.T) {
	for name, body := range map[string]string{
		"array":   `[{"date":"2024-01-03","close":101},{"date":"2024-01-02","close":100},{"date":"2024-01-04","close":0}]`,
		"wrapped": `{"symbol":"MSFT","historical":[{"date":"2024-01-03","close":101},{"date":"2024-01-02","close":100}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, map[string]string{"historical-price-eod/full": body})
			bars, err := newClient(srv.URL).PriceHistory(context.Background(), "MSFT")
			require.NoError(t, err)
			require.Len(t, bars, 2)
			closes := []float64{bars[0].Close, bars[1].Close}
			assert.ElementsMatch(t, []float64{100, 101}, closes)
		})
	}
}

func TestTranscriptFallsBackAcrossFields(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"earning-call-transcript": `[{"symbol":"MSFT","content":"","text":"Good afternoon, everyone."}]`,
	})
	text, err := newClient(srv.URL).Transcript(context.Background(), "MSFT", 2024, 4)
	require.NoError(t, err)
	assert.Equal(t, "Good afternoon, everyone.", text)
}

func TestTranscriptMissing(t *testing.T) {
	srv := newTestServer(t, map[string]string{"earning-call-transcript": `[]`})
	text, err := newClient(srv.URL).Transcript(context.Background(), "MSFT", 2024, 4)
	require.NoError(t, err)
	assert.Empty(t, text)

	// unknown path answers 404
	text, err = newClient(srv.URL+"/nothing").Transcript(context.Background(), "MSFT", 2024, 4)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTranscriptDates(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"earning-call-transcript-dates": `[{"quarter":2,"fiscalYear":2025,"date":"2025-01-29"},{"quarter":1,"year":2025,"date":"2024-10-30"}]`,
	})
	dates, err := newClient(srv.URL).TranscriptDates(context.Background(), "MSFT")
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, 2025, dates[0].FiscalYear)
	assert.Equal(t, 2, dates[0].Quarter)
	assert.Equal(t, 2025, dates[1].FiscalYear)
}

func TestValidateTicker(t *testing.T) {
	srv := newTestServer(t, map[string]string{"profile": `[{"symbol":"MSFT","companyName":"Microsoft"}]`})
	require.NoError(t, newClient(srv.URL).ValidateTicker(context.Background(), "MSFT"))

	empty := newTestServer(t, map[string]string{"profile": `[]`})
	err := newClient(empty.URL).ValidateTicker(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, models.ErrInvalidTicker)
}

func TestUpstreamFailureTripsBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL, BreakerFailures: 2, BreakerTimeout: time.Minute}, nil)
	for i := 0; i < 4; i++ {
		_, err := c.PriceHistory(context.Background(), "MSFT")
		assert.ErrorIs(t, err, models.ErrUpstream)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestRejectedRequestsDoNotTripBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL, BreakerFailures: 2, BreakerTimeout: time.Minute}, nil)
	for i := 0; i < 4; i++ {
		_, err := c.PriceHistory(context.Background(), "MSFT")
		assert.ErrorIs(t, err, models.ErrUpstream)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
}
