package assembler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EarnRev/internal/domain/models"
)

func d(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }

func f(v float64) *float64 { return &v }

func TestEventsOrdersDedupesAndCaps(t *testing.T) {
	entries := []models.CalendarEntry{
		{Date: d(2024, 7, 25), EPSActual: f(1.2)},
		{Date: d(2023, 10, 26), EPSActual: f(1.0), EPSEstimate: f(0.9)},
		{Date: d(2024, 1, 30)},
		{Date: d(2024, 1, 30), EPSActual: f(1.1), EPSEstimate: f(1.0)},
		{Date: d(2024, 4, 25), EPSActual: f(0.8), Timing: models.CallTimeAMC},
		{},
	}
	events := Events("MSFT", entries, nil, 3)
	require.Len(t, events, 3)
	assert.Equal(t, "2024-01-30", events[0].DateString())
	assert.Equal(t, "2024-04-25", events[1].DateString())
	assert.Equal(t, "2024-07-25", events[2].DateString())

	// the more complete duplicate wins
	require.NotNil(t, events[0].EPSActual)
	assert.Equal(t, 1.1, *events[0].EPSActual)

	assert.Equal(t, models.CallTimeAMC, events[1].CallTime)
	assert.Equal(t, models.CallTimeUnknown, events[2].CallTime)
	for _, e := range events {
		assert.Equal(t, "MSFT", e.Ticker)
		assert.Equal(t, -1, e.Day0Index)
	}
}

func TestEventsUncapped(t *testing.T) {
	entries := []models.CalendarEntry{{Date: d(2024, 1, 1)}, {Date: d(2023, 1, 1)}}
	events := Events("X", entries, nil, 0)
	require.Len(t, events, 2)
	assert.True(t, events[0].Date.Before(events[1].Date))
}

func TestFiscalLookup(t *testing.T) {
	lookup := NewFiscalLookup([]models.TranscriptDate{
		{Date: d(2024, 1, 30), FiscalYear: 2024, Quarter: 2},
		{Date: d(2024, 5, 1), FiscalYear: 2024, Quarter: 7},
	})
	y, q := lookup.Resolve(d(2024, 1, 30))
	assert.Equal(t, 2024, y)
	assert.Equal(t, 2, q)

	// invalid quarters are ignored, calendar fallback applies
	y, q = lookup.Resolve(d(2024, 5, 1))
	assert.Equal(t, 2024, y)
	assert.Equal(t, 2, q)

	y, q = lookup.Resolve(d(2023, 11, 2))
	assert.Equal(t, 2023, y)
	assert.Equal(t, 4, q)

	events := Events("MSFT", []models.CalendarEntry{{Date: d(2024, 1, 30)}}, lookup, 0)
	require.Len(t, events, 1)
	assert.Equal(t, "Q2 2024", events[0].QuarterLabel())
}

func TestWithTranscriptKeepsKnownTiming(t *testing.T) {
	e := models.EarningsEvent{CallTime: models.CallTimeAMC}
	got := WithTranscript(e, "Good morning everyone")
	assert.Equal(t, models.CallTimeAMC, got.CallTime)
	assert.Equal(t, "Good morning everyone", got.Transcript)

	e = models.EarningsEvent{CallTime: models.CallTimeUnknown}
	got = WithTranscript(e, "Good morning everyone")
	assert.Equal(t, models.CallTimeBMO, got.CallTime)
}

func TestWithPrices(t *testing.T) {
	bars := []models.PriceBar{
		{Date: d(2024, 1, 29), Close: 100},
		{Date: d(2024, 1, 30), Close: 100},
		{Date: d(2024, 1, 31), Close: 90},
	}
	e := WithPrices(models.EarningsEvent{Date: d(2024, 1, 30), CallTime: models.CallTimeAMC}, bars)
	require.NotNil(t, e.Day0Return)
	assert.InDelta(t, -0.10, *e.Day0Return, 1e-9)
	assert.Equal(t, 2, e.Day0Index)

	e = WithPrices(models.EarningsEvent{Date: d(2024, 1, 30), CallTime: models.CallTimeBMO}, bars)
	require.NotNil(t, e.Day0Return)
	assert.Equal(t, 0.0, *e.Day0Return)
	assert.Equal(t, 1, e.Day0Index)
}

func TestDetectCallTime(t *testing.T) {
	cases := []struct {
		name string
		text string
		want models.CallTime
	}{
		{"empty", "", models.CallTimeUnknown},
		{"morning greeting", "Operator: Good morning, and welcome.", models.CallTimeBMO},
		{"afternoon greeting", "Good afternoon, ladies and gentlemen.", models.CallTimeAMC},
		{"evening greeting", "good evening all", models.CallTimeAMC},
		{"am clock", "The call begins at 8:30 a.m. Eastern.", models.CallTimeBMO},
		{"pm clock", "Today's call at 5 p.m. will cover results.", models.CallTimeAMC},
		{"ambiguous pm then phrase", "Join us at 1 pm. We reported this morning.", models.CallTimeBMO},
		{"this evening", "Results released this evening.", models.CallTimeAMC},
		{"after the close", "We released results after the close.", models.CallTimeAMC},
		{"pre-market", "Our pre-market release is available.", models.CallTimeBMO},
		{"no signal", "Thank you for joining.", models.CallTimeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectCallTime(tc.text))
		})
	}
}

func TestDetectCallTimeFullTextVote(t *testing.T) {
	intro := strings.Repeat("x", introChars)
	qa := " Good afternoon, thanks. good afternoon. Good morning."
	assert.Equal(t, models.CallTimeAMC, DetectCallTime(intro+qa))

	tie := intro + " good morning good evening"
	assert.Equal(t, models.CallTimeUnknown, DetectCallTime(tie))
}
