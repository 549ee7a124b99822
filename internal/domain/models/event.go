package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// CallTime tells whether the call happened before the open or after the close.
type CallTime string

const (
	CallTimeBMO     CallTime = "BMO"
	CallTimeAMC     CallTime = "AMC"
	CallTimeUnknown CallTime = "unknown"
)

// ParseCallTime maps provider timing labels to a CallTime.
func ParseCallTime(s string) CallTime {
	switch s {
	case "BMO", "bmo", "pre-market", "premarket":
		return CallTimeBMO
	case "AMC", "amc", "after-market", "aftermarket":
		return CallTimeAMC
	default:
		return CallTimeUnknown
	}
}

// CalendarEntry is one raw earnings-calendar row.
type CalendarEntry struct {
	Symbol          string
	Date            time.Time
	EPSActual       *float64
	EPSEstimate     *float64
	RevenueActual   *float64
	RevenueEstimate *float64
	// Timing is set when the source knows it; empty otherwise.
	Timing CallTime
}

// PriceBar is one daily OHLCV bar.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// TranscriptDate maps a call date to the company's fiscal period.
type TranscriptDate struct {
	Date       time.Time
	FiscalYear int
	Quarter    int
}

// EarningsEvent is one earnings announcement, immutable once assembled.
type EarningsEvent struct {
	Ticker          string
	Date            time.Time
	FiscalYear      int
	FiscalQuarter   int
	CallTime        CallTime
	EPSActual       *float64
	EPSEstimate     *float64
	RevenueActual   *float64
	RevenueEstimate *float64
	Day0Return      *float64
	// Day0Index is the position of the reaction bar (T0) in the price series, -1 if absent.
	Day0Index int
	Transcript string
}

// QuarterLabel renders the fiscal period, e.g. "Q3 2024".
func (e EarningsEvent) QuarterLabel() string {
	return fmt.Sprintf("Q%d %d", e.FiscalQuarter, e.FiscalYear)
}

// DateString returns the event date in DateLayout.
func (e EarningsEvent) DateString() string {
	return e.Date.Format(DateLayout)
}

// HasPriceData reports whether the event has a usable day-0 reaction.
func (e EarningsEvent) HasPriceData() bool {
	return e.Day0Return != nil
}

// EPSSurprise returns the relative surprise (actual-estimate)/|estimate|.
// ok is false when either side is missing.
func (e EarningsEvent) EPSSurprise() (surprise float64, ok bool) {
	if e.EPSActual == nil || e.EPSEstimate == nil {
		return 0, false
	}
	diff := *e.EPSActual - *e.EPSEstimate
	if *e.EPSEstimate == 0 {
		return diff, true
	}
	est := *e.EPSEstimate
	if est < 0 {
		est = -est
	}
	return diff / est, true
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
