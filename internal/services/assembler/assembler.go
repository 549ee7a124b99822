package assembler

import (
	"sort"
	"time"

	"EarnRev/internal/domain/models"
	"EarnRev/internal/services/returns"
	"EarnRev/pkg/util"
)

// FiscalLookup resolves a call date to the company's fiscal period.
type FiscalLookup map[string]models.TranscriptDate

// NewFiscalLookup indexes transcript dates by calendar day.
func NewFiscalLookup(dates []models.TranscriptDate) FiscalLookup {
	l := make(FiscalLookup, len(dates))
	for _, d := range dates {
		if d.Date.IsZero() || d.Quarter < 1 || d.Quarter > 4 {
			continue
		}
		l[util.Day(d.Date).Format(models.DateLayout)] = d
	}
	return l
}

// Resolve returns the fiscal year and quarter for date, falling back to the
// calendar quarter when the date is unknown.
func (l FiscalLookup) Resolve(date time.Time) (year, quarter int) {
	if d, ok := l[util.Day(date).Format(models.DateLayout)]; ok {
		return d.FiscalYear, d.Quarter
	}
	return util.CalendarQuarter(date)
}

// Events builds the ordered event list for a ticker: unique by date, ascending,
// capped to the maxEvents most recent when maxEvents > 0.
func Events(ticker string, entries []models.CalendarEntry, lookup FiscalLookup, maxEvents int) []models.EarningsEvent {
	byDate := make(map[string]models.CalendarEntry, len(entries))
	for _, e := range entries {
		if e.Date.IsZero() {
			continue
		}
		key := util.Day(e.Date).Format(models.DateLayout)
		if prev, ok := byDate[key]; ok && completeness(prev) >= completeness(e) {
			continue
		}
		byDate[key] = e
	}

	events := make([]models.EarningsEvent, 0, len(byDate))
	for _, e := range byDate {
		date := util.Day(e.Date)
		year, q := lookup.Resolve(date)
		ct := e.Timing
		if ct == "" {
			ct = models.CallTimeUnknown
		}
		events = append(events, models.EarningsEvent{
			Ticker:          ticker,
			Date:            date,
			FiscalYear:      year,
			FiscalQuarter:   q,
			CallTime:        ct,
			EPSActual:       e.EPSActual,
			EPSEstimate:     e.EPSEstimate,
			RevenueActual:   e.RevenueActual,
			RevenueEstimate: e.RevenueEstimate,
			Day0Index:       -1,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

	if maxEvents > 0 && len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}
	return events
}

// WithTranscript attaches the transcript and refines the call time from it
// unless the source already knew the timing.
func WithTranscript(e models.EarningsEvent, transcript string) models.EarningsEvent {
	e.Transcript = transcript
	if e.CallTime == models.CallTimeUnknown || e.CallTime == "" {
		e.CallTime = DetectCallTime(transcript)
	}
	return e
}

// WithPrices computes the day-0 reaction from a sorted price series.
func WithPrices(e models.EarningsEvent, bars []models.PriceBar) models.EarningsEvent {
	r := returns.Day0(bars, e.Date, e.CallTime)
	e.Day0Return = r.Return
	e.Day0Index = r.Day0Index
	return e
}

func completeness(e models.CalendarEntry) int {
	n := 0
	for _, p := range []*float64{e.EPSActual, e.EPSEstimate, e.RevenueActual, e.RevenueEstimate} {
		if p != nil {
			n++
		}
	}
	return n
}
