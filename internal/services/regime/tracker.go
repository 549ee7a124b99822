package regime

import (
	"math"
	"time"
)

// MinPriorEntries is the history length required before a z-score exists.
const MinPriorEntries = 4

// Entry is one quarter's risk-language intensity.
type Entry struct {
	Date  time.Time
	Score float64
}

// Tracker is a per-ticker rolling record of risk_focus_score, oldest first.
// It is owned by a single analysis run and is not safe for concurrent use.
type Tracker struct {
	entries []Entry
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Len returns the number of recorded entries.
func (t *Tracker) Len() int { return len(t.entries) }

// Entries returns a copy of the history.
func (t *Tracker) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ZScore scores current against all recorded entries using the sample
// standard deviation. It returns nil with fewer than MinPriorEntries entries
// or when the history has zero variance.
func (t *Tracker) ZScore(current float64) *float64 {
	mean, sd, ok := t.stats()
	if !ok || sd == 0 {
		return nil
	}
	z := (current - mean) / sd
	return &z
}

// Observe scores current against the prior history, then appends it.
// Callers must observe events in chronological order.
func (t *Tracker) Observe(date time.Time, current float64) *float64 {
	z := t.ZScore(current)
	t.entries = append(t.entries, Entry{Date: date, Score: current})
	return z
}

// ZeroVariance reports whether there is enough history but it is flat.
func (t *Tracker) ZeroVariance() bool {
	_, sd, ok := t.stats()
	return ok && sd == 0
}

func (t *Tracker) stats() (mean, sd float64, ok bool) {
	n := len(t.entries)
	if n < MinPriorEntries {
		return 0, 0, false
	}
	for _, e := range t.entries {
		mean += e.Score
	}
	mean /= float64(n)
	var ss float64
	for _, e := range t.entries {
		d := e.Score - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n-1)), true
}
