package returns

import (
	"sort"
	"time"

	"EarnRev/internal/domain/models"
)

// MaxReactionGap bounds how far the reaction bar may sit from the event date
// before the date counts as not covered by the price series.
const MaxReactionGap = 7 * 24 * time.Hour

// Reaction locates the bars around an announcement.
type Reaction struct {
	PrevIndex int // T-1, -1 when absent
	Day0Index int // T0, -1 when absent
	Return    *float64
}

// SortBars orders bars ascending by date and drops non-positive closes.
func SortBars(bars []models.PriceBar) []models.PriceBar {
	out := make([]models.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// firstOnOrAfter returns the index of the first bar dated on or after date, or len(bars).
func firstOnOrAfter(bars []models.PriceBar, date time.Time) int {
	return sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(date) })
}

// Day0 computes the announcement reaction for a sorted series.
// Before-open and unknown calls react on the first bar on or after the date
// against the last close before it; after-close calls react on the next bar
// against the close of the announcement day.
func Day0(bars []models.PriceBar, date time.Time, ct models.CallTime) Reaction {
	r := Reaction{PrevIndex: -1, Day0Index: -1}
	i := firstOnOrAfter(bars, date)
	if i >= len(bars) || bars[i].Date.Sub(date) > MaxReactionGap {
		return r
	}
	prev, t0 := i-1, i
	if ct == models.CallTimeAMC {
		prev, t0 = i, i+1
	}
	if t0 >= len(bars) {
		return r
	}
	r.Day0Index = t0
	if prev < 0 {
		return r
	}
	r.PrevIndex = prev
	base := bars[prev].Close
	if base <= 0 {
		return r
	}
	ret := (bars[t0].Close - base) / base
	r.Return = &ret
	return r
}

// Forward computes returns from the T0 close to the close h bars later for
// every horizon. Entries exist for every horizon; return_pct is nil when the
// series is too short.
func Forward(bars []models.PriceBar, day0Index int, dir models.Direction, horizons []int) []models.ForwardReturn {
	out := make([]models.ForwardReturn, 0, len(horizons))
	for _, h := range horizons {
		fr := models.ForwardReturn{Horizon: h}
		if day0Index >= 0 && day0Index < len(bars) {
			start := bars[day0Index]
			fr.StartDate = start.Date.Format(models.DateLayout)
			if end := day0Index + h; end < len(bars) && start.Close > 0 {
				ret := (bars[end].Close - start.Close) / start.Close
				fr.ReturnPct = &ret
				fr.EndDate = bars[end].Date.Format(models.DateLayout)
			}
		}
		fr.Hit = IsHit(dir, fr.ReturnPct)
		out = append(out, fr)
	}
	return out
}

// IsHit reports whether ret moved in the called direction. It is nil when
// there is no call or no return.
func IsHit(dir models.Direction, ret *float64) *bool {
	if dir == models.Neutral || ret == nil {
		return nil
	}
	var hit bool
	switch dir {
	case models.Bullish:
		hit = *ret > 0
	case models.Bearish:
		hit = *ret < 0
	}
	return &hit
}

// HitRates aggregates per-horizon hits across events.
func HitRates(rows [][]models.ForwardReturn, horizons []int) []models.HorizonStats {
	stats := make([]models.HorizonStats, len(horizons))
	pos := make(map[int]int, len(horizons))
	for i, h := range horizons {
		stats[i].Horizon = h
		pos[h] = i
	}
	for _, row := range rows {
		for _, fr := range row {
			i, ok := pos[fr.Horizon]
			if !ok || fr.Hit == nil {
				continue
			}
			stats[i].NumTrades++
			if *fr.Hit {
				stats[i].NumHits++
			}
		}
	}
	for i := range stats {
		if stats[i].NumTrades > 0 {
			rate := float64(stats[i].NumHits) / float64(stats[i].NumTrades)
			stats[i].HitRate = &rate
		}
	}
	return stats
}
