package models

// ScanHit is one non-neutral call found while scanning a ticker list.
type ScanHit struct {
	Ticker      string   `json:"ticker"`
	Date        string   `json:"date"`
	Score       float64  `json:"score"`
	Direction   string   `json:"direction"`
	Day0Return  *float64 `json:"day0_return"`
	Explanation string   `json:"explanation"`
	Summary     string   `json:"summary"`
}

// Strength is the distance of the call from the neutral score.
func (h ScanHit) Strength() float64 {
	d := h.Score - ScoreNeutral
	if d < 0 {
		return -d
	}
	return d
}

type ScanFailure struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

// ScanReport lists hits strongest first.
type ScanReport struct {
	Scanned  int           `json:"scanned"`
	Hits     []ScanHit     `json:"hits"`
	Failures []ScanFailure `json:"failures,omitempty"`
}

// Count returns the number of bullish and bearish hits.
func (r *ScanReport) Count() (bullish, bearish int) {
	for _, h := range r.Hits {
		if h.Score > ScoreNeutral {
			bullish++
		} else {
			bearish++
		}
	}
	return bullish, bearish
}
