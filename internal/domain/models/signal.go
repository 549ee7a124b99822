package models

import "fmt"

// Direction is the sign of a directional call.
type Direction int

const (
	Bearish Direction = -1
	Neutral Direction = 0
	Bullish Direction = 1
)

// String returns the display label.
func (d Direction) String() string {
	switch d {
	case Bullish:
		return "Bullish"
	case Bearish:
		return "Bearish"
	default:
		return "Neutral"
	}
}

// Score bands.
const (
	ScoreNeutral      = 5.0
	ScoreBullishFloor = 5.5
	ScoreBearishCeil  = 4.5
	ScoreMin          = 0.0
	ScoreMax          = 10.0
)

// SubSignal is the output of one rule evaluator (or the aggregate).
type SubSignal struct {
	Name        string    `json:"name"`
	Direction   Direction `json:"direction"`
	Label       string    `json:"label"`
	Score       float64   `json:"score"`
	Explanation string    `json:"explanation"`
}

// Validate checks the score/direction band convention.
func (s SubSignal) Validate() error {
	if s.Direction < Bearish || s.Direction > Bullish {
		return fmt.Errorf("%s: direction %d out of range", s.Name, s.Direction)
	}
	if s.Score < ScoreMin || s.Score > ScoreMax {
		return fmt.Errorf("%s: score %.2f out of range", s.Name, s.Score)
	}
	switch {
	case s.Direction == Bullish && s.Score <= ScoreBullishFloor,
		s.Direction == Bearish && s.Score >= ScoreBearishCeil,
		s.Direction == Neutral && s.Score != ScoreNeutral:
		return fmt.Errorf("%s: score %.2f inconsistent with %s", s.Name, s.Score, s.Direction)
	}
	return nil
}

// SignalSet holds the five sub-signals in evaluation order and the final call.
type SignalSet struct {
	Subs       []SubSignal `json:"sub_signals"`
	Final      SubSignal   `json:"final_signal"`
	RiskZScore *float64    `json:"risk_zscore"`
}
