package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Requests for the analysis endpoints and jobs.

type AnalyzeRequest struct {
	Ticker    string `query:"ticker" json:"ticker" validate:"required,max=16"`
	MaxEvents int    `query:"max_events" json:"max_events" default:"8" validate:"gte=1,lte=20"`
}

type ScanRequest struct {
	Tickers   []string `json:"tickers" validate:"required,min=1,max=600,dive,required"`
	MaxEvents int      `json:"max_events" default:"4" validate:"gte=1,lte=20"`
}

// AnalyzeJobPayload is the queue payload for one ticker analysis.
type AnalyzeJobPayload struct {
	Ticker    string `json:"ticker" validate:"required,max=16"`
	MaxEvents int    `json:"max_events" default:"8" validate:"gte=1,lte=20"`
}

var tickerRe = regexp.MustCompile(`^[A-Z]{1,10}(\.[A-Z]{1,4})?$`)

// NormalizeTicker trims and uppercases a symbol and checks its format.
func NormalizeTicker(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if !tickerRe.MatchString(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, raw)
	}
	return t, nil
}
