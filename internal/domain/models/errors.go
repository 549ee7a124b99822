package models

import "errors"

var (
	// ErrInvalidTicker is returned when a symbol fails format or upstream validation.
	ErrInvalidTicker = errors.New("invalid ticker")
	// ErrNoEventsFound is returned when no earnings events are discoverable for a ticker.
	ErrNoEventsFound = errors.New("no earnings events found")
	// ErrExtractionFailed marks a feature-extraction call that errored or returned malformed output.
	ErrExtractionFailed = errors.New("feature extraction failed")
	// ErrDataUnavailable marks missing upstream data for a single call.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrUpstream wraps provider transport failures.
	ErrUpstream = errors.New("upstream provider error")
)
