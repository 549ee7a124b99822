package models

// Horizons are the forward windows, in trading days.
var Horizons = []int{5, 10, 30, 60}

// ForwardReturn is the realized move over one horizon after the reaction bar.
type ForwardReturn struct {
	Horizon   int      `json:"horizon"`
	ReturnPct *float64 `json:"return_pct"`
	Hit       *bool    `json:"hit"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
}

// HorizonStats aggregates hits for one horizon across a ticker's events.
type HorizonStats struct {
	Horizon   int      `json:"horizon"`
	NumTrades int      `json:"num_trades"`
	NumHits   int      `json:"num_hits"`
	HitRate   *float64 `json:"hit_rate"`
}

// AnalysisSummary exposes result completeness and hit rates.
type AnalysisSummary struct {
	TotalEventsFound  int            `json:"total_events_found"`
	EventsAnalyzed    int            `json:"events_analyzed"`
	EventsWithSignals int            `json:"events_with_signals"`
	HitRates          []HorizonStats `json:"hit_rates"`
}

// EventStatus records what went right or wrong for a single event.
type EventStatus struct {
	Success             bool   `json:"success"`
	TranscriptAvailable bool   `json:"transcript_available"`
	ExtractionSuccess   bool   `json:"extraction_success"`
	ErrorMessage        string `json:"error_message,omitempty"`
}

// EventResult is the presentation record for one earnings event.
type EventResult struct {
	Ticker          string          `json:"ticker"`
	Date            string          `json:"date"`
	Quarter         string          `json:"quarter"`
	FiscalYear      int             `json:"fiscal_year"`
	FiscalQuarter   int             `json:"fiscal_quarter"`
	CallTime        CallTime        `json:"call_time"`
	EPSActual       *float64        `json:"eps_actual"`
	EPSEstimate     *float64        `json:"eps_estimate"`
	RevenueActual   *float64        `json:"revenue_actual"`
	RevenueEstimate *float64        `json:"revenue_estimate"`
	Day0Return      *float64        `json:"day0_return"`
	Features        FeatureBundle   `json:"features"`
	Signals         SignalSet       `json:"signals"`
	ForwardReturns  []ForwardReturn `json:"forward_returns"`
	Status          EventStatus     `json:"status"`
}

// AnalysisResult is the full backtest for one ticker, events oldest first.
type AnalysisResult struct {
	Ticker  string          `json:"ticker"`
	Events  []EventResult   `json:"events"`
	Summary AnalysisSummary `json:"summary"`
}
