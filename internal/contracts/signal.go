package contracts

import "time"

// Signal is one detected pattern match. SessionDate always lies inside
// the spec's output range.
type Signal struct {
	Symbol      string             `json:"symbol"`
	SessionDate time.Time          `json:"session_date"`
	PatternID   string             `json:"pattern_id"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// Status is the terminal state of a scan run.
type Status string

const (
	StatusOK        Status = "ok"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// Diagnostics accumulates per-run counters surfaced to the caller.
type Diagnostics struct {
	SessionsFetched        int   `json:"sessions_fetched"`
	SessionsFailed         int   `json:"sessions_failed"`
	SymbolsConsidered      int   `json:"symbols_considered"`
	SymbolsSurvivingFilter int   `json:"symbols_surviving_filter"`
	ElapsedMS              int64 `json:"elapsed_ms"`
}

// ScanResult is the only artifact returned to the caller. It is always
// well-formed; low-level errors never escape raw.
type ScanResult struct {
	Status      Status      `json:"status"`
	Reason      string      `json:"reason,omitempty"`
	Signals     []Signal    `json:"signals"`
	Diagnostics Diagnostics `json:"diagnostics"`
}
