package contracts

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSpec marks scan specs rejected before any work begins.
var ErrInvalidSpec = errors.New("invalid scan spec")

// ScanSpec is the configuration driving one scan. Created once per
// request and immutable thereafter.
type ScanSpec struct {
	PatternID   string    `json:"pattern_id"`
	OutputStart time.Time `json:"output_start"`
	OutputEnd   time.Time `json:"output_end"`

	// LookbackDays is the longest historical window, in trading
	// sessions, any predicate of the pattern needs.
	LookbackDays int `json:"lookback_days"`

	// ExclusionDays excludes the most recent N sessions from a lookback
	// window so a breakout cannot trivially match its own trigger day.
	ExclusionDays int `json:"exclusion_days"`

	// Thresholds are pattern-specific numeric parameters.
	Thresholds map[string]float64 `json:"thresholds"`

	// Worker and budget overrides. Zero means "use configured default".
	MaxFetchWorkers  int           `json:"max_fetch_workers"`
	MaxDetectWorkers int           `json:"max_detect_workers"`
	Timeout          time.Duration `json:"-"`
}

// Validate rejects malformed specs. Failing specs never reach the
// fetch stage.
func (s *ScanSpec) Validate() error {
	if s.PatternID == "" {
		return fmt.Errorf("%w: pattern_id is required", ErrInvalidSpec)
	}
	if s.OutputStart.IsZero() || s.OutputEnd.IsZero() {
		return fmt.Errorf("%w: output_start and output_end are required", ErrInvalidSpec)
	}
	if s.OutputStart.After(s.OutputEnd) {
		return fmt.Errorf("%w: output_start %s after output_end %s",
			ErrInvalidSpec,
			s.OutputStart.Format("2006-01-02"),
			s.OutputEnd.Format("2006-01-02"))
	}
	if s.LookbackDays < 0 {
		return fmt.Errorf("%w: lookback_days must be >= 0, got %d", ErrInvalidSpec, s.LookbackDays)
	}
	if s.ExclusionDays < 0 {
		return fmt.Errorf("%w: exclusion_days must be >= 0, got %d", ErrInvalidSpec, s.ExclusionDays)
	}
	if s.MaxFetchWorkers < 0 || s.MaxDetectWorkers < 0 {
		return fmt.Errorf("%w: worker counts must be >= 0", ErrInvalidSpec)
	}
	for key, v := range s.Thresholds {
		if key == "" {
			return fmt.Errorf("%w: empty threshold key", ErrInvalidSpec)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: threshold %q is not a finite number", ErrInvalidSpec, key)
		}
	}
	return nil
}

// Threshold returns a named threshold, or def when the spec omits it.
func (s *ScanSpec) Threshold(key string, def float64) float64 {
	if v, ok := s.Thresholds[key]; ok {
		return v
	}
	return def
}

// InOutputRange reports whether a session date falls inside the
// caller-specified output window.
func (s *ScanSpec) InOutputRange(date time.Time) bool {
	return !date.Before(s.OutputStart) && !date.After(s.OutputEnd)
}
