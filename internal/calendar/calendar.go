package calendar

import (
	"time"
)

// Service resolves valid trading sessions between two dates. Weekends
// and the configured holiday set are excluded. Deterministic and
// side-effect-free.
type Service struct {
	holidays map[string]struct{}
}

// New creates a calendar service. Holidays are ISO dates; malformed
// entries are ignored.
func New(holidays []string) *Service {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			continue
		}
		set[h] = struct{}{}
	}
	return &Service{holidays: set}
}

// SessionsBetween returns ordered session dates in [start, end].
// An invalid or inverted range returns an empty slice, never an error,
// so downstream stages treat "no sessions" as a normal degenerate case.
func (s *Service) SessionsBetween(start, end time.Time) []time.Time {
	if start.IsZero() || end.IsZero() || start.After(end) {
		return nil
	}

	var sessions []time.Time
	for d := truncate(start); !d.After(truncate(end)); d = d.AddDate(0, 0, 1) {
		if s.IsSession(d) {
			sessions = append(sessions, d)
		}
	}
	return sessions
}

// SessionsBack returns the n trading sessions strictly before the given
// date, oldest first.
func (s *Service) SessionsBack(before time.Time, n int) []time.Time {
	if before.IsZero() || n <= 0 {
		return nil
	}

	sessions := make([]time.Time, 0, n)
	for d := truncate(before).AddDate(0, 0, -1); len(sessions) < n; d = d.AddDate(0, 0, -1) {
		if s.IsSession(d) {
			sessions = append(sessions, d)
		}
	}

	// Collected newest first; reverse to oldest first.
	for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
		sessions[i], sessions[j] = sessions[j], sessions[i]
	}
	return sessions
}

// IsSession reports whether the date is a trading session.
func (s *Service) IsSession(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := s.holidays[d.Format("2006-01-02")]
	return !holiday
}

func truncate(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
