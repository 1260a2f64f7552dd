package contracts

import (
	"context"
	"time"
)

// BarStore supplies whole-market bars for a single session. How bars
// are sourced, rate-limited, or cached is the implementation's concern.
type BarStore interface {
	// FetchSession returns all symbols' bars for one trading session.
	FetchSession(ctx context.Context, date time.Time) ([]Bar, error)
}

// Calendar resolves valid trading sessions. Implementations are
// deterministic and side-effect-free.
type Calendar interface {
	// SessionsBetween returns ordered session dates in [start, end].
	// An inverted range yields an empty slice, never an error.
	SessionsBetween(start, end time.Time) []time.Time

	// SessionsBack returns the n trading sessions strictly before the
	// given date, oldest first.
	SessionsBack(before time.Time, n int) []time.Time

	// IsSession reports whether the date is a trading session.
	IsSession(d time.Time) bool
}
