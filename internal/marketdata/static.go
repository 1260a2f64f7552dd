package marketdata

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/mdthewzrd/chartscan/internal/contracts"
)

// ErrSessionUnavailable marks a session the store cannot supply.
var ErrSessionUnavailable = errors.New("session unavailable")

// StaticStore serves bars from an in-memory map keyed by session date.
// It is deterministic, which makes it the store of choice for tests and
// for replaying recorded sessions.
type StaticStore struct {
	sessions map[string][]contracts.Bar
	failing  map[string]struct{}
	calls    atomic.Int64
}

// NewStaticStore creates an empty static store.
func NewStaticStore() *StaticStore {
	return &StaticStore{
		sessions: make(map[string][]contracts.Bar),
		failing:  make(map[string]struct{}),
	}
}

// Add registers bars under their own session dates.
func (s *StaticStore) Add(bars ...contracts.Bar) *StaticStore {
	for _, b := range bars {
		key := b.SessionDate.Format("2006-01-02")
		s.sessions[key] = append(s.sessions[key], b)
	}
	return s
}

// FailSession makes retrieval of one session return an error.
func (s *StaticStore) FailSession(date time.Time) *StaticStore {
	s.failing[date.Format("2006-01-02")] = struct{}{}
	return s
}

// FetchSession returns the registered bars for a session. Sessions with
// no registered bars return an empty slice.
func (s *StaticStore) FetchSession(ctx context.Context, date time.Time) ([]contracts.Bar, error) {
	s.calls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := date.Format("2006-01-02")
	if _, failed := s.failing[key]; failed {
		return nil, ErrSessionUnavailable
	}

	bars := s.sessions[key]
	out := make([]contracts.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

// FetchCalls returns how many times FetchSession was invoked.
func (s *StaticStore) FetchCalls() int64 {
	return s.calls.Load()
}
