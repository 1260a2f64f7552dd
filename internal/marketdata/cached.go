package marketdata

import (
	"context"
	"time"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/pkg/logger"
	"github.com/mdthewzrd/chartscan/pkg/redis"
)

// CachedStore wraps a BarStore with a Redis cache keyed by session
// date. Grouped-daily responses are immutable once a session closes,
// so the TTL can be long.
type CachedStore struct {
	next   contracts.BarStore
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedStore creates a caching wrapper around next.
func NewCachedStore(next contracts.BarStore, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &CachedStore{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithField("module", "marketdata_cache"),
	}
}

// FetchSession serves from cache when possible, falling through to the
// wrapped store on a miss. Cache failures degrade to the wrapped store,
// never to a fetch failure.
func (s *CachedStore) FetchSession(ctx context.Context, date time.Time) ([]contracts.Bar, error) {
	key := "session:" + date.Format("2006-01-02")

	var cached []contracts.Bar
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WithError(err).Warn("Session cache read failed")
	}
	if hit {
		return cached, nil
	}

	bars, err := s.next.FetchSession(ctx, date)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, bars, s.ttl); err != nil {
		s.logger.WithError(err).Warn("Session cache write failed")
	}

	return bars, nil
}
