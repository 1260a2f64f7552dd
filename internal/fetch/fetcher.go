package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/frame"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

// ExpandedRange is the output range widened backwards by the lookback
// buffer, resolved against the trading calendar. Lookback windows are
// measured in trading sessions, so the buffer must be too; over-fetching
// is tolerated, under-fetching never is.
type ExpandedRange struct {
	FetchStart time.Time
	FetchEnd   time.Time
	Sessions   []time.Time
}

// Stats counts the outcome of one fetch pass.
type Stats struct {
	SessionsFetched int
	SessionsFailed  int
}

// Fetcher retrieves whole-market bars for every session in an expanded
// range, one retrieval task per session, concurrently up to a bounded
// worker count.
type Fetcher struct {
	store    contracts.BarStore
	calendar contracts.Calendar
	logger   *logger.Logger

	// sessionTimeout bounds a single session's retrieval so one slow
	// session cannot stall the whole fetch.
	sessionTimeout time.Duration
	// bufferSessions is the extra history fetched beyond the longest
	// lookback window.
	bufferSessions int
}

// New creates a fetcher. The store is passed in explicitly; there is no
// process-wide data-source state.
func New(store contracts.BarStore, cal contracts.Calendar, sessionTimeout time.Duration, bufferSessions int, log *logger.Logger) *Fetcher {
	if sessionTimeout <= 0 {
		sessionTimeout = 30 * time.Second
	}
	if bufferSessions < 0 {
		bufferSessions = 0
	}
	return &Fetcher{
		store:          store,
		calendar:       cal,
		logger:         log.WithField("module", "fetch"),
		sessionTimeout: sessionTimeout,
		bufferSessions: bufferSessions,
	}
}

// ExpandRange resolves the sessions to fetch for a spec: every session
// in the output range plus lookback+buffer sessions of history before
// it, all taken from the trading calendar.
func (f *Fetcher) ExpandRange(spec *contracts.ScanSpec) ExpandedRange {
	output := f.calendar.SessionsBetween(spec.OutputStart, spec.OutputEnd)

	history := f.calendar.SessionsBack(spec.OutputStart, spec.LookbackDays+spec.ExclusionDays+f.bufferSessions)

	sessions := make([]time.Time, 0, len(history)+len(output))
	sessions = append(sessions, history...)
	sessions = append(sessions, output...)

	er := ExpandedRange{FetchEnd: spec.OutputEnd, Sessions: sessions}
	if len(sessions) > 0 {
		er.FetchStart = sessions[0]
	} else {
		er.FetchStart = spec.OutputStart
	}
	return er
}

type sessionResult struct {
	date time.Time
	bars []contracts.Bar
	err  error
}

// Fetch retrieves all sessions of the expanded range and combines them
// into one table sorted by (symbol, session date), so the result is
// deterministic regardless of completion order. A single session's
// failure contributes no rows and is never fatal: reporting fewer
// signals beats failing a whole-market scan over one bad day.
func (f *Fetcher) Fetch(ctx context.Context, er ExpandedRange, workers int) (*frame.Table, Stats) {
	stats := Stats{}
	if len(er.Sessions) == 0 {
		return frame.FromBars(nil), stats
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(er.Sessions) {
		workers = len(er.Sessions)
	}

	f.logger.WithFields(map[string]interface{}{
		"fetch_start": er.FetchStart.Format("2006-01-02"),
		"fetch_end":   er.FetchEnd.Format("2006-01-02"),
		"sessions":    len(er.Sessions),
		"workers":     workers,
	}).Info("Starting session fetch")

	jobCh := make(chan time.Time, len(er.Sessions))
	resultCh := make(chan sessionResult, len(er.Sessions))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for date := range jobCh {
				resultCh <- f.fetchOne(ctx, date)
			}
		}()
	}

	for _, date := range er.Sessions {
		jobCh <- date
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var bars []contracts.Bar
	for res := range resultCh {
		if res.err != nil {
			stats.SessionsFailed++
			f.logger.WithError(res.err).WithField("date", res.date.Format("2006-01-02")).
				Warn("Session fetch failed, continuing without it")
			continue
		}
		stats.SessionsFetched++
		bars = append(bars, res.bars...)
	}

	f.logger.WithFields(map[string]interface{}{
		"fetched": stats.SessionsFetched,
		"failed":  stats.SessionsFailed,
		"rows":    len(bars),
	}).Info("Session fetch completed")

	return frame.FromBars(bars), stats
}

// fetchOne retrieves a single session under its own timeout.
func (f *Fetcher) fetchOne(ctx context.Context, date time.Time) sessionResult {
	fetchCtx, cancel := context.WithTimeout(ctx, f.sessionTimeout)
	defer cancel()

	bars, err := f.store.FetchSession(fetchCtx, date)
	return sessionResult{date: date, bars: bars, err: err}
}
