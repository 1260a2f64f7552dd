package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

// BarSink persists whole-market bars. The postgres store satisfies it.
type BarSink interface {
	SaveBatch(ctx context.Context, bars []contracts.Bar) error
}

// IngestJob pulls recent sessions from the upstream provider and
// upserts them into the local mirror. Re-running is safe: the sink
// upserts, so overlapping date ranges converge on the same rows.
type IngestJob struct {
	source   contracts.BarStore
	sink     BarSink
	calendar contracts.Calendar
	logger   *logger.Logger

	backfillSessions int
	now              func() time.Time
}

// NewIngestJob creates a new ingest job covering the most recent
// backfillSessions trading sessions.
func NewIngestJob(source contracts.BarStore, sink BarSink, cal contracts.Calendar, log *logger.Logger) *IngestJob {
	return &IngestJob{
		source:           source,
		sink:             sink,
		calendar:         cal,
		logger:           log,
		backfillSessions: 5,
		now:              time.Now,
	}
}

// Name returns the job name.
func (j *IngestJob) Name() string {
	return "market_ingest"
}

// Schedule returns the cron schedule (weekdays at 4:30 PM, after the
// close).
func (j *IngestJob) Schedule() string {
	return "0 30 16 * * 1-5"
}

// Run fetches each recent session from the provider and saves it. A
// session the provider cannot supply is logged and skipped; the rest of
// the backfill still lands.
func (j *IngestJob) Run(ctx context.Context) error {
	today := j.now()
	sessions := j.calendar.SessionsBack(today.AddDate(0, 0, 1), j.backfillSessions)
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions to ingest")
	}

	var failed int
	var saved int
	for _, session := range sessions {
		bars, err := j.source.FetchSession(ctx, session)
		if err != nil {
			failed++
			j.logger.WithError(err).WithField("session", session.Format("2006-01-02")).
				Warn("Ingest fetch failed for session")
			continue
		}
		if len(bars) == 0 {
			continue
		}

		if err := j.sink.SaveBatch(ctx, bars); err != nil {
			return fmt.Errorf("save session %s: %w", session.Format("2006-01-02"), err)
		}
		saved += len(bars)
	}

	j.logger.WithFields(map[string]interface{}{
		"sessions": len(sessions),
		"failed":   failed,
		"bars":     saved,
	}).Info("Market ingest completed")

	if failed == len(sessions) {
		return fmt.Errorf("all %d sessions failed to ingest", failed)
	}
	return nil
}
