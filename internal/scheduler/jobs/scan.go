package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/pipeline"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

// NightlyScanJob runs every registered pattern against the most recent
// completed session and logs the resulting signals. It is the
// after-close sweep that keeps an eye on the whole market without
// anyone having to fire scans by hand.
type NightlyScanJob struct {
	runner   *pipeline.Runner
	calendar contracts.Calendar
	logger   *logger.Logger

	lookbackDays  int
	exclusionDays int
	now           func() time.Time
}

// NewNightlyScanJob creates a new nightly scan job.
func NewNightlyScanJob(runner *pipeline.Runner, cal contracts.Calendar, log *logger.Logger) *NightlyScanJob {
	return &NightlyScanJob{
		runner:        runner,
		calendar:      cal,
		logger:        log,
		lookbackDays:  20,
		exclusionDays: 1,
		now:           time.Now,
	}
}

// Name returns the job name.
func (j *NightlyScanJob) Name() string {
	return "nightly_scan"
}

// Schedule returns the cron schedule (weekdays at 5 PM, after the
// ingest job has refreshed the mirror).
func (j *NightlyScanJob) Schedule() string {
	return "0 0 17 * * 1-5"
}

// Run scans the latest completed session with every known pattern.
func (j *NightlyScanJob) Run(ctx context.Context) error {
	session := j.latestSession()
	if session.IsZero() {
		return fmt.Errorf("no recent trading session found")
	}

	j.logger.WithField("session", session.Format("2006-01-02")).Info("Starting nightly scan")

	var failed int
	for _, pattern := range j.runner.Patterns() {
		spec := &contracts.ScanSpec{
			PatternID:     pattern,
			OutputStart:   session,
			OutputEnd:     session,
			LookbackDays:  j.lookbackDays,
			ExclusionDays: j.exclusionDays,
		}

		result := j.runner.RunScan(ctx, spec)
		if result.Status != contracts.StatusOK {
			failed++
			j.logger.WithFields(map[string]interface{}{
				"pattern": pattern,
				"status":  string(result.Status),
				"reason":  result.Reason,
			}).Error("Nightly scan failed for pattern")
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"pattern":    pattern,
			"signals":    len(result.Signals),
			"elapsed_ms": result.Diagnostics.ElapsedMS,
		}).Info("Nightly scan completed for pattern")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pattern scans failed", failed, len(j.runner.Patterns()))
	}
	return nil
}

// latestSession walks back from today to the most recent session,
// today included when it is one.
func (j *NightlyScanJob) latestSession() time.Time {
	d := j.now()
	for i := 0; i < 10; i++ {
		if j.calendar.IsSession(d) {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		}
		d = d.AddDate(0, 0, -1)
	}
	return time.Time{}
}
