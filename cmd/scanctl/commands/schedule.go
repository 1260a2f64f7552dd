package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mdthewzrd/chartscan/internal/marketdata"
	"github.com/mdthewzrd/chartscan/internal/pipeline"
	"github.com/mdthewzrd/chartscan/internal/scheduler"
	"github.com/mdthewzrd/chartscan/internal/scheduler/jobs"
	"github.com/mdthewzrd/chartscan/pkg/httputil"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the job scheduler",
	Long: `Run the background job scheduler.

Jobs:
  market_ingest  - refresh the local bar mirror after the close (weekdays 4:30 PM)
  nightly_scan   - scan the latest session with every pattern (weekdays 5 PM)

The ingest job requires the postgres provider; with the http provider
only the nightly scan is scheduled.

Example:
  scanctl schedule`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runner := pipeline.NewDefault(a.store, a.calendar, a.cfg.Scan, a.log)
	sched := scheduler.New(a.log)

	if err := sched.AddJob(jobs.NewNightlyScanJob(runner, a.calendar, a.log)); err != nil {
		return fmt.Errorf("add nightly scan job: %w", err)
	}

	// Ingest pulls from the upstream HTTP provider into the postgres
	// mirror, so it only makes sense when both sides are configured.
	if a.db != nil && a.cfg.Market.BaseURL != "" {
		source := marketdata.NewHTTPStore(a.cfg, httputil.New(a.log), a.log)
		sink := marketdata.NewPostgresStore(a.db.Pool)
		if err := sched.AddJob(jobs.NewIngestJob(source, sink, a.calendar, a.log)); err != nil {
			return fmt.Errorf("add ingest job: %w", err)
		}
	}

	sched.Start()
	a.log.WithField("jobs", sched.GetAllJobs()).Info("Scheduler running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
