package pipeline

import (
	"context"
	"time"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/detect"
	"github.com/mdthewzrd/chartscan/internal/features"
	"github.com/mdthewzrd/chartscan/internal/fetch"
	"github.com/mdthewzrd/chartscan/internal/rangefilter"
	"github.com/mdthewzrd/chartscan/pkg/config"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

// Runner wires the five-stage scan pipeline:
// fetch -> simple features -> range filter -> full features -> detect.
// It is the only entry point external collaborators call. A run either
// completes end to end or is abandoned; there is no retry state and no
// partial-completion resumption.
type Runner struct {
	fetcher  *fetch.Fetcher
	simple   *features.SimpleStage
	filter   *rangefilter.Stage
	full     *features.FullStage
	detector *detect.Detector

	defaults config.ScanConfig
	logger   *logger.Logger
}

// New creates a pipeline runner.
func New(
	fetcher *fetch.Fetcher,
	simple *features.SimpleStage,
	filter *rangefilter.Stage,
	full *features.FullStage,
	detector *detect.Detector,
	defaults config.ScanConfig,
	log *logger.Logger,
) *Runner {
	return &Runner{
		fetcher:  fetcher,
		simple:   simple,
		filter:   filter,
		full:     full,
		detector: detector,
		defaults: defaults,
		logger:   log.WithField("module", "pipeline"),
	}
}

// NewDefault assembles a runner with the standard stage implementations
// around the given store and calendar.
func NewDefault(store contracts.BarStore, cal contracts.Calendar, cfg config.ScanConfig, log *logger.Logger) *Runner {
	return New(
		fetch.New(store, cal, cfg.SessionTimeout, cfg.BufferSessions, log),
		features.NewSimpleStage(0, log),
		rangefilter.New(log),
		features.NewFullStage(log),
		detect.New(detect.NewRegistry(), log),
		cfg,
		log,
	)
}

// Patterns returns the pattern IDs this runner can scan for.
func (r *Runner) Patterns() []string {
	return r.detector.Patterns()
}

// RunScan executes one scan. The caller always receives a well-formed
// result; low-level errors never escape raw. Invalid specs fail fast
// before any fetch occurs.
func (r *Runner) RunScan(ctx context.Context, spec *contracts.ScanSpec) contracts.ScanResult {
	start := time.Now()
	result := contracts.ScanResult{
		Status:  contracts.StatusOK,
		Signals: []contracts.Signal{},
	}

	finish := func(res contracts.ScanResult) contracts.ScanResult {
		res.Diagnostics.ElapsedMS = time.Since(start).Milliseconds()
		return res
	}

	// Fail fast on malformed specs, before any fetch.
	if err := spec.Validate(); err != nil {
		result.Status = contracts.StatusError
		result.Reason = err.Error()
		r.logger.WithError(err).Warn("Scan spec rejected")
		return finish(result)
	}

	fetchWorkers := spec.MaxFetchWorkers
	if fetchWorkers <= 0 {
		fetchWorkers = r.defaults.FetchWorkers
	}
	detectWorkers := spec.MaxDetectWorkers
	if detectWorkers <= 0 {
		detectWorkers = r.defaults.DetectWorkers
	}
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.defaults.Timeout
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.logger.WithFields(map[string]interface{}{
		"pattern":        spec.PatternID,
		"output_start":   spec.OutputStart.Format("2006-01-02"),
		"output_end":     spec.OutputEnd.Format("2006-01-02"),
		"lookback_days":  spec.LookbackDays,
		"fetch_workers":  fetchWorkers,
		"detect_workers": detectWorkers,
	}).Info("Starting scan")

	// Stage 1: fetch. Ownership of the combined table transfers fully
	// at each stage boundary, so no stage needs locks.
	expanded := r.fetcher.ExpandRange(spec)
	table, stats := r.fetcher.Fetch(runCtx, expanded, fetchWorkers)
	result.Diagnostics.SessionsFetched = stats.SessionsFetched
	result.Diagnostics.SessionsFailed = stats.SessionsFailed

	// Cancellation is cooperative and checked between stages only;
	// partial per-symbol results are not useful on their own.
	if cancelled(runCtx) {
		return finish(r.cancelledResult(result))
	}

	// Stage 2: simple features over the full expanded table.
	r.simple.Compute(table)

	if cancelled(runCtx) {
		return finish(r.cancelledResult(result))
	}

	// Stage 3: coarse range filter.
	filtered := r.filter.Apply(table, spec)
	result.Diagnostics.SymbolsConsidered = filtered.SymbolsConsidered
	result.Diagnostics.SymbolsSurvivingFilter = filtered.SymbolsSurvivingFilter

	if cancelled(runCtx) {
		return finish(r.cancelledResult(result))
	}

	// Stage 4: full features over surviving symbols with history intact.
	r.full.Compute(filtered.Table)

	if cancelled(runCtx) {
		return finish(r.cancelledResult(result))
	}

	// Stage 5: detection.
	signals, err := r.detector.Detect(runCtx, filtered.Table, spec, detectWorkers)
	if err != nil {
		if cancelled(runCtx) {
			return finish(r.cancelledResult(result))
		}
		result.Status = contracts.StatusError
		result.Reason = err.Error()
		r.logger.WithError(err).Error("Detection failed")
		return finish(result)
	}

	result.Signals = r.assertOutputRange(signals, spec)

	r.logger.WithFields(map[string]interface{}{
		"pattern":    spec.PatternID,
		"signals":    len(result.Signals),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("Scan completed")

	return finish(result)
}

// assertOutputRange is the final guard on the hard invariant that no
// signal references a session outside the output range. The detector's
// early exit should make this a no-op; a violation here means a bug,
// so it is logged loudly and the offending signal dropped.
func (r *Runner) assertOutputRange(signals []contracts.Signal, spec *contracts.ScanSpec) []contracts.Signal {
	out := signals[:0]
	for _, sig := range signals {
		if !spec.InOutputRange(sig.SessionDate) {
			r.logger.WithFields(map[string]interface{}{
				"symbol":       sig.Symbol,
				"session_date": sig.SessionDate.Format("2006-01-02"),
			}).Error("Signal outside output range dropped, this is a bug")
			continue
		}
		out = append(out, sig)
	}
	if out == nil {
		out = []contracts.Signal{}
	}
	return out
}

func (r *Runner) cancelledResult(result contracts.ScanResult) contracts.ScanResult {
	result.Status = contracts.StatusCancelled
	result.Reason = "scan cancelled"
	r.logger.Warn("Scan cancelled between stages")
	return result
}

func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}
