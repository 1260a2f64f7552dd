package detect

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/frame"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

// Detector walks each surviving symbol's session sequence and evaluates
// the spec's pattern predicate on output-range sessions. Symbols are
// statically partitioned across a bounded worker pool before detection
// begins, so no worker ever touches another worker's frames and no
// shared mutable state exists between them.
type Detector struct {
	registry *Registry
	logger   *logger.Logger
}

// New creates a detector backed by the given predicate registry.
func New(registry *Registry, log *logger.Logger) *Detector {
	return &Detector{
		registry: registry,
		logger:   log.WithField("module", "detect"),
	}
}

// Patterns returns the IDs of the pattern families this detector can
// evaluate, sorted.
func (d *Detector) Patterns() []string {
	return d.registry.IDs()
}

// Detect evaluates the spec's pattern over the table and returns
// signals ordered by (session date, symbol), regardless of worker
// completion order. A panic inside one symbol's evaluation is contained
// and logged; one symbol's defect must not invalidate a whole-market
// scan.
func (d *Detector) Detect(ctx context.Context, table *frame.Table, spec *contracts.ScanSpec, workers int) ([]contracts.Signal, error) {
	predicate, err := d.registry.Lookup(spec.PatternID)
	if err != nil {
		return nil, err
	}

	frames := table.Frames()
	if len(frames) == 0 {
		return []contracts.Signal{}, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(frames) {
		workers = len(frames)
	}

	d.logger.WithFields(map[string]interface{}{
		"pattern": spec.PatternID,
		"symbols": len(frames),
		"workers": workers,
	}).Info("Starting detection")

	// Static partition: worker w owns frames w, w+workers, w+2*workers...
	results := make([][]contracts.Signal, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			var signals []contracts.Signal
			for i := w; i < len(frames); i += workers {
				signals = append(signals, d.detectFrame(frames[i], predicate, spec)...)
			}
			results[w] = signals
		}(w)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var signals []contracts.Signal
	for _, part := range results {
		signals = append(signals, part...)
	}
	sortSignals(signals)
	if signals == nil {
		signals = []contracts.Signal{}
	}

	d.logger.WithFields(map[string]interface{}{
		"pattern": spec.PatternID,
		"signals": len(signals),
	}).Info("Detection completed")

	return signals, nil
}

// detectFrame scans one symbol's frame. Sessions outside the output
// range are skipped before any predicate work: the detector must never
// emit a signal for a historical session, and the date check is far
// cheaper than a predicate evaluation.
func (d *Detector) detectFrame(f *frame.SymbolFrame, predicate Predicate, spec *contracts.ScanSpec) (signals []contracts.Signal) {
	defer func() {
		if r := recover(); r != nil {
			signals = nil
			d.logger.WithFields(map[string]interface{}{
				"symbol": f.Symbol,
				"panic":  fmt.Sprint(r),
			}).Error("Detection panicked for symbol, dropping its signals")
		}
	}()

	for i := range f.Rows {
		row := f.Rows[i]
		if !spec.InOutputRange(row.SessionDate) {
			continue
		}

		window := f.Window(i, spec.LookbackDays, spec.ExclusionDays)
		metrics, matched := predicate.Evaluate(row, window, spec)
		if !matched {
			continue
		}

		signals = append(signals, contracts.Signal{
			Symbol:      f.Symbol,
			SessionDate: row.SessionDate,
			PatternID:   spec.PatternID,
			Metrics:     metrics,
		})
	}
	return signals
}

// sortSignals orders by (session date, symbol) ascending.
func sortSignals(signals []contracts.Signal) {
	sort.Slice(signals, func(i, j int) bool {
		if !signals[i].SessionDate.Equal(signals[j].SessionDate) {
			return signals[i].SessionDate.Before(signals[j].SessionDate)
		}
		return signals[i].Symbol < signals[j].Symbol
	})
}
