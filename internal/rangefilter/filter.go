package rangefilter

import (
	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/frame"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

// Threshold keys recognized by the coarse filter.
const (
	ThresholdMinPrevClose    = "min_prev_close"
	ThresholdMinDollarVolume = "min_dollar_volume"
)

// Stage applies coarse thresholds to candidate-output rows only.
// Historical rows pass through untouched: they exist solely to supply
// lookback context for symbols whose output rows survive, and filtering
// them would silently starve the detector of exactly that context.
type Stage struct {
	logger *logger.Logger
}

// Result carries the recombined table plus the counters the pipeline
// reports.
type Result struct {
	Table                  *frame.Table
	SymbolsConsidered      int
	SymbolsSurvivingFilter int
}

// New creates the range filter stage.
func New(log *logger.Logger) *Stage {
	return &Stage{logger: log.WithField("module", "rangefilter")}
}

// Apply partitions the table into historical and candidate-output rows,
// filters only the candidate rows against the spec's coarse thresholds,
// and recombines with the full historical set preserved.
func (s *Stage) Apply(table *frame.Table, spec *contracts.ScanSpec) Result {
	historical, candidate := table.Partition(spec.OutputStart, spec.OutputEnd)

	considered := countSymbols(candidate)

	minPrevClose, hasPrevClose := spec.Thresholds[ThresholdMinPrevClose]
	minDollarVol, hasDollarVol := spec.Thresholds[ThresholdMinDollarVolume]

	filtered := &frame.Table{Rows: make([]frame.Row, 0, len(candidate.Rows))}
	for _, r := range candidate.Rows {
		if hasPrevClose && r.PrevClose < minPrevClose {
			continue
		}
		if hasDollarVol && r.AvgDollarVol < minDollarVol {
			continue
		}
		filtered.Rows = append(filtered.Rows, r)
	}

	surviving := countSymbols(filtered)

	s.logger.WithFields(map[string]interface{}{
		"candidate_rows":   len(candidate.Rows),
		"filtered_rows":    len(filtered.Rows),
		"historical_rows":  len(historical.Rows),
		"symbols_in":       considered,
		"symbols_out":      surviving,
	}).Info("Coarse filter applied")

	return Result{
		Table:                  frame.Merge(historical, filtered),
		SymbolsConsidered:      considered,
		SymbolsSurvivingFilter: surviving,
	}
}

// countSymbols counts distinct symbols without assuming sort order.
func countSymbols(t *frame.Table) int {
	seen := make(map[string]struct{}, 64)
	for _, r := range t.Rows {
		seen[r.Symbol] = struct{}{}
	}
	return len(seen)
}
