package detect

import (
	"fmt"
	"sort"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/frame"
)

// Predicate evaluates one candidate session against a pattern family.
// The row is the candidate session; window holds the lookback rows the
// spec's parameters selected. Predicates are pure and safe for
// concurrent use across symbols.
type Predicate interface {
	ID() string
	// Evaluate returns the signal metrics and whether the pattern
	// matched. An empty window must not cause a failure, only a miss.
	Evaluate(row frame.Row, window []frame.Row, spec *contracts.ScanSpec) (map[string]float64, bool)
}

// Registry maps pattern IDs to predicates. Pattern families are tagged
// variants selected by ID, not a subclass hierarchy.
type Registry struct {
	predicates map[string]Predicate
}

// NewRegistry creates a registry preloaded with the built-in pattern
// families.
func NewRegistry() *Registry {
	r := &Registry{predicates: make(map[string]Predicate)}
	r.Register(HighestHighBreakout{})
	r.Register(GapUp{})
	r.Register(VolatilityContraction{})
	return r
}

// Register adds a predicate. Later registrations replace earlier ones
// with the same ID.
func (r *Registry) Register(p Predicate) {
	r.predicates[p.ID()] = p
}

// Lookup resolves a pattern ID.
func (r *Registry) Lookup(patternID string) (Predicate, error) {
	p, ok := r.predicates[patternID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown pattern_id %q (known: %v)",
			contracts.ErrInvalidSpec, patternID, r.IDs())
	}
	return p, nil
}

// IDs returns the registered pattern IDs, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.predicates))
	for id := range r.predicates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HighestHighBreakout matches sessions whose high exceeds the highest
// high of the lookback window. The exclusion parameter keeps the
// trigger day's own run-up out of the window.
type HighestHighBreakout struct{}

func (HighestHighBreakout) ID() string { return "highest_high_breakout" }

func (HighestHighBreakout) Evaluate(row frame.Row, window []frame.Row, spec *contracts.ScanSpec) (map[string]float64, bool) {
	if len(window) == 0 {
		return nil, false
	}

	priorHigh := window[0].High
	for _, w := range window[1:] {
		if w.High > priorHigh {
			priorHigh = w.High
		}
	}
	if priorHigh <= 0 || row.High <= priorHigh {
		return nil, false
	}

	ratio := row.High / priorHigh
	if ratio < 1+spec.Threshold("min_breakout_pct", 0) {
		return nil, false
	}

	return map[string]float64{
		"prior_high":    priorHigh,
		"breakout_high": row.High,
		"breakout_pct":  ratio - 1,
	}, true
}

// GapUp matches sessions opening above the previous close by a
// configurable gap, with dollar-volume confirmation.
type GapUp struct{}

func (GapUp) ID() string { return "gap_up" }

func (GapUp) Evaluate(row frame.Row, window []frame.Row, spec *contracts.ScanSpec) (map[string]float64, bool) {
	if row.PrevClose <= 0 {
		return nil, false
	}

	gap := row.Open/row.PrevClose - 1
	if gap < spec.Threshold("min_gap_pct", 0.02) {
		return nil, false
	}

	// Volume confirmation against the short dollar-volume average.
	if row.AvgDollarVol > 0 {
		ratio := row.DollarVolume() / row.AvgDollarVol
		if ratio < spec.Threshold("min_volume_ratio", 1.0) {
			return nil, false
		}
	}

	return map[string]float64{
		"gap_pct":    gap,
		"open":       row.Open,
		"prev_close": row.PrevClose,
	}, true
}

// VolatilityContraction matches sessions whose ATR has compressed
// against its own trailing average, the quiet base that often precedes
// a range expansion.
type VolatilityContraction struct{}

func (VolatilityContraction) ID() string { return "volatility_contraction" }

func (VolatilityContraction) Evaluate(row frame.Row, window []frame.Row, spec *contracts.ScanSpec) (map[string]float64, bool) {
	if len(window) == 0 || row.ATR14 <= 0 {
		return nil, false
	}

	var sum float64
	n := 0
	for _, w := range window {
		if w.ATR14 > 0 {
			sum += w.ATR14
			n++
		}
	}
	if n == 0 {
		return nil, false
	}
	trailing := sum / float64(n)

	ratio := row.ATR14 / trailing
	if ratio > spec.Threshold("max_atr_ratio", 0.6) {
		return nil, false
	}

	return map[string]float64{
		"atr":          row.ATR14,
		"trailing_atr": trailing,
		"atr_ratio":    ratio,
	}, true
}
