package frame

import (
	"sort"
	"time"

	"github.com/mdthewzrd/chartscan/internal/contracts"
)

// Row is one symbol-session observation plus the derived feature
// columns appended as the pipeline proceeds. Zero-valued features mean
// "not yet computed" or "insufficient history".
type Row struct {
	contracts.Bar

	// Simple features (coarse filtering only)
	PrevClose    float64
	AvgDollarVol float64

	// Full features
	EMA9       float64
	SMA20      float64
	SMA50      float64
	TrueRange  float64
	ATR14      float64
	Volatility float64
}

// Table is the combined all-symbol table handed from stage to stage.
// Ownership transfers fully at each stage boundary; the producing stage
// never touches it again after handoff.
type Table struct {
	Rows []Row
}

// FromBars builds a table from raw bars, sorted by (symbol, session
// date) so the result is deterministic regardless of fetch completion
// order.
func FromBars(bars []contracts.Bar) *Table {
	rows := make([]Row, len(bars))
	for i, b := range bars {
		rows[i] = Row{Bar: b}
	}
	t := &Table{Rows: rows}
	t.Sort()
	return t
}

// Sort orders rows by (symbol, session date) ascending.
func (t *Table) Sort() {
	sort.Slice(t.Rows, func(i, j int) bool {
		a, b := t.Rows[i], t.Rows[j]
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.SessionDate.Before(b.SessionDate)
	})
}

// Len returns the row count.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Symbols returns the distinct symbols present, in sorted order.
// Requires a sorted table.
func (t *Table) Symbols() []string {
	var symbols []string
	for i, r := range t.Rows {
		if i == 0 || r.Symbol != t.Rows[i-1].Symbol {
			symbols = append(symbols, r.Symbol)
		}
	}
	return symbols
}

// Frames groups the table into per-symbol frames. Requires a sorted
// table; each frame's rows stay ordered by session date ascending.
// Frames share the table's backing array, so callers must treat the
// table as consumed after grouping.
func (t *Table) Frames() []*SymbolFrame {
	var frames []*SymbolFrame
	start := 0
	for i := 1; i <= len(t.Rows); i++ {
		if i == len(t.Rows) || t.Rows[i].Symbol != t.Rows[start].Symbol {
			frames = append(frames, &SymbolFrame{
				Symbol: t.Rows[start].Symbol,
				Rows:   t.Rows[start:i],
			})
			start = i
		}
	}
	return frames
}

// Partition splits the table into rows outside [start, end]
// (historical) and rows inside it (candidate output). Relative row
// order is preserved in both halves.
func (t *Table) Partition(start, end time.Time) (historical, candidate *Table) {
	historical = &Table{}
	candidate = &Table{}
	for _, r := range t.Rows {
		if r.SessionDate.Before(start) || r.SessionDate.After(end) {
			historical.Rows = append(historical.Rows, r)
		} else {
			candidate.Rows = append(candidate.Rows, r)
		}
	}
	return historical, candidate
}

// Merge recombines two tables into one sorted table.
func Merge(a, b *Table) *Table {
	merged := &Table{Rows: make([]Row, 0, len(a.Rows)+len(b.Rows))}
	merged.Rows = append(merged.Rows, a.Rows...)
	merged.Rows = append(merged.Rows, b.Rows...)
	merged.Sort()
	return merged
}

// SymbolFrame is all rows for one symbol across the expanded range,
// ordered by session date ascending. A frame is owned exclusively by
// the worker processing that symbol; no sharing across workers.
type SymbolFrame struct {
	Symbol string
	Rows   []Row
}

// Window returns the lookback rows for the session at index i: rows
// whose position is in (i-lookback-exclusion, i-exclusion], measured
// along the symbol's own session sequence. Lookback and exclusion are
// trading sessions, not calendar days, because each row is one session.
// A zero lookback yields an empty window.
func (f *SymbolFrame) Window(i, lookback, exclusion int) []Row {
	if i < 0 || i >= len(f.Rows) || lookback <= 0 {
		return nil
	}

	hi := i - exclusion // inclusive
	lo := hi - lookback // exclusive
	if hi < 0 {
		return nil
	}
	if lo < -1 {
		lo = -1
	}
	return f.Rows[lo+1 : hi+1]
}

// HistoryCount returns how many of the frame's rows fall strictly
// before the given date.
func (f *SymbolFrame) HistoryCount(before time.Time) int {
	n := 0
	for _, r := range f.Rows {
		if r.SessionDate.Before(before) {
			n++
		}
	}
	return n
}
