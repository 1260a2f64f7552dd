package rangefilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/features"
	"github.com/mdthewzrd/chartscan/internal/frame"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// buildTable creates bars for the given symbols across sequential
// weekdays starting 2024-01-01 and runs the simple feature stage so
// PrevClose and AvgDollarVol are populated.
func buildTable(t *testing.T, closesBySymbol map[string][]float64) *frame.Table {
	t.Helper()

	var bars []contracts.Bar
	for symbol, closes := range closesBySymbol {
		d := date("2024-01-01")
		for _, c := range closes {
			bars = append(bars, contracts.Bar{
				Symbol:      symbol,
				SessionDate: d,
				Open:        c,
				High:        c,
				Low:         c,
				Close:       c,
				Volume:      1_000_000,
			})
			d = d.AddDate(0, 0, 1)
		}
	}

	table := frame.FromBars(bars)
	features.NewSimpleStage(0, logger.NewNop()).Compute(table)
	return table
}

func TestStage_Apply_FiltersOnlyCandidateRows(t *testing.T) {
	// Five sessions; the last two are the output range. CHEAP trades
	// below the previous-close threshold, SOLID above it.
	table := buildTable(t, map[string][]float64{
		"SOLID": {10, 10, 10, 10, 10},
		"CHEAP": {4.99, 4.99, 4.99, 4.99, 4.99},
	})

	spec := &contracts.ScanSpec{
		PatternID:   "highest_high_breakout",
		OutputStart: date("2024-01-04"),
		OutputEnd:   date("2024-01-05"),
		Thresholds:  map[string]float64{ThresholdMinPrevClose: 5.0},
	}

	res := New(logger.NewNop()).Apply(table, spec)

	assert.Equal(t, 2, res.SymbolsConsidered)
	assert.Equal(t, 1, res.SymbolsSurvivingFilter)

	// CHEAP's output rows are gone, but its historical rows remain.
	var cheapHist, cheapOut, solidOut int
	for _, r := range res.Table.Rows {
		inRange := spec.InOutputRange(r.SessionDate)
		switch {
		case r.Symbol == "CHEAP" && inRange:
			cheapOut++
		case r.Symbol == "CHEAP":
			cheapHist++
		case r.Symbol == "SOLID" && inRange:
			solidOut++
		}
	}
	assert.Equal(t, 0, cheapOut)
	assert.Equal(t, 3, cheapHist)
	assert.Equal(t, 2, solidOut)
}

func TestStage_Apply_PreservesHistoryForSurvivors(t *testing.T) {
	table := buildTable(t, map[string][]float64{
		"SOLID": {10, 11, 12, 13, 14},
	})

	spec := &contracts.ScanSpec{
		PatternID:   "highest_high_breakout",
		OutputStart: date("2024-01-05"),
		OutputEnd:   date("2024-01-05"),
		Thresholds:  map[string]float64{ThresholdMinPrevClose: 5.0},
	}

	before := table.Frames()[0].HistoryCount(spec.OutputStart)
	res := New(logger.NewNop()).Apply(table, spec)
	after := res.Table.Frames()[0].HistoryCount(spec.OutputStart)

	// Filter-preserves-history invariant.
	require.Equal(t, before, after)
	assert.Equal(t, 4, after)
}

func TestStage_Apply_DollarVolumeThreshold(t *testing.T) {
	table := buildTable(t, map[string][]float64{
		"THIN": {10, 10, 10},
	})

	spec := &contracts.ScanSpec{
		PatternID:   "gap_up",
		OutputStart: date("2024-01-03"),
		OutputEnd:   date("2024-01-03"),
		// 10 * 1_000_000 = 1e7 average; demand more.
		Thresholds: map[string]float64{ThresholdMinDollarVolume: 2e7},
	}

	res := New(logger.NewNop()).Apply(table, spec)
	assert.Equal(t, 1, res.SymbolsConsidered)
	assert.Equal(t, 0, res.SymbolsSurvivingFilter)
}

func TestStage_Apply_NoThresholdsPassesEverything(t *testing.T) {
	table := buildTable(t, map[string][]float64{
		"A": {1, 2, 3},
	})
	rows := table.Len()

	spec := &contracts.ScanSpec{
		PatternID:   "gap_up",
		OutputStart: date("2024-01-01"),
		OutputEnd:   date("2024-01-03"),
	}

	res := New(logger.NewNop()).Apply(table, spec)
	assert.Equal(t, rows, res.Table.Len())
	assert.Equal(t, 1, res.SymbolsSurvivingFilter)
}
