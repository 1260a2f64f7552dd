package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdthewzrd/chartscan/internal/contracts"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func bar(symbol, day string, close float64) contracts.Bar {
	return contracts.Bar{
		Symbol:      symbol,
		SessionDate: date(day),
		Open:        close,
		High:        close,
		Low:         close,
		Close:       close,
		Volume:      1000,
	}
}

func TestFromBars_SortsDeterministically(t *testing.T) {
	// Deliberately shuffled input, as produced by out-of-order fetch
	// completion.
	bars := []contracts.Bar{
		bar("MSFT", "2024-01-03", 2),
		bar("AAPL", "2024-01-03", 2),
		bar("MSFT", "2024-01-02", 1),
		bar("AAPL", "2024-01-02", 1),
	}

	table := FromBars(bars)
	require.Equal(t, 4, table.Len())

	assert.Equal(t, "AAPL", table.Rows[0].Symbol)
	assert.Equal(t, "2024-01-02", table.Rows[0].SessionDate.Format("2006-01-02"))
	assert.Equal(t, "AAPL", table.Rows[1].Symbol)
	assert.Equal(t, "MSFT", table.Rows[2].Symbol)
	assert.Equal(t, []string{"AAPL", "MSFT"}, table.Symbols())
}

func TestTable_Frames(t *testing.T) {
	table := FromBars([]contracts.Bar{
		bar("AAPL", "2024-01-02", 1),
		bar("AAPL", "2024-01-03", 2),
		bar("MSFT", "2024-01-02", 3),
	})

	frames := table.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, "AAPL", frames[0].Symbol)
	assert.Len(t, frames[0].Rows, 2)
	assert.Equal(t, "MSFT", frames[1].Symbol)
	assert.Len(t, frames[1].Rows, 1)
}

func TestTable_Partition(t *testing.T) {
	table := FromBars([]contracts.Bar{
		bar("AAPL", "2024-01-02", 1),
		bar("AAPL", "2024-01-03", 2),
		bar("AAPL", "2024-01-04", 3),
		bar("AAPL", "2024-01-05", 4),
	})

	historical, candidate := table.Partition(date("2024-01-04"), date("2024-01-05"))

	require.Equal(t, 2, historical.Len())
	require.Equal(t, 2, candidate.Len())
	assert.Equal(t, "2024-01-02", historical.Rows[0].SessionDate.Format("2006-01-02"))
	assert.Equal(t, "2024-01-04", candidate.Rows[0].SessionDate.Format("2006-01-02"))
}

func TestMerge_Resorts(t *testing.T) {
	a := FromBars([]contracts.Bar{bar("MSFT", "2024-01-02", 1)})
	b := FromBars([]contracts.Bar{bar("AAPL", "2024-01-03", 2), bar("AAPL", "2024-01-02", 1)})

	merged := Merge(a, b)
	require.Equal(t, 3, merged.Len())
	assert.Equal(t, "AAPL", merged.Rows[0].Symbol)
	assert.Equal(t, "MSFT", merged.Rows[2].Symbol)
}

func TestSymbolFrame_Window(t *testing.T) {
	frame := &SymbolFrame{
		Symbol: "AAPL",
		Rows: []Row{
			{Bar: bar("AAPL", "2024-01-01", 1)},
			{Bar: bar("AAPL", "2024-01-02", 2)},
			{Bar: bar("AAPL", "2024-01-03", 3)},
			{Bar: bar("AAPL", "2024-01-04", 4)},
			{Bar: bar("AAPL", "2024-01-05", 5)},
		},
	}

	tests := []struct {
		name      string
		i         int
		lookback  int
		exclusion int
		wantClose []float64
	}{
		{
			name:     "plain lookback ends at prior row",
			i:        4,
			lookback: 3, exclusion: 1,
			wantClose: []float64{1, 2, 3},
		},
		{
			name:     "no exclusion includes current row",
			i:        4,
			lookback: 2, exclusion: 0,
			wantClose: []float64{4, 5},
		},
		{
			name:     "window clipped at frame start",
			i:        2,
			lookback: 10, exclusion: 1,
			wantClose: []float64{1, 2},
		},
		{
			name:     "zero lookback yields empty window",
			i:        4,
			lookback: 0, exclusion: 0,
			wantClose: nil,
		},
		{
			name:     "exclusion swallows whole frame",
			i:        1,
			lookback: 5, exclusion: 3,
			wantClose: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := frame.Window(tt.i, tt.lookback, tt.exclusion)
			require.Len(t, got, len(tt.wantClose))
			for j, want := range tt.wantClose {
				assert.Equal(t, want, got[j].Close)
			}
		})
	}
}

func TestSymbolFrame_HistoryCount(t *testing.T) {
	frame := &SymbolFrame{
		Rows: []Row{
			{Bar: bar("AAPL", "2024-01-02", 1)},
			{Bar: bar("AAPL", "2024-01-03", 2)},
			{Bar: bar("AAPL", "2024-01-04", 3)},
		},
	}
	assert.Equal(t, 2, frame.HistoryCount(date("2024-01-04")))
	assert.Equal(t, 0, frame.HistoryCount(date("2024-01-01")))
}
