package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdthewzrd/chartscan/internal/calendar"
	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/marketdata"
	"github.com/mdthewzrd/chartscan/pkg/logger"
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

func TestFetcher_ExpandRange(t *testing.T) {
	cal := calendar.New(nil)
	f := New(marketdata.NewStaticStore(), cal, time.Second, 2, logger.NewNop())

	spec := &contracts.ScanSpec{
		PatternID:    "highest_high_breakout",
		OutputStart:  date("2024-01-10"), // Wednesday
		OutputEnd:    date("2024-01-11"),
		LookbackDays: 3,
		ExclusionDays: 1,
	}

	er := f.ExpandRange(spec)

	// 3 lookback + 1 exclusion + 2 buffer = 6 history sessions, plus
	// the 2 output sessions.
	require.Len(t, er.Sessions, 8)
	assert.Equal(t, "2024-01-02", er.FetchStart.Format("2006-01-02"))
	assert.Equal(t, "2024-01-11", er.FetchEnd.Format("2006-01-02"))

	// History strictly precedes the output range, ordered ascending.
	for i := 1; i < len(er.Sessions); i++ {
		assert.True(t, er.Sessions[i-1].Before(er.Sessions[i]))
	}
	assert.Equal(t, "2024-01-10", er.Sessions[6].Format("2006-01-02"))
}

func TestFetcher_ExpandRange_ZeroLookback(t *testing.T) {
	cal := calendar.New(nil)
	f := New(marketdata.NewStaticStore(), cal, time.Second, 0, logger.NewNop())

	spec := &contracts.ScanSpec{
		OutputStart: date("2024-01-10"),
		OutputEnd:   date("2024-01-10"),
	}

	er := f.ExpandRange(spec)
	require.Len(t, er.Sessions, 1)
	assert.Equal(t, "2024-01-10", er.FetchStart.Format("2006-01-02"))
}

func TestFetcher_Fetch_Deterministic(t *testing.T) {
	store := marketdata.NewStaticStore().Add(
		bar("MSFT", "2024-01-10", 370),
		bar("AAPL", "2024-01-10", 185),
		bar("MSFT", "2024-01-11", 372),
		bar("AAPL", "2024-01-11", 186),
	)
	cal := calendar.New(nil)

	sessions := cal.SessionsBetween(date("2024-01-10"), date("2024-01-11"))
	er := ExpandedRange{FetchStart: sessions[0], FetchEnd: sessions[1], Sessions: sessions}

	// Worker count must not change the combined table.
	var baseline []string
	for _, workers := range []int{1, 2, 8} {
		f := New(store, cal, time.Second, 0, logger.NewNop())
		table, stats := f.Fetch(context.Background(), er, workers)

		require.Equal(t, 2, stats.SessionsFetched)
		require.Equal(t, 0, stats.SessionsFailed)
		require.Equal(t, 4, table.Len())

		var order []string
		for _, r := range table.Rows {
			order = append(order, r.Symbol+"@"+r.SessionDate.Format("2006-01-02"))
		}
		if baseline == nil {
			baseline = order
		} else {
			assert.Equal(t, baseline, order)
		}
	}

	assert.Equal(t, "AAPL@2024-01-10", baseline[0])
	assert.Equal(t, "MSFT@2024-01-11", baseline[3])
}

func TestFetcher_Fetch_PartialFailure(t *testing.T) {
	store := marketdata.NewStaticStore().
		Add(
			bar("AAPL", "2024-01-10", 185),
			bar("AAPL", "2024-01-11", 186),
		).
		FailSession(date("2024-01-11"))
	cal := calendar.New(nil)

	sessions := cal.SessionsBetween(date("2024-01-10"), date("2024-01-11"))
	er := ExpandedRange{FetchStart: sessions[0], FetchEnd: sessions[1], Sessions: sessions}

	f := New(store, cal, time.Second, 0, logger.NewNop())
	table, stats := f.Fetch(context.Background(), er, 2)

	// The failed session contributes no rows but is not fatal.
	assert.Equal(t, 1, stats.SessionsFetched)
	assert.Equal(t, 1, stats.SessionsFailed)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "2024-01-10", table.Rows[0].SessionDate.Format("2006-01-02"))
}

func TestFetcher_Fetch_EmptyRange(t *testing.T) {
	f := New(marketdata.NewStaticStore(), calendar.New(nil), time.Second, 0, logger.NewNop())
	table, stats := f.Fetch(context.Background(), ExpandedRange{}, 4)

	assert.Equal(t, 0, table.Len())
	assert.Equal(t, Stats{}, stats)
}
