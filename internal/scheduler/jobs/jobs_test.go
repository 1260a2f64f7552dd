package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdthewzrd/chartscan/internal/calendar"
	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/marketdata"
	"github.com/mdthewzrd/chartscan/internal/pipeline"
	"github.com/mdthewzrd/chartscan/pkg/config"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func flatMarket(cal *calendar.Service, from, to string) *marketdata.StaticStore {
	store := marketdata.NewStaticStore()
	for _, d := range cal.SessionsBetween(date(from), date(to)) {
		store.Add(contracts.Bar{
			Symbol: "AAPL", SessionDate: d,
			Open: 100, High: 100, Low: 100, Close: 100, Volume: 1_000_000,
		})
	}
	return store
}

func TestNightlyScanJob_Run(t *testing.T) {
	cal := calendar.New(nil)
	store := flatMarket(cal, "2023-12-01", "2024-01-31")

	cfg := config.ScanConfig{
		FetchWorkers:   2,
		DetectWorkers:  2,
		SessionTimeout: time.Second,
		Timeout:        time.Minute,
		BufferSessions: 2,
	}
	runner := pipeline.NewDefault(store, cal, cfg, logger.NewNop())

	job := NewNightlyScanJob(runner, cal, logger.NewNop())
	// Saturday; the latest completed session is Friday 2024-01-26.
	job.now = func() time.Time { return date("2024-01-27") }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "nightly_scan", job.Name())
	assert.Greater(t, store.FetchCalls(), int64(0))
}

func TestNightlyScanJob_LatestSession(t *testing.T) {
	cal := calendar.New([]string{"2024-01-26"})
	job := NewNightlyScanJob(nil, cal, logger.NewNop())

	// Saturday after a Friday holiday resolves to Thursday.
	job.now = func() time.Time { return date("2024-01-27") }
	assert.Equal(t, "2024-01-25", job.latestSession().Format("2006-01-02"))

	// A regular weekday resolves to itself.
	job.now = func() time.Time { return date("2024-01-24") }
	assert.Equal(t, "2024-01-24", job.latestSession().Format("2006-01-02"))
}

type memorySink struct {
	bars []contracts.Bar
}

func (m *memorySink) SaveBatch(ctx context.Context, bars []contracts.Bar) error {
	m.bars = append(m.bars, bars...)
	return nil
}

func TestIngestJob_Run(t *testing.T) {
	cal := calendar.New(nil)
	store := flatMarket(cal, "2024-01-22", "2024-01-26")
	sink := &memorySink{}

	job := NewIngestJob(store, sink, cal, logger.NewNop())
	job.now = func() time.Time { return date("2024-01-26") }

	require.NoError(t, job.Run(context.Background()))
	// Five weekday sessions, one bar each.
	assert.Len(t, sink.bars, 5)
}

func TestIngestJob_ToleratesFailedSessions(t *testing.T) {
	cal := calendar.New(nil)
	store := flatMarket(cal, "2024-01-22", "2024-01-26")
	store.FailSession(date("2024-01-24"))
	sink := &memorySink{}

	job := NewIngestJob(store, sink, cal, logger.NewNop())
	job.now = func() time.Time { return date("2024-01-26") }

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, sink.bars, 4)
}

func TestIngestJob_AllSessionsFailed(t *testing.T) {
	cal := calendar.New(nil)
	store := marketdata.NewStaticStore()
	for _, d := range cal.SessionsBetween(date("2024-01-22"), date("2024-01-26")) {
		store.FailSession(d)
	}

	job := NewIngestJob(store, &memorySink{}, cal, logger.NewNop())
	job.now = func() time.Time { return date("2024-01-26") }

	assert.Error(t, job.Run(context.Background()))
}
