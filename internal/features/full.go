package features

import (
	"math"

	"github.com/mdthewzrd/chartscan/internal/frame"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

const (
	emaPeriod        = 9
	smaShortPeriod   = 20
	smaLongPeriod    = 50
	atrPeriod        = 14
	volatilityPeriod = 20
)

// FullStage computes the expensive window-based indicators per symbol:
// EMA, short and long SMA, true range, ATR, and rolling close-to-close
// volatility. It runs after the range filter, over full history for the
// surviving symbols, because these indicators carry their own lookback
// requirements. Window functions never cross symbol boundaries.
type FullStage struct {
	logger *logger.Logger
}

// NewFullStage creates the full feature stage.
func NewFullStage(log *logger.Logger) *FullStage {
	return &FullStage{logger: log.WithField("module", "features_full")}
}

// Compute fills the indicator columns in place. Every value at row i
// depends only on rows <= i, so no column leaks future data.
func (s *FullStage) Compute(table *frame.Table) {
	frames := table.Frames()
	for _, f := range frames {
		s.computeFrame(f)
	}

	s.logger.WithFields(map[string]interface{}{
		"symbols": len(frames),
		"rows":    table.Len(),
	}).Debug("Full features computed")
}

func (s *FullStage) computeFrame(f *frame.SymbolFrame) {
	var (
		ema          float64
		smaShortSum  float64
		smaLongSum   float64
		trSum        float64
		returns      = make([]float64, 0, len(f.Rows))
		emaWeight    = 2.0 / (float64(emaPeriod) + 1.0)
	)

	for i := range f.Rows {
		row := &f.Rows[i]

		// EMA seeded with the first close.
		if i == 0 {
			ema = row.Close
		} else {
			ema = row.Close*emaWeight + ema*(1-emaWeight)
		}
		row.EMA9 = ema

		// Rolling SMAs over whatever history exists so far.
		smaShortSum += row.Close
		if i >= smaShortPeriod {
			smaShortSum -= f.Rows[i-smaShortPeriod].Close
		}
		row.SMA20 = smaShortSum / float64(min(i+1, smaShortPeriod))

		smaLongSum += row.Close
		if i >= smaLongPeriod {
			smaLongSum -= f.Rows[i-smaLongPeriod].Close
		}
		row.SMA50 = smaLongSum / float64(min(i+1, smaLongPeriod))

		// True range and its rolling average.
		row.TrueRange = trueRange(f.Rows, i)
		trSum += row.TrueRange
		if i >= atrPeriod {
			trSum -= f.Rows[i-atrPeriod].TrueRange
		}
		row.ATR14 = trSum / float64(min(i+1, atrPeriod))

		// Rolling stddev of close-to-close returns.
		if i > 0 && f.Rows[i-1].Close > 0 {
			returns = append(returns, row.Close/f.Rows[i-1].Close-1)
		} else {
			returns = append(returns, 0)
		}
		row.Volatility = stddevTail(returns, volatilityPeriod)
	}
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(rows []frame.Row, i int) float64 {
	r := rows[i]
	tr := r.High - r.Low
	if i == 0 {
		return tr
	}
	prevClose := rows[i-1].Close
	if hc := math.Abs(r.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(r.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// stddevTail is the population standard deviation of the last n values.
func stddevTail(values []float64, n int) float64 {
	if len(values) < n {
		n = len(values)
	}
	if n < 2 {
		return 0
	}
	tail := values[len(values)-n:]

	var sum float64
	for _, v := range tail {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range tail {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
