package features

import (
	"github.com/mdthewzrd/chartscan/internal/frame"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

// DefaultDollarVolWindow is the rolling window for the coarse
// dollar-volume average.
const DefaultDollarVolWindow = 5

// SimpleStage computes the cheap per-symbol columns used only for
// coarse filtering: previous-session close and a short rolling
// dollar-volume average. Deliberately O(n) single pass per symbol,
// because it runs over the entire expanded range before any filtering
// has reduced the row count.
type SimpleStage struct {
	dollarVolWindow int
	logger          *logger.Logger
}

// NewSimpleStage creates the simple feature stage.
func NewSimpleStage(dollarVolWindow int, log *logger.Logger) *SimpleStage {
	if dollarVolWindow < 1 {
		dollarVolWindow = DefaultDollarVolWindow
	}
	return &SimpleStage{
		dollarVolWindow: dollarVolWindow,
		logger:          log.WithField("module", "features_simple"),
	}
}

// Compute fills PrevClose and AvgDollarVol in place. Shifts happen
// within each symbol's row sequence, never across symbols.
func (s *SimpleStage) Compute(table *frame.Table) {
	frames := table.Frames()
	for _, f := range frames {
		s.computeFrame(f)
	}

	s.logger.WithFields(map[string]interface{}{
		"symbols": len(frames),
		"rows":    table.Len(),
	}).Debug("Simple features computed")
}

func (s *SimpleStage) computeFrame(f *frame.SymbolFrame) {
	var rollingSum float64

	for i := range f.Rows {
		row := &f.Rows[i]

		if i > 0 {
			row.PrevClose = f.Rows[i-1].Close
		}

		rollingSum += row.DollarVolume()
		window := s.dollarVolWindow
		if i+1 < window {
			window = i + 1
		} else if i >= s.dollarVolWindow {
			rollingSum -= f.Rows[i-s.dollarVolWindow].DollarVolume()
		}
		row.AvgDollarVol = rollingSum / float64(window)
	}
}
