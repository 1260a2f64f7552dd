package contracts

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestScanSpec_Validate(t *testing.T) {
	valid := ScanSpec{
		PatternID:   "highest_high_breakout",
		OutputStart: date("2024-01-02"),
		OutputEnd:   date("2024-01-31"),
		LookbackDays: 20,
		Thresholds:  map[string]float64{"min_prev_close": 5.0},
	}

	tests := []struct {
		name    string
		mutate  func(s *ScanSpec)
		wantErr bool
	}{
		{
			name:   "valid spec",
			mutate: func(s *ScanSpec) {},
		},
		{
			name:   "single session output range",
			mutate: func(s *ScanSpec) { s.OutputEnd = s.OutputStart },
		},
		{
			name:   "zero lookback allowed",
			mutate: func(s *ScanSpec) { s.LookbackDays = 0 },
		},
		{
			name:    "inverted output range",
			mutate:  func(s *ScanSpec) { s.OutputStart, s.OutputEnd = s.OutputEnd.AddDate(0, 1, 0), s.OutputStart },
			wantErr: true,
		},
		{
			name:    "negative lookback",
			mutate:  func(s *ScanSpec) { s.LookbackDays = -1 },
			wantErr: true,
		},
		{
			name:    "negative exclusion",
			mutate:  func(s *ScanSpec) { s.ExclusionDays = -3 },
			wantErr: true,
		},
		{
			name:    "missing pattern id",
			mutate:  func(s *ScanSpec) { s.PatternID = "" },
			wantErr: true,
		},
		{
			name:    "NaN threshold",
			mutate:  func(s *ScanSpec) { s.Thresholds = map[string]float64{"min_prev_close": math.NaN()} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)
			err := spec.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSpec)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScanSpec_Threshold(t *testing.T) {
	spec := ScanSpec{Thresholds: map[string]float64{"min_prev_close": 5.0}}

	assert.Equal(t, 5.0, spec.Threshold("min_prev_close", 1.0))
	assert.Equal(t, 2.5, spec.Threshold("min_dollar_volume", 2.5))
}

func TestScanSpec_InOutputRange(t *testing.T) {
	spec := ScanSpec{
		OutputStart: date("2024-01-05"),
		OutputEnd:   date("2024-01-10"),
	}

	assert.True(t, spec.InOutputRange(date("2024-01-05")))
	assert.True(t, spec.InOutputRange(date("2024-01-10")))
	assert.False(t, spec.InOutputRange(date("2024-01-04")))
	assert.False(t, spec.InOutputRange(date("2024-01-11")))
}
