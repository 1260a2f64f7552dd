package calendar

import (
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

func TestService_SessionsBetween(t *testing.T) {
	// 2024-01-01 is a Monday holiday; 2024-01-06/07 are a weekend.
	svc := New([]string{"2024-01-01"})

	tests := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{
			name:  "week with holiday and weekend",
			start: "2024-01-01",
			end:   "2024-01-08",
			want:  []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08"},
		},
		{
			name:  "single trading day",
			start: "2024-01-05",
			end:   "2024-01-05",
			want:  []string{"2024-01-05"},
		},
		{
			name:  "weekend only",
			start: "2024-01-06",
			end:   "2024-01-07",
			want:  nil,
		},
		{
			name:  "inverted range",
			start: "2024-02-01",
			end:   "2024-01-01",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.SessionsBetween(date(tt.start), date(tt.end))
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, w, got[i].Format("2006-01-02"))
			}
		})
	}
}

func TestService_SessionsBetween_ZeroDates(t *testing.T) {
	svc := New(nil)
	assert.Empty(t, svc.SessionsBetween(time.Time{}, date("2024-01-05")))
	assert.Empty(t, svc.SessionsBetween(date("2024-01-05"), time.Time{}))
}

func TestService_SessionsBack(t *testing.T) {
	svc := New([]string{"2024-01-01"})

	// Five sessions before Monday 2024-01-08: Jan 2, 3, 4, 5 plus
	// Friday 2023-12-29 (Jan 1 is a holiday, 6/7 a weekend).
	got := svc.SessionsBack(date("2024-01-08"), 5)
	require.Len(t, got, 5)

	want := []string{"2023-12-29", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}
	for i, w := range want {
		assert.Equal(t, w, got[i].Format("2006-01-02"))
	}
}

func TestService_SessionsBack_Degenerate(t *testing.T) {
	svc := New(nil)
	assert.Empty(t, svc.SessionsBack(date("2024-01-08"), 0))
	assert.Empty(t, svc.SessionsBack(time.Time{}, 5))
}

func TestService_IsSession(t *testing.T) {
	svc := New([]string{"2024-12-25"})

	assert.True(t, svc.IsSession(date("2024-12-24")))  // Tuesday
	assert.False(t, svc.IsSession(date("2024-12-25"))) // holiday
	assert.False(t, svc.IsSession(date("2024-12-28"))) // Saturday
}
