package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPunctualityBoundary(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		at     string
		onTime bool
		offset int
	}{
		{"2024-01-10T06:00:00", true, -45},
		{"2024-01-10T06:44:59", true, 0},
		{"2024-01-10T06:45:00", true, 0},
		{"2024-01-10T06:45:01", false, 0},
		{"2024-01-10T06:46:00", false, 1},
		{"2024-01-10T08:15:30", false, 90},
		{"2024-01-10 06:45:00", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			got := p.Punctuality(at(t, tt.at))
			assert.True(t, got.Known)
			assert.Equal(t, tt.onTime, got.OnTime)
			assert.Equal(t, tt.offset, got.OffsetMinutes)
		})
	}
}

func TestPunctualityUsesTimeOfDayInLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	// 23:30 UTC is 06:30 the next morning in Jakarta.
	ts, ok := ParseTime("2024-01-09T23:30:00Z", nil)
	require.True(t, ok)

	assert.True(t, DefaultPolicy().OnTime(ts.In(jakarta)))
	assert.False(t, DefaultPolicy().OnTime(ts))
}

func TestPunctualityUnknownTimeIsLate(t *testing.T) {
	got := DefaultPolicy().Punctuality(time.Time{})
	assert.False(t, got.Known)
	assert.False(t, got.OnTime)
}

func TestZeroPolicyUsesDefaultCutoff(t *testing.T) {
	assert.True(t, Policy{}.OnTime(at(t, "2024-01-10T06:45:00")))
	assert.False(t, Policy{}.OnTime(at(t, "2024-01-10T06:45:01")))
}

func TestParseCutoff(t *testing.T) {
	d, err := ParseCutoff("06:45:00")
	require.NoError(t, err)
	assert.Equal(t, DefaultCutoff, d)

	d, err = ParseCutoff("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7*time.Hour+30*time.Minute, d)

	_, err = ParseCutoff("quarter to seven")
	assert.Error(t, err)
}

func TestPercentRoundsHalfUp(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 13, Percent(1, 8))
	assert.Equal(t, 50, Percent(1, 2))
	assert.Equal(t, 100, Percent(5, 5))
}
