package travel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpeedKmh(t *testing.T) {
	assert.Equal(t, 50.0, SpeedKmh(Driving))
	assert.Equal(t, 5.0, SpeedKmh(Walking))
	assert.Equal(t, 15.0, SpeedKmh(Cycling))
	assert.Equal(t, 60.0, SpeedKmh(Motorcycle))
	assert.Equal(t, DefaultSpeedKmh, SpeedKmh("unknown"))
}

func TestEstimateMinutes(t *testing.T) {
	assert.InDelta(t, 20.0, EstimateMinutes(10000, "unknown"), 1e-9)
	assert.InDelta(t, 1.44, EstimateMinutes(1200, Driving), 1e-9)
	assert.InDelta(t, 120.0, EstimateMinutes(10000, Walking), 1e-9)
	assert.Zero(t, EstimateMinutes(0, Cycling))
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{125, "2h 5min"},
		{45, "45 minutes"},
		{0, "0 minutes"},
		{60, "1h 0min"},
		{1.44, "1 minutes"},
		{119.7, "2h 0min"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatDuration(c.in), "minutes=%v", c.in)
	}
}

func TestTickPeriod(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, TickPeriod(Driving, base))
	assert.Equal(t, time.Second, TickPeriod(Walking, base))
	assert.InDelta(t, float64(base)*50/60, float64(TickPeriod(Motorcycle, base)), 1)
	assert.InDelta(t, float64(base)*50/30, float64(TickPeriod("boat", base)), 1)
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode(" Walking ")
	assert.True(t, ok)
	assert.Equal(t, Walking, m)

	_, ok = ParseMode("boat")
	assert.False(t, ok)
}
