package travel

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Mode is a routing profile understood by the route planner.
type Mode string

const (
	Driving    Mode = "driving"
	Walking    Mode = "walking"
	Cycling    Mode = "cycling"
	Motorcycle Mode = "motorcycle"
)

// DefaultSpeedKmh applies to any mode missing from the speed table.
const DefaultSpeedKmh = 30.0

// referenceSpeedKmh is the speed whose tick period equals the base tick.
const referenceSpeedKmh = 50.0

var speedsKmh = map[Mode]float64{
	Driving:    50,
	Walking:    5,
	Cycling:    15,
	Motorcycle: 60,
}

// Modes lists the supported profiles in display order.
func Modes() []Mode { return []Mode{Driving, Walking, Cycling, Motorcycle} }

// ParseMode normalizes s and reports whether it is a supported profile.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	_, ok := speedsKmh[m]
	return m, ok
}

// SpeedKmh returns the average speed for mode.
func SpeedKmh(mode Mode) float64 {
	if v, ok := speedsKmh[mode]; ok {
		return v
	}
	return DefaultSpeedKmh
}

// EstimateMinutes converts a distance into travel minutes at the mode's average speed.
func EstimateMinutes(distanceMeters float64, mode Mode) float64 {
	return (distanceMeters / 1000) / SpeedKmh(mode) * 60
}

// TickPeriod scales base so faster modes tick proportionally faster.
func TickPeriod(mode Mode, base time.Duration) time.Duration {
	return time.Duration(float64(base) * referenceSpeedKmh / SpeedKmh(mode))
}

// FormatDuration renders minutes as "2h 5min" or "45 minutes".
func FormatDuration(minutes float64) string {
	total := int(math.Round(minutes))
	if total >= 60 {
		return fmt.Sprintf("%dh %dmin", total/60, total%60)
	}
	return fmt.Sprintf("%d minutes", total)
}
