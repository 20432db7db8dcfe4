package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Coordinate is a WGS84 position. Routing services exchange [lng, lat]
// pairs; use FromPoint/Point to cross that boundary.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func FromPoint(p orb.Point) Coordinate { return Coordinate{Lat: p.Lat(), Lng: p.Lon()} }

func (c Coordinate) Point() orb.Point { return orb.Point{c.Lng, c.Lat} }

func (c Coordinate) String() string { return fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lng) }

// DistanceFunc returns the distance in meters between two coordinates.
type DistanceFunc func(a, b Coordinate) float64

// Distance is the default great-circle distance in meters.
func Distance(a, b Coordinate) float64 { return orbgeo.Distance(a.Point(), b.Point()) }

// Haversine is an alternative DistanceFunc using the haversine formula.
func Haversine(a, b Coordinate) float64 { return orbgeo.DistanceHaversine(a.Point(), b.Point()) }

// FromLineString converts a [lng, lat] line into coordinates.
func FromLineString(ls orb.LineString) []Coordinate {
	out := make([]Coordinate, len(ls))
	for i, p := range ls {
		out[i] = FromPoint(p)
	}
	return out
}

// CumDistances returns the cumulative distance at every point of path.
func CumDistances(path []Coordinate, fn DistanceFunc) []float64 {
	n := len(path)
	if n == 0 {
		return nil
	}
	if fn == nil {
		fn = Distance
	}
	cum := make([]float64, n)
	sum := 0.0
	for i := 1; i < n; i++ {
		sum += fn(path[i-1], path[i])
		cum[i] = sum
	}
	return cum
}

// PathLength sums consecutive-point distances over path.
func PathLength(path []Coordinate, fn DistanceFunc) float64 {
	cum := CumDistances(path, fn)
	if len(cum) == 0 {
		return 0
	}
	return cum[len(cum)-1]
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Coordinate) float64 {
	brng := orbgeo.Bearing(a.Point(), b.Point())
	if brng < 0 {
		brng += 360
	}
	return brng
}

// FallbackPath is the two-bend guidance line shown near the destination:
// current -> same latitude as current at the destination's longitude -> destination.
func FallbackPath(current, destination Coordinate) []Coordinate {
	return []Coordinate{
		current,
		{Lat: current.Lat, Lng: destination.Lng},
		destination,
	}
}

// ParseLatLng parses "lat, lng" text as typed by a user.
func ParseLatLng(input string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(input), ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: expected \"lat, lng\"", input)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || math.IsNaN(lat) || math.IsNaN(lng) {
		return Coordinate{}, fmt.Errorf("invalid lat/lng: %q", input)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinate{}, fmt.Errorf("coordinate out of range: %q", input)
	}
	return Coordinate{Lat: lat, Lng: lng}, nil
}
