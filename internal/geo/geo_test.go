package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointRoundTripKeepsAxisOrder(t *testing.T) {
	c := Coordinate{Lat: 19.8253, Lng: -99.7857}
	p := c.Point()
	assert.Equal(t, orb.Point{-99.7857, 19.8253}, p)
	assert.Equal(t, c, FromPoint(p))
}

func TestDistanceOneDegreeOfLatitude(t *testing.T) {
	a := Coordinate{Lat: 0, Lng: 0}
	b := Coordinate{Lat: 1, Lng: 0}
	assert.InDelta(t, 111319.5, Distance(a, b), 1)
	assert.InDelta(t, 111319.5, Haversine(a, b), 1)
	assert.Zero(t, Distance(a, a))
}

func TestPathLength(t *testing.T) {
	flat := func(a, b Coordinate) float64 { return (b.Lat - a.Lat) * 1000 }
	path := []Coordinate{{Lat: 0}, {Lat: 0.5}, {Lat: 1.2}}

	assert.InDelta(t, 1200, PathLength(path, flat), 1e-9)
	assert.Equal(t, []float64{0, 500, 1200}, CumDistances(path, flat))
	assert.Zero(t, PathLength(path[:1], flat))
	assert.Zero(t, PathLength(nil, flat))
}

func TestFallbackPath(t *testing.T) {
	cur := Coordinate{Lat: 10, Lng: 20}
	dst := Coordinate{Lat: 10.003, Lng: 20.002}

	path := FallbackPath(cur, dst)
	require.Len(t, path, 3)
	assert.Equal(t, cur, path[0])
	assert.Equal(t, cur.Lat, path[1].Lat)
	assert.Equal(t, dst.Lng, path[1].Lng)
	assert.Equal(t, dst, path[2])
}

func TestBearingIsNormalized(t *testing.T) {
	o := Coordinate{}
	assert.InDelta(t, 0, Bearing(o, Coordinate{Lat: 1}), 1e-6)
	assert.InDelta(t, 90, Bearing(o, Coordinate{Lng: 1}), 1e-6)
	assert.InDelta(t, 270, Bearing(o, Coordinate{Lng: -1}), 1e-6)
}

func TestParseLatLng(t *testing.T) {
	c, err := ParseLatLng(" 19.825300, -99.785700 ")
	require.NoError(t, err)
	assert.Equal(t, Coordinate{Lat: 19.8253, Lng: -99.7857}, c)

	for _, in := range []string{"", "19.8", "a,b", "91,0", "0,181", "1,2,3"} {
		_, err := ParseLatLng(in)
		assert.Error(t, err, "input %q", in)
	}
}
