package navigation

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-simulator/internal/geo"
	"route-simulator/internal/osrm"
)

func point(lng, lat float64) *orb.Point {
	p := orb.Point{lng, lat}
	return &p
}

func TestExtract(t *testing.T) {
	route := osrm.Route{Legs: []osrm.Leg{{Steps: []osrm.Step{
		{Distance: 420, Maneuver: &osrm.Maneuver{Type: "depart", Instruction: "Head <b>north</b> on Main St", Location: point(-99.1, 19.4)}},
		{Distance: 1500, Maneuver: &osrm.Maneuver{Type: "turn", Modifier: "left"},
			Geometry: geojson.NewGeometry(orb.LineString{{-99.2, 19.5}, {-99.3, 19.6}})},
		{Distance: 80, Maneuver: &osrm.Maneuver{Type: "teleport", Modifier: "sideways"}},
		{Distance: 10},
	}}}}

	steps := Extract(route)
	require.Len(t, steps, 4)

	assert.Equal(t, "north on Main St", steps[0].Text)
	assert.Equal(t, 420.0, steps[0].DistanceMeters)
	assert.Equal(t, &geo.Coordinate{Lat: 19.4, Lng: -99.1}, steps[0].Anchor)

	assert.Equal(t, "Turn left", steps[1].Text)
	assert.Equal(t, &geo.Coordinate{Lat: 19.5, Lng: -99.2}, steps[1].Anchor)

	assert.Equal(t, "Maneuver", steps[2].Text)
	assert.Nil(t, steps[2].Anchor)

	assert.Equal(t, DefaultInstruction, steps[3].Text)
}

func TestExtractEmptyRoute(t *testing.T) {
	assert.Empty(t, Extract(osrm.Route{}))
	assert.Empty(t, Extract(osrm.Route{Legs: []osrm.Leg{{}}}))
}

func TestCleanInstruction(t *testing.T) {
	assert.Equal(t, "Continue on Reforma", CleanInstruction("<span>Continue onto</span> Reforma"))
	assert.Equal(t, "Turn right", CleanInstruction("  Turn right "))
}

func TestSynthesize(t *testing.T) {
	assert.Equal(t, "Turn sharp right", Synthesize(ManeuverTurn, ModifierSharpRight))
	assert.Equal(t, "Arrive at", Synthesize(ManeuverArrive, ModifierUnknown))
	assert.Equal(t, "Enter the roundabout", Synthesize(ParseManeuverType("rotary"), ParseModifier("")))
	assert.Equal(t, "Maneuver straight", Synthesize(ParseManeuverType("bogus"), ParseModifier("straight")))
	assert.Equal(t, "Maneuver", ManeuverType(99).Phrase())
	assert.Equal(t, "", Modifier(-1).Phrase())
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "1.0 km", FormatDistance(1000))
	assert.Equal(t, "2.3 km", FormatDistance(2345))
	assert.Equal(t, "999 m", FormatDistance(999.4))
	assert.Equal(t, "0 m", FormatDistance(0))
}
