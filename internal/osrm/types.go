package osrm

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Response is the subset of the OSRM route service reply we consume.
type Response struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []Route `json:"routes"`
}

type Route struct {
	Distance float64           `json:"distance"` // meters
	Duration float64           `json:"duration"` // seconds, as estimated by the service
	Geometry *geojson.Geometry `json:"geometry"`
	Legs     []Leg             `json:"legs"`
}

type Leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Summary  string  `json:"summary"`
	Steps    []Step  `json:"steps"`
}

type Step struct {
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Name     string            `json:"name"`
	Maneuver *Maneuver         `json:"maneuver,omitempty"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
}

type Maneuver struct {
	Type        string     `json:"type"`
	Modifier    string     `json:"modifier,omitempty"`
	Location    *orb.Point `json:"location,omitempty"` // [lng, lat]
	Instruction string     `json:"instruction,omitempty"`
}

// Line returns the route geometry as a [lng, lat] line string; nil when the
// service returned no (or a non-line) geometry.
func (r Route) Line() orb.LineString {
	return lineOf(r.Geometry)
}

// Steps returns the maneuver steps of the first leg.
func (r Route) Steps() []Step {
	if len(r.Legs) == 0 {
		return nil
	}
	return r.Legs[0].Steps
}

// FirstPoint returns the first coordinate of the step geometry, if any.
func (s Step) FirstPoint() (orb.Point, bool) {
	ls := lineOf(s.Geometry)
	if len(ls) == 0 {
		return orb.Point{}, false
	}
	return ls[0], true
}

func lineOf(g *geojson.Geometry) orb.LineString {
	if g == nil || g.Coordinates == nil {
		return nil
	}
	switch v := g.Coordinates.(type) {
	case orb.LineString:
		return v
	case orb.Point:
		return orb.LineString{v}
	}
	return nil
}
