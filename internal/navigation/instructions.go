package navigation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"route-simulator/internal/geo"
	"route-simulator/internal/osrm"
)

// DefaultInstruction is used when a step carries neither text nor a maneuver.
const DefaultInstruction = "Continue straight"

// Step is one normalized turn-by-turn instruction.
type Step struct {
	Text           string          `json:"text"`
	DistanceMeters float64         `json:"distanceMeters"`
	Anchor         *geo.Coordinate `json:"anchor,omitempty"` // map re-centering only
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Verbose prefixes some routers emit, rewritten to terser forms.
var phraseRewrites = []struct{ prefix, replacement string }{
	{"Head ", ""},
	{"Continue onto ", "Continue on "},
}

// Extract converts the first leg's raw steps into ordered instructions.
func Extract(route osrm.Route) []Step {
	raw := route.Steps()
	steps := make([]Step, 0, len(raw))
	for _, rs := range raw {
		steps = append(steps, Step{
			Text:           instructionText(rs.Maneuver),
			DistanceMeters: rs.Distance,
			Anchor:         anchorOf(rs),
		})
	}
	return steps
}

func instructionText(m *osrm.Maneuver) string {
	if m == nil {
		return DefaultInstruction
	}
	if m.Instruction != "" {
		return CleanInstruction(m.Instruction)
	}
	if m.Type != "" {
		return Synthesize(ParseManeuverType(m.Type), ParseModifier(m.Modifier))
	}
	return DefaultInstruction
}

// CleanInstruction strips markup and shortens verbose prefixes.
func CleanInstruction(s string) string {
	s = strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
	for _, r := range phraseRewrites {
		if strings.HasPrefix(s, r.prefix) {
			s = r.replacement + strings.TrimPrefix(s, r.prefix)
			break
		}
	}
	return s
}

// Synthesize builds an instruction from a maneuver type and modifier.
func Synthesize(t ManeuverType, m Modifier) string {
	return strings.TrimSpace(t.Phrase() + " " + m.Phrase())
}

func anchorOf(rs osrm.Step) *geo.Coordinate {
	if rs.Maneuver != nil && rs.Maneuver.Location != nil {
		c := geo.FromPoint(*rs.Maneuver.Location)
		return &c
	}
	if p, ok := rs.FirstPoint(); ok {
		c := geo.FromPoint(p)
		return &c
	}
	return nil
}

// FormatDistance renders meters as "1.2 km" or "350 m".
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.1f km", meters/1000)
	}
	return fmt.Sprintf("%d m", int(math.Round(meters)))
}
