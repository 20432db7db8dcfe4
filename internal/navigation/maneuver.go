package navigation

// ManeuverType enumerates the route service's maneuver types.
type ManeuverType int

const (
	ManeuverUnknown ManeuverType = iota
	ManeuverTurn
	ManeuverNewName
	ManeuverDepart
	ManeuverArrive
	ManeuverMerge
	ManeuverRamp
	ManeuverOnRamp
	ManeuverOffRamp
	ManeuverFork
	ManeuverEndOfRoad
	ManeuverUseLane
	ManeuverContinue
	ManeuverRoundabout
	ManeuverRotary
	ManeuverRoundaboutTurn
	ManeuverNotification
)

var maneuverCodes = map[string]ManeuverType{
	"turn":            ManeuverTurn,
	"new name":        ManeuverNewName,
	"depart":          ManeuverDepart,
	"arrive":          ManeuverArrive,
	"merge":           ManeuverMerge,
	"ramp":            ManeuverRamp,
	"on ramp":         ManeuverOnRamp,
	"off ramp":        ManeuverOffRamp,
	"fork":            ManeuverFork,
	"end of road":     ManeuverEndOfRoad,
	"use lane":        ManeuverUseLane,
	"continue":        ManeuverContinue,
	"roundabout":      ManeuverRoundabout,
	"rotary":          ManeuverRotary,
	"roundabout turn": ManeuverRoundaboutTurn,
	"notification":    ManeuverNotification,
}

var maneuverPhrases = [...]string{
	ManeuverUnknown:        "Maneuver",
	ManeuverTurn:           "Turn",
	ManeuverNewName:        "Continue on",
	ManeuverDepart:         "Start on",
	ManeuverArrive:         "Arrive at",
	ManeuverMerge:          "Merge onto",
	ManeuverRamp:           "Take the ramp toward",
	ManeuverOnRamp:         "Take the on-ramp toward",
	ManeuverOffRamp:        "Take the exit toward",
	ManeuverFork:           "At the fork, take",
	ManeuverEndOfRoad:      "At the end of the road,",
	ManeuverUseLane:        "Use the lane for",
	ManeuverContinue:       "Continue",
	ManeuverRoundabout:     "Enter the roundabout",
	ManeuverRotary:         "Enter the roundabout",
	ManeuverRoundaboutTurn: "At the roundabout, take",
	ManeuverNotification:   "Notice:",
}

func ParseManeuverType(code string) ManeuverType { return maneuverCodes[code] }

func (t ManeuverType) Phrase() string {
	if t < 0 || int(t) >= len(maneuverPhrases) {
		return maneuverPhrases[ManeuverUnknown]
	}
	return maneuverPhrases[t]
}

// Modifier is the direction qualifier of a maneuver.
type Modifier int

const (
	ModifierUnknown Modifier = iota
	ModifierUTurn
	ModifierSharpRight
	ModifierRight
	ModifierSlightRight
	ModifierStraight
	ModifierSlightLeft
	ModifierLeft
	ModifierSharpLeft
)

var modifierCodes = map[string]Modifier{
	"uturn":        ModifierUTurn,
	"sharp right":  ModifierSharpRight,
	"right":        ModifierRight,
	"slight right": ModifierSlightRight,
	"straight":     ModifierStraight,
	"slight left":  ModifierSlightLeft,
	"left":         ModifierLeft,
	"sharp left":   ModifierSharpLeft,
}

var modifierPhrases = [...]string{
	ModifierUnknown:     "",
	ModifierUTurn:       "and make a U-turn",
	ModifierSharpRight:  "sharp right",
	ModifierRight:       "right",
	ModifierSlightRight: "slight right",
	ModifierStraight:    "straight",
	ModifierSlightLeft:  "slight left",
	ModifierLeft:        "left",
	ModifierSharpLeft:   "sharp left",
}

func ParseModifier(code string) Modifier { return modifierCodes[code] }

func (m Modifier) Phrase() string {
	if m < 0 || int(m) >= len(modifierPhrases) {
		return ""
	}
	return modifierPhrases[m]
}
