package sim

import (
	"time"

	"route-simulator/internal/geo"
	"route-simulator/internal/navigation"
)

// Event is emitted by the engine to the presentation side.
type Event interface{ Kind() string }

const (
	KindStarted       = "started"
	KindPosition      = "position"
	KindActiveStep    = "activeStep"
	KindProgress      = "progress"
	KindTimeRemaining = "timeRemaining"
	KindArrived       = "arrived"
)

// StartedEvent announces a new run with its up-front estimate.
type StartedEvent struct {
	Points           int           `json:"points"`
	TotalMeters      float64       `json:"totalMeters"`
	EstimatedMinutes float64       `json:"estimatedMinutes"`
	TickPeriod       time.Duration `json:"tickPeriod"`
	Label            string        `json:"label"`
}

func (StartedEvent) Kind() string { return KindStarted }

type PositionEvent struct {
	Index      int            `json:"index"`
	Coordinate geo.Coordinate `json:"coordinate"`
	Bearing    float64        `json:"bearing"`
}

func (PositionEvent) Kind() string { return KindPosition }

type ActiveStepEvent struct {
	Index int             `json:"index"`
	Step  navigation.Step `json:"step"`
}

func (ActiveStepEvent) Kind() string { return KindActiveStep }

// ProgressEvent reports completion and the distance left to the destination.
// Fallback is set only when Near.
type ProgressEvent struct {
	Pct             float64          `json:"pct"`
	RemainingMeters float64          `json:"remainingMeters"`
	Near            bool             `json:"near"`
	Fallback        []geo.Coordinate `json:"fallback,omitempty"`
	Label           string           `json:"label"`
}

func (ProgressEvent) Kind() string { return KindProgress }

type TimeRemainingEvent struct {
	Minutes float64 `json:"minutes"`
	Label   string  `json:"label"`
}

func (TimeRemainingEvent) Kind() string { return KindTimeRemaining }

// ArrivedEvent is terminal; FinalStep is -1 when the route had no steps.
type ArrivedEvent struct {
	FinalStep        int     `json:"finalStep"`
	RemainingMinutes float64 `json:"remainingMinutes"`
	Message          string  `json:"message"`
}

func (ArrivedEvent) Kind() string { return KindArrived }

// Sink receives engine events. Emit is called from the tick goroutine and
// must not call back into the Handle that produced the event.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Sinks fans every event out to each sink in order.
type Sinks []Sink

func (s Sinks) Emit(e Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(e)
		}
	}
}
