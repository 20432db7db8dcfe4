package server

import (
	"sync"

	"route-simulator/internal/geo"
	"route-simulator/internal/sim"
)

// State is the rendered view of the running simulation.
type State struct {
	SimulationID    string           `json:"simulationId"`
	Position        *geo.Coordinate  `json:"position,omitempty"`
	Bearing         float64          `json:"bearing"`
	ActiveStep      int              `json:"activeStep"`
	Instruction     string           `json:"instruction,omitempty"`
	Progress        float64          `json:"progress"`
	RemainingMeters float64          `json:"remainingMeters"`
	Near            bool             `json:"near"`
	Fallback        []geo.Coordinate `json:"fallback,omitempty"`
	Info            string           `json:"info"`
	TimeLabel       string           `json:"timeLabel"`
	Arrived         bool             `json:"arrived"`
}

// Snapshot is a presentation sink that keeps the latest State for polling clients.
type Snapshot struct {
	mu    sync.RWMutex
	state State
}

func NewSnapshot() *Snapshot { return &Snapshot{state: State{ActiveStep: -1}} }

// Sink starts tracking simulation id; events of any other simulation are ignored.
func (s *Snapshot) Sink(id string) sim.Sink {
	s.mu.Lock()
	s.state = State{SimulationID: id, ActiveStep: -1}
	s.mu.Unlock()
	return sim.SinkFunc(func(e sim.Event) { s.apply(id, e) })
}

func (s *Snapshot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{ActiveStep: -1}
}

func (s *Snapshot) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Fallback = append([]geo.Coordinate(nil), s.state.Fallback...)
	return st
}

func (s *Snapshot) apply(id string, e sim.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.SimulationID != id {
		return
	}
	switch ev := e.(type) {
	case sim.StartedEvent:
		s.state.TimeLabel = ev.Label
	case sim.PositionEvent:
		pos := ev.Coordinate
		s.state.Position = &pos
		s.state.Bearing = ev.Bearing
	case sim.ActiveStepEvent:
		s.state.ActiveStep = ev.Index
		s.state.Instruction = ev.Step.Text
	case sim.ProgressEvent:
		s.state.Progress = ev.Pct
		s.state.RemainingMeters = ev.RemainingMeters
		s.state.Near = ev.Near
		s.state.Fallback = ev.Fallback
		s.state.Info = ev.Label
	case sim.TimeRemainingEvent:
		s.state.TimeLabel = ev.Label
	case sim.ArrivedEvent:
		s.state.Arrived = true
		s.state.Info = ev.Message
		s.state.TimeLabel = "You have arrived!"
	}
}
