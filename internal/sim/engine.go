package sim

import (
	"fmt"
	"math"
	"sync"
	"time"

	"route-simulator/internal/geo"
	"route-simulator/internal/navigation"
	"route-simulator/internal/travel"
)

// ArrivalMessage is carried by the terminal event.
const ArrivalMessage = "You have arrived at your destination!"

// Params are the engine's tunable heuristics.
type Params struct {
	// BaseTick is the tick period for a mode travelling at 50 km/h.
	BaseTick time.Duration
	// FallbackThresholdMeters is the distance to the destination at or below
	// which fallback guidance replaces the far progress readout.
	FallbackThresholdMeters float64
	// StepTolerance is the fraction of a step's distance after which the
	// next instruction becomes active.
	StepTolerance float64
}

func DefaultParams() Params {
	return Params{
		BaseTick:                100 * time.Millisecond,
		FallbackThresholdMeters: 500,
		StepTolerance:           0.9,
	}
}

// Observer receives engine lifecycle observations (metrics).
type Observer interface {
	RunStarted()
	RunFinished(outcome string) // arrived|cancelled
	TickObserved(d time.Duration, near bool)
	StepAdvanced()
}

// Run is the input of one simulation.
type Run struct {
	Geometry    []geo.Coordinate
	Steps       []navigation.Step
	Mode        travel.Mode
	Destination geo.Coordinate
	Distance    geo.DistanceFunc // nil selects geo.Distance
}

type Engine struct {
	sched  Scheduler
	now    func() time.Time
	params Params
	obs    Observer
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }
func WithParams(p Params) Option            { return func(e *Engine) { e.params = p } }
func WithObserver(o Observer) Option        { return func(e *Engine) { e.obs = o } }

func NewEngine(sched Scheduler, opts ...Option) *Engine {
	e := &Engine{sched: sched, now: time.Now, params: DefaultParams()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Handle controls a started simulation.
type Handle struct {
	task       Task
	done       chan struct{}
	cancelOnce sync.Once
	doneOnce   sync.Once
	obs        Observer
}

// Cancel stops the simulation; no events are emitted once it returns.
// Cancelling a finished or cancelled simulation is a no-op.
func (h *Handle) Cancel() {
	h.cancelOnce.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}
		if h.task != nil {
			h.task.Cancel()
		}
		h.finish("cancelled")
	})
}

// Done is closed when the simulation arrives or is cancelled.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) finish(outcome string) {
	h.doneOnce.Do(func() {
		close(h.done)
		if h.obs != nil {
			h.obs.RunFinished(outcome)
		}
	})
}

// Start begins a simulation of r, emitting events to sink from the tick
// goroutine. An empty geometry arrives immediately without scheduling a tick.
func (e *Engine) Start(r Run, sink Sink) *Handle {
	if r.Distance == nil {
		r.Distance = geo.Distance
	}
	h := &Handle{done: make(chan struct{}), obs: e.obs}
	st := &runState{
		Run:    r,
		params: e.params,
		sink:   sink,
		now:    e.now,
		obs:    e.obs,
	}

	total := geo.PathLength(r.Geometry, r.Distance)
	st.estimatedMinutes = travel.EstimateMinutes(total, r.Mode)
	st.start = e.now()
	period := travel.TickPeriod(r.Mode, e.params.BaseTick)

	if e.obs != nil {
		e.obs.RunStarted()
	}
	sink.Emit(StartedEvent{
		Points:           len(r.Geometry),
		TotalMeters:      total,
		EstimatedMinutes: st.estimatedMinutes,
		TickPeriod:       period,
		Label:            "Estimated time: " + travel.FormatDuration(st.estimatedMinutes),
	})
	if len(r.Steps) > 0 {
		sink.Emit(ActiveStepEvent{Index: 0, Step: r.Steps[0]})
	}

	if len(r.Geometry) == 0 {
		st.arrive()
		h.finish("arrived")
		return h
	}
	h.task = e.sched.Every(period, func() bool {
		more := st.tick()
		if !more {
			h.finish("arrived")
		}
		return more
	})
	return h
}

// runState is mutated only from the tick callback.
type runState struct {
	Run
	params Params
	sink   Sink
	now    func() time.Time
	obs    Observer

	cursor           int
	accumulated      float64 // distance since the last instruction boundary
	active           int
	start            time.Time
	estimatedMinutes float64
	fallback         []geo.Coordinate
}

// tick advances one geometry point and reports whether more ticks are needed.
func (s *runState) tick() bool {
	if s.cursor >= len(s.Geometry) {
		s.arrive()
		return false
	}
	tickStart := time.Now()
	pos := s.Geometry[s.cursor]

	s.sink.Emit(PositionEvent{Index: s.cursor, Coordinate: pos, Bearing: s.bearing()})

	if s.active < len(s.Steps)-1 {
		if s.cursor > 0 {
			s.accumulated += s.Distance(s.Geometry[s.cursor-1], pos)
		}
		if s.accumulated >= s.Steps[s.active].DistanceMeters*s.params.StepTolerance {
			s.active++
			s.accumulated = 0
			s.sink.Emit(ActiveStepEvent{Index: s.active, Step: s.Steps[s.active]})
			if s.obs != nil {
				s.obs.StepAdvanced()
			}
		}
	}

	remaining := s.Distance(pos, s.Destination)
	pct := math.Round(float64(s.cursor)/float64(len(s.Geometry))*1000) / 10
	near := remaining <= s.params.FallbackThresholdMeters
	if !near {
		s.fallback = nil
		s.sink.Emit(ProgressEvent{
			Pct:             pct,
			RemainingMeters: remaining,
			Label:           fmt.Sprintf("Progress: %.1f%% | Remaining distance: %.1f km", pct, remaining/1000),
		})
	} else {
		s.fallback = geo.FallbackPath(pos, s.Destination)
		s.sink.Emit(ProgressEvent{
			Pct:             pct,
			RemainingMeters: remaining,
			Near:            true,
			Fallback:        s.fallback,
			Label:           fmt.Sprintf("Almost there! (%.1f%%) | %d meters left", pct, int(math.Round(remaining))),
		})
	}

	elapsed := s.now().Sub(s.start).Minutes()
	left := math.Max(0, s.estimatedMinutes-elapsed)
	s.sink.Emit(TimeRemainingEvent{Minutes: left, Label: "Time remaining: " + travel.FormatDuration(left)})

	s.cursor++
	if s.obs != nil {
		s.obs.TickObserved(time.Since(tickStart), near)
	}
	if s.cursor >= len(s.Geometry) {
		s.arrive()
		return false
	}
	return true
}

func (s *runState) bearing() float64 {
	switch {
	case s.cursor > 0:
		return geo.Bearing(s.Geometry[s.cursor-1], s.Geometry[s.cursor])
	case len(s.Geometry) > 1:
		return geo.Bearing(s.Geometry[0], s.Geometry[1])
	}
	return 0
}

func (s *runState) arrive() {
	final := -1
	if n := len(s.Steps); n > 0 {
		if s.active != n-1 {
			s.active = n - 1
			s.sink.Emit(ActiveStepEvent{Index: s.active, Step: s.Steps[s.active]})
		}
		final = s.active
	}
	s.sink.Emit(ArrivedEvent{FinalStep: final, Message: ArrivalMessage})
}
