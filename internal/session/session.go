package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"route-simulator/internal/geo"
	"route-simulator/internal/navigation"
	"route-simulator/internal/osrm"
	"route-simulator/internal/sim"
	"route-simulator/internal/travel"
)

var (
	ErrNoAlternatives = errors.New("no route alternatives to choose from")
	ErrBadSelection   = errors.New("route alternative out of range")
)

// TollWarning is reported when the routing service cannot honor toll avoidance.
const TollWarning = "the routing service does not support avoiding tolls; showing all routes"

type RouteFetcher interface {
	Route(ctx context.Context, req osrm.Request) ([]osrm.Route, error)
}

// SinkFactory returns the presentation sinks for a new simulation.
type SinkFactory func(simulationID string) sim.Sink

type PlanRequest struct {
	Origin       geo.Coordinate `json:"origin"`
	Destination  geo.Coordinate `json:"destination"`
	Mode         travel.Mode    `json:"mode"`
	Alternatives bool           `json:"alternatives"`
	AvoidTolls   bool           `json:"avoidTolls"`
}

// RouteSummary describes one candidate route as offered for selection.
type RouteSummary struct {
	Index            int     `json:"index"`
	DistanceMeters   float64 `json:"distanceMeters"`
	EstimatedMinutes float64 `json:"estimatedMinutes"`
	Label            string  `json:"label"`
}

// Simulation describes the active (or last finished) simulation.
type Simulation struct {
	ID          string            `json:"id"`
	Route       RouteSummary      `json:"route"`
	Mode        travel.Mode       `json:"mode"`
	Steps       []navigation.Step `json:"steps"`
	StartedAt   time.Time         `json:"startedAt"`
	Arrived     bool              `json:"arrived"`
	Origin      geo.Coordinate    `json:"origin"`
	Destination geo.Coordinate    `json:"destination"`
}

type PlanResult struct {
	Routes            []RouteSummary `json:"routes"`
	AwaitingSelection bool           `json:"awaitingSelection"`
	Simulation        *Simulation    `json:"simulation,omitempty"`
	Warning           string         `json:"warning,omitempty"`
}

// Session is the single-user map context: chosen endpoints, transport mode,
// the last set of alternatives and at most one running simulation.
type Session struct {
	fetcher  RouteFetcher
	engine   *sim.Engine
	sinks    SinkFactory
	distance geo.DistanceFunc

	mu           sync.Mutex
	origin       *geo.Coordinate
	destination  *geo.Coordinate
	mode         travel.Mode
	avoidTolls   bool
	wantAlts     bool
	alternatives []osrm.Route
	current      *Simulation
	handle       *sim.Handle
}

func New(fetcher RouteFetcher, engine *sim.Engine, sinks SinkFactory, distance geo.DistanceFunc) *Session {
	if distance == nil {
		distance = geo.Distance
	}
	if sinks == nil {
		sinks = func(string) sim.Sink { return sim.Sinks{} }
	}
	return &Session{fetcher: fetcher, engine: engine, sinks: sinks, distance: distance, mode: travel.Driving}
}

// Plan requests routes for req. A single route (or alternatives not
// requested) starts simulating immediately; several alternatives wait for Select.
func (s *Session) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planLocked(ctx, req)
}

func (s *Session) planLocked(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	s.teardownLocked()
	s.alternatives = nil
	if req.Mode == "" {
		req.Mode = s.mode
	}
	origin, destination := req.Origin, req.Destination
	s.origin, s.destination = &origin, &destination
	s.mode, s.avoidTolls, s.wantAlts = req.Mode, req.AvoidTolls, req.Alternatives

	oreq := osrm.Request{
		Profile:      req.Mode,
		Origin:       req.Origin,
		Destination:  req.Destination,
		Alternatives: req.Alternatives,
		AvoidTolls:   req.AvoidTolls,
	}
	res := &PlanResult{}
	routes, err := s.fetcher.Route(ctx, oreq)
	var se *osrm.ServiceError
	if err != nil && req.AvoidTolls && errors.As(err, &se) {
		log.Printf("routing service rejected toll exclusion (%s), retrying without it", se.Code)
		oreq.AvoidTolls = false
		routes, err = s.fetcher.Route(ctx, oreq)
		res.Warning = TollWarning
	}
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}
	if len(routes) == 0 {
		return nil, osrm.ErrNoRoutes
	}

	s.alternatives = routes
	for i, r := range routes {
		res.Routes = append(res.Routes, summarize(i, r, req.Mode))
	}
	if req.Alternatives && len(routes) > 1 {
		res.AwaitingSelection = true
		log.Printf("planned %d alternatives (mode=%s), awaiting selection", len(routes), req.Mode)
		return res, nil
	}
	res.Simulation = s.startLocked(0)
	return res, nil
}

// Select starts simulating alternative i of the last plan.
func (s *Session) Select(i int) (*Simulation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.alternatives) == 0 {
		return nil, ErrNoAlternatives
	}
	if i < 0 || i >= len(s.alternatives) {
		return nil, fmt.Errorf("%w: %d of %d", ErrBadSelection, i, len(s.alternatives))
	}
	s.teardownLocked()
	return s.startLocked(i), nil
}

// ChangeMode switches the transport mode and, when both endpoints are set,
// recomputes the plan. It returns nil when nothing was recomputed.
func (s *Session) ChangeMode(ctx context.Context, mode travel.Mode) (*PlanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	if s.origin == nil || s.destination == nil {
		return nil, nil
	}
	return s.planLocked(ctx, PlanRequest{
		Origin:       *s.origin,
		Destination:  *s.destination,
		Mode:         mode,
		Alternatives: s.wantAlts,
		AvoidTolls:   s.avoidTolls,
	})
}

// Reset cancels any simulation and forgets endpoints and alternatives.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.origin, s.destination = nil, nil
	s.alternatives = nil
	s.avoidTolls, s.wantAlts = false, false
}

// Current returns the active or last finished simulation.
func (s *Session) Current() (Simulation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Simulation{}, false
	}
	cur := *s.current
	if s.handle != nil {
		select {
		case <-s.handle.Done():
			cur.Arrived = true
		default:
		}
	}
	return cur, true
}

func (s *Session) Mode() travel.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) startLocked(i int) *Simulation {
	route := s.alternatives[i]
	sm := &Simulation{
		ID:          uuid.NewString(),
		Route:       summarize(i, route, s.mode),
		Mode:        s.mode,
		Steps:       navigation.Extract(route),
		StartedAt:   time.Now(),
		Origin:      *s.origin,
		Destination: *s.destination,
	}
	geometry := geo.FromLineString(route.Line())
	log.Printf("starting simulation %s (%d points, %d steps, mode=%s)", sm.ID, len(geometry), len(sm.Steps), s.mode)

	s.current = sm
	s.handle = s.engine.Start(sim.Run{
		Geometry:    geometry,
		Steps:       sm.Steps,
		Mode:        s.mode,
		Destination: *s.destination,
		Distance:    s.distance,
	}, s.sinks(sm.ID))
	return sm
}

// teardownLocked cancels the running timer before anything replaces it.
func (s *Session) teardownLocked() {
	if s.handle != nil {
		s.handle.Cancel()
		s.handle = nil
		if s.current != nil {
			log.Printf("simulation %s torn down", s.current.ID)
		}
	}
	s.current = nil
}

func summarize(i int, r osrm.Route, mode travel.Mode) RouteSummary {
	minutes := travel.EstimateMinutes(r.Distance, mode)
	return RouteSummary{
		Index:            i,
		DistanceMeters:   r.Distance,
		EstimatedMinutes: minutes,
		Label:            fmt.Sprintf("Option %d: %.1f km, %s", i+1, r.Distance/1000, travel.FormatDuration(minutes)),
	}
}
