package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-simulator/internal/geo"
	"route-simulator/internal/osrm"
	"route-simulator/internal/sim"
	"route-simulator/internal/travel"
)

type fakeFetcher struct {
	routes   []osrm.Route
	errs     []error
	requests []osrm.Request
}

func (f *fakeFetcher) Route(_ context.Context, req osrm.Request) ([]osrm.Route, error) {
	f.requests = append(f.requests, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.routes, nil
}

// stepScheduler records tasks; a task only runs when stepped.
type stepScheduler struct {
	mu    sync.Mutex
	tasks []*stepTask
}

type stepTask struct {
	fn        func() bool
	cancelled bool
}

func (t *stepTask) Cancel() { t.cancelled = true }

func (s *stepScheduler) Every(_ time.Duration, fn func() bool) sim.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &stepTask{fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *stepScheduler) last() *stepTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[len(s.tasks)-1]
}

func (s *stepScheduler) runLast() {
	t := s.last()
	for !t.cancelled && t.fn() {
	}
}

func route(distance float64, coords ...orb.Point) osrm.Route {
	ls := orb.LineString(coords)
	return osrm.Route{
		Distance: distance,
		Geometry: geojson.NewGeometry(ls),
		Legs: []osrm.Leg{{Steps: []osrm.Step{
			{Distance: distance / 2, Maneuver: &osrm.Maneuver{Type: "depart"}},
			{Distance: distance / 2, Maneuver: &osrm.Maneuver{Type: "arrive"}},
		}}},
	}
}

var (
	origin      = geo.Coordinate{Lat: 19.40, Lng: -99.10}
	destination = geo.Coordinate{Lat: 19.41, Lng: -99.10}
)

func newSession(f *fakeFetcher) (*Session, *stepScheduler, *[]string) {
	sched := &stepScheduler{}
	var mu sync.Mutex
	var ids []string
	sinks := func(id string) sim.Sink {
		mu.Lock()
		ids = append(ids, id)
		mu.Unlock()
		return sim.Sinks{}
	}
	return New(f, sim.NewEngine(sched), sinks, nil), sched, &ids
}

func TestPlanSingleRouteStartsSimulation(t *testing.T) {
	f := &fakeFetcher{routes: []osrm.Route{route(1200, orb.Point{-99.10, 19.40}, orb.Point{-99.10, 19.41})}}
	s, sched, ids := newSession(f)

	res, err := s.Plan(context.Background(), PlanRequest{Origin: origin, Destination: destination, Mode: travel.Walking})
	require.NoError(t, err)
	require.NotNil(t, res.Simulation)
	assert.False(t, res.AwaitingSelection)
	require.Len(t, res.Routes, 1)
	assert.Equal(t, "Option 1: 1.2 km, 14 minutes", res.Routes[0].Label)
	assert.Equal(t, []string{res.Simulation.ID}, *ids)
	assert.Len(t, res.Simulation.Steps, 2)
	assert.Equal(t, travel.Walking, f.requests[0].Profile)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.False(t, cur.Arrived)

	sched.runLast()
	cur, _ = s.Current()
	assert.True(t, cur.Arrived)
}

func TestPlanAlternativesAwaitSelection(t *testing.T) {
	f := &fakeFetcher{routes: []osrm.Route{
		route(1000, orb.Point{-99.10, 19.40}, orb.Point{-99.10, 19.41}),
		route(1500, orb.Point{-99.10, 19.40}, orb.Point{-99.11, 19.405}, orb.Point{-99.10, 19.41}),
	}}
	s, sched, _ := newSession(f)

	res, err := s.Plan(context.Background(), PlanRequest{Origin: origin, Destination: destination, Alternatives: true})
	require.NoError(t, err)
	assert.True(t, res.AwaitingSelection)
	assert.Nil(t, res.Simulation)
	assert.Len(t, res.Routes, 2)
	assert.Empty(t, sched.tasks)
	_, ok := s.Current()
	assert.False(t, ok)

	_, err = s.Select(2)
	assert.ErrorIs(t, err, ErrBadSelection)

	first, err := s.Select(1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Route.Index)
	firstTask := sched.last()

	second, err := s.Select(0)
	require.NoError(t, err)
	assert.True(t, firstTask.cancelled, "previous simulation must be torn down")
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, sched.tasks, 2)
}

func TestSelectWithoutPlan(t *testing.T) {
	s, _, _ := newSession(&fakeFetcher{})
	_, err := s.Select(0)
	assert.ErrorIs(t, err, ErrNoAlternatives)
}

func TestChangeModeRecomputes(t *testing.T) {
	f := &fakeFetcher{routes: []osrm.Route{route(1200, orb.Point{-99.10, 19.40}, orb.Point{-99.10, 19.41})}}
	s, sched, _ := newSession(f)

	res, err := s.ChangeMode(context.Background(), travel.Cycling)
	require.NoError(t, err)
	assert.Nil(t, res, "nothing to recompute without endpoints")
	assert.Equal(t, travel.Cycling, s.Mode())

	_, err = s.Plan(context.Background(), PlanRequest{Origin: origin, Destination: destination})
	require.NoError(t, err)
	assert.Equal(t, travel.Cycling, f.requests[0].Profile, "plan inherits the session mode")
	first := sched.last()

	res, err = s.ChangeMode(context.Background(), travel.Motorcycle)
	require.NoError(t, err)
	require.NotNil(t, res.Simulation)
	assert.Equal(t, travel.Motorcycle, res.Simulation.Mode)
	assert.True(t, first.cancelled)
	assert.Equal(t, origin, f.requests[1].Origin)
	assert.Equal(t, destination, f.requests[1].Destination)
}

func TestAvoidTollsFallsBackWithWarning(t *testing.T) {
	f := &fakeFetcher{
		routes: []osrm.Route{route(1200, orb.Point{-99.10, 19.40}, orb.Point{-99.10, 19.41})},
		errs:   []error{&osrm.ServiceError{Code: "InvalidValue", Message: "Exclude flag combination is not supported."}},
	}
	s, _, _ := newSession(f)

	res, err := s.Plan(context.Background(), PlanRequest{Origin: origin, Destination: destination, AvoidTolls: true})
	require.NoError(t, err)
	assert.Equal(t, TollWarning, res.Warning)
	require.Len(t, f.requests, 2)
	assert.True(t, f.requests[0].AvoidTolls)
	assert.False(t, f.requests[1].AvoidTolls)
}

func TestPlanErrorTearsDownPrevious(t *testing.T) {
	f := &fakeFetcher{routes: []osrm.Route{route(1200, orb.Point{-99.10, 19.40}, orb.Point{-99.10, 19.41})}}
	s, sched, _ := newSession(f)

	_, err := s.Plan(context.Background(), PlanRequest{Origin: origin, Destination: destination})
	require.NoError(t, err)
	running := sched.last()

	f.errs = []error{osrm.ErrTimeout}
	_, err = s.Plan(context.Background(), PlanRequest{Origin: origin, Destination: destination})
	assert.True(t, errors.Is(err, osrm.ErrTimeout))
	assert.True(t, running.cancelled)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	f := &fakeFetcher{routes: []osrm.Route{route(1200, orb.Point{-99.10, 19.40}, orb.Point{-99.10, 19.41})}}
	s, sched, _ := newSession(f)

	_, err := s.Plan(context.Background(), PlanRequest{Origin: origin, Destination: destination})
	require.NoError(t, err)
	s.Reset()
	s.Reset()

	assert.True(t, sched.last().cancelled)
	_, ok := s.Current()
	assert.False(t, ok)
	_, err = s.Select(0)
	assert.ErrorIs(t, err, ErrNoAlternatives)

	res, err := s.ChangeMode(context.Background(), travel.Walking)
	require.NoError(t, err)
	assert.Nil(t, res)
}
