package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"

	"route-simulator/internal/geo"
	"route-simulator/internal/geocode"
	"route-simulator/internal/navigation"
	"route-simulator/internal/osrm"
	"route-simulator/internal/session"
	"route-simulator/internal/travel"
)

type Geocoder interface {
	Search(ctx context.Context, query string) ([]geocode.Place, error)
}

type Server struct {
	geocoder Geocoder
	router   session.RouteFetcher
	session  *session.Session
	snapshot *Snapshot
	mux      *http.ServeMux
}

func New(g Geocoder, r session.RouteFetcher, sess *session.Session, snap *Snapshot) *Server {
	s := &Server{geocoder: g, router: r, session: sess, snapshot: snap, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	s.mux.HandleFunc("GET /geocode", s.handleGeocode)
	s.mux.HandleFunc("GET /route", s.handleRoute)
	s.mux.HandleFunc("GET /simulation", s.handleCurrent)
	s.mux.HandleFunc("POST /simulation", s.handlePlan)
	s.mux.HandleFunc("DELETE /simulation", s.handleReset)
	s.mux.HandleFunc("POST /simulation/select", s.handleSelect)
	s.mux.HandleFunc("POST /simulation/mode", s.handleMode)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// Serve starts the API server on addr.
func (s *Server) Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("api server error: %v", err)
		}
	}()
	log.Printf("api listening on %s", addr)
	return srv
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	places, err := s.geocoder.Search(r.Context(), q)
	if err != nil {
		log.Printf("geocode %q: %v", q, err)
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	type result struct {
		geocode.Place
		ShortName string `json:"shortName"`
		Area      string `json:"area"`
	}
	out := make([]result, len(places))
	for i, p := range places {
		out[i] = result{Place: p, ShortName: p.ShortName(), Area: p.Area()}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRoute returns the candidate routes as a GeoJSON FeatureCollection.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := geo.ParseLatLng(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	end, err := geo.ParseLatLng(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end: "+err.Error())
		return
	}
	mode := travel.Driving
	if p := q.Get("profile"); p != "" {
		m, ok := travel.ParseMode(p)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid transport profile: "+p)
			return
		}
		mode = m
	}
	routes, err := s.router.Route(r.Context(), osrm.Request{
		Profile:      mode,
		Origin:       start,
		Destination:  end,
		Alternatives: parseBool(q.Get("alternatives")),
		AvoidTolls:   parseBool(q.Get("avoid_tolls")),
	})
	if err != nil {
		log.Printf("route %s -> %s: %v", start, end, err)
		writeError(w, upstreamStatus(err), err.Error())
		return
	}

	fc := geojson.NewFeatureCollection()
	for i, rt := range routes {
		f := geojson.NewFeature(rt.Line())
		minutes := travel.EstimateMinutes(rt.Distance, mode)
		steps := navigation.Extract(rt)
		labels := make([]map[string]any, len(steps))
		for j, st := range steps {
			labels[j] = map[string]any{"text": st.Text, "distance": navigation.FormatDistance(st.DistanceMeters)}
		}
		f.Properties["index"] = i
		f.Properties["distanceMeters"] = rt.Distance
		f.Properties["estimatedMinutes"] = minutes
		f.Properties["duration"] = travel.FormatDuration(minutes)
		f.Properties["instructions"] = labels
		fc.Append(f)
	}
	writeJSON(w, http.StatusOK, fc)
}

type planBody struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	Mode         string `json:"mode"`
	Alternatives bool   `json:"alternatives"`
	AvoidTolls   bool   `json:"avoidTolls"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var body planBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err1 := geo.ParseLatLng(body.Start)
	end, err2 := geo.ParseLatLng(body.End)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "enter valid coordinates as: latitude, longitude")
		return
	}
	var mode travel.Mode
	if body.Mode != "" {
		m, ok := travel.ParseMode(body.Mode)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid transport profile: "+body.Mode)
			return
		}
		mode = m
	}
	res, err := s.session.Plan(r.Context(), session.PlanRequest{
		Origin:       start,
		Destination:  end,
		Mode:         mode,
		Alternatives: body.Alternatives,
		AvoidTolls:   body.AvoidTolls,
	})
	if err != nil {
		s.snapshot.Clear()
		log.Printf("plan %s -> %s: %v", start, end, err)
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sm, err := s.session.Select(body.Index)
	switch {
	case errors.Is(err, session.ErrNoAlternatives):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, sm)
	}
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mode, ok := travel.ParseMode(body.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transport profile: "+body.Mode)
		return
	}
	res, err := s.session.ChangeMode(r.Context(), mode)
	if err != nil {
		s.snapshot.Clear()
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	if res == nil {
		writeJSON(w, http.StatusOK, map[string]any{"mode": mode})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.session.Reset()
	s.snapshot.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrent(w http.ResponseWriter, _ *http.Request) {
	cur, ok := s.session.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no simulation; select a start and destination")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"simulation": cur,
		"state":      s.snapshot.State(),
	})
}

func upstreamStatus(err error) int {
	var se *osrm.ServiceError
	switch {
	case errors.Is(err, geocode.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, geocode.ErrNoResults), errors.Is(err, osrm.ErrNoRoutes):
		return http.StatusNotFound
	case errors.Is(err, geocode.ErrTimeout), errors.Is(err, osrm.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &se):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
