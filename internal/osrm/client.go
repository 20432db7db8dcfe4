package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"route-simulator/internal/geo"
	"route-simulator/internal/travel"
)

var (
	ErrTimeout  = errors.New("routing service timed out")
	ErrNoRoutes = errors.New("no routes found for the selected parameters")
)

// StatusError is returned when the service answers with a non-200 status.
type StatusError struct{ StatusCode int }

func (e *StatusError) Error() string { return fmt.Sprintf("routing service returned HTTP %d", e.StatusCode) }

// ServiceError carries the service's own error code and message (code != "Ok").
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "routing service error: " + e.Code
}

// Cache stores raw service responses keyed by request URL.
type Cache interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, body []byte) error
}

// Metrics receives per-request observations; outcome is ok|cache_hit|error.
type Metrics interface {
	ObserveRequest(service, outcome string, d time.Duration)
}

type Request struct {
	Profile      travel.Mode
	Origin       geo.Coordinate
	Destination  geo.Coordinate
	Alternatives bool
	AvoidTolls   bool
}

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	cache     Cache
	metrics   Metrics
}

type Option func(*Client)

func WithCache(c Cache) Option     { return func(cl *Client) { cl.cache = c } }
func WithMetrics(m Metrics) Option { return func(cl *Client) { cl.metrics = m } }

func WithHTTPClient(h *http.Client) Option { return func(cl *Client) { cl.http = h } }

func NewClient(baseURL, userAgent string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL builds the route service URL for req.
func (c *Client) URL(req Request) string {
	q := url.Values{}
	q.Set("overview", "full")
	q.Set("geometries", "geojson")
	q.Set("steps", "true")
	if req.Alternatives {
		q.Set("alternatives", "true")
	}
	if req.AvoidTolls {
		q.Set("exclude", "toll")
	}
	profile := req.Profile
	if profile == "" {
		profile = travel.Driving
	}
	return fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?%s",
		c.baseURL, url.PathEscape(string(profile)),
		req.Origin.Lng, req.Origin.Lat, req.Destination.Lng, req.Destination.Lat,
		q.Encode())
}

// Route requests routes between the request endpoints. At least one route is
// returned on success.
func (c *Client) Route(ctx context.Context, req Request) ([]Route, error) {
	start := time.Now()
	u := c.URL(req)

	if c.cache != nil {
		body, ok, err := c.cache.Load(ctx, u)
		if err != nil {
			log.Printf("route cache load error: %v", err)
		} else if ok {
			routes, err := decode(body)
			if err == nil {
				c.observe("cache_hit", start)
				return routes, nil
			}
			log.Printf("route cache entry unusable, refetching: %v", err)
		}
	}

	body, err := c.fetch(ctx, u)
	if err != nil {
		c.observe("error", start)
		return nil, err
	}
	routes, err := decode(body)
	if err != nil {
		c.observe("error", start)
		return nil, err
	}
	c.observe("ok", start)
	log.Printf("route computed: %d route(s) profile=%s", len(routes), req.Profile)

	if c.cache != nil {
		if err := c.cache.Store(ctx, u, body); err != nil {
			log.Printf("route cache store error: %v", err)
		}
	}
	return routes, nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		hreq.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(hreq)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("request route: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read route response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// OSRM reports NoRoute and friends with a 400 and a JSON body.
		var parsed Response
		if json.Unmarshal(body, &parsed) == nil && parsed.Code != "" {
			return nil, &ServiceError{Code: parsed.Code, Message: parsed.Message}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return body, nil
}

func decode(body []byte) ([]Route, error) {
	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode route response: %w", err)
	}
	if parsed.Code != "Ok" {
		return nil, &ServiceError{Code: parsed.Code, Message: parsed.Message}
	}
	if len(parsed.Routes) == 0 {
		return nil, ErrNoRoutes
	}
	return parsed.Routes, nil
}

func (c *Client) observe(outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveRequest("osrm", outcome, time.Since(start))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
