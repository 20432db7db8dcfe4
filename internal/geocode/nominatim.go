package geocode

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
	"strconv"
	"strings"
	"time"

	"route-simulator/internal/geo"
)

var (
	ErrEmptyQuery = errors.New("search query is empty")
	ErrNoResults  = errors.New("no results found")
	ErrTimeout    = errors.New("geocoding service timed out")
)

// DefaultLimit matches the number of candidates offered to the user.
const DefaultLimit = 5

// Place is one geocoding candidate.
type Place struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"displayName"`
}

func (p Place) Coordinate() geo.Coordinate { return geo.Coordinate{Lat: p.Lat, Lng: p.Lon} }

// ShortName is the first component of the display name.
func (p Place) ShortName() string {
	name, _, _ := strings.Cut(p.DisplayName, ",")
	return strings.TrimSpace(name)
}

// Area is the next two components after the short name.
func (p Place) Area() string {
	parts := strings.Split(p.DisplayName, ",")
	if len(parts) < 2 {
		return ""
	}
	end := min(len(parts), 3)
	area := make([]string, 0, end-1)
	for _, s := range parts[1:end] {
		area = append(area, strings.TrimSpace(s))
	}
	return strings.Join(area, ", ")
}

// Metrics receives per-request observations; outcome is ok|empty|error.
type Metrics interface {
	ObserveRequest(service, outcome string, d time.Duration)
}

type Client struct {
	baseURL      string
	userAgent    string
	countryCodes string
	language     string
	limit        int
	http         *http.Client
	metrics      Metrics
}

type Option func(*Client)

func WithCountryCodes(cc string) Option { return func(c *Client) { c.countryCodes = cc } }
func WithLanguage(lang string) Option   { return func(c *Client) { c.language = lang } }
func WithLimit(n int) Option            { return func(c *Client) { c.limit = n } }
func WithMetrics(m Metrics) Option      { return func(c *Client) { c.metrics = m } }

func NewClient(baseURL, userAgent string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		limit:     DefaultLimit,
		http:      &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search resolves free text into up to limit candidate places.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	start := time.Now()
	places, err := c.search(ctx, query)
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNoResults):
		outcome = "empty"
	case err != nil:
		outcome = "error"
	}
	if c.metrics != nil {
		c.metrics.ObserveRequest("nominatim", outcome, time.Since(start))
	}
	return places, err
}

func (c *Client) search(ctx context.Context, query string) ([]Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(c.limit))
	if c.countryCodes != "" {
		q.Set("countrycodes", c.countryCodes)
	}
	if c.language != "" {
		q.Set("accept-language", c.language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read geocode response: %w", err)
	}
	var raw []nominatimPlace
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		lat, err1 := strconv.ParseFloat(r.Lat, 64)
		lon, err2 := strconv.ParseFloat(r.Lon, 64)
		if err1 != nil || err2 != nil {
			log.Printf("skipping geocode result with bad coordinates %q,%q", r.Lat, r.Lon)
			continue
		}
		places = append(places, Place{Lat: lat, Lon: lon, DisplayName: r.DisplayName})
	}
	if len(places) == 0 {
		return nil, ErrNoResults
	}
	return places, nil
}
