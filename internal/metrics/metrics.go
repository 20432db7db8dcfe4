package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ActiveSimulations prometheus.Gauge

	SimulationsStarted  prometheus.Counter
	SimulationsFinished *prometheus.CounterVec // outcome label: arrived|cancelled
	StepAdvances        prometheus.Counter
	NearTicks           prometheus.Counter

	UpstreamRequests *prometheus.CounterVec   // service, outcome
	UpstreamDuration *prometheus.HistogramVec // service

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	BaseTick          prometheus.Gauge // seconds
	FallbackThreshold prometheus.Gauge // meters
}

func NewCollector(baseTick time.Duration, fallbackThresholdMeters float64) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveSimulations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "navsim_active_simulations",
			Help: "Number of currently running simulations (0 or 1).",
		}),
		SimulationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "navsim_simulations_started_total",
			Help: "Total simulations started.",
		}),
		SimulationsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navsim_simulations_finished_total",
			Help: "Total simulations finished, by outcome.",
		}, []string{"outcome"}),
		StepAdvances: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "navsim_instruction_advances_total",
			Help: "Total active-instruction advances.",
		}),
		NearTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "navsim_near_destination_ticks_total",
			Help: "Ticks spent in short-range fallback guidance.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navsim_upstream_requests_total",
			Help: "Requests to the routing and geocoding services, by outcome.",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "navsim_upstream_request_duration_seconds",
			Help:    "Duration of routing and geocoding requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"service"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "navsim_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "navsim_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "navsim_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "navsim_tick_duration_seconds",
			Help:    "Duration of simulation tick computations.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "navsim_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		BaseTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "navsim_base_tick_seconds",
			Help: "Tick period at the 50 km/h reference speed.",
		}),
		FallbackThreshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "navsim_fallback_threshold_meters",
			Help: "Distance to destination at which fallback guidance starts.",
		}),
	}

	reg.MustRegister(
		c.ActiveSimulations, c.SimulationsStarted, c.SimulationsFinished,
		c.StepAdvances, c.NearTicks,
		c.UpstreamRequests, c.UpstreamDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.TickDuration, c.PublishDuration,
		c.BaseTick, c.FallbackThreshold,
	)

	c.BaseTick.Set(baseTick.Seconds())
	c.FallbackThreshold.Set(fallbackThresholdMeters)

	return c
}

// RunStarted, RunFinished, TickObserved and StepAdvanced implement sim.Observer.
func (c *Collector) RunStarted() {
	c.SimulationsStarted.Inc()
	c.ActiveSimulations.Inc()
}

func (c *Collector) RunFinished(outcome string) {
	c.SimulationsFinished.WithLabelValues(outcome).Inc()
	c.ActiveSimulations.Dec()
}

func (c *Collector) TickObserved(d time.Duration, near bool) {
	c.TickDuration.Observe(d.Seconds())
	if near {
		c.NearTicks.Inc()
	}
}

func (c *Collector) StepAdvanced() { c.StepAdvances.Inc() }

// ObserveRequest records one upstream call (osrm.Metrics, geocode.Metrics).
func (c *Collector) ObserveRequest(service, outcome string, d time.Duration) {
	c.UpstreamRequests.WithLabelValues(service, outcome).Inc()
	c.UpstreamDuration.WithLabelValues(service).Observe(d.Seconds())
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
