package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"
	"time"

	"route-simulator/internal/config"
	"route-simulator/internal/db"
	"route-simulator/internal/geocode"
	"route-simulator/internal/metrics"
	"route-simulator/internal/osrm"
	"route-simulator/internal/publisher"
	"route-simulator/internal/server"
	"route-simulator/internal/session"
	"route-simulator/internal/sim"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.BaseTick, cfg.FallbackThreshold)
		srv := mcol.Serve(cfg.MetricsAddr)
		defer shutdown(srv)
	}

	// Optional NATS publisher for simulation events
	var pub *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
	}

	osrmOpts := []osrm.Option{}
	geoOpts := []geocode.Option{
		geocode.WithCountryCodes(cfg.CountryCodes),
		geocode.WithLanguage(cfg.Language),
	}
	engineOpts := []sim.Option{
		sim.WithParams(sim.Params{
			BaseTick:                cfg.BaseTick,
			FallbackThresholdMeters: cfg.FallbackThreshold,
			StepTolerance:           cfg.StepTolerance,
		}),
	}
	if mcol != nil {
		osrmOpts = append(osrmOpts, osrm.WithMetrics(mcol))
		geoOpts = append(geoOpts, geocode.WithMetrics(mcol))
		engineOpts = append(engineOpts, sim.WithObserver(mcol))
	}

	// Optional Postgres route cache
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		defer sqlDB.Close()
		if err := db.Ping(ctx, sqlDB); err != nil {
			log.Fatalf("db ping error: %v", err)
		}
		rc := db.NewRouteCache(sqlDB, cfg.RouteCacheTTL)
		if err := rc.EnsureSchema(ctx); err != nil {
			log.Fatalf("route cache schema: %v", err)
		}
		osrmOpts = append(osrmOpts, osrm.WithCache(rc))
		go pruneLoop(ctx, sqlDB, rc, cfg.RouteCacheTTL)
		log.Printf("route cache enabled (ttl=%s)", cfg.RouteCacheTTL)
	}

	router := osrm.NewClient(cfg.OSRMURL, cfg.UserAgent, cfg.HTTPTimeout, osrmOpts...)
	geocoder := geocode.NewClient(cfg.NominatimURL, cfg.UserAgent, cfg.HTTPTimeout, geoOpts...)
	engine := sim.NewEngine(sim.TickerScheduler{}, engineOpts...)

	snap := server.NewSnapshot()
	sinks := func(id string) sim.Sink {
		out := sim.Sinks{snap.Sink(id), logSink(id)}
		if pub != nil {
			out = append(out, pub.Sink(id))
		}
		return out
	}
	sess := session.New(router, engine, sinks, nil)

	api := server.New(geocoder, router, sess, snap).Serve(cfg.HTTPAddr)

	// Block until context cancelled
	<-ctx.Done()
	sess.Reset()
	shutdown(api)
	log.Println("shutdown complete")
}

// logSink logs instruction changes and arrival.
func logSink(id string) sim.Sink {
	return sim.SinkFunc(func(e sim.Event) {
		switch ev := e.(type) {
		case sim.ActiveStepEvent:
			log.Printf("simulation %s step %d: %s", id, ev.Index, ev.Step.Text)
		case sim.ArrivedEvent:
			log.Printf("simulation %s arrived", id)
		}
	})
}

func pruneLoop(ctx context.Context, sqlDB *sql.DB, rc *db.RouteCache, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := db.Ping(ctx, sqlDB); err != nil {
			log.Printf("db ping failed: %v", err)
			continue
		}
		n, err := rc.Prune(ctx)
		if err != nil {
			log.Printf("route cache prune error: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("pruned %d expired routes", n)
		}
	}
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdown(srv shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
