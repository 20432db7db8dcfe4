package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr          string
	OSRMURL           string
	NominatimURL      string
	UserAgent         string
	CountryCodes      string
	Language          string
	HTTPTimeout       time.Duration
	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool
	DatabaseURL       string
	RouteCacheTTL     time.Duration
	MetricsAddr       string
	BaseTick          time.Duration
	FallbackThreshold float64
	StepTolerance     float64
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")
	cfg.OSRMURL = strings.TrimRight(getenvDefault("OSRM_URL", "https://router.project-osrm.org"), "/")
	cfg.NominatimURL = strings.TrimRight(getenvDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"), "/")
	cfg.UserAgent = getenvDefault("USER_AGENT", "navsim/1.0")
	cfg.CountryCodes = getenvDefault("GEOCODE_COUNTRY_CODES", "mx")
	cfg.Language = getenvDefault("GEOCODE_LANGUAGE", "es")

	// Upstream timeout (seconds)
	if v := os.Getenv("HTTP_TIMEOUT_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT_SEC: %q", v)
		}
		cfg.HTTPTimeout = time.Duration(sec) * time.Second
	} else {
		cfg.HTTPTimeout = 10 * time.Second
	}

	// NATS is optional; empty NATS_URL disables event publishing.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "navsim")

	// Debug logging for NATS publish subjects
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogNATSSubjects = true
		default:
			cfg.LogNATSSubjects = false
		}
	}

	// Route cache DSN: prefer DATABASE_URL / PG_DSN, else build from PG* vars when PGDATABASE is set.
	// Empty disables the cache.
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		if db := os.Getenv("PGDATABASE"); db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	}
	cfg.DatabaseURL = dsn

	// Route cache TTL (minutes)
	if v := os.Getenv("ROUTE_CACHE_TTL_MIN"); v != "" {
		min, err := strconv.Atoi(v)
		if err != nil || min <= 0 {
			return nil, fmt.Errorf("invalid ROUTE_CACHE_TTL_MIN: %q", v)
		}
		cfg.RouteCacheTTL = time.Duration(min) * time.Minute
	} else {
		cfg.RouteCacheTTL = 24 * time.Hour
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	// Base tick for a mode travelling at 50 km/h
	if v := os.Getenv("TICK_BASE_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid TICK_BASE_MS: %q", v)
		}
		cfg.BaseTick = time.Duration(ms) * time.Millisecond
	} else {
		cfg.BaseTick = 100 * time.Millisecond
	}

	if v := os.Getenv("FALLBACK_THRESHOLD_M"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid FALLBACK_THRESHOLD_M: %q", v)
		}
		cfg.FallbackThreshold = f
	} else {
		cfg.FallbackThreshold = 500
	}

	if v := os.Getenv("STEP_TOLERANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 1 {
			return nil, fmt.Errorf("invalid STEP_TOLERANCE: %q", v)
		}
		cfg.StepTolerance = f
	} else {
		cfg.StepTolerance = 0.9
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
