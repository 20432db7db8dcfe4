package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const createRouteCache = `
CREATE TABLE IF NOT EXISTS route_cache (
  key        text PRIMARY KEY,
  url        text NOT NULL,
  body       bytea NOT NULL,
  fetched_at timestamptz NOT NULL DEFAULT now()
)`

// RouteCache keeps raw routing service responses in Postgres so repeated
// plans for the same endpoints and profile skip the network.
type RouteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewRouteCache returns a cache whose entries expire after ttl (0 = never).
func NewRouteCache(db *sql.DB, ttl time.Duration) *RouteCache {
	return &RouteCache{db: db, ttl: ttl, now: time.Now}
}

func (c *RouteCache) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, createRouteCache); err != nil {
		return fmt.Errorf("create route_cache: %w", err)
	}
	return nil
}

// CacheKey derives the primary key for a request URL.
func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (c *RouteCache) Load(ctx context.Context, url string) ([]byte, bool, error) {
	var body []byte
	var fetchedAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM route_cache WHERE key = $1`, CacheKey(url)).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query route_cache: %w", err)
	}
	if c.expired(fetchedAt) {
		return nil, false, nil
	}
	return body, true, nil
}

func (c *RouteCache) Store(ctx context.Context, url string, body []byte) error {
	_, err := c.db.ExecContext(ctx, `
INSERT INTO route_cache (key, url, body, fetched_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, fetched_at = EXCLUDED.fetched_at`,
		CacheKey(url), url, body, c.now())
	if err != nil {
		return fmt.Errorf("upsert route_cache: %w", err)
	}
	return nil
}

// Prune deletes expired entries and returns how many were removed.
func (c *RouteCache) Prune(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM route_cache WHERE fetched_at < $1`, c.now().Add(-c.ttl))
	if err != nil {
		return 0, fmt.Errorf("prune route_cache: %w", err)
	}
	return res.RowsAffected()
}

func (c *RouteCache) expired(fetchedAt time.Time) bool {
	return c.ttl > 0 && c.now().Sub(fetchedAt) > c.ttl
}
