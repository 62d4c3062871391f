// Package fetchcache caches raw upstream bodies in Redis, keyed by URL.
//
// Only fetched bodies are cached; plans are always recomputed per request.
// The cache is best-effort: Redis failures degrade to cache misses and the
// fetch stage falls through to HTTP.
package fetchcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridguard/leop-server/internal/adapter/observability"
)

const keyPrefix = "leop:fetch:"

// Cache implements domain.BodyCache on Redis.
type Cache struct {
	rdb *redis.Client
}

// New returns a Cache talking to the Redis instance at addr.
func New(addr string) *Cache {
	return &Cache{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewWithClient returns a Cache over an existing client (useful for tests).
func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Get returns the cached body for key, if present and unexpired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("fetch cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		observability.CacheMissesTotal.Inc()
		return nil, false
	}
	observability.CacheHitsTotal.Inc()
	return body, true
}

// Set stores body under key for ttl. Errors are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if len(body) == 0 {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, body, ttl).Err(); err != nil {
		slog.Warn("fetch cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Ping verifies connectivity at startup.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
