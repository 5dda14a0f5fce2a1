package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent from the cache.
var ErrMiss = errors.New("cache miss")

// QueryCache is a read-through JSON cache for list queries, keyed by the
// canonical query string of the filter that produced them. Mutations
// invalidate all entries under a prefix. A nil *QueryCache is valid and
// disables caching, so services stay testable without Redis.
type QueryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQueryCache creates a QueryCache with the given entry TTL.
func NewQueryCache(rdb *redis.Client, ttl time.Duration) *QueryCache {
	return &QueryCache{rdb: rdb, ttl: ttl}
}

// GetJSON fetches key and unmarshals it into dest. Returns ErrMiss when the
// key is absent or caching is disabled.
func (c *QueryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if c == nil || c.rdb == nil {
		return ErrMiss
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt entry is treated as a miss; the caller will overwrite it.
		log.Printf("QueryCache: dropping unreadable entry %s: %v", key, err)
		_ = c.rdb.Del(ctx, key).Err()
		return ErrMiss
	}
	return nil
}

// SetJSON stores value under key with the cache TTL. Failures are logged,
// not returned: a broken cache must never fail a read path.
func (c *QueryCache) SetJSON(ctx context.Context, key string, value interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("QueryCache: failed to marshal value for %s: %v", key, err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("QueryCache: failed to set %s: %v", key, err)
	}
}

// Invalidate removes every entry matching the given key pattern (e.g.
// "inspections:list:*"). Uses SCAN so it stays safe on a shared instance.
func (c *QueryCache) Invalidate(ctx context.Context, pattern string) {
	if c == nil || c.rdb == nil {
		return
	}
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("QueryCache: failed to delete %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("QueryCache: scan for %s failed: %v", pattern, err)
	}
}
