package reports

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how stale a served report may be.
const DefaultCacheTTL = 5 * time.Minute

// Cache stores rendered report payloads keyed by report name and
// filter set. Redis is the primary store so replicas share entries;
// when Redis is absent or unreachable a process-local map serves as
// fallback.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration

	mu    sync.RWMutex
	local map[string]localEntry
}

type localEntry struct {
	payload []byte
	expires time.Time
}

// NewCache builds a Cache. rdb may be nil for a purely local cache.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{rdb: rdb, ttl: ttl, local: make(map[string]localEntry)}
}

// Get unmarshals a cached payload into target, reporting whether a
// fresh entry existed.
func (c *Cache) Get(ctx context.Context, key string, target any) bool {
	if c == nil {
		return false
	}
	if c.rdb != nil {
		payload, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(payload, target) == nil
		}
	}
	c.mu.RLock()
	entry, ok := c.local[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return false
	}
	return json.Unmarshal(entry.payload, target) == nil
}

// Set stores value under key for the cache TTL. Failures are silent:
// a cache miss later is the worst outcome.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err == nil {
			return
		}
	}
	c.mu.Lock()
	c.local[key] = localEntry{payload: payload, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Bust drops every cached report. Called after postings that change
// report output.
func (c *Cache) Bust(ctx context.Context) {
	if c == nil {
		return
	}
	if c.rdb != nil {
		iter := c.rdb.Scan(ctx, 0, "reports:*", 100).Iterator()
		for iter.Next(ctx) {
			c.rdb.Del(ctx, iter.Val())
		}
	}
	c.mu.Lock()
	c.local = make(map[string]localEntry)
	c.mu.Unlock()
}
