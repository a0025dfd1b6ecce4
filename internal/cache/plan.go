package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// Observer counts cache lookups. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveCache(cache, result string)
}

// JSONCache stores JSON documents in a Store. Store failures are logged and
// reported as misses so a broken cache never fails a request.
type JSONCache struct {
	name     string
	store    Store
	ttl      time.Duration
	observer Observer
}

// NewJSONCache returns nil when store is nil; a nil cache always misses.
func NewJSONCache(name string, store Store, ttl time.Duration, observer Observer) *JSONCache {
	if store == nil {
		return nil
	}
	return &JSONCache{name: name, store: store, ttl: ttl, observer: observer}
}

// Load decodes the entry at key into dst and reports whether it was found.
func (c *JSONCache) Load(ctx context.Context, key string, dst any) bool {
	if c == nil {
		return false
	}
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Warn().Str("component", "cache").Str("cache", c.name).Err(err).Msg("read failed")
		c.observe("error")
		return false
	}
	if !ok {
		c.observe("miss")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Warn().Str("component", "cache").Str("cache", c.name).Err(err).Msg("corrupt entry")
		c.observe("error")
		return false
	}
	c.observe("hit")
	return true
}

// Save encodes v under key. Failures are logged only.
func (c *JSONCache) Save(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn().Str("component", "cache").Str("cache", c.name).Err(err).Msg("encode failed")
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		log.Warn().Str("component", "cache").Str("cache", c.name).Err(err).Msg("write failed")
	}
}

func (c *JSONCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

func (c *JSONCache) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveCache(c.name, result)
	}
}
