package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"momentum-allocator/internal/model"
)

type cacheEntry struct {
	history   *model.PriceHistory
	failed    []string
	expiresAt time.Time
}

// CachedProvider memoizes successful fetches in memory for a TTL.
// Histories are shared between callers and must not be mutated.
type CachedProvider struct {
	inner Provider
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	store map[string]*cacheEntry

	stop chan struct{}
	once sync.Once
}

// NewCachedProvider starts a background sweep of expired entries; call Stop
// to end it.
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	c := &CachedProvider{
		inner: inner,
		ttl:   ttl,
		now:   time.Now,
		store: make(map[string]*cacheEntry),
		stop:  make(chan struct{}),
	}
	go c.cleanup(5 * time.Minute)
	return c
}

func (c *CachedProvider) Fetch(ctx context.Context, tickers []string, start, end time.Time) (*model.PriceHistory, []string, error) {
	key := FetchKey(tickers, start, end)

	c.mu.RLock()
	entry, ok := c.store[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.history, cloneStrings(entry.failed), nil
	}

	h, failed, err := c.inner.Fetch(ctx, tickers, start, end)
	if err != nil || h == nil || h.Empty() {
		return h, failed, err
	}

	c.mu.Lock()
	c.store[key] = &cacheEntry{history: h, failed: cloneStrings(failed), expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return h, failed, nil
}

// Len returns the number of stored entries, expired or not.
func (c *CachedProvider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries.
func (c *CachedProvider) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*cacheEntry)
}

func (c *CachedProvider) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *CachedProvider) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *CachedProvider) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.store {
		if !now.Before(entry.expiresAt) {
			delete(c.store, key)
		}
	}
}

// FetchKey hashes the canonical ticker set and the date window.
func FetchKey(tickers []string, start, end time.Time) string {
	keyStr := strings.Join(model.CanonicalTickers(tickers), ",") + "|" +
		start.UTC().Format("2006-01-02") + "|" + end.UTC().Format("2006-01-02")
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

var _ Provider = (*CachedProvider)(nil)
