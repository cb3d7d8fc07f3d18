package media

import (
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"
)

// DefaultURLCacheTTL is how long resolved URLs are remembered. Generated
// media is immutable (the key encodes the transform), so the TTL exists
// only to bound staleness against out-of-band deletions in storage.
const DefaultURLCacheTTL = 24 * time.Hour

// URLCache remembers media keys that already resolved, so a repeat page
// load for the same thumbnails skips generation entirely and goes
// straight to ready.
type URLCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewURLCache creates a URL cache holding at most maxEntries resolved
// URLs. A zero ttl falls back to DefaultURLCacheTTL.
func NewURLCache(maxEntries int64, ttl time.Duration, logger *slog.Logger) (*URLCache, error) {
	if maxEntries <= 0 {
		maxEntries = 100_000
	}
	if ttl <= 0 {
		ttl = DefaultURLCacheTTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		// Ristretto wants ~10x counters per tracked entry.
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Debug("url cache initialized",
			slog.Int64("max_entries", maxEntries),
			slog.Duration("ttl", ttl))
	}

	return &URLCache{cache: cache, ttl: ttl}, nil
}

// Get returns the cached URL for a media key, if any.
func (c *URLCache) Get(key MediaKey) (string, bool) {
	v, ok := c.cache.Get(string(key))
	if !ok {
		return "", false
	}
	url, ok := v.(string)
	return url, ok
}

// Set remembers a resolved URL. Each entry costs 1 toward the cache's
// entry budget.
func (c *URLCache) Set(key MediaKey, url string) {
	c.cache.SetWithTTL(string(key), url, 1, c.ttl)
}

// Wait blocks until pending writes are applied. Ristretto admits
// entries asynchronously; tests call this for deterministic reads.
func (c *URLCache) Wait() {
	c.cache.Wait()
}

// Close releases the cache's resources.
func (c *URLCache) Close() {
	c.cache.Close()
}
