package checker

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/hazz-dev/healthd/internal/metrics"
)

// entry is an immutable cached result; stale entries are replaced, never edited.
type entry struct {
	result   Result
	storedAt time.Time
}

// Cache memoizes check results per request identity and coalesces concurrent
// probes for the same key: while one probe is in flight every duplicate caller
// attaches to it and receives the same result.
type Cache struct {
	next    Checker
	ttl     time.Duration
	timeout time.Duration
	entries *lru.Cache[string, entry]
	group   singleflight.Group
}

// NewCache wraps next with a TTL cache of size entries; probes run under the
// given fixed timeout.
func NewCache(next Checker, ttl time.Duration, size int, timeout time.Duration) *Cache {
	// lru.New only fails for a non-positive size, which config validation rules out.
	entries, err := lru.New[string, entry](size)
	if err != nil {
		panic(err)
	}
	return &Cache{next: next, ttl: ttl, timeout: timeout, entries: entries}
}

// Probe returns a fresh-enough cached result, or runs the underlying checker
// at most once per key and stores its result. The probe itself is bounded by
// the fixed timeout only: cancellation of one attached caller must not cancel
// the probe for the others.
func (c *Cache) Probe(ctx context.Context, req Request) Result {
	key := req.cacheKey()
	if e, ok := c.entries.Get(key); ok && time.Since(e.storedAt) < c.ttl {
		metrics.CacheHits.Inc()
		return e.result
	}
	metrics.CacheMisses.Inc()

	v, err, _ := c.group.Do(key, func() (any, error) {
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		res := c.next.Probe(probeCtx, req)
		c.entries.Add(key, entry{result: res, storedAt: time.Now()})
		return res, nil
	})
	if err != nil {
		// Checkers convert their failures into Results, so this path is only
		// reachable through singleflight's panic propagation.
		panic(err)
	}
	return v.(Result)
}

// Len reports the number of live cache entries, expired ones included.
func (c *Cache) Len() int {
	return c.entries.Len()
}
