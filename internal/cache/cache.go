// Package cache provides a small time-windowed memoization of one fetch.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	appLog "dashcal/internal/log"
)

// FetchFunc produces a fresh value.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// TTL memoizes the result of fetch for ttl. When a refresh fails, the last
// good value is served and marked stale; if there never was one, the zero
// value is returned, also marked stale.
//
// A TTL is safe for concurrent use. At most one fetch runs at a time and
// the lock is never held across it: once a value exists, expired reads
// return it immediately and revalidate in the background.
type TTL[T any] struct {
	name  string
	ttl   time.Duration
	fetch FetchFunc[T]
	group singleflight.Group

	mu        sync.Mutex
	data      T
	fetchedAt time.Time
	has       bool
	failed    bool
	// pending is the result channel of the latest background refresh.
	pending <-chan singleflight.Result
}

// NewTTL returns a cache for fetch. name is only used in log lines.
func NewTTL[T any](name string, ttl time.Duration, fetch FetchFunc[T]) *TTL[T] {
	return &TTL[T]{name: name, ttl: ttl, fetch: fetch}
}

// GetOrFetch returns the cached value if it is younger than the TTL at
// now. An expired value is returned as is while a refresh runs in the
// background; only an empty cache waits for the fetch. stale reports that
// the latest refresh attempt failed or that no value exists.
func (c *TTL[T]) GetOrFetch(ctx context.Context, now time.Time) (data T, stale bool) {
	c.mu.Lock()
	if !c.has {
		// Joining under the lock: a finished fetch has already stored its
		// value, a running one is still registered with the group.
		ch := c.group.DoChan(c.name, c.loader(ctx, now))
		c.mu.Unlock()
		return c.wait(ctx, ch)
	}
	defer c.mu.Unlock()

	age := now.Sub(c.fetchedAt)
	if age >= 0 && age < c.ttl {
		appLog.Debug("cache hit", "cache", c.name, "age", age.Round(time.Second).String())
		return c.data, c.failed
	}

	c.pending = c.group.DoChan(c.name, c.loader(ctx, now))
	appLog.Debug("cache expired; revalidating in background", "cache", c.name, "age", age.Round(time.Second).String())
	return c.data, c.failed
}

// Refresh forces a fetch regardless of age and waits for it. A fetch that
// is already running is joined instead of repeated.
func (c *TTL[T]) Refresh(ctx context.Context, now time.Time) (data T, stale bool) {
	return c.wait(ctx, c.group.DoChan(c.name, c.loader(ctx, now)))
}

func (c *TTL[T]) wait(ctx context.Context, ch <-chan singleflight.Result) (T, bool) {
	select {
	case <-ch:
	case <-ctx.Done():
		appLog.Warn("cache refresh abandoned by caller", "cache", c.name)
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.data, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data, !c.has || c.failed
}

// loader wraps fetch for the single-flight group. The fetch outlives the
// caller's cancellation so that joined callers still get a result.
func (c *TTL[T]) loader(ctx context.Context, now time.Time) func() (any, error) {
	ctx = context.WithoutCancel(ctx)
	return func() (any, error) {
		fresh, err := c.fetch(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.failed = true
			if c.has {
				appLog.Error("cache refresh failed; serving stale data", err,
					"cache", c.name,
					"age", now.Sub(c.fetchedAt).Round(time.Second).String(),
				)
			} else {
				appLog.Error("cache refresh failed; no data available", err, "cache", c.name)
			}
			return nil, err
		}

		c.data = fresh
		c.fetchedAt = now
		c.has = true
		c.failed = false
		return nil, nil
	}
}
