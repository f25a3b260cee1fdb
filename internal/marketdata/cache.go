package marketdata

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchFunc produces a fresh payload for a cache key.
type FetchFunc func(ctx context.Context) (any, error)

// entry is an immutable snapshot; replaced wholesale on refresh.
type entry struct {
	payload   any
	fetchedAt time.Time
}

// Cache is a TTL cache with single-flight refresh. Concurrent callers for the
// same expired key share one upstream fetch and its result or failure.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group

	ttl          time.Duration
	serveStale   bool
	staleCeiling time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

type Options struct {
	TTL          time.Duration
	ServeStale   bool // serve a stale entry when the refresh fails
	StaleCeiling time.Duration
}

func NewCache(opts Options, logger *zap.Logger) *Cache {
	return &Cache{
		entries:      make(map[string]*entry),
		ttl:          opts.TTL,
		serveStale:   opts.ServeStale,
		staleCeiling: opts.StaleCeiling,
		now:          time.Now,
		logger:       logger,
	}
}

// Get returns the cached payload for key if it is younger than the TTL,
// otherwise coalesces concurrent callers into a single fetch.
func (c *Cache) Get(ctx context.Context, key string, fetch FetchFunc) (any, error) {
	if e, fresh := c.lookup(key); fresh {
		return e.payload, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A waiter queued behind the previous flight may find the entry
		// already refreshed.
		if e, fresh := c.lookup(key); fresh {
			return e.payload, nil
		}

		// The fetch must complete for the benefit of all waiters even if
		// the first caller abandons its request.
		payload, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.store(key, payload)
		return payload, nil
	})

	if err != nil {
		if stale, ok := c.staleFallback(key); ok {
			c.logger.Warn("serving stale cache entry after fetch failure",
				zap.String("key", key),
				zap.Error(err),
			)
			return stale, nil
		}
		return nil, err
	}

	return v, nil
}

// lookup returns the entry and whether it is within the TTL.
func (c *Cache) lookup(key string) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e, c.now().Sub(e.fetchedAt) < c.ttl
}

func (c *Cache) store(key string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{payload: payload, fetchedAt: c.now()}
}

// staleFallback returns a stale entry when the stale-serve policy permits it.
// Entries past the hard staleness ceiling are never served.
func (c *Cache) staleFallback(key string) (any, bool) {
	if !c.serveStale {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) > c.staleCeiling {
		return nil, false
	}
	return e.payload, true
}
