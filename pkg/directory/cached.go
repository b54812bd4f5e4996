package directory

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached wraps a Directory with a bounded, expiring cache. The cache is
// injected explicitly and supports per-key invalidation, so callers control
// staleness instead of relying on hidden shared state.
type Cached struct {
	inner Directory
	cache *lru.LRU[string, Client]
}

// NewCached creates a caching directory with the given capacity and TTL.
func NewCached(inner Directory, size int, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: lru.NewLRU[string, Client](size, nil, ttl),
	}
}

func (c *Cached) ClientByID(ctx context.Context, clientID string) (*Client, error) {
	if client, ok := c.cache.Get(clientID); ok {
		return &client, nil
	}

	client, err := c.inner.ClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	c.cache.Add(clientID, *client)

	return client, nil
}

// Invalidate drops one client from the cache, forcing the next lookup to read
// through.
func (c *Cached) Invalidate(clientID string) {
	c.cache.Remove(clientID)
}
