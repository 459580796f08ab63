package function

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/plbridge/host"
)

// Cache holds resolved functions by function identifier. Concurrent misses
// may resolve the same function twice; the first result stored is kept and
// the other is dropped.
type Cache struct {
	resolver *Resolver
	entries  map[host.Oid]*Function
	mu       sync.RWMutex
}

// NewCache creates an empty cache over resolver.
func NewCache(resolver *Resolver) *Cache {
	return &Cache{resolver: resolver, entries: make(map[host.Oid]*Function)}
}

// Get returns the function fnOid, resolving it on first use.
func (c *Cache) Get(ctx context.Context, fnOid host.Oid, isTrigger bool) (*Function, error) {
	c.mu.RLock()
	f, ok := c.entries[fnOid]
	c.mu.RUnlock()
	if ok {
		return f, nil
	}

	f, err := c.resolver.Resolve(ctx, fnOid, isTrigger)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[fnOid]; ok {
		Logger().Debug("discarding concurrently resolved function", zap.Uint32("oid", uint32(fnOid)))
		return prev, nil
	}
	c.entries[fnOid] = f
	return f, nil
}

// Clear drops every cached function, as after managed code is redeployed.
func (c *Cache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[host.Oid]*Function)
	c.mu.Unlock()
	Logger().Info("function cache cleared", zap.Int("functions", n))
}

// Len returns the number of cached functions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
