package resource

import (
	"sync"
	"weak"

	"github.com/wippyai/plbridge/errors"
)

type binding[K comparable] struct {
	ref  weak.Pointer[DualState[K]]
	span Lifespan
	what string
}

// Cache maps native keys to their live managed wrapper.
type Cache[K comparable] struct {
	entries   map[K]*binding[K]
	spans     map[Lifespan]map[K]struct{}
	observers []Observer
	mu        sync.Mutex
	obsMu     sync.RWMutex
}

// NewCache creates an empty cache.
func NewCache[K comparable]() *Cache[K] {
	return &Cache[K]{
		entries: make(map[K]*binding[K]),
		spans:   make(map[Lifespan]map[K]struct{}),
	}
}

// Bind records ds as the wrapper for key, owned by span. Binding a key that
// already has a live wrapper is an error.
func (c *Cache[K]) Bind(key K, span Lifespan, ds *DualState[K]) error {
	if span == nil {
		return errors.InvalidInput(errors.PhaseHandle, "binding requires a lifespan")
	}

	c.mu.Lock()
	if b, ok := c.entries[key]; ok {
		if live := b.ref.Value(); live != nil && live.Valid() {
			c.mu.Unlock()
			return errors.New(errors.PhaseHandle, errors.KindInvalidInput).
				Value(key).
				Detail("%s already has a live wrapper", b.what).
				Build()
		}
		c.dropLocked(key, b)
	}

	c.entries[key] = &binding[K]{ref: weak.Make(ds), span: span, what: ds.What()}
	keys, hooked := c.spans[span]
	if !hooked {
		keys = make(map[K]struct{})
		c.spans[span] = keys
	}
	keys[key] = struct{}{}
	c.mu.Unlock()

	if !hooked {
		span.OnRelease(func() { c.InvalidateAll(span) })
	}

	c.notify(Event{Type: EventBound, Key: key, What: ds.What(), Span: span.LifespanName()})
	return nil
}

// Lookup returns the live wrapper bound to key. A collected or invalidated
// wrapper reads as not found and its binding is dropped.
func (c *Cache[K]) Lookup(key K) (*DualState[K], bool) {
	c.mu.Lock()
	b, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, false
	}
	ds := b.ref.Value()
	if ds != nil && ds.Valid() {
		c.mu.Unlock()
		return ds, true
	}
	c.dropLocked(key, b)
	c.mu.Unlock()

	c.notify(Event{Type: EventCollected, Key: key, What: b.what, Span: b.span.LifespanName()})
	return nil, false
}

// Unbind removes the binding for key without invalidating the wrapper.
func (c *Cache[K]) Unbind(key K) {
	c.mu.Lock()
	b, ok := c.entries[key]
	if ok {
		c.dropLocked(key, b)
	}
	c.mu.Unlock()

	if ok {
		c.notify(Event{Type: EventUnbound, Key: key, What: b.what, Span: b.span.LifespanName()})
	}
}

// Invalidate marks the wrapper bound to key stale and removes the binding.
func (c *Cache[K]) Invalidate(key K) bool {
	c.mu.Lock()
	b, ok := c.entries[key]
	if ok {
		c.dropLocked(key, b)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	if ds := b.ref.Value(); ds != nil {
		ds.Invalidate()
	}
	c.notify(Event{Type: EventInvalidated, Key: key, What: b.what, Span: b.span.LifespanName()})
	return true
}

// InvalidateAll marks every wrapper bound in span stale and removes the
// bindings. It returns the number of live wrappers invalidated.
func (c *Cache[K]) InvalidateAll(span Lifespan) int {
	c.mu.Lock()
	keys := c.spans[span]
	delete(c.spans, span)
	var bound []*binding[K]
	var boundKeys []K
	for k := range keys {
		if b, ok := c.entries[k]; ok && b.span == span {
			delete(c.entries, k)
			bound = append(bound, b)
			boundKeys = append(boundKeys, k)
		}
	}
	c.mu.Unlock()

	n := 0
	for i, b := range bound {
		if ds := b.ref.Value(); ds != nil && ds.Valid() {
			ds.Invalidate()
			n++
		}
		c.notify(Event{Type: EventInvalidated, Key: boundKeys[i], What: b.what, Span: span.LifespanName()})
	}
	return n
}

// Len returns the number of bindings, including ones whose wrapper may
// already have been collected.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Subscribe adds an observer for lifecycle events.
func (c *Cache[K]) Subscribe(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *Cache[K]) dropLocked(key K, b *binding[K]) {
	delete(c.entries, key)
	if keys, ok := c.spans[b.span]; ok {
		delete(keys, key)
	}
}

func (c *Cache[K]) notify(e Event) {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	for _, o := range c.observers {
		o.OnBindingEvent(e)
	}
}
