package resource

import (
	"sync"

	"github.com/wippyai/plbridge/errors"
)

// DualState is the managed half of a native/managed pair. It holds the native
// key until the native side invalidates it.
type DualState[K comparable] struct {
	key   K
	what  string
	valid bool
	mu    sync.RWMutex
}

// NewDualState creates a valid state for key. what names the wrapper kind in
// stale handle errors.
func NewDualState[K comparable](key K, what string) *DualState[K] {
	return &DualState[K]{key: key, what: what, valid: true}
}

// Key returns the native key, or a stale handle error once invalidated.
func (d *DualState[K]) Key() (K, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.valid {
		var zero K
		return zero, errors.StaleHandle(d.what)
	}
	return d.key, nil
}

// Valid reports whether the native state is still reachable.
func (d *DualState[K]) Valid() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.valid
}

func (d *DualState[K]) What() string { return d.what }

// Invalidate zeroes the key. It is idempotent.
func (d *DualState[K]) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero K
	d.key = zero
	d.valid = false
}
