package memctx

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wippyai/plbridge/errors"
)

// Pointer addresses one allocation in an Arena. The zero Pointer is null.
// Pointers from different arenas never compare equal.
type Pointer struct {
	arena uint32
	slot  uint32
	gen   uint32
}

// IsNull reports whether p is the null pointer.
func (p Pointer) IsNull() bool {
	return p.slot == 0
}

func (p Pointer) String() string {
	if p.IsNull() {
		return "0x0"
	}
	return fmt.Sprintf("%d:0x%x.%d", p.arena, p.slot, p.gen)
}

var arenaIDs atomic.Uint32

// Arena is a generational slot table.
type Arena struct {
	id       uint32
	entries  []slotEntry
	freeList []uint32
	mu       sync.RWMutex
}

type slotEntry struct {
	value any
	owner *Context
	gen   uint32
	valid bool
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		id:       arenaIDs.Add(1),
		entries:  make([]slotEntry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

func (a *Arena) alloc(owner *Context, value any) Pointer {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.freeList) > 0 {
		slot := a.freeList[len(a.freeList)-1]
		a.freeList = a.freeList[:len(a.freeList)-1]
		e := &a.entries[slot-1]
		e.value = value
		e.owner = owner
		e.valid = true
		return Pointer{arena: a.id, slot: slot, gen: e.gen}
	}

	a.entries = append(a.entries, slotEntry{value: value, owner: owner, gen: 1, valid: true})
	return Pointer{arena: a.id, slot: uint32(len(a.entries)), gen: 1}
}

// Get resolves p. Pointers into freed slots fail with a stale handle error.
func (a *Arena) Get(p Pointer) (any, error) {
	if p.IsNull() {
		return nil, errors.InvalidInput(errors.PhaseHandle, "null pointer")
	}
	if p.arena != a.id {
		return nil, errors.InvalidInput(errors.PhaseHandle, "pointer "+p.String()+" belongs to another arena")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	idx := p.slot - 1
	if int(idx) >= len(a.entries) {
		return nil, errors.StaleHandle("pointer " + p.String())
	}
	e := a.entries[idx]
	if !e.valid || e.gen != p.gen {
		return nil, errors.StaleHandle("pointer " + p.String())
	}
	return e.value, nil
}

// Owner returns the context that allocated p, or nil if p is stale.
func (a *Arena) Owner(p Pointer) *Context {
	if p.IsNull() || p.arena != a.id {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	idx := p.slot - 1
	if int(idx) >= len(a.entries) {
		return nil
	}
	e := a.entries[idx]
	if !e.valid || e.gen != p.gen {
		return nil
	}
	return e.owner
}

func (a *Arena) free(p Pointer) bool {
	if p.IsNull() || p.arena != a.id {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx := p.slot - 1
	if int(idx) >= len(a.entries) {
		return false
	}
	e := &a.entries[idx]
	if !e.valid || e.gen != p.gen {
		return false
	}

	e.value = nil
	e.owner = nil
	e.valid = false
	e.gen++
	a.freeList = append(a.freeList, p.slot)
	return true
}

// Len returns the number of live allocations.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	count := 0
	for _, e := range a.entries {
		if e.valid {
			count++
		}
	}
	return count
}
