package memctx

import (
	"github.com/wippyai/plbridge/errors"
)

// Context is one allocation scope.
type Context struct {
	arena     *Arena
	parent    *Context
	name      string
	children  []*Context
	allocs    map[Pointer]struct{}
	callbacks []func()
	deleted   bool
}

// NewTop creates a root context with its own arena.
func NewTop(name string) *Context {
	return &Context{
		arena:  NewArena(),
		name:   name,
		allocs: make(map[Pointer]struct{}),
	}
}

// NewChild creates a context that is reset and deleted together with c.
func (c *Context) NewChild(name string) *Context {
	child := &Context{
		arena:  c.arena,
		parent: c,
		name:   name,
		allocs: make(map[Pointer]struct{}),
	}
	c.children = append(c.children, child)
	return child
}

func (c *Context) Name() string { return c.name }

// LifespanName returns the context name.
func (c *Context) LifespanName() string { return c.name }

func (c *Context) Parent() *Context { return c.parent }

func (c *Context) Arena() *Arena { return c.arena }

// IsDeleted reports whether Delete has been called.
func (c *Context) IsDeleted() bool { return c.deleted }

// Alloc stores value in c and returns its pointer.
func (c *Context) Alloc(value any) (Pointer, error) {
	if c.deleted {
		return Pointer{}, errors.StaleHandle("memory context " + c.name)
	}
	p := c.arena.alloc(c, value)
	c.allocs[p] = struct{}{}
	return p, nil
}

// Get resolves a pointer allocated anywhere in c's arena.
func (c *Context) Get(p Pointer) (any, error) {
	return c.arena.Get(p)
}

// Contains reports whether p is a live allocation of c itself.
func (c *Context) Contains(p Pointer) bool {
	_, ok := c.allocs[p]
	return ok
}

// Free releases one allocation of c.
func (c *Context) Free(p Pointer) error {
	if _, ok := c.allocs[p]; !ok {
		return errors.InvalidInput(errors.PhaseHandle, "pointer "+p.String()+" was not allocated in "+c.name)
	}
	delete(c.allocs, p)
	c.arena.free(p)
	return nil
}

// Len returns the number of live allocations of c, excluding children.
func (c *Context) Len() int {
	return len(c.allocs)
}

// Children returns the live child contexts.
func (c *Context) Children() []*Context {
	out := make([]*Context, len(c.children))
	copy(out, c.children)
	return out
}

// OnReset registers fn to run once when c is next reset or deleted.
func (c *Context) OnReset(fn func()) {
	c.callbacks = append(c.callbacks, fn)
}

// OnRelease is OnReset.
func (c *Context) OnRelease(fn func()) {
	c.OnReset(fn)
}

// Reset deletes every child, runs the reset callbacks newest first and frees
// the allocations of c. The context itself stays usable.
func (c *Context) Reset() {
	for len(c.children) > 0 {
		c.children[len(c.children)-1].Delete()
	}

	for len(c.callbacks) > 0 {
		cbs := c.callbacks
		c.callbacks = nil
		for i := len(cbs) - 1; i >= 0; i-- {
			cbs[i]()
		}
	}

	for p := range c.allocs {
		c.arena.free(p)
	}
	c.allocs = make(map[Pointer]struct{})
}

// Delete resets c and detaches it from its parent.
func (c *Context) Delete() {
	if c.deleted {
		return
	}
	c.Reset()
	c.deleted = true
	if c.parent != nil {
		siblings := c.parent.children
		for i, s := range siblings {
			if s == c {
				c.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
}
