package resource

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Owner is a release scope. Owners form a tree; releasing one releases its
// children first.
type Owner struct {
	parent   *Owner
	name     string
	children []*Owner
	actions  []func() error
	released bool
	mu       sync.Mutex
}

// NewOwner creates an owner under parent. parent may be nil.
func NewOwner(parent *Owner, name string) *Owner {
	o := &Owner{parent: parent, name: name}
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, o)
		parent.mu.Unlock()
	}
	return o
}

func (o *Owner) Name() string { return o.name }

// LifespanName returns the owner name.
func (o *Owner) LifespanName() string { return o.name }

func (o *Owner) Parent() *Owner { return o.parent }

// Released reports whether Release has run.
func (o *Owner) Released() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.released
}

// Defer registers a release action that may fail. On an owner that is
// already released the action runs immediately and its error is logged.
func (o *Owner) Defer(fn func() error) {
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		if err := fn(); err != nil {
			Logger().Warn("release action on released owner failed", zap.String("owner", o.name), zap.Error(err))
		}
		return
	}
	o.actions = append(o.actions, fn)
	o.mu.Unlock()
}

// OnRelease registers fn to run when the owner is released.
func (o *Owner) OnRelease(fn func()) {
	o.Defer(func() error {
		fn()
		return nil
	})
}

// Release releases children newest first, then runs the release actions
// newest first. Errors are combined. Release is idempotent.
func (o *Owner) Release() error {
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return nil
	}
	o.released = true
	children := o.children
	actions := o.actions
	o.children = nil
	o.actions = nil
	o.mu.Unlock()

	var err error
	for i := len(children) - 1; i >= 0; i-- {
		err = multierr.Append(err, children[i].Release())
	}
	for i := len(actions) - 1; i >= 0; i-- {
		err = multierr.Append(err, actions[i]())
	}

	if o.parent != nil {
		o.parent.detach(o)
	}
	return err
}

func (o *Owner) detach(child *Owner) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}
