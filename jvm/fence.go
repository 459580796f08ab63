package jvm

import (
	"sync"

	"github.com/wippyai/plbridge/errors"
)

// Fence decides which thread may call back into native code. The thread that
// most recently entered managed code owns it; native entry from anywhere else
// fails immediately instead of blocking.
type Fence struct {
	mu        sync.Mutex
	owner     *Env
	inManaged bool
}

// NewFence creates a fence with no owner.
func NewFence() *Fence {
	return &Fence{}
}

// EnterManaged records env as the thread running managed code. The returned
// function restores the previous state.
func (f *Fence) EnterManaged(env *Env) func() {
	f.mu.Lock()
	prevOwner, prevIn := f.owner, f.inManaged
	f.owner = env
	f.inManaged = true
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		f.owner, f.inManaged = prevOwner, prevIn
		f.mu.Unlock()
	}
}

// BeginNative checks that env may enter native code and marks the fence as
// being in native code until the returned function runs.
func (f *Fence) BeginNative(env *Env) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.inManaged {
		return nil, errors.New(errors.PhaseNative, errors.KindIllegalThreadState).
			Detail("an attempt was made to call a backend function while the main thread was not in the managed runtime").
			Build()
	}
	if f.owner != env {
		return nil, errors.New(errors.PhaseNative, errors.KindIllegalThreadState).
			Detail("an attempt was made to call a backend function from a thread that does not own the backend").
			Build()
	}

	f.inManaged = false
	return func() {
		f.mu.Lock()
		f.inManaged = true
		f.mu.Unlock()
	}, nil
}

// InManaged reports whether the owning thread is currently in managed code.
func (f *Fence) InManaged() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inManaged
}
