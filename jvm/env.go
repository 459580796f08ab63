package jvm

import (
	"context"

	"github.com/wippyai/plbridge/errors"
)

// Env is the per-thread managed environment. It is not safe for concurrent
// use; each managed thread gets its own Env sharing one Fence.
type Env struct {
	ctx     context.Context
	fence   *Fence
	natives Natives
	pending *Throwable
	locals  []Value
	frames  []int
}

// NewEnv creates an environment bound to fence. natives may be nil.
func NewEnv(fence *Fence, natives Natives) *Env {
	if fence == nil {
		fence = NewFence()
	}
	return &Env{
		ctx:     context.Background(),
		fence:   fence,
		natives: natives,
	}
}

// Attach creates an environment for another managed thread sharing the fence
// and natives of e.
func (e *Env) Attach() *Env {
	return NewEnv(e.fence, e.natives)
}

// Context returns the context of the call in progress.
func (e *Env) Context() context.Context {
	return e.ctx
}

// WithContext sets the context for subsequent calls and returns the previous one.
func (e *Env) WithContext(ctx context.Context) context.Context {
	prev := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	e.ctx = ctx
	return prev
}

// Fence returns the native-entry fence.
func (e *Env) Fence() *Fence {
	return e.fence
}

// SetNatives installs the host service routines.
func (e *Env) SetNatives(n Natives) {
	e.natives = n
}

// Natives returns the host service routines.
func (e *Env) Natives() (Natives, error) {
	if e.natives == nil {
		return nil, errors.Unsupported(errors.PhaseNative, "no native services are installed for this environment")
	}
	return e.natives, nil
}

// Throw sets the pending exception.
func (e *Env) Throw(t *Throwable) {
	e.pending = t
}

// ExceptionOccurred returns the pending exception, or nil.
func (e *Env) ExceptionOccurred() *Throwable {
	return e.pending
}

// ExceptionClear drops the pending exception.
func (e *Env) ExceptionClear() {
	e.pending = nil
}

// CallStatic invokes m with the fence marking this thread as in managed code.
// An exception thrown (or a panic raised) by m becomes the pending exception
// and CallStatic returns nil.
func (e *Env) CallStatic(m Method, args ...Value) (result Value) {
	restore := e.fence.EnterManaged(e)
	defer restore()
	defer func() {
		if r := recover(); r != nil {
			e.Throw(panicThrowable(r))
			result = nil
		}
	}()

	v, err := m.Invoke(e, args)
	if err != nil {
		e.Throw(ThrowableFor(err))
		return nil
	}
	return v
}

// BeginNative is called by native routines before they touch the host.
func (e *Env) BeginNative() (func(), error) {
	return e.fence.BeginNative(e)
}

// PushLocalFrame opens a local reference scope.
func (e *Env) PushLocalFrame() {
	e.frames = append(e.frames, len(e.locals))
}

// PopLocalFrame drops every local reference created since the matching push.
func (e *Env) PopLocalFrame() error {
	if len(e.frames) == 0 {
		return errors.Internal(errors.PhaseFrame, "local frame stack underflow")
	}
	mark := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	for i := mark; i < len(e.locals); i++ {
		e.locals[i] = nil
	}
	e.locals = e.locals[:mark]
	return nil
}

// NewLocalRef keeps v reachable until the enclosing local frame is popped.
func (e *Env) NewLocalRef(v Value) Value {
	if v != nil {
		e.locals = append(e.locals, v)
	}
	return v
}

// LocalFrameDepth returns the number of open local frames.
func (e *Env) LocalFrameDepth() int {
	return len(e.frames)
}

// LocalRefCount returns the number of live local references.
func (e *Env) LocalRefCount() int {
	return len(e.locals)
}
