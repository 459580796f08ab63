package invocation

import (
	"github.com/wippyai/plbridge/memctx"
	"github.com/wippyai/plbridge/resource"
)

// Function is the function a frame is executing.
type Function interface {
	Name() string
	ReadOnly() bool
}

// Option configures a pushed frame.
type Option func(*Frame)

// FromCallback marks a frame entered from a host cleanup callback. Its
// resource owner is handed to the enclosing frame instead of being released
// on pop, so cursors the callback did not open stay open.
func FromCallback() Option {
	return func(f *Frame) { f.fromCallback = true }
}

// WithMemory makes the frame allocate in a child of parent instead of a
// child of the current context.
func WithMemory(parent *memctx.Context) Option {
	return func(f *Frame) { f.memParent = parent }
}

// Frame is one active call.
type Frame struct {
	stack *Stack
	prev  *Frame
	fn    Function
	mem   *memctx.Context
	owner *resource.Owner
	fatal error

	memParent *memctx.Context
	savedMem  *memctx.Context

	prevConnected bool
	prevFunction  Function

	depth         int
	topLevel      bool
	connected     bool
	fromCallback  bool
	errorOccurred bool
	popped        bool
}

// Function returns the function this frame executes.
func (f *Frame) Function() Function { return f.fn }

// Prev returns the enclosing frame, nil at top level.
func (f *Frame) Prev() *Frame { return f.prev }

// Depth is 1 for a top-level frame.
func (f *Frame) Depth() int { return f.depth }

// TopLevel reports whether the frame was entered directly from the host.
func (f *Frame) TopLevel() bool { return f.topLevel }

// Mem returns the call-duration memory context.
func (f *Frame) Mem() *memctx.Context { return f.mem }

// Owner returns the resource owner released when the frame is popped.
func (f *Frame) Owner() *resource.Owner { return f.owner }

// ConnectedHere reports whether this frame connected the resource manager.
func (f *Frame) ConnectedHere() bool { return f.connected }

// FromCallback reports whether the frame was entered from a cleanup callback.
func (f *Frame) FromCallback() bool { return f.fromCallback }

// ErrorOccurred reports whether a fatal host error was flagged on this frame.
func (f *Frame) ErrorOccurred() bool { return f.errorOccurred }

// SetError flags a fatal host error. The first error is kept and returned
// by Pop.
func (f *Frame) SetError(err error) {
	f.errorOccurred = true
	if f.fatal == nil {
		f.fatal = err
	}
}

// ClearError drops the flagged error once the host has recovered from it,
// as after a rollback to a savepoint.
func (f *Frame) ClearError() {
	f.errorOccurred = false
	f.fatal = nil
}

// Err returns the flagged error.
func (f *Frame) Err() error { return f.fatal }

// ReadOnly reports whether host work from this frame must not write.
func (f *Frame) ReadOnly() bool {
	return f.fn != nil && f.fn.ReadOnly()
}
