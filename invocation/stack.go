package invocation

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/memctx"
	"github.com/wippyai/plbridge/resource"
)

// Stack is the per-backend call stack. It is driven by the single thread
// allowed to enter the host and is not safe for concurrent use.
type Stack struct {
	env *jvm.Env
	rm  host.ResourceManager
	mem *memctx.Manager
	top *Frame

	// connected and function are what the innermost frame sees; each frame
	// saves the values it found and restores them on pop.
	connected bool
	function  Function
}

// NewStack creates an empty stack. rm may be nil when no host work is
// possible.
func NewStack(env *jvm.Env, rm host.ResourceManager, mem *memctx.Manager) *Stack {
	if mem == nil {
		mem = memctx.NewManager()
	}
	return &Stack{env: env, rm: rm, mem: mem}
}

// Env returns the managed environment frames run in.
func (s *Stack) Env() *jvm.Env { return s.env }

// Memory returns the memory context manager.
func (s *Stack) Memory() *memctx.Manager { return s.mem }

// ResourceManager returns the host query executor, nil when none is
// configured.
func (s *Stack) ResourceManager() host.ResourceManager { return s.rm }

// Current returns the innermost frame, nil when idle.
func (s *Stack) Current() *Frame { return s.top }

// Depth returns the number of active frames.
func (s *Stack) Depth() int {
	if s.top == nil {
		return 0
	}
	return s.top.depth
}

// Connected reports whether the resource manager is connected for the
// innermost frame.
func (s *Stack) Connected() bool { return s.connected }

// Function returns the function the innermost frame executes.
func (s *Stack) Function() Function { return s.function }

// Push enters a call of fn. A frame pushed while the stack is idle is a
// top-level frame and opens a local reference scope.
func (s *Stack) Push(fn Function, opts ...Option) *Frame {
	f := &Frame{
		stack:         s,
		prev:          s.top,
		fn:            fn,
		prevConnected: s.connected,
		prevFunction:  s.function,
		topLevel:      s.top == nil,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.depth = 1
	var parentOwner *resource.Owner
	if f.prev != nil {
		f.depth = f.prev.depth + 1
		parentOwner = f.prev.owner
	}

	parent := f.memParent
	if parent == nil {
		parent = s.mem.Current()
	}
	f.mem = parent.NewChild(frameName(fn))
	f.savedMem = s.mem.Switch(f.mem)
	f.owner = resource.NewOwner(parentOwner, frameName(fn))

	if f.topLevel && s.env != nil {
		s.env.PushLocalFrame()
	}
	s.function = fn
	s.top = f

	Logger().Debug("pushed invocation frame",
		zap.String("function", frameName(fn)),
		zap.Int("depth", f.depth),
		zap.Bool("top_level", f.topLevel))
	return f
}

func frameName(fn Function) string {
	if fn == nil {
		return "invocation"
	}
	return fn.Name()
}

// AssertConnect makes sure the resource manager is connected for the current
// frame before host work. It fails once a fatal error was flagged on any
// active frame.
func (s *Stack) AssertConnect(ctx context.Context) error {
	f := s.top
	if f == nil {
		return errors.Internal(errors.PhaseFrame, "host work requested outside of any invocation")
	}
	for cur := f; cur != nil; cur = cur.prev {
		if cur.errorOccurred {
			return errors.StaleInvocation(cur.fatal)
		}
	}
	if s.connected {
		return nil
	}
	if s.rm == nil {
		return errors.Unsupported(errors.PhaseNative, "no resource manager is available")
	}
	if err := s.rm.Connect(ctx); err != nil {
		f.SetError(err)
		return err
	}
	s.connected = true
	f.connected = true
	return nil
}

// Pop leaves f, which must be the innermost frame. Bookkeeping always
// completes; the error flagged on f, if any, is returned afterwards together
// with any cleanup failure.
func (s *Stack) Pop(ctx context.Context, f *Frame) error {
	if f == nil || f.popped {
		return errors.Internal(errors.PhaseFrame, "invocation frame popped twice")
	}
	if f != s.top {
		return errors.Internal(errors.PhaseFrame, "invocation frame popped out of order")
	}
	f.popped = true

	var cleanup error
	if f.connected && s.connected && s.rm != nil {
		cleanup = multierr.Append(cleanup, s.rm.Finish(ctx))
	}
	s.connected = f.prevConnected
	s.function = f.prevFunction

	// A callback frame's owner is released with the enclosing frame's.
	if !f.fromCallback || f.prev == nil {
		cleanup = multierr.Append(cleanup, f.owner.Release())
	}

	s.mem.Switch(f.savedMem)
	f.mem.Delete()

	if f.topLevel && s.env != nil {
		cleanup = multierr.Append(cleanup, s.env.PopLocalFrame())
	}
	s.top = f.prev

	Logger().Debug("popped invocation frame",
		zap.String("function", frameName(f.fn)),
		zap.Int("depth", f.depth),
		zap.Bool("error", f.errorOccurred))

	if cleanup != nil {
		Logger().Warn("invocation frame cleanup failed", zap.Error(cleanup))
	}
	return multierr.Append(f.fatal, cleanup)
}

// Unwind pops every frame above and including f, innermost first. It is used
// when control returns to the host after an error skipped regular pops.
func (s *Stack) Unwind(ctx context.Context, f *Frame) error {
	var err error
	for s.top != nil {
		top := s.top
		err = multierr.Append(err, s.Pop(ctx, top))
		if top == f {
			break
		}
	}
	return err
}
