package txevent

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

// XactListener receives top-level transaction events.
type XactListener interface {
	OnXactEvent(env *jvm.Env, event XactOrdinal) error
}

// SubXactListener receives subtransaction events. parent is nil for a
// subtransaction directly under the top-level transaction.
type SubXactListener interface {
	OnSubXactEvent(env *jvm.Env, event SubXactOrdinal, current, parent jvm.Savepoint) error
}

// XactListenerFunc adapts a function to XactListener.
type XactListenerFunc func(env *jvm.Env, event XactOrdinal) error

func (f XactListenerFunc) OnXactEvent(env *jvm.Env, event XactOrdinal) error { return f(env, event) }

// SubXactListenerFunc adapts a function to SubXactListener.
type SubXactListenerFunc func(env *jvm.Env, event SubXactOrdinal, current, parent jvm.Savepoint) error

func (f SubXactListenerFunc) OnSubXactEvent(env *jvm.Env, event SubXactOrdinal, current, parent jvm.Savepoint) error {
	return f(env, event, current, parent)
}

// Dispatcher forwards host events to the registered listeners. At most one
// listener of each kind is registered at a time.
type Dispatcher struct {
	env        *jvm.Env
	savepoints *Savepoints
	xact       XactListener
	sub        SubXactListener
	installed  bool
	mu         sync.Mutex
}

// NewDispatcher creates a dispatcher running listeners on env.
func NewDispatcher(env *jvm.Env, savepoints *Savepoints) *Dispatcher {
	return &Dispatcher{env: env, savepoints: savepoints}
}

// Install registers the dispatcher with the host. It is idempotent.
func (d *Dispatcher) Install(tx host.Transactions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.installed {
		return
	}
	d.installed = true
	tx.RegisterXactCallback(d.OnXact)
	tx.RegisterSubXactCallback(d.OnSubXact)
}

// RegisterXactListener installs l. A second registration fails.
func (d *Dispatcher) RegisterXactListener(l XactListener) error {
	if l == nil {
		return errors.InvalidInput(errors.PhaseTxEvent, "nil transaction listener")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.xact != nil {
		return errors.DuplicateRegistration("transaction listener")
	}
	d.xact = l
	return nil
}

// UnregisterXactListener removes the transaction listener, if any.
func (d *Dispatcher) UnregisterXactListener() {
	d.mu.Lock()
	d.xact = nil
	d.mu.Unlock()
}

// RegisterSubXactListener installs l. A second registration fails.
func (d *Dispatcher) RegisterSubXactListener(l SubXactListener) error {
	if l == nil {
		return errors.InvalidInput(errors.PhaseTxEvent, "nil subtransaction listener")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sub != nil {
		return errors.DuplicateRegistration("subtransaction listener")
	}
	d.sub = l
	return nil
}

// UnregisterSubXactListener removes the subtransaction listener, if any.
func (d *Dispatcher) UnregisterSubXactListener() {
	d.mu.Lock()
	d.sub = nil
	d.mu.Unlock()
}

// OnXact is the host transaction callback.
func (d *Dispatcher) OnXact(ctx context.Context, event host.XactEvent) {
	ord, ok := XactOrdinalOf(event)
	if !ok {
		Logger().Debug("ignoring unknown transaction event", zap.Int("event", int(event)))
		return
	}

	d.mu.Lock()
	l := d.xact
	d.mu.Unlock()

	if l != nil {
		d.upcall(ctx, ord.String(), func(env *jvm.Env) error { return l.OnXactEvent(env, ord) })
	}
	if ord.Ends() {
		if err := d.savepoints.EndTransaction(); err != nil {
			Logger().Warn("releasing savepoints failed", zap.Stringer("event", ord), zap.Error(err))
		}
	}
}

// OnSubXact is the host subtransaction callback.
func (d *Dispatcher) OnSubXact(ctx context.Context, event host.SubXactEvent, mySubid, parentSubid host.SubXactID) {
	ord, ok := SubXactOrdinalOf(event)
	if !ok {
		Logger().Debug("ignoring unknown subtransaction event", zap.Int("event", int(event)))
		return
	}

	d.mu.Lock()
	l := d.sub
	d.mu.Unlock()

	// Start events are always resolved so that a savepoint being set by
	// managed code leaves the nursery under its own id.
	if l != nil || ord == SubXactStart {
		cur, par := d.savepoints.Resolve(mySubid, parentSubid)
		if l != nil {
			d.upcall(ctx, ord.String(), func(env *jvm.Env) error {
				return l.OnSubXactEvent(env, ord, savepointValue(cur), savepointValue(par))
			})
		}
	}

	if ord == SubXactCommit || ord == SubXactAbort {
		d.savepoints.Invalidate(mySubid)
	}
}

// savepointValue keeps a nil handle a nil interface.
func savepointValue(sp *Savepoint) jvm.Savepoint {
	if sp == nil {
		return nil
	}
	return sp
}

// upcall runs a listener as managed code. Listener failures cannot be
// returned through the host callback, so they are logged.
func (d *Dispatcher) upcall(ctx context.Context, event string, fn func(env *jvm.Env) error) {
	env := d.env
	prevCtx := env.WithContext(ctx)
	restore := env.Fence().EnterManaged(env)
	defer func() {
		restore()
		env.WithContext(prevCtx)
	}()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.New(errors.PhaseManaged, errors.KindManagedException).
					JavaType(jvm.ExceptionRuntime).
					Value(r).
					Detail("listener panicked: %v", r).
					Build()
			}
		}()
		return fn(env)
	}()
	if err == nil {
		if exc := env.ExceptionOccurred(); exc != nil {
			env.ExceptionClear()
			err = exc.AsError()
		}
	}
	if err != nil {
		Logger().Error("transaction listener failed", zap.String("event", event), zap.Error(err))
	}
}
