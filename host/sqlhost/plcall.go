package sqlhost

import (
	"context"
	"database/sql/driver"
	"sync"
	"sync/atomic"

	"modernc.org/sqlite"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
)

// CallFunctionName is the SQL function that dispatches to bridged functions.
const CallFunctionName = "plcall"

// Handler calls a bridged function. A nil datum with isNull set is SQL NULL.
type Handler func(ctx context.Context, fn host.Oid, args ...host.Datum) (d host.Datum, isNull bool, err error)

type dispatcher struct {
	host    *Host
	handler Handler

	mu sync.Mutex
	// failed is the last error of a bridged call. SQLite reduces function
	// errors to text; Query reports this one instead.
	failed error
}

var (
	registerOnce sync.Once
	registerErr  error

	// active is the host plcall dispatches to. SQLite functions are
	// registered process-wide, so one host serves them at a time.
	active atomic.Pointer[dispatcher]
)

func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterFunction(CallFunctionName, &sqlite.FunctionImpl{
			NArgs:  -1,
			Scalar: plcall,
		})
	})
	if registerErr != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInternal, registerErr, "failed to register "+CallFunctionName)
	}
	return nil
}

// Serve routes plcall to handler. It replaces the dispatch target of any
// other host in the process.
func (h *Host) Serve(handler Handler) {
	if handler == nil {
		if cur := active.Load(); cur != nil && cur.host == h {
			active.CompareAndSwap(cur, nil)
		}
		return
	}
	active.Store(&dispatcher{host: h, handler: handler})
}

func plcall(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	d := active.Load()
	if d == nil {
		return nil, errors.Unsupported(errors.PhaseInvoke, CallFunctionName+" without a serving host")
	}
	if len(args) == 0 {
		return nil, errors.InvalidInput(errors.PhaseInvoke, CallFunctionName+" needs a function oid or name")
	}
	v, err := d.call(context.Background(), args[0], args[1:])
	if err != nil {
		d.mu.Lock()
		d.failed = err
		d.mu.Unlock()
	}
	return v, err
}

// takeError returns and clears the last error of a bridged call made for h.
func takeError(h *Host) error {
	d := active.Load()
	if d == nil || d.host != h {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.failed
	d.failed = nil
	return err
}

func (d *dispatcher) call(ctx context.Context, target driver.Value, args []driver.Value) (driver.Value, error) {
	h := d.host
	var (
		proc *host.ProcInfo
		err  error
	)
	switch t := target.(type) {
	case int64:
		proc, err = h.LookupProc(ctx, host.Oid(t))
	case string:
		proc, err = h.LookupProcByName(ctx, t)
	case []byte:
		proc, err = h.LookupProcByName(ctx, string(t))
	default:
		err = errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Value(target).
			Detail("%s target must be a function oid or name", CallFunctionName).
			Build()
	}
	if err != nil {
		return nil, err
	}
	if proc.ReturnsSet || proc.IsTrigger() {
		return nil, errors.Unsupported(errors.PhaseInvoke, "calling "+proc.Name+" through "+CallFunctionName)
	}

	params := make([]host.Datum, len(args))
	for i, a := range args {
		if i >= len(proc.ArgTypes) {
			params[i] = a
			continue
		}
		if params[i], err = h.fromDriver(proc.ArgTypes[i], a); err != nil {
			return nil, err
		}
	}

	res, isNull, err := d.handler(ctx, proc.Oid, params...)
	if err != nil || isNull {
		return nil, err
	}
	return h.toDriver(res)
}
