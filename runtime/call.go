package runtime

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/invocation"
)

// Call handles one host call of a bridged function. The result is NULL when
// ci.IsNull is set on return.
func (r *Runtime) Call(ci *host.CallInfo) (d host.Datum, err error) {
	ctx := ci.Context()
	fn, err := r.functions.Get(ctx, ci.FnOid(), ci.Trigger != nil)
	if err != nil {
		return nil, translate(err)
	}

	frame := r.stack.Push(fn)
	prevCtx := r.env.WithContext(ctx)
	popped := false
	defer func() {
		if p := recover(); p != nil {
			d = nil
			err = errors.New(errors.PhaseInternal, errors.KindInternal).
				Value(p).
				Detail("panic while calling %s: %v", fn.Name(), p).
				Build()
			if !popped {
				if uerr := r.stack.Unwind(ctx, frame); uerr != nil {
					Logger().Warn("unwinding after panic failed", zap.Error(uerr))
				}
			}
		}
		r.env.WithContext(prevCtx)
	}()

	d, err = fn.Invoke(r.typeContext(ctx, frame.Mem()), ci)

	popped = true
	popErr := r.stack.Pop(ctx, frame)
	if frame.ErrorOccurred() {
		// A host error raised under this frame wins even when managed code
		// caught its translation and returned normally.
		d, err = nil, popErr
		ci.IsNull = true
	} else if popErr != nil {
		err = multierr.Append(err, popErr)
	}

	if err != nil {
		err = translate(err)
		Logger().Debug("call failed",
			zap.String("function", fn.Name()),
			zap.String("state", errors.StateOf(err)),
			zap.Error(err))
		return nil, err
	}
	return d, nil
}

// CallFunction calls a scalar function with the given arguments, nil
// standing for NULL.
func (r *Runtime) CallFunction(ctx context.Context, fnOid host.Oid, args ...host.Datum) (host.Datum, bool, error) {
	ci := host.NewCallInfo(ctx, fnOid, args...)
	d, err := r.Call(ci)
	if err != nil {
		return nil, false, err
	}
	return d, ci.IsNull, nil
}

// CallSet drains a set-returning function. NULL elements are nil.
func (r *Runtime) CallSet(ctx context.Context, fnOid host.Oid, args ...host.Datum) ([]host.Datum, error) {
	ec := &host.ExprContext{}
	defer ec.Shutdown()

	ci := host.NewCallInfo(ctx, fnOid, args...)
	ci.ResultInfo = &host.ReturnSetInfo{Econtext: ec}

	var out []host.Datum
	for {
		d, err := r.Call(ci)
		if err != nil {
			return nil, err
		}
		switch ci.ResultInfo.IsDone {
		case host.ExprMultipleResult:
			if ci.IsNull {
				d = nil
			}
			out = append(out, d)
		case host.ExprSingleResult:
			// A set function returning a plain value yields one row.
			if !ci.IsNull {
				out = append(out, d)
			}
			return out, nil
		default:
			return out, nil
		}
	}
}

// CallTrigger fires a trigger function. The returned tuple is nil when the
// operation is to be skipped or the result is ignored.
func (r *Runtime) CallTrigger(ctx context.Context, fnOid host.Oid, td *host.TriggerData) (*host.Tuple, error) {
	ci := host.NewCallInfo(ctx, fnOid)
	ci.Trigger = td
	d, err := r.Call(ci)
	if err != nil || ci.IsNull {
		return nil, err
	}
	tup, ok := d.(*host.Tuple)
	if !ok {
		return nil, errors.Internal(errors.PhaseInvoke, "trigger returned a non-row result")
	}
	return tup, nil
}

// inCallback runs managed code reached from a host cleanup callback under a
// callback frame of fn, so host work it issues has an invocation to run in.
func (r *Runtime) inCallback(ctx context.Context, fn invocation.Function, run func()) {
	frame := r.stack.Push(fn, invocation.FromCallback())
	prevCtx := r.env.WithContext(ctx)
	defer r.env.WithContext(prevCtx)

	run()
	if err := r.stack.Pop(ctx, frame); err != nil {
		Logger().Warn("callback frame failed", zap.String("function", fn.Name()), zap.Error(err))
	}
}
