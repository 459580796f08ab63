package function

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/memctx"
	"github.com/wippyai/plbridge/types"
)

// srfState is the cross-call context of one set-returning invocation. It
// lives in FmgrInfo.Extra between calls.
type srfState struct {
	fn       *Function
	iter     jvm.Iterator
	provider jvm.ResultSetProvider
	elem     types.Type
	comp     *types.CompositeType
	mem      *memctx.Context
	cx       *types.Context
	flinfo   *host.FmgrInfo
	rowNum   int64
	released bool
}

func (f *Function) invokeSRF(cx *types.Context, ci *host.CallInfo) (host.Datum, error) {
	rsi := ci.ResultInfo
	if rsi == nil {
		return nil, errors.Unsupported(errors.PhaseInvoke,
			"set-valued function "+f.name+" called in context that cannot accept a set")
	}
	if ci.Flinfo == nil {
		ci.Flinfo = &host.FmgrInfo{Oid: f.oid}
	}

	st, _ := ci.Flinfo.Extra.(*srfState)
	if st == nil {
		if f.strict && hasNull(ci.Args) {
			return endOfSet(ci), nil
		}
		var err error
		if st, err = f.firstCall(cx, ci); err != nil {
			return nil, err
		}
		if st == nil {
			return endOfSet(ci), nil
		}
	}

	// Elements outlive the per-row context, so they are built in the
	// cross-call memory.
	upper := *st.cx
	upper.Ctx, upper.Env = cx.Ctx, cx.Env
	d, isNull, more, err := st.next(&upper)
	if err != nil {
		st.release(cx.Env)
		return nil, err
	}
	if !more {
		st.release(cx.Env)
		return endOfSet(ci), nil
	}
	rsi.IsDone = host.ExprMultipleResult
	ci.IsNull = isNull
	return d, nil
}

func endOfSet(ci *host.CallInfo) host.Datum {
	ci.ResultInfo.IsDone = host.ExprEndResult
	ci.IsNull = true
	return nil
}

func (f *Function) firstCall(cx *types.Context, ci *host.CallInfo) (*srfState, error) {
	st := &srfState{fn: f, flinfo: ci.Flinfo, elem: f.ret}
	if comp, ok := f.ret.(*types.CompositeType); ok {
		st.comp = comp
		if comp.IsRecord() {
			if ci.ResultInfo.ExpectedDesc == nil {
				return nil, errors.Unsupported(errors.PhaseInvoke,
					"function "+f.name+" returning record called without a column definition list")
			}
			rec, err := cx.Types.ResolveRecord(cx.Context(), ci.ResultInfo.ExpectedDesc)
			if err != nil {
				return nil, err
			}
			st.comp = rec
		}
	}

	args, err := f.coerceArgs(cx, ci.Args)
	if err != nil {
		return nil, err
	}
	v, err := types.Call(cx, f.method, args)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}

	switch p := v.(type) {
	case jvm.ResultSetProvider:
		if st.comp == nil {
			return nil, errors.SignatureMismatch(jvm.ClassResultSetProvider, f.ret.JavaName(), "scalar set-returning function "+f.name)
		}
		st.provider = p
	case jvm.Iterator:
		if st.comp != nil {
			return nil, errors.SignatureMismatch(jvm.ClassIterator, f.ret.JavaName(), "composite set-returning function "+f.name)
		}
		st.iter = p
	default:
		return nil, errors.New(errors.PhaseInvoke, errors.KindTypeMismatch).
			Path(f.name).
			Detail("set producer has unexpected type %T", v).
			Build()
	}

	parent := ci.Flinfo.Mcxt
	if parent == nil {
		parent = multiCallParent(cx.Mem)
	}
	st.mem = parent.NewChild("srf " + f.name)
	st.cx = cx.WithMem(st.mem)
	ci.Flinfo.Extra = st

	env, enter := cx.Env, cx.Callback
	if ec := ci.ResultInfo.Econtext; ec != nil {
		ec.RegisterShutdown(func() {
			if st.released {
				return
			}
			if enter == nil {
				st.release(env)
				return
			}
			enter(f, func() { st.release(env) })
		})
	}
	return st, nil
}

// multiCallParent is the root of the call's memory: it outlives the call
// and shares its arena.
func multiCallParent(mem *memctx.Context) *memctx.Context {
	if mem == nil {
		return memctx.NewTop("multi-call")
	}
	for mem.Parent() != nil {
		mem = mem.Parent()
	}
	return mem
}

// next produces the next element. more is false once the producer is
// exhausted.
func (st *srfState) next(cx *types.Context) (d host.Datum, isNull, more bool, err error) {
	if st.released {
		return nil, true, false, nil
	}
	env := cx.Env

	if st.iter != nil {
		var v jvm.Value
		err = managed(env, func() error {
			ok, err := st.iter.HasNext(env)
			if err != nil || !ok {
				return err
			}
			more = true
			v, err = st.iter.Next(env)
			return err
		})
		if err != nil || !more {
			return nil, true, false, err
		}
		d, isNull, err = st.elem.CoerceObject(cx, v)
		return d, isNull, true, err
	}

	row, err := st.comp.NewRow(cx)
	if err != nil {
		return nil, true, false, err
	}
	defer row.Release()
	err = managed(env, func() error {
		ok, err := st.provider.AssignRowValues(env, row, st.rowNum)
		more = ok
		return err
	})
	st.rowNum++
	if err != nil || !more {
		return nil, true, false, err
	}
	d, isNull, err = st.comp.CoerceObject(cx, row)
	return d, isNull, true, err
}

// release closes the producer and frees the cross-call memory. It runs once
// whether reached by exhaustion, an error or the shutdown callback.
func (st *srfState) release(env *jvm.Env) {
	if st.released {
		return
	}
	st.released = true
	if st.flinfo.Extra == st {
		st.flinfo.Extra = nil
	}

	var closeErr error
	switch {
	case st.provider != nil:
		closeErr = managed(env, func() error { return st.provider.Close(env) })
	case st.iter != nil:
		if c, ok := st.iter.(jvm.Closer); ok {
			closeErr = managed(env, func() error { return c.Close(env) })
		}
	}
	if closeErr != nil {
		Logger().Warn("closing set producer failed", zap.String("function", st.fn.name), zap.Error(closeErr))
	}

	st.mem.Delete()
}

// managed runs fn as managed code: the fence records env as running managed
// code, panics become exceptions and a pending exception is returned as the
// error.
func managed(env *jvm.Env, fn func() error) (err error) {
	restore := env.Fence().EnterManaged(env)
	defer restore()
	defer func() {
		if r := recover(); r != nil {
			err = (&jvm.Throwable{Class: jvm.ExceptionRuntime, Message: fmt.Sprintf("panic: %v", r)}).AsError()
		}
	}()

	if err := fn(); err != nil {
		env.ExceptionClear()
		return jvm.ThrowableFor(err).AsError()
	}
	if exc := env.ExceptionOccurred(); exc != nil {
		env.ExceptionClear()
		return exc.AsError()
	}
	return nil
}
