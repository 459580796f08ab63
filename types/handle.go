package types

import (
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/memctx"
	"github.com/wippyai/plbridge/resource"
)

// handle ties a managed wrapper to a value allocated in a memory context.
// Once the context is reset the wrapper resolves to a stale handle error.
type handle struct {
	ds  *resource.DualState[memctx.Pointer]
	mem *memctx.Context
}

func bind(cx *Context, what string, value any) (handle, error) {
	p, err := cx.Mem.Alloc(value)
	if err != nil {
		return handle{}, err
	}
	ds := resource.NewDualState(p, what)
	if cx.Rows != nil {
		if err := cx.Rows.Bind(p, cx.Mem, ds); err != nil {
			_ = cx.Mem.Free(p)
			return handle{}, err
		}
	} else {
		cx.Mem.OnReset(ds.Invalidate)
	}
	return handle{ds: ds, mem: cx.Mem}, nil
}

func (h handle) get() (any, error) {
	p, err := h.ds.Key()
	if err != nil {
		return nil, err
	}
	return h.mem.Get(p)
}

// release invalidates the wrapper and frees its value before the context is
// reset.
func (h handle) release(cx *Context) {
	p, err := h.ds.Key()
	if err != nil {
		return
	}
	if cx.Rows == nil || !cx.Rows.Invalidate(p) {
		h.ds.Invalidate()
	}
	_ = h.mem.Free(p)
}

// Call invokes m and converts a pending managed exception into an error.
func Call(cx *Context, m jvm.Method, args []jvm.Value) (jvm.Value, error) {
	v := cx.Env.CallStatic(m, args...)
	if exc := cx.Env.ExceptionOccurred(); exc != nil {
		cx.Env.ExceptionClear()
		return nil, exc.AsError()
	}
	return v, nil
}
