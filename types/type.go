package types

import (
	"context"

	"github.com/lib/pq/oid"

	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/memctx"
	"github.com/wippyai/plbridge/resource"
)

// Type is a bidirectional conversion between a host type and a managed class.
type Type interface {
	Oid() host.Oid
	JavaName() string
	// Signature is the JNI field descriptor of JavaName.
	Signature() string
	IsPrimitive() bool
	// ObjectType returns the boxed form of a primitive type, or the type itself.
	ObjectType() Type
	// NullTolerant reports whether SQL NULL may be passed in a slot of this type.
	NullTolerant() bool
	// Zero is the managed value a NULL argument becomes.
	Zero() jvm.Value
	// CanReplace reports whether this type may stand in for def in a
	// function signature.
	CanReplace(def Type) bool
	CoerceDatum(cx *Context, d host.Datum) (jvm.Value, error)
	CoerceObject(cx *Context, v jvm.Value) (d host.Datum, isNull bool, err error)
}

// Invoker is implemented by types that need their own calling convention
// when they are a function's return type.
type Invoker interface {
	MethodSignature(params []Type) string
	Invoke(cx *Context, m jvm.Method, args []jvm.Value) (jvm.Value, error)
}

// Context carries the per-call state coercions need.
type Context struct {
	Ctx     context.Context
	Env     *jvm.Env
	Mem     *memctx.Context
	Rows    *resource.Cache[memctx.Pointer]
	Types   *Registry
	Classes *jvm.Registry

	// Callback runs managed code that a host cleanup callback reaches after
	// the call owning it has returned. Nil runs it directly.
	Callback func(fn CallbackOwner, run func())
}

// CallbackOwner is the function managed code run by a Callback belongs to.
type CallbackOwner interface {
	Name() string
	ReadOnly() bool
}

// Context returns the call context, never nil.
func (cx *Context) Context() context.Context {
	if cx.Ctx == nil {
		return context.Background()
	}
	return cx.Ctx
}

// WithMem returns a copy of cx allocating in mem.
func (cx *Context) WithMem(mem *memctx.Context) *Context {
	c := *cx
	c.Mem = mem
	return &c
}

type base struct {
	oid  host.Oid
	java string
	sig  string
}

func newBase(o host.Oid, java string) base {
	return base{oid: o, java: java, sig: jvm.Descriptor(java)}
}

func (b *base) Oid() host.Oid      { return b.oid }
func (b *base) JavaName() string   { return b.java }
func (b *base) Signature() string  { return b.sig }
func (b *base) IsPrimitive() bool  { return false }
func (b *base) NullTolerant() bool { return true }
func (b *base) Zero() jvm.Value    { return nil }

// isGeneric reports whether t is an untyped slot any type may fill.
func isGeneric(t Type) bool {
	switch t.Oid() {
	case oid.T_any, oid.T_anyelement:
		return true
	}
	return t.JavaName() == jvm.ClassObject
}

// canReplace is the default replacement rule: identical, primitive and
// boxed forms of one type, another mapping of the same host type, or a
// generic default.
func canReplace(repl, def Type) bool {
	if isGeneric(def) || repl == def {
		return true
	}
	if repl.ObjectType() == def.ObjectType() {
		return true
	}
	return repl.Oid() == def.Oid()
}

func mismatch(t Type, v any) error {
	return coerceMismatch(t.JavaName(), t.Oid(), v)
}
