package function

import (
	"context"
	"strconv"
	"strings"

	"github.com/lib/pq/oid"
	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/types"
)

// Function is a resolved, immutable binding of a host function to a managed
// static method.
type Function struct {
	method     jvm.Method
	ret        types.Type
	name       string
	class      string
	methodName string
	signature  string
	params     []types.Type
	argNames   []string
	oid        host.Oid
	isTrigger  bool
	readOnly   bool
	returnsSet bool
	strict     bool
}

func (f *Function) Oid() host.Oid { return f.oid }

// Name returns the SQL name of the function.
func (f *Function) Name() string { return f.name }

func (f *Function) ClassName() string  { return f.class }
func (f *Function) MethodName() string { return f.methodName }

// Signature returns the JNI descriptor the method was resolved with.
func (f *Function) Signature() string { return f.signature }

// Params returns the parameter types.
func (f *Function) Params() []types.Type { return append([]types.Type(nil), f.params...) }

// Return returns the return type. For set-returning functions it is the
// element type.
func (f *Function) Return() types.Type { return f.ret }

func (f *Function) Method() jvm.Method { return f.method }
func (f *Function) IsTrigger() bool    { return f.isTrigger }

// ReadOnly reports whether the function may not modify data, derived from
// its volatility class.
func (f *Function) ReadOnly() bool   { return f.readOnly }
func (f *Function) ReturnsSet() bool { return f.returnsSet }
func (f *Function) Strict() bool     { return f.strict }

func (f *Function) argName(i int) string {
	if i < len(f.argNames) && f.argNames[i] != "" {
		return f.argNames[i]
	}
	return "$" + strconv.Itoa(i+1)
}

// Resolver builds functions from catalog entries.
type Resolver struct {
	catalog host.Catalog
	types   *types.Registry
	classes *jvm.Registry
}

// NewResolver creates a resolver.
func NewResolver(catalog host.Catalog, reg *types.Registry, classes *jvm.Registry) *Resolver {
	return &Resolver{catalog: catalog, types: reg, classes: classes}
}

// Resolve builds the function fnOid. isTrigger selects the trigger calling
// convention.
func (r *Resolver) Resolve(ctx context.Context, fnOid host.Oid, isTrigger bool) (*Function, error) {
	proc, err := r.catalog.LookupProc(ctx, fnOid)
	if err != nil || proc == nil {
		return nil, errors.CacheLookupFailed("function", uint32(fnOid), err)
	}
	return r.Build(ctx, proc, isTrigger)
}

// Build resolves proc without consulting the catalog for the function itself.
func (r *Resolver) Build(ctx context.Context, proc *host.ProcInfo, isTrigger bool) (*Function, error) {
	body, err := ParseBody(proc.Body)
	if err != nil {
		return nil, err
	}

	f := &Function{
		oid:        proc.Oid,
		name:       proc.Name,
		class:      body.Class,
		methodName: body.Method,
		argNames:   proc.ArgNames,
		isTrigger:  isTrigger,
		readOnly:   proc.Volatility.ReadOnly(),
		returnsSet: proc.ReturnsSet && !isTrigger,
		strict:     proc.Strict,
	}

	if isTrigger {
		if err := r.triggerTypes(ctx, f, body); err != nil {
			return nil, err
		}
	} else if err := r.paramTypes(ctx, f, proc, body); err != nil {
		return nil, err
	}

	cls, err := r.classes.Class(body.Class)
	if err != nil {
		return nil, err
	}
	if err := r.resolveMethod(f, cls); err != nil {
		return nil, err
	}

	Logger().Debug("resolved function",
		zap.String("function", f.name),
		zap.Uint32("oid", uint32(f.oid)),
		zap.String("method", f.class+"."+f.methodName),
		zap.String("signature", f.signature))
	return f, nil
}

func (r *Resolver) triggerTypes(ctx context.Context, f *Function, body *Body) error {
	if body.Explicit {
		return errors.Syntax(body.String(), "a trigger function cannot declare parameter types")
	}
	td, err := r.types.Resolve(ctx, oid.T_trigger)
	if err != nil {
		return err
	}
	void, err := r.types.Resolve(ctx, oid.T_void)
	if err != nil {
		return err
	}
	f.params = []types.Type{td}
	f.ret = void
	return nil
}

func (r *Resolver) paramTypes(ctx context.Context, f *Function, proc *host.ProcInfo, body *Body) error {
	f.params = make([]types.Type, len(proc.ArgTypes))
	for i, at := range proc.ArgTypes {
		t, err := r.types.Resolve(ctx, at)
		if err != nil {
			return err
		}
		f.params[i] = t
	}
	ret, err := r.types.Resolve(ctx, proc.ReturnType)
	if err != nil {
		return err
	}
	f.ret = ret

	if !body.Explicit {
		return nil
	}
	if len(body.Params) != len(f.params) {
		return errors.Syntax(proc.Body, "function declares "+strconv.Itoa(len(f.params))+
			" parameters but the body lists "+strconv.Itoa(len(body.Params)))
	}
	for i, name := range body.Params {
		def := f.params[i]
		if name == def.JavaName() {
			continue
		}
		repl, err := r.types.ResolveJava(ctx, proc.ArgTypes[i], name)
		if err != nil {
			e := errors.Syntax(proc.Body, "parameter "+f.argName(i)+" cannot be declared as "+name)
			e.Cause = err
			return e
		}
		if !repl.CanReplace(def) {
			return errors.Syntax(proc.Body, "parameter "+f.argName(i)+": "+name+" cannot replace "+def.JavaName())
		}
		f.params[i] = repl
	}
	return nil
}

// methodSignature builds the descriptor for ret under the function's
// calling convention.
func (f *Function) methodSignature(ret types.Type) string {
	if f.returnsSet {
		if _, ok := ret.(*types.CompositeType); ok {
			return paramSignature(f.params) + jvm.Descriptor(jvm.ClassResultSetProvider)
		}
		return paramSignature(f.params) + jvm.Descriptor(jvm.ClassIterator)
	}
	if inv, ok := ret.(types.Invoker); ok {
		return inv.MethodSignature(f.params)
	}
	return paramSignature(f.params) + ret.Signature()
}

func paramSignature(params []types.Type) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		b.WriteString(p.Signature())
	}
	b.WriteByte(')')
	return b.String()
}

func (r *Resolver) resolveMethod(f *Function, cls jvm.Class) error {
	sig := f.methodSignature(f.ret)
	m, err := r.classes.StaticMethod(cls, f.methodName, sig)
	if err == nil {
		f.method, f.signature = m, sig
		return nil
	}

	if !f.returnsSet && f.ret.IsPrimitive() {
		boxed := f.ret.ObjectType()
		boxedSig := f.methodSignature(boxed)
		if m, berr := r.classes.StaticMethod(cls, f.methodName, boxedSig); berr == nil {
			f.method, f.signature, f.ret = m, boxedSig, boxed
			return nil
		}
	}
	return err
}
