// Package wasmjvm is a managed runtime whose classes are WebAssembly modules
// run by wazero.
//
// Each class is one module instance named after the class. Its exported
// functions are the class's static methods; descriptors are derived from the
// wasm signature (i32 -> I, i64 -> J, f32 -> F, f64 -> D). A requested
// descriptor may narrow an i32 slot to Z, B, S or C.
//
// Guests reach the host through the "plbridge" import module:
//
//	log(level i32, ptr i32, len i32)
//	execute(ptr i32, len i32) i64   // rows affected, or -1 with an exception pending
package wasmjvm

import (
	"context"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/jvm"
)

// HostModule is the import module name guests use for native routines.
const HostModule = "plbridge"

// Config holds configuration for runtime creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per class instance in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// VM implements jvm.VM on a wazero runtime.
type VM struct {
	runtime wazero.Runtime
	classes map[string]*Class
	mu      sync.RWMutex
}

// New creates a runtime and instantiates the host module.
func New(ctx context.Context, cfg *Config) (*VM, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	_, err := r.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().WithFunc(hostLog).Export("log").
		NewFunctionBuilder().WithFunc(hostExecute).Export("execute").
		Instantiate(ctx)
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInternal, err, "instantiate host module")
	}

	return &VM{runtime: r, classes: make(map[string]*Class)}, nil
}

// LoadClass compiles and instantiates wasm as class name.
func (v *VM) LoadClass(ctx context.Context, name string, wasm []byte) (*Class, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.classes[name]; ok {
		return nil, errors.InvalidInput(errors.PhaseLoad, "class "+name+" is already loaded")
	}

	mod, err := v.runtime.InstantiateWithConfig(ctx, wasm, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "load class "+name)
	}

	c := &Class{name: name, mod: mod}
	v.classes[name] = c
	jvm.Logger().Debug("loaded wasm class",
		zap.String("class", name),
		zap.Int("exports", len(mod.ExportedFunctionDefinitions())))
	return c, nil
}

// FindClass implements jvm.VM.
func (v *VM) FindClass(name string) (jvm.Class, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c, ok := v.classes[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "class", name)
	}
	return c, nil
}

// Close implements jvm.VM.
func (v *VM) Close(ctx context.Context) error {
	v.mu.Lock()
	v.classes = make(map[string]*Class)
	v.mu.Unlock()
	return v.runtime.Close(ctx)
}

// Class is one instantiated module.
type Class struct {
	mod  api.Module
	name string
}

func (c *Class) Name() string { return c.name }

// StaticMethod implements jvm.Class.
func (c *Class) StaticMethod(name, desc string) (jvm.Method, error) {
	fn := c.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseResolve, "export", c.name+"."+name)
	}
	params, ret, err := jvm.ParseMethodDescriptor(desc)
	if err != nil {
		return nil, err
	}
	def := fn.Definition()
	native, err := wasmDescriptor(def.ParamTypes(), def.ResultTypes())
	if err != nil {
		return nil, err
	}
	if !compatible(desc, native) {
		return nil, errors.SignatureMismatch(desc, native, c.name+"."+name)
	}
	return &Method{fn: fn, class: c.name, name: name, desc: desc, params: params, ret: ret}, nil
}

// Method calls an exported function.
type Method struct {
	fn     api.Function
	class  string
	name   string
	desc   string
	ret    string
	params []string
}

func (m *Method) Class() string      { return m.class }
func (m *Method) Name() string       { return m.name }
func (m *Method) Descriptor() string { return m.desc }

// Invoke implements jvm.Method.
func (m *Method) Invoke(env *jvm.Env, args []jvm.Value) (jvm.Value, error) {
	if len(args) != len(m.params) {
		return nil, jvm.IllegalArgument("wrong number of arguments")
	}
	stack := make([]uint64, len(args))
	for i, a := range args {
		v, err := encode(m.params[i], a)
		if err != nil {
			return nil, err
		}
		stack[i] = v
	}

	ctx := withEnv(env.Context(), env)
	results, err := m.fn.Call(ctx, stack...)
	if err != nil {
		return nil, &jvm.Throwable{Class: jvm.ExceptionRuntime, Message: "wasm trap in " + m.class + "." + m.name, Cause: err}
	}
	if m.ret == "V" || len(results) == 0 {
		return nil, nil
	}
	return decode(m.ret, results[0]), nil
}

func wasmDescriptor(params, results []api.ValueType) (string, error) {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		c, err := valueTypeChar(p)
		if err != nil {
			return "", err
		}
		b.WriteByte(c)
	}
	b.WriteByte(')')
	switch len(results) {
	case 0:
		b.WriteByte('V')
	case 1:
		c, err := valueTypeChar(results[0])
		if err != nil {
			return "", err
		}
		b.WriteByte(c)
	default:
		return "", errors.Unsupported(errors.PhaseResolve, "multi-value results")
	}
	return b.String(), nil
}

func valueTypeChar(t api.ValueType) (byte, error) {
	switch t {
	case api.ValueTypeI32:
		return 'I', nil
	case api.ValueTypeI64:
		return 'J', nil
	case api.ValueTypeF32:
		return 'F', nil
	case api.ValueTypeF64:
		return 'D', nil
	}
	return 0, errors.Unsupported(errors.PhaseResolve, "reference-typed wasm signatures")
}

// compatible reports whether requested can be served by the wasm signature.
func compatible(requested, native string) bool {
	if len(requested) != len(native) {
		return false
	}
	for i := 0; i < len(requested); i++ {
		r, n := requested[i], native[i]
		if r == n {
			continue
		}
		if n == 'I' && strings.IndexByte("ZBSC", r) >= 0 {
			continue
		}
		return false
	}
	return true
}

func encode(desc string, v jvm.Value) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	switch desc {
	case "Z":
		if b, ok := v.(bool); ok {
			if b {
				return 1, nil
			}
			return 0, nil
		}
	case "B":
		if x, ok := v.(int8); ok {
			return api.EncodeI32(int32(x)), nil
		}
	case "S":
		if x, ok := v.(int16); ok {
			return api.EncodeI32(int32(x)), nil
		}
	case "C":
		if x, ok := v.(uint16); ok {
			return api.EncodeI32(int32(x)), nil
		}
	case "I":
		if x, ok := v.(int32); ok {
			return api.EncodeI32(x), nil
		}
	case "J":
		if x, ok := v.(int64); ok {
			return api.EncodeI64(x), nil
		}
	case "F":
		if x, ok := v.(float32); ok {
			return api.EncodeF32(x), nil
		}
	case "D":
		if x, ok := v.(float64); ok {
			return api.EncodeF64(x), nil
		}
	}
	return 0, errors.TypeMismatch(errors.PhaseInvoke, nil, jvm.JavaName(desc), "wasm")
}

func decode(desc string, v uint64) jvm.Value {
	switch desc {
	case "Z":
		return api.DecodeI32(v) != 0
	case "B":
		return int8(api.DecodeI32(v))
	case "S":
		return int16(api.DecodeI32(v))
	case "C":
		return uint16(api.DecodeI32(v))
	case "I":
		return api.DecodeI32(v)
	case "J":
		return int64(v)
	case "F":
		return api.DecodeF32(v)
	case "D":
		return api.DecodeF64(v)
	}
	return nil
}
