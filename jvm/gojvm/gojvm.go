// Package gojvm is an in-process managed runtime whose classes are built
// from Go functions.
//
// Static methods are registered either explicitly with a JNI descriptor and a
// NativeFunc, or by reflection from a Go func or the exported methods of a
// struct. Reflection derives the descriptor from the Go signature:
//
//	vm := gojvm.New()
//	vm.DefineClass("com.example.Lib").DefineFunc("sum", func(a, b int32) int32 { return a + b })
//	// registers com.example.Lib.sum(II)I
//
// An optional leading *jvm.Env parameter receives the calling environment.
// Results may be (), (T), (error) or (T, error); a returned error is the
// exception the method throws.
package gojvm

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/jvm"
)

// NativeFunc implements a static method with an explicit descriptor.
type NativeFunc func(env *jvm.Env, args []jvm.Value) (jvm.Value, error)

// VM holds the defined classes.
type VM struct {
	classes map[string]*Class
	mu      sync.RWMutex
}

// New creates an empty runtime.
func New() *VM {
	return &VM{classes: make(map[string]*Class)}
}

// DefineClass returns the class named name, creating it if needed.
func (v *VM) DefineClass(name string) *Class {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.classes[name]; ok {
		return c
	}
	c := &Class{name: name, methods: make(map[string]map[string]*Method)}
	v.classes[name] = c
	return c
}

// RegisterClass defines class name with every exported method of impl as a
// static method. Go method names are converted to lowerCamelCase:
// ParseHTTPDate -> parseHttpDate.
func (v *VM) RegisterClass(name string, impl any) (*Class, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "class name cannot be empty")
	}
	rv := reflect.ValueOf(impl)
	rt := rv.Type()
	if rt.NumMethod() == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "class "+name+" has no exported methods")
	}

	c := v.DefineClass(name)
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() {
			continue
		}
		if err := c.DefineFunc(toLowerCamel(method.Name), rv.Method(i).Interface()); err != nil {
			return nil, err
		}
	}
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
func (v *VM) Close(context.Context) error {
	v.mu.Lock()
	v.classes = make(map[string]*Class)
	v.mu.Unlock()
	return nil
}

// Class is a class of the Go runtime. Methods are keyed by name then descriptor.
type Class struct {
	methods map[string]map[string]*Method
	name    string
	mu      sync.RWMutex
}

func (c *Class) Name() string { return c.name }

// Define registers a static method with an explicit descriptor.
func (c *Class) Define(name, desc string, fn NativeFunc) *Class {
	if _, _, err := jvm.ParseMethodDescriptor(desc); err != nil {
		panic(err)
	}
	c.put(&Method{class: c.name, name: name, desc: desc, native: fn})
	return c
}

// DefineFunc registers fn as a static method, deriving its descriptor.
func (c *Class) DefineFunc(name string, fn any) error {
	m, err := reflectMethod(c.name, name, fn)
	if err != nil {
		return err
	}
	c.put(m)
	return nil
}

// MustDefineFunc is DefineFunc that panics on error.
func (c *Class) MustDefineFunc(name string, fn any) *Class {
	if err := c.DefineFunc(name, fn); err != nil {
		panic(err)
	}
	return c
}

func (c *Class) put(m *Method) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.methods[m.name] == nil {
		c.methods[m.name] = make(map[string]*Method)
	}
	c.methods[m.name][m.desc] = m
}

// StaticMethod implements jvm.Class.
func (c *Class) StaticMethod(name, desc string) (jvm.Method, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.methods[name][desc]
	if !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "method", c.name+"."+name+desc)
	}
	return m, nil
}

// Methods lists the descriptors registered under name.
func (c *Class) Methods(name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.methods[name]))
	for d := range c.methods[name] {
		out = append(out, d)
	}
	return out
}

// Method is a static method of the Go runtime.
type Method struct {
	native NativeFunc
	fn     *reflectFunc
	class  string
	name   string
	desc   string
}

func (m *Method) Class() string      { return m.class }
func (m *Method) Name() string       { return m.name }
func (m *Method) Descriptor() string { return m.desc }

// Invoke implements jvm.Method.
func (m *Method) Invoke(env *jvm.Env, args []jvm.Value) (jvm.Value, error) {
	if m.native != nil {
		return m.native(env, args)
	}
	return m.fn.call(env, args)
}

// toLowerCamel converts PascalCase to lowerCamelCase.
// Handles acronyms: GetHTTPURL -> getHttpUrl
func toLowerCamel(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			if acronymEnd > i+1 {
				// Last uppercase before lowercase starts next word, not part of acronym
				if acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
					acronymEnd--
				}
			}

			for j := i; j < acronymEnd; j++ {
				if j == i && i > 0 {
					result.WriteRune(runes[j])
				} else {
					result.WriteRune(unicode.ToLower(runes[j]))
				}
			}
			i = acronymEnd - 1 // -1 because loop will increment
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
