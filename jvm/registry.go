package jvm

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
)

type methodKey struct {
	class string
	name  string
	desc  string
}

// Registry resolves class and member names against a VM and caches the
// resulting handles.
type Registry struct {
	vm      VM
	classes map[string]Class
	methods map[methodKey]Method
	mu      sync.RWMutex
}

// NewRegistry creates a registry over vm.
func NewRegistry(vm VM) *Registry {
	return &Registry{
		vm:      vm,
		classes: make(map[string]Class),
		methods: make(map[methodKey]Method),
	}
}

// VM returns the underlying runtime.
func (r *Registry) VM() VM {
	return r.vm
}

// Class resolves a class by dotted name.
func (r *Registry) Class(name string) (Class, error) {
	r.mu.RLock()
	cls, ok := r.classes[name]
	r.mu.RUnlock()
	if ok {
		return cls, nil
	}

	cls, err := r.vm.FindClass(name)
	if err != nil || cls == nil {
		e := errors.MemberNotFound("class", name, "")
		e.Cause = err
		return nil, e
	}

	r.mu.Lock()
	r.classes[name] = cls
	r.mu.Unlock()

	Logger().Debug("resolved class", zap.String("class", name))
	return cls, nil
}

// StaticMethod resolves a static method of cls.
func (r *Registry) StaticMethod(cls Class, name, desc string) (Method, error) {
	key := methodKey{class: cls.Name(), name: name, desc: desc}

	r.mu.RLock()
	m, ok := r.methods[key]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := cls.StaticMethod(name, desc)
	if err != nil || m == nil {
		e := errors.MemberNotFound("static method", cls.Name()+"."+name, desc)
		e.Cause = err
		return nil, e
	}

	r.mu.Lock()
	r.methods[key] = m
	r.mu.Unlock()
	return m, nil
}

// Clear drops every cached handle.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = make(map[string]Class)
	r.methods = make(map[methodKey]Method)
}
