package jvm

import (
	"context"
)

// VM is a managed runtime that can resolve classes by their dotted name.
type VM interface {
	// FindClass resolves a class by its fully qualified dotted name.
	FindClass(name string) (Class, error)

	// Close releases the runtime.
	Close(ctx context.Context) error
}

// Class is a resolved managed class.
type Class interface {
	Name() string

	// StaticMethod resolves a static method by name and JNI descriptor.
	StaticMethod(name, descriptor string) (Method, error)
}

// Method is a resolved static method handle.
type Method interface {
	Class() string
	Name() string
	Descriptor() string

	// Invoke runs the method. A returned error is the exception it threw.
	Invoke(env *Env, args []Value) (Value, error)
}

// Natives are the host service routines managed code may call back into.
// Implementations must go through Env.BeginNative before touching the host.
type Natives interface {
	// Execute runs a statement through the host resource manager.
	Execute(env *Env, query string, args ...Value) (ResultSet, error)

	// Log emits a message on the host's diagnostic channel.
	Log(env *Env, level int, msg string)

	// SetSavepoint starts a host subtransaction and returns its handle.
	SetSavepoint(env *Env, name string) (Savepoint, error)

	// ReleaseSavepoint commits the subtransaction named by sp.
	ReleaseSavepoint(env *Env, sp Savepoint) error

	// RollbackSavepoint aborts the subtransaction named by sp.
	RollbackSavepoint(env *Env, sp Savepoint) error
}
