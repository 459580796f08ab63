// Package jvm defines the managed side of the bridge.
//
// The bridge never talks to a concrete virtual machine directly. It resolves
// classes and static methods through the VM, Class and Method interfaces and
// calls them through an Env, which carries the per-thread state a JNI
// environment would carry:
//
//   - the pending exception, checked and cleared after every call
//   - a stack of local reference frames
//   - the Fence that decides which thread may re-enter native code
//
// # Values
//
// Managed values are plain Go values. Primitive slots hold the exact Go type
// (int32 for int, float64 for double, ...). Boxed slots hold the same Go type
// or nil for a Java null. Reference types the bridge knows about are exposed
// through the interfaces in this package (Iterator, RowReader, TriggerData,
// ResultSetProvider, ...).
//
// # Descriptors
//
// Methods are looked up by JNI descriptor:
//
//	desc := jvm.MethodDescriptor([]string{"int", "int"}, "int") // "(II)I"
//	m, err := registry.StaticMethod(cls, "sum", desc)
//
// # Host object registry
//
// Registry caches Class and Method handles by name so every other package
// works with stable handles. Clear drops them all after a redeploy.
package jvm
