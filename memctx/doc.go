// Package memctx provides nested native allocation scopes.
//
// A Context owns allocations made through it and any child contexts created
// from it. Resetting a context deletes its children (innermost first), runs its
// reset callbacks in reverse registration order and only then frees its own
// allocations, so anything that refers into the scope is invalidated before
// the memory is reclaimed.
//
// Allocations are addressed by Pointer, a slot index plus generation into an
// Arena shared by a context tree. A Pointer whose slot was freed (and possibly
// reused) no longer resolves:
//
//	top := memctx.NewTop("TopMemoryContext")
//	call := top.NewChild("call")
//	p, _ := call.Alloc(row)
//	call.Reset()
//	_, err := top.Get(p) // stale handle
//
// Contexts are not safe for concurrent mutation; the bridge mutates them only
// from the thread that owns the managed runtime.
package memctx
