// Package resource ties managed wrappers to the native state they expose.
//
// A wrapper embeds a DualState holding the native key it refers to (a memory
// pointer, a subtransaction id, ...). A Cache maps each key to at most one
// live wrapper through a weak pointer, so the managed side stays free to drop
// wrappers nobody uses; a collected wrapper simply reads as "not bound".
//
// Every binding belongs to a Lifespan: a memory context or a resource Owner.
// When the lifespan ends, the cache invalidates every wrapper bound in it
// before the native side reclaims anything, and any later access through the
// wrapper fails with a stale handle error:
//
//	cache := resource.NewCache[memctx.Pointer]()
//	ds := resource.NewDualState(ptr, "row")
//	_ = cache.Bind(ptr, callCtx, ds)
//
//	callCtx.Reset()
//	_, err := ds.Key() // stale handle
//
// # Owners
//
// Owner is a tree of release scopes mirroring the host's resource owners.
// Releasing an owner releases its children first, then runs its release
// actions newest first, combining their errors.
//
// # Observers
//
// Register observers to track binding lifecycle events:
//
//	cache.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//		if e.Type == resource.EventInvalidated {
//			log.Printf("%s invalidated by %s", e.What, e.Span)
//		}
//	}))
package resource
