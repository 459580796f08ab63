// Package runtime is the process-lifetime state of the bridge and its call
// handler.
//
// # Quick Start
//
//	vm := gojvm.New()
//	vm.DefineClass("com.example.Lib").MustDefineFunc("sum", func(a, b int32) int32 { return a + b })
//
//	rt, err := runtime.New(runtime.Config{
//	    Catalog:   catalog,
//	    Resources: rm,
//	    VM:        vm,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// Call the function whose catalog entry has oid fnOid
//	d, isNull, err := rt.CallFunction(ctx, fnOid, int32(2), int32(3))
//
// # Call Handling
//
// Call is what the host's function manager invokes for every call of a
// bridged function. It resolves the function through the function cache,
// pushes an invocation frame, coerces and invokes, and pops the frame before
// returning. A host error flagged while managed code ran is returned after
// the frame bookkeeping has been restored, even when managed code caught it.
//
// # Natives
//
// Managed code reaches the host through jvm.Natives installed on the
// runtime's Env: statement execution, logging and savepoints. Every native
// routine passes the thread fence and connects the resource manager on the
// current frame. Functions declared stable or immutable may only run
// read-only statements.
//
// # Errors
//
// Errors returned by Call carry a five character SQLSTATE (see
// errors.StateOf). Describe formats an error for the host error channel and
// never fails: a formatting failure degrades to a warning on the Reporter.
package runtime
