// Package plbridge runs database functions written for a managed runtime.
//
// A host (the database backend) resolves a function by oid, converts its
// arguments into managed values, calls the static method named by the
// function body and converts the result back. Managed code calls back into
// the host through native routines for query execution, savepoints and
// logging. Transaction and subtransaction events from the host are forwarded
// to listeners registered by managed code.
//
// # Layout
//
//   - errors: structured errors carrying phase, kind and SQLSTATE
//   - jvm: managed runtime interfaces, Env, Fence and the class registry
//   - jvm/gojvm: in-process managed runtime built from Go functions
//   - jvm/wasmjvm: managed runtime backed by wazero module instances
//   - memctx: nested memory contexts with reset callbacks
//   - resource: resource owners and weakly cached handle bindings
//   - host: datum model and the interfaces a host implements
//   - host/pgtypeio: text input and output routines over pgx pgtype
//   - host/sqlhost: SQLite host with catalog, SPI, savepoints and plcall
//   - host/pgxhost: pg_proc catalog over pgxpool
//   - types: type abstraction and the type registry
//   - function: body parsing, function cache and invocation
//   - invocation: call frame stack
//   - txevent: transaction event listeners and savepoint handles
//   - runtime: process-wide entry points for calls and triggers
//   - config: plbridge.toml loading
//
// # Usage
//
//	h, err := sqlhost.Open(ctx, ":memory:", sqlhost.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	rt, err := runtime.New(runtime.Config{
//	    Catalog:      h,
//	    Resources:    h,
//	    Transactions: h,
//	    VM:           vm,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//	h.Serve(rt.CallFunction)
//
//	res, isNull, err := rt.CallFunction(ctx, 1, int32(2), int32(3))
//
// # Thread Safety
//
// A Runtime serves one host session. Calls are serialized by the managed
// runtime's Fence; the owner of the current Env is the only caller allowed
// to enter managed code.
package plbridge
