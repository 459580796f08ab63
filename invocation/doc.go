// Package invocation keeps the stack of active calls across the host/managed
// boundary.
//
// Every call from the host into managed code pushes a Frame; a managed
// call-out that reaches the host again and invokes another function pushes a
// nested one. A frame owns the call's memory context and resource owner and
// records whether it connected the host resource manager, so popping it
// restores exactly the state the caller saw.
//
// Once a fatal host error is flagged on a frame, AssertConnect refuses all
// further host work beneath it. Pop completes its bookkeeping first and only
// then returns the flagged error.
package invocation
