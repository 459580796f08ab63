package host

import (
	"context"

	"github.com/wippyai/plbridge/memctx"
)

// FmgrInfo is the per-call-site lookup data of a function. Extra and Mcxt
// persist across the calls of one set-returning invocation.
type FmgrInfo struct {
	Extra any
	Mcxt  *memctx.Context
	Oid   Oid
}

// ExprContext is the expression evaluation context of a call site.
type ExprContext struct {
	callbacks []func()
}

// RegisterShutdown registers fn to run when evaluation ends, normally or early.
func (e *ExprContext) RegisterShutdown(fn func()) {
	e.callbacks = append(e.callbacks, fn)
}

// Shutdown runs the registered callbacks newest first, once.
func (e *ExprContext) Shutdown() {
	cbs := e.callbacks
	e.callbacks = nil
	for i := len(cbs) - 1; i >= 0; i-- {
		cbs[i]()
	}
}

// ExprDoneCond is the value-per-call status of a set-returning call.
type ExprDoneCond int

const (
	ExprSingleResult ExprDoneCond = iota
	ExprMultipleResult
	ExprEndResult
)

// ReturnSetInfo is present when the caller accepts a set.
type ReturnSetInfo struct {
	Econtext     *ExprContext
	ExpectedDesc *TupleDesc
	IsDone       ExprDoneCond
}

// CallInfo is one function call as the host presents it.
type CallInfo struct {
	Ctx        context.Context
	Flinfo     *FmgrInfo
	Trigger    *TriggerData
	ResultInfo *ReturnSetInfo
	Args       []NullableDatum
	// IsNull is set by the callee when the result is SQL NULL.
	IsNull bool
}

// NewCallInfo creates a call of fn with non-null args.
func NewCallInfo(ctx context.Context, fn Oid, args ...Datum) *CallInfo {
	ci := &CallInfo{Ctx: ctx, Flinfo: &FmgrInfo{Oid: fn}}
	for _, a := range args {
		ci.Args = append(ci.Args, NullableDatum{Value: a, IsNull: a == nil})
	}
	return ci
}

// Context returns the call's context, never nil.
func (ci *CallInfo) Context() context.Context {
	if ci.Ctx == nil {
		return context.Background()
	}
	return ci.Ctx
}

// FnOid returns the called function.
func (ci *CallInfo) FnOid() Oid {
	if ci.Flinfo == nil {
		return InvalidOid
	}
	return ci.Flinfo.Oid
}

// TriggerWhen is the firing time of a trigger.
type TriggerWhen int

const (
	TriggerBefore TriggerWhen = iota
	TriggerAfter
	TriggerInsteadOf
)

// TriggerLevel is the granularity of a trigger.
type TriggerLevel int

const (
	TriggerForEachRow TriggerLevel = iota
	TriggerForEachStatement
)

// TriggerEvent is the operation that fired a trigger.
type TriggerEvent int

const (
	TriggerInsert TriggerEvent = iota
	TriggerUpdate
	TriggerDelete
	TriggerTruncate
)

func (e TriggerEvent) String() string {
	switch e {
	case TriggerInsert:
		return "INSERT"
	case TriggerUpdate:
		return "UPDATE"
	case TriggerDelete:
		return "DELETE"
	case TriggerTruncate:
		return "TRUNCATE"
	}
	return "UNKNOWN"
}

// TriggerData is the trigger context of a call. TrigTuple is the old row
// for UPDATE and DELETE and the new row for INSERT; NewTuple is the new row
// for UPDATE.
type TriggerData struct {
	Desc      *TupleDesc
	TrigTuple *Tuple
	NewTuple  *Tuple
	Name      string
	Relation  string
	Schema    string
	Args      []string
	When      TriggerWhen
	Level     TriggerLevel
	Event     TriggerEvent
}
