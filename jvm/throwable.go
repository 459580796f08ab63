package jvm

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/plbridge/errors"
)

// Exception classes the bridge constructs when native errors cross into
// managed code.
const (
	ExceptionSQL                  = "java.sql.SQLException"
	ExceptionIllegalArgument      = "java.lang.IllegalArgumentException"
	ExceptionUnsupportedOperation = "java.lang.UnsupportedOperationException"
	ExceptionIllegalThreadState   = "java.lang.IllegalThreadStateException"
	ExceptionRuntime              = "java.lang.RuntimeException"
)

// Throwable is a managed exception.
type Throwable struct {
	Class   string
	Message string
	// State is the SQLSTATE carried by SQLException-like throwables.
	State string
	// Cause holds the native error this throwable was built from, if any.
	Cause error
}

func (t *Throwable) JavaClass() string { return t.Class }

func (t *Throwable) Error() string {
	if t.Message == "" {
		return t.Class
	}
	return t.Class + ": " + t.Message
}

func (t *Throwable) Unwrap() error {
	return t.Cause
}

// IsSQLException reports whether the throwable carries a SQLSTATE.
func (t *Throwable) IsSQLException() bool {
	return t.State != "" || t.Class == ExceptionSQL
}

// NewSQLException creates a java.sql.SQLException with message and state.
func NewSQLException(msg, state string) *Throwable {
	return &Throwable{Class: ExceptionSQL, Message: msg, State: state}
}

// IllegalArgument creates a java.lang.IllegalArgumentException.
func IllegalArgument(msg string) *Throwable {
	return &Throwable{Class: ExceptionIllegalArgument, Message: msg}
}

// UnsupportedOperation creates a java.lang.UnsupportedOperationException.
func UnsupportedOperation(msg string) *Throwable {
	return &Throwable{Class: ExceptionUnsupportedOperation, Message: msg}
}

// ThrowableFor translates an error raised on the native side (or returned by
// a Go-implemented managed method) into a managed exception.
func ThrowableFor(err error) *Throwable {
	if err == nil {
		return nil
	}
	var t *Throwable
	if stderrors.As(err, &t) {
		return t
	}

	var e *errors.Error
	if stderrors.As(err, &e) {
		switch e.Kind {
		case errors.KindInvalidInput:
			return &Throwable{Class: ExceptionIllegalArgument, Message: e.Error(), Cause: err}
		case errors.KindUnsupported:
			return &Throwable{Class: ExceptionUnsupportedOperation, Message: e.Error(), Cause: err}
		case errors.KindIllegalThreadState:
			return &Throwable{Class: ExceptionIllegalThreadState, Message: e.Detail, Cause: err}
		}
		return &Throwable{Class: ExceptionSQL, Message: e.Error(), State: e.SQLState(), Cause: err}
	}
	return &Throwable{Class: ExceptionRuntime, Message: err.Error(), Cause: err}
}

// AsError translates a managed exception into a native error report. A
// throwable that wraps a captured native error re-raises that error.
func (t *Throwable) AsError() error {
	var native *errors.Error
	if t.Cause != nil && stderrors.As(t.Cause, &native) {
		return native
	}
	state := errors.StateInternalError
	if t.IsSQLException() && len(t.State) == 5 {
		state = t.State
	}
	return &errors.Error{
		Phase:    errors.PhaseManaged,
		Kind:     errors.KindManagedException,
		JavaType: t.Class,
		Detail:   t.Message,
		State:    state,
		Cause:    t.Cause,
	}
}

func panicThrowable(r any) *Throwable {
	if err, ok := r.(error); ok {
		return &Throwable{Class: ExceptionRuntime, Message: "panic: " + err.Error(), Cause: err}
	}
	return &Throwable{Class: ExceptionRuntime, Message: fmt.Sprintf("panic: %v", r)}
}
