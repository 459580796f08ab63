package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseResolve  Phase = "resolve"  // type and function resolution
	PhaseParse    Phase = "parse"    // language body parsing
	PhaseCoerce   Phase = "coerce"   // Datum <-> managed value conversion
	PhaseInvoke   Phase = "invoke"   // managed method invocation
	PhaseFrame    Phase = "frame"    // call-frame bookkeeping
	PhaseHandle   Phase = "handle"   // native pointer <-> wrapper bindings
	PhaseTxEvent  Phase = "txevent"  // transaction event propagation
	PhaseCatalog  Phase = "catalog"  // host catalog lookups
	PhaseNative   Phase = "native"   // host service routines called from managed code
	PhaseManaged  Phase = "managed"  // exception raised by managed code
	PhaseLoad     Phase = "load"     // class loading
	PhaseConfig   Phase = "config"   // configuration
	PhaseInternal Phase = "internal" // bridge invariants
)

// Kind categorizes the error
type Kind string

const (
	KindSyntax                Kind = "syntax"
	KindMemberNotFound        Kind = "member_not_found"
	KindSignatureMismatch     Kind = "signature_mismatch"
	KindInvalidTypeID         Kind = "invalid_type_id"
	KindStaleHandle           Kind = "stale_handle"
	KindStaleInvocation       Kind = "stale_invocation"
	KindDuplicateRegistration Kind = "duplicate_registration"
	KindCacheLookupFailed     Kind = "cache_lookup_failed"
	KindNullValue             Kind = "null_value"
	KindIllegalThreadState    Kind = "illegal_thread_state"
	KindManagedException      Kind = "managed_exception"
	KindReadOnly              Kind = "read_only"
	KindTypeMismatch          Kind = "type_mismatch"
	KindOverflow              Kind = "overflow"
	KindUnsupported           Kind = "unsupported"
	KindNotFound              Kind = "not_found"
	KindInvalidInput          Kind = "invalid_input"
	KindInvalidData           Kind = "invalid_data"
	KindInternal              Kind = "internal"
)

// SQLSTATE codes used by the bridge.
const (
	StateSyntaxError          = "42601"
	StateUndefinedFunction    = "42883"
	StateDatatypeMismatch     = "42804"
	StateUndefinedObject      = "42704"
	StateObjectNotInState     = "55000"
	StateDuplicateObject      = "42710"
	StateNullValueNotAllowed  = "22004"
	StateFeatureNotSupported  = "0A000"
	StateNumericOutOfRange    = "22003"
	StateInvalidTextRepr      = "22P02"
	StateInvalidParameter     = "22023"
	StateExternalRoutineError = "38000"
	StateInternalError        = "XX000"
)

var kindStates = map[Kind]string{
	KindSyntax:                StateSyntaxError,
	KindMemberNotFound:        StateUndefinedFunction,
	KindSignatureMismatch:     StateDatatypeMismatch,
	KindInvalidTypeID:         StateUndefinedObject,
	KindStaleHandle:           StateObjectNotInState,
	KindDuplicateRegistration: StateDuplicateObject,
	KindNullValue:             StateNullValueNotAllowed,
	KindIllegalThreadState:    StateObjectNotInState,
	KindManagedException:      StateExternalRoutineError,
	KindReadOnly:              StateFeatureNotSupported,
	KindTypeMismatch:          StateDatatypeMismatch,
	KindOverflow:              StateNumericOutOfRange,
	KindUnsupported:           StateFeatureNotSupported,
	KindInvalidInput:          StateInvalidParameter,
	KindInvalidData:           StateInvalidTextRepr,
}

// Error is the structured error type used throughout the bridge
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	State    string
	JavaType string
	SQLType  string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.JavaType != "" || e.SQLType != "" {
		b.WriteString(": ")
		if e.JavaType != "" && e.SQLType != "" {
			b.WriteString("Java type ")
			b.WriteString(e.JavaType)
			b.WriteString(", SQL type ")
			b.WriteString(e.SQLType)
		} else if e.JavaType != "" {
			b.WriteString("Java type ")
			b.WriteString(e.JavaType)
		} else {
			b.WriteString("SQL type ")
			b.WriteString(e.SQLType)
		}
	}

	if e.Detail != "" {
		if e.JavaType != "" || e.SQLType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// SQLState returns the five character state reported to SQL callers.
// An explicit State wins, otherwise it is derived from the Kind.
func (e *Error) SQLState() string {
	if e.State != "" {
		return e.State
	}
	if s, ok := kindStates[e.Kind]; ok {
		return s
	}
	return StateInternalError
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the element path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// JavaType sets the managed type name
func (b *Builder) JavaType(t string) *Builder {
	b.err.JavaType = t
	return b
}

// SQLType sets the host type name
func (b *Builder) SQLType(t string) *Builder {
	b.err.SQLType = t
	return b
}

// State overrides the derived SQLSTATE
func (b *Builder) State(s string) *Builder {
	b.err.State = s
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the bridge taxonomy

// Syntax creates a language body syntax error quoting the offending text
func Syntax(body, detail string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSyntax,
		Value:  body,
		Detail: fmt.Sprintf("%s: %q", detail, body),
	}
}

// MemberNotFound creates a managed class/method/field resolution error
func MemberNotFound(what, name, signature string) *Error {
	detail := fmt.Sprintf("unable to find %s %s", what, name)
	if signature != "" {
		detail += " with signature " + signature
	}
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindMemberNotFound,
		Detail: detail,
	}
}

// SignatureMismatch creates a descriptor mismatch error
func SignatureMismatch(javaType, sqlType, detail string) *Error {
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindSignatureMismatch,
		JavaType: javaType,
		SQLType:  sqlType,
		Detail:   detail,
	}
}

// InvalidTypeID creates an invalid host type identifier error
func InvalidTypeID(id uint32) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindInvalidTypeID,
		Value:  id,
		Detail: fmt.Sprintf("invalid type identifier %d", id),
	}
}

// StaleHandle creates an error for access through an invalidated wrapper
func StaleHandle(what string) *Error {
	return &Error{
		Phase:  PhaseHandle,
		Kind:   KindStaleHandle,
		Detail: fmt.Sprintf("%s is no longer valid; its native state has been released", what),
	}
}

// StaleInvocation creates an error for native calls after an unhandled fatal error
func StaleInvocation(cause error) *Error {
	return &Error{
		Phase:  PhaseFrame,
		Kind:   KindStaleInvocation,
		Detail: "an earlier native error is still pending in this call; no further native calls are allowed",
		Cause:  cause,
	}
}

// DuplicateRegistration creates a singleton registration error
func DuplicateRegistration(what string) *Error {
	return &Error{
		Phase:  PhaseTxEvent,
		Kind:   KindDuplicateRegistration,
		Detail: fmt.Sprintf("a %s is already registered", what),
	}
}

// CacheLookupFailed creates a catalog lookup failure naming id and expected kind
func CacheLookupFailed(kind string, id uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseCatalog,
		Kind:   KindCacheLookupFailed,
		Value:  id,
		Detail: fmt.Sprintf("cache lookup failed for %s %d", kind, id),
		Cause:  cause,
	}
}

// NullValue creates an error for SQL NULL reaching a slot that cannot represent it
func NullValue(path []string, javaType string) *Error {
	return &Error{
		Phase:    PhaseCoerce,
		Kind:     KindNullValue,
		Path:     path,
		JavaType: javaType,
		Detail:   "null value cannot be passed to a primitive parameter",
	}
}

// TypeMismatch creates a coercion type mismatch error
func TypeMismatch(phase Phase, path []string, javaType, sqlType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		JavaType: javaType,
		SQLType:  sqlType,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOverflow,
		Path:    path,
		SQLType: targetType,
		Detail:  fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:   value,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Internal creates an internal invariant violation
func Internal(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// StateOf extracts the SQLSTATE of any error, XX000 when none is known.
func StateOf(err error) string {
	for err != nil {
		if s, ok := err.(interface{ SQLState() string }); ok {
			return s.SQLState()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return StateInternalError
}

// HasKind reports whether err or any error it wraps is an *Error of kind k.
func HasKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == k {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
