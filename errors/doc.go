// Package errors provides structured error types for the plbridge invocation core.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: parameter path, Java/SQL type names, an
// optional SQLSTATE override and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCoerce, errors.KindTypeMismatch).
//		Path("sumtwo", "arg0").
//		JavaType("int").
//		SQLType("text").
//		Detail("cannot convert text to int").
//		Build()
//
// Or use convenience constructors for the bridge taxonomy:
//
//	err := errors.Syntax(body, "missing class name")
//	err := errors.StaleHandle("savepoint")
//
// Every error maps to a five character SQLSTATE through SQLState; internal
// failures report XX000. All errors implement the standard error interface and
// support errors.Is/As.
package errors
