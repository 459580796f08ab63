// Package types converts between host datums and managed values.
//
// A Type is the conversion contract between one host type identifier and one
// managed class. The Registry hands out one canonical Type per (identifier,
// class) pair and never caches anonymous record types, whose shape depends on
// the call site.
//
// Primitive types (int, long, double, ...) have a boxed counterpart reachable
// through ObjectType; the boxed form is used wherever a reference is required
// (array elements, row columns, SQL NULL).
//
// Any host type without a dedicated mapping is exposed as java.lang.String
// through the host's text output and input routines. That mapping round-trips
// through the canonical text form only.
package types
