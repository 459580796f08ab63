// Package host defines the native side of the bridge: the datum model, the
// call frame the host hands to a function, and the collaborators the core
// consumes (catalog, text I/O, resource manager, transactions, reporter).
//
// # Datums
//
// A Datum is a plain Go value. The core relies on this representation:
//
//	bool                 bool
//	int2, int4, int8     int16, int32, int64
//	float4, float8       float32, float64
//	"char"               byte
//	text, varchar, name  string
//	bytea                []byte
//	numeric              pgtype.Numeric
//	timestamp            pgtype.Timestamp
//	timestamptz          pgtype.Timestamptz
//	date                 pgtype.Date
//	uuid                 pgtype.UUID
//	composite, record    *Tuple
//	arrays               *Array
//
// Any other type is whatever the host's TypeIO Input routine produces.
// SQL NULL is never a Datum; it travels in the IsNull side flags.
package host
