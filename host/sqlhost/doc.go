// Package sqlhost is a host backed by SQLite (modernc.org/sqlite).
//
// A Host keeps one pinned connection, the backend session. Catalog lookups,
// statements run by managed code and savepoints all use it, so transaction
// state is shared the way it is inside a database backend. Top-level
// statements issued through Query run on other pooled connections and may
// call bridged functions through the plcall SQL function:
//
//	SELECT plcall(1, 2, 3);          -- by function oid
//	SELECT plcall('sumtwo', 2, 3);   -- by function name
//
// The catalog lives in two tables:
//
//	pl_proc       one row per function (see ProcInfo in package host)
//	pl_attribute  columns of named composite types
//
// In-memory databases are opened in shared-cache mode so the pooled
// connections see the same data. SQLite locks whole tables in that mode: a
// bridged function called from Query cannot write to a table the outer
// statement is reading.
package sqlhost
