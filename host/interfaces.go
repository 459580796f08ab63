package host

import (
	"context"
)

// Catalog resolves catalog entries.
type Catalog interface {
	LookupProc(ctx context.Context, fn Oid) (*ProcInfo, error)
	LookupComposite(ctx context.Context, typ Oid) (*TupleDesc, error)
}

// TypeIO holds the host's text output and input routines.
type TypeIO interface {
	Output(typ Oid, d Datum) (string, error)
	Input(typ Oid, text string) (Datum, error)
}

// Result is the outcome of one statement.
type Result struct {
	Desc         *TupleDesc
	Rows         []*Tuple
	RowsAffected int64
}

// ResourceManager is the query execution subsystem. Exec is valid only
// between Connect and Finish; connections nest.
type ResourceManager interface {
	Connect(ctx context.Context) error
	Finish(ctx context.Context) error
	Exec(ctx context.Context, query string, readOnly bool, args ...Datum) (*Result, error)
}

// SubXactID identifies a subtransaction. Zero is invalid.
type SubXactID uint32

// InvalidSubXactID is the "no subtransaction" sentinel.
const InvalidSubXactID SubXactID = 0

// XactEvent is a top-level transaction event in host order.
type XactEvent int

const (
	XactEventCommit XactEvent = iota
	XactEventParallelCommit
	XactEventAbort
	XactEventParallelAbort
	XactEventPrepare
	XactEventPreCommit
	XactEventParallelPreCommit
	XactEventPrePrepare
)

// SubXactEvent is a subtransaction event in host order.
type SubXactEvent int

const (
	SubXactEventStartSub SubXactEvent = iota
	SubXactEventCommitSub
	SubXactEventAbortSub
	SubXactEventPreCommitSub
)

// XactCallback receives top-level transaction events.
type XactCallback func(ctx context.Context, event XactEvent)

// SubXactCallback receives subtransaction events.
type SubXactCallback func(ctx context.Context, event SubXactEvent, mySubid, parentSubid SubXactID)

// Transactions controls subtransactions and publishes transaction events.
type Transactions interface {
	BeginSubtransaction(ctx context.Context, name string) (SubXactID, error)
	ReleaseSubtransaction(ctx context.Context, id SubXactID) error
	RollbackSubtransaction(ctx context.Context, id SubXactID) error
	CurrentSubtransaction() SubXactID
	RegisterXactCallback(cb XactCallback)
	RegisterSubXactCallback(cb SubXactCallback)
}
