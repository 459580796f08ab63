package txevent

import "github.com/wippyai/plbridge/host"

// XactOrdinal is the managed numbering of top-level transaction events.
type XactOrdinal int

const (
	XactCommit XactOrdinal = iota
	XactAbort
	XactPrepare
	XactPreCommit
	XactPrePrepare
	XactParallelCommit
	XactParallelAbort
	XactParallelPreCommit
)

var xactNames = [...]string{
	XactCommit:            "COMMIT",
	XactAbort:             "ABORT",
	XactPrepare:           "PREPARE",
	XactPreCommit:         "PRE_COMMIT",
	XactPrePrepare:        "PRE_PREPARE",
	XactParallelCommit:    "PARALLEL_COMMIT",
	XactParallelAbort:     "PARALLEL_ABORT",
	XactParallelPreCommit: "PARALLEL_PRE_COMMIT",
}

func (o XactOrdinal) String() string {
	if o >= 0 && int(o) < len(xactNames) {
		return xactNames[o]
	}
	return "UNKNOWN"
}

// Ends reports whether the event finishes the transaction.
func (o XactOrdinal) Ends() bool {
	switch o {
	case XactCommit, XactAbort, XactPrepare, XactParallelCommit, XactParallelAbort:
		return true
	}
	return false
}

// XactOrdinalOf maps a host event. ok is false for events the managed side
// does not know.
func XactOrdinalOf(e host.XactEvent) (o XactOrdinal, ok bool) {
	switch e {
	case host.XactEventCommit:
		return XactCommit, true
	case host.XactEventAbort:
		return XactAbort, true
	case host.XactEventPrepare:
		return XactPrepare, true
	case host.XactEventPreCommit:
		return XactPreCommit, true
	case host.XactEventPrePrepare:
		return XactPrePrepare, true
	case host.XactEventParallelCommit:
		return XactParallelCommit, true
	case host.XactEventParallelAbort:
		return XactParallelAbort, true
	case host.XactEventParallelPreCommit:
		return XactParallelPreCommit, true
	}
	return 0, false
}

// SubXactOrdinal is the managed numbering of subtransaction events.
type SubXactOrdinal int

const (
	SubXactStart SubXactOrdinal = iota
	SubXactCommit
	SubXactAbort
	SubXactPreCommit
)

var subXactNames = [...]string{
	SubXactStart:     "START_SUB",
	SubXactCommit:    "COMMIT_SUB",
	SubXactAbort:     "ABORT_SUB",
	SubXactPreCommit: "PRE_COMMIT_SUB",
}

func (o SubXactOrdinal) String() string {
	if o >= 0 && int(o) < len(subXactNames) {
		return subXactNames[o]
	}
	return "UNKNOWN"
}

// SubXactOrdinalOf maps a host subtransaction event.
func SubXactOrdinalOf(e host.SubXactEvent) (o SubXactOrdinal, ok bool) {
	switch e {
	case host.SubXactEventStartSub:
		return SubXactStart, true
	case host.SubXactEventCommitSub:
		return SubXactCommit, true
	case host.SubXactEventAbortSub:
		return SubXactAbort, true
	case host.SubXactEventPreCommitSub:
		return SubXactPreCommit, true
	}
	return 0, false
}
