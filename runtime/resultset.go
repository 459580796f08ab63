package runtime

import (
	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/types"
)

// resultSet is the managed view of a statement result. Its rows are
// allocated in the frame that ran the statement and go stale with it.
type resultSet struct {
	cx     *types.Context
	result *host.Result
	comp   *types.CompositeType
	row    jvm.RowReader
	pos    int
	closed bool
}

func newResultSet(cx *types.Context, result *host.Result) (*resultSet, error) {
	rs := &resultSet{cx: cx, result: result}
	if result.Desc != nil && len(result.Rows) > 0 {
		comp, err := cx.Types.ResolveRecord(cx.Context(), result.Desc)
		if err != nil {
			return nil, err
		}
		rs.comp = comp
	}
	return rs, nil
}

func (rs *resultSet) JavaClass() string { return jvm.ClassResultSet }

func (rs *resultSet) Next(*jvm.Env) (bool, error) {
	if rs.closed {
		return false, errors.StaleHandle("result set")
	}
	rs.row = nil
	if rs.pos >= len(rs.result.Rows) {
		return false, nil
	}
	if rs.comp == nil {
		return false, errors.Internal(errors.PhaseNative, "result rows without a row descriptor")
	}
	tup := rs.result.Rows[rs.pos]
	rs.pos++

	v, err := rs.comp.CoerceDatum(rs.cx, tup)
	if err != nil {
		return false, err
	}
	row, ok := v.(jvm.RowReader)
	if !ok {
		return false, errors.Internal(errors.PhaseNative, "result row is not readable")
	}
	rs.row = row
	return true, nil
}

// Row returns the current row, nil before the first Next and after the last.
func (rs *resultSet) Row() jvm.RowReader { return rs.row }

func (rs *resultSet) RowsAffected() int64 { return rs.result.RowsAffected }

// Close is idempotent.
func (rs *resultSet) Close(*jvm.Env) error {
	rs.closed = true
	rs.row = nil
	return nil
}
