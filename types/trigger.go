package types

import (
	"github.com/lib/pq/oid"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

// TriggerData is the managed view of a trigger call.
type TriggerData struct {
	h          handle
	cx         *Context
	rel        *CompositeType
	newRow     *Row
	suppressed bool
}

var _ jvm.TriggerData = (*TriggerData)(nil)

// NewTriggerData wraps td for the duration of cx.Mem.
func NewTriggerData(cx *Context, td *host.TriggerData) (*TriggerData, error) {
	rel, err := cx.Types.ResolveRecord(cx.Context(), td.Desc)
	if err != nil {
		return nil, err
	}
	h, err := bind(cx, "trigger data", td)
	if err != nil {
		return nil, err
	}
	return &TriggerData{h: h, cx: cx, rel: rel}, nil
}

func (t *TriggerData) JavaClass() string { return jvm.ClassTriggerData }

// data returns the host trigger data, or a stale handle error once the
// call's memory is gone.
func (t *TriggerData) data() (*host.TriggerData, error) {
	v, err := t.h.get()
	if err != nil {
		return nil, err
	}
	return v.(*host.TriggerData), nil
}

func (t *TriggerData) Name() (string, error) {
	td, err := t.data()
	if err != nil {
		return "", err
	}
	return td.Name, nil
}

func (t *TriggerData) TableName() (string, error) {
	td, err := t.data()
	if err != nil {
		return "", err
	}
	return td.Relation, nil
}

func (t *TriggerData) SchemaName() (string, error) {
	td, err := t.data()
	if err != nil {
		return "", err
	}
	return td.Schema, nil
}

func (t *TriggerData) IsBefore() (bool, error) {
	return t.is(func(td *host.TriggerData) bool { return td.When == host.TriggerBefore })
}

func (t *TriggerData) IsAfter() (bool, error) {
	return t.is(func(td *host.TriggerData) bool { return td.When == host.TriggerAfter })
}

func (t *TriggerData) IsForEachRow() (bool, error) {
	return t.is(func(td *host.TriggerData) bool { return td.Level == host.TriggerForEachRow })
}

func (t *TriggerData) IsFiredByInsert() (bool, error) {
	return t.is(func(td *host.TriggerData) bool { return td.Event == host.TriggerInsert })
}

func (t *TriggerData) IsFiredByUpdate() (bool, error) {
	return t.is(func(td *host.TriggerData) bool { return td.Event == host.TriggerUpdate })
}

func (t *TriggerData) IsFiredByDelete() (bool, error) {
	return t.is(func(td *host.TriggerData) bool { return td.Event == host.TriggerDelete })
}

func (t *TriggerData) is(pred func(*host.TriggerData) bool) (bool, error) {
	td, err := t.data()
	if err != nil {
		return false, err
	}
	return pred(td), nil
}

func (t *TriggerData) Arguments() ([]string, error) {
	td, err := t.data()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), td.Args...), nil
}

// Old returns the row before the operation, nil for INSERT.
func (t *TriggerData) Old(*jvm.Env) (jvm.RowReader, error) {
	td, err := t.data()
	if err != nil {
		return nil, err
	}
	if td.Level != host.TriggerForEachRow || td.Event == host.TriggerInsert || td.TrigTuple == nil {
		return nil, nil
	}
	return newRow(t.cx, t.rel, td.TrigTuple.Copy(), false)
}

// New returns a writable copy of the row after the operation, nil for
// DELETE. Changes made before the trigger returns replace the row.
func (t *TriggerData) New(*jvm.Env) (jvm.RowWriter, error) {
	td, err := t.data()
	if err != nil {
		return nil, err
	}
	if t.newRow != nil {
		return t.newRow, nil
	}
	var src *host.Tuple
	switch {
	case td.Level != host.TriggerForEachRow:
	case td.Event == host.TriggerInsert:
		src = td.TrigTuple
	case td.Event == host.TriggerUpdate:
		src = td.NewTuple
	}
	if src == nil {
		return nil, nil
	}
	row, err := newRow(t.cx, t.rel, src.Copy(), td.When == host.TriggerBefore)
	if err != nil {
		return nil, err
	}
	t.newRow = row
	return row, nil
}

// Suppress makes a before row trigger skip the operation.
func (t *TriggerData) Suppress(*jvm.Env) error {
	td, err := t.data()
	if err != nil {
		return err
	}
	if td.When != host.TriggerBefore || td.Level != host.TriggerForEachRow {
		return jvm.NewSQLException("only before row triggers can suppress the operation", errors.StateObjectNotInState)
	}
	t.suppressed = true
	return nil
}

// Result returns the tuple the host should continue with. A nil result
// with no error skips the operation or, for after and statement triggers,
// is simply ignored.
func (t *TriggerData) Result() (*host.Tuple, error) {
	td, err := t.data()
	if err != nil {
		return nil, err
	}
	if td.Level != host.TriggerForEachRow || td.When == host.TriggerAfter || t.suppressed {
		return nil, nil
	}
	if t.newRow != nil {
		return t.newRow.Tuple()
	}
	if td.Event == host.TriggerUpdate {
		return td.NewTuple, nil
	}
	return td.TrigTuple, nil
}

// TriggerType is the sole parameter type of trigger methods.
type TriggerType struct{ base }

func newTriggerType() *TriggerType {
	return &TriggerType{base: newBase(oid.T_trigger, jvm.ClassTriggerData)}
}

func (t *TriggerType) ObjectType() Type         { return t }
func (t *TriggerType) CanReplace(def Type) bool { return def == t }

func (t *TriggerType) CoerceDatum(cx *Context, d host.Datum) (jvm.Value, error) {
	td, ok := d.(*host.TriggerData)
	if !ok {
		return nil, mismatch(t, d)
	}
	return NewTriggerData(cx, td)
}

func (t *TriggerType) CoerceObject(_ *Context, v jvm.Value) (host.Datum, bool, error) {
	return nil, false, mismatch(t, v)
}
