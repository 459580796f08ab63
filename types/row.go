package types

import (
	"strings"

	"github.com/lib/pq/oid"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

// Row is the managed view of a host tuple. Column indexes are 1-based as in
// java.sql.ResultSet.
type Row struct {
	h        handle
	cx       *Context
	comp     *CompositeType
	writable bool
}

var _ jvm.RowWriter = (*Row)(nil)

func newRow(cx *Context, comp *CompositeType, t *host.Tuple, writable bool) (*Row, error) {
	h, err := bind(cx, "row", t)
	if err != nil {
		return nil, err
	}
	return &Row{h: h, cx: cx, comp: comp, writable: writable}, nil
}

// Release makes the row stale and frees its tuple ahead of its memory
// context.
func (r *Row) Release() { r.h.release(r.cx) }

func (r *Row) JavaClass() string { return jvm.ClassResultSet }

func (r *Row) tuple() (*host.Tuple, error) {
	v, err := r.h.get()
	if err != nil {
		return nil, err
	}
	return v.(*host.Tuple), nil
}

// Tuple returns a copy of the underlying host tuple.
func (r *Row) Tuple() (*host.Tuple, error) {
	t, err := r.tuple()
	if err != nil {
		return nil, err
	}
	return t.Copy(), nil
}

func (r *Row) ColumnCount() int { return r.comp.desc.NumAttrs() }

func (r *Row) ColumnName(i int) string {
	if i < 1 || i > r.ColumnCount() {
		return ""
	}
	return r.comp.desc.Attrs[i-1].Name
}

func (r *Row) column(i int) (int, error) {
	if i < 1 || i > r.ColumnCount() {
		return 0, jvm.NewSQLException("column index out of range", errors.StateInvalidParameter)
	}
	if r.comp.desc.Attrs[i-1].Dropped {
		return 0, jvm.NewSQLException("column "+r.ColumnName(i)+" is dropped", errors.StateUndefinedObject)
	}
	return i - 1, nil
}

func (r *Row) index(name string) (int, error) {
	idx := r.comp.desc.Index(name)
	if idx < 0 {
		return 0, jvm.NewSQLException("no column named "+name, errors.StateUndefinedObject)
	}
	return idx + 1, nil
}

// Get returns column i as its boxed managed value, nil for NULL.
func (r *Row) Get(_ *jvm.Env, i int) (jvm.Value, error) {
	col, err := r.column(i)
	if err != nil {
		return nil, err
	}
	t, err := r.tuple()
	if err != nil {
		return nil, err
	}
	d, isNull := t.Get(col)
	if isNull {
		return nil, nil
	}
	v, err := r.comp.columns[col].CoerceDatum(r.cx, d)
	if err != nil {
		return nil, errors.New(errors.PhaseCoerce, errors.KindTypeMismatch).
			Path(r.ColumnName(i)).Cause(err).Build()
	}
	return v, nil
}

func (r *Row) GetByName(env *jvm.Env, name string) (jvm.Value, error) {
	i, err := r.index(name)
	if err != nil {
		return nil, err
	}
	return r.Get(env, i)
}

// Set stores v in column i. Only rows handed out for writing accept updates.
func (r *Row) Set(_ *jvm.Env, i int, v jvm.Value) error {
	if !r.writable {
		return jvm.UnsupportedOperation("row is read-only")
	}
	col, err := r.column(i)
	if err != nil {
		return err
	}
	t, err := r.tuple()
	if err != nil {
		return err
	}
	d, isNull, err := r.comp.columns[col].CoerceObject(r.cx, v)
	if err != nil {
		return err
	}
	t.Set(col, d, isNull)
	return nil
}

func (r *Row) SetByName(env *jvm.Env, name string, v jvm.Value) error {
	i, err := r.index(name)
	if err != nil {
		return err
	}
	return r.Set(env, i, v)
}

// CompositeType maps a composite host type to a row wrapper.
type CompositeType struct {
	base
	desc    *host.TupleDesc
	columns []Type
}

// Desc returns the tuple descriptor.
func (t *CompositeType) Desc() *host.TupleDesc { return t.desc }

// IsRecord reports whether t is the anonymous record type.
func (t *CompositeType) IsRecord() bool { return t.oid == oid.T_record }

func (t *CompositeType) ObjectType() Type { return t }

func (t *CompositeType) CanReplace(def Type) bool {
	if _, ok := def.(*CompositeType); ok {
		return true
	}
	return canReplace(t, def)
}

func (t *CompositeType) CoerceDatum(cx *Context, d host.Datum) (jvm.Value, error) {
	tup, ok := d.(*host.Tuple)
	if !ok {
		return nil, mismatch(t, d)
	}
	comp := t
	if t.desc == nil {
		var err error
		if comp, err = cx.Types.ResolveRecord(cx.Context(), tup.Desc); err != nil {
			return nil, err
		}
	}
	return newRow(cx, comp, tup.Copy(), false)
}

func (t *CompositeType) CoerceObject(cx *Context, v jvm.Value) (host.Datum, bool, error) {
	switch r := v.(type) {
	case nil:
		return nil, true, nil
	case *Row:
		tup, err := r.Tuple()
		if err != nil {
			return nil, false, err
		}
		return tup, false, nil
	case jvm.RowReader:
		if t.desc == nil {
			return nil, false, errors.Unsupported(errors.PhaseCoerce, "foreign row for anonymous record")
		}
		tup := host.NewTuple(t.desc)
		for i := range t.desc.Attrs {
			if t.desc.Attrs[i].Dropped {
				continue
			}
			cv, err := r.Get(cx.Env, i+1)
			if err != nil {
				return nil, false, err
			}
			d, isNull, err := t.columns[i].CoerceObject(cx, cv)
			if err != nil {
				return nil, false, err
			}
			tup.Set(i, d, isNull)
		}
		return tup, false, nil
	}
	return nil, false, mismatch(t, v)
}

// MethodSignature appends the row receiver: a composite-returning method
// fills its trailing ResultSet argument and returns false for NULL.
func (t *CompositeType) MethodSignature(params []Type) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		b.WriteString(p.Signature())
	}
	b.WriteString(jvm.Descriptor(jvm.ClassResultSet))
	b.WriteString(")Z")
	return b.String()
}

func (t *CompositeType) Invoke(cx *Context, m jvm.Method, args []jvm.Value) (jvm.Value, error) {
	if t.desc == nil {
		return nil, errors.Unsupported(errors.PhaseInvoke, "record result without a column definition list")
	}
	row, err := t.NewRow(cx)
	if err != nil {
		return nil, err
	}
	ret, err := Call(cx, m, append(append([]jvm.Value(nil), args...), row))
	if err != nil {
		return nil, err
	}
	if ok, _ := ret.(bool); !ok {
		return nil, nil
	}
	return row, nil
}

// NewRow allocates an empty writable row of this type in cx.
func (t *CompositeType) NewRow(cx *Context) (*Row, error) {
	return newRow(cx, t, host.NewTuple(t.desc), true)
}
