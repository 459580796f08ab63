package host

import (
	"github.com/lib/pq/oid"
)

// Oid is a host object identifier (type, function, relation).
type Oid = oid.Oid

// InvalidOid is the sentinel "no object" identifier.
const InvalidOid Oid = 0

// Datum is one SQL value.
type Datum = any

// NullableDatum is a call argument with its null flag.
type NullableDatum struct {
	Value  Datum
	IsNull bool
}

// Attribute describes one column of a row type.
type Attribute struct {
	Name    string
	TypeOid Oid
	Dropped bool
}

// TupleDesc is the shape of a row. TypeOid is the composite type, or
// oid.T_record for an anonymous row.
type TupleDesc struct {
	Attrs   []Attribute
	TypeOid Oid
}

// NumAttrs returns the number of columns.
func (d *TupleDesc) NumAttrs() int { return len(d.Attrs) }

// Index returns the position of column name, or -1.
func (d *TupleDesc) Index(name string) int {
	for i, a := range d.Attrs {
		if a.Name == name && !a.Dropped {
			return i
		}
	}
	return -1
}

// Tuple is one row.
type Tuple struct {
	Desc   *TupleDesc
	Values []Datum
	Nulls  []bool
}

// NewTuple creates an all-NULL row of shape desc.
func NewTuple(desc *TupleDesc) *Tuple {
	n := desc.NumAttrs()
	t := &Tuple{Desc: desc, Values: make([]Datum, n), Nulls: make([]bool, n)}
	for i := range t.Nulls {
		t.Nulls[i] = true
	}
	return t
}

// Get returns column i and whether it is NULL.
func (t *Tuple) Get(i int) (Datum, bool) {
	return t.Values[i], t.Nulls[i]
}

// Set stores column i.
func (t *Tuple) Set(i int, v Datum, isNull bool) {
	if isNull {
		v = nil
	}
	t.Values[i] = v
	t.Nulls[i] = isNull
}

// Copy returns a row with its own value slices.
func (t *Tuple) Copy() *Tuple {
	c := &Tuple{Desc: t.Desc, Values: make([]Datum, len(t.Values)), Nulls: make([]bool, len(t.Nulls))}
	copy(c.Values, t.Values)
	copy(c.Nulls, t.Nulls)
	return c
}

// Array is a one-dimensional array.
type Array struct {
	Elems    []Datum
	Nulls    []bool
	ElemType Oid
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.Elems) }
