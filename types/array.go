package types

import (
	"reflect"
	"strconv"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

// ArrayType maps a one-dimensional host array. By default elements are boxed
// and NULL elements become nil; the primitive form uses a typed Go slice and
// rejects NULL elements unless the element type tolerates them.
type ArrayType struct {
	base
	elem Type
	prim *PrimitiveType
}

func newArrayType(o host.Oid, elem Type) *ArrayType {
	if ot := elem.ObjectType(); ot != nil {
		elem = ot
	}
	return &ArrayType{base: newBase(o, elem.JavaName()+"[]"), elem: elem}
}

func newPrimitiveArrayType(o host.Oid, elem *PrimitiveType) *ArrayType {
	return &ArrayType{base: newBase(o, elem.JavaName()+"[]"), elem: elem, prim: elem}
}

// Elem returns the element type.
func (t *ArrayType) Elem() Type { return t.elem }

func (t *ArrayType) ObjectType() Type { return t }

func (t *ArrayType) CanReplace(def Type) bool {
	if d, ok := def.(*ArrayType); ok && t.oid == d.oid {
		return true
	}
	return canReplace(t, def)
}

func (t *ArrayType) CoerceDatum(cx *Context, d host.Datum) (jvm.Value, error) {
	a, ok := d.(*host.Array)
	if !ok {
		return nil, mismatch(t, d)
	}
	if t.prim != nil {
		out := reflect.MakeSlice(reflect.SliceOf(t.prim.GoType()), a.Len(), a.Len())
		for i, e := range a.Elems {
			if i < len(a.Nulls) && a.Nulls[i] {
				if !t.prim.NullTolerant() {
					return nil, errors.NullValue([]string{"[" + strconv.Itoa(i) + "]"}, t.prim.JavaName())
				}
				continue
			}
			v, err := t.prim.CoerceDatum(cx, e)
			if err != nil {
				return nil, err
			}
			out.Index(i).Set(reflect.ValueOf(v))
		}
		return out.Interface(), nil
	}
	out := make([]jvm.Value, a.Len())
	for i, e := range a.Elems {
		if i < len(a.Nulls) && a.Nulls[i] {
			continue
		}
		v, err := t.elem.CoerceDatum(cx, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (t *ArrayType) CoerceObject(cx *Context, v jvm.Value) (host.Datum, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false, mismatch(t, v)
	}
	if rv.IsNil() {
		return nil, true, nil
	}
	a := &host.Array{
		Elems:    make([]host.Datum, rv.Len()),
		Nulls:    make([]bool, rv.Len()),
		ElemType: t.elem.Oid(),
	}
	for i := range a.Elems {
		d, isNull, err := t.elem.CoerceObject(cx, rv.Index(i).Interface())
		if err != nil {
			return nil, false, err
		}
		a.Elems[i], a.Nulls[i] = d, isNull
	}
	return a, false, nil
}
