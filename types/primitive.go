package types

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/lib/pq/oid"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

// primitive describes one primitive/boxed pair.
type primitive struct {
	oid    host.Oid
	java   string
	boxed  string
	goType reflect.Type
	// fromDatum converts a host datum to the managed Go value.
	fromDatum func(host.Datum) (jvm.Value, bool)
	// toDatum converts a managed value to the host datum.
	toDatum func(jvm.Value) (host.Datum, error)
}

var primitives = []primitive{
	{
		oid: oid.T_bool, java: "boolean", boxed: "java.lang.Boolean", goType: reflect.TypeOf(false),
		fromDatum: func(d host.Datum) (jvm.Value, bool) { v, ok := d.(bool); return v, ok },
		toDatum: func(v jvm.Value) (host.Datum, error) {
			if b, ok := v.(bool); ok {
				return b, nil
			}
			return nil, errNotConvertible
		},
	},
	{
		oid: oid.T_char, java: "byte", boxed: "java.lang.Byte", goType: reflect.TypeOf(int8(0)),
		fromDatum: func(d host.Datum) (jvm.Value, bool) { v, ok := d.(byte); return int8(v), ok },
		toDatum: func(v jvm.Value) (host.Datum, error) {
			n, err := intValue(v, math.MinInt8, math.MaxInt8)
			return byte(int8(n)), err
		},
	},
	{
		oid: oid.T_int2, java: "short", boxed: "java.lang.Short", goType: reflect.TypeOf(int16(0)),
		fromDatum: func(d host.Datum) (jvm.Value, bool) { v, ok := d.(int16); return v, ok },
		toDatum: func(v jvm.Value) (host.Datum, error) {
			n, err := intValue(v, math.MinInt16, math.MaxInt16)
			return int16(n), err
		},
	},
	{
		oid: oid.T_int4, java: "int", boxed: "java.lang.Integer", goType: reflect.TypeOf(int32(0)),
		fromDatum: func(d host.Datum) (jvm.Value, bool) { v, ok := d.(int32); return v, ok },
		toDatum: func(v jvm.Value) (host.Datum, error) {
			n, err := intValue(v, math.MinInt32, math.MaxInt32)
			return int32(n), err
		},
	},
	{
		oid: oid.T_int8, java: "long", boxed: "java.lang.Long", goType: reflect.TypeOf(int64(0)),
		fromDatum: func(d host.Datum) (jvm.Value, bool) { v, ok := d.(int64); return v, ok },
		toDatum: func(v jvm.Value) (host.Datum, error) {
			return intValue(v, math.MinInt64, math.MaxInt64)
		},
	},
	{
		oid: oid.T_float4, java: "float", boxed: "java.lang.Float", goType: reflect.TypeOf(float32(0)),
		fromDatum: func(d host.Datum) (jvm.Value, bool) { v, ok := d.(float32); return v, ok },
		toDatum: func(v jvm.Value) (host.Datum, error) {
			f, err := floatValue(v)
			return float32(f), err
		},
	},
	{
		oid: oid.T_float8, java: "double", boxed: "java.lang.Double", goType: reflect.TypeOf(float64(0)),
		fromDatum: func(d host.Datum) (jvm.Value, bool) { v, ok := d.(float64); return v, ok },
		toDatum: func(v jvm.Value) (host.Datum, error) {
			return floatValue(v)
		},
	},
}

var errNotConvertible = fmt.Errorf("value is not convertible")

func intValue(v jvm.Value, lo, hi int64) (int64, error) {
	var n int64
	switch x := v.(type) {
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case int:
		n = int64(x)
	case uint16:
		n = int64(x)
	default:
		return 0, errNotConvertible
	}
	if n < lo || n > hi {
		return 0, errors.Overflow(errors.PhaseCoerce, nil, n, fmt.Sprintf("[%d, %d]", lo, hi))
	}
	return n, nil
}

func floatValue(v jvm.Value) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, errNotConvertible
}

// PrimitiveType is a Java primitive slot.
type PrimitiveType struct {
	base
	def      *primitive
	boxed    *BoxedType
	tolerant bool
}

func (t *PrimitiveType) IsPrimitive() bool  { return true }
func (t *PrimitiveType) ObjectType() Type   { return t.boxed }
func (t *PrimitiveType) NullTolerant() bool { return t.tolerant }
func (t *PrimitiveType) Zero() jvm.Value    { return reflect.Zero(t.def.goType).Interface() }

// GoType returns the Go type of values in this slot.
func (t *PrimitiveType) GoType() reflect.Type { return t.def.goType }

func (t *PrimitiveType) CanReplace(def Type) bool { return canReplace(t, def) }

func (t *PrimitiveType) CoerceDatum(_ *Context, d host.Datum) (jvm.Value, error) {
	v, ok := t.def.fromDatum(d)
	if !ok {
		return nil, mismatch(t, d)
	}
	return v, nil
}

func (t *PrimitiveType) CoerceObject(_ *Context, v jvm.Value) (host.Datum, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	d, err := t.def.toDatum(v)
	if err == errNotConvertible {
		return nil, false, mismatch(t, v)
	}
	if err != nil {
		return nil, false, err
	}
	return d, false, nil
}

// BoxedType is the reference form of a primitive. A Java null is SQL NULL.
type BoxedType struct {
	base
	primitive *PrimitiveType
}

func (t *BoxedType) ObjectType() Type { return t }

// Primitive returns the unboxed form.
func (t *BoxedType) Primitive() *PrimitiveType { return t.primitive }

func (t *BoxedType) CanReplace(def Type) bool { return canReplace(t, def) }

func (t *BoxedType) CoerceDatum(cx *Context, d host.Datum) (jvm.Value, error) {
	return t.primitive.CoerceDatum(cx, d)
}

func (t *BoxedType) CoerceObject(cx *Context, v jvm.Value) (host.Datum, bool, error) {
	return t.primitive.CoerceObject(cx, v)
}

func newPrimitive(def *primitive, tolerant bool) *PrimitiveType {
	p := &PrimitiveType{base: newBase(def.oid, def.java), def: def, tolerant: tolerant}
	p.boxed = &BoxedType{base: newBase(def.oid, def.boxed), primitive: p}
	return p
}

func oidName(o host.Oid) string {
	if n, ok := oid.TypeName[o]; ok {
		return strings.ToLower(n)
	}
	return fmt.Sprintf("oid %d", o)
}

func coerceMismatch(java string, o host.Oid, v any) error {
	return errors.New(errors.PhaseCoerce, errors.KindTypeMismatch).
		JavaType(java).
		SQLType(oidName(o)).
		Value(v).
		Detail("cannot convert %T", v).
		Build()
}
