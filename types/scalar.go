package types

import (
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

var textOids = map[host.Oid]bool{
	oid.T_text:    true,
	oid.T_varchar: true,
	oid.T_bpchar:  true,
	oid.T_name:    true,
}

// StringType maps a host type to java.lang.String. Types without a native
// text representation go through the host's output and input routines.
type StringType struct {
	base
	io host.TypeIO
}

func newStringType(o host.Oid, io host.TypeIO) *StringType {
	return &StringType{base: newBase(o, jvm.ClassString), io: io}
}

func (t *StringType) ObjectType() Type         { return t }
func (t *StringType) CanReplace(def Type) bool { return true }

func (t *StringType) CoerceDatum(_ *Context, d host.Datum) (jvm.Value, error) {
	if s, ok := d.(string); ok {
		return s, nil
	}
	if t.io == nil {
		return nil, mismatch(t, d)
	}
	return t.io.Output(t.oid, d)
}

func (t *StringType) CoerceObject(_ *Context, v jvm.Value) (host.Datum, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, false, mismatch(t, v)
	}
	if textOids[t.oid] || t.io == nil {
		return s, false, nil
	}
	d, err := t.io.Input(t.oid, s)
	if err != nil {
		return nil, false, err
	}
	return d, false, nil
}

// BytesType maps bytea to byte[].
type BytesType struct{ base }

func (t *BytesType) ObjectType() Type         { return t }
func (t *BytesType) CanReplace(def Type) bool { return canReplace(t, def) }

func (t *BytesType) CoerceDatum(_ *Context, d host.Datum) (jvm.Value, error) {
	b, ok := d.([]byte)
	if !ok {
		return nil, mismatch(t, d)
	}
	return append([]byte(nil), b...), nil
}

func (t *BytesType) CoerceObject(_ *Context, v jvm.Value) (host.Datum, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, mismatch(t, v)
	}
	return append([]byte(nil), b...), false, nil
}

// NumericType maps numeric to java.math.BigDecimal.
type NumericType struct{ base }

func (t *NumericType) ObjectType() Type         { return t }
func (t *NumericType) CanReplace(def Type) bool { return canReplace(t, def) }

func (t *NumericType) CoerceDatum(_ *Context, d host.Datum) (jvm.Value, error) {
	n, ok := d.(pgtype.Numeric)
	if !ok {
		return nil, mismatch(t, d)
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return nil, errors.Unsupported(errors.PhaseCoerce, "non-finite numeric as "+jvm.ClassBigDecimal)
	}
	unscaled := new(big.Int)
	if n.Int != nil {
		unscaled.Set(n.Int)
	}
	return &jvm.BigDecimal{Unscaled: unscaled, Scale: -n.Exp}, nil
}

func (t *NumericType) CoerceObject(_ *Context, v jvm.Value) (host.Datum, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	switch x := v.(type) {
	case *jvm.BigDecimal:
		if x == nil {
			return nil, true, nil
		}
		i := new(big.Int)
		if x.Unscaled != nil {
			i.Set(x.Unscaled)
		}
		return pgtype.Numeric{Int: i, Exp: -x.Scale, Valid: true}, false, nil
	case int32:
		return pgtype.Numeric{Int: big.NewInt(int64(x)), Valid: true}, false, nil
	case int64:
		return pgtype.Numeric{Int: big.NewInt(x), Valid: true}, false, nil
	}
	return nil, false, mismatch(t, v)
}

// TimestampType maps timestamp and timestamptz to java.sql.Timestamp.
type TimestampType struct{ base }

func (t *TimestampType) ObjectType() Type         { return t }
func (t *TimestampType) CanReplace(def Type) bool { return canReplace(t, def) }

func (t *TimestampType) CoerceDatum(_ *Context, d host.Datum) (jvm.Value, error) {
	var (
		tm  time.Time
		inf pgtype.InfinityModifier
	)
	switch x := d.(type) {
	case pgtype.Timestamp:
		tm, inf = x.Time, x.InfinityModifier
	case pgtype.Timestamptz:
		tm, inf = x.Time, x.InfinityModifier
	case time.Time:
		tm = x
	default:
		return nil, mismatch(t, d)
	}
	if inf != pgtype.Finite {
		return nil, errors.Unsupported(errors.PhaseCoerce, "infinite timestamp as "+jvm.ClassTimestamp)
	}
	return tm, nil
}

func (t *TimestampType) CoerceObject(_ *Context, v jvm.Value) (host.Datum, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	tm, ok := v.(time.Time)
	if !ok {
		return nil, false, mismatch(t, v)
	}
	if t.oid == oid.T_timestamptz {
		return pgtype.Timestamptz{Time: tm, Valid: true}, false, nil
	}
	return pgtype.Timestamp{Time: tm, Valid: true}, false, nil
}

// DateType maps date to java.sql.Date.
type DateType struct{ base }

func (t *DateType) ObjectType() Type         { return t }
func (t *DateType) CanReplace(def Type) bool { return canReplace(t, def) }

func (t *DateType) CoerceDatum(_ *Context, d host.Datum) (jvm.Value, error) {
	x, ok := d.(pgtype.Date)
	if !ok {
		return nil, mismatch(t, d)
	}
	if x.InfinityModifier != pgtype.Finite {
		return nil, errors.Unsupported(errors.PhaseCoerce, "infinite date as "+jvm.ClassDate)
	}
	return jvm.Date{Time: x.Time}, nil
}

func (t *DateType) CoerceObject(_ *Context, v jvm.Value) (host.Datum, bool, error) {
	switch x := v.(type) {
	case nil:
		return nil, true, nil
	case jvm.Date:
		return pgtype.Date{Time: x.Time, Valid: true}, false, nil
	case time.Time:
		y, m, d := x.Date()
		return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}, false, nil
	}
	return nil, false, mismatch(t, v)
}

// UUIDType maps uuid to java.util.UUID.
type UUIDType struct{ base }

func (t *UUIDType) ObjectType() Type         { return t }
func (t *UUIDType) CanReplace(def Type) bool { return canReplace(t, def) }

func (t *UUIDType) CoerceDatum(_ *Context, d host.Datum) (jvm.Value, error) {
	x, ok := d.(pgtype.UUID)
	if !ok {
		return nil, mismatch(t, d)
	}
	return uuid.UUID(x.Bytes), nil
}

func (t *UUIDType) CoerceObject(_ *Context, v jvm.Value) (host.Datum, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	u, ok := v.(uuid.UUID)
	if !ok {
		return nil, false, mismatch(t, v)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, false, nil
}

// VoidType is the return type of procedures. Any managed result is dropped.
type VoidType struct{ base }

func (t *VoidType) ObjectType() Type         { return nil }
func (t *VoidType) CanReplace(def Type) bool { return def.Oid() == oid.T_void }

func (t *VoidType) CoerceDatum(*Context, host.Datum) (jvm.Value, error) { return nil, nil }

func (t *VoidType) CoerceObject(*Context, jvm.Value) (host.Datum, bool, error) {
	return nil, true, nil
}
