package types

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})

	tests := []struct {
		oid   host.Oid
		datum host.Datum
		value jvm.Value
	}{
		{oid.T_bool, true, true},
		{oid.T_char, byte('x'), int8('x')},
		{oid.T_int2, int16(-5), int16(-5)},
		{oid.T_int4, int32(42), int32(42)},
		{oid.T_int8, int64(1) << 40, int64(1) << 40},
		{oid.T_float4, float32(1.5), float32(1.5)},
		{oid.T_float8, 2.25, 2.25},
	}
	for _, tt := range tests {
		ty := resolve(t, f, tt.oid)
		t.Run(ty.JavaName(), func(t *testing.T) {
			v, err := ty.CoerceDatum(f.cx, tt.datum)
			require.NoError(t, err)
			assert.Equal(t, tt.value, v)

			d, isNull, err := ty.CoerceObject(f.cx, v)
			require.NoError(t, err)
			assert.False(t, isNull)
			assert.Equal(t, tt.datum, d)
		})
	}
}

func TestPrimitiveCoercionErrors(t *testing.T) {
	f := newFixture(t, Options{})
	int2 := resolve(t, f, oid.T_int2)
	int4 := resolve(t, f, oid.T_int4)

	d, err := int4.ObjectType().CoerceDatum(f.cx, int32(7))
	require.NoError(t, err)
	assert.Equal(t, int32(7), d)

	_, _, err = int2.CoerceObject(f.cx, int32(1<<20))
	assert.True(t, errors.HasKind(err, errors.KindOverflow), "err = %v", err)
	assert.Equal(t, errors.StateNumericOutOfRange, errors.StateOf(err))

	d, _, err = int4.CoerceObject(f.cx, int16(12))
	require.NoError(t, err)
	assert.Equal(t, int32(12), d, "narrower values widen")

	_, _, err = int4.CoerceObject(f.cx, "12")
	assert.True(t, errors.HasKind(err, errors.KindTypeMismatch))

	_, err = int4.CoerceDatum(f.cx, int64(12))
	assert.True(t, errors.HasKind(err, errors.KindTypeMismatch))

	_, isNull, err := int4.ObjectType().CoerceObject(f.cx, nil)
	require.NoError(t, err)
	assert.True(t, isNull)
}

func TestStringThroughTextIO(t *testing.T) {
	f := newFixture(t, Options{})
	str, err := f.cx.Types.ResolveJava(f.cx.Ctx, oid.T_int4, jvm.ClassString)
	require.NoError(t, err)

	v, err := str.CoerceDatum(f.cx, int32(42))
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	d, _, err := str.CoerceObject(f.cx, "17")
	require.NoError(t, err)
	assert.Equal(t, int32(17), d)

	_, _, err = str.CoerceObject(f.cx, "seventeen")
	assert.True(t, errors.HasKind(err, errors.KindInvalidData))

	text := resolve(t, f, oid.T_text)
	d, _, err = text.CoerceObject(f.cx, "as is")
	require.NoError(t, err)
	assert.Equal(t, "as is", d)
}

func TestScalarRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name  string
		oid   host.Oid
		datum host.Datum
		value jvm.Value
	}{
		{"bytea", oid.T_bytea, []byte{1, 2, 3}, []byte{1, 2, 3}},
		{"timestamp", oid.T_timestamp, pgtype.Timestamp{Time: ts, Valid: true}, ts},
		{"timestamptz", oid.T_timestamptz, pgtype.Timestamptz{Time: ts, Valid: true}, ts},
		{"date", oid.T_date, pgtype.Date{Time: day, Valid: true}, jvm.Date{Time: day}},
		{"uuid", oid.T_uuid, pgtype.UUID{Bytes: id, Valid: true}, id},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ty := resolve(t, f, tt.oid)
			v, err := ty.CoerceDatum(f.cx, tt.datum)
			require.NoError(t, err)
			assert.Equal(t, tt.value, v)

			d, isNull, err := ty.CoerceObject(f.cx, v)
			require.NoError(t, err)
			assert.False(t, isNull)
			assert.Equal(t, tt.datum, d)
		})
	}
}

func TestNumeric(t *testing.T) {
	f := newFixture(t, Options{})
	num := resolve(t, f, oid.T_numeric)

	v, err := num.CoerceDatum(f.cx, pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true})
	require.NoError(t, err)
	dec := v.(*jvm.BigDecimal)
	assert.Equal(t, int32(2), dec.Scale)
	assert.Equal(t, "123.45", dec.String())

	d, _, err := num.CoerceObject(f.cx, &jvm.BigDecimal{Unscaled: big.NewInt(-5), Scale: 1})
	require.NoError(t, err)
	n := d.(pgtype.Numeric)
	assert.Equal(t, int32(-1), n.Exp)
	assert.Equal(t, 0, n.Int.Cmp(big.NewInt(-5)))

	_, err = num.CoerceDatum(f.cx, pgtype.Numeric{NaN: true, Valid: true})
	assert.True(t, errors.HasKind(err, errors.KindUnsupported))
}

func TestVoidDropsResult(t *testing.T) {
	f := newFixture(t, Options{})
	void := resolve(t, f, oid.T_void)
	d, isNull, err := void.CoerceObject(f.cx, int32(1))
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.True(t, isNull)
}

func TestArrays(t *testing.T) {
	f := newFixture(t, Options{})
	withNull := &host.Array{
		Elems:    []host.Datum{int32(1), nil, int32(3)},
		Nulls:    []bool{false, true, false},
		ElemType: oid.T_int4,
	}

	boxed := resolve(t, f, oid.T__int4)
	v, err := boxed.CoerceDatum(f.cx, withNull)
	require.NoError(t, err)
	assert.Equal(t, []jvm.Value{int32(1), nil, int32(3)}, v)

	d, _, err := boxed.CoerceObject(f.cx, v)
	require.NoError(t, err)
	assert.Equal(t, withNull, d)

	prim, err := f.cx.Types.ResolveJava(f.cx.Ctx, oid.T__int4, "int[]")
	require.NoError(t, err)
	_, err = prim.CoerceDatum(f.cx, withNull)
	assert.True(t, errors.HasKind(err, errors.KindNullValue))

	v, err = prim.CoerceDatum(f.cx, &host.Array{Elems: []host.Datum{int32(4), int32(5)}, ElemType: oid.T_int4})
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 5}, v)

	d, _, err = prim.CoerceObject(f.cx, []int32{6})
	require.NoError(t, err)
	assert.Equal(t, &host.Array{Elems: []host.Datum{int32(6)}, Nulls: []bool{false}, ElemType: oid.T_int4}, d)
}
