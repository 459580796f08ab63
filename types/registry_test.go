package types

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

func TestResolveBuiltins(t *testing.T) {
	f := newFixture(t, Options{})

	tests := []struct {
		oid       host.Oid
		java      string
		primitive bool
	}{
		{oid.T_bool, "boolean", true},
		{oid.T_char, "byte", true},
		{oid.T_int2, "short", true},
		{oid.T_int4, "int", true},
		{oid.T_int8, "long", true},
		{oid.T_float4, "float", true},
		{oid.T_float8, "double", true},
		{oid.T_text, jvm.ClassString, false},
		{oid.T_varchar, jvm.ClassString, false},
		{oid.T_bytea, "byte[]", false},
		{oid.T_numeric, jvm.ClassBigDecimal, false},
		{oid.T_timestamptz, jvm.ClassTimestamp, false},
		{oid.T_date, jvm.ClassDate, false},
		{oid.T_uuid, jvm.ClassUUID, false},
		{oid.T_void, "void", false},
		{oid.T_trigger, jvm.ClassTriggerData, false},
		{oid.T__int4, "java.lang.Integer[]", false},
		{oid.T__text, "java.lang.String[]", false},
	}
	for _, tt := range tests {
		t.Run(tt.java, func(t *testing.T) {
			ty := resolve(t, f, tt.oid)
			assert.Equal(t, tt.oid, ty.Oid())
			assert.Equal(t, tt.java, ty.JavaName())
			assert.Equal(t, tt.primitive, ty.IsPrimitive())
		})
	}
}

func TestResolveIsCanonical(t *testing.T) {
	f := newFixture(t, Options{})

	a := resolve(t, f, oid.T_int4)
	b := resolve(t, f, oid.T_int4)
	assert.Same(t, a, b)

	c1 := resolve(t, f, 90001)
	c2 := resolve(t, f, 90001)
	assert.Same(t, c1, c2)
	assert.Equal(t, 1, f.catalog.lookups, "composite lookups are cached")

	arr1 := resolve(t, f, oid.T__int8)
	arr2 := resolve(t, f, oid.T__int8)
	assert.Same(t, arr1, arr2)
}

func TestResolveRecordIsNeverCached(t *testing.T) {
	f := newFixture(t, Options{})

	r1 := resolve(t, f, oid.T_record)
	r2 := resolve(t, f, oid.T_record)
	assert.NotSame(t, r1, r2)
	assert.True(t, r1.(*CompositeType).IsRecord())

	c1, err := f.cx.Types.ResolveRecord(context.Background(), personDesc)
	require.NoError(t, err)
	c2, err := f.cx.Types.ResolveRecord(context.Background(), personDesc)
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
}

func TestResolveErrors(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.cx.Types.Resolve(f.cx.Ctx, host.InvalidOid)
	assert.True(t, errors.HasKind(err, errors.KindInvalidTypeID))
	assert.Equal(t, errors.StateUndefinedObject, errors.StateOf(err))

	f.catalog.err = stderrors.New("catalog down")
	_, err = f.cx.Types.Resolve(f.cx.Ctx, 90002)
	require.True(t, errors.HasKind(err, errors.KindCacheLookupFailed))
	assert.Contains(t, err.Error(), "90002")

	_, err = f.cx.Types.ResolveJava(f.cx.Ctx, oid.T_int4, "com.example.Nothing")
	assert.True(t, errors.HasKind(err, errors.KindSignatureMismatch))
}

func TestUnmappedTypeFallsBackToText(t *testing.T) {
	f := newFixture(t, Options{})

	ty := resolve(t, f, oid.T_inet)
	assert.Equal(t, jvm.ClassString, ty.JavaName())
	assert.Equal(t, oid.T_inet, ty.Oid())
	assert.Same(t, ty, resolve(t, f, oid.T_inet))
}

func TestResolveJava(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := f.cx.Ctx

	boxed, err := f.cx.Types.ResolveJava(ctx, oid.T_int4, "java.lang.Integer")
	require.NoError(t, err)
	assert.False(t, boxed.IsPrimitive())
	assert.Same(t, resolve(t, f, oid.T_int4).ObjectType(), boxed)

	str, err := f.cx.Types.ResolveJava(ctx, oid.T_int4, jvm.ClassString)
	require.NoError(t, err)
	assert.Equal(t, oid.T_int4, str.Oid())
	again, _ := f.cx.Types.ResolveJava(ctx, oid.T_int4, jvm.ClassString)
	assert.Same(t, str, again)

	prim, err := f.cx.Types.ResolveJava(ctx, oid.T__int4, "int[]")
	require.NoError(t, err)
	assert.Equal(t, "[I", prim.Signature())

	def, err := f.cx.Types.ResolveJava(ctx, oid.T_int8, "")
	require.NoError(t, err)
	assert.Equal(t, "long", def.JavaName())

	assert.Nil(t, f.cx.Types.ObjectType(resolve(t, f, oid.T_void)))
}

func TestCanReplace(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := f.cx.Ctx
	int4 := resolve(t, f, oid.T_int4)
	int8 := resolve(t, f, oid.T_int8)
	anyel := resolve(t, f, oid.T_anyelement)
	str, _ := f.cx.Types.ResolveJava(ctx, oid.T_int4, jvm.ClassString)
	wrongOid, _ := f.cx.Types.ResolveJava(ctx, oid.T_int8, "int")

	tests := []struct {
		name string
		repl Type
		def  Type
		want bool
	}{
		{"identical", int4, int4, true},
		{"boxed for primitive", int4.ObjectType(), int4, true},
		{"string for anything", str, int4, true},
		{"anything for generic", int8, anyel, true},
		{"different host type", int8, int4, false},
		{"class of another host type", wrongOid, int8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.repl.CanReplace(tt.def))
		})
	}
}

func TestNullTolerance(t *testing.T) {
	strict := newFixture(t, Options{})
	lenient := newFixture(t, Options{PrimitiveNulls: true})

	assert.False(t, resolve(t, strict, oid.T_int4).NullTolerant())
	assert.True(t, resolve(t, strict, oid.T_int4).ObjectType().NullTolerant())
	assert.True(t, resolve(t, strict, oid.T_text).NullTolerant())

	ty := resolve(t, lenient, oid.T_int4)
	assert.True(t, ty.NullTolerant())
	assert.Equal(t, int32(0), ty.Zero())
	assert.Equal(t, false, resolve(t, lenient, oid.T_bool).Zero())
}

func TestRegisterUDT(t *testing.T) {
	f := newFixture(t, Options{})

	ty, err := f.cx.Types.RegisterUDT(90100, "com.example.Point")
	require.NoError(t, err)
	assert.Same(t, ty, resolve(t, f, 90100))

	_, err = f.cx.Types.RegisterUDT(90100, "com.example.Point")
	assert.True(t, errors.HasKind(err, errors.KindDuplicateRegistration))

	_, err = f.cx.Types.RegisterUDT(host.InvalidOid, "com.example.Point")
	assert.True(t, errors.HasKind(err, errors.KindInvalidTypeID))
}
