package types

import (
	"fmt"
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

func TestRowAccess(t *testing.T) {
	f := newFixture(t, Options{})
	comp := resolve(t, f, 90001)
	env := f.cx.Env

	v, err := comp.CoerceDatum(f.cx, personTuple(1, "ann"))
	require.NoError(t, err)
	row := v.(*Row)

	assert.Equal(t, 2, row.ColumnCount())
	assert.Equal(t, "name", row.ColumnName(2))

	id, err := row.Get(env, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), id)

	name, err := row.GetByName(env, "name")
	require.NoError(t, err)
	assert.Equal(t, "ann", name)

	_, err = row.Get(env, 3)
	assert.Error(t, err)
	_, err = row.GetByName(env, "missing")
	assert.Error(t, err)

	err = row.Set(env, 1, int32(2))
	var exc *jvm.Throwable
	require.ErrorAs(t, err, &exc)
	assert.Equal(t, jvm.ExceptionUnsupportedOperation, exc.Class)
}

func TestRowIsStaleAfterReset(t *testing.T) {
	f := newFixture(t, Options{})
	comp := resolve(t, f, 90001)
	call := f.cx.WithMem(f.cx.Mem.NewChild("call"))

	v, err := comp.CoerceDatum(call, personTuple(1, "ann"))
	require.NoError(t, err)
	row := v.(*Row)
	assert.Equal(t, 1, f.cx.Rows.Len())

	call.Mem.Reset()

	_, err = row.Get(f.cx.Env, 1)
	assert.True(t, errors.HasKind(err, errors.KindStaleHandle), "err = %v", err)
	_, err = row.Tuple()
	assert.True(t, errors.HasKind(err, errors.KindStaleHandle))
	assert.Equal(t, 0, f.cx.Rows.Len())
}

func TestCompositeRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	comp := resolve(t, f, 90001)

	v, err := comp.CoerceDatum(f.cx, personTuple(7, "bo"))
	require.NoError(t, err)
	d, isNull, err := comp.CoerceObject(f.cx, v)
	require.NoError(t, err)
	assert.False(t, isNull)
	assert.Equal(t, personTuple(7, "bo"), d)
}

func TestAnonymousRecordUsesTupleDescriptor(t *testing.T) {
	f := newFixture(t, Options{})
	rec := resolve(t, f, oid.T_record)

	desc := &host.TupleDesc{Attrs: []host.Attribute{{Name: "n", TypeOid: oid.T_int8}}}
	tup := host.NewTuple(desc)
	tup.Set(0, int64(9), false)

	v, err := rec.CoerceDatum(f.cx, tup)
	require.NoError(t, err)
	n, err := v.(*Row).GetByName(f.cx.Env, "n")
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
}

func TestCompositeInvoker(t *testing.T) {
	f := newFixture(t, Options{})
	comp := resolve(t, f, 90001).(*CompositeType)
	int4 := resolve(t, f, oid.T_int4)

	cls := f.vm.DefineClass("com.example.People")
	cls.MustDefineFunc("person", func(env *jvm.Env, id int32, receiver jvm.RowWriter) (bool, error) {
		if id < 0 {
			return false, nil
		}
		if err := receiver.Set(env, 1, id); err != nil {
			return false, err
		}
		return true, receiver.SetByName(env, "name", fmt.Sprintf("p%d", id))
	})

	sig := comp.MethodSignature([]Type{int4})
	assert.Equal(t, "(ILjava/sql/ResultSet;)Z", sig)
	m, err := cls.StaticMethod("person", sig)
	require.NoError(t, err)

	v, err := comp.Invoke(f.cx, m, []jvm.Value{int32(3)})
	require.NoError(t, err)
	d, _, err := comp.CoerceObject(f.cx, v)
	require.NoError(t, err)
	assert.Equal(t, personTuple(3, "p3"), d)

	v, err = comp.Invoke(f.cx, m, []jvm.Value{int32(-1)})
	require.NoError(t, err)
	assert.Nil(t, v)
}
