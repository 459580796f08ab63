package types

import (
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

func updateTrigger(when host.TriggerWhen) *host.TriggerData {
	return &host.TriggerData{
		Desc:      personDesc,
		TrigTuple: personTuple(1, "old"),
		NewTuple:  personTuple(1, "new"),
		Name:      "people_audit",
		Relation:  "people",
		Schema:    "public",
		Args:      []string{"a", "b"},
		When:      when,
		Level:     host.TriggerForEachRow,
		Event:     host.TriggerUpdate,
	}
}

func triggerData(t *testing.T, f *fixture, td *host.TriggerData) *TriggerData {
	t.Helper()
	v, err := resolve(t, f, oid.T_trigger).CoerceDatum(f.cx, td)
	require.NoError(t, err)
	return v.(*TriggerData)
}

func TestTriggerDataAccessors(t *testing.T) {
	f := newFixture(t, Options{})
	td := triggerData(t, f, updateTrigger(host.TriggerBefore))

	str := func(s string, err error) string {
		require.NoError(t, err)
		return s
	}
	is := func(b bool, err error) bool {
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, "people_audit", str(td.Name()))
	assert.Equal(t, "people", str(td.TableName()))
	assert.Equal(t, "public", str(td.SchemaName()))
	assert.True(t, is(td.IsBefore()))
	assert.False(t, is(td.IsAfter()))
	assert.True(t, is(td.IsForEachRow()))
	assert.True(t, is(td.IsFiredByUpdate()))
	assert.False(t, is(td.IsFiredByInsert()))
	assert.False(t, is(td.IsFiredByDelete()))
	args, err := td.Arguments()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, args)

	old, err := td.Old(f.cx.Env)
	require.NoError(t, err)
	name, err := old.GetByName(f.cx.Env, "name")
	require.NoError(t, err)
	assert.Equal(t, "old", name)
}

func TestTriggerDataStaleAfterReset(t *testing.T) {
	f := newFixture(t, Options{})
	td := triggerData(t, f, updateTrigger(host.TriggerBefore))
	f.cx.Mem.Reset()

	stale := func(err error) {
		t.Helper()
		assert.True(t, errors.HasKind(err, errors.KindStaleHandle), "err = %v", err)
	}
	_, err := td.Name()
	stale(err)
	_, err = td.TableName()
	stale(err)
	_, err = td.SchemaName()
	stale(err)
	before, err := td.IsBefore()
	stale(err)
	assert.False(t, before)
	_, err = td.IsAfter()
	stale(err)
	_, err = td.IsForEachRow()
	stale(err)
	_, err = td.IsFiredByInsert()
	stale(err)
	_, err = td.IsFiredByUpdate()
	stale(err)
	_, err = td.IsFiredByDelete()
	stale(err)
	args, err := td.Arguments()
	stale(err)
	assert.Nil(t, args)
	_, err = td.Old(f.cx.Env)
	stale(err)
	_, err = td.New(f.cx.Env)
	stale(err)
	stale(td.Suppress(f.cx.Env))
}

func TestTriggerModifiedRow(t *testing.T) {
	f := newFixture(t, Options{})
	td := triggerData(t, f, updateTrigger(host.TriggerBefore))
	env := f.cx.Env

	nw, err := td.New(env)
	require.NoError(t, err)
	require.NoError(t, nw.SetByName(env, "name", "changed"))

	again, err := td.New(env)
	require.NoError(t, err)
	assert.Same(t, nw, again)

	res, err := td.Result()
	require.NoError(t, err)
	require.NotNil(t, res)
	v, isNull := res.Get(1)
	assert.False(t, isNull)
	assert.Equal(t, "changed", v)
}

func TestTriggerUnmodifiedResult(t *testing.T) {
	f := newFixture(t, Options{})
	data := updateTrigger(host.TriggerBefore)
	td := triggerData(t, f, data)

	res, err := td.Result()
	require.NoError(t, err)
	assert.Same(t, data.NewTuple, res)
}

func TestTriggerSuppress(t *testing.T) {
	f := newFixture(t, Options{})
	td := triggerData(t, f, updateTrigger(host.TriggerBefore))
	require.NoError(t, td.Suppress(f.cx.Env))
	res, err := td.Result()
	require.NoError(t, err)
	assert.Nil(t, res)

	after := triggerData(t, f, updateTrigger(host.TriggerAfter))
	var exc *jvm.Throwable
	require.ErrorAs(t, after.Suppress(f.cx.Env), &exc)
	assert.True(t, exc.IsSQLException())
}

func TestAfterTriggerRowsAreReadOnly(t *testing.T) {
	f := newFixture(t, Options{})
	td := triggerData(t, f, updateTrigger(host.TriggerAfter))

	nw, err := td.New(f.cx.Env)
	require.NoError(t, err)
	assert.Error(t, nw.Set(f.cx.Env, 2, "x"))

	res, err := td.Result()
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestTriggerInsertAndDelete(t *testing.T) {
	f := newFixture(t, Options{})

	ins := updateTrigger(host.TriggerBefore)
	ins.Event = host.TriggerInsert
	ins.NewTuple = nil
	td := triggerData(t, f, ins)
	old, err := td.Old(f.cx.Env)
	require.NoError(t, err)
	assert.Nil(t, old)
	res, err := td.Result()
	require.NoError(t, err)
	assert.Same(t, ins.TrigTuple, res)

	del := updateTrigger(host.TriggerBefore)
	del.Event = host.TriggerDelete
	del.NewTuple = nil
	td = triggerData(t, f, del)
	nw, err := td.New(f.cx.Env)
	require.NoError(t, err)
	assert.Nil(t, nw)
}
