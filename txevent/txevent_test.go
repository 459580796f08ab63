package txevent

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

// fakeTx is a host transaction manager firing events the way the host does:
// the start event is raised from inside BeginSubtransaction, before the new
// id is returned.
type fakeTx struct {
	stack  []host.SubXactID
	next   host.SubXactID
	xacts  []host.XactCallback
	subs   []host.SubXactCallback
	failAt host.SubXactID
}

func (f *fakeTx) parent() host.SubXactID {
	if len(f.stack) == 0 {
		return host.InvalidSubXactID
	}
	return f.stack[len(f.stack)-1]
}

func (f *fakeTx) fire(ctx context.Context, e host.SubXactEvent, my, parent host.SubXactID) {
	for _, cb := range f.subs {
		cb(ctx, e, my, parent)
	}
}

func (f *fakeTx) BeginSubtransaction(ctx context.Context, _ string) (host.SubXactID, error) {
	f.next++
	if f.next == f.failAt {
		return 0, stderrors.New("out of subtransactions")
	}
	id, parent := f.next, f.parent()
	f.stack = append(f.stack, id)
	f.fire(ctx, host.SubXactEventStartSub, id, parent)
	return id, nil
}

func (f *fakeTx) end(ctx context.Context, id host.SubXactID, e host.SubXactEvent) error {
	for len(f.stack) > 0 {
		top := f.stack[len(f.stack)-1]
		f.stack = f.stack[:len(f.stack)-1]
		f.fire(ctx, e, top, f.parent())
		if top == id {
			return nil
		}
	}
	return stderrors.New("no such subtransaction")
}

func (f *fakeTx) ReleaseSubtransaction(ctx context.Context, id host.SubXactID) error {
	return f.end(ctx, id, host.SubXactEventCommitSub)
}

func (f *fakeTx) RollbackSubtransaction(ctx context.Context, id host.SubXactID) error {
	return f.end(ctx, id, host.SubXactEventAbortSub)
}

func (f *fakeTx) CurrentSubtransaction() host.SubXactID { return f.parent() }

func (f *fakeTx) RegisterXactCallback(cb host.XactCallback) { f.xacts = append(f.xacts, cb) }

func (f *fakeTx) RegisterSubXactCallback(cb host.SubXactCallback) { f.subs = append(f.subs, cb) }

// foreign starts a subtransaction the way SQL SAVEPOINT would, outside
// managed code.
func (f *fakeTx) foreign(ctx context.Context) host.SubXactID {
	id, _ := f.BeginSubtransaction(ctx, "")
	return id
}

func (f *fakeTx) commit(ctx context.Context) {
	for _, e := range []host.XactEvent{host.XactEventPreCommit, host.XactEventCommit} {
		for _, cb := range f.xacts {
			cb(ctx, e)
		}
	}
	f.stack = nil
}

type subEvent struct {
	event   SubXactOrdinal
	current jvm.Savepoint
	parent  jvm.Savepoint
}

type fixture struct {
	tx         *fakeTx
	env        *jvm.Env
	savepoints *Savepoints
	dispatcher *Dispatcher
	subEvents  []subEvent
	xactEvents []XactOrdinal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{tx: &fakeTx{}, env: jvm.NewEnv(nil, nil)}
	f.savepoints = NewSavepoints(f.tx)
	f.dispatcher = NewDispatcher(f.env, f.savepoints)
	f.dispatcher.Install(f.tx)
	f.dispatcher.Install(f.tx)
	require.Len(t, f.tx.subs, 1)
	return f
}

func (f *fixture) listen(t *testing.T) {
	t.Helper()
	require.NoError(t, f.dispatcher.RegisterSubXactListener(SubXactListenerFunc(
		func(env *jvm.Env, e SubXactOrdinal, cur, par jvm.Savepoint) error {
			f.subEvents = append(f.subEvents, subEvent{e, cur, par})
			return nil
		})))
	require.NoError(t, f.dispatcher.RegisterXactListener(XactListenerFunc(
		func(env *jvm.Env, e XactOrdinal) error {
			f.xactEvents = append(f.xactEvents, e)
			return nil
		})))
}

func TestOrdinals(t *testing.T) {
	xact := map[host.XactEvent]XactOrdinal{
		host.XactEventCommit:            0,
		host.XactEventAbort:             1,
		host.XactEventPrepare:           2,
		host.XactEventPreCommit:         3,
		host.XactEventPrePrepare:        4,
		host.XactEventParallelCommit:    5,
		host.XactEventParallelAbort:     6,
		host.XactEventParallelPreCommit: 7,
	}
	for e, want := range xact {
		got, ok := XactOrdinalOf(e)
		assert.True(t, ok)
		assert.Equal(t, want, got, "host event %d", e)
	}
	_, ok := XactOrdinalOf(host.XactEvent(99))
	assert.False(t, ok)

	sub := map[host.SubXactEvent]SubXactOrdinal{
		host.SubXactEventStartSub:     0,
		host.SubXactEventCommitSub:    1,
		host.SubXactEventAbortSub:     2,
		host.SubXactEventPreCommitSub: 3,
	}
	for e, want := range sub {
		got, ok := SubXactOrdinalOf(e)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, "PRE_COMMIT", XactPreCommit.String())
	assert.Equal(t, "ABORT_SUB", SubXactAbort.String())
	assert.True(t, XactAbort.Ends())
	assert.False(t, XactPreCommit.Ends())
}

func TestSingletonListeners(t *testing.T) {
	f := newFixture(t)
	noop := XactListenerFunc(func(*jvm.Env, XactOrdinal) error { return nil })

	require.NoError(t, f.dispatcher.RegisterXactListener(noop))
	err := f.dispatcher.RegisterXactListener(noop)
	assert.True(t, errors.HasKind(err, errors.KindDuplicateRegistration))
	assert.Equal(t, errors.StateDuplicateObject, errors.StateOf(err))

	f.dispatcher.UnregisterXactListener()
	f.dispatcher.UnregisterXactListener()
	assert.NoError(t, f.dispatcher.RegisterXactListener(noop))

	subNoop := SubXactListenerFunc(func(*jvm.Env, SubXactOrdinal, jvm.Savepoint, jvm.Savepoint) error { return nil })
	require.NoError(t, f.dispatcher.RegisterSubXactListener(subNoop))
	assert.True(t, errors.HasKind(f.dispatcher.RegisterSubXactListener(subNoop), errors.KindDuplicateRegistration))
	f.dispatcher.UnregisterSubXactListener()
	assert.NoError(t, f.dispatcher.RegisterSubXactListener(subNoop))

	assert.True(t, errors.HasKind(f.dispatcher.RegisterXactListener(nil), errors.KindInvalidInput))
}

func TestSetSavepointResolvesCurrentBeforeParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The parent subtransaction is started by the host while nobody listens,
	// so neither id is cached when the managed savepoint is set.
	outer := f.tx.foreign(ctx)
	f.savepoints.Invalidate(outer)
	f.listen(t)

	sp, err := f.savepoints.Set(ctx, "inner")
	require.NoError(t, err)
	id, err := sp.ID()
	require.NoError(t, err)
	assert.Equal(t, int(outer+1), id)
	assert.False(t, sp.Foreign())

	require.Len(t, f.subEvents, 1)
	ev := f.subEvents[0]
	assert.Equal(t, SubXactStart, ev.event)
	assert.Same(t, sp, ev.current, "the started subtransaction claims the nursery handle")
	require.NotNil(t, ev.parent)
	parentID, err := ev.parent.ID()
	require.NoError(t, err)
	assert.Equal(t, int(outer), parentID)
	assert.True(t, ev.parent.(*Savepoint).Foreign())
}

func TestResolveOrderMatters(t *testing.T) {
	tx := &fakeTx{}
	s := NewSavepoints(tx)
	sp := &Savepoint{name: "inner"}

	// Resolving the parent first hands the nursery handle to the wrong id.
	s.nursery = sp
	s.resolveLocked(1)
	s.resolveLocked(2)
	id, err := sp.ID()
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	s = NewSavepoints(tx)
	sp = &Savepoint{name: "inner"}
	s.nursery = sp
	cur, par := s.Resolve(2, 1)
	assert.Same(t, sp, cur)
	assert.NotSame(t, sp, par)
	assert.Equal(t, 2, cur.level)
}

func TestSetWithoutEvents(t *testing.T) {
	tx := &fakeTx{}
	s := NewSavepoints(tx)

	sp, err := s.Set(context.Background(), "a")
	require.NoError(t, err)
	id, err := sp.ID()
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, 1, sp.Level())

	got, ok := s.Lookup(1)
	require.True(t, ok)
	assert.Same(t, sp, got)
}

func TestSetFailure(t *testing.T) {
	f := newFixture(t)
	f.tx.failAt = 1

	_, err := f.savepoints.Set(context.Background(), "a")
	require.Error(t, err)
	assert.Nil(t, f.savepoints.nursery)

	_, err = f.savepoints.Set(context.Background(), "b")
	require.NoError(t, err)
}

func TestReleaseMakesHandleStale(t *testing.T) {
	f := newFixture(t)
	f.listen(t)
	ctx := context.Background()

	a, err := f.savepoints.Set(ctx, "a")
	require.NoError(t, err)
	b, err := f.savepoints.Set(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Level())
	assert.Equal(t, 2, b.Level())

	require.NoError(t, f.savepoints.Release(ctx, a))
	assert.False(t, a.Valid())
	assert.False(t, b.Valid(), "nested savepoints end with their parent")

	_, err = a.ID()
	assert.True(t, errors.HasKind(err, errors.KindStaleHandle))
	assert.Equal(t, errors.StateObjectNotInState, errors.StateOf(err))

	err = f.savepoints.Release(ctx, a)
	assert.True(t, errors.HasKind(err, errors.KindStaleHandle))

	var kinds []SubXactOrdinal
	for _, e := range f.subEvents {
		kinds = append(kinds, e.event)
	}
	assert.Equal(t, []SubXactOrdinal{SubXactStart, SubXactStart, SubXactCommit, SubXactCommit}, kinds)
	assert.Same(t, b, f.subEvents[2].current)
	assert.Same(t, a, f.subEvents[2].parent)
	assert.Nil(t, f.subEvents[3].parent)
}

func TestRollbackMakesHandleStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sp, err := f.savepoints.Set(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, f.savepoints.Rollback(ctx, sp))

	_, err = sp.ID()
	assert.True(t, errors.HasKind(err, errors.KindStaleHandle))
	_, ok := f.savepoints.Lookup(1)
	assert.False(t, ok)
}

func TestCommitEndsSavepoints(t *testing.T) {
	f := newFixture(t)
	f.listen(t)
	ctx := context.Background()

	sp, err := f.savepoints.Set(ctx, "a")
	require.NoError(t, err)
	f.tx.commit(ctx)

	assert.Equal(t, []XactOrdinal{XactPreCommit, XactCommit}, f.xactEvents)
	assert.False(t, sp.Valid())
	assert.Equal(t, 0, f.savepoints.Cache().Len())
}

func TestListenerFailureIsContained(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dispatcher.RegisterXactListener(XactListenerFunc(
		func(env *jvm.Env, e XactOrdinal) error {
			panic("boom")
		})))
	require.NoError(t, f.dispatcher.RegisterSubXactListener(SubXactListenerFunc(
		func(env *jvm.Env, e SubXactOrdinal, cur, par jvm.Savepoint) error {
			env.Throw(jvm.NewSQLException("listener", "P0001"))
			return nil
		})))

	ctx := context.Background()
	_, err := f.savepoints.Set(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, f.env.ExceptionOccurred())
	assert.False(t, f.env.Fence().InManaged())

	assert.NotPanics(t, func() { f.tx.commit(ctx) })
}
