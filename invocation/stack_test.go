package invocation

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

type fakeFunction struct {
	name     string
	readOnly bool
}

func (f *fakeFunction) Name() string   { return f.name }
func (f *fakeFunction) ReadOnly() bool { return f.readOnly }

type fakeRM struct {
	connects   int
	finishes   int
	open       int
	connectErr error
}

func (r *fakeRM) Connect(context.Context) error {
	if r.connectErr != nil {
		return r.connectErr
	}
	r.connects++
	r.open++
	return nil
}

func (r *fakeRM) Finish(context.Context) error {
	r.finishes++
	r.open--
	return nil
}

func (r *fakeRM) Exec(context.Context, string, bool, ...host.Datum) (*host.Result, error) {
	return &host.Result{}, nil
}

type snapshot struct {
	connected bool
	function  Function
	depth     int
	locals    int
}

func snap(s *Stack) snapshot {
	return snapshot{
		connected: s.Connected(),
		function:  s.Function(),
		depth:     s.Depth(),
		locals:    s.Env().LocalFrameDepth(),
	}
}

// nest pushes n frames, connecting in every frame as a re-entrant
// call-out would, then pops them in reverse order.
func nest(t *testing.T, s *Stack, n int) {
	t.Helper()
	ctx := context.Background()
	frames := make([]*Frame, 0, n)
	for i := 0; i < n; i++ {
		f := s.Push(&fakeFunction{name: fmt.Sprintf("fn%d", i)})
		require.NoError(t, s.AssertConnect(ctx))
		frames = append(frames, f)
	}
	for i := n - 1; i >= 0; i-- {
		require.NoError(t, s.Pop(ctx, frames[i]))
	}
}

func TestFrameNestingRestoresState(t *testing.T) {
	for n := 1; n <= 3; n++ {
		t.Run(fmt.Sprintf("depth %d", n), func(t *testing.T) {
			rm := &fakeRM{}
			s := NewStack(jvm.NewEnv(nil, nil), rm, nil)

			before := snap(s)
			nest(t, s, n)
			assert.Equal(t, before, snap(s))
			assert.Equal(t, 0, rm.open)
			assert.Equal(t, 1, rm.connects, "only the first frame connects")
		})
	}
}

func TestFrameNestingInsideConnectedCaller(t *testing.T) {
	for n := 1; n <= 3; n++ {
		t.Run(fmt.Sprintf("depth %d", n), func(t *testing.T) {
			ctx := context.Background()
			rm := &fakeRM{}
			s := NewStack(jvm.NewEnv(nil, nil), rm, nil)

			outer := s.Push(&fakeFunction{name: "outer"})
			require.NoError(t, s.AssertConnect(ctx))
			before := snap(s)

			nest(t, s, n)
			assert.Equal(t, before, snap(s))
			assert.Equal(t, 1, rm.open, "inner frames must not finish the outer connection")

			require.NoError(t, s.Pop(ctx, outer))
			assert.Equal(t, 0, rm.open)
		})
	}
}

func TestTopLevelFrameOwnsLocalScope(t *testing.T) {
	ctx := context.Background()
	env := jvm.NewEnv(nil, nil)
	s := NewStack(env, nil, nil)

	outer := s.Push(nil)
	assert.True(t, outer.TopLevel())
	env.NewLocalRef("a")
	inner := s.Push(nil)
	assert.False(t, inner.TopLevel())
	assert.Equal(t, 2, inner.Depth())
	env.NewLocalRef("b")
	assert.Equal(t, 1, env.LocalFrameDepth())

	require.NoError(t, s.Pop(ctx, inner))
	assert.Equal(t, 2, env.LocalRefCount())
	require.NoError(t, s.Pop(ctx, outer))
	assert.Equal(t, 0, env.LocalRefCount())
	assert.Equal(t, 0, env.LocalFrameDepth())
}

func TestErrorOccurredRefusesHostWork(t *testing.T) {
	ctx := context.Background()
	rm := &fakeRM{}
	s := NewStack(jvm.NewEnv(nil, nil), rm, nil)

	outer := s.Push(&fakeFunction{name: "outer"})
	fatal := stderrors.New("division by zero")
	outer.SetError(fatal)
	outer.SetError(stderrors.New("second"))

	err := s.AssertConnect(ctx)
	require.True(t, errors.HasKind(err, errors.KindStaleInvocation), "err = %v", err)
	assert.Equal(t, 0, rm.connects)

	inner := s.Push(&fakeFunction{name: "inner"})
	assert.True(t, errors.HasKind(s.AssertConnect(ctx), errors.KindStaleInvocation))
	require.NoError(t, s.Pop(ctx, inner))

	err = s.Pop(ctx, outer)
	assert.ErrorIs(t, err, fatal)
	assert.Nil(t, s.Current(), "bookkeeping completes before the error is returned")
	assert.Equal(t, 0, s.Env().LocalFrameDepth())
}

func TestClearErrorAllowsHostWork(t *testing.T) {
	ctx := context.Background()
	rm := &fakeRM{}
	s := NewStack(jvm.NewEnv(nil, nil), rm, nil)

	f := s.Push(&fakeFunction{name: "f"})
	f.SetError(stderrors.New("unique violation"))
	require.Error(t, s.AssertConnect(ctx))

	f.ClearError()
	require.NoError(t, s.AssertConnect(ctx))
	assert.NoError(t, s.Pop(ctx, f))
	assert.Equal(t, 0, rm.open)
}

func TestConnectFailureFlagsFrame(t *testing.T) {
	ctx := context.Background()
	rm := &fakeRM{connectErr: stderrors.New("spi unavailable")}
	s := NewStack(jvm.NewEnv(nil, nil), rm, nil)

	f := s.Push(nil)
	require.Error(t, s.AssertConnect(ctx))
	assert.True(t, f.ErrorOccurred())
	assert.False(t, s.Connected())
	assert.ErrorIs(t, s.Pop(ctx, f), rm.connectErr)
}

func TestPopOutOfOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStack(jvm.NewEnv(nil, nil), nil, nil)

	outer := s.Push(nil)
	inner := s.Push(nil)

	err := s.Pop(ctx, outer)
	assert.True(t, errors.HasKind(err, errors.KindInternal))
	assert.Same(t, inner, s.Current(), "a rejected pop changes nothing")

	require.NoError(t, s.Pop(ctx, inner))
	require.NoError(t, s.Pop(ctx, outer))
	assert.True(t, errors.HasKind(s.Pop(ctx, outer), errors.KindInternal))
}

func TestAssertConnectOutsideInvocation(t *testing.T) {
	s := NewStack(jvm.NewEnv(nil, nil), &fakeRM{}, nil)
	assert.True(t, errors.HasKind(s.AssertConnect(context.Background()), errors.KindInternal))
}

func TestFrameMemoryAndOwner(t *testing.T) {
	ctx := context.Background()
	s := NewStack(jvm.NewEnv(nil, nil), nil, nil)
	top := s.Memory().Current()

	f := s.Push(&fakeFunction{name: "f"})
	assert.Same(t, f.Mem(), s.Memory().Current())
	p, err := f.Mem().Alloc("value")
	require.NoError(t, err)

	var released []string
	f.Owner().OnRelease(func() { released = append(released, "cursor") })

	require.NoError(t, s.Pop(ctx, f))
	assert.Same(t, top, s.Memory().Current())
	assert.True(t, f.Mem().IsDeleted())
	_, err = top.Arena().Get(p)
	assert.True(t, errors.HasKind(err, errors.KindStaleHandle))
	assert.Equal(t, []string{"cursor"}, released)
}

func TestCallbackFrameDefersRelease(t *testing.T) {
	ctx := context.Background()
	s := NewStack(jvm.NewEnv(nil, nil), nil, nil)

	outer := s.Push(nil)
	cb := s.Push(nil, FromCallback())
	assert.True(t, cb.FromCallback())

	closed := false
	cb.Owner().OnRelease(func() { closed = true })
	require.NoError(t, s.Pop(ctx, cb))
	assert.False(t, closed)

	require.NoError(t, s.Pop(ctx, outer))
	assert.True(t, closed)
}

func TestUnwind(t *testing.T) {
	ctx := context.Background()
	rm := &fakeRM{}
	s := NewStack(jvm.NewEnv(nil, nil), rm, nil)

	outer := s.Push(nil)
	require.NoError(t, s.AssertConnect(ctx))
	s.Push(nil)
	s.Push(nil)

	require.NoError(t, s.Unwind(ctx, outer))
	assert.Nil(t, s.Current())
	assert.Equal(t, 0, rm.open)
}
