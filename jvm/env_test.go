package jvm

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/plbridge/errors"
)

type funcMethod struct {
	name string
	desc string
	fn   func(env *Env, args []Value) (Value, error)
}

func (m *funcMethod) Class() string      { return "test.Class" }
func (m *funcMethod) Name() string       { return m.name }
func (m *funcMethod) Descriptor() string { return m.desc }
func (m *funcMethod) Invoke(env *Env, args []Value) (Value, error) {
	return m.fn(env, args)
}

func TestEnv_CallStatic(t *testing.T) {
	env := NewEnv(nil, nil)
	m := &funcMethod{name: "sum", desc: "(II)I", fn: func(_ *Env, args []Value) (Value, error) {
		return args[0].(int32) + args[1].(int32), nil
	}}

	got := env.CallStatic(m, int32(2), int32(3))
	if got != int32(5) {
		t.Fatalf("CallStatic = %v, want 5", got)
	}
	if env.ExceptionOccurred() != nil {
		t.Fatal("unexpected pending exception")
	}
	if env.Fence().InManaged() {
		t.Fatal("fence should be restored after the call")
	}
}

func TestEnv_CallStaticError(t *testing.T) {
	env := NewEnv(nil, nil)
	m := &funcMethod{name: "fail", desc: "()V", fn: func(_ *Env, _ []Value) (Value, error) {
		return nil, NewSQLException("boom", "23505")
	}}

	if got := env.CallStatic(m); got != nil {
		t.Fatalf("CallStatic = %v, want nil", got)
	}
	exc := env.ExceptionOccurred()
	if exc == nil {
		t.Fatal("expected pending exception")
	}
	if exc.State != "23505" {
		t.Errorf("state = %q", exc.State)
	}

	env.ExceptionClear()
	if env.ExceptionOccurred() != nil {
		t.Fatal("ExceptionClear did not clear")
	}
}

func TestEnv_CallStaticPanic(t *testing.T) {
	env := NewEnv(nil, nil)
	m := &funcMethod{name: "panics", desc: "()V", fn: func(_ *Env, _ []Value) (Value, error) {
		panic("bad state")
	}}

	env.CallStatic(m)
	exc := env.ExceptionOccurred()
	if exc == nil || exc.Class != ExceptionRuntime {
		t.Fatalf("pending = %v, want RuntimeException", exc)
	}
	if env.Fence().InManaged() {
		t.Fatal("fence not restored after panic")
	}
}

func TestEnv_LocalFrames(t *testing.T) {
	env := NewEnv(nil, nil)
	env.NewLocalRef("outer")

	env.PushLocalFrame()
	env.NewLocalRef("a")
	env.NewLocalRef("b")
	env.PushLocalFrame()
	env.NewLocalRef("c")

	if env.LocalFrameDepth() != 2 || env.LocalRefCount() != 4 {
		t.Fatalf("depth=%d refs=%d", env.LocalFrameDepth(), env.LocalRefCount())
	}
	if err := env.PopLocalFrame(); err != nil {
		t.Fatal(err)
	}
	if env.LocalRefCount() != 3 {
		t.Errorf("refs after inner pop = %d", env.LocalRefCount())
	}
	if err := env.PopLocalFrame(); err != nil {
		t.Fatal(err)
	}
	if env.LocalRefCount() != 1 {
		t.Errorf("refs after outer pop = %d", env.LocalRefCount())
	}
	if err := env.PopLocalFrame(); !errors.HasKind(err, errors.KindInternal) {
		t.Errorf("underflow err = %v", err)
	}
}

func TestEnv_WithContext(t *testing.T) {
	env := NewEnv(nil, nil)
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, 1)
	prev := env.WithContext(ctx)
	if env.Context() != ctx {
		t.Fatal("context not installed")
	}
	env.WithContext(prev)
	if env.Context().Value(key{}) != nil {
		t.Fatal("context not restored")
	}
}

func TestEnv_NativesMissing(t *testing.T) {
	env := NewEnv(nil, nil)
	_, err := env.Natives()
	if !errors.HasKind(err, errors.KindUnsupported) {
		t.Fatalf("err = %v", err)
	}
	var target *errors.Error
	if !stderrors.As(err, &target) {
		t.Fatal("expected *errors.Error")
	}
}
