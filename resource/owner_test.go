package resource

import (
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOwner_ReleaseOrder(t *testing.T) {
	top := NewOwner(nil, "TopTransaction")
	sub1 := NewOwner(top, "sub1")
	sub2 := NewOwner(top, "sub2")

	var order []string
	top.OnRelease(func() { order = append(order, "top") })
	sub1.OnRelease(func() { order = append(order, "sub1") })
	sub2.OnRelease(func() { order = append(order, "sub2-a") })
	sub2.OnRelease(func() { order = append(order, "sub2-b") })

	if err := top.Release(); err != nil {
		t.Fatal(err)
	}

	want := []string{"sub2-b", "sub2-a", "sub1", "top"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	if !sub1.Released() || !sub2.Released() {
		t.Fatal("children must be released")
	}
}

func TestOwner_ReleaseIdempotent(t *testing.T) {
	o := NewOwner(nil, "o")
	n := 0
	o.OnRelease(func() { n++ })
	_ = o.Release()
	_ = o.Release()
	if n != 1 {
		t.Fatalf("action ran %d times", n)
	}
}

func TestOwner_CombinesErrors(t *testing.T) {
	o := NewOwner(nil, "o")
	child := NewOwner(o, "child")
	child.Defer(func() error { return stderrors.New("close cursor") })
	o.Defer(func() error { return stderrors.New("release savepoint") })

	err := o.Release()
	if err == nil {
		t.Fatal("expected combined error")
	}
	for _, s := range []string{"close cursor", "release savepoint"} {
		if !strings.Contains(err.Error(), s) {
			t.Errorf("error %q missing %q", err, s)
		}
	}
}

func TestOwner_ChildReleaseDetaches(t *testing.T) {
	top := NewOwner(nil, "top")
	child := NewOwner(top, "child")
	n := 0
	child.OnRelease(func() { n++ })

	_ = child.Release()
	_ = top.Release()
	if n != 1 {
		t.Fatalf("child action ran %d times", n)
	}
}

func TestOwner_AsLifespan(t *testing.T) {
	c := NewCache[int]()
	o := NewOwner(nil, "portal")
	ds := NewDualState(3, "cursor")
	if err := c.Bind(3, o, ds); err != nil {
		t.Fatal(err)
	}
	_ = o.Release()
	if ds.Valid() {
		t.Fatal("owner release should invalidate bound wrappers")
	}
}

func TestOwner_DeferAfterReleaseLogsError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	o := NewOwner(nil, "portal")
	if err := o.Release(); err != nil {
		t.Fatal(err)
	}

	ran := false
	o.Defer(func() error {
		ran = true
		return stderrors.New("close failed")
	})
	if !ran {
		t.Fatal("action must run immediately on a released owner")
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].ContextMap()["owner"] != "portal" {
		t.Errorf("owner field missing: %v", entries[0].ContextMap())
	}
	if !strings.Contains(entries[0].ContextMap()["error"].(string), "close failed") {
		t.Errorf("error field missing: %v", entries[0].ContextMap())
	}

	o.Defer(func() error { return nil })
	if logs.Len() != 1 {
		t.Fatal("successful action must not log")
	}
}
