package resource

import (
	"runtime"
	"testing"

	"github.com/wippyai/plbridge/errors"
)

type span struct {
	name string
	fns  []func()
}

func (s *span) OnRelease(fn func())  { s.fns = append(s.fns, fn) }
func (s *span) LifespanName() string { return s.name }

func (s *span) end() {
	fns := s.fns
	s.fns = nil
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

func TestCache_BindLookup(t *testing.T) {
	c := NewCache[uint64]()
	sp := &span{name: "call"}
	ds := NewDualState[uint64](42, "row")

	if err := c.Bind(42, sp, ds); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	got, ok := c.Lookup(42)
	if !ok || got != ds {
		t.Fatal("Lookup did not return the bound wrapper")
	}
	if _, ok := c.Lookup(7); ok {
		t.Fatal("Lookup of unbound key should fail")
	}
	runtime.KeepAlive(ds)
}

func TestCache_SingleLiveBinding(t *testing.T) {
	c := NewCache[uint64]()
	sp := &span{name: "call"}
	first := NewDualState[uint64](1, "row")
	second := NewDualState[uint64](1, "row")

	if err := c.Bind(1, sp, first); err != nil {
		t.Fatal(err)
	}
	if err := c.Bind(1, sp, second); !errors.HasKind(err, errors.KindInvalidInput) {
		t.Fatalf("second live bind: %v", err)
	}

	first.Invalidate()
	if err := c.Bind(1, sp, second); err != nil {
		t.Fatalf("bind after invalidation: %v", err)
	}
	runtime.KeepAlive(first)
	runtime.KeepAlive(second)
}

func TestCache_InvalidateAllMarksStale(t *testing.T) {
	c := NewCache[uint64]()
	call := &span{name: "call"}
	session := &span{name: "session"}

	w := NewDualState[uint64](100, "tuple")
	outer := NewDualState[uint64](200, "tuple")
	_ = c.Bind(100, call, w)
	_ = c.Bind(200, session, outer)

	call.end()

	if _, ok := c.Lookup(100); ok {
		t.Fatal("lookup after scope end must not return the wrapper")
	}
	if _, err := w.Key(); !errors.HasKind(err, errors.KindStaleHandle) {
		t.Fatalf("wrapper access after scope end: %v", err)
	}
	if got, ok := c.Lookup(200); !ok || got != outer {
		t.Fatal("binding in an outer scope must survive")
	}
	if _, err := outer.Key(); err != nil {
		t.Fatalf("outer wrapper: %v", err)
	}
}

func TestCache_RehooksSpanAfterEnd(t *testing.T) {
	c := NewCache[uint64]()
	sp := &span{name: "per-row"}

	a := NewDualState[uint64](1, "row")
	_ = c.Bind(1, sp, a)
	sp.end()

	b := NewDualState[uint64](2, "row")
	_ = c.Bind(2, sp, b)
	sp.end()

	if b.Valid() {
		t.Fatal("second binding in a reused span must be invalidated")
	}
}

func TestCache_CollectedWrapperReadsAsMissing(t *testing.T) {
	c := NewCache[uint64]()
	sp := &span{name: "call"}

	func() {
		_ = c.Bind(9, sp, NewDualState[uint64](9, "row"))
	}()
	runtime.GC()
	runtime.GC()

	if _, ok := c.Lookup(9); ok {
		t.Fatal("collected wrapper should read as not found")
	}
	if c.Len() != 0 {
		t.Fatalf("stale binding not cleaned, Len = %d", c.Len())
	}
}

func TestCache_UnbindKeepsWrapperValid(t *testing.T) {
	c := NewCache[uint64]()
	sp := &span{name: "call"}
	ds := NewDualState[uint64](5, "row")
	_ = c.Bind(5, sp, ds)

	c.Unbind(5)
	if !ds.Valid() {
		t.Fatal("Unbind must not invalidate")
	}
	sp.end()
	if !ds.Valid() {
		t.Fatal("unbound wrapper must not be invalidated by its former span")
	}
}

func TestCache_Observer(t *testing.T) {
	c := NewCache[uint64]()
	sp := &span{name: "call"}
	var events []EventType
	c.Subscribe(ObserverFunc(func(e Event) { events = append(events, e.Type) }))

	ds := NewDualState[uint64](1, "row")
	_ = c.Bind(1, sp, ds)
	c.Invalidate(1)

	if len(events) != 2 || events[0] != EventBound || events[1] != EventInvalidated {
		t.Fatalf("events = %v", events)
	}
	if ds.Valid() {
		t.Fatal("Invalidate should mark the wrapper stale")
	}
}

func TestCache_RequiresSpan(t *testing.T) {
	c := NewCache[uint64]()
	if err := c.Bind(1, nil, NewDualState[uint64](1, "row")); err == nil {
		t.Fatal("Bind without lifespan should fail")
	}
}
