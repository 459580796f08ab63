package jvm

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/plbridge/errors"
)

type countingVM struct {
	finds   int
	lookups int
}

type countingClass struct {
	vm   *countingVM
	name string
}

func (v *countingVM) FindClass(name string) (Class, error) {
	v.finds++
	if name != "com.example.Foo" {
		return nil, stderrors.New("ClassNotFoundException")
	}
	return &countingClass{vm: v, name: name}, nil
}

func (v *countingVM) Close(context.Context) error { return nil }

func (c *countingClass) Name() string { return c.name }

func (c *countingClass) StaticMethod(name, desc string) (Method, error) {
	c.vm.lookups++
	if name != "bar" || desc != "(I)I" {
		return nil, stderrors.New("NoSuchMethodError")
	}
	return &funcMethod{name: name, desc: desc}, nil
}

func TestRegistry_Caches(t *testing.T) {
	vm := &countingVM{}
	r := NewRegistry(vm)

	c1, err := r.Class("com.example.Foo")
	if err != nil {
		t.Fatal(err)
	}
	c2, _ := r.Class("com.example.Foo")
	if c1 != c2 || vm.finds != 1 {
		t.Errorf("class not cached: finds=%d", vm.finds)
	}

	m1, err := r.StaticMethod(c1, "bar", "(I)I")
	if err != nil {
		t.Fatal(err)
	}
	m2, _ := r.StaticMethod(c1, "bar", "(I)I")
	if m1 != m2 || vm.lookups != 1 {
		t.Errorf("method not cached: lookups=%d", vm.lookups)
	}

	r.Clear()
	if _, err := r.Class("com.example.Foo"); err != nil || vm.finds != 2 {
		t.Errorf("Clear should force a new lookup: finds=%d err=%v", vm.finds, err)
	}
}

func TestRegistry_MemberNotFound(t *testing.T) {
	r := NewRegistry(&countingVM{})

	if _, err := r.Class("com.example.Missing"); !errors.HasKind(err, errors.KindMemberNotFound) {
		t.Errorf("missing class err = %v", err)
	}

	cls, _ := r.Class("com.example.Foo")
	_, err := r.StaticMethod(cls, "bar", "(J)J")
	if !errors.HasKind(err, errors.KindMemberNotFound) {
		t.Fatalf("missing method err = %v", err)
	}
	if got := err.Error(); !containsAll(got, "com.example.Foo.bar", "(J)J") {
		t.Errorf("message %q should name member and signature", got)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
