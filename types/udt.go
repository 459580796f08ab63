package types

import (
	"fmt"

	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

// UDTType maps a user-defined host type through its text form. The managed
// class supplies a static parse(String) and renders itself with String().
type UDTType struct {
	base
	io host.TypeIO
}

func newUDTType(o host.Oid, class string, io host.TypeIO) *UDTType {
	return &UDTType{base: newBase(o, class), io: io}
}

func (t *UDTType) ObjectType() Type         { return t }
func (t *UDTType) CanReplace(def Type) bool { return canReplace(t, def) }

func (t *UDTType) parser(cx *Context) (jvm.Method, error) {
	cls, err := cx.Classes.Class(t.java)
	if err != nil {
		return nil, err
	}
	desc := jvm.MethodDescriptor([]string{jvm.ClassString}, t.java)
	return cx.Classes.StaticMethod(cls, "parse", desc)
}

func (t *UDTType) CoerceDatum(cx *Context, d host.Datum) (jvm.Value, error) {
	s, ok := d.(string)
	if !ok {
		if t.io == nil {
			return nil, mismatch(t, d)
		}
		var err error
		if s, err = t.io.Output(t.oid, d); err != nil {
			return nil, err
		}
	}
	m, err := t.parser(cx)
	if err != nil {
		return nil, err
	}
	return Call(cx, m, []jvm.Value{s})
}

func (t *UDTType) CoerceObject(_ *Context, v jvm.Value) (host.Datum, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	str, ok := v.(fmt.Stringer)
	if !ok {
		return nil, false, mismatch(t, v)
	}
	s := str.String()
	if t.io == nil {
		return s, false, nil
	}
	d, err := t.io.Input(t.oid, s)
	if err != nil {
		return nil, false, err
	}
	return d, false, nil
}
