// Package pgtypeio implements the host text I/O routines with the pgx type map.
package pgtypeio

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
)

// datumTypes fixes the Go type Input produces for the types the bridge maps
// natively. Other known types decode to pgx's default value.
var datumTypes = map[uint32]reflect.Type{
	pgtype.BoolOID:        reflect.TypeOf(false),
	pgtype.QCharOID:       reflect.TypeOf(byte(0)),
	pgtype.Int2OID:        reflect.TypeOf(int16(0)),
	pgtype.Int4OID:        reflect.TypeOf(int32(0)),
	pgtype.Int8OID:        reflect.TypeOf(int64(0)),
	pgtype.Float4OID:      reflect.TypeOf(float32(0)),
	pgtype.Float8OID:      reflect.TypeOf(float64(0)),
	pgtype.TextOID:        reflect.TypeOf(""),
	pgtype.VarcharOID:     reflect.TypeOf(""),
	pgtype.BPCharOID:      reflect.TypeOf(""),
	pgtype.NameOID:        reflect.TypeOf(""),
	pgtype.ByteaOID:       reflect.TypeOf([]byte(nil)),
	pgtype.NumericOID:     reflect.TypeOf(pgtype.Numeric{}),
	pgtype.TimestampOID:   reflect.TypeOf(pgtype.Timestamp{}),
	pgtype.TimestamptzOID: reflect.TypeOf(pgtype.Timestamptz{}),
	pgtype.DateOID:        reflect.TypeOf(pgtype.Date{}),
	pgtype.UUIDOID:        reflect.TypeOf(pgtype.UUID{}),
}

// Codec converts datums to and from their canonical text form.
type Codec struct {
	m *pgtype.Map
}

// New creates a codec over a fresh pgtype map.
func New() *Codec {
	return &Codec{m: pgtype.NewMap()}
}

// Map exposes the underlying type map.
func (c *Codec) Map() *pgtype.Map { return c.m }

// Known reports whether typ has a registered codec.
func (c *Codec) Known(typ host.Oid) bool {
	_, ok := c.m.TypeForOID(uint32(typ))
	return ok
}

// Output implements host.TypeIO.
func (c *Codec) Output(typ host.Oid, d host.Datum) (string, error) {
	switch v := d.(type) {
	case nil:
		return "", nil
	case *host.Tuple:
		return c.outputTuple(v)
	case *host.Array:
		return c.outputArray(v)
	}

	if !c.Known(typ) {
		if s, ok := d.(string); ok {
			return s, nil
		}
		return fmt.Sprint(d), nil
	}

	buf, err := c.m.Encode(uint32(typ), pgtype.TextFormatCode, d, nil)
	if err != nil {
		return "", errors.New(errors.PhaseCoerce, errors.KindTypeMismatch).
			SQLType(typeName(c.m, typ)).
			Value(d).
			Cause(err).
			Detail("text output failed").
			Build()
	}
	return string(buf), nil
}

// Input implements host.TypeIO. Unknown types stay text.
func (c *Codec) Input(typ host.Oid, text string) (host.Datum, error) {
	t, ok := c.m.TypeForOID(uint32(typ))
	if !ok {
		return text, nil
	}

	if rt, ok := datumTypes[uint32(typ)]; ok {
		dst := reflect.New(rt)
		if err := c.m.Scan(uint32(typ), pgtype.TextFormatCode, []byte(text), dst.Interface()); err != nil {
			return nil, inputError(typ, t.Name, text, err)
		}
		return dst.Elem().Interface(), nil
	}

	v, err := t.Codec.DecodeValue(c.m, uint32(typ), pgtype.TextFormatCode, []byte(text))
	if err != nil {
		return nil, inputError(typ, t.Name, text, err)
	}
	return v, nil
}

func inputError(typ host.Oid, name, text string, err error) error {
	return errors.New(errors.PhaseCoerce, errors.KindInvalidData).
		SQLType(name).
		Value(text).
		Cause(err).
		Detail("invalid input syntax for type %s (%d): %q", name, typ, text).
		Build()
}

func typeName(m *pgtype.Map, typ host.Oid) string {
	if t, ok := m.TypeForOID(uint32(typ)); ok {
		return t.Name
	}
	return fmt.Sprintf("oid %d", typ)
}

func (c *Codec) outputTuple(t *host.Tuple) (string, error) {
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range t.Values {
		if i > 0 {
			b.WriteByte(',')
		}
		if t.Nulls[i] {
			continue
		}
		s, err := c.Output(t.Desc.Attrs[i].TypeOid, v)
		if err != nil {
			return "", err
		}
		b.WriteString(quote(s, ",()\""))
	}
	b.WriteByte(')')
	return b.String(), nil
}

func (c *Codec) outputArray(a *host.Array) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range a.Elems {
		if i > 0 {
			b.WriteByte(',')
		}
		if a.Nulls != nil && a.Nulls[i] {
			b.WriteString("NULL")
			continue
		}
		s, err := c.Output(a.ElemType, v)
		if err != nil {
			return "", err
		}
		if strings.EqualFold(s, "null") {
			s = `"` + s + `"`
		}
		b.WriteString(quote(s, ",{}\""))
	}
	b.WriteByte('}')
	return b.String(), nil
}

func quote(s, special string) string {
	if s != "" && !strings.ContainsAny(s, special+" \\") {
		return s
	}
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) > 1 {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
