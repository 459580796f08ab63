package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/jvm"
)

type point struct{ X, Y int32 }

func (point) JavaClass() string { return "com.example.Point" }

func (p point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func parsePoint(s string) (point, error) {
	var p point
	if _, err := fmt.Sscanf(s, "(%d,%d)", &p.X, &p.Y); err != nil {
		return point{}, jvm.IllegalArgument("bad point " + s)
	}
	return p, nil
}

func TestUDTRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	f.vm.DefineClass("com.example.Point").MustDefineFunc("parse", parsePoint)

	ty, err := f.cx.Types.RegisterUDT(90100, "com.example.Point")
	require.NoError(t, err)

	v, err := ty.CoerceDatum(f.cx, "(1,2)")
	require.NoError(t, err)
	assert.Equal(t, point{1, 2}, v)

	d, isNull, err := ty.CoerceObject(f.cx, point{3, 4})
	require.NoError(t, err)
	assert.False(t, isNull)
	assert.Equal(t, "(3,4)", d)

	_, err = ty.CoerceDatum(f.cx, "garbage")
	require.Error(t, err)
	assert.True(t, errors.HasKind(err, errors.KindManagedException))
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, jvm.ExceptionIllegalArgument, e.JavaType)
	assert.Nil(t, f.cx.Env.ExceptionOccurred(), "pending exception is cleared")
}

func TestUDTMissingParser(t *testing.T) {
	f := newFixture(t, Options{})
	ty, err := f.cx.Types.RegisterUDT(90101, "com.example.Nowhere")
	require.NoError(t, err)

	_, err = ty.CoerceDatum(f.cx, "x")
	assert.True(t, errors.HasKind(err, errors.KindMemberNotFound))
}
