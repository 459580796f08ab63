package types

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/host/pgtypeio"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/jvm/gojvm"
	"github.com/wippyai/plbridge/memctx"
	"github.com/wippyai/plbridge/resource"
)

type fakeCatalog struct {
	composites map[host.Oid]*host.TupleDesc
	err        error
	lookups    int
}

func (c *fakeCatalog) LookupProc(context.Context, host.Oid) (*host.ProcInfo, error) {
	return nil, stderrors.New("not a proc catalog")
}

func (c *fakeCatalog) LookupComposite(_ context.Context, typ host.Oid) (*host.TupleDesc, error) {
	c.lookups++
	if c.err != nil {
		return nil, c.err
	}
	return c.composites[typ], nil
}

var personDesc = &host.TupleDesc{
	TypeOid: 90001,
	Attrs: []host.Attribute{
		{Name: "id", TypeOid: oid.T_int4},
		{Name: "name", TypeOid: oid.T_text},
	},
}

type fixture struct {
	cx      *Context
	vm      *gojvm.VM
	catalog *fakeCatalog
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	catalog := &fakeCatalog{composites: map[host.Oid]*host.TupleDesc{90001: personDesc}}
	vm := gojvm.New()
	mem := memctx.NewTop("test")
	t.Cleanup(mem.Delete)
	return &fixture{
		vm:      vm,
		catalog: catalog,
		cx: &Context{
			Ctx:     context.Background(),
			Env:     jvm.NewEnv(nil, nil),
			Mem:     mem,
			Rows:    resource.NewCache[memctx.Pointer](),
			Types:   NewRegistry(catalog, pgtypeio.New(), opts),
			Classes: jvm.NewRegistry(vm),
		},
	}
}

func personTuple(id int32, name string) *host.Tuple {
	t := host.NewTuple(personDesc)
	t.Set(0, id, false)
	t.Set(1, name, false)
	return t
}

func resolve(t *testing.T, f *fixture, typ host.Oid) Type {
	t.Helper()
	ty, err := f.cx.Types.Resolve(f.cx.Ctx, typ)
	require.NoError(t, err)
	return ty
}
