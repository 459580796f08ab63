package pgxhost

import (
	"context"
	"os"
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
)

func connect(t *testing.T) *Catalog {
	t.Helper()
	dsn := os.Getenv("PLBRIDGE_PG_DSN")
	if dsn == "" {
		t.Skip("PLBRIDGE_PG_DSN not set")
	}
	c, err := Connect(context.Background(), dsn, "internal")
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestConnectBadDSN(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz", "")
	require.Error(t, err)
	assert.True(t, errors.HasKind(err, errors.KindInvalidInput))
}

func TestLookupBuiltinProc(t *testing.T) {
	c := connect(t)

	// int4pl is the function behind int4 + int4.
	p, err := c.LookupProc(context.Background(), 177)
	require.NoError(t, err)
	assert.Equal(t, "int4pl", p.Name)
	assert.Equal(t, "pg_catalog", p.Namespace)
	assert.Equal(t, []host.Oid{oid.T_int4, oid.T_int4}, p.ArgTypes)
	assert.Equal(t, oid.T_int4, p.ReturnType)
	assert.Equal(t, host.VolatilityImmutable, p.Volatility)
	assert.True(t, p.Strict)
	assert.False(t, p.ReturnsSet)

	_, err = c.LookupProc(context.Background(), 0)
	assert.True(t, errors.HasKind(err, errors.KindNotFound))
}

func TestLookupComposite(t *testing.T) {
	c := connect(t)
	ctx := context.Background()

	var typ uint32
	require.NoError(t, c.pool.QueryRow(ctx, `SELECT 'pg_catalog.pg_namespace'::regtype::oid`).Scan(&typ))

	desc, err := c.LookupComposite(ctx, host.Oid(typ))
	require.NoError(t, err)
	require.NotNil(t, desc)
	assert.Equal(t, 0, desc.Index("oid"))
	assert.GreaterOrEqual(t, desc.Index("nspname"), 0)

	desc, err = c.LookupComposite(ctx, oid.T_int4)
	require.NoError(t, err)
	assert.Nil(t, desc)
}

func TestProcsByLanguage(t *testing.T) {
	c := connect(t)
	procs, err := c.Procs(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, procs)
}
