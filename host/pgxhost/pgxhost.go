// Package pgxhost reads function and type definitions from a PostgreSQL
// catalog over pgxpool. It serves as the host.Catalog of a bridge whose
// functions are declared in a real database.
package pgxhost

import (
	"context"
	stderrors "errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
)

// Catalog implements host.Catalog on pg_proc and pg_attribute.
type Catalog struct {
	pool     *pgxpool.Pool
	language string
	owned    bool
}

// Connect opens a pool for dsn. Functions are listed for language, "java"
// when empty.
func Connect(ctx context.Context, dsn, language string) (*Catalog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "invalid catalog dsn")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, translate(err, "connect")
	}
	c := New(pool, language)
	c.owned = true
	return c, nil
}

// New wraps an existing pool. The caller keeps ownership of it.
func New(pool *pgxpool.Pool, language string) *Catalog {
	if language == "" {
		language = "java"
	}
	return &Catalog{pool: pool, language: language}
}

// Close closes the pool when the catalog opened it.
func (c *Catalog) Close() {
	if c.owned {
		c.pool.Close()
	}
}

const procQuery = `
SELECT p.oid, p.proname, n.nspname, p.prosrc,
       coalesce(p.proargnames, '{}'::text[]),
       p.proargtypes::oid[],
       p.prorettype, p.provolatile::text, p.proretset, p.proisstrict
  FROM pg_catalog.pg_proc p
  JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace`

// LookupProc implements host.Catalog.
func (c *Catalog) LookupProc(ctx context.Context, fn host.Oid) (*host.ProcInfo, error) {
	row := c.pool.QueryRow(ctx, procQuery+` WHERE p.oid = $1`, uint32(fn))
	p, err := scanProc(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound(errors.PhaseCatalog, "function", strconv.FormatUint(uint64(fn), 10))
	}
	if err != nil {
		return nil, translate(err, "function lookup")
	}
	return p, nil
}

// Procs lists the functions written in the catalog's language.
func (c *Catalog) Procs(ctx context.Context) ([]*host.ProcInfo, error) {
	rows, err := c.pool.Query(ctx, procQuery+`
  JOIN pg_catalog.pg_language l ON l.oid = p.prolang
 WHERE l.lanname = $1
 ORDER BY p.oid`, c.language)
	if err != nil {
		return nil, translate(err, "function list")
	}
	defer rows.Close()

	var out []*host.ProcInfo
	for rows.Next() {
		p, err := scanProc(rows)
		if err != nil {
			return nil, translate(err, "function list")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "function list")
	}
	return out, nil
}

func scanProc(row pgx.Row) (*host.ProcInfo, error) {
	var (
		p        host.ProcInfo
		fnOid    uint32
		ret      uint32
		argTypes []uint32
		vol      string
	)
	err := row.Scan(&fnOid, &p.Name, &p.Namespace, &p.Body, &p.ArgNames, &argTypes,
		&ret, &vol, &p.ReturnsSet, &p.Strict)
	if err != nil {
		return nil, err
	}
	p.Oid = host.Oid(fnOid)
	p.ReturnType = host.Oid(ret)
	if vol != "" {
		p.Volatility = host.Volatility(vol[0])
	}
	if len(p.ArgNames) == 0 {
		p.ArgNames = nil
	}
	if len(argTypes) > 0 {
		p.ArgTypes = make([]host.Oid, len(argTypes))
		for i, t := range argTypes {
			p.ArgTypes[i] = host.Oid(t)
		}
	}
	return &p, nil
}

// LookupComposite implements host.Catalog. Types that are not composites
// yield nil.
func (c *Catalog) LookupComposite(ctx context.Context, typ host.Oid) (*host.TupleDesc, error) {
	rows, err := c.pool.Query(ctx, `
SELECT a.attname, a.atttypid, a.attisdropped
  FROM pg_catalog.pg_type t
  JOIN pg_catalog.pg_attribute a ON a.attrelid = t.typrelid
 WHERE t.oid = $1 AND t.typtype = 'c' AND a.attnum > 0
 ORDER BY a.attnum`, uint32(typ))
	if err != nil {
		return nil, translate(err, "type lookup")
	}
	defer rows.Close()

	var desc *host.TupleDesc
	for rows.Next() {
		var (
			a   host.Attribute
			att uint32
		)
		if err := rows.Scan(&a.Name, &att, &a.Dropped); err != nil {
			return nil, translate(err, "type lookup")
		}
		a.TypeOid = host.Oid(att)
		if desc == nil {
			desc = &host.TupleDesc{TypeOid: typ}
		}
		desc.Attrs = append(desc.Attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "type lookup")
	}
	return desc, nil
}

// translate keeps the server's SQLSTATE on catalog errors.
func translate(err error, what string) error {
	b := errors.New(errors.PhaseCatalog, errors.KindInternal).Cause(err).Detail("%s failed", what)
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		b = b.State(pgErr.Code)
	}
	return b.Build()
}
