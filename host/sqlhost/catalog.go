package sqlhost

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
)

const procColumns = `oid, name, namespace, body, arg_names, arg_types, return_type, volatility, returns_set, strict`

// DefineProc creates or replaces a catalog function.
func (h *Host) DefineProc(ctx context.Context, p *host.ProcInfo) error {
	if p.Oid == host.InvalidOid || p.Name == "" || p.Body == "" {
		return errors.InvalidInput(errors.PhaseCatalog, "a function needs an oid, a name and a body")
	}
	ns := p.Namespace
	if ns == "" {
		ns = "public"
	}
	vol := p.Volatility
	if vol == 0 {
		vol = host.VolatilityVolatile
	}
	_, err := h.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO pl_proc (`+procColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(p.Oid), p.Name, ns, p.Body,
		strings.Join(p.ArgNames, ","), joinOids(p.ArgTypes),
		int64(p.ReturnType), string(rune(vol)), p.ReturnsSet, p.Strict)
	if err != nil {
		return translate(err, "define function")
	}
	return nil
}

// LookupProc implements host.Catalog.
func (h *Host) LookupProc(ctx context.Context, fn host.Oid) (*host.ProcInfo, error) {
	row := h.conn.QueryRowContext(ctx, `SELECT `+procColumns+` FROM pl_proc WHERE oid = ?`, int64(fn))
	p, err := scanProc(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(errors.PhaseCatalog, "function", strconv.FormatUint(uint64(fn), 10))
	}
	return p, err
}

// LookupProcByName returns the function called name. When several share
// the name the lowest oid wins.
func (h *Host) LookupProcByName(ctx context.Context, name string) (*host.ProcInfo, error) {
	row := h.conn.QueryRowContext(ctx,
		`SELECT `+procColumns+` FROM pl_proc WHERE name = ? ORDER BY oid LIMIT 1`, name)
	p, err := scanProc(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(errors.PhaseCatalog, "function", name)
	}
	return p, err
}

// Procs lists the catalog functions in oid order.
func (h *Host) Procs(ctx context.Context) ([]*host.ProcInfo, error) {
	rows, err := h.conn.QueryContext(ctx, `SELECT `+procColumns+` FROM pl_proc ORDER BY oid`)
	if err != nil {
		return nil, translate(err, "list functions")
	}
	defer rows.Close()

	var out []*host.ProcInfo
	for rows.Next() {
		p, err := scanProc(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list functions")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProc(s scanner) (*host.ProcInfo, error) {
	var (
		fnOid, ret         int64
		argNames, argTypes string
		vol                string
		p                  host.ProcInfo
	)
	err := s.Scan(&fnOid, &p.Name, &p.Namespace, &p.Body, &argNames, &argTypes, &ret, &vol, &p.ReturnsSet, &p.Strict)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, translate(err, "read function")
	}
	p.Oid = host.Oid(fnOid)
	p.ReturnType = host.Oid(ret)
	if vol != "" {
		p.Volatility = host.Volatility(vol[0])
	}
	if argNames != "" {
		p.ArgNames = strings.Split(argNames, ",")
	}
	if p.ArgTypes, err = splitOids(argTypes); err != nil {
		return nil, errors.New(errors.PhaseCatalog, errors.KindInvalidData).
			Path(p.Name).Value(argTypes).Cause(err).
			Detail("malformed argument type list").Build()
	}
	return &p, nil
}

// DefineComposite creates or replaces a named composite type.
func (h *Host) DefineComposite(ctx context.Context, typ host.Oid, attrs []host.Attribute) error {
	if typ == host.InvalidOid || len(attrs) == 0 {
		return errors.InvalidInput(errors.PhaseCatalog, "a composite type needs an oid and columns")
	}
	if _, err := h.conn.ExecContext(ctx, `DELETE FROM pl_attribute WHERE type_oid = ?`, int64(typ)); err != nil {
		return translate(err, "define type")
	}
	for i, a := range attrs {
		_, err := h.conn.ExecContext(ctx,
			`INSERT INTO pl_attribute (type_oid, attnum, name, att_type, dropped) VALUES (?, ?, ?, ?, ?)`,
			int64(typ), i+1, a.Name, int64(a.TypeOid), a.Dropped)
		if err != nil {
			return translate(err, "define type")
		}
	}
	return nil
}

// LookupComposite implements host.Catalog. Types without columns are not
// composites and yield nil.
func (h *Host) LookupComposite(ctx context.Context, typ host.Oid) (*host.TupleDesc, error) {
	rows, err := h.conn.QueryContext(ctx,
		`SELECT name, att_type, dropped FROM pl_attribute WHERE type_oid = ? ORDER BY attnum`, int64(typ))
	if err != nil {
		return nil, translate(err, "read type")
	}
	defer rows.Close()

	var desc *host.TupleDesc
	for rows.Next() {
		var (
			a  host.Attribute
			at int64
		)
		if err := rows.Scan(&a.Name, &at, &a.Dropped); err != nil {
			return nil, translate(err, "read type")
		}
		a.TypeOid = host.Oid(at)
		if desc == nil {
			desc = &host.TupleDesc{TypeOid: typ}
		}
		desc.Attrs = append(desc.Attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "read type")
	}
	return desc, nil
}

func joinOids(oids []host.Oid) string {
	parts := make([]string, len(oids))
	for i, o := range oids {
		parts[i] = strconv.FormatUint(uint64(o), 10)
	}
	return strings.Join(parts, ",")
}

func splitOids(s string) ([]host.Oid, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]host.Oid, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, err
		}
		out[i] = host.Oid(n)
	}
	return out, nil
}
