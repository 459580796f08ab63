package sqlhost

import (
	"context"
	"database/sql"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
)

// Connect implements host.ResourceManager. Connections nest.
func (h *Host) Connect(context.Context) error {
	h.connected++
	return nil
}

// Finish implements host.ResourceManager.
func (h *Host) Finish(context.Context) error {
	if h.connected == 0 {
		return errors.Internal(errors.PhaseNative, "finish without a matching connect")
	}
	h.connected--
	return nil
}

// Connected reports the number of open connections.
func (h *Host) Connected() int { return h.connected }

// Exec implements host.ResourceManager. Read-only statements run with
// query_only set, so SQLite itself rejects writes.
func (h *Host) Exec(ctx context.Context, query string, readOnly bool, args ...host.Datum) (res *host.Result, err error) {
	if h.connected == 0 {
		return nil, errors.New(errors.PhaseNative, errors.KindInternal).
			Detail("statement outside of a connection").
			Build()
	}
	params, err := h.driverArgs(args)
	if err != nil {
		return nil, err
	}

	if readOnly {
		if _, err := h.conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			return nil, translate(err, "PRAGMA")
		}
		defer func() {
			if _, rerr := h.conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA query_only = OFF"); rerr != nil {
				err = multierr.Append(err, translate(rerr, "PRAGMA"))
			}
		}()
	}

	stmt, cached, err := h.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	if !cached {
		defer stmt.Close()
	}
	what := verb(query)
	if !ReturnsRows(query) {
		r, err := stmt.ExecContext(ctx, params...)
		if err != nil {
			return nil, translate(err, what)
		}
		n, _ := r.RowsAffected()
		return &host.Result{RowsAffected: n}, nil
	}
	rows, err := stmt.QueryContext(ctx, params...)
	if err != nil {
		return nil, translate(err, what)
	}
	return h.collect(rows, what)
}

// prepare returns a statement for query. Statements not kept by the cache
// must be closed by the caller.
func (h *Host) prepare(ctx context.Context, query string) (*sql.Stmt, bool, error) {
	if h.stmts != nil {
		if stmt, ok := h.stmts.Get(query); ok {
			return stmt, true, nil
		}
	}
	stmt, err := h.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, false, translate(err, verb(query))
	}
	if h.stmts == nil {
		return stmt, false, nil
	}
	h.stmts.Add(query, stmt)
	return stmt, true, nil
}

// newStmtCache keeps the size most recently used prepared statements and
// closes the ones it evicts. It is nil when size is not positive.
func newStmtCache(size int) (*lru.Cache[string, *sql.Stmt], error) {
	if size <= 0 {
		return nil, nil
	}
	return lru.NewWithEvict(size, func(query string, stmt *sql.Stmt) {
		if err := stmt.Close(); err != nil {
			Logger().Debug("closing evicted statement failed", zap.String("query", query), zap.Error(err))
		}
	})
}
