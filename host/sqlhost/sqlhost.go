package sqlhost

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/host/pgtypeio"
)

// Options configures a Host.
type Options struct {
	// StatementCacheSize bounds the prepared statements kept for the
	// backend session. Zero disables the cache.
	StatementCacheSize int

	// TypeIO converts values SQLite cannot store natively. Defaults to the
	// pgtype text codec.
	TypeIO host.TypeIO
}

// Host implements host.Catalog, host.ResourceManager and host.Transactions
// on a SQLite database.
type Host struct {
	db    *sql.DB
	conn  *sql.Conn
	io    host.TypeIO
	stmts *lru.Cache[string, *sql.Stmt] // nil when statements are not cached

	// connected counts nested Connect calls.
	connected int

	inXact  bool
	subs    []subxact
	nextSub host.SubXactID

	mu      sync.Mutex
	xactCbs []host.XactCallback
	subCbs  []host.SubXactCallback
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pl_proc (
		oid         INTEGER PRIMARY KEY,
		name        TEXT    NOT NULL,
		namespace   TEXT    NOT NULL DEFAULT 'public',
		body        TEXT    NOT NULL,
		arg_names   TEXT    NOT NULL DEFAULT '',
		arg_types   TEXT    NOT NULL DEFAULT '',
		return_type INTEGER NOT NULL,
		volatility  TEXT    NOT NULL DEFAULT 'v',
		returns_set INTEGER NOT NULL DEFAULT 0,
		strict      INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS pl_proc_name ON pl_proc (name)`,
	`CREATE TABLE IF NOT EXISTS pl_attribute (
		type_oid INTEGER NOT NULL,
		attnum   INTEGER NOT NULL,
		name     TEXT    NOT NULL,
		att_type INTEGER NOT NULL,
		dropped  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (type_oid, attnum)
	)`,
}

// Open opens the database at dsn and creates the catalog tables. ":memory:"
// opens a private shared-cache in-memory database.
func Open(ctx context.Context, dsn string, opts Options) (*Host, error) {
	if err := registerFunctions(); err != nil {
		return nil, err
	}

	memory := dsn == "" || dsn == ":memory:"
	if memory {
		dsn = "file:plbridge-" + uuid.NewString() + "?mode=memory&cache=shared"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "failed to open database")
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInternal, err, "failed to connect")
	}

	pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	if !memory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, stmt := range append(pragmas, schema...) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInternal, err, "failed to prepare database")
		}
	}

	stmts, err := newStmtCache(opts.StatementCacheSize)
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "invalid statement cache")
	}

	io := opts.TypeIO
	if io == nil {
		io = pgtypeio.New()
	}
	h := &Host{
		db:    db,
		conn:  conn,
		io:    io,
		stmts: stmts,
	}
	Logger().Debug("host opened", zap.Bool("memory", memory))
	return h, nil
}

// Close closes the backend session and the database. An open transaction is
// rolled back.
func (h *Host) Close() error {
	var err error
	if h.inXact {
		err = multierr.Append(err, h.Rollback(context.Background()))
	}
	h.Serve(nil)
	if h.stmts != nil {
		h.stmts.Purge()
	}
	err = multierr.Append(err, h.conn.Close())
	err = multierr.Append(err, h.db.Close())
	return err
}

// DB returns the underlying database for statements outside the backend
// session.
func (h *Host) DB() *sql.DB { return h.db }

// Query runs a top-level statement on a pooled connection. Bridged
// functions are reachable from it through plcall.
func (h *Host) Query(ctx context.Context, query string, args ...host.Datum) (*host.Result, error) {
	params, err := h.driverArgs(args)
	if err != nil {
		return nil, err
	}
	_ = takeError(h)
	res, err := h.query(ctx, query, params)
	if err != nil {
		if callErr := takeError(h); callErr != nil {
			return nil, callErr
		}
		return nil, err
	}
	return res, nil
}

func (h *Host) query(ctx context.Context, query string, params []any) (*host.Result, error) {
	if !ReturnsRows(query) {
		res, err := h.db.ExecContext(ctx, query, params...)
		if err != nil {
			return nil, translate(err, verb(query))
		}
		n, _ := res.RowsAffected()
		return &host.Result{RowsAffected: n}, nil
	}
	rows, err := h.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, translate(err, verb(query))
	}
	return h.collect(rows, verb(query))
}

var rowStatements = map[string]bool{
	"SELECT":  true,
	"VALUES":  true,
	"WITH":    true,
	"PRAGMA":  true,
	"EXPLAIN": true,
}

// ReturnsRows reports whether query produces a result set.
func ReturnsRows(query string) bool {
	f := strings.Fields(query)
	if len(f) == 0 {
		return false
	}
	if rowStatements[strings.ToUpper(strings.TrimRight(f[0], ";("))] {
		return true
	}
	return strings.Contains(strings.ToUpper(query), "RETURNING")
}

// verb names a statement by its leading keyword.
func verb(query string) string {
	f := strings.Fields(query)
	if len(f) == 0 {
		return "statement"
	}
	return strings.ToUpper(strings.TrimRight(f[0], ";("))
}
