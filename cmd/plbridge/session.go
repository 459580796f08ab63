package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/plbridge/config"
	"github.com/wippyai/plbridge/function"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/host/pgtypeio"
	"github.com/wippyai/plbridge/host/pgxhost"
	"github.com/wippyai/plbridge/host/sqlhost"
	"github.com/wippyai/plbridge/invocation"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/jvm/gojvm"
	"github.com/wippyai/plbridge/jvm/wasmjvm"
	"github.com/wippyai/plbridge/runtime"
	"github.com/wippyai/plbridge/txevent"
	"github.com/wippyai/plbridge/types"
)

// procLister is a catalog that can enumerate its functions.
type procLister interface {
	host.Catalog
	Procs(ctx context.Context) ([]*host.ProcInfo, error)
}

// session is one backend: a host, a managed runtime and the bridge
// between them.
type session struct {
	cfg     *config.Config
	log     *zap.Logger
	host    *sqlhost.Host
	catalog procLister
	pg      *pgxhost.Catalog
	codec   *pgtypeio.Codec
	rt      *runtime.Runtime
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.FindAndLoad(wd)
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Debug || verbose {
		zc = zap.NewDevelopmentConfig()
	}
	level := cfg.Level()
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func setLoggers(l *zap.Logger) {
	runtime.SetLogger(l.Named("runtime"))
	function.SetLogger(l.Named("function"))
	invocation.SetLogger(l.Named("invocation"))
	txevent.SetLogger(l.Named("txevent"))
	types.SetLogger(l.Named("types"))
	jvm.SetLogger(l.Named("jvm"))
	sqlhost.SetLogger(l.Named("sqlhost"))
}

// openSession builds the bridge the configuration describes. Statements
// run by managed code always go to a SQLite session; with the postgres
// driver only the catalog is read from PostgreSQL.
func openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := newLogger(cfg, verbose)
	if err != nil {
		return nil, err
	}
	setLoggers(log)

	s := &session{cfg: cfg, log: log, codec: pgtypeio.New()}

	dsn := cfg.Catalog.DSN
	if cfg.Catalog.Driver != config.DriverSQLite {
		dsn = config.DefaultCatalogDSN
	}
	s.host, err = sqlhost.Open(ctx, dsn, sqlhost.Options{
		StatementCacheSize: cfg.StatementCacheSize,
		TypeIO:             s.codec,
	})
	if err != nil {
		return nil, err
	}
	s.catalog = s.host

	if cfg.Catalog.Driver == config.DriverPostgres {
		s.pg, err = pgxhost.Connect(ctx, cfg.Catalog.DSN, "")
		if err != nil {
			_ = s.close(ctx)
			return nil, err
		}
		s.catalog = s.pg
	}

	vm, err := loadVM(ctx, cfg)
	if err != nil {
		_ = s.close(ctx)
		return nil, err
	}

	s.rt, err = runtime.New(runtime.Config{
		Catalog:      s.catalog,
		Resources:    s.host,
		Transactions: s.host,
		VM:           vm,
		TypeIO:       s.codec,
		Types:        types.Options{PrimitiveNulls: cfg.ZeroPrimitiveNulls()},

		ReleaseLingeringSavepoints: cfg.ReleaseLingeringSavepoints,
	})
	if err != nil {
		_ = vm.Close(ctx)
		_ = s.close(ctx)
		return nil, err
	}
	s.host.Serve(s.rt.CallFunction)
	return s, nil
}

// loadVM loads the classpath into a wasm runtime. Without a classpath the
// session runs an empty in-process runtime.
func loadVM(ctx context.Context, cfg *config.Config) (jvm.VM, error) {
	if len(cfg.Classpath) == 0 {
		return gojvm.New(), nil
	}
	vm, err := wasmjvm.New(ctx, &wasmjvm.Config{MemoryLimitPages: cfg.MemoryLimitPages})
	if err != nil {
		return nil, err
	}
	for _, class := range cfg.Classes() {
		file, _ := cfg.ClassFile(class)
		data, err := os.ReadFile(file)
		if err != nil {
			_ = vm.Close(ctx)
			return nil, fmt.Errorf("class %s: %w", class, err)
		}
		if _, err := vm.LoadClass(ctx, class, data); err != nil {
			_ = vm.Close(ctx)
			return nil, fmt.Errorf("class %s: %w", class, err)
		}
	}
	return vm, nil
}

func (s *session) close(ctx context.Context) error {
	var err error
	if s.rt != nil {
		err = multierr.Append(err, s.rt.Close(ctx))
	}
	if s.pg != nil {
		s.pg.Close()
	}
	if s.host != nil {
		err = multierr.Append(err, s.host.Close())
	}
	_ = s.log.Sync()
	return err
}

// lookup finds a function by oid or name.
func (s *session) lookup(ctx context.Context, ref string) (*host.ProcInfo, error) {
	if n, err := parseOid(ref); err == nil {
		return s.catalog.LookupProc(ctx, n)
	}
	procs, err := s.catalog.Procs(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range procs {
		if p.Name == ref || p.Namespace+"."+p.Name == ref {
			return p, nil
		}
	}
	return nil, fmt.Errorf("function %q not found", ref)
}
