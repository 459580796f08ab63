package runtime

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/function"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/host/pgtypeio"
	"github.com/wippyai/plbridge/invocation"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/memctx"
	"github.com/wippyai/plbridge/resource"
	"github.com/wippyai/plbridge/txevent"
	"github.com/wippyai/plbridge/types"
)

// Config wires a runtime to its host and managed runtime.
type Config struct {
	Catalog   host.Catalog
	Resources host.ResourceManager
	VM        jvm.VM

	// TypeIO defaults to the pgtype text codec.
	TypeIO host.TypeIO

	// Transactions enables savepoints and transaction listeners. Optional.
	Transactions host.Transactions

	// Reporter defaults to the package logger.
	Reporter host.Reporter

	Types types.Options

	// ReleaseLingeringSavepoints releases savepoints a function leaves open
	// instead of rolling them back.
	ReleaseLingeringSavepoints bool
}

// Runtime holds the registries and the frame stack of one backend.
type Runtime struct {
	vm         jvm.VM
	env        *jvm.Env
	classes    *jvm.Registry
	types      *types.Registry
	functions  *function.Cache
	stack      *invocation.Stack
	rows       *resource.Cache[memctx.Pointer]
	savepoints *txevent.Savepoints
	events     *txevent.Dispatcher
	reporter   host.Reporter

	releaseLingering bool
}

// New creates a runtime. Catalog and VM are required.
func New(cfg Config) (*Runtime, error) {
	if cfg.Catalog == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "a catalog is required")
	}
	if cfg.VM == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "a managed runtime is required")
	}
	io := cfg.TypeIO
	if io == nil {
		io = pgtypeio.New()
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = host.NewZapReporter(Logger())
	}

	env := jvm.NewEnv(nil, nil)
	classes := jvm.NewRegistry(cfg.VM)
	reg := types.NewRegistry(cfg.Catalog, io, cfg.Types)

	r := &Runtime{
		vm:               cfg.VM,
		env:              env,
		classes:          classes,
		types:            reg,
		functions:        function.NewCache(function.NewResolver(cfg.Catalog, reg, classes)),
		stack:            invocation.NewStack(env, cfg.Resources, memctx.NewManager()),
		rows:             resource.NewCache[memctx.Pointer](),
		reporter:         reporter,
		releaseLingering: cfg.ReleaseLingeringSavepoints,
	}
	env.SetNatives(&natives{r: r})

	if cfg.Transactions != nil {
		r.savepoints = txevent.NewSavepoints(cfg.Transactions)
		r.events = txevent.NewDispatcher(env, r.savepoints)
		r.events.Install(cfg.Transactions)
	}

	Logger().Debug("runtime created",
		zap.Int("types", reg.Len()),
		zap.Bool("transactions", cfg.Transactions != nil))
	return r, nil
}

// Close unwinds any frames left on the stack, drops the caches and closes the
// managed runtime.
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	if f := r.stack.Current(); f != nil {
		for f.Prev() != nil {
			f = f.Prev()
		}
		err = multierr.Append(err, r.stack.Unwind(ctx, f))
	}
	if r.savepoints != nil {
		err = multierr.Append(err, r.savepoints.EndTransaction())
	}
	r.functions.Clear()
	r.classes.Clear()
	return multierr.Append(err, r.vm.Close(ctx))
}

// Env returns the environment managed code runs on.
func (r *Runtime) Env() *jvm.Env { return r.env }

func (r *Runtime) Types() *types.Registry { return r.types }

func (r *Runtime) Classes() *jvm.Registry { return r.classes }

func (r *Runtime) Functions() *function.Cache { return r.functions }

func (r *Runtime) Stack() *invocation.Stack { return r.stack }

// Rows returns the binding table of row handles.
func (r *Runtime) Rows() *resource.Cache[memctx.Pointer] { return r.rows }

// Events returns the transaction event dispatcher, nil without
// Config.Transactions.
func (r *Runtime) Events() *txevent.Dispatcher { return r.events }

// Savepoints returns the savepoint table, nil without Config.Transactions.
func (r *Runtime) Savepoints() *txevent.Savepoints { return r.savepoints }

func (r *Runtime) Reporter() host.Reporter { return r.reporter }

func (r *Runtime) typeContext(ctx context.Context, mem *memctx.Context) *types.Context {
	return &types.Context{
		Ctx:     ctx,
		Env:     r.env,
		Mem:     mem,
		Rows:    r.rows,
		Types:   r.types,
		Classes: r.classes,
		Callback: func(fn types.CallbackOwner, run func()) {
			r.inCallback(ctx, fn, run)
		},
	}
}
