package runtime

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/invocation"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/txevent"
	"github.com/wippyai/plbridge/types"
)

// natives implements jvm.Natives for a runtime.
type natives struct {
	r *Runtime
}

// enter passes the fence and connects the resource manager for the current
// frame. done must be called when the native routine returns.
func (n *natives) enter(env *jvm.Env) (frame *invocation.Frame, done func(), err error) {
	done, err = env.BeginNative()
	if err != nil {
		return nil, nil, err
	}
	if err := n.r.stack.AssertConnect(env.Context()); err != nil {
		done()
		return nil, nil, err
	}
	return n.r.stack.Current(), done, nil
}

// Execute implements jvm.Natives.
func (n *natives) Execute(env *jvm.Env, query string, args ...jvm.Value) (jvm.ResultSet, error) {
	frame, done, err := n.enter(env)
	if err != nil {
		return nil, err
	}
	defer done()

	ctx := env.Context()
	readOnly := frame.ReadOnly()
	if readOnly && writes(query) {
		return nil, errors.New(errors.PhaseNative, errors.KindReadOnly).
			Path(frame.Function().Name()).
			Detail("%s is not allowed in a non-volatile function", firstWord(query)).
			Build()
	}

	params := make([]host.Datum, len(args))
	for i, a := range args {
		if params[i], err = datumOf(a); err != nil {
			return nil, err
		}
	}

	result, err := n.r.rmExec(ctx, query, readOnly, params)
	if err != nil {
		// The host aborted the statement; the invocation may not do further
		// host work until the error is handled.
		frame.SetError(err)
		return nil, err
	}

	rs, err := newResultSet(n.r.typeContext(ctx, frame.Mem()), result)
	if err != nil {
		return nil, err
	}
	frame.Owner().Defer(func() error { return rs.Close(env) })
	return rs, nil
}

// Log implements jvm.Natives. Messages from a thread that may not enter the
// host go to the package logger.
func (n *natives) Log(env *jvm.Env, level int, msg string) {
	done, err := env.BeginNative()
	if err != nil {
		Logger().Info(msg, zap.Int("level", level), zap.NamedError("fence", err))
		return
	}
	defer done()
	n.r.reporter.Report(host.Level(level), "", msg)
}

// SetSavepoint implements jvm.Natives. A savepoint still open when its frame
// ends is rolled back, or released when the runtime is configured so.
func (n *natives) SetSavepoint(env *jvm.Env, name string) (jvm.Savepoint, error) {
	if n.r.savepoints == nil {
		return nil, errors.Unsupported(errors.PhaseNative, "savepoints without host transaction support")
	}
	frame, done, err := n.enter(env)
	if err != nil {
		return nil, err
	}
	defer done()

	ctx := env.Context()
	sp, err := n.r.savepoints.Set(ctx, name)
	if err != nil {
		return nil, err
	}
	frame.Owner().Defer(func() error { return n.r.endLingering(ctx, sp) })
	return sp, nil
}

// ReleaseSavepoint implements jvm.Natives.
func (n *natives) ReleaseSavepoint(env *jvm.Env, sp jvm.Savepoint) error {
	s, err := n.savepoint(sp)
	if err != nil {
		return err
	}
	_, done, err := n.enter(env)
	if err != nil {
		return err
	}
	defer done()
	return n.r.savepoints.Release(env.Context(), s)
}

// RollbackSavepoint implements jvm.Natives. Rolling back recovers from a
// host error flagged on the current frame.
func (n *natives) RollbackSavepoint(env *jvm.Env, sp jvm.Savepoint) error {
	s, err := n.savepoint(sp)
	if err != nil {
		return err
	}
	done, err := env.BeginNative()
	if err != nil {
		return err
	}
	defer done()

	frame := n.r.stack.Current()
	if frame == nil {
		return errors.Internal(errors.PhaseNative, "savepoint rollback outside of any invocation")
	}
	if err := n.r.savepoints.Rollback(env.Context(), s); err != nil {
		return err
	}
	frame.ClearError()
	return nil
}

func (n *natives) savepoint(sp jvm.Savepoint) (*txevent.Savepoint, error) {
	if n.r.savepoints == nil {
		return nil, errors.Unsupported(errors.PhaseNative, "savepoints without host transaction support")
	}
	s, ok := sp.(*txevent.Savepoint)
	if !ok || s == nil {
		return nil, jvm.IllegalArgument("not a savepoint of this backend")
	}
	return s, nil
}

func (r *Runtime) rmExec(ctx context.Context, query string, readOnly bool, params []host.Datum) (*host.Result, error) {
	rm := r.stack.ResourceManager()
	if rm == nil {
		return nil, errors.Unsupported(errors.PhaseNative, "no resource manager is available")
	}
	return rm.Exec(ctx, query, readOnly, params...)
}

func (r *Runtime) endLingering(ctx context.Context, sp *txevent.Savepoint) error {
	if !sp.Valid() {
		return nil
	}
	Logger().Warn("savepoint left open at end of function",
		zap.String("savepoint", sp.SavepointName()),
		zap.Bool("release", r.releaseLingering))
	if r.releaseLingering {
		return r.savepoints.Release(ctx, sp)
	}
	return r.savepoints.Rollback(ctx, sp)
}

var readOnlyStatements = map[string]bool{
	"select":  true,
	"values":  true,
	"table":   true,
	"show":    true,
	"explain": true,
	"with":    true,
}

func firstWord(query string) string {
	f := strings.Fields(query)
	if len(f) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimRight(f[0], ";("))
}

// writes reports whether query may modify data. WITH is taken as read-only;
// the host rejects data-modifying CTEs through the read-only flag.
func writes(query string) bool {
	w := firstWord(query)
	return w != "" && !readOnlyStatements[strings.ToLower(w)]
}

// datumOf converts a managed statement parameter to its host form.
func datumOf(v jvm.Value) (host.Datum, error) {
	switch x := v.(type) {
	case *jvm.BigDecimal:
		if x == nil {
			return nil, nil
		}
		return x.String(), nil
	case jvm.Date:
		return x.Time, nil
	case *types.Row:
		return x.Tuple()
	}
	return v, nil
}
