package function

import (
	stderrors "errors"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/types"
)

// Invoke calls f with the arguments of ci and returns the result datum.
// ci.IsNull reports a NULL result; set-returning functions follow the
// value-per-call protocol through ci.ResultInfo.
func (f *Function) Invoke(cx *types.Context, ci *host.CallInfo) (host.Datum, error) {
	if f.isTrigger {
		return f.InvokeTrigger(cx, ci)
	}
	if f.returnsSet {
		return f.invokeSRF(cx, ci)
	}
	ci.IsNull = false

	if f.strict && hasNull(ci.Args) {
		ci.IsNull = true
		return nil, nil
	}
	args, err := f.coerceArgs(cx, ci.Args)
	if err != nil {
		return nil, err
	}

	var v jvm.Value
	if inv, ok := f.ret.(types.Invoker); ok {
		v, err = inv.Invoke(cx, f.method, args)
	} else {
		v, err = types.Call(cx, f.method, args)
	}
	if err != nil {
		return nil, err
	}

	d, isNull, err := f.ret.CoerceObject(cx, v)
	if err != nil {
		return nil, atPath(err, f.name, "result")
	}
	ci.IsNull = isNull
	return d, nil
}

// InvokeTrigger calls a trigger function and returns the row the host
// should continue with. A NULL result skips the operation for before row
// triggers and is ignored otherwise.
func (f *Function) InvokeTrigger(cx *types.Context, ci *host.CallInfo) (host.Datum, error) {
	if ci.Trigger == nil {
		return nil, errors.InvalidInput(errors.PhaseInvoke, "trigger function "+f.name+" called outside a trigger")
	}
	td, err := types.NewTriggerData(cx, ci.Trigger)
	if err != nil {
		return nil, err
	}
	if _, err := types.Call(cx, f.method, []jvm.Value{td}); err != nil {
		return nil, err
	}

	tup, err := td.Result()
	if err != nil {
		return nil, err
	}
	if tup == nil {
		ci.IsNull = true
		return nil, nil
	}
	ci.IsNull = false
	return tup, nil
}

func hasNull(args []host.NullableDatum) bool {
	for _, a := range args {
		if a.IsNull {
			return true
		}
	}
	return false
}

func (f *Function) coerceArgs(cx *types.Context, in []host.NullableDatum) ([]jvm.Value, error) {
	if len(in) != len(f.params) {
		return nil, errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Path(f.name).
			Detail("called with %d arguments, expected %d", len(in), len(f.params)).
			Build()
	}
	args := make([]jvm.Value, len(in))
	for i, a := range in {
		t := f.params[i]
		if a.IsNull {
			if !t.NullTolerant() {
				return nil, errors.NullValue([]string{f.name, f.argName(i)}, t.JavaName())
			}
			args[i] = t.Zero()
			continue
		}
		v, err := t.CoerceDatum(cx, a.Value)
		if err != nil {
			return nil, atPath(err, f.name, f.argName(i))
		}
		args[i] = v
	}
	return args, nil
}

// atPath locates a coercion error at path, keeping its kind.
func atPath(err error, path ...string) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		located := *e
		located.Path = append(path, e.Path...)
		return &located
	}
	return errors.New(errors.PhaseCoerce, errors.KindTypeMismatch).
		Path(path...).
		Cause(err).
		Build()
}
