package runtime

import (
	stderrors "errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

// translate gives every error leaving the runtime a structured form with a
// SQLSTATE. Combined errors take the state of the first one.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errs := multierr.Errors(err); len(errs) > 1 {
		out := *structured(errs[0])
		out.Cause = err
		return &out
	}
	return structured(err)
}

func structured(err error) *errors.Error {
	if e, ok := err.(*errors.Error); ok {
		return e
	}
	var t *jvm.Throwable
	if stderrors.As(err, &t) {
		if e, ok := t.AsError().(*errors.Error); ok {
			return e
		}
	}
	return errors.Wrap(errors.PhaseInternal, errors.KindInternal, err, "call failed")
}

// Describe formats err for the host error channel. A failure while
// formatting is reported as a warning and yields a placeholder message.
func (r *Runtime) Describe(err error) (state, msg string) {
	if err == nil {
		return "", ""
	}
	defer func() {
		if p := recover(); p != nil {
			state = errors.StateInternalError
			msg = "error message unavailable"
			r.warn(fmt.Sprintf("unable to format error of type %T: %v", err, p))
		}
	}()
	return errors.StateOf(err), err.Error()
}

// warn reports on the host channel without letting a reporter failure
// escape.
func (r *Runtime) warn(msg string) {
	defer func() {
		if p := recover(); p != nil {
			Logger().Warn(msg)
		}
	}()
	r.reporter.Report(host.LevelWarning, errors.StateInternalError, msg)
}
