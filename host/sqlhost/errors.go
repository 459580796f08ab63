package sqlhost

import (
	stderrors "errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wippyai/plbridge/errors"
)

// SQLSTATEs of the SQLite result codes the host distinguishes.
var codeStates = map[int]string{
	sqlite3.SQLITE_CONSTRAINT_UNIQUE:     "23505",
	sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY: "23505",
	sqlite3.SQLITE_CONSTRAINT_NOTNULL:    "23502",
	sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY: "23503",
	sqlite3.SQLITE_CONSTRAINT_CHECK:      "23514",
	sqlite3.SQLITE_CONSTRAINT:            "23000",
	sqlite3.SQLITE_READONLY:              "25006",
	sqlite3.SQLITE_BUSY:                  "55P03",
	sqlite3.SQLITE_LOCKED:                "55P03",
	sqlite3.SQLITE_ERROR:                 "42000",
	sqlite3.SQLITE_MISMATCH:              "42804",
	sqlite3.SQLITE_TOOBIG:                "54000",
}

// translate turns a database error into a structured error with the
// SQLSTATE closest to the SQLite result code.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		return err
	}

	state := errors.StateInternalError
	kind := errors.KindInternal
	var se *sqlite.Error
	if stderrors.As(err, &se) {
		code := se.Code()
		s, ok := codeStates[code]
		if !ok {
			s, ok = codeStates[code&0xff]
		}
		if ok {
			state = s
		}
		switch code & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			kind = errors.KindInvalidData
		case sqlite3.SQLITE_READONLY:
			kind = errors.KindReadOnly
		case sqlite3.SQLITE_ERROR, sqlite3.SQLITE_MISMATCH:
			kind = errors.KindInvalidInput
		}
	}
	return errors.New(errors.PhaseNative, kind).
		State(state).
		Cause(err).
		Detail("%s failed", what).
		Build()
}
