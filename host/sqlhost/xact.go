package sqlhost

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
)

type subxact struct {
	id   host.SubXactID
	name string
}

// Begin starts a top-level transaction on the backend session.
func (h *Host) Begin(ctx context.Context) error {
	if h.inXact {
		return errors.New(errors.PhaseTxEvent, errors.KindInvalidInput).
			State("25001").
			Detail("there is already a transaction in progress").
			Build()
	}
	if _, err := h.conn.ExecContext(ctx, "BEGIN"); err != nil {
		return translate(err, "BEGIN")
	}
	h.inXact = true
	return nil
}

// Commit commits the transaction. Open subtransactions are committed with
// it.
func (h *Host) Commit(ctx context.Context) error {
	if !h.inXact {
		return errors.New(errors.PhaseTxEvent, errors.KindInvalidInput).
			State("25P01").
			Detail("there is no transaction in progress").
			Build()
	}
	h.fireXact(ctx, host.XactEventPreCommit)
	if _, err := h.conn.ExecContext(ctx, "COMMIT"); err != nil {
		return multierr.Append(translate(err, "COMMIT"), h.Rollback(ctx))
	}
	h.endXact()
	h.fireXact(ctx, host.XactEventCommit)
	return nil
}

// Rollback aborts the transaction.
func (h *Host) Rollback(ctx context.Context) error {
	if !h.inXact {
		return nil
	}
	_, err := h.conn.ExecContext(ctx, "ROLLBACK")
	h.endXact()
	h.fireXact(ctx, host.XactEventAbort)
	return translate(err, "ROLLBACK")
}

// InTransaction reports whether a top-level transaction is open.
func (h *Host) InTransaction() bool { return h.inXact }

func (h *Host) endXact() {
	h.inXact = false
	h.subs = nil
}

// BeginSubtransaction implements host.Transactions. The start event is
// raised before the id is returned.
func (h *Host) BeginSubtransaction(ctx context.Context, name string) (host.SubXactID, error) {
	id := h.nextSub + 1
	if _, err := h.conn.ExecContext(ctx, "SAVEPOINT "+savepointName(id)); err != nil {
		return host.InvalidSubXactID, translate(err, "SAVEPOINT")
	}
	h.nextSub = id
	parent := h.CurrentSubtransaction()
	h.subs = append(h.subs, subxact{id: id, name: name})
	Logger().Debug("subtransaction started",
		zap.Uint32("id", uint32(id)),
		zap.Uint32("parent", uint32(parent)),
		zap.String("name", name))
	h.fireSub(ctx, host.SubXactEventStartSub, id, parent)
	return id, nil
}

// ReleaseSubtransaction implements host.Transactions. Subtransactions
// nested in id are committed with it, innermost first.
func (h *Host) ReleaseSubtransaction(ctx context.Context, id host.SubXactID) error {
	i, err := h.level(id)
	if err != nil {
		return err
	}
	for j := len(h.subs) - 1; j >= i; j-- {
		h.fireSub(ctx, host.SubXactEventPreCommitSub, h.subs[j].id, h.parentAt(j))
	}
	if _, err := h.conn.ExecContext(ctx, "RELEASE SAVEPOINT "+savepointName(id)); err != nil {
		return translate(err, "RELEASE")
	}
	h.popTo(ctx, i, host.SubXactEventCommitSub)
	return nil
}

// RollbackSubtransaction implements host.Transactions. Subtransactions
// nested in id are aborted with it, innermost first.
func (h *Host) RollbackSubtransaction(ctx context.Context, id host.SubXactID) error {
	i, err := h.level(id)
	if err != nil {
		return err
	}
	name := savepointName(id)
	_, err = h.conn.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
	if err == nil {
		_, err = h.conn.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	}
	if err != nil {
		return translate(err, "ROLLBACK TO")
	}
	h.popTo(ctx, i, host.SubXactEventAbortSub)
	return nil
}

// CurrentSubtransaction implements host.Transactions.
func (h *Host) CurrentSubtransaction() host.SubXactID {
	if len(h.subs) == 0 {
		return host.InvalidSubXactID
	}
	return h.subs[len(h.subs)-1].id
}

// RegisterXactCallback implements host.Transactions.
func (h *Host) RegisterXactCallback(cb host.XactCallback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.xactCbs = append(h.xactCbs, cb)
}

// RegisterSubXactCallback implements host.Transactions.
func (h *Host) RegisterSubXactCallback(cb host.SubXactCallback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subCbs = append(h.subCbs, cb)
}

func (h *Host) level(id host.SubXactID) (int, error) {
	for i, s := range h.subs {
		if s.id == id {
			return i, nil
		}
	}
	return 0, errors.New(errors.PhaseTxEvent, errors.KindInvalidInput).
		State("3B001").
		Value(uint32(id)).
		Detail("no such savepoint").
		Build()
}

func (h *Host) parentAt(i int) host.SubXactID {
	if i == 0 {
		return host.InvalidSubXactID
	}
	return h.subs[i-1].id
}

// popTo ends the subtransactions from the top down to level i.
func (h *Host) popTo(ctx context.Context, i int, event host.SubXactEvent) {
	for len(h.subs) > i {
		top := len(h.subs) - 1
		id, parent := h.subs[top].id, h.parentAt(top)
		h.subs = h.subs[:top]
		h.fireSub(ctx, event, id, parent)
	}
}

func (h *Host) fireXact(ctx context.Context, event host.XactEvent) {
	h.mu.Lock()
	cbs := append([]host.XactCallback(nil), h.xactCbs...)
	h.mu.Unlock()
	for _, cb := range cbs {
		cb(ctx, event)
	}
}

func (h *Host) fireSub(ctx context.Context, event host.SubXactEvent, id, parent host.SubXactID) {
	h.mu.Lock()
	cbs := append([]host.SubXactCallback(nil), h.subCbs...)
	h.mu.Unlock()
	for _, cb := range cbs {
		cb(ctx, event, id, parent)
	}
}

func savepointName(id host.SubXactID) string {
	return fmt.Sprintf("pl_sp_%d", id)
}
