package txevent

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
	"github.com/wippyai/plbridge/resource"
)

// Savepoint is the managed handle of a host subtransaction. It becomes stale
// when the subtransaction is released, rolled back or its transaction ends.
type Savepoint struct {
	ds    *resource.DualState[host.SubXactID]
	name  string
	level int
	// foreign savepoints were started by the host, not by managed code.
	foreign bool
}

func (sp *Savepoint) JavaClass() string { return jvm.ClassSavepoint }

// ID returns the subtransaction id.
func (sp *Savepoint) ID() (int, error) {
	id, err := sp.subXactID()
	return int(id), err
}

func (sp *Savepoint) subXactID() (host.SubXactID, error) {
	if sp.ds == nil {
		return host.InvalidSubXactID, errors.New(errors.PhaseHandle, errors.KindStaleHandle).
			Detail("savepoint %q has no subtransaction yet", sp.name).
			Build()
	}
	return sp.ds.Key()
}

func (sp *Savepoint) SavepointName() string { return sp.name }

// Level is the nesting depth, 1 for a subtransaction directly under the
// top-level transaction.
func (sp *Savepoint) Level() int { return sp.level }

func (sp *Savepoint) Foreign() bool { return sp.foreign }

func (sp *Savepoint) Valid() bool { return sp.ds != nil && sp.ds.Valid() }

// Savepoints resolves subtransaction ids to their handles. Handles live in a
// resource cache bound to the current top-level transaction.
type Savepoints struct {
	tx      host.Transactions
	cache   *resource.Cache[host.SubXactID]
	span    *resource.Owner
	live    map[host.SubXactID]*Savepoint
	nursery *Savepoint
	mu      sync.Mutex
}

// NewSavepoints creates the handle table for tx.
func NewSavepoints(tx host.Transactions) *Savepoints {
	return &Savepoints{
		tx:    tx,
		cache: resource.NewCache[host.SubXactID](),
		span:  resource.NewOwner(nil, "transaction"),
		live:  make(map[host.SubXactID]*Savepoint),
	}
}

// Cache exposes the binding table for observers.
func (s *Savepoints) Cache() *resource.Cache[host.SubXactID] {
	return s.cache
}

// Set starts a subtransaction on behalf of managed code. The new handle sits
// in the nursery until the start event claims it; a host that fires no event
// leaves it to be bound here.
func (s *Savepoints) Set(ctx context.Context, name string) (*Savepoint, error) {
	sp := &Savepoint{name: name}

	s.mu.Lock()
	if s.nursery != nil {
		s.mu.Unlock()
		return nil, errors.Internal(errors.PhaseTxEvent, "savepoint "+s.nursery.name+" is still being created")
	}
	s.nursery = sp
	parent := s.tx.CurrentSubtransaction()
	s.mu.Unlock()

	id, err := s.tx.BeginSubtransaction(ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nursery == sp {
		s.nursery = nil
		if err == nil {
			s.bindLocked(sp, id)
			s.setLevelLocked(sp, s.live[parent])
		}
	}
	if err != nil {
		return nil, err
	}

	got, kerr := sp.subXactID()
	if kerr != nil || got != id {
		return nil, errors.Internal(errors.PhaseTxEvent, "savepoint "+name+" was claimed by another subtransaction")
	}
	Logger().Debug("savepoint set", zap.String("name", name), zap.Uint32("subxact", uint32(id)), zap.Int("level", sp.level))
	return sp, nil
}

// Release commits the subtransaction of sp. The handle and every handle
// nested below it become stale.
func (s *Savepoints) Release(ctx context.Context, sp *Savepoint) error {
	id, err := sp.subXactID()
	if err != nil {
		return err
	}
	if err := s.tx.ReleaseSubtransaction(ctx, id); err != nil {
		return err
	}
	s.end(sp)
	return nil
}

// Rollback aborts the subtransaction of sp.
func (s *Savepoints) Rollback(ctx context.Context, sp *Savepoint) error {
	id, err := sp.subXactID()
	if err != nil {
		return err
	}
	if err := s.tx.RollbackSubtransaction(ctx, id); err != nil {
		return err
	}
	s.end(sp)
	return nil
}

// Lookup returns the live handle for id.
func (s *Savepoints) Lookup(id host.SubXactID) (*Savepoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := s.lookupLocked(id)
	return sp, sp != nil
}

// Resolve returns the handles of a subtransaction and its parent. The
// current id is resolved first so that a handle still in the nursery is
// claimed by the subtransaction that was just started, not by its parent.
func (s *Savepoints) Resolve(current, parent host.SubXactID) (cur, par *Savepoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur = s.resolveLocked(current)
	par = s.resolveLocked(parent)
	if par != nil && par.level == 0 {
		// A parent first seen here sits directly under the transaction as
		// far as this table knows.
		s.setLevelLocked(par, nil)
	}
	if cur != nil && cur.level == 0 {
		s.setLevelLocked(cur, par)
	}
	return cur, par
}

// Invalidate marks the handle for id and the handles nested below it stale.
func (s *Savepoints) Invalidate(id host.SubXactID) {
	s.mu.Lock()
	sp := s.lookupLocked(id)
	s.mu.Unlock()
	if sp != nil {
		s.end(sp)
	} else {
		s.cache.Invalidate(id)
	}
}

// EndTransaction invalidates every handle of the finished transaction.
func (s *Savepoints) EndTransaction() error {
	s.mu.Lock()
	span := s.span
	n := len(s.live)
	s.span = resource.NewOwner(nil, "transaction")
	s.live = make(map[host.SubXactID]*Savepoint)
	s.nursery = nil
	s.mu.Unlock()

	if n > 0 {
		Logger().Debug("transaction ended with live savepoints", zap.Int("count", n))
	}
	return span.Release()
}

func (s *Savepoints) end(sp *Savepoint) {
	s.mu.Lock()
	var stale []host.SubXactID
	for id, other := range s.live {
		if other == sp || other.level > sp.level {
			stale = append(stale, id)
			delete(s.live, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		s.cache.Invalidate(id)
	}
}

func (s *Savepoints) lookupLocked(id host.SubXactID) *Savepoint {
	if id == host.InvalidSubXactID {
		return nil
	}
	ds, ok := s.cache.Lookup(id)
	sp := s.live[id]
	if !ok || sp == nil || sp.ds != ds {
		delete(s.live, id)
		return nil
	}
	return sp
}

func (s *Savepoints) resolveLocked(id host.SubXactID) *Savepoint {
	if id == host.InvalidSubXactID {
		return nil
	}
	if sp := s.lookupLocked(id); sp != nil {
		return sp
	}

	sp := s.nursery
	if sp != nil {
		s.nursery = nil
	} else {
		sp = &Savepoint{foreign: true}
	}
	s.bindLocked(sp, id)
	return sp
}

func (s *Savepoints) bindLocked(sp *Savepoint, id host.SubXactID) {
	sp.ds = resource.NewDualState(id, "savepoint")
	if err := s.cache.Bind(id, s.span, sp.ds); err != nil {
		// A stale binding under the same id is replaced by Bind; a live one
		// means the host reused an id without ending it.
		Logger().Warn("savepoint binding failed", zap.Uint32("subxact", uint32(id)), zap.Error(err))
		return
	}
	s.live[id] = sp
}

func (s *Savepoints) setLevelLocked(sp, parent *Savepoint) {
	if parent != nil {
		sp.level = parent.level + 1
	} else {
		sp.level = 1
	}
}
