// Package txevent propagates host transaction and subtransaction events to
// managed listeners and manages the savepoint handles that name host
// subtransactions on the managed side.
//
// Host event enums are mapped to managed ordinals through an explicit
// switch, so the managed numbering does not follow host reorderings.
//
// A savepoint created by managed code is parked in a nursery while the host
// starts the subtransaction. The start event that the host fires from inside
// BeginSubtransaction must claim it, which is why subtransaction events
// resolve the current id before the parent id.
package txevent
