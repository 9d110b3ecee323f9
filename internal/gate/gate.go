// Package gate implements the Concurrency Gate of §4.5: a single
// non-reentrant, non-blocking mutual-exclusion flag shared by the
// ingress path, tick, and the borrowed-reference reader.
package gate

import "sync/atomic"

// Gate is the non-reentrant, non-blocking flag. TryAcquire/Release never
// block — an atomic.Bool compare-and-swap gives exactly that without
// pulling in a second locking primitive for something the spec
// explicitly says must not block. The zero value is unlocked and ready
// to use.
type Gate struct {
	locked atomic.Bool
}

// TryAcquire succeeds iff the gate was not already held.
func (g *Gate) TryAcquire() bool {
	return g.locked.CompareAndSwap(false, true)
}

// Release clears the gate. Calling it while not held is a caller bug;
// like the rest of this package it is not guarded against, matching the
// spec's "non-reentrant" contract.
func (g *Gate) Release() {
	g.locked.Store(false)
}
