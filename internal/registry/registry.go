// Package registry implements the DTC Registry (§4.4): two fixed-capacity
// sets (candidates, active) with debounce policy applied on every
// observation and on the periodic tick, emitting change notifications.
package registry

import (
	"github.com/moschiel/parse-j1939-dtc-library/common"
	"github.com/moschiel/parse-j1939-dtc-library/internal/dm1"
)

// Capacity constants from §6.
const (
	NumCandidates = 40
	NumActive     = 20
)

// Config holds the three filtering parameters that belong to the
// Registry (timeout_multi_frame lives with the BAM table instead). A
// zero value for any field leaves the current value unchanged — see
// SetFiltering.
type Config struct {
	ThresholdReads uint32
	WindowActive   uint32
	WindowInactive uint32
}

// DefaultConfig matches the defaults in §6.
func DefaultConfig() Config {
	return Config{
		ThresholdReads: 10,
		WindowActive:   10,
		WindowInactive: 20,
	}
}

// Registry is the candidate/active DTC state machine. It performs no
// locking of its own — the caller (internal/engine) serialises all
// access through the single Concurrency Gate, per §4.5. The zero value
// is not ready to use; construct with New.
type Registry struct {
	cfg Config

	candidates    [NumCandidates]common.Record
	numCandidates int

	active    [NumActive]common.Record
	numActive int

	// dirty is true iff an active-set mutation has occurred since the
	// last tick observation (§3 invariant I7).
	dirty bool
}

// New returns a Registry configured with the defaults from §6.
func New() *Registry {
	return &Registry{cfg: DefaultConfig()}
}

// SetFiltering applies the three Registry-owned filtering parameters.
// A zero value for any argument leaves the current value unchanged.
func (r *Registry) SetFiltering(thresholdReads, windowActive, windowInactive uint32) {
	if thresholdReads != 0 {
		r.cfg.ThresholdReads = thresholdReads
	}
	if windowActive != 0 {
		r.cfg.WindowActive = windowActive
	}
	if windowInactive != 0 {
		r.cfg.WindowInactive = windowInactive
	}
}

// Update applies one decoded DM1 tuple to the Registry, per §4.4.
func (r *Registry) Update(src uint8, t uint32, tuple dm1.Tuple) {
	key := common.Key{Src: src, SPN: tuple.SPN, FMI: tuple.FMI}
	payload := common.Payload{OC: tuple.OC, Lamps: tuple.Lamps}

	if i := r.findActive(key); i >= 0 {
		rec := &r.active[i]
		rec.Payload.OC = payload.OC
		rec.Payload.Lamps = payload.Lamps
		rec.LastSeen = t
		return
	}

	if i := r.findCandidate(key); i >= 0 {
		rec := &r.candidates[i]
		rec.Payload.OC = payload.OC
		rec.Payload.Lamps = payload.Lamps
		rec.LastSeen = t
		rec.ReadCount++
	} else if r.numCandidates < NumCandidates {
		payload.CM = tuple.CM
		r.candidates[r.numCandidates] = common.Record{
			Key:       key,
			Payload:   payload,
			FirstSeen: t,
			LastSeen:  t,
			ReadCount: 1,
		}
		r.numCandidates++
	}
	// else: candidates full, new record silently dropped (§4.4, §7).

	r.promote(t)
}

// promote scans the candidate set and moves any candidate that has
// reached the read-count threshold within window_active into the
// active set, preserving insertion order in both sets (§4.4, §9
// "Sequence-shift removal").
func (r *Registry) promote(t uint32) {
	i := 0
	for i < r.numCandidates {
		c := r.candidates[i]
		eligible := t-c.FirstSeen <= r.cfg.WindowActive && uint32(c.ReadCount) >= r.cfg.ThresholdReads
		if !eligible {
			i++
			continue
		}
		if r.numActive >= NumActive {
			// Active is full; the move is declined, candidate stays.
			i++
			continue
		}
		r.active[r.numActive] = c
		r.numActive++
		r.dirty = true
		r.removeCandidateAt(i)
		// do not advance i: the next candidate has shifted into slot i
	}
}

// Prune removes expired candidates and inactive DTCs, per §4.4.
func (r *Registry) Prune(t uint32) {
	i := 0
	for i < r.numCandidates {
		if t-r.candidates[i].FirstSeen > r.cfg.WindowActive {
			r.removeCandidateAt(i)
			continue
		}
		i++
	}

	i = 0
	for i < r.numActive {
		if t-r.active[i].LastSeen > r.cfg.WindowInactive {
			r.removeActiveAt(i)
			r.dirty = true
			continue
		}
		i++
	}
}

// TakeChanged reports whether the active set has mutated since the last
// call, clearing the flag (§3 invariant I7). Called once per
// successful tick.
func (r *Registry) TakeChanged() bool {
	changed := r.dirty
	r.dirty = false
	return changed
}

// ActiveLen returns the current size of the active set.
func (r *Registry) ActiveLen() int {
	return r.numActive
}

// ActiveRef returns a slice aliasing the live active-set backing array,
// valid only while the caller holds the Concurrency Gate (§4.6 "Borrowed
// reference").
func (r *Registry) ActiveRef() []common.Record {
	return r.active[:r.numActive]
}

// CopyActive copies the active set into dst, returning the count. It
// fails (false) if dst is too small to hold the current active set —
// the caller is expected to have already checked buffer sizing via
// ActiveLen if it wants to avoid that.
func (r *Registry) CopyActive(dst []common.Record) (int, bool) {
	if len(dst) < r.numActive {
		return 0, false
	}
	copy(dst, r.active[:r.numActive])
	return r.numActive, true
}

// DynCopyActive allocates and returns a copy of the active set.
func (r *Registry) DynCopyActive() []common.Record {
	out := make([]common.Record, r.numActive)
	copy(out, r.active[:r.numActive])
	return out
}

// Clear empties both sets. Emptying a non-empty active set counts as an
// active-set mutation, so the dirty flag is set in that case.
func (r *Registry) Clear() {
	if r.numActive > 0 {
		r.dirty = true
	}
	r.numCandidates = 0
	r.numActive = 0
}

func (r *Registry) findActive(key common.Key) int {
	for i := 0; i < r.numActive; i++ {
		if r.active[i].Key == key {
			return i
		}
	}
	return -1
}

func (r *Registry) findCandidate(key common.Key) int {
	for i := 0; i < r.numCandidates; i++ {
		if r.candidates[i].Key == key {
			return i
		}
	}
	return -1
}

func (r *Registry) removeCandidateAt(i int) {
	copy(r.candidates[i:r.numCandidates-1], r.candidates[i+1:r.numCandidates])
	r.numCandidates--
}

func (r *Registry) removeActiveAt(i int) {
	copy(r.active[i:r.numActive-1], r.active[i+1:r.numActive])
	r.numActive--
}
