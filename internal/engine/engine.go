// Package engine wires the Frame Classifier, DM1 Decoder, BAM
// Reassembler and DTC Registry into the constructible handle described
// in §9 Design Notes, and exposes the Exported Operations of §6.
package engine

import (
	"github.com/moschiel/parse-j1939-dtc-library/common"
	"github.com/moschiel/parse-j1939-dtc-library/internal/bam"
	"github.com/moschiel/parse-j1939-dtc-library/internal/classifier"
	"github.com/moschiel/parse-j1939-dtc-library/internal/dm1"
	"github.com/moschiel/parse-j1939-dtc-library/internal/gate"
	"github.com/moschiel/parse-j1939-dtc-library/internal/registry"
)

// DefaultTimeoutMultiFrame is the BAM reassembly age limit from §6.
const DefaultTimeoutMultiFrame uint32 = 5

// Callback receives an ordered, read-only view of the active set
// whenever it changes, invoked synchronously from within Tick with the
// gate held (§4.6). It must not re-enter the engine.
type Callback func(active []common.Record)

// Engine is one independent instance of the DTC parser — one per CAN
// bus, per §9's "constructible handle rather than a singleton".
type Engine struct {
	g gate.Gate

	reg *registry.Registry
	bam bam.Table
	cb  Callback

	timeoutMultiFrame uint32

	inCallback bool // re-entrancy guard, §9 "Ownership and callbacks"
}

// New returns an Engine configured with the defaults from §6.
func New() *Engine {
	return &Engine{
		reg:               registry.New(),
		timeoutMultiFrame: DefaultTimeoutMultiFrame,
	}
}

// SetFiltering applies the four configuration options; a zero value for
// any argument leaves the current value unchanged (§6).
func (e *Engine) SetFiltering(thresholdReads, windowActive, windowInactive, timeoutMF uint32) {
	e.reg.SetFiltering(thresholdReads, windowActive, windowInactive)
	if timeoutMF != 0 {
		e.timeoutMultiFrame = timeoutMF
	}
}

// RegisterCallback installs the change-notification callback (§4.6).
// Only one callback is held at a time; registering again replaces it.
func (e *Engine) RegisterCallback(cb Callback) {
	e.cb = cb
}

// IngestFrame classifies and applies one CAN frame. On lock contention
// the frame is dropped and IngestFrame returns false (§4.5, §7). It must
// not be called re-entrantly from within a Callback.
func (e *Engine) IngestFrame(id uint32, data [8]byte, t uint32) bool {
	if e.inCallback {
		return false
	}
	if !e.g.TryAcquire() {
		return false
	}
	defer e.g.Release()

	switch classifier.Classify(id, data) {
	case classifier.DM1:
		src := uint8(id & 0xFF)
		dm1.Decode(src, data[:], t, e.reg.Update)
	case classifier.TPCM:
		e.bam.OnCM(id, data, t)
	case classifier.TPDT:
		if delivery, ok := e.bam.OnDT(id, data, t); ok {
			dm1.Decode(delivery.Src, delivery.Buffer, delivery.T, e.reg.Update)
		}
	}
	return true
}

// Tick advances time to t: sweeps the BAM table, prunes the Registry,
// and — if the active set changed — invokes the callback before
// reporting the change (§4.3 age sweep, §4.4 Prune, §4.6 Callback).
func (e *Engine) Tick(t uint32) bool {
	if !e.g.TryAcquire() {
		return false
	}
	defer e.g.Release()

	e.bam.Sweep(t, e.timeoutMultiFrame)
	e.reg.Prune(t)

	changed := e.reg.TakeChanged()
	if changed && e.cb != nil {
		e.inCallback = true
		e.cb(e.reg.ActiveRef())
		e.inCallback = false
	}
	return changed
}

// CopyActive copies the active set into buf, reporting the count. It
// fails if the gate is contended or buf is too small for the current
// active set (§4.6, §7).
func (e *Engine) CopyActive(buf []common.Record) (int, bool) {
	if !e.g.TryAcquire() {
		return 0, false
	}
	defer e.g.Release()
	return e.reg.CopyActive(buf)
}

// DynCopyActive allocates and returns a copy of the active set. It
// fails if the gate is contended (§4.6).
func (e *Engine) DynCopyActive() ([]common.Record, bool) {
	if !e.g.TryAcquire() {
		return nil, false
	}
	defer e.g.Release()
	return e.reg.DynCopyActive(), true
}

// TryLock acquires the gate for a borrowed-reference read (§4.6).
func (e *Engine) TryLock() bool {
	return e.g.TryAcquire()
}

// Unlock releases the gate acquired by TryLock.
func (e *Engine) Unlock() {
	e.g.Release()
}

// ReferenceActive returns a borrowed view of the active set. The caller
// must hold the gate (via TryLock) for the duration of the read — per
// §4.6, reading outside the lock is undefined behaviour and is not
// guarded against here.
func (e *Engine) ReferenceActive() []common.Record {
	return e.reg.ActiveRef()
}

// ClearAll empties the Registry and BAM table. It fails if the gate is
// contended (§6).
func (e *Engine) ClearAll() bool {
	if !e.g.TryAcquire() {
		return false
	}
	defer e.g.Release()
	e.reg.Clear()
	e.bam.Clear()
	return true
}
