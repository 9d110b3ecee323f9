// Package common holds the wire-level types shared across the classifier,
// decoder, reassembler and registry packages — the J1939 counterpart of
// teacher's common.DTCCode / common.ServerCommand split.
package common

// Frame is a single CAN frame as it would arrive from a CAN controller,
// potentially from an interrupt service routine. The 29-bit extended
// identifier and exactly 8 data bytes match the wire contract of §6.
type Frame struct {
	ID   uint32
	Data [8]byte
	T    uint32 // integer-second timestamp supplied by the caller
}

// ExtendedID masks Frame.ID down to the 29 bits used for reassembly
// identity (§4.1 "Operational identity for reassembly").
func (f Frame) ExtendedID() uint32 {
	return f.ID & 0x1FFFFFFF
}

// Source returns the low 8 bits of the CAN identifier — the DTC key's
// src field (§3).
func (f Frame) Source() uint8 {
	return uint8(f.ID & 0xFF)
}
