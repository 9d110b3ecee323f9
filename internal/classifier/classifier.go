// Package classifier routes an incoming CAN identifier to one of
// {DM1, DM2, TP.CM, TP.DT, ignore}, per §4.1.
package classifier

import "github.com/moschiel/parse-j1939-dtc-library/common"

// PGN masks and values used for classification. Only the bits needed to
// recognise DM1, DM2, TP.CM and TP.DT are named; the rest of the PGN space is
// irrelevant to this parser.
const (
	dm1Mask  = 0x00FFFF00
	dm1Value = 0x00FECA00

	// dm2Mask/dm2Value recognise DM2 (Previously Active DTCs, PGN
	// 0xFECB) at the classifier boundary only; the engine never feeds
	// DM2 into the Registry (cmd/dtcmon only logs DM2 frames).
	dm2Mask  = 0x00FFFF00
	dm2Value = 0x00FECB00

	tpcmMask  = 0x00FF0000
	tpcmValue = 0x00EC0000

	tpdtMask  = 0x00FF0000
	tpdtValue = 0x00EB0000

	// pgnDM1 is the PGN embedded in a TP.CM announcement for a DM1
	// broadcast: 0xFECA, little-endian across data[5..7].
	pgnDM1 = 0x00FECA

	// controlByteBAM is the TP.CM control byte identifying a Broadcast
	// Announce Message (the only transport variant this parser supports).
	controlByteBAM = 0x20
)

// Kind is the result of classifying a frame's CAN identifier.
type Kind int

const (
	Ignore Kind = iota
	DM1
	DM2
	TPCM
	TPDT
)

// Classify inspects id and the frame's data bytes and returns what kind
// of J1939 message this is, per the decision table in §4.1. Frames that
// are structurally TP.CM but carry a PGN other than 0xFECA or a control
// byte other than BAM are reported as Ignore — this parser only
// supports BAM-based DM1 reassembly. DM2 (previously-active DTCs) is
// recognised for logging purposes only; the engine does not decode it.
func Classify(id uint32, data [8]byte) Kind {
	if id&dm1Mask == dm1Value {
		return DM1
	}
	if id&dm2Mask == dm2Value {
		return DM2
	}
	if id&tpcmMask == tpcmValue {
		pgn := uint32(data[7])<<16 | uint32(data[6])<<8 | uint32(data[5])
		if pgn == pgnDM1 && data[0] == controlByteBAM {
			return TPCM
		}
		return Ignore
	}
	if id&tpdtMask == tpdtValue {
		return TPDT
	}
	return Ignore
}

// DTID derives the TP.DT counterpart of a TP.CM identifier: clear the PF
// byte and set it to 0xEB (§4.1).
func DTID(cmID uint32) uint32 {
	return (cmID & 0xFF00FFFF) | 0x00EB0000
}

// Classify29 is a convenience wrapper taking a common.Frame directly.
func Classify29(f common.Frame) Kind {
	return Classify(f.ID, f.Data)
}
