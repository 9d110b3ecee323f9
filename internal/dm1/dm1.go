// Package dm1 decodes a contiguous DM1 byte buffer into zero or more DTC
// tuples, per §4.2.
package dm1

import "github.com/moschiel/parse-j1939-dtc-library/common"

// Tuple is one decoded 4-byte DTC entry plus the lamp status shared by
// every tuple in the message (§4.2, bit layout in §6).
type Tuple struct {
	SPN   uint32
	FMI   uint8
	CM    uint8
	OC    uint8
	Lamps common.Lamps
}

// Sink receives each decoded tuple in frame order, for the caller (the
// Registry, normally) to apply.
type Sink func(src uint8, t uint32, tuple Tuple)

// Decode parses buf (the reassembled or single-frame DM1 payload) of
// length L, with source address src and timestamp t, invoking sink once
// per emitted tuple. Buffers shorter than 6 bytes are dropped silently
// (§4.2).
//
// A first decoded SPN of zero discards the entire message — this
// matches the observed source behaviour of treating an all-zero first
// SPN as an "empty DM1" announcement with no active codes. Subsequent
// zero SPNs inside an otherwise valid message are still emitted.
func Decode(src uint8, buf []byte, t uint32, sink Sink) {
	l := len(buf)
	if l < 6 {
		return
	}

	lamps := common.Lamps{
		MIL: common.LampState((buf[0] >> 6) & 3),
		RSL: common.LampState((buf[0] >> 4) & 3),
		AWL: common.LampState((buf[0] >> 2) & 3),
		PL:  common.LampState(buf[0] & 3),
	}

	first := true
	// Require the full 4-byte tuple to fit; a trailing 1-3 byte remainder
	// (buffer lengths not of the form 2+4n) is not read.
	for i := 2; i+3 < l; i += 4 {
		b0, b1, b2, b3 := buf[i], buf[i+1], buf[i+2], buf[i+3]

		spn := uint32(b2&0xE0)>>5<<16 | uint32(b1)<<8 | uint32(b0)
		fmi := b2 & 0x1F
		cm := (b3 >> 7) & 1
		oc := b3 & 0x7F

		if first {
			first = false
			if spn == 0 {
				return
			}
		}

		sink(src, t, Tuple{
			SPN:   spn,
			FMI:   fmi,
			CM:    cm,
			OC:    oc,
			Lamps: lamps,
		})
	}
}
