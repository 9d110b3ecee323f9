package dm1

import (
	"reflect"
	"testing"

	"github.com/moschiel/parse-j1939-dtc-library/common"
)

func TestDecodeSingleTuple(t *testing.T) {
	buf := []byte{0xFF, 0x00, 0x22, 0xEE, 0xE3, 0x81, 0xFF, 0xFF}

	var got []Tuple
	Decode(0x03, buf, 2, func(src uint8, tm uint32, tuple Tuple) {
		if src != 0x03 {
			t.Fatalf("src = %d, want 3", src)
		}
		if tm != 2 {
			t.Fatalf("t = %d, want 2", tm)
		}
		got = append(got, tuple)
	})

	want := []Tuple{{
		SPN: 519714,
		FMI: 3,
		CM:  1,
		OC:  1,
		Lamps: common.Lamps{
			MIL: 3, RSL: 3, AWL: 3, PL: 3,
		},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Decode() = %+v, want %+v", got, want)
	}
}

func TestDecodeShortBufferDropped(t *testing.T) {
	buf := []byte{0xFF, 0x00, 0x22, 0xEE, 0xE3}
	called := false
	Decode(0x03, buf, 0, func(uint8, uint32, Tuple) { called = true })
	if called {
		t.Fatalf("Decode() invoked sink on a buffer shorter than 6 bytes")
	}
}

func TestDecodeZeroFirstSPNDiscardsMessage(t *testing.T) {
	// First tuple SPN == 0 discards the whole message (§4.2).
	buf := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	called := false
	Decode(0x03, buf, 0, func(uint8, uint32, Tuple) { called = true })
	if called {
		t.Fatalf("Decode() invoked sink after an all-zero first SPN")
	}
}

func TestDecodeZeroSPNAfterFirstTupleIsEmitted(t *testing.T) {
	// Bytes: lamp prefix + reserved, tuple1 (nonzero SPN), tuple2 (zero SPN).
	buf := []byte{
		0x00, 0x00,
		0x22, 0xEE, 0xE3, 0x81, // tuple1: SPN=519714, FMI=3
		0x00, 0x00, 0x00, 0x00, // tuple2: SPN=0
	}

	var tuples []Tuple
	Decode(0x03, buf, 0, func(_ uint8, _ uint32, tuple Tuple) {
		tuples = append(tuples, tuple)
	})

	if len(tuples) != 2 {
		t.Fatalf("Decode() emitted %d tuples, want 2", len(tuples))
	}
	if tuples[1].SPN != 0 {
		t.Fatalf("second tuple SPN = %d, want 0", tuples[1].SPN)
	}
}

func TestDecodeMultipleTuples(t *testing.T) {
	buf := []byte{
		0x00, 0x00,
		0x22, 0xEE, 0xE3, 0x81,
		0x22, 0xEE, 0xE3, 0x81,
	}
	var count int
	Decode(0x03, buf, 0, func(uint8, uint32, Tuple) { count++ })
	if count != 2 {
		t.Fatalf("Decode() emitted %d tuples, want 2", count)
	}
}
