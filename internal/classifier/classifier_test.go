package classifier

import "testing"

func TestClassifyDM1(t *testing.T) {
	var data [8]byte
	if got := Classify(0x18FECA03, data); got != DM1 {
		t.Fatalf("Classify() = %v, want DM1", got)
	}
}

func TestClassifyDM2(t *testing.T) {
	var data [8]byte
	if got := Classify(0x18FECB03, data); got != DM2 {
		t.Fatalf("Classify() = %v, want DM2", got)
	}
}

func TestClassifyTPCM(t *testing.T) {
	data := [8]byte{0x20, 0x0D, 0x00, 0x02, 0xFF, 0xCA, 0xFE, 0x00}
	if got := Classify(0x1CECFF03, data); got != TPCM {
		t.Fatalf("Classify() = %v, want TPCM", got)
	}
}

func TestClassifyTPCMWrongPGNIgnored(t *testing.T) {
	data := [8]byte{0x20, 0x0D, 0x00, 0x02, 0xFF, 0xAA, 0xAA, 0x00}
	if got := Classify(0x1CECFF03, data); got != Ignore {
		t.Fatalf("Classify() = %v, want Ignore", got)
	}
}

func TestClassifyTPCMWrongControlByteIgnored(t *testing.T) {
	data := [8]byte{0x10, 0x0D, 0x00, 0x02, 0xFF, 0xCA, 0xFE, 0x00}
	if got := Classify(0x1CECFF03, data); got != Ignore {
		t.Fatalf("Classify() = %v, want Ignore", got)
	}
}

func TestClassifyTPDT(t *testing.T) {
	var data [8]byte
	if got := Classify(0x1CEBFF03, data); got != TPDT {
		t.Fatalf("Classify() = %v, want TPDT", got)
	}
}

func TestClassifyIgnore(t *testing.T) {
	var data [8]byte
	if got := Classify(0x18FEE903, data); got != Ignore {
		t.Fatalf("Classify() = %v, want Ignore", got)
	}
}

func TestDTID(t *testing.T) {
	if got := DTID(0x1CECFF03); got != 0x1CEBFF03 {
		t.Fatalf("DTID() = 0x%X, want 0x1CEBFF03", got)
	}
}
