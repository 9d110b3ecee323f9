// Package bam implements the J1939 Transport Protocol BAM reassembler:
// a bounded table of in-flight multi-frame messages, accepting TP.CM
// (announcement) and TP.DT (data) frames and delivering completed DM1
// buffers, per §4.3.
package bam

// Capacity constants from §6.
const (
	NumSlots  = 4
	MaxMFSize = 256
)

// slot is one in-flight reassembly entry (§3 "BAM reassembly entry").
// An empty slot has cmID == 0.
type slot struct {
	cmID            uint32
	dtID            uint32
	totalSize       uint16
	numPackets      uint8
	receivedPackets uint8
	firstSeen       uint32
	lastSeen        uint32
	buffer          [MaxMFSize]byte
}

func (s *slot) inUse() bool {
	return s.cmID != 0
}

func (s *slot) free() {
	*s = slot{}
}

// Delivery is a completed DM1 buffer ready for the DM1 decoder.
type Delivery struct {
	Src    uint8
	Buffer []byte
	T      uint32
}

// Table is the fixed-capacity reassembly table (§3, §4.3). The zero
// value is ready to use.
type Table struct {
	slots [NumSlots]slot
}

// OnCM handles a TP.CM (BAM) arrival already filtered by the classifier
// (PGN 0xFECA, control byte 0x20). id is the 29-bit CAN identifier,
// data the 8 data bytes, t the timestamp.
func (tb *Table) OnCM(id uint32, data [8]byte, t uint32) {
	id &= 0x1FFFFFFF
	totalSize := uint16(data[2])<<8 | uint16(data[1])
	numPackets := data[3]

	if totalSize > MaxMFSize {
		return
	}

	s := tb.find(id)
	if s == nil {
		s = tb.findEmpty()
	}
	if s == nil {
		return
	}

	s.cmID = id
	s.dtID = (id & 0xFF00FFFF) | 0x00EB0000
	s.totalSize = totalSize
	s.numPackets = numPackets
	s.receivedPackets = 0
	s.buffer = [MaxMFSize]byte{}
	s.firstSeen = t
	s.lastSeen = t
}

// OnDT handles a TP.DT arrival. It returns the Delivery and true once the
// message is complete, and false otherwise. The slot is freed when the
// message completes or when a packet arrives out of order; a TP.DT with
// no matching slot is ignored.
func (tb *Table) OnDT(id uint32, data [8]byte, t uint32) (Delivery, bool) {
	id &= 0x1FFFFFFF

	s := tb.findByDT(id)
	if s == nil {
		return Delivery{}, false
	}

	packetNumber := data[0]
	if packetNumber != s.receivedPackets+1 {
		s.free()
		return Delivery{}, false
	}

	offset := int(packetNumber-1) * 7
	copy(s.buffer[offset:offset+7], data[1:8])
	s.receivedPackets++
	s.lastSeen = t

	if s.receivedPackets != s.numPackets {
		return Delivery{}, false
	}

	d := Delivery{
		Src:    uint8(s.cmID & 0xFF),
		Buffer: append([]byte(nil), s.buffer[:s.totalSize]...),
		T:      t,
	}
	s.free()
	return d, true
}

// Sweep frees every occupied slot whose age exceeds timeoutMultiFrame
// seconds (the tick age sweep, §4.3).
func (tb *Table) Sweep(t uint32, timeoutMultiFrame uint32) {
	for i := range tb.slots {
		s := &tb.slots[i]
		if s.inUse() && t-s.lastSeen > timeoutMultiFrame {
			s.free()
		}
	}
}

// Clear frees every slot.
func (tb *Table) Clear() {
	for i := range tb.slots {
		tb.slots[i].free()
	}
}

func (tb *Table) find(cmID uint32) *slot {
	for i := range tb.slots {
		if tb.slots[i].inUse() && tb.slots[i].cmID == cmID {
			return &tb.slots[i]
		}
	}
	return nil
}

func (tb *Table) findByDT(dtID uint32) *slot {
	for i := range tb.slots {
		if tb.slots[i].inUse() && tb.slots[i].dtID == dtID {
			return &tb.slots[i]
		}
	}
	return nil
}

func (tb *Table) findEmpty() *slot {
	for i := range tb.slots {
		if !tb.slots[i].inUse() {
			return &tb.slots[i]
		}
	}
	return nil
}
