package engine

import (
	"testing"

	"github.com/moschiel/parse-j1939-dtc-library/common"
	"github.com/stretchr/testify/require"
)

func singleFrameDM1(src uint8) (uint32, [8]byte) {
	id := uint32(0x18FECA00) | uint32(src)
	data := [8]byte{0xFF, 0x00, 0x22, 0xEE, 0xE3, 0x81, 0xFF, 0xFF}
	return id, data
}

// TestS1SingleFramePromotion mirrors §8 scenario S1.
func TestS1SingleFramePromotion(t *testing.T) {
	e := New()
	e.SetFiltering(3, 10, 20, 5)

	id, data := singleFrameDM1(0x03)
	require.True(t, e.IngestFrame(id, data, 0))
	require.True(t, e.IngestFrame(id, data, 1))
	require.True(t, e.IngestFrame(id, data, 2))

	var calls, lastCount int
	e.RegisterCallback(func(active []common.Record) {
		calls++
		lastCount = len(active)
	})
	changed := e.Tick(2)
	require.True(t, changed)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, lastCount)

	out, ok := e.DynCopyActive()
	require.True(t, ok)
	require.Len(t, out, 1)
	require.EqualValues(t, 0x03, out[0].Key.Src)
	require.EqualValues(t, 519714, out[0].Key.SPN)
	require.EqualValues(t, 3, out[0].Key.FMI)
	require.EqualValues(t, 3, out[0].Payload.Lamps.MIL)
}

// TestS2Inactivation mirrors §8 scenario S2.
func TestS2Inactivation(t *testing.T) {
	e := New()
	e.SetFiltering(3, 10, 20, 5)
	id, data := singleFrameDM1(0x03)
	e.IngestFrame(id, data, 0)
	e.IngestFrame(id, data, 1)
	e.IngestFrame(id, data, 2)
	e.Tick(2)

	changed := e.Tick(23)
	require.True(t, changed)
	out, ok := e.DynCopyActive()
	require.True(t, ok)
	require.Empty(t, out)
}

// TestS3BelowThresholdTimesOut mirrors §8 scenario S3.
func TestS3BelowThresholdTimesOut(t *testing.T) {
	e := New()
	e.SetFiltering(3, 10, 20, 5)
	id, data := singleFrameDM1(0x03)
	e.IngestFrame(id, data, 0)
	e.IngestFrame(id, data, 1)

	var calls int
	e.RegisterCallback(func(active []common.Record) { calls++ })
	changed := e.Tick(11)
	require.False(t, changed)
	require.Zero(t, calls)

	out, ok := e.DynCopyActive()
	require.True(t, ok)
	require.Empty(t, out)
}

// TestS4BAMReassembly mirrors §8 scenario S4: a two-packet BAM
// reassembles into a 13-byte DM1 payload carrying two distinct tuples.
func TestS4BAMReassembly(t *testing.T) {
	e := New()
	e.SetFiltering(1, 10, 20, 5)

	cmID := uint32(0x1CECFF03)
	cmData := [8]byte{0x20, 0x0D, 0x00, 0x02, 0xFF, 0xCA, 0xFE, 0x00}
	require.True(t, e.IngestFrame(cmID, cmData, 0))

	dtID := uint32(0x1CEBFF03)
	dt1 := [8]byte{0x01, 0xFF, 0x00, 0x22, 0xEE, 0xE3, 0x81, 0x00}
	require.True(t, e.IngestFrame(dtID, dt1, 0))
	dt2 := [8]byte{0x02, 0x22, 0xEE, 0xE3, 0x81, 0x00, 0x00, 0x00}
	require.True(t, e.IngestFrame(dtID, dt2, 0))

	e.Tick(0)
	out, ok := e.DynCopyActive()
	require.True(t, ok)
	require.Len(t, out, 2)
	require.EqualValues(t, 519714, out[0].Key.SPN)
	require.EqualValues(t, 3, out[0].Key.FMI)
	require.EqualValues(t, 467456, out[1].Key.SPN)
	require.EqualValues(t, 14, out[1].Key.FMI)
}

// TestS5OutOfOrderDTAborts mirrors §8 scenario S5.
func TestS5OutOfOrderDTAborts(t *testing.T) {
	e := New()
	cmID := uint32(0x1CECFF03)
	cmData := [8]byte{0x20, 0x0D, 0x00, 0x02, 0xFF, 0xCA, 0xFE, 0x00}
	e.IngestFrame(cmID, cmData, 0)

	dtID := uint32(0x1CEBFF03)
	seq2 := [8]byte{0x02, 0x22, 0xEE, 0xE3, 0x81, 0x00, 0x00, 0x00}
	e.IngestFrame(dtID, seq2, 0) // aborts the slot

	seq1 := [8]byte{0x01, 0xFF, 0x00, 0x22, 0xEE, 0xE3, 0x81, 0x00}
	e.IngestFrame(dtID, seq1, 0) // no matching slot: no effect

	out, ok := e.DynCopyActive()
	require.True(t, ok)
	require.Empty(t, out)
}

// TestS6ContendedIngressDropped mirrors §8 scenario S6.
func TestS6ContendedIngressDropped(t *testing.T) {
	e := New()
	require.True(t, e.TryLock())

	id, data := singleFrameDM1(0x03)
	require.False(t, e.IngestFrame(id, data, 0))

	e.Unlock()
	require.True(t, e.IngestFrame(id, data, 0))
}

// TestBAMEquivalentToSingleFrame mirrors §8 property P6: a BAM
// reassembly delivered in-order produces the same DTC set as the
// equivalent single-frame DM1 carrying the same payload.
func TestBAMEquivalentToSingleFrame(t *testing.T) {
	single := New()
	single.SetFiltering(1, 10, 20, 5)
	id, data := singleFrameDM1(0x03)
	single.IngestFrame(id, data, 0)
	singleOut, _ := single.DynCopyActive()

	multi := New()
	multi.SetFiltering(1, 10, 20, 5)
	cmID := uint32(0x1CECFF03)
	cmData := [8]byte{0x20, 0x06, 0x00, 0x01, 0xFF, 0xCA, 0xFE, 0x00}
	multi.IngestFrame(cmID, cmData, 0)
	dtID := uint32(0x1CEBFF03)
	dt1 := [8]byte{0x01, 0xFF, 0x00, 0x22, 0xEE, 0xE3, 0x81, 0x00}
	multi.IngestFrame(dtID, dt1, 0)
	multiOut, _ := multi.DynCopyActive()

	require.Equal(t, singleOut, multiOut)
}
