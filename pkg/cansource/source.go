// Package cansource provides concrete frame sources for cmd/dtcmon: a
// live SocketCAN reader, a serial-port reader for J1939-over-serial
// adapters, and an offline trace-file replay reader. All three satisfy
// the same Source interface so the engine is driven identically whether
// the frames come off a real bus or a recorded log.
package cansource

import "github.com/moschiel/parse-j1939-dtc-library/common"

// Source delivers CAN frames until the underlying channel is closed or
// Close is called. Frames arrive in the order the source produced them;
// no buffering or reordering guarantee beyond that is made.
type Source interface {
	Frames() <-chan common.Frame
	Close() error
}
