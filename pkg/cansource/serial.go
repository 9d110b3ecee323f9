package cansource

import (
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/tarm/serial"

	"github.com/moschiel/parse-j1939-dtc-library/common"
)

// interFrameGap is the quiet period on the wire that marks the boundary
// between two accumulated byte runs, the same heuristic teacher's
// internal/j1939/j1939.go readFrames uses.
const interFrameGap = 5 * time.Millisecond

// serialFrameSize is the on-wire encoding this adapter expects: a 4-byte
// big-endian 29-bit extended CAN identifier followed by up to 8 data
// bytes, one CAN frame per accumulated run.
const serialFrameSize = 4

// SerialReplay reads gap-delimited CAN frames off a serial port (a
// J1939-over-serial adapter), accumulating bytes separated by
// interFrameGap into discrete frames exactly as teacher's j1939.go does
// for its own wire format.
type SerialReplay struct {
	port   *serial.Port
	frames chan common.Frame
	done   chan struct{}
}

// OpenSerialReplay opens portName at baud and starts the background
// reader goroutine.
func OpenSerialReplay(portName string, baud int) (*SerialReplay, error) {
	port, err := serial.OpenPort(&serial.Config{Name: portName, Baud: baud, ReadTimeout: interFrameGap})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", portName, err)
	}

	s := &SerialReplay{
		port:   port,
		frames: make(chan common.Frame, 256),
		done:   make(chan struct{}),
	}
	go s.readFrames()
	return s, nil
}

func (s *SerialReplay) Frames() <-chan common.Frame { return s.frames }

func (s *SerialReplay) Close() error {
	close(s.done)
	return s.port.Close()
}

func (s *SerialReplay) readFrames() {
	defer close(s.frames)
	buf := make([]byte, 256)
	var run []byte
	last := time.Now()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		n, err := s.port.Read(buf)
		now := time.Now()
		if err != nil && err.Error() != "EOF" {
			log.Printf("serialreplay: read error: %v", err)
		}

		if n == 0 {
			if len(run) > 0 && now.Sub(last) >= interFrameGap {
				s.emit(run)
				run = nil
			}
			continue
		}

		for i := 0; i < n; i++ {
			if len(run) > 0 && now.Sub(last) >= interFrameGap {
				s.emit(run)
				run = nil
			}
			run = append(run, buf[i])
			last = now
		}
	}
}

func (s *SerialReplay) emit(run []byte) {
	if len(run) < serialFrameSize+1 {
		return
	}
	id := binary.BigEndian.Uint32(run[0:4]) & 0x1FFFFFFF
	var data [8]byte
	copy(data[:], run[serialFrameSize:])

	select {
	case s.frames <- common.Frame{ID: id, Data: data, T: nowUnix()}:
	case <-s.done:
	default:
		log.Printf("serialreplay: frame channel full, dropping id 0x%X", id)
	}
}
