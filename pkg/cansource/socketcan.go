//go:build linux

package cansource

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"net"

	"golang.org/x/sys/unix"

	"github.com/moschiel/parse-j1939-dtc-library/common"
)

// canFrameSize is sizeof(struct can_frame): a 4-byte id, a 1-byte length
// plus 3 bytes of padding, then 8 data bytes.
const canFrameSize = 16

// SocketCAN reads raw CAN frames off a Linux SocketCAN interface using
// CAN_RAW, not CAN_J1939 — the latter would reassemble BAM transfers in
// the kernel and hand this module nothing to reassemble itself. Grounded
// on the same unix.Socket/Bind/Recvfrom syscalls teacher's
// cmd/agent-j1939/bus.go uses for its CAN_J1939 socket.
type SocketCAN struct {
	fd     int
	frames chan common.Frame
	done   chan struct{}
}

// OpenSocketCAN binds a CAN_RAW socket to iface (e.g. "can0", "vcan0")
// and starts the background reader goroutine.
func OpenSocketCAN(iface string) (*SocketCAN, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("create CAN_RAW socket: %w", err)
	}

	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("InterfaceByName %q: %w", iface, err)
	}

	addr := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind CAN socket to %q: %w", iface, err)
	}
	log.Printf("socketcan: bound CAN_RAW to %s (ifindex %d)", iface, ifi.Index)

	s := &SocketCAN{
		fd:     fd,
		frames: make(chan common.Frame, 256),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *SocketCAN) Frames() <-chan common.Frame { return s.frames }

func (s *SocketCAN) Close() error {
	close(s.done)
	return unix.Close(s.fd)
}

func (s *SocketCAN) readLoop() {
	defer close(s.frames)
	buf := make([]byte, canFrameSize)

	for {
		n, _, err := unix.Recvfrom(s.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EBADF) || errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-s.done:
				return
			default:
				log.Printf("socketcan: read error: %v", err)
				continue
			}
		}
		if n < canFrameSize {
			continue
		}

		rawID := binary.LittleEndian.Uint32(buf[0:4])
		if rawID&unix.CAN_EFF_FLAG == 0 {
			continue // not an extended (29-bit) identifier: not J1939
		}
		id := rawID & unix.CAN_EFF_MASK

		var data [8]byte
		copy(data[:], buf[8:16])

		frame := common.Frame{ID: id, Data: data, T: nowUnix()}
		select {
		case s.frames <- frame:
		case <-s.done:
			return
		default:
			log.Printf("socketcan: frame channel full, dropping id 0x%X", id)
		}
	}
}
