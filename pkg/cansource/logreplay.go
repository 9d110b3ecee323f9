package cansource

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/moschiel/parse-j1939-dtc-library/common"
)

// LogReplay feeds a recorded trace through the same Source interface as
// a live bus, so cmd/dtcmon --replay exercises the identical engine code
// path. One frame per line: "<t> <id-hex> <data-hex>", e.g.
// "0 18FECA03 FF0022EEE38100FF" — the offline counterpart of a
// candump/busmaster log.
type LogReplay struct {
	frames chan common.Frame
	done   chan struct{}
}

// OpenLogReplay parses every line of r eagerly and returns a Source that
// delivers them in file order.
func OpenLogReplay(r io.Reader) (*LogReplay, error) {
	l := &LogReplay{
		frames: make(chan common.Frame, 256),
		done:   make(chan struct{}),
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	var parsed []common.Frame
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		frame, err := parseLogLine(line)
		if err != nil {
			return nil, fmt.Errorf("log replay line %d: %w", lineNo, err)
		}
		parsed = append(parsed, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	go func() {
		defer close(l.frames)
		for _, frame := range parsed {
			select {
			case l.frames <- frame:
			case <-l.done:
				return
			}
		}
	}()
	return l, nil
}

func parseLogLine(line string) (common.Frame, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return common.Frame{}, fmt.Errorf("want 3 fields (t id data), got %d", len(fields))
	}

	t, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return common.Frame{}, fmt.Errorf("timestamp: %w", err)
	}
	id, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil {
		return common.Frame{}, fmt.Errorf("id: %w", err)
	}
	raw, err := hex.DecodeString(fields[2])
	if err != nil {
		return common.Frame{}, fmt.Errorf("data: %w", err)
	}
	if len(raw) > 8 {
		return common.Frame{}, fmt.Errorf("data length %d exceeds 8 bytes", len(raw))
	}

	var data [8]byte
	copy(data[:], raw)
	return common.Frame{ID: uint32(id), Data: data, T: uint32(t)}, nil
}

func (l *LogReplay) Frames() <-chan common.Frame { return l.frames }

func (l *LogReplay) Close() error {
	close(l.done)
	return nil
}
