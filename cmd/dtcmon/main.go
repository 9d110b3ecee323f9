//go:build linux

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	pflag "github.com/spf13/pflag"

	"github.com/moschiel/parse-j1939-dtc-library/common"
	"github.com/moschiel/parse-j1939-dtc-library/internal/classifier"
	"github.com/moschiel/parse-j1939-dtc-library/internal/engine"
	"github.com/moschiel/parse-j1939-dtc-library/pkg/cansource"
	dtcmqtt "github.com/moschiel/parse-j1939-dtc-library/pkg/mqtt"
)

// fmiDescriptions is a cosmetic lookup used only when logging the
// active-DTC snapshot; it has no bearing on engine state.
var fmiDescriptions = map[uint8]string{
	0:  "data above normal operating range",
	1:  "data below normal operating range",
	2:  "erratic, intermittent or incorrect data",
	3:  "voltage above normal or shorted high",
	4:  "voltage below normal or shorted low",
	5:  "current below normal or open circuit",
	6:  "current above normal or grounded circuit",
	7:  "mechanical system not responding or out of adjustment",
	8:  "abnormal frequency, pulse width or period",
	9:  "abnormal update rate",
	10: "abnormal rate of change",
	11: "root cause not known",
	12: "bad intelligent device or component",
	13: "out of calibration",
	14: "special instructions",
	31: "condition exists",
}

const (
	defaultCanInterface  = "can0"
	defaultBroker        = dtcmqtt.DefaultBroker
	defaultTopic         = dtcmqtt.DefaultTopic
	defaultCommandTopic  = "vehicle/dtc/command"
	defaultAckTopic      = "vehicle/dtc/command/ack"
	defaultTickInterval  = time.Second
	defaultThresholdRead = 10
	defaultWindowActive  = 10
	defaultWindowInact   = 20
	defaultTimeoutMF     = 5
)

var (
	canIface       = pflag.String("can-if", defaultCanInterface, "CAN interface name (e.g. can0, vcan0)")
	serialPort     = pflag.String("serial-port", "", "read frames from a serial J1939 adapter instead of SocketCAN")
	serialBaud     = pflag.Int("serial-baud", 115200, "serial port baud rate")
	replayPath     = pflag.String("replay", "", "replay a trace file instead of reading a live bus")
	broker         = pflag.String("broker", defaultBroker, "MQTT broker URL")
	topic          = pflag.String("topic", defaultTopic, "MQTT topic for the active-DTC snapshot")
	commandTopic   = pflag.String("command-topic", defaultCommandTopic, "MQTT topic for remote commands")
	ackTopic       = pflag.String("ack-topic", defaultAckTopic, "MQTT topic command acknowledgements are published to")
	clientID       = pflag.String("client-id", "", "MQTT client id (default: dtcmon-<iface>-<pid>)")
	tickInterval   = pflag.Duration("tick-interval", defaultTickInterval, "how often to advance the debounce clock")
	thresholdReads = pflag.Uint32("threshold-reads", defaultThresholdRead, "reads required before a candidate is promoted to active")
	windowActive   = pflag.Uint32("window-active", defaultWindowActive, "seconds a candidate has to reach threshold-reads")
	windowInactive = pflag.Uint32("window-inactive", defaultWindowInact, "seconds of silence before an active DTC is dropped")
	timeoutMF      = pflag.Uint32("timeout-multi-frame", defaultTimeoutMF, "seconds before an incomplete BAM reassembly is abandoned")
)

func main() {
	pflag.Parse()
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	source, err := openSource()
	if err != nil {
		log.Fatalf("dtcmon: opening frame source: %v", err)
	}
	defer source.Close()

	e := engine.New()
	e.SetFiltering(*thresholdReads, *windowActive, *windowInactive, *timeoutMF)

	id := *clientID
	if id == "" {
		id = fmt.Sprintf("dtcmon-%s-%d", *canIface, os.Getpid())
	}
	mqttClient := dtcmqtt.NewClient(dtcmqtt.Config{
		Broker:       *broker,
		ClientID:     id,
		Topic:        *topic,
		CommandTopic: *commandTopic,
		AckTopic:     *ackTopic,
	}, func(cmd common.ServerCommand) error {
		if cmd.Type != common.CommandTypeClearAll {
			return fmt.Errorf("unknown command type %q", cmd.Type)
		}
		if !e.ClearAll() {
			return fmt.Errorf("engine busy, clear_all dropped")
		}
		log.Println("dtcmon: cleared registry on remote command")
		return nil
	})
	e.RegisterCallback(func(active []common.Record) {
		logActive(active)
		mqttClient.PublishActive(active)
	})

	if err := mqttClient.Connect(); err != nil {
		log.Fatalf("dtcmon: connecting to MQTT broker: %v", err)
	}
	defer mqttClient.Disconnect()

	log.Printf("dtcmon: running (source=%s, broker=%s, topic=%s)", sourceDescription(), *broker, *topic)
	run(e, source)
}

func openSource() (cansource.Source, error) {
	switch {
	case *replayPath != "":
		f, err := os.Open(*replayPath)
		if err != nil {
			return nil, fmt.Errorf("open replay trace %q: %w", *replayPath, err)
		}
		defer f.Close()
		return cansource.OpenLogReplay(f)
	case *serialPort != "":
		return cansource.OpenSerialReplay(*serialPort, *serialBaud)
	default:
		return cansource.OpenSocketCAN(*canIface)
	}
}

// logActive logs the current active-DTC snapshot with a human-readable
// FMI description. Cosmetic only; does not affect engine state.
func logActive(active []common.Record) {
	for _, rec := range active {
		desc := fmiDescriptions[rec.Key.FMI]
		if desc == "" {
			desc = "unlisted failure mode"
		}
		log.Printf("dtcmon: active src=%d spn=%d fmi=%d (%s) oc=%d",
			rec.Key.Src, rec.Key.SPN, rec.Key.FMI, desc, rec.Payload.OC)
	}
}

// logIfDM2 logs DM2 (previously-active DTC) frames for operator
// visibility; DM2 is never fed into the engine (§3 defines the
// Registry's candidate/active model for currently-active codes only).
func logIfDM2(id uint32, data [8]byte) {
	if classifier.Classify(id, data) == classifier.DM2 {
		log.Printf("dtcmon: DM2 frame from src %d ignored (previously-active DTCs are not tracked)", id&0xFF)
	}
}

func sourceDescription() string {
	switch {
	case *replayPath != "":
		return "replay:" + *replayPath
	case *serialPort != "":
		return "serial:" + *serialPort
	default:
		return "can:" + *canIface
	}
}

// run drains source.Frames() into the engine and advances Tick on
// tickInterval until the frame channel closes or a termination signal
// arrives, mirroring teacher's main.go signal-handling shape.
func run(e *engine.Engine, source cansource.Source) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*tickInterval)
	defer ticker.Stop()

	frames := source.Frames()
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				log.Println("dtcmon: frame source closed, shutting down")
				return
			}
			logIfDM2(frame.ID, frame.Data)
			if !e.IngestFrame(frame.ID, frame.Data, frame.T) {
				log.Printf("dtcmon: dropped frame id 0x%X (engine busy)", frame.ID)
			}
		case <-ticker.C:
			// Tick must share the same absolute Unix-epoch clock as the
			// frame timestamps (pkg/cansource's nowUnix) — registry ages
			// are computed as t - FirstSeen/LastSeen and would otherwise
			// underflow against elapsed-process-time values.
			e.Tick(uint32(time.Now().Unix()))
		case sig := <-sigChan:
			log.Printf("dtcmon: received %s, shutting down", sig)
			return
		}
	}
}
