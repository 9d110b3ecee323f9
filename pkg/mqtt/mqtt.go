// Package mqtt publishes DTC Registry snapshots to an MQTT broker and
// relays remote commands back to the engine. Adapted from teacher's
// pkg/mqtt.Client: same connect/publish/subscribe shape, but publishing
// on the engine's debounced Observation API snapshot instead of an
// unconditional per-tick poll of raw frame data.
package mqtt

import (
	"encoding/json"
	"log"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/moschiel/parse-j1939-dtc-library/common"
)

const (
	DefaultBroker   = "tcp://localhost:1883"
	DefaultClientID = "dtcmon"
	DefaultTopic    = "vehicle/dtc/active"
)

// Config holds the MQTT connection and topic settings.
type Config struct {
	Broker       string
	ClientID     string
	Topic        string // active-DTC snapshot topic
	CommandTopic string // topic the agent subscribes to for remote commands
	AckTopic     string // topic CommandAcks are published to; disabled if empty
}

// Client wraps a paho MQTT client, publishing Observation API snapshots
// and relaying ServerCommands to a handler (normally Engine.ClearAll).
type Client struct {
	config         Config
	client         paho.Client
	commandHandler func(cmd common.ServerCommand) error
}

// NewClient returns a Client configured with config. cmdHandler may be
// nil if the agent does not accept remote commands.
func NewClient(config Config, cmdHandler func(cmd common.ServerCommand) error) *Client {
	return &Client{config: config, commandHandler: cmdHandler}
}

// Connect establishes the broker connection and, once connected,
// subscribes to the command topic.
func (c *Client) Connect() error {
	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Println("mqtt: connected to broker")
		c.subscribeToCommands()
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Printf("mqtt: connection lost: %v", err)
	})

	c.client = paho.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Disconnect closes the broker connection if currently connected.
func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

// PublishActive publishes the current active-DTC snapshot. Intended to
// be wired as the engine's Callback (§4.6): called synchronously from
// Tick whenever the active set changes, so publication is debounced by
// construction rather than on a fixed poll interval.
func (c *Client) PublishActive(active []common.Record) {
	if c.client == nil || !c.client.IsConnected() {
		log.Println("mqtt: not connected, dropping active-DTC snapshot")
		return
	}

	data, err := json.Marshal(active)
	if err != nil {
		log.Printf("mqtt: marshal active snapshot: %v", err)
		return
	}

	token := c.client.Publish(c.config.Topic, 0, false, data)
	if token.Wait() && token.Error() != nil {
		log.Printf("mqtt: publish to %s failed: %v", c.config.Topic, token.Error())
		return
	}
	log.Printf("mqtt: published %d active DTC(s) to %s", len(active), c.config.Topic)
}

func (c *Client) subscribeToCommands() {
	if c.config.CommandTopic == "" {
		return
	}
	token := c.client.Subscribe(c.config.CommandTopic, 1, c.handleCommand)
	go func() {
		<-token.Done()
		if token.Error() != nil {
			log.Printf("mqtt: subscribe to %s failed: %v", c.config.CommandTopic, token.Error())
		} else {
			log.Printf("mqtt: subscribed to command topic %s", c.config.CommandTopic)
		}
	}()
}

func (c *Client) handleCommand(_ paho.Client, msg paho.Message) {
	var cmd common.ServerCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		log.Printf("mqtt: malformed command on %s: %v", msg.Topic(), err)
		return
	}

	if c.commandHandler == nil {
		log.Println("mqtt: no command handler configured")
		return
	}

	ack := common.CommandAck{Type: cmd.Type, Success: true}
	if err := c.commandHandler(cmd); err != nil {
		ack.Success = false
		ack.Message = err.Error()
		log.Printf("mqtt: command %s failed: %v", cmd.Type, err)
	}
	c.publishAck(ack)
}

// publishAck publishes ack to AckTopic. A no-op if AckTopic is unset.
func (c *Client) publishAck(ack common.CommandAck) {
	if c.config.AckTopic == "" {
		return
	}

	data, err := json.Marshal(ack)
	if err != nil {
		log.Printf("mqtt: marshal command ack: %v", err)
		return
	}

	token := c.client.Publish(c.config.AckTopic, 0, false, data)
	if token.Wait() && token.Error() != nil {
		log.Printf("mqtt: publish ack to %s failed: %v", c.config.AckTopic, token.Error())
	}
}
