package mqtt

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/blinds-control/internal/config"
	"github.com/sweeney/blinds-control/internal/logic"
)

// Options configures a RealClient.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topics   config.TopicsConfig
	// OutboxSize bounds the messages kept while disconnected.
	OutboxSize int
}

// RealClient talks to an actual MQTT broker. Messages published while the
// connection is down are kept in an outbox and replayed on reconnect.
type RealClient struct {
	client  paho.Client
	topics  config.TopicsConfig
	handler Handler
	pending *outbox

	connected  atomic.Bool
	reconnects atomic.Int64
}

// NewRealClient connects to the broker and subscribes to the action,
// appcmd and notify topics. handler receives every incoming message.
func NewRealClient(opts Options, handler Handler) (*RealClient, error) {
	c := &RealClient{
		topics:  opts.Topics,
		handler: handler,
		pending: newOutbox(opts.OutboxSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(opts.Topics.AppState, string(will), 1, false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	c.client = paho.NewClient(po)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// SetConnectRetry keeps trying in the background.
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", opts.Broker)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

func (c *RealClient) onConnect(client paho.Client) {
	first := !c.connected.Swap(true)
	if c.reconnects.Add(1) > 1 {
		log.Printf("mqtt: reconnected")
	} else if first {
		log.Printf("mqtt: connected")
	}

	for _, topic := range []string{c.topics.Action, c.topics.AppCmd, c.topics.Notify} {
		token := client.Subscribe(topic, 0, c.onMessage)
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			log.Printf("mqtt: subscribe %s failed: %v", topic, token.Error())
		}
	}

	msgs := c.pending.drain()
	if len(msgs) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(msgs))
	}
	for _, m := range msgs {
		client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

func (c *RealClient) onConnectionLost(_ paho.Client, err error) {
	c.connected.Store(false)
	log.Printf("mqtt: connection lost: %v", err)
}

func (c *RealClient) onMessage(_ paho.Client, msg paho.Message) {
	if c.handler == nil {
		return
	}
	c.handler(Message{Topic: msg.Topic(), Payload: string(msg.Payload())})
}

// IsConnected reports whether the broker connection is up.
func (c *RealClient) IsConnected() bool {
	return c.connected.Load() && c.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a reconnect.
func (c *RealClient) Buffered() int {
	return c.pending.len()
}

func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.IsConnected() {
		c.pending.push(pendingMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return nil
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		c.pending.push(pendingMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		c.pending.push(pendingMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishState sends a blinds state event.
func (c *RealClient) PublishState(ev logic.StateEvent) error {
	payload, err := FormatState(ev)
	if err != nil {
		return fmt.Errorf("format state: %w", err)
	}
	return c.publish(c.topics.State, 0, false, payload)
}

// PublishConfig sends the settings snapshot, retained.
func (c *RealClient) PublishConfig(r config.Report) error {
	payload, err := FormatConfig(r)
	if err != nil {
		return fmt.Errorf("format config: %w", err)
	}
	return c.publish(c.topics.Config, 0, true, payload)
}

// PublishSystem sends an app state or lifecycle event.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 so shutdown reports are delivered.
	return c.publish(c.topics.AppState, 1, event.Retained, payload)
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000)
	c.connected.Store(false)
	return nil
}
