// Package mqtt connects the blinds to the MQTT bus: it publishes state,
// settings and app state, and delivers incoming actions, app commands and
// notification patterns to a handler.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/blinds-control/internal/config"
	"github.com/sweeney/blinds-control/internal/logic"
)

// Client is the MQTT surface used by the daemon. Publish failures are
// returned but must never crash the process.
type Client interface {
	// PublishState sends a blinds state event.
	PublishState(ev logic.StateEvent) error

	// PublishConfig sends the settings snapshot, retained.
	PublishConfig(r config.Report) error

	// PublishSystem sends an app state or lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Message is an incoming message on one of the subscribed topics.
type Message struct {
	Topic   string
	Payload string
}

// Handler receives incoming messages. It runs on the client's network
// goroutine and must not block.
type Handler func(Message)

// SystemEvent is an app state report or lifecycle event (startup, shutdown,
// offline).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "STATE"
	Reason     string
	RawPayload []byte // pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// StatePayload is the JSON body published on the state topic.
type StatePayload struct {
	State string `json:"state"`
	// Percentage is an integer, or "-" when unknown.
	Percentage any `json:"percentage"`
}

// FormatState creates the JSON payload for a state event.
func FormatState(ev logic.StateEvent) ([]byte, error) {
	payload := StatePayload{State: ev.StateName(), Percentage: "-"}
	if ev.Percentage != nil {
		payload.Percentage = *ev.Percentage
	}
	return json.Marshal(payload)
}

// FormatConfig creates the JSON payload for the settings snapshot.
func FormatConfig(r config.Report) ([]byte, error) {
	return json.Marshal(r)
}

// SystemPayload is used for simple events that carry no status snapshot,
// such as the last will.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
