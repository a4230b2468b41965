package mqtt

import (
	"sync"

	"github.com/sweeney/blinds-control/internal/config"
	"github.com/sweeney/blinds-control/internal/logic"
)

// FakeClient records published messages for test assertions.
type FakeClient struct {
	mu sync.Mutex

	// States contains all state events that were published.
	States []logic.StateEvent

	// StatePayloads contains the JSON payloads for state events.
	StatePayloads [][]byte

	// Configs contains all settings snapshots that were published.
	Configs []config.Report

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// PublishError, if set, is returned by every publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	handler Handler
}

// NewFakeClient creates a FakeClient delivering Inject calls to handler.
func NewFakeClient(handler Handler) *FakeClient {
	return &FakeClient{handler: handler, Connected: true}
}

// Inject delivers an incoming message as the broker would.
func (f *FakeClient) Inject(topic, payload string) {
	if f.handler != nil {
		f.handler(Message{Topic: topic, Payload: payload})
	}
}

// PublishState records the state event.
func (f *FakeClient) PublishState(ev logic.StateEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatState(ev)
	if err != nil {
		return err
	}
	f.States = append(f.States, ev)
	f.StatePayloads = append(f.StatePayloads, payload)
	return nil
}

// PublishConfig records the settings snapshot.
func (f *FakeClient) PublishConfig(r config.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Configs = append(f.Configs, r)
	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetConnected changes the reported connection state.
func (f *FakeClient) SetConnected(v bool) {
	f.mu.Lock()
	f.Connected = v
	f.mu.Unlock()
}

// Snapshot returns copies of the recorded state events and system events.
func (f *FakeClient) Snapshot() ([]logic.StateEvent, []SystemEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logic.StateEvent(nil), f.States...), append([]SystemEvent(nil), f.SystemEvents...)
}

// ConfigCount returns the number of settings snapshots published.
func (f *FakeClient) ConfigCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Configs)
}
