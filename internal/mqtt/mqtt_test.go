package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/blinds-control/internal/config"
	"github.com/sweeney/blinds-control/internal/logic"
)

func intPtr(v int) *int { return &v }

func TestFormatState(t *testing.T) {
	tests := []struct {
		name string
		ev   logic.StateEvent
		want string
	}{
		{"open with percentage", logic.StateEvent{Closed: false, Percentage: intPtr(50)}, `{"state":"open","percentage":50}`},
		{"closed at zero", logic.StateEvent{Closed: true, Percentage: intPtr(0)}, `{"state":"closed","percentage":0}`},
		{"unknown percentage", logic.StateEvent{Closed: false}, `{"state":"open","percentage":"-"}`},
		{"closed unknown", logic.StateEvent{Closed: true}, `{"state":"closed","percentage":"-"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatState(tt.ev)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatConfigKeys(t *testing.T) {
	payload, err := FormatConfig(config.DefaultSettings().Report())
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{
		"AllowRemoteControl", "AllowRemoteBleep", "MinLuxReportDelta", "LuxInterval",
		"TempInterval", "StateInterval", "DebounceDurSwitches", "DebounceDurMotor",
		"RotationLimits", "ClosedRotationOffset", "OpenDuration", "MaxOpenRotations",
		"MaxCurrentLimit", "MaxRunDuration", "SSID",
	} {
		if _, ok := parsed[key]; !ok {
			t.Errorf("missing key %s", key)
		}
	}
	if _, ok := parsed["Password"]; ok {
		t.Error("password must not be published")
	}
	if parsed["MaxRunDuration"] != float64(60) {
		t.Errorf("MaxRunDuration = %v", parsed["MaxRunDuration"])
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"OFFLINE","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	payload, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.FixedZone("CET", 3600)),
		Event:     "RECONNECTED",
	})
	expected := `{"system":{"timestamp":"2026-02-10T13:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STATE"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STATE", RawPayload: raw})
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != string(raw) {
		t.Errorf("got %s, want raw payload", payload)
	}
}

func TestFakeClientRecords(t *testing.T) {
	var got []Message
	f := NewFakeClient(func(m Message) { got = append(got, m) })

	if err := f.PublishState(logic.StateEvent{Closed: true, Percentage: intPtr(0)}); err != nil {
		t.Fatal(err)
	}
	if err := f.PublishConfig(config.DefaultSettings().Report()); err != nil {
		t.Fatal(err)
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatal(err)
	}

	states, systems := f.Snapshot()
	if len(states) != 1 || !states[0].Closed {
		t.Errorf("states = %+v", states)
	}
	if string(f.StatePayloads[0]) != `{"state":"closed","percentage":0}` {
		t.Errorf("state payload = %s", f.StatePayloads[0])
	}
	if f.ConfigCount() != 1 {
		t.Errorf("configs = %d", f.ConfigCount())
	}
	if len(systems) != 1 || !systems[0].Retained {
		t.Errorf("system events = %+v", systems)
	}

	f.Inject("livingroom/blinds/action", "open:50")
	if len(got) != 1 || got[0].Payload != "open:50" {
		t.Errorf("handler got %+v", got)
	}
}

func TestFakeClientError(t *testing.T) {
	f := NewFakeClient(nil)
	f.PublishError = errors.New("broker down")

	if err := f.PublishState(logic.StateEvent{}); err == nil {
		t.Error("expected error from PublishState")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected error from PublishSystem")
	}
	if states, _ := f.Snapshot(); len(states) != 0 {
		t.Error("failed publish should not be recorded")
	}
	f.Inject("x", "y") // nil handler must not panic
}

func TestFakeClientConnection(t *testing.T) {
	f := NewFakeClient(nil)
	var status ConnectionStatus = f
	if !status.IsConnected() {
		t.Error("fake should start connected")
	}
	f.SetConnected(false)
	if status.IsConnected() {
		t.Error("expected disconnected")
	}
	f.Close()
	if !f.Closed {
		t.Error("expected Closed")
	}
}

func TestClientInterfaces(t *testing.T) {
	var _ Client = (*RealClient)(nil)
	var _ ConnectionStatus = (*RealClient)(nil)
	var _ Client = (*FakeClient)(nil)
}
