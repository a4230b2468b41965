package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, "mqtt:\n  broker: tcp://broker:1883\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("broker = %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.ClientID != DefaultClientID {
		t.Errorf("client id = %q, want default", cfg.MQTT.ClientID)
	}
	if cfg.MQTT.Topics != DefaultTopics() {
		t.Errorf("topics = %+v, want defaults", cfg.MQTT.Topics)
	}
	if cfg.GPIO.Pins.LimitClosed != 24 {
		t.Errorf("limit_closed = %d, want 24", cfg.GPIO.Pins.LimitClosed)
	}
	if cfg.Poll() != 5*time.Millisecond {
		t.Errorf("Poll() = %v", cfg.Poll())
	}
	if cfg.LimitSamples != DefaultLimitSamples {
		t.Errorf("limit samples = %d", cfg.LimitSamples)
	}
}

func TestLoadPartialTopics(t *testing.T) {
	path := writeFile(t, "mqtt:\n  topics:\n    action: house/blinds/cmd\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MQTT.Topics.Action != "house/blinds/cmd" {
		t.Errorf("action topic = %q", cfg.MQTT.Topics.Action)
	}
	if cfg.MQTT.Topics.State != DefaultTopics().State {
		t.Errorf("state topic = %q, want default", cfg.MQTT.Topics.State)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"duplicate pin", "gpio:\n  pins:\n    buzzer: 5\n", "both use pin 5"},
		{"negative pin", "gpio:\n  pins:\n    rotation: -2\n", "pins.rotation"},
		{"sense source", "current_sense:\n  source: spi\n", "current_sense.source"},
		{"samples", "limit_samples: 100\n", "limit_samples"},
		{"grace", "net_restart_grace: -1\n", "net_restart_grace"},
		{"yaml", "gpio: [\n", "unmarshal yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadNoBuzzer(t *testing.T) {
	cfg, err := Load(writeFile(t, "gpio:\n  pins:\n    buzzer: -1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GPIO.Pins.Buzzer != -1 {
		t.Errorf("buzzer = %d", cfg.GPIO.Pins.Buzzer)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
