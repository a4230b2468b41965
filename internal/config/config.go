// Package config loads the boot configuration and keeps the runtime
// settings that can be changed over MQTT.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/blinds-control/internal/currentsense"
	"github.com/sweeney/blinds-control/internal/gpio"
	"github.com/sweeney/blinds-control/internal/logic"
)

// PinsConfig holds the BCM offsets of every line used.
type PinsConfig struct {
	ButtonOpen  int `yaml:"button_open"`
	ButtonClose int `yaml:"button_close"`
	LimitOpened int `yaml:"limit_opened"`
	LimitClosed int `yaml:"limit_closed"`
	Rotation    int `yaml:"rotation"`
	EnableLeft  int `yaml:"enable_left"`
	EnableRight int `yaml:"enable_right"`
	PWMOpen     int `yaml:"pwm_open"`  // must be a hardware PWM capable pin
	PWMClose    int `yaml:"pwm_close"` // must be a hardware PWM capable pin
	Buzzer      int `yaml:"buzzer"`    // -1 = no buzzer fitted
}

// GPIOConfig describes the GPIO chip and wiring.
type GPIOConfig struct {
	Chip         string     `yaml:"chip"`
	Pins         PinsConfig `yaml:"pins"`
	PWMFrequency int        `yaml:"pwm_frequency_hz"`
}

// MQTTConfig describes the broker connection and topic names.
type MQTTConfig struct {
	Broker   string       `yaml:"broker"`
	ClientID string       `yaml:"client_id"`
	Username string       `yaml:"username"`
	Password string       `yaml:"password"`
	Topics   TopicsConfig `yaml:"topics"`
}

// TopicsConfig holds the MQTT topic names.
type TopicsConfig struct {
	State    string `yaml:"state"`
	Config   string `yaml:"config"`
	AppState string `yaml:"app_state"`
	Action   string `yaml:"action"`
	AppCmd   string `yaml:"appcmd"`
	Notify   string `yaml:"notify"`
}

// Config aggregates the boot configuration.
type Config struct {
	GPIO         GPIOConfig          `yaml:"gpio"`
	MQTT         MQTTConfig          `yaml:"mqtt"`
	HTTPAddr     string              `yaml:"http_addr"`
	StateFile    string              `yaml:"state_file"`
	CurrentSense currentsense.Config `yaml:"current_sense"`

	PollMs          int `yaml:"poll_ms"`           // control task period
	LimitSamples    int `yaml:"limit_samples"`     // limit switch debounce window
	NetRestartGrace int `yaml:"net_restart_grace"` // seconds offline before restart, 0 = never
}

// Defaults used when a key is absent from the file.
const (
	DefaultChip            = "gpiochip0"
	DefaultPWMFrequency    = 20000
	DefaultBroker          = "tcp://localhost:1883"
	DefaultClientID        = "blinds-control"
	DefaultHTTPAddr        = ":80"
	DefaultStateFile       = "/var/lib/blinds-control/state.yaml"
	DefaultPollMs          = 5
	DefaultLimitSamples    = logic.DefaultLimitSamples
	DefaultNetRestartGrace = 300
)

// DefaultTopics returns the standard topic names.
func DefaultTopics() TopicsConfig {
	return TopicsConfig{
		State:    "livingroom/blinds/state",
		Config:   "livingroom/blinds/config",
		AppState: "livingroom/blinds/app_state",
		Action:   "livingroom/blinds/action",
		AppCmd:   "livingroom/blinds/appcmd",
		Notify:   "all/notify/bleep",
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	in := gpio.DefaultLines()
	return &Config{
		GPIO: GPIOConfig{
			Chip: DefaultChip,
			Pins: PinsConfig{
				ButtonOpen:  in.ButtonOpen,
				ButtonClose: in.ButtonClose,
				LimitOpened: in.LimitOpened,
				LimitClosed: in.LimitClosed,
				Rotation:    in.Rotation,
				EnableLeft:  17,
				EnableRight: 27,
				PWMOpen:     12,
				PWMClose:    13,
				Buzzer:      22,
			},
			PWMFrequency: DefaultPWMFrequency,
		},
		MQTT: MQTTConfig{
			Broker:   DefaultBroker,
			ClientID: DefaultClientID,
			Topics:   DefaultTopics(),
		},
		HTTPAddr:        DefaultHTTPAddr,
		StateFile:       DefaultStateFile,
		CurrentSense:    currentsense.Config{Source: currentsense.SourceNone},
		PollMs:          DefaultPollMs,
		LimitSamples:    DefaultLimitSamples,
		NetRestartGrace: DefaultNetRestartGrace,
	}
}

// Load reads a YAML file onto the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = DefaultChip
	}
	if c.GPIO.PWMFrequency <= 0 {
		c.GPIO.PWMFrequency = DefaultPWMFrequency
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultClientID
	}
	c.MQTT.Topics = fillTopics(c.MQTT.Topics)
	if c.PollMs <= 0 {
		c.PollMs = DefaultPollMs
	}
	if c.LimitSamples <= 0 {
		c.LimitSamples = DefaultLimitSamples
	}
	if c.LimitSamples > logic.MaxShiftSamples {
		return fmt.Errorf("limit_samples must be <= %d, got %d", logic.MaxShiftSamples, c.LimitSamples)
	}
	if c.NetRestartGrace < 0 {
		return fmt.Errorf("net_restart_grace must be >= 0, got %d", c.NetRestartGrace)
	}
	if c.StateFile == "" {
		return fmt.Errorf("state_file is required")
	}

	p := c.GPIO.Pins
	seen := map[int]string{}
	for name, pin := range map[string]int{
		"button_open": p.ButtonOpen, "button_close": p.ButtonClose,
		"limit_opened": p.LimitOpened, "limit_closed": p.LimitClosed,
		"rotation": p.Rotation, "enable_left": p.EnableLeft,
		"enable_right": p.EnableRight, "pwm_open": p.PWMOpen,
		"pwm_close": p.PWMClose, "buzzer": p.Buzzer,
	} {
		if pin < 0 {
			if name == "buzzer" {
				continue
			}
			return fmt.Errorf("pins.%s must be >= 0, got %d", name, pin)
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("pins.%s and pins.%s both use pin %d", name, other, pin)
		}
		seen[pin] = name
	}

	switch c.CurrentSense.Source {
	case "", currentsense.SourceNone, currentsense.SourceIIO, currentsense.SourceSerial:
	default:
		return fmt.Errorf("current_sense.source must be none, iio or serial, got %q", c.CurrentSense.Source)
	}
	return nil
}

func fillTopics(t TopicsConfig) TopicsConfig {
	d := DefaultTopics()
	if t.State == "" {
		t.State = d.State
	}
	if t.Config == "" {
		t.Config = d.Config
	}
	if t.AppState == "" {
		t.AppState = d.AppState
	}
	if t.Action == "" {
		t.Action = d.Action
	}
	if t.AppCmd == "" {
		t.AppCmd = d.AppCmd
	}
	if t.Notify == "" {
		t.Notify = d.Notify
	}
	return t
}

// Poll returns the control task period.
func (c *Config) Poll() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}

// RestartGrace returns how long the network may stay down before restart.
func (c *Config) RestartGrace() time.Duration {
	return time.Duration(c.NetRestartGrace) * time.Second
}
