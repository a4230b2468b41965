package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/blinds-control/internal/logic"
)

// MaxCredentialLen bounds the stored SSID and password.
const MaxCredentialLen = 64

// Upper bounds for the integer settings. They keep every derived
// time.Duration positive.
const (
	MaxDurationSeconds = 24 * 60 * 60
	MaxDebounceMs      = 60 * 1000
	MaxIntervalMinutes = 7 * 24 * 60
	MaxCount           = 1 << 20
)

// Default network credentials restored by "WiFiSetup:default".
const (
	DefaultSSID     = ""
	DefaultPassword = ""
)

// Settings are the runtime settings. Durations are stored in the units the
// remote commands use: milliseconds for debounce, seconds for run limits and
// minutes for report intervals.
type Settings struct {
	AllowRemoteControl   bool   `yaml:"allow_remote_control"`
	AllowRemoteBleep     bool   `yaml:"allow_remote_bleep"`
	LuxInterval          int    `yaml:"lux_interval"`
	MinLuxReportDelta    int    `yaml:"min_lux_report_delta"`
	TempInterval         int    `yaml:"temp_interval"`
	StateInterval        int    `yaml:"state_interval"`
	DebounceDurSwitches  int    `yaml:"debounce_switches_ms"`
	DebounceDurMotor     int    `yaml:"debounce_motor_ms"`
	RotationLimits       bool   `yaml:"rotation_limits"`
	OpenDuration         int    `yaml:"open_duration"`
	MaxOpenRotations     int    `yaml:"max_open_rotations"`
	ClosedRotationOffset int    `yaml:"closed_rotation_offset"`
	MaxCurrentLimit      int    `yaml:"max_current_limit"`
	MaxRunDuration       int    `yaml:"max_run_duration"`
	SSID                 string `yaml:"ssid"`
	Password             string `yaml:"password"`
}

// DefaultSettings returns the factory settings.
func DefaultSettings() Settings {
	return Settings{
		AllowRemoteControl:   true,
		AllowRemoteBleep:     true,
		LuxInterval:          0,
		MinLuxReportDelta:    10,
		TempInterval:         0,
		StateInterval:        10,
		DebounceDurSwitches:  150,
		DebounceDurMotor:     500,
		RotationLimits:       true,
		OpenDuration:         20,
		MaxOpenRotations:     20,
		ClosedRotationOffset: 0,
		MaxCurrentLimit:      0,
		MaxRunDuration:       60,
		SSID:                 DefaultSSID,
		Password:             DefaultPassword,
	}
}

// Safety returns the part of the settings the motion engine uses.
func (s Settings) Safety() logic.SafetyConfig {
	return logic.SafetyConfig{
		DebounceSwitches:   time.Duration(s.DebounceDurSwitches) * time.Millisecond,
		DebounceMotor:      time.Duration(s.DebounceDurMotor) * time.Millisecond,
		MaxRotations:       s.MaxOpenRotations,
		RotationLimits:     s.RotationLimits,
		OpenDuration:       time.Duration(s.OpenDuration) * time.Second,
		MaxRunDuration:     time.Duration(s.MaxRunDuration) * time.Second,
		ClosedOffset:       s.ClosedRotationOffset,
		MaxCurrent:         s.MaxCurrentLimit,
		AllowRemoteControl: s.AllowRemoteControl,
	}
}

// StateReportInterval returns the periodic app state interval, 0 = disabled.
func (s Settings) StateReportInterval() time.Duration {
	return time.Duration(s.StateInterval) * time.Minute
}

// Report is the published settings snapshot. The password is never included.
type Report struct {
	AllowRemoteControl   bool   `json:"AllowRemoteControl"`
	AllowRemoteBleep     bool   `json:"AllowRemoteBleep"`
	MinLuxReportDelta    int    `json:"MinLuxReportDelta"`
	LuxInterval          int    `json:"LuxInterval"`
	TempInterval         int    `json:"TempInterval"`
	StateInterval        int    `json:"StateInterval"`
	DebounceDurSwitches  int    `json:"DebounceDurSwitches"`
	DebounceDurMotor     int    `json:"DebounceDurMotor"`
	RotationLimits       bool   `json:"RotationLimits"`
	ClosedRotationOffset int    `json:"ClosedRotationOffset"`
	OpenDuration         int    `json:"OpenDuration"`
	MaxOpenRotations     int    `json:"MaxOpenRotations"`
	MaxCurrentLimit      int    `json:"MaxCurrentLimit"`
	MaxRunDuration       int    `json:"MaxRunDuration"`
	SSID                 string `json:"SSID"`
}

// Report returns the publishable snapshot.
func (s Settings) Report() Report {
	return Report{
		AllowRemoteControl:   s.AllowRemoteControl,
		AllowRemoteBleep:     s.AllowRemoteBleep,
		MinLuxReportDelta:    s.MinLuxReportDelta,
		LuxInterval:          s.LuxInterval,
		TempInterval:         s.TempInterval,
		StateInterval:        s.StateInterval,
		DebounceDurSwitches:  s.DebounceDurSwitches,
		DebounceDurMotor:     s.DebounceDurMotor,
		RotationLimits:       s.RotationLimits,
		ClosedRotationOffset: s.ClosedRotationOffset,
		OpenDuration:         s.OpenDuration,
		MaxOpenRotations:     s.MaxOpenRotations,
		MaxCurrentLimit:      s.MaxCurrentLimit,
		MaxRunDuration:       s.MaxRunDuration,
		SSID:                 s.SSID,
	}
}

// Errors returned by ParseCommand and Apply.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidValue   = errors.New("invalid value")
)

// CommandKind classifies an appcmd message.
type CommandKind int

const (
	CmdRestart CommandKind = iota + 1
	CmdGetState
	CmdGetConfig
	CmdSet
)

// Command is a parsed appcmd message.
type Command struct {
	Kind  CommandKind
	Key   string
	Value string
}

// ParseCommand parses "restart", "getstate", "getconfig" or "<Key>:<value>".
// Set commands are only checked for a known key here; Apply validates the
// value.
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "restart":
		return Command{Kind: CmdRestart}, nil
	case "getstate":
		return Command{Kind: CmdGetState}, nil
	case "getconfig":
		return Command{Kind: CmdGetConfig}, nil
	}

	key, value, ok := strings.Cut(s, ":")
	if !ok || key == "" {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	if _, known := setters[key]; !known {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, key)
	}
	return Command{Kind: CmdSet, Key: key, Value: value}, nil
}

type setter func(s *Settings, value string) error

type intField struct {
	key   string
	field func(*Settings) *int
	max   int
}

var intFields = []intField{
	{"LuxInterval", func(s *Settings) *int { return &s.LuxInterval }, MaxIntervalMinutes},
	{"MinLuxReportDelta", func(s *Settings) *int { return &s.MinLuxReportDelta }, MaxCount},
	{"TempInterval", func(s *Settings) *int { return &s.TempInterval }, MaxIntervalMinutes},
	{"StateInterval", func(s *Settings) *int { return &s.StateInterval }, MaxIntervalMinutes},
	{"DebounceDurSwitches", func(s *Settings) *int { return &s.DebounceDurSwitches }, MaxDebounceMs},
	{"DebounceDurMotor", func(s *Settings) *int { return &s.DebounceDurMotor }, MaxDebounceMs},
	{"OpenDuration", func(s *Settings) *int { return &s.OpenDuration }, MaxDurationSeconds},
	{"MaxOpenRotations", func(s *Settings) *int { return &s.MaxOpenRotations }, MaxCount},
	{"MaxCurrentLimit", func(s *Settings) *int { return &s.MaxCurrentLimit }, MaxCount},
	{"MaxRunDuration", func(s *Settings) *int { return &s.MaxRunDuration }, MaxDurationSeconds},
}

var setters = newSetters()

func newSetters() map[string]setter {
	m := map[string]setter{
		"AllowRemoteControl":   boolSetter(func(s *Settings) *bool { return &s.AllowRemoteControl }),
		"AllowRemoteBleep":     boolSetter(func(s *Settings) *bool { return &s.AllowRemoteBleep }),
		"RotationLimits":       boolSetter(func(s *Settings) *bool { return &s.RotationLimits }),
		"ClosedRotationOffset": setClosedOffset,
		"WiFiSetup":            setWiFi,
	}
	for _, f := range intFields {
		m[f.key] = intSetter(f.field, f.max)
	}
	return m
}

// Validate checks settings loaded from disk against the same limits Apply
// enforces.
func (s Settings) Validate() error {
	for _, f := range intFields {
		if n := *f.field(&s); n < 0 || n > f.max {
			return fmt.Errorf("%s: %w: %d outside 0..%d", f.key, ErrInvalidValue, n, f.max)
		}
	}
	if len(s.SSID) > MaxCredentialLen || len(s.Password) > MaxCredentialLen {
		return fmt.Errorf("WiFiSetup: %w: credentials longer than %d characters", ErrInvalidValue, MaxCredentialLen)
	}
	return nil
}

// Apply validates value and stores it under key. s is unchanged on error.
func (s *Settings) Apply(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, key)
	}
	next := *s
	if err := set(&next, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*s = next
	return nil
}

func boolSetter(field func(*Settings) *bool) setter {
	return func(s *Settings, value string) error {
		switch value {
		case "true", "1":
			*field(s) = true
		case "false", "0":
			*field(s) = false
		default:
			return fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, value)
		}
		return nil
	}
}

func intSetter(field func(*Settings) *int, limit int) setter {
	return func(s *Settings, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidValue, value)
		}
		if n > limit {
			return fmt.Errorf("%w: %d exceeds %d", ErrInvalidValue, n, limit)
		}
		*field(s) = n
		return nil
	}
}

// setClosedOffset accepts negative values, which disable the offset.
func setClosedOffset(s *Settings, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, value)
	}
	s.ClosedRotationOffset = n
	return nil
}

// setWiFi accepts "<ssid>/<password>" or "default".
func setWiFi(s *Settings, value string) error {
	if value == "default" {
		s.SSID = DefaultSSID
		s.Password = DefaultPassword
		return nil
	}
	ssid, password, ok := strings.Cut(value, "/")
	if !ok || ssid == "" {
		return fmt.Errorf("%w: expected <ssid>/<password>", ErrInvalidValue)
	}
	if len(ssid) > MaxCredentialLen || len(password) > MaxCredentialLen {
		return fmt.Errorf("%w: credentials longer than %d characters", ErrInvalidValue, MaxCredentialLen)
	}
	s.SSID = ssid
	s.Password = password
	return nil
}
