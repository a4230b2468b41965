// Package currentsense provides motor current readings. The IIO source reads
// a raw ADC channel from sysfs, the serial source reads a stream of readings
// from a USB ADC bridge, and the fake is used by tests.
package currentsense

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sensor returns the latest raw current reading. ReadCurrent is called from
// the control task and must not block for long.
type Sensor interface {
	ReadCurrent() (int, error)
	Close() error
}

// Source names accepted by New.
const (
	SourceNone   = "none"
	SourceIIO    = "iio"
	SourceSerial = "serial"
)

// ErrNoReading is returned before the first reading arrives or when the last
// one is stale.
var ErrNoReading = errors.New("currentsense: no recent reading")

// Config selects and configures a source.
type Config struct {
	Source string `yaml:"source"`
	// Path is the sysfs attribute for iio or the device for serial.
	Path string `yaml:"path"`
	Baud int    `yaml:"baud"`
}

// New opens the configured source. It returns (nil, nil) for SourceNone.
func New(cfg Config) (Sensor, error) {
	switch cfg.Source {
	case "", SourceNone:
		return nil, nil
	case SourceIIO:
		s, err := NewIIOSensor(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case SourceSerial:
		s, err := OpenSerialSensor(cfg.Path, cfg.Baud)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("currentsense: unknown source %q", cfg.Source)
	}
}

// parseReading parses one integer reading, tolerating surrounding space and
// a "key=value" prefix.
func parseReading(s string) (int, error) {
	s = strings.TrimSpace(s)
	if _, v, ok := strings.Cut(s, "="); ok {
		s = strings.TrimSpace(v)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("currentsense: parse %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("currentsense: negative reading %d", n)
	}
	return n, nil
}
