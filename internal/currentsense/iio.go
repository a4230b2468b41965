package currentsense

import (
	"fmt"
	"os"
)

// DefaultIIOPath is the first channel of the first IIO ADC.
const DefaultIIOPath = "/sys/bus/iio/devices/iio:device0/in_voltage0_raw"

// IIOSensor reads a raw ADC value from a sysfs attribute. Each read is a
// single small file read.
type IIOSensor struct {
	path string
}

// NewIIOSensor checks that path is readable.
func NewIIOSensor(path string) (*IIOSensor, error) {
	if path == "" {
		path = DefaultIIOPath
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("currentsense: iio attribute: %w", err)
	}
	return &IIOSensor{path: path}, nil
}

// ReadCurrent reads the attribute.
func (s *IIOSensor) ReadCurrent() (int, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("currentsense: read %s: %w", s.path, err)
	}
	return parseReading(string(b))
}

// Close is a no-op.
func (s *IIOSensor) Close() error {
	return nil
}
