//go:build !linux

package motor

import "errors"

// PinConfig is the BCM numbering of the H-bridge pins.
type PinConfig struct {
	Chip        string
	EnableLeft  int
	EnableRight int
	PWMOpen     int
	PWMClose    int
	Frequency   int
}

// RealPins is not available on non-Linux platforms.
type RealPins struct{}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(cfg PinConfig) (*RealPins, error) {
	return nil, errors.New("motor: not supported on this platform (requires Linux)")
}

// SetEnable is not implemented on non-Linux platforms.
func (p *RealPins) SetEnable(on bool) error {
	return errors.New("motor: not supported")
}

// SetDuty is not implemented on non-Linux platforms.
func (p *RealPins) SetDuty(ch Channel, duty uint32) error {
	return errors.New("motor: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *RealPins) Close() error {
	return nil
}
