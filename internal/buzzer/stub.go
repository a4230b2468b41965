//go:build !linux

package buzzer

import "errors"

// GPIOLine is not available on non-Linux platforms.
type GPIOLine struct{}

// NewGPIOLine returns an error on non-Linux platforms.
func NewGPIOLine(chipName string, offset int) (*GPIOLine, error) {
	return nil, errors.New("buzzer: not supported on this platform (requires Linux)")
}

// SetValue is not implemented on non-Linux platforms.
func (g *GPIOLine) SetValue(v int) error {
	return errors.New("buzzer: not supported")
}

// Close is not implemented on non-Linux platforms.
func (g *GPIOLine) Close() error {
	return nil
}
