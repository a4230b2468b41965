//go:build !linux

package gpio

import "errors"

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(chipName string, lines Lines, sink EdgeSink) (*RealReader, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadSwitches is not implemented on non-Linux platforms.
func (r *RealReader) ReadSwitches() (bool, bool, error) {
	return false, false, errors.New("gpio: not supported")
}

// ReadButtons is not implemented on non-Linux platforms.
func (r *RealReader) ReadButtons() (bool, bool, error) {
	return false, false, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}
