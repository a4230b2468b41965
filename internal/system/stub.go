//go:build !linux

package system

import "errors"

// RealRebooter is not available on non-Linux platforms.
type RealRebooter struct{}

// Reboot returns an error on non-Linux platforms.
func (RealRebooter) Reboot() error {
	return errors.New("system: reboot not supported on this platform (requires Linux)")
}
