// Package system restarts the device.
package system

// Rebooter restarts the device. On success Reboot does not return.
type Rebooter interface {
	Reboot() error
}

// PatternRestart is played before a requested restart.
const PatternRestart = "2x1.1.0"

// Start reasons reported in the app state.
const (
	ReasonBoot           = "boot"
	ReasonServiceRestart = "service_restart"
	ReasonUnknown        = "unknown"
)

// bootWindowSeconds is how long after machine boot a start counts as a boot.
const bootWindowSeconds = 180
