//go:build !linux

package system

// StartReason is always unknown on non-Linux platforms.
func StartReason() string {
	return ReasonUnknown
}
