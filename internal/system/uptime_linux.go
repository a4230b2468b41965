//go:build linux

package system

import "golang.org/x/sys/unix"

// StartReason reports whether the process started with the machine or was
// restarted on a running machine.
func StartReason() string {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return ReasonUnknown
	}
	if int64(info.Uptime) < bootWindowSeconds {
		return ReasonBoot
	}
	return ReasonServiceRestart
}
