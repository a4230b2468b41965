//go:build linux

package system

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// RealRebooter restarts the machine through the reboot syscall. Requires
// CAP_SYS_BOOT.
type RealRebooter struct{}

// Reboot flushes filesystem buffers and restarts.
func (RealRebooter) Reboot() error {
	unix.Sync()
	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return fmt.Errorf("reboot: %w", err)
	}
	return nil
}
