// Package netwatch decides when a device that lost its network should
// restart to recover.
package netwatch

import "time"

// PatternNetworkRestart is played before a network restart.
const PatternNetworkRestart = "2x2.1.0"

// Watchdog tracks how long the network has been down. A restart is only
// requested once the outage exceeds the grace period and the motor is idle.
type Watchdog struct {
	grace     time.Duration
	downSince time.Time
	fired     bool
}

// New creates a watchdog. A zero grace disables restarts.
func New(grace time.Duration) *Watchdog {
	return &Watchdog{grace: grace}
}

// Check records the connectivity seen at now and reports whether the
// device should restart. It returns true at most once per outage.
func (w *Watchdog) Check(now time.Time, online, motorRunning bool) bool {
	if online {
		w.downSince = time.Time{}
		w.fired = false
		return false
	}
	if w.downSince.IsZero() {
		w.downSince = now
	}
	if w.grace <= 0 || w.fired || motorRunning {
		return false
	}
	if now.Sub(w.downSince) < w.grace {
		return false
	}
	w.fired = true
	return true
}

// Down returns how long the network has been down at now, 0 when online.
func (w *Watchdog) Down(now time.Time) time.Duration {
	if w.downSince.IsZero() {
		return 0
	}
	return now.Sub(w.downSince)
}
