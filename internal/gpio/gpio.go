// Package gpio provides the blinds input lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device and turns
// line edges into timestamped signals; the fake allows testing without
// hardware.
package gpio

import (
	"time"

	"github.com/sweeney/blinds-control/internal/logic"
)

// Reader samples the limit switch and button levels. All inputs are wired
// active-low with pull-ups: raw 0 = logical active.
type Reader interface {
	// ReadSwitches returns (opened, closed, error).
	ReadSwitches() (bool, bool, error)
	// ReadButtons returns (openPressed, closePressed, error).
	ReadButtons() (bool, bool, error)
	// Close releases GPIO resources.
	Close() error
}

// EdgeSink receives edges from the event handlers. Implementations must only
// record the event; handlers run on the gpiocdev watcher goroutine.
// *logic.Signals satisfies it.
type EdgeSink interface {
	ButtonEdge(b logic.Button, now time.Time)
	RotationPulse(now time.Time)
}

// Lines holds the BCM offsets of the input lines.
type Lines struct {
	ButtonOpen  int
	ButtonClose int
	LimitOpened int
	LimitClosed int
	Rotation    int
}

// Pin definitions (BCM numbering)
const (
	PinButtonOpen  = 5
	PinButtonClose = 6
	PinLimitOpened = 23
	PinLimitClosed = 24
	PinRotation    = 25
)

// DefaultLines returns the standard wiring.
func DefaultLines() Lines {
	return Lines{
		ButtonOpen:  PinButtonOpen,
		ButtonClose: PinButtonClose,
		LimitOpened: PinLimitOpened,
		LimitClosed: PinLimitClosed,
		Rotation:    PinRotation,
	}
}

// eventClock maps kernel event timestamps (CLOCK_MONOTONIC, time since boot)
// onto time.Time. wall and mono are sampled together; the result keeps the
// monotonic reading of wall, so debounce windows compare correctly.
type eventClock struct {
	wall time.Time
	mono time.Duration
}

// at returns the time of an event stamped ts. Without a stamp or a sampled
// clock the arrival time is used.
func (c eventClock) at(ts time.Duration, arrival time.Time) time.Time {
	if ts <= 0 || c.wall.IsZero() {
		return arrival
	}
	return c.wall.Add(ts - c.mono)
}
