package logic

import "time"

// MaxShiftSamples is the widest window a ShiftDebouncer supports.
const MaxShiftSamples = 16

// ShiftDebouncer accepts a level once it has been seen active for N
// consecutive samples. After reporting it starts counting from scratch.
type ShiftDebouncer struct {
	reg  uint16
	mask uint16
}

// NewShiftDebouncer creates a debouncer with a window of n samples,
// clamped to [1, MaxShiftSamples].
func NewShiftDebouncer(n int) *ShiftDebouncer {
	if n < 1 {
		n = 1
	}
	if n > MaxShiftSamples {
		n = MaxShiftSamples
	}
	return &ShiftDebouncer{mask: uint16((uint32(1) << n) - 1)}
}

// Sample shifts in one reading and reports whether the window is full of
// active samples.
func (d *ShiftDebouncer) Sample(active bool) bool {
	d.reg <<= 1
	if active {
		d.reg |= 1
	}
	if d.reg&d.mask == d.mask {
		d.reg = 0
		return true
	}
	return false
}

// Reset clears the shift register.
func (d *ShiftDebouncer) Reset() {
	d.reg = 0
}

// EdgeDebouncer suppresses repeat triggers inside a time window. Only the
// first trigger in each window is accepted.
type EdgeDebouncer struct {
	last time.Time
	seen bool
}

// Accept reports whether a trigger at now falls outside the window opened by
// the last accepted trigger. Accepted triggers open a new window.
func (d *EdgeDebouncer) Accept(now time.Time, window time.Duration) bool {
	if d.seen && now.Sub(d.last) <= window {
		return false
	}
	d.last = now
	d.seen = true
	return true
}

// Last returns the time of the last accepted trigger.
func (d *EdgeDebouncer) Last() time.Time {
	return d.last
}
