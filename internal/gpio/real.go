//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"

	"github.com/sweeney/blinds-control/internal/logic"
)

// RealReader reads the inputs from actual hardware using the Linux GPIO
// character device. Button and rotation edges are delivered to an EdgeSink.
type RealReader struct {
	chip        *gpiocdev.Chip
	buttonOpen  *gpiocdev.Line
	buttonClose *gpiocdev.Line
	limitOpened *gpiocdev.Line
	limitClosed *gpiocdev.Line
	rotation    *gpiocdev.Line
}

// NewRealReader claims the input lines on chipName and starts edge
// watching. sink receives button presses and rotation pulses, both on the
// falling edge of the pulled-up line.
func NewRealReader(chipName string, lines Lines, sink EdgeSink) (*RealReader, error) {
	if chipName == "" {
		chipName = "gpiochip0"
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	r := &RealReader{chip: chip}
	clock := newEventClock()

	buttonHandler := func(b logic.Button) func(gpiocdev.LineEvent) {
		return func(evt gpiocdev.LineEvent) {
			sink.ButtonEdge(b, clock.at(evt.Timestamp, time.Now()))
		}
	}

	if r.buttonOpen, err = chip.RequestLine(lines.ButtonOpen,
		gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(buttonHandler(logic.ButtonOpen))); err != nil {
		r.Close()
		return nil, fmt.Errorf("request open button pin %d: %w", lines.ButtonOpen, err)
	}
	if r.buttonClose, err = chip.RequestLine(lines.ButtonClose,
		gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(buttonHandler(logic.ButtonClose))); err != nil {
		r.Close()
		return nil, fmt.Errorf("request close button pin %d: %w", lines.ButtonClose, err)
	}
	if r.rotation, err = chip.RequestLine(lines.Rotation,
		gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			sink.RotationPulse(clock.at(evt.Timestamp, time.Now()))
		})); err != nil {
		r.Close()
		return nil, fmt.Errorf("request rotation pin %d: %w", lines.Rotation, err)
	}
	if r.limitOpened, err = chip.RequestLine(lines.LimitOpened, gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		r.Close()
		return nil, fmt.Errorf("request opened limit pin %d: %w", lines.LimitOpened, err)
	}
	if r.limitClosed, err = chip.RequestLine(lines.LimitClosed, gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		r.Close()
		return nil, fmt.Errorf("request closed limit pin %d: %w", lines.LimitClosed, err)
	}

	return r, nil
}

// newEventClock samples CLOCK_MONOTONIC, which gpiocdev uses for line
// event timestamps by default.
func newEventClock() eventClock {
	wall := time.Now()
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return eventClock{}
	}
	return eventClock{wall: wall, mono: time.Duration(ts.Nano())}
}

// ReadSwitches returns the logical limit switch states.
func (r *RealReader) ReadSwitches() (bool, bool, error) {
	opened, err := readActiveLow(r.limitOpened)
	if err != nil {
		return false, false, fmt.Errorf("read opened limit: %w", err)
	}
	closed, err := readActiveLow(r.limitClosed)
	if err != nil {
		return false, false, fmt.Errorf("read closed limit: %w", err)
	}
	return opened, closed, nil
}

// ReadButtons returns the logical button states.
func (r *RealReader) ReadButtons() (bool, bool, error) {
	open, err := readActiveLow(r.buttonOpen)
	if err != nil {
		return false, false, fmt.Errorf("read open button: %w", err)
	}
	closeBtn, err := readActiveLow(r.buttonClose)
	if err != nil {
		return false, false, fmt.Errorf("read close button: %w", err)
	}
	return open, closeBtn, nil
}

// readActiveLow inverts raw GPIO: raw 0 = active.
func readActiveLow(l *gpiocdev.Line) (bool, error) {
	v, err := l.Value()
	if err != nil {
		return false, err
	}
	return v == 0, nil
}

// Close releases GPIO resources. Lines are reconfigured to plain inputs
// with pull-up before closing so the switches stay at their idle level.
func (r *RealReader) Close() error {
	var errs []error

	lines := []struct {
		name string
		line *gpiocdev.Line
	}{
		{"open button", r.buttonOpen},
		{"close button", r.buttonClose},
		{"rotation", r.rotation},
		{"opened limit", r.limitOpened},
		{"closed limit", r.limitClosed},
	}
	for _, l := range lines {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
