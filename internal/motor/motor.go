// Package motor drives the H-bridge that powers the blinds motor.
// Start is a soft-start ramp, Stop is an instant cut. The real pins use the
// Linux GPIO character device for the enable lines and the BCM PWM block for
// the duty cycle; the fake pins allow testing without hardware.
package motor

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/blinds-control/internal/logic"
)

// Channel selects one half of the H-bridge.
type Channel int

const (
	ChannelOpen Channel = iota
	ChannelClose
)

func (c Channel) String() string {
	if c == ChannelOpen {
		return "open"
	}
	return "close"
}

// MaxDuty is full scale duty.
const MaxDuty = 255

// Pins is the hardware boundary of the driver.
type Pins interface {
	// SetEnable drives both enable lines. The bridge only conducts with
	// both lines high.
	SetEnable(on bool) error
	// SetDuty sets the duty cycle of one channel, 0..MaxDuty.
	SetDuty(ch Channel, duty uint32) error
	// Close releases the pins in a safe (off) state.
	Close() error
}

// Ramp describes the soft start: duty goes from Floor to Ceiling in Step
// increments with Delay between writes.
type Ramp struct {
	Floor   uint32
	Ceiling uint32
	Step    uint32
	Delay   time.Duration
}

// DefaultRamp ramps from 50 to 255 in steps of 1 every 5ms.
func DefaultRamp() Ramp {
	return Ramp{Floor: 50, Ceiling: MaxDuty, Step: 1, Delay: 5 * time.Millisecond}
}

// Driver implements logic.Actuator on top of Pins.
type Driver struct {
	pins  Pins
	ramp  Ramp
	sleep func(time.Duration)

	duty    uint32
	channel Channel
}

// NewDriver creates a driver. A zero Step in ramp is treated as 1.
func NewDriver(pins Pins, ramp Ramp) *Driver {
	if ramp.Step == 0 {
		ramp.Step = 1
	}
	if ramp.Ceiling == 0 || ramp.Ceiling > MaxDuty {
		ramp.Ceiling = MaxDuty
	}
	return &Driver{pins: pins, ramp: ramp, sleep: time.Sleep}
}

// SetSleep replaces the delay function. Used by tests.
func (d *Driver) SetSleep(sleep func(time.Duration)) {
	d.sleep = sleep
}

// Duty returns the last duty written.
func (d *Driver) Duty() uint32 {
	return d.duty
}

// Start energises both enable lines and ramps the channel for dir. abort is
// checked before every step; when it reports true the ramp ends early with
// the motor still energised so the caller's stop path cuts it.
func (d *Driver) Start(dir logic.Action, abort func() bool) error {
	var ch Channel
	switch dir {
	case logic.ActionOpening:
		ch = ChannelOpen
	case logic.ActionClosing:
		ch = ChannelClose
	default:
		return fmt.Errorf("motor: cannot start in direction %s", dir)
	}
	other := ChannelClose
	if ch == ChannelClose {
		other = ChannelOpen
	}

	if err := d.pins.SetDuty(other, 0); err != nil {
		return fmt.Errorf("motor: clear %s channel: %w", other, err)
	}
	if err := d.pins.SetEnable(true); err != nil {
		return fmt.Errorf("motor: enable: %w", err)
	}
	d.channel = ch

	for duty := d.ramp.Floor; duty <= d.ramp.Ceiling; duty += d.ramp.Step {
		if abort != nil && abort() {
			return nil
		}
		if err := d.pins.SetDuty(ch, duty); err != nil {
			return fmt.Errorf("motor: set %s duty %d: %w", ch, duty, err)
		}
		d.duty = duty
		d.sleep(d.ramp.Delay)
	}
	return nil
}

// Stop disables both enable lines and zeroes both channels. Every write is
// attempted even if an earlier one fails.
func (d *Driver) Stop() error {
	var errs []error
	if err := d.pins.SetEnable(false); err != nil {
		errs = append(errs, fmt.Errorf("disable: %w", err))
	}
	if err := d.pins.SetDuty(ChannelOpen, 0); err != nil {
		errs = append(errs, fmt.Errorf("zero open channel: %w", err))
	}
	if err := d.pins.SetDuty(ChannelClose, 0); err != nil {
		errs = append(errs, fmt.Errorf("zero close channel: %w", err))
	}
	d.duty = 0

	if len(errs) > 0 {
		return fmt.Errorf("motor: stop: %w", errors.Join(errs...))
	}
	return nil
}
