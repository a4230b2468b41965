//go:build linux

package motor

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/warthog618/go-gpiocdev"
)

// PinConfig is the BCM numbering of the H-bridge pins.
type PinConfig struct {
	Chip        string
	EnableLeft  int
	EnableRight int
	PWMOpen     int
	PWMClose    int
	// Frequency is the PWM output frequency in Hz.
	Frequency int
}

// RealPins drives the enable lines through the GPIO character device and
// the duty cycle through the BCM PWM peripheral.
type RealPins struct {
	chip  *gpiocdev.Chip
	left  *gpiocdev.Line
	right *gpiocdev.Line
	pwm   [2]rpio.Pin
}

// NewRealPins claims the H-bridge pins. Requires /dev/gpiomem and PWM access
// (usually root).
func NewRealPins(cfg PinConfig) (*RealPins, error) {
	chipName := cfg.Chip
	if chipName == "" {
		chipName = "gpiochip0"
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	left, err := chip.RequestLine(cfg.EnableLeft, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request enable pin %d: %w", cfg.EnableLeft, err)
	}
	right, err := chip.RequestLine(cfg.EnableRight, gpiocdev.AsOutput(0))
	if err != nil {
		left.Close()
		chip.Close()
		return nil, fmt.Errorf("request enable pin %d: %w", cfg.EnableRight, err)
	}

	if err := rpio.Open(); err != nil {
		right.Close()
		left.Close()
		chip.Close()
		return nil, fmt.Errorf("open pwm: %w", err)
	}

	freq := cfg.Frequency
	if freq <= 0 {
		freq = 1000
	}
	p := &RealPins{chip: chip, left: left, right: right}
	for i, n := range []int{cfg.PWMOpen, cfg.PWMClose} {
		pin := rpio.Pin(n)
		pin.Pwm()
		// The PWM clock runs at cycle length times the output frequency.
		pin.Freq(freq * MaxDuty)
		pin.DutyCycle(0, MaxDuty)
		p.pwm[i] = pin
	}
	return p, nil
}

// SetEnable drives both enable lines.
func (p *RealPins) SetEnable(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := p.left.SetValue(v); err != nil {
		return fmt.Errorf("set left enable: %w", err)
	}
	if err := p.right.SetValue(v); err != nil {
		return fmt.Errorf("set right enable: %w", err)
	}
	return nil
}

// SetDuty sets the duty cycle of one channel.
func (p *RealPins) SetDuty(ch Channel, duty uint32) error {
	if duty > MaxDuty {
		return fmt.Errorf("duty %d out of range", duty)
	}
	p.pwm[ch].DutyCycle(duty, MaxDuty)
	return nil
}

// Close switches everything off and releases the pins. PWM pins are
// returned to inputs, enable lines are left low.
func (p *RealPins) Close() error {
	var errs []error

	for _, pin := range p.pwm {
		pin.DutyCycle(0, MaxDuty)
		pin.Input()
	}
	if err := rpio.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pwm: %w", err))
	}

	for name, line := range map[string]*gpiocdev.Line{"left": p.left, "right": p.right} {
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear %s enable: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s enable: %w", name, err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
