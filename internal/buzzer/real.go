//go:build linux

package buzzer

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOLine drives an active buzzer through the GPIO character device.
type GPIOLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewGPIOLine claims offset on chipName as an output, initially off.
func NewGPIOLine(chipName string, offset int) (*GPIOLine, error) {
	if chipName == "" {
		chipName = "gpiochip0"
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request buzzer pin %d: %w", offset, err)
	}
	return &GPIOLine{chip: chip, line: line}, nil
}

// SetValue sets the buzzer level.
func (g *GPIOLine) SetValue(v int) error {
	return g.line.SetValue(v)
}

// Close turns the buzzer off and releases the line.
func (g *GPIOLine) Close() error {
	var errs []error
	if err := g.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("clear buzzer pin: %w", err))
	}
	if err := g.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close buzzer pin: %w", err))
	}
	if err := g.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
