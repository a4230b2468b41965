// Package buzzer plays notification patterns on an active buzzer.
//
// A pattern is "<repeats>x<dur>.<dur>..." where repeats is 1-9 and each dur
// is a multiplier of the base tone length. A zero or non-numeric dur is a
// silent gap.
package buzzer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timing of a pattern.
const (
	ToneUnit     = 80 * time.Millisecond
	ToneGap      = 110 * time.Millisecond
	SilentGap    = 300 * time.Millisecond
	RepeatGap    = 200 * time.Millisecond
	maxDurDigits = 4
)

// ErrPattern reports a malformed pattern.
var ErrPattern = errors.New("buzzer: malformed pattern")

// Step is one buzzer level held for Dur.
type Step struct {
	On  bool
	Dur time.Duration
}

// Parse expands a pattern into steps.
func Parse(pattern string) ([]Step, error) {
	pattern = strings.TrimSpace(pattern)
	if len(pattern) < 2 || pattern[1] != 'x' {
		return nil, fmt.Errorf("%w: %q", ErrPattern, pattern)
	}
	repeats := int(pattern[0] - '0')
	if repeats < 1 || repeats > 9 {
		return nil, fmt.Errorf("%w: repeat count %q", ErrPattern, pattern[:1])
	}

	var once []Step
	for _, seg := range strings.Split(pattern[2:], ".") {
		n := segmentDuration(seg)
		if n == 0 {
			once = append(once, Step{On: false, Dur: SilentGap})
			continue
		}
		once = append(once,
			Step{On: true, Dur: time.Duration(n) * ToneUnit},
			Step{On: false, Dur: ToneGap},
		)
	}

	steps := make([]Step, 0, repeats*(len(once)+1))
	for i := 0; i < repeats; i++ {
		if i > 0 {
			steps = append(steps, Step{On: false, Dur: RepeatGap})
		}
		steps = append(steps, once...)
	}
	return steps, nil
}

// segmentDuration keeps the first four digits of seg.
func segmentDuration(seg string) int {
	var digits []byte
	for i := 0; i < len(seg) && len(digits) < maxDurDigits; i++ {
		if seg[i] >= '0' && seg[i] <= '9' {
			digits = append(digits, seg[i])
		}
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0
	}
	return n
}

// Duration returns the total play time of steps.
func Duration(steps []Step) time.Duration {
	var d time.Duration
	for _, s := range steps {
		d += s.Dur
	}
	return d
}
