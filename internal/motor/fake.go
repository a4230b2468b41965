package motor

import "errors"

// DutyWrite is one recorded SetDuty call.
type DutyWrite struct {
	Channel Channel
	Duty    uint32
}

// FakePins records every write for tests.
type FakePins struct {
	Enabled bool
	Duty    [2]uint32
	Writes  []DutyWrite
	Closed  bool

	// EnableError, if set, is returned by SetEnable.
	EnableError error
	// DutyError, if set, is returned by SetDuty.
	DutyError error
}

// NewFakePins creates fake pins in the off state.
func NewFakePins() *FakePins {
	return &FakePins{}
}

// SetEnable records the enable level.
func (f *FakePins) SetEnable(on bool) error {
	if f.EnableError != nil {
		return f.EnableError
	}
	f.Enabled = on
	return nil
}

// SetDuty records the duty write.
func (f *FakePins) SetDuty(ch Channel, duty uint32) error {
	if f.DutyError != nil {
		return f.DutyError
	}
	if duty > MaxDuty {
		return errors.New("duty out of range")
	}
	f.Duty[ch] = duty
	f.Writes = append(f.Writes, DutyWrite{Channel: ch, Duty: duty})
	return nil
}

// Close marks the pins closed and off.
func (f *FakePins) Close() error {
	f.Enabled = false
	f.Duty = [2]uint32{}
	f.Closed = true
	return nil
}

// Running reports whether the bridge would conduct.
func (f *FakePins) Running() bool {
	return f.Enabled && (f.Duty[ChannelOpen] > 0 || f.Duty[ChannelClose] > 0)
}
