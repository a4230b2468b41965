package gpio

import (
	"sync"
	"time"

	"github.com/sweeney/blinds-control/internal/logic"
)

// FakeReader is a test double with settable input levels. Press and Pulse
// emulate the edge handlers of the real reader.
type FakeReader struct {
	mu sync.Mutex

	opened, closed            bool
	openPressed, closePressed bool

	sink EdgeSink

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by every read.
	ReadError error
}

// NewFakeReader creates a FakeReader delivering edges to sink (may be nil).
func NewFakeReader(sink EdgeSink) *FakeReader {
	return &FakeReader{sink: sink}
}

// SetSwitches sets the logical limit switch levels.
func (f *FakeReader) SetSwitches(opened, closed bool) {
	f.mu.Lock()
	f.opened, f.closed = opened, closed
	f.mu.Unlock()
}

// Press sets a button level. Like the real reader, only a press delivers
// an edge.
func (f *FakeReader) Press(b logic.Button, pressed bool, now time.Time) {
	f.mu.Lock()
	if b == logic.ButtonOpen {
		f.openPressed = pressed
	} else {
		f.closePressed = pressed
	}
	sink := f.sink
	f.mu.Unlock()
	if pressed && sink != nil {
		sink.ButtonEdge(b, now)
	}
}

// Pulse delivers one rotation pulse at now.
func (f *FakeReader) Pulse(now time.Time) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	if sink != nil {
		sink.RotationPulse(now)
	}
}

// ReadSwitches returns the scripted limit switch levels.
func (f *FakeReader) ReadSwitches() (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, false, f.ReadError
	}
	return f.opened, f.closed, nil
}

// ReadButtons returns the scripted button levels.
func (f *FakeReader) ReadButtons() (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, false, f.ReadError
	}
	return f.openPressed, f.closePressed, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
