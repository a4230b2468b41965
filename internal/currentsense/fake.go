package currentsense

import "sync"

// FakeSensor returns a settable reading.
type FakeSensor struct {
	mu    sync.Mutex
	value int
	err   error
	reads int

	Closed bool
}

// NewFakeSensor creates a sensor reporting value.
func NewFakeSensor(value int) *FakeSensor {
	return &FakeSensor{value: value}
}

// Set changes the reading and error returned from now on.
func (f *FakeSensor) Set(value int, err error) {
	f.mu.Lock()
	f.value, f.err = value, err
	f.mu.Unlock()
}

// ReadCurrent returns the configured reading.
func (f *FakeSensor) ReadCurrent() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.value, f.err
}

// Reads returns the number of ReadCurrent calls.
func (f *FakeSensor) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Close marks the sensor closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	return nil
}
