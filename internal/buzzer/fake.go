package buzzer

import "sync"

// FakeLine records every level written.
type FakeLine struct {
	mu     sync.Mutex
	values []int
	Closed bool
}

// SetValue records v.
func (f *FakeLine) SetValue(v int) error {
	f.mu.Lock()
	f.values = append(f.values, v)
	f.mu.Unlock()
	return nil
}

// Values returns a copy of the recorded levels.
func (f *FakeLine) Values() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.values...)
}

// Close marks the line closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// Recorder is an Alerter that only records patterns.
type Recorder struct {
	mu       sync.Mutex
	patterns []string
}

// Alert records pattern.
func (r *Recorder) Alert(pattern string) {
	r.mu.Lock()
	r.patterns = append(r.patterns, pattern)
	r.mu.Unlock()
}

// Patterns returns a copy of the recorded patterns.
func (r *Recorder) Patterns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.patterns...)
}
