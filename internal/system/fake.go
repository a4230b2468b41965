package system

import "sync"

// FakeRebooter counts reboot requests.
type FakeRebooter struct {
	mu    sync.Mutex
	calls int

	// Err, if set, is returned by Reboot.
	Err error
}

// Reboot records the request.
func (f *FakeRebooter) Reboot() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.Err
}

// Calls returns the number of reboot requests.
func (f *FakeRebooter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
