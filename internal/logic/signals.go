package logic

import (
	"sync"
	"time"
)

// Signals is the only state shared between interrupt producers, the
// background task and the control task. Producers set timestamped flags;
// the control task drains them once per cycle. Every method holds the lock
// for a flag update only.
type Signals struct {
	mu sync.Mutex

	debounceSwitches time.Duration
	debounceMotor    time.Duration
	countRotations   bool

	buttons   [2]EdgeDebouncer
	changed   [2]bool
	rotation  EdgeDebouncer
	rotations int

	stop bool

	remote   *RemoteCommand
	config   *SafetyConfig
	shutdown bool
}

// Inputs is what the control task drained from Signals in one cycle.
type Inputs struct {
	ButtonChanged [2]bool
	Rotations     int
	Stop          bool
	Remote        *RemoteCommand
	Config        *SafetyConfig
	Shutdown      bool
}

// NewSignals creates the flag set using the debounce settings from cfg.
func NewSignals(cfg SafetyConfig) *Signals {
	s := &Signals{}
	s.applyLocked(cfg)
	return s
}

func (s *Signals) applyLocked(cfg SafetyConfig) {
	s.debounceSwitches = cfg.DebounceSwitches
	s.debounceMotor = cfg.DebounceMotor
	s.countRotations = cfg.MaxRotations > 0
}

// ButtonEdge records a button transition seen at now. Transitions inside
// the switch debounce window are dropped.
func (s *Signals) ButtonEdge(b Button, now time.Time) {
	s.mu.Lock()
	if s.buttons[b].Accept(now, s.debounceSwitches) {
		s.changed[b] = true
	}
	s.mu.Unlock()
}

// RotationPulse records a motor axis rotation pulse seen at now. Pulses are
// ignored when no rotation range is configured.
func (s *Signals) RotationPulse(now time.Time) {
	s.mu.Lock()
	if s.countRotations && s.rotation.Accept(now, s.debounceMotor) {
		s.rotations++
	}
	s.mu.Unlock()
}

// StopRequested reports whether a stop is pending. Used by the soft-start
// ramp to abort between steps.
func (s *Signals) StopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop || s.shutdown
}

// ButtonPending reports whether a button edge is waiting for the control task.
func (s *Signals) ButtonPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed[ButtonOpen] || s.changed[ButtonClose]
}

// Submit queues a remote command. A newer command replaces an unconsumed one.
// A stop also raises the stop flag so a running soft-start ramp aborts.
func (s *Signals) Submit(cmd RemoteCommand) {
	s.mu.Lock()
	s.remote = &cmd
	if cmd.Kind == RemoteStop {
		s.stop = true
	}
	s.mu.Unlock()
}

// UpdateConfig hands a new configuration to the control task and applies
// the debounce settings to the producers immediately.
func (s *Signals) UpdateConfig(cfg SafetyConfig) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.config = &cfg
	s.mu.Unlock()
}

// Shutdown asks the control task to stop the motor for process exit.
func (s *Signals) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
}

// Drain returns and clears every pending flag.
func (s *Signals) Drain() Inputs {
	s.mu.Lock()
	in := Inputs{
		ButtonChanged: s.changed,
		Rotations:     s.rotations,
		Stop:          s.stop,
		Remote:        s.remote,
		Config:        s.config,
		Shutdown:      s.shutdown,
	}
	s.changed = [2]bool{}
	s.rotations = 0
	s.stop = false
	s.remote = nil
	s.config = nil
	s.mu.Unlock()
	return in
}
