package logic

import (
	"errors"
	"sync"
	"time"
)

// DefaultLimitSamples is the limit switch debounce window in control cycles.
const DefaultLimitSamples = 12

// Deps are the collaborators of the Controller. Sensor, Store, Alerter and
// Notifier may be nil.
type Deps struct {
	Switches SwitchReader
	Buttons  ButtonReader
	Actuator Actuator
	Sensor   CurrentSensor
	Store    PositionStore
	Alerter  Alerter
	Notifier Notifier
}

// Options tune the Controller.
type Options struct {
	// LimitSamples is the number of consecutive active samples before a
	// limit switch stops the motor. Zero selects DefaultLimitSamples.
	LimitSamples int
	// ButtonCooldown overrides ButtonCooldown when positive.
	ButtonCooldown time.Duration
	// Logf receives one line per significant event. Nil discards.
	Logf func(format string, args ...any)
}

// Report is the periodic application state report.
type Report struct {
	Timestamp time.Time
	Uptime    time.Duration
	Snapshot  Snapshot
}

// Controller is the motion state machine. Cycle must be called from a single
// goroutine (the control task); Snapshot and CheckReport are safe from any
// goroutine.
type Controller struct {
	deps    Deps
	sig     *Signals
	cfg     SafetyConfig
	logf    func(format string, args ...any)
	started time.Time

	st       MotorState
	sw       Switches
	tracker  PositionTracker
	super    *Supervisor
	arb      *Arbiter
	limitOpn *ShiftDebouncer
	limitCls *ShiftDebouncer

	mu         sync.RWMutex
	snap       Snapshot
	active     SafetyConfig // copy of cfg for readers off the control task
	lastReport time.Time
}

// NewController creates a controller in the Idle state with an unknown
// position. Call Boot before the first Cycle.
func NewController(cfg SafetyConfig, opts Options, deps Deps, sig *Signals) *Controller {
	samples := opts.LimitSamples
	if samples <= 0 {
		samples = DefaultLimitSamples
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	c := &Controller{
		deps:     deps,
		sig:      sig,
		cfg:      cfg,
		active:   cfg,
		logf:     logf,
		super:    NewSupervisor(deps.Sensor),
		arb:      NewArbiter(opts.ButtonCooldown),
		limitOpn: NewShiftDebouncer(samples),
		limitCls: NewShiftDebouncer(samples),
	}
	c.st = MotorState{Position: PositionUnknown, Target: NoTarget}
	c.snap.StopCounts = make(map[StopReason]int)
	return c
}

// Boot samples the limit switches, derives the starting position and emits
// the startup state event.
func (c *Controller) Boot(now time.Time, persisted int, havePersisted bool) {
	c.started = now
	c.lastReport = now
	c.resync(now)
	if c.sw.Opened.Set && c.sw.Closed.Set {
		c.logf("controller: both limit switches set at boot, trusting closed")
		c.sw.Opened.Set = false
	}
	c.st.Position = InitialPosition(c.sw.Closed.Set, persisted, havePersisted)
	c.logf("controller: boot position=%d closed=%t opened=%t", c.st.Position, c.sw.Closed.Set, c.sw.Opened.Set)
	c.publish()
	c.notify(now, StopNone)
}

// Config returns the active configuration. Safe to call from any goroutine.
func (c *Controller) Config() SafetyConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// State returns the motor state. Only call from the control task.
func (c *Controller) State() MotorState {
	return c.st
}

// Cycle runs one control task iteration in the fixed order: safety checks,
// limit switches, rotation events, buttons, remote command, stop execution.
func (c *Controller) Cycle(now time.Time) {
	in := c.sig.Drain()
	if in.Config != nil {
		c.cfg = *in.Config
		c.mu.Lock()
		c.active = c.cfg
		c.mu.Unlock()
		c.logf("controller: config updated max_rotations=%d rotation_limits=%t closed_offset=%d",
			c.cfg.MaxRotations, c.cfg.RotationLimits, c.cfg.ClosedOffset)
	}

	stop := StopNone
	owner := c.st.Owner

	if in.Shutdown {
		stop = StopShutdown
	}
	if stop == StopNone {
		reason, err := c.super.Check(now, c.st, c.cfg)
		if err != nil {
			c.logf("controller: current sense failed: %v", err)
		}
		if c.st.IsRunning && c.deps.Sensor != nil {
			c.mu.Lock()
			c.snap.Current = c.super.LastCurrent
			c.mu.Unlock()
		}
		if reason == StopOverCurrent {
			c.logf("controller: over current current=%d limit=%d", c.super.LastCurrent, c.cfg.MaxCurrent)
			c.alert(PatternOverCurrent)
		}
		stop = reason
	}
	safety := stop.IsSafety() || stop == StopShutdown

	if c.st.IsRunning {
		if reason := c.checkLimits(now); reason != StopNone && stop == StopNone {
			stop = reason
			owner = OwnerLimit
		}
	}

	for i := 0; i < in.Rotations; i++ {
		if reason := c.tracker.Rotate(&c.st, c.cfg); reason != StopNone && stop == StopNone {
			stop = reason
		}
	}

	// A stop submitted before a newer command still wins this cycle.
	if in.Stop && stop == StopNone {
		stop = StopRemote
	}

	if !safety {
		if reason, who := c.handleButtons(now, in.ButtonChanged, stop); reason != StopNone && stop == StopNone {
			stop, owner = reason, who
		}
		if in.Remote != nil {
			reason, who := c.handleRemote(now, *in.Remote, stop)
			if reason != StopNone && (stop == StopNone || stop == StopRemote) {
				stop, owner = reason, who
			}
		}
	} else if in.Remote != nil || in.ButtonChanged[ButtonOpen] || in.ButtonChanged[ButtonClose] {
		c.logf("controller: safety stop %s drops pending commands", stop)
	}

	if stop != StopNone {
		c.st.AllowedToRun = false
		c.st.Owner = owner
		c.stop(now, stop)
	}
}

// checkLimits samples the limit switch in the running direction.
func (c *Controller) checkLimits(now time.Time) StopReason {
	opened, closed, err := c.deps.Switches.ReadSwitches()
	if err != nil {
		c.logf("controller: read limit switches: %v", err)
		return StopNone
	}

	switch c.st.Action {
	case ActionClosing:
		if c.limitCls.Sample(closed) {
			c.setSwitch(&c.sw.Closed, true, now)
			c.setSwitch(&c.sw.Opened, false, now)
			c.st.Position = 0
			return StopLimitClosed
		}
	case ActionOpening:
		if c.limitOpn.Sample(opened) {
			c.setSwitch(&c.sw.Opened, true, now)
			c.setSwitch(&c.sw.Closed, false, now)
			return StopLimitOpened
		}
	}
	return StopNone
}

func (c *Controller) handleButtons(now time.Time, changed [2]bool, pending StopReason) (StopReason, Owner) {
	if !changed[ButtonOpen] && !changed[ButtonClose] {
		return StopNone, OwnerNone
	}

	openPressed, closePressed, err := c.deps.Buttons.ReadButtons()
	if err != nil {
		c.logf("controller: read buttons: %v", err)
		return StopNone, OwnerNone
	}
	pressed := [2]bool{openPressed, closePressed}
	if !c.st.IsRunning {
		c.resync(now)
	}

	for _, b := range []Button{ButtonOpen, ButtonClose} {
		if !changed[b] {
			continue
		}
		d := c.arb.Button(now, b, pressed[b], c.st, c.sw)
		switch {
		case d.Err != nil:
			c.logf("controller: button %s refused: %v", b, d.Err)
			c.alert(PatternRejected)
		case d.Stop:
			c.logf("controller: button %s stops motor", b)
			return d.Reason, d.Owner
		case d.Starts():
			if pending != StopNone {
				return StopNone, OwnerNone
			}
			c.start(now, d)
			return StopNone, OwnerNone
		}
	}
	return StopNone, OwnerNone
}

func (c *Controller) handleRemote(now time.Time, cmd RemoteCommand, pending StopReason) (StopReason, Owner) {
	d := c.arb.Remote(cmd, c.st, c.sw, c.cfg)
	switch {
	case d.Stop:
		c.logf("controller: remote stop")
		return d.Reason, d.Owner
	case d.Err != nil:
		c.logf("controller: remote %s rejected: %v", cmd, d.Err)
		if !errors.Is(d.Err, ErrRemoteDisabled) {
			c.alert(PatternRejected)
		}
	case pending != StopNone:
		c.logf("controller: remote %s dropped, stop %s pending", cmd, pending)
	case d.Starts():
		c.start(now, d)
	}
	return StopNone, OwnerNone
}

// start energises the motor and runs the soft-start ramp. The ramp returns
// early when a stop or button edge arrives; the next cycle handles it.
func (c *Controller) start(now time.Time, d Decision) {
	wasClosed := c.sw.Closed.Set

	c.st.IsRunning = true
	c.st.AllowedToRun = true
	c.st.Action = d.Start
	c.st.Owner = d.Owner
	c.st.Target = d.Target
	c.limitOpn.Reset()
	c.limitCls.Reset()
	c.super.Arm(now, c.st, c.cfg)

	c.logf("controller: start action=%s owner=%s position=%d target=%d", c.st.Action, c.st.Owner, c.st.Position, c.st.Target)

	c.mu.Lock()
	c.snap.Starts++
	c.mu.Unlock()
	c.publish()

	abort := func() bool { return c.sig.StopRequested() || c.sig.ButtonPending() }
	if err := c.deps.Actuator.Start(d.Start, abort); err != nil {
		c.logf("controller: actuator start failed: %v", err)
		c.st.AllowedToRun = false
		c.stop(now, StopFault)
		return
	}

	if wasClosed && c.st.Action == ActionOpening && !abort() {
		c.resync(now)
		c.notify(now, StopNone)
	}
}

// stop cuts motor power and publishes the result. It is unconditional and
// also runs when the motor is idle.
func (c *Controller) stop(now time.Time, reason StopReason) {
	if err := c.deps.Actuator.Stop(); err != nil {
		c.logf("controller: actuator stop: %v", err)
	}
	c.super.Disarm()
	c.tracker.Reset()
	c.resync(now)
	if c.sw.Closed.Set {
		c.st.Position = 0
	}

	wasRunning := c.st.IsRunning
	lastOwner := c.st.Owner
	c.st.IsRunning = false
	c.st.AllowedToRun = false
	c.st.Action = ActionIdle
	c.st.Owner = OwnerNone
	c.st.Target = NoTarget

	c.logf("controller: stop reason=%s owner=%s running=%t position=%d", reason, lastOwner, wasRunning, c.st.Position)

	if c.deps.Store != nil && c.st.Position >= 0 {
		if err := c.deps.Store.SavePosition(c.st.Position); err != nil {
			c.logf("controller: persist position: %v", err)
		}
	}

	c.mu.Lock()
	c.snap.LastStop = reason
	c.snap.LastStopAt = now
	c.snap.LastOwner = lastOwner
	c.snap.StopCounts[reason]++
	c.mu.Unlock()
	c.publish()
	c.notify(now, reason)
}

// resync re-reads both limit switches.
func (c *Controller) resync(now time.Time) {
	opened, closed, err := c.deps.Switches.ReadSwitches()
	if err != nil {
		c.logf("controller: resync limit switches: %v", err)
		return
	}
	c.setSwitch(&c.sw.Opened, opened, now)
	c.setSwitch(&c.sw.Closed, closed, now)
}

func (c *Controller) setSwitch(s *SwitchState, set bool, now time.Time) {
	if s.Set != set {
		s.Set = set
		s.ChangedAt = now
	}
}

// event builds the state event for the current state.
func (c *Controller) event(now time.Time, reason StopReason) StateEvent {
	ev := StateEvent{
		Timestamp: now,
		Position:  c.st.Position,
		Reason:    reason,
		Closed:    c.sw.Closed.Set || (!c.st.IsRunning && c.cfg.RotationLimits && c.cfg.MaxRotations > 0 && c.st.Position == 0),
	}
	if pct, ok := Percentage(c.st.Position, c.cfg.MaxRotations); ok {
		ev.Percentage = &pct
	}
	return ev
}

func (c *Controller) notify(now time.Time, reason StopReason) {
	if c.deps.Notifier == nil {
		return
	}
	c.deps.Notifier.Notify(c.event(now, reason))
}

func (c *Controller) alert(pattern string) {
	if c.deps.Alerter != nil {
		c.deps.Alerter.Alert(pattern)
	}
}

// publish copies the control task state into the shared snapshot.
func (c *Controller) publish() {
	c.mu.Lock()
	c.snap.Motor = c.st
	c.snap.Switches = c.sw
	c.mu.Unlock()
}

// Snapshot returns a copy of the last published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.snap
	s.StopCounts = make(map[StopReason]int, len(c.snap.StopCounts))
	for k, v := range c.snap.StopCounts {
		s.StopCounts[k] = v
	}
	return s
}

// CheckReport returns a report if interval has elapsed since the last one
// (or boot). Returns nil if interval is <= 0 (disabled).
func (c *Controller) CheckReport(now time.Time, interval time.Duration) *Report {
	if interval <= 0 {
		return nil
	}

	c.mu.Lock()
	if now.Sub(c.lastReport) < interval {
		c.mu.Unlock()
		return nil
	}
	c.lastReport = now
	c.mu.Unlock()

	return &Report{
		Timestamp: now,
		Uptime:    now.Sub(c.started),
		Snapshot:  c.Snapshot(),
	}
}
