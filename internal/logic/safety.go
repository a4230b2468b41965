package logic

import "time"

// CurrentSenseInterval is the polling period of the motor current check.
const CurrentSenseInterval = 200 * time.Millisecond

// Supervisor runs the two safety timers and the current-sense polling.
// It only ever reports a stop reason; it never touches the actuator.
type Supervisor struct {
	openDeadline   time.Time
	masterDeadline time.Time
	lastSense      time.Time
	sensor         CurrentSensor

	// LastCurrent is the most recent current reading.
	LastCurrent int
}

// NewSupervisor creates a supervisor. sensor may be nil when no current
// sensing hardware is fitted.
func NewSupervisor(sensor CurrentSensor) *Supervisor {
	return &Supervisor{sensor: sensor}
}

// Arm cancels any armed timers and arms the ones that apply to a run
// starting at now.
func (s *Supervisor) Arm(now time.Time, st MotorState, cfg SafetyConfig) {
	s.Disarm()
	if st.Owner == OwnerRemote && st.Action == ActionOpening && cfg.OpenDuration > 0 {
		s.openDeadline = now.Add(cfg.OpenDuration)
	}
	if cfg.MaxRunDuration > 0 {
		s.masterDeadline = now.Add(cfg.MaxRunDuration)
	}
	s.lastSense = now
}

// Disarm cancels both timers.
func (s *Supervisor) Disarm() {
	s.openDeadline = time.Time{}
	s.masterDeadline = time.Time{}
}

// Armed reports which timers are armed.
func (s *Supervisor) Armed() (open, master bool) {
	return !s.openDeadline.IsZero(), !s.masterDeadline.IsZero()
}

// Check evaluates the timers and, once per CurrentSenseInterval, the motor
// current. A fired timer is disarmed so it reports only once.
func (s *Supervisor) Check(now time.Time, st MotorState, cfg SafetyConfig) (StopReason, error) {
	if !st.IsRunning {
		return StopNone, nil
	}

	if !s.masterDeadline.IsZero() && !now.Before(s.masterDeadline) {
		s.masterDeadline = time.Time{}
		return StopMasterTimer, nil
	}

	if !s.openDeadline.IsZero() && !now.Before(s.openDeadline) {
		s.openDeadline = time.Time{}
		if st.Action == ActionOpening {
			return StopOpenTimer, nil
		}
	}

	if s.sensor == nil || now.Sub(s.lastSense) < CurrentSenseInterval {
		return StopNone, nil
	}
	s.lastSense = now
	current, err := s.sensor.ReadCurrent()
	if err != nil {
		return StopNone, err
	}
	s.LastCurrent = current
	if cfg.MaxCurrent > 0 && current > cfg.MaxCurrent {
		return StopOverCurrent, nil
	}
	return StopNone, nil
}
