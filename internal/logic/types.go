// Package logic contains the motion control engine for the blinds motor.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters; hardware is reached
// through the small interfaces declared in this file.
package logic

import "time"

// Action is the commanded direction of the motor.
type Action int

const (
	ActionIdle Action = iota
	ActionOpening
	ActionClosing
)

func (a Action) String() string {
	switch a {
	case ActionIdle:
		return "idle"
	case ActionOpening:
		return "opening"
	case ActionClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Owner is the command source currently authoritative for a motion.
// It decides which stop rules apply to the running motor.
type Owner int

const (
	OwnerNone Owner = iota
	OwnerRemote
	OwnerButton
	OwnerLimit
)

func (o Owner) String() string {
	switch o {
	case OwnerNone:
		return "none"
	case OwnerRemote:
		return "remote"
	case OwnerButton:
		return "button"
	case OwnerLimit:
		return "limit"
	default:
		return "unknown"
	}
}

// Button identifies one of the two manual buttons.
type Button int

const (
	ButtonOpen Button = iota
	ButtonClose
)

func (b Button) String() string {
	if b == ButtonOpen {
		return "open"
	}
	return "close"
}

// StopReason records why the motor was stopped.
type StopReason string

const (
	StopNone         StopReason = ""
	StopLimitClosed  StopReason = "limit_closed"
	StopLimitOpened  StopReason = "limit_opened"
	StopMaxRotations StopReason = "max_rotations"
	StopClosedOffset StopReason = "closed_offset"
	StopTarget       StopReason = "target_reached"
	StopButton       StopReason = "button"
	StopRemote       StopReason = "remote"
	StopOpenTimer    StopReason = "open_timer"
	StopMasterTimer  StopReason = "master_timer"
	StopOverCurrent  StopReason = "over_current"
	StopShutdown     StopReason = "shutdown"
	StopFault        StopReason = "fault"
)

// IsSafety reports whether the reason comes from the safety supervisor.
func (r StopReason) IsSafety() bool {
	switch r {
	case StopOpenTimer, StopMasterTimer, StopOverCurrent:
		return true
	}
	return false
}

// PositionUnknown marks a current position that has no reference.
const PositionUnknown = -1

// NoTarget marks the absence of an explicit target position.
const NoTarget = -1

// MotorState is owned by the control task. Nothing outside Controller
// mutates it.
type MotorState struct {
	IsRunning    bool
	AllowedToRun bool
	Action       Action
	Owner        Owner
	Position     int
	Target       int
}

// SwitchState is a limit switch as last seen by the control task.
type SwitchState struct {
	Set       bool
	ChangedAt time.Time
}

// Switches holds both limit switches.
type Switches struct {
	Opened SwitchState
	Closed SwitchState
}

// ButtonState tracks the cooldown guard after a button stopped the motor.
type ButtonState struct {
	LastStop time.Time
}

// SafetyConfig is the engine's view of the runtime settings.
type SafetyConfig struct {
	DebounceSwitches   time.Duration
	DebounceMotor      time.Duration
	MaxRotations       int
	RotationLimits     bool
	OpenDuration       time.Duration
	MaxRunDuration     time.Duration
	ClosedOffset       int
	MaxCurrent         int
	AllowRemoteControl bool
}

// IgnoreClosedOffset reports whether the closed offset disables
// rotation-based closing. 999 is accepted as a legacy alias of a negative value.
func (c SafetyConfig) IgnoreClosedOffset() bool {
	return c.ClosedOffset < 0 || c.ClosedOffset == legacyIgnoreOffset
}

const legacyIgnoreOffset = 999

// StateEvent is published on every stop and at startup.
type StateEvent struct {
	Timestamp time.Time
	Closed    bool
	// Percentage is nil when no rotation range is configured or the
	// position is unknown.
	Percentage *int
	Position   int
	Reason     StopReason
}

// StateName returns "open" or "closed".
func (e StateEvent) StateName() string {
	if e.Closed {
		return "closed"
	}
	return "open"
}

// Snapshot is a point-in-time copy of the engine state for readers outside
// the control task.
type Snapshot struct {
	Motor      MotorState
	Switches   Switches
	LastStop   StopReason
	LastStopAt time.Time
	LastOwner  Owner
	StopCounts map[StopReason]int
	Starts     int
	// Current is the last motor current reading, 0 without a sensor.
	Current int
}

// SwitchReader samples the raw limit switch levels.
type SwitchReader interface {
	ReadSwitches() (opened, closed bool, err error)
}

// ButtonReader samples the raw button levels (true = pressed).
type ButtonReader interface {
	ReadButtons() (open, close bool, err error)
}

// Actuator is the motor driver. Start blocks for the soft-start ramp and
// returns early when abort reports true.
type Actuator interface {
	Start(dir Action, abort func() bool) error
	Stop() error
}

// CurrentSensor returns the raw motor current reading.
type CurrentSensor interface {
	ReadCurrent() (int, error)
}

// PositionStore persists the rotation position across restarts.
type PositionStore interface {
	SavePosition(pos int) error
}

// Alerter plays an audible notification pattern without blocking.
type Alerter interface {
	Alert(pattern string)
}

// Notifier receives state events. It must not block.
type Notifier interface {
	Notify(ev StateEvent)
}

// Audible patterns used by the engine.
const (
	PatternRejected    = "1x1.1"
	PatternUnknown     = "1x1.1.1"
	PatternOverCurrent = "2x1.1.1"
)
