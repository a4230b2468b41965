package logic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ButtonCooldown suppresses button starts right after a button stopped the
// motor, so contact bounce on release cannot restart it.
const ButtonCooldown = time.Second

// Rejection reasons for remote commands.
var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrMalformedPercent = errors.New("malformed percentage")
	ErrRemoteDisabled   = errors.New("remote control disabled")
	ErrMotorBusy        = errors.New("motor is running")
	ErrPositionUnknown  = errors.New("current position unknown, close first")
	ErrUnbounded        = errors.New("no open duration and no max rotations configured")
	ErrTargetRange      = errors.New("target outside rotation range")
	ErrAtTarget         = errors.New("already at target")
	ErrAlreadyOpen      = errors.New("already fully open")
	ErrAlreadyClosed    = errors.New("already closed")
)

// RemoteKind is the verb of a remote action.
type RemoteKind int

const (
	RemoteOpen RemoteKind = iota + 1
	RemoteClose
	RemoteStop
)

func (k RemoteKind) String() string {
	switch k {
	case RemoteOpen:
		return "open"
	case RemoteClose:
		return "close"
	case RemoteStop:
		return "stop"
	default:
		return "unknown"
	}
}

// RemoteCommand is a parsed remote action.
type RemoteCommand struct {
	Kind       RemoteKind
	Percent    float64
	HasPercent bool
}

func (c RemoteCommand) String() string {
	if c.HasPercent {
		return fmt.Sprintf("%s:%g", c.Kind, c.Percent)
	}
	return c.Kind.String()
}

// ParseRemote parses "open", "open:<pct>", "close" or "stop".
func ParseRemote(s string) (RemoteCommand, error) {
	s = strings.TrimSpace(s)
	verb, arg, hasArg := strings.Cut(s, ":")

	switch verb {
	case "open":
		cmd := RemoteCommand{Kind: RemoteOpen}
		if hasArg {
			pct, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
			if err != nil {
				return RemoteCommand{}, fmt.Errorf("%w: %q", ErrMalformedPercent, arg)
			}
			cmd.Percent = pct
			cmd.HasPercent = true
		}
		return cmd, nil
	case "close":
		if hasArg {
			break
		}
		return RemoteCommand{Kind: RemoteClose}, nil
	case "stop":
		if hasArg {
			break
		}
		return RemoteCommand{Kind: RemoteStop}, nil
	}
	return RemoteCommand{}, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Decision is the arbiter's verdict for one input. At most one of Stop and
// Start is set. Err is set when the input was rejected.
type Decision struct {
	Stop   bool
	Reason StopReason

	Start  Action
	Owner  Owner
	Target int

	Err error
}

// Starts reports whether the decision starts the motor.
func (d Decision) Starts() bool {
	return d.Start != ActionIdle
}

// Arbiter turns button edges and remote commands into decisions. It keeps
// the per-button cooldown guard.
type Arbiter struct {
	buttons  [2]ButtonState
	cooldown time.Duration
}

// NewArbiter creates an arbiter. A zero cooldown selects ButtonCooldown.
func NewArbiter(cooldown time.Duration) *Arbiter {
	if cooldown <= 0 {
		cooldown = ButtonCooldown
	}
	return &Arbiter{cooldown: cooldown}
}

// Button resolves an accepted edge on button b. pressed is the level read
// back after the edge and sw the freshly sampled limit switches.
func (a *Arbiter) Button(now time.Time, b Button, pressed bool, st MotorState, sw Switches) Decision {
	if st.IsRunning {
		// Any button stops any motion.
		a.buttons[b].LastStop = now
		return Decision{Stop: true, Reason: StopButton, Owner: OwnerButton}
	}

	last := a.buttons[b].LastStop
	if !last.IsZero() && now.Sub(last) <= a.cooldown {
		return Decision{}
	}
	if !pressed {
		// Bounce edge with the button already released.
		return Decision{}
	}

	switch b {
	case ButtonOpen:
		if sw.Opened.Set {
			return Decision{Err: ErrAlreadyOpen}
		}
		return Decision{Start: ActionOpening, Owner: OwnerButton, Target: NoTarget}
	default:
		if sw.Closed.Set {
			return Decision{Err: ErrAlreadyClosed}
		}
		return Decision{Start: ActionClosing, Owner: OwnerButton, Target: NoTarget}
	}
}

// Remote validates a remote command against the current state.
func (a *Arbiter) Remote(cmd RemoteCommand, st MotorState, sw Switches, cfg SafetyConfig) Decision {
	if cmd.Kind == RemoteStop {
		return Decision{Stop: true, Reason: StopRemote, Owner: OwnerRemote}
	}
	if !cfg.AllowRemoteControl {
		return Decision{Err: ErrRemoteDisabled}
	}
	if st.IsRunning {
		return Decision{Err: ErrMotorBusy}
	}

	switch cmd.Kind {
	case RemoteOpen:
		action, target, err := planOpen(cmd, st, sw, cfg)
		if err != nil {
			return Decision{Err: err}
		}
		return Decision{Start: action, Owner: OwnerRemote, Target: target}
	case RemoteClose:
		if sw.Closed.Set || (cfg.RotationLimits && st.Position == 0) {
			return Decision{Err: ErrAlreadyClosed}
		}
		return Decision{Start: ActionClosing, Owner: OwnerRemote, Target: 0}
	default:
		return Decision{Err: ErrUnknownAction}
	}
}

// planOpen runs the open validation chain and derives the direction.
func planOpen(cmd RemoteCommand, st MotorState, sw Switches, cfg SafetyConfig) (Action, int, error) {
	limit := cfg.MaxRotations
	if limit <= 0 {
		if cfg.OpenDuration <= 0 {
			return ActionIdle, NoTarget, ErrUnbounded
		}
		if sw.Opened.Set {
			return ActionIdle, NoTarget, ErrAlreadyOpen
		}
		return ActionOpening, NoTarget, nil
	}

	target := limit
	if cmd.HasPercent {
		target = TargetForPercent(cmd.Percent, limit)
	}
	pos := st.Position
	if pos < 0 && sw.Closed.Set {
		pos = 0
	}

	switch {
	case !sw.Closed.Set && pos < 0 && target > 0:
		return ActionIdle, target, ErrPositionUnknown
	case target < 0 || target > limit:
		return ActionIdle, target, ErrTargetRange
	case target == pos:
		return ActionIdle, target, ErrAtTarget
	case target > pos && sw.Opened.Set:
		return ActionIdle, target, ErrAlreadyOpen
	}

	if pos < 0 {
		// open:0 with no reference: closing re-establishes one.
		return ActionClosing, target, nil
	}
	if target > pos {
		return ActionOpening, target, nil
	}
	return ActionClosing, target, nil
}
