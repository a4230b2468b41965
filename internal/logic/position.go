package logic

// PositionTracker counts motor axis rotations and decides when a rotation
// should end a motion.
type PositionTracker struct {
	// offsetCount is the number of rotation events seen at position zero
	// while closing, the arrival event included. Reset on every stop.
	offsetCount int
}

// InitialPosition returns the boot position. A set Closed switch wins over
// the persisted value; without either the position is unknown.
func InitialPosition(closedSet bool, persisted int, havePersisted bool) int {
	if closedSet {
		return 0
	}
	if havePersisted && persisted >= 0 {
		return persisted
	}
	return PositionUnknown
}

// Rotate applies one accepted rotation event to st and returns the stop
// reason, or StopNone when the motor should keep running.
func (p *PositionTracker) Rotate(st *MotorState, cfg SafetyConfig) StopReason {
	if !st.IsRunning {
		return StopNone
	}

	switch st.Action {
	case ActionClosing:
		if st.Position > 0 {
			st.Position--
		}
	case ActionOpening:
		if st.Position >= 0 {
			st.Position++
			if cfg.MaxRotations > 0 && st.Position > cfg.MaxRotations {
				st.Position = cfg.MaxRotations
			}
		}
	default:
		return StopNone
	}

	switch st.Owner {
	case OwnerRemote:
		return p.remoteStop(st, cfg)
	case OwnerButton, OwnerLimit, OwnerNone:
		// Manual motion relies on limit switches and the safety supervisor.
		return StopNone
	default:
		return StopNone
	}
}

func (p *PositionTracker) remoteStop(st *MotorState, cfg SafetyConfig) StopReason {
	if st.Position < 0 {
		return StopNone
	}

	if cfg.RotationLimits {
		switch st.Action {
		case ActionClosing:
			if st.Position == 0 {
				if reason := p.closedAtZero(cfg); reason != StopNone {
					return reason
				}
			}
		case ActionOpening:
			if cfg.MaxRotations > 0 && st.Position >= cfg.MaxRotations {
				return StopMaxRotations
			}
		}
	}

	if st.Target > 0 {
		switch st.Action {
		case ActionOpening:
			if st.Position >= st.Target {
				return StopTarget
			}
		case ActionClosing:
			if st.Position <= st.Target {
				return StopTarget
			}
		}
	}
	return StopNone
}

// closedAtZero handles a closing rotation at position zero. The event that
// reaches zero counts as the first offset event; the motor stops once
// ClosedOffset events have been counted.
func (p *PositionTracker) closedAtZero(cfg SafetyConfig) StopReason {
	if cfg.IgnoreClosedOffset() {
		return StopNone
	}
	p.offsetCount++
	if p.offsetCount >= cfg.ClosedOffset {
		return StopClosedOffset
	}
	return StopNone
}

// OffsetCount returns the number of rotation events counted at zero.
func (p *PositionTracker) OffsetCount() int {
	return p.offsetCount
}

// Reset clears the closed offset counter. Called on every stop.
func (p *PositionTracker) Reset() {
	p.offsetCount = 0
}

// Percentage converts a position to a percentage of maxRotations. ok is
// false when there is no range or the position is unknown.
func Percentage(pos, maxRotations int) (pct int, ok bool) {
	if maxRotations <= 0 || pos < 0 {
		return 0, false
	}
	return roundDiv(pos*100, maxRotations), true
}

// TargetForPercent converts a requested percentage into a rotation target.
func TargetForPercent(pct float64, maxRotations int) int {
	v := pct / 100 * float64(maxRotations)
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}

func roundDiv(a, b int) int {
	return (a + b/2) / b
}
