package logic

import "testing"

func remoteRun(action Action, pos, target int) MotorState {
	return MotorState{IsRunning: true, AllowedToRun: true, Action: action, Owner: OwnerRemote, Position: pos, Target: target}
}

func TestInitialPosition(t *testing.T) {
	tests := []struct {
		name          string
		closed        bool
		persisted     int
		havePersisted bool
		want          int
	}{
		{"closed switch wins", true, 7, true, 0},
		{"closed switch without store", true, 0, false, 0},
		{"persisted", false, 7, true, 7},
		{"nothing stored", false, 0, false, PositionUnknown},
		{"stored unknown", false, -1, true, PositionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InitialPosition(tt.closed, tt.persisted, tt.havePersisted); got != tt.want {
				t.Errorf("InitialPosition() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRotateOpensToTarget(t *testing.T) {
	cfg := SafetyConfig{MaxRotations: 20, RotationLimits: true}
	st := remoteRun(ActionOpening, 0, TargetForPercent(50, 20))
	var p PositionTracker

	for i := 1; i < 10; i++ {
		if r := p.Rotate(&st, cfg); r != StopNone {
			t.Fatalf("rotation %d: unexpected stop %s", i, r)
		}
	}
	if r := p.Rotate(&st, cfg); r != StopTarget {
		t.Fatalf("rotation 10: got %q, want %q", r, StopTarget)
	}
	if st.Position != 10 {
		t.Errorf("position = %d, want 10", st.Position)
	}
}

func TestRotateClosesToTarget(t *testing.T) {
	cfg := SafetyConfig{MaxRotations: 20, RotationLimits: true}
	st := remoteRun(ActionClosing, 15, 12)
	var p PositionTracker

	p.Rotate(&st, cfg)
	p.Rotate(&st, cfg)
	if r := p.Rotate(&st, cfg); r != StopTarget {
		t.Fatalf("got %q, want %q at position %d", r, StopTarget, st.Position)
	}
}

func TestRotateClosedOffset(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		start  int
		// stopAt is the 1-based rotation event expected to stop the motor,
		// 0 for never within 10 events.
		stopAt int
	}{
		{"zero offset stops on arrival", 0, 2, 2},
		{"arrival counts as first offset event", 2, 1, 2},
		{"offset three from one", 3, 1, 3},
		{"offset one at zero", 1, 0, 1},
		{"negative ignores rotations", -1, 1, 0},
		{"legacy 999 ignores rotations", 999, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := SafetyConfig{MaxRotations: 20, RotationLimits: true, ClosedOffset: tt.offset}
			st := remoteRun(ActionClosing, tt.start, 0)
			var p PositionTracker

			got := 0
			for i := 1; i <= 10; i++ {
				if r := p.Rotate(&st, cfg); r != StopNone {
					if r != StopClosedOffset {
						t.Fatalf("event %d: reason %q, want %q", i, r, StopClosedOffset)
					}
					got = i
					break
				}
			}
			if got != tt.stopAt {
				t.Errorf("stopped at event %d, want %d", got, tt.stopAt)
			}
			if st.Position != 0 && tt.start <= 10 {
				t.Errorf("position = %d, want floor at 0", st.Position)
			}
		})
	}
}

func TestRotateClosedOffsetResets(t *testing.T) {
	cfg := SafetyConfig{MaxRotations: 20, RotationLimits: true, ClosedOffset: 2}
	st := remoteRun(ActionClosing, 1, 0)
	var p PositionTracker

	if r := p.Rotate(&st, cfg); r != StopNone {
		t.Fatalf("arrival stopped the motor: %s", r)
	}
	if p.OffsetCount() != 1 {
		t.Fatalf("arrival should count once, count=%d", p.OffsetCount())
	}
	p.Reset()
	if p.OffsetCount() != 0 {
		t.Error("Reset should clear offset state")
	}
}

func TestRotateClosedAtZeroNeedsRotationLimits(t *testing.T) {
	cfg := SafetyConfig{MaxRotations: 20, RotationLimits: false}
	st := remoteRun(ActionClosing, 1, 0)
	var p PositionTracker

	for i := 0; i < 5; i++ {
		if r := p.Rotate(&st, cfg); r != StopNone {
			t.Fatalf("rotation limits off: unexpected stop %s", r)
		}
	}
}

func TestRotateClampsAtMax(t *testing.T) {
	cfg := SafetyConfig{MaxRotations: 5, RotationLimits: true}

	// Button motion may run past max but the count stays clamped.
	st := MotorState{IsRunning: true, Action: ActionOpening, Owner: OwnerButton, Position: 5, Target: NoTarget}
	var p PositionTracker
	for i := 0; i < 3; i++ {
		if r := p.Rotate(&st, cfg); r != StopNone {
			t.Fatalf("button motion: unexpected stop %s", r)
		}
	}
	if st.Position != 5 {
		t.Errorf("position = %d, want clamped to 5", st.Position)
	}

	st = remoteRun(ActionOpening, 4, NoTarget)
	if r := p.Rotate(&st, cfg); r != StopMaxRotations {
		t.Errorf("remote open at max: got %q, want %q", r, StopMaxRotations)
	}
}

func TestRotateUnknownPositionStaysUnknown(t *testing.T) {
	cfg := SafetyConfig{MaxRotations: 20, RotationLimits: true}
	st := remoteRun(ActionOpening, PositionUnknown, NoTarget)
	var p PositionTracker

	if r := p.Rotate(&st, cfg); r != StopNone {
		t.Errorf("unexpected stop %s", r)
	}
	if st.Position != PositionUnknown {
		t.Errorf("position = %d, want unknown", st.Position)
	}
}

func TestRotateIgnoredWhenIdle(t *testing.T) {
	st := MotorState{Position: 3, Target: NoTarget}
	var p PositionTracker
	p.Rotate(&st, SafetyConfig{MaxRotations: 20})
	if st.Position != 3 {
		t.Errorf("idle rotation changed position to %d", st.Position)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		pos, max int
		want     int
		ok       bool
	}{
		{10, 20, 50, true},
		{0, 20, 0, true},
		{20, 20, 100, true},
		{1, 3, 33, true},
		{2, 3, 67, true},
		{5, 0, 0, false},
		{-1, 20, 0, false},
	}
	for _, tt := range tests {
		got, ok := Percentage(tt.pos, tt.max)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Percentage(%d, %d) = %d, %t; want %d, %t", tt.pos, tt.max, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTargetForPercent(t *testing.T) {
	tests := []struct {
		pct  float64
		max  int
		want int
	}{
		{50, 20, 10},
		{0, 20, 0},
		{100, 20, 20},
		{33, 20, 7},
		{12.5, 20, 3},
		{150, 20, 30},
		{-10, 20, -2},
	}
	for _, tt := range tests {
		if got := TargetForPercent(tt.pct, tt.max); got != tt.want {
			t.Errorf("TargetForPercent(%g, %d) = %d, want %d", tt.pct, tt.max, got, tt.want)
		}
	}
}
