package buzzer

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		pattern string
		want    []Step
	}{
		{"1x3", []Step{{true, 240 * time.Millisecond}, {false, ToneGap}}},
		{"1x1.0.1", []Step{
			{true, ToneUnit}, {false, ToneGap},
			{false, SilentGap},
			{true, ToneUnit}, {false, ToneGap},
		}},
		{"2x2", []Step{
			{true, 160 * time.Millisecond}, {false, ToneGap},
			{false, RepeatGap},
			{true, 160 * time.Millisecond}, {false, ToneGap},
		}},
		{"1xa", []Step{{false, SilentGap}}},
		{"1x", []Step{{false, SilentGap}}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.pattern)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.pattern, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, p := range []string{"", "1", "0x1", "ax1", "11.1", "x1"} {
		if _, err := Parse(p); !errors.Is(err, ErrPattern) {
			t.Errorf("Parse(%q) error = %v, want ErrPattern", p, err)
		}
	}
}

func TestParseLimitsDigits(t *testing.T) {
	steps, err := Parse("1x123456")
	if err != nil {
		t.Fatal(err)
	}
	if steps[0].Dur != 1234*ToneUnit {
		t.Errorf("Dur = %v, want 1234 units", steps[0].Dur)
	}
}

func TestDuration(t *testing.T) {
	steps, _ := Parse("2x1.1.1")
	want := 2*(3*(ToneUnit+ToneGap)) + RepeatGap
	if got := Duration(steps); got != want {
		t.Errorf("Duration = %v, want %v", got, want)
	}
}

func TestPlayerPlaysQueuedPattern(t *testing.T) {
	line := &FakeLine{}
	p := NewPlayer(line)
	p.SetSleep(func(time.Duration) {})

	p.Alert("1x1.1")
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		p.Run(done)
		close(finished)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if played, _ := p.Stats(); played == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("pattern not played")
		}
		time.Sleep(time.Millisecond)
	}
	close(done)
	<-finished

	want := []int{1, 0, 1, 0, 0, 0}
	if got := line.Values(); !reflect.DeepEqual(got, want) {
		t.Errorf("line values = %v, want %v", got, want)
	}
}

func TestPlayerDropsWhenFull(t *testing.T) {
	p := NewPlayer(&FakeLine{})
	for i := 0; i < queueSize+2; i++ {
		p.Alert("1x1")
	}
	if _, dropped := p.Stats(); dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
}

func TestPlayerIgnoresMalformed(t *testing.T) {
	p := NewPlayer(&FakeLine{})
	p.Alert("bogus")
	if len(p.queue) != 0 {
		t.Error("malformed pattern was queued")
	}
}
