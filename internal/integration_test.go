package internal

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/blinds-control/internal/buzzer"
	"github.com/sweeney/blinds-control/internal/config"
	"github.com/sweeney/blinds-control/internal/currentsense"
	"github.com/sweeney/blinds-control/internal/gpio"
	"github.com/sweeney/blinds-control/internal/logic"
	"github.com/sweeney/blinds-control/internal/motor"
	"github.com/sweeney/blinds-control/internal/mqtt"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// pulseSpacing keeps rotation pulses outside the default motor debounce.
const pulseSpacing = 600 * time.Millisecond

// publisher forwards state events straight to the MQTT client, the way the
// daemon's background loop does.
type publisher struct {
	t      *testing.T
	client mqtt.Client
}

func (p publisher) Notify(ev logic.StateEvent) {
	if err := p.client.PublishState(ev); err != nil {
		p.t.Logf("publish state: %v", err)
	}
}

type rigOptions struct {
	opened, closed bool
	position       int
	havePosition   bool
	sensor         logic.CurrentSensor
}

// rig is the engine wired to the GPIO, motor and MQTT fakes.
type rig struct {
	t      *testing.T
	now    time.Time
	reader *gpio.FakeReader
	pins   *motor.FakePins
	sig    *logic.Signals
	ctrl   *logic.Controller
	client *mqtt.FakeClient
	buzzer *buzzer.Recorder
}

func newRig(t *testing.T, cfg logic.SafetyConfig, opts rigOptions) *rig {
	t.Helper()
	r := &rig{
		t:      t,
		now:    startTime,
		pins:   motor.NewFakePins(),
		client: mqtt.NewFakeClient(nil),
		buzzer: &buzzer.Recorder{},
	}
	r.sig = logic.NewSignals(cfg)
	r.reader = gpio.NewFakeReader(r.sig)
	r.reader.SetSwitches(opts.opened, opts.closed)

	driver := motor.NewDriver(r.pins, motor.DefaultRamp())
	driver.SetSleep(func(time.Duration) {})

	deps := logic.Deps{
		Switches: r.reader,
		Buttons:  r.reader,
		Actuator: driver,
		Alerter:  r.buzzer,
		Notifier: publisher{t: t, client: r.client},
	}
	if opts.sensor != nil {
		deps.Sensor = opts.sensor
	}
	r.ctrl = logic.NewController(cfg, logic.Options{LimitSamples: 3}, deps, r.sig)
	r.ctrl.Boot(r.now, opts.position, opts.havePosition)
	return r
}

func defaultSafety() logic.SafetyConfig {
	return config.DefaultSettings().Safety()
}

func (r *rig) advance(d time.Duration) {
	r.now = r.now.Add(d)
}

func (r *rig) cycle() {
	r.advance(5 * time.Millisecond)
	r.ctrl.Cycle(r.now)
}

func (r *rig) remote(action string) {
	cmd, err := logic.ParseRemote(action)
	if err != nil {
		r.t.Fatalf("ParseRemote(%q): %v", action, err)
	}
	r.sig.Submit(cmd)
	r.cycle()
}

// rotate delivers n rotation pulses and runs one cycle.
func (r *rig) rotate(n int) {
	for i := 0; i < n; i++ {
		r.advance(pulseSpacing)
		r.reader.Pulse(r.now)
	}
	r.cycle()
}

func (r *rig) press(b logic.Button) {
	r.reader.Press(b, true, r.now)
	r.cycle()
	r.advance(200 * time.Millisecond)
	r.reader.Press(b, false, r.now)
	r.cycle()
}

func (r *rig) last() logic.StateEvent {
	r.t.Helper()
	states, _ := r.client.Snapshot()
	if len(states) == 0 {
		r.t.Fatal("no state events published")
	}
	return states[len(states)-1]
}

func (r *rig) lastPayload() mqtt.StatePayload {
	r.t.Helper()
	var p mqtt.StatePayload
	payloads := r.client.StatePayloads
	if len(payloads) == 0 {
		r.t.Fatal("no state payloads published")
	}
	if err := json.Unmarshal(payloads[len(payloads)-1], &p); err != nil {
		r.t.Fatalf("invalid state payload: %v", err)
	}
	return p
}

// TestIntegrationOpenFullyThenClose drives a full remote open and close
// through the rotation counter.
func TestIntegrationOpenFullyThenClose(t *testing.T) {
	r := newRig(t, defaultSafety(), rigOptions{closed: true})

	if !r.last().Closed {
		t.Fatal("expected closed at boot")
	}

	r.reader.SetSwitches(false, false)
	r.remote("open")
	if !r.pins.Running() {
		t.Fatal("motor not running after open")
	}

	r.rotate(20)
	if r.pins.Running() {
		t.Fatal("motor still running at max rotations")
	}
	ev := r.last()
	if ev.Reason != logic.StopMaxRotations {
		t.Errorf("open stop reason = %s, want %s", ev.Reason, logic.StopMaxRotations)
	}
	p := r.lastPayload()
	if p.State != "open" || p.Percentage != float64(100) {
		t.Errorf("open payload = %+v, want open/100", p)
	}

	r.advance(time.Second)
	r.remote("close")
	if !r.pins.Running() {
		t.Fatal("motor not running after close")
	}
	r.rotate(20)
	if r.pins.Running() {
		t.Fatal("motor still running at zero")
	}
	ev = r.last()
	if ev.Reason != logic.StopClosedOffset {
		t.Errorf("close stop reason = %s, want %s", ev.Reason, logic.StopClosedOffset)
	}
	p = r.lastPayload()
	if p.State != "closed" || p.Percentage != float64(0) {
		t.Errorf("close payload = %+v, want closed/0", p)
	}
}

// TestIntegrationClosedOffset verifies the offset count starts with the
// rotation that reaches zero.
func TestIntegrationClosedOffset(t *testing.T) {
	cfg := defaultSafety()
	cfg.ClosedOffset = 2
	r := newRig(t, cfg, rigOptions{position: 3, havePosition: true})

	r.remote("close")
	r.rotate(3)
	if !r.pins.Running() {
		t.Fatal("motor stopped on reaching zero, want offset rotations")
	}
	r.rotate(1)
	if r.pins.Running() {
		t.Fatal("motor still running after offset rotations")
	}
	if ev := r.last(); ev.Reason != logic.StopClosedOffset || ev.Position != 0 {
		t.Errorf("stop = %s at %d, want %s at 0", ev.Reason, ev.Position, logic.StopClosedOffset)
	}
}

// TestIntegrationLimitSwitchStopsButtonMotion verifies a button-owned motion
// runs until the debounced limit switch stops it.
func TestIntegrationLimitSwitchStopsButtonMotion(t *testing.T) {
	r := newRig(t, defaultSafety(), rigOptions{position: 5, havePosition: true})

	r.reader.Press(logic.ButtonClose, true, r.now)
	r.cycle()
	if !r.pins.Running() {
		t.Fatal("motor not running after close button")
	}

	r.reader.SetSwitches(false, true)
	r.cycle()
	r.cycle()
	if !r.pins.Running() {
		t.Fatal("limit switch accepted before debounce window filled")
	}
	r.cycle()
	if r.pins.Running() {
		t.Fatal("motor still running on closed limit switch")
	}

	ev := r.last()
	if ev.Reason != logic.StopLimitClosed {
		t.Errorf("reason = %s, want %s", ev.Reason, logic.StopLimitClosed)
	}
	if !ev.Closed || ev.Position != 0 {
		t.Errorf("event = %+v, want closed at 0", ev)
	}
	if snap := r.ctrl.Snapshot(); snap.LastOwner != logic.OwnerLimit {
		t.Errorf("last owner = %s, want %s", snap.LastOwner, logic.OwnerLimit)
	}
}

// TestIntegrationButtonStopsRemoteMotion verifies either button stops a
// remote motion.
func TestIntegrationButtonStopsRemoteMotion(t *testing.T) {
	r := newRig(t, defaultSafety(), rigOptions{closed: true})

	r.reader.SetSwitches(false, false)
	r.remote("open:75")
	r.rotate(4)
	if !r.pins.Running() {
		t.Fatal("motor stopped before target")
	}

	r.reader.Press(logic.ButtonClose, true, r.now)
	r.cycle()
	if r.pins.Running() {
		t.Fatal("motor still running after button")
	}
	ev := r.last()
	if ev.Reason != logic.StopButton || ev.Position != 4 {
		t.Errorf("stop = %s at %d, want button at 4", ev.Reason, ev.Position)
	}
	if p := r.lastPayload(); p.Percentage != float64(20) {
		t.Errorf("percentage = %v, want 20", p.Percentage)
	}
}

// TestIntegrationMasterTimer verifies a manual motion without limit
// switches is cut by the master timer.
func TestIntegrationMasterTimer(t *testing.T) {
	r := newRig(t, defaultSafety(), rigOptions{position: 5, havePosition: true})

	r.press(logic.ButtonOpen)
	if !r.pins.Running() {
		t.Fatal("motor not running after open button")
	}

	r.advance(59 * time.Second)
	r.cycle()
	if !r.pins.Running() {
		t.Fatal("master timer fired early")
	}
	r.advance(time.Second)
	r.cycle()
	if r.pins.Running() {
		t.Fatal("motor still running past master timer")
	}
	if ev := r.last(); ev.Reason != logic.StopMasterTimer {
		t.Errorf("reason = %s, want %s", ev.Reason, logic.StopMasterTimer)
	}
}

// TestIntegrationOpenTimerWithoutRotationRange verifies a remote open with
// no rotation range is bounded by the open duration.
func TestIntegrationOpenTimerWithoutRotationRange(t *testing.T) {
	cfg := defaultSafety()
	cfg.MaxRotations = 0
	r := newRig(t, cfg, rigOptions{closed: true})

	r.reader.SetSwitches(false, false)
	r.remote("open")
	if !r.pins.Running() {
		t.Fatal("motor not running after open")
	}

	r.advance(cfg.OpenDuration)
	r.cycle()
	if r.pins.Running() {
		t.Fatal("motor still running past open duration")
	}
	if ev := r.last(); ev.Reason != logic.StopOpenTimer {
		t.Errorf("reason = %s, want %s", ev.Reason, logic.StopOpenTimer)
	}
	if p := r.lastPayload(); p.Percentage != "-" {
		t.Errorf("percentage = %v, want -", p.Percentage)
	}
}

// TestIntegrationOverCurrent verifies the current sensor stops the motor
// and sounds the over-current pattern.
func TestIntegrationOverCurrent(t *testing.T) {
	cfg := defaultSafety()
	cfg.MaxCurrent = 500
	sensor := currentsense.NewFakeSensor(120)
	r := newRig(t, cfg, rigOptions{position: 5, havePosition: true, sensor: sensor})

	r.press(logic.ButtonOpen)
	r.advance(logic.CurrentSenseInterval)
	r.cycle()
	if !r.pins.Running() {
		t.Fatal("motor stopped below the current limit")
	}
	if got := r.ctrl.Snapshot().Current; got != 120 {
		t.Errorf("snapshot current = %d, want 120", got)
	}

	sensor.Set(800, nil)
	r.advance(logic.CurrentSenseInterval)
	r.cycle()
	if r.pins.Running() {
		t.Fatal("motor still running over current limit")
	}
	if ev := r.last(); ev.Reason != logic.StopOverCurrent {
		t.Errorf("reason = %s, want %s", ev.Reason, logic.StopOverCurrent)
	}
	patterns := r.buzzer.Patterns()
	if len(patterns) == 0 || patterns[len(patterns)-1] != logic.PatternOverCurrent {
		t.Errorf("patterns = %v, want %s last", patterns, logic.PatternOverCurrent)
	}
}

// TestIntegrationRejectsOpenWithUnknownPosition verifies a percentage open
// needs a reference position.
func TestIntegrationRejectsOpenWithUnknownPosition(t *testing.T) {
	r := newRig(t, defaultSafety(), rigOptions{})

	r.remote("open:50")
	if r.pins.Running() {
		t.Fatal("motor started with unknown position")
	}
	if p := r.buzzer.Patterns(); len(p) != 1 || p[0] != logic.PatternRejected {
		t.Errorf("patterns = %v, want [%s]", p, logic.PatternRejected)
	}
}

// TestIntegrationRemoteDisabled verifies remote starts are silently refused
// while remote stop still works.
func TestIntegrationRemoteDisabled(t *testing.T) {
	cfg := defaultSafety()
	cfg.AllowRemoteControl = false
	r := newRig(t, cfg, rigOptions{position: 5, havePosition: true})

	r.remote("open")
	if r.pins.Running() {
		t.Fatal("remote open started motor while disabled")
	}
	if p := r.buzzer.Patterns(); len(p) != 0 {
		t.Errorf("patterns = %v, want none", p)
	}

	r.press(logic.ButtonOpen)
	if !r.pins.Running() {
		t.Fatal("button did not start motor")
	}
	r.remote("stop")
	if r.pins.Running() {
		t.Fatal("remote stop ignored while remote control disabled")
	}
	if ev := r.last(); ev.Reason != logic.StopRemote {
		t.Errorf("reason = %s, want %s", ev.Reason, logic.StopRemote)
	}
}

// TestIntegrationPublishFailureDoesNotCrash verifies the engine keeps
// running when the broker rejects publishes.
func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	r := newRig(t, defaultSafety(), rigOptions{position: 5, havePosition: true})
	r.client.PublishError = errors.New("broker gone")

	r.press(logic.ButtonOpen)
	r.press(logic.ButtonOpen)
	if r.pins.Running() {
		t.Fatal("second press did not stop the motor")
	}
	if snap := r.ctrl.Snapshot(); snap.LastStop != logic.StopButton {
		t.Errorf("last stop = %s, want %s", snap.LastStop, logic.StopButton)
	}
}

// TestIntegrationRuntimeConfigUpdate verifies a settings change reaches the
// engine on the next cycle.
func TestIntegrationRuntimeConfigUpdate(t *testing.T) {
	r := newRig(t, defaultSafety(), rigOptions{closed: true})

	settings := config.DefaultSettings()
	if err := settings.Apply("MaxOpenRotations", "10"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	r.sig.UpdateConfig(settings.Safety())
	r.reader.SetSwitches(false, false)
	r.remote("open:50")

	r.rotate(5)
	if r.pins.Running() {
		t.Fatal("motor still running at new target")
	}
	if p := r.lastPayload(); p.Percentage != float64(50) {
		t.Errorf("percentage = %v, want 50", p.Percentage)
	}
}
