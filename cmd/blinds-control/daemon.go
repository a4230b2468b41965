package main

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/blinds-control/internal/config"
	"github.com/sweeney/blinds-control/internal/logic"
	"github.com/sweeney/blinds-control/internal/mqtt"
	"github.com/sweeney/blinds-control/internal/netwatch"
	"github.com/sweeney/blinds-control/internal/status"
	"github.com/sweeney/blinds-control/internal/system"
)

// patternStartup is played once the daemon is up.
const patternStartup = "1x3"

// settingsStore persists settings changed over MQTT.
type settingsStore interface {
	SaveSettings(s config.Settings) error
}

// daemon is the background task. It owns the runtime settings and every
// outbound publish; the control task only reaches it through the events
// channel.
type daemon struct {
	ctrl     *logic.Controller
	sig      *logic.Signals
	settings config.Settings
	store    settingsStore
	client   mqtt.Client
	conn     mqtt.ConnectionStatus
	topics   config.TopicsConfig
	tracker  *status.Tracker
	hub      logic.Notifier
	alerter  logic.Alerter
	rebooter system.Rebooter
	watchdog *netwatch.Watchdog

	events <-chan logic.StateEvent
	msgs   <-chan mqtt.Message

	// stopControl shuts the control task down and waits for its final cycle.
	stopControl func()

	restartDelay time.Duration
	sleep        func(time.Duration)
}

// startup publishes the settings and the retained STARTUP event.
func (d *daemon) startup(now time.Time) {
	d.tracker.UpdateEngine(d.ctrl.Snapshot())
	d.tracker.SetMQTTConnected(d.conn.IsConnected())
	d.publishConfig()
	d.publishAppState(now, "STARTUP", d.tracker.Snapshot().StartReason, true)
	d.alerter.Alert(patternStartup)
}

// runLoop handles incoming messages, state events, the 1 s housekeeping
// tick and OS signals until a signal arrives.
func (d *daemon) runLoop(now func() time.Time, tick <-chan time.Time, sigCh <-chan os.Signal) error {
	for {
		select {
		case m := <-d.msgs:
			d.handleMessage(now(), m)

		case ev := <-d.events:
			d.handleEvent(ev)

		case t := <-tick:
			d.handleTick(t)

		case s := <-sigCh:
			d.shutdown(now(), s)
			return nil
		}
	}
}

func (d *daemon) handleMessage(now time.Time, m mqtt.Message) {
	switch m.Topic {
	case d.topics.Action:
		d.handleAction(m.Payload)
	case d.topics.AppCmd:
		d.handleAppCmd(now, m.Payload)
	case d.topics.Notify:
		if !d.settings.AllowRemoteBleep {
			log.Printf("notify: remote bleep disabled, ignored %q", m.Payload)
			return
		}
		d.alerter.Alert(m.Payload)
	default:
		log.Printf("mqtt: message on unexpected topic %s", m.Topic)
	}
}

func (d *daemon) handleAction(payload string) {
	cmd, err := logic.ParseRemote(payload)
	if err != nil {
		if !d.settings.AllowRemoteControl {
			log.Printf("action: remote control disabled, ignored %q", payload)
			return
		}
		log.Printf("action: %v", err)
		d.alerter.Alert(logic.PatternUnknown)
		return
	}
	log.Printf("action: %s", cmd)
	d.sig.Submit(cmd)
}

func (d *daemon) handleAppCmd(now time.Time, payload string) {
	cmd, err := config.ParseCommand(payload)
	if err != nil {
		log.Printf("appcmd: %v", err)
		d.alerter.Alert(logic.PatternUnknown)
		return
	}

	switch cmd.Kind {
	case config.CmdRestart:
		if d.ctrl.Snapshot().Motor.IsRunning {
			log.Printf("appcmd: restart refused, motor is running")
			d.alerter.Alert(logic.PatternRejected)
			return
		}
		d.alerter.Alert(system.PatternRestart)
		d.restart(now, "restart")
	case config.CmdGetState:
		d.tracker.UpdateEngine(d.ctrl.Snapshot())
		d.publishAppState(now, "STATE", "getstate", false)
	case config.CmdGetConfig:
		d.publishConfig()
	case config.CmdSet:
		d.applySetting(cmd.Key, cmd.Value)
	}
}

// applySetting validates, persists and activates one setting. The control
// task picks the new safety config up on its next cycle.
func (d *daemon) applySetting(key, value string) {
	next := d.settings
	if err := next.Apply(key, value); err != nil {
		log.Printf("appcmd: %v", err)
		d.alerter.Alert(logic.PatternUnknown)
		return
	}
	if err := d.store.SaveSettings(next); err != nil {
		log.Printf("appcmd: persist %s: %v", key, err)
	}
	d.settings = next
	d.sig.UpdateConfig(next.Safety())
	d.tracker.SetSettings(next)
	if key == "WiFiSetup" {
		log.Printf("appcmd: wifi credentials updated ssid=%q", next.SSID)
	} else {
		log.Printf("appcmd: %s set to %s", key, value)
	}
	d.publishConfig()
}

func (d *daemon) handleEvent(ev logic.StateEvent) {
	if err := d.client.PublishState(ev); err != nil {
		log.Printf("mqtt: publish state: %v", err)
	}
	d.tracker.SetLastEvent(ev)
	d.tracker.UpdateEngine(d.ctrl.Snapshot())
	d.hub.Notify(ev)
}

func (d *daemon) handleTick(t time.Time) {
	snap := d.ctrl.Snapshot()
	d.tracker.UpdateEngine(snap)
	online := d.conn.IsConnected()
	d.tracker.SetMQTTConnected(online)

	if r := d.ctrl.CheckReport(t, d.settings.StateReportInterval()); r != nil {
		d.publishAppState(t, "STATE", "interval", false)
	}

	if d.watchdog.Check(t, online, snap.Motor.IsRunning) {
		log.Printf("netwatch: offline for %v, restarting", d.watchdog.Down(t).Round(time.Second))
		d.alerter.Alert(netwatch.PatternNetworkRestart)
		d.restart(t, "network")
	}
}

// restart publishes the SHUTDOWN event, gives the buzzer time to play and
// reboots. It only returns when the reboot failed.
func (d *daemon) restart(now time.Time, reason string) {
	d.publishAppState(now, "SHUTDOWN", reason, true)
	if d.sleep != nil {
		d.sleep(d.restartDelay)
	} else {
		time.Sleep(d.restartDelay)
	}
	if err := d.rebooter.Reboot(); err != nil {
		log.Printf("system: reboot failed: %v", err)
	}
}

// shutdown stops the motor, flushes the final state event and publishes
// the retained SHUTDOWN event.
func (d *daemon) shutdown(now time.Time, s os.Signal) {
	d.stopControl()
	d.drainEvents()

	reason := "SIGTERM"
	if s == syscall.SIGINT {
		reason = "SIGINT"
	}
	d.tracker.UpdateEngine(d.ctrl.Snapshot())
	d.publishAppState(now, "SHUTDOWN", reason, true)
	log.Printf("shutdown: %s", reason)
}

func (d *daemon) drainEvents() {
	for {
		select {
		case ev := <-d.events:
			d.handleEvent(ev)
		default:
			return
		}
	}
}

func (d *daemon) publishConfig() {
	if err := d.client.PublishConfig(d.settings.Report()); err != nil {
		log.Printf("mqtt: publish config: %v", err)
	}
}

func (d *daemon) publishAppState(now time.Time, event, reason string, retained bool) {
	payload := status.FormatStatusEvent(d.tracker.Snapshot(), event, reason)
	err := d.client.PublishSystem(mqtt.SystemEvent{
		Timestamp:  now,
		Event:      event,
		Reason:     reason,
		RawPayload: payload,
		Retained:   retained,
	})
	if err != nil {
		log.Printf("mqtt: publish %s: %v", event, err)
	}
}
