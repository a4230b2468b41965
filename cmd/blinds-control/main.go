// Command blinds-control drives a motorized window blind from its buttons,
// limit switches and MQTT commands, and publishes its state to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/blinds-control/internal/buzzer"
	"github.com/sweeney/blinds-control/internal/config"
	"github.com/sweeney/blinds-control/internal/currentsense"
	"github.com/sweeney/blinds-control/internal/gpio"
	"github.com/sweeney/blinds-control/internal/logic"
	"github.com/sweeney/blinds-control/internal/motor"
	"github.com/sweeney/blinds-control/internal/mqtt"
	"github.com/sweeney/blinds-control/internal/netwatch"
	"github.com/sweeney/blinds-control/internal/status"
	"github.com/sweeney/blinds-control/internal/system"
	"github.com/sweeney/blinds-control/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const defaultConfigPath = "/etc/blinds-control/config.yaml"

// Queue sizes between the MQTT/control goroutines and the background loop.
const (
	messageQueue = 16
	eventQueue   = 16
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath, "YAML configuration file")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", `HTTP status address (overrides config, "off" disables)`)
	printState := flag.Bool("print-state", false, "Print limit switch and button levels and exit")

	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyOverrides(cfg, *broker, *httpAddr)

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig reads path. A missing file at the default location yields the
// built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == defaultConfigPath {
		log.Printf("config: %s not found, using defaults", path)
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, broker, httpAddr string) {
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTPAddr = ""
	default:
		cfg.HTTPAddr = httpAddr
	}
}

func run(cfg *config.Config, printState bool) error {
	store, err := config.OpenStore(cfg.StateFile)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	settings := store.Settings()
	sig := logic.NewSignals(settings.Safety())

	p := cfg.GPIO.Pins
	reader, err := gpio.NewRealReader(cfg.GPIO.Chip, gpio.Lines{
		ButtonOpen:  p.ButtonOpen,
		ButtonClose: p.ButtonClose,
		LimitOpened: p.LimitOpened,
		LimitClosed: p.LimitClosed,
		Rotation:    p.Rotation,
	}, sig)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	if printState {
		opened, closed, err := reader.ReadSwitches()
		if err != nil {
			return fmt.Errorf("read limit switches: %w", err)
		}
		openBtn, closeBtn, err := reader.ReadButtons()
		if err != nil {
			return fmt.Errorf("read buttons: %w", err)
		}
		pos, ok := store.Position()
		if !ok {
			pos = logic.PositionUnknown
		}
		fmt.Printf("limit opened: %t, limit closed: %t, button open: %t, button close: %t, saved position: %d\n",
			opened, closed, openBtn, closeBtn, pos)
		return nil
	}

	pins, err := motor.NewRealPins(motor.PinConfig{
		Chip:        cfg.GPIO.Chip,
		EnableLeft:  p.EnableLeft,
		EnableRight: p.EnableRight,
		PWMOpen:     p.PWMOpen,
		PWMClose:    p.PWMClose,
		Frequency:   cfg.GPIO.PWMFrequency,
	})
	if err != nil {
		return fmt.Errorf("init motor: %w", err)
	}
	defer pins.Close()
	driver := motor.NewDriver(pins, motor.DefaultRamp())

	sensor, err := currentsense.New(cfg.CurrentSense)
	if err != nil {
		return fmt.Errorf("init current sense: %w", err)
	}
	if sensor != nil {
		defer sensor.Close()
	}

	done := make(chan struct{})
	var alerter logic.Alerter = logAlerter{}
	if p.Buzzer >= 0 {
		line, err := buzzer.NewGPIOLine(cfg.GPIO.Chip, p.Buzzer)
		if err != nil {
			log.Printf("buzzer: %v, continuing without", err)
		} else {
			defer line.Close()
			player := buzzer.NewPlayer(line)
			go player.Run(done)
			alerter = player
		}
	}

	hostname, _ := os.Hostname()
	tracker := status.NewTracker(time.Now(), system.StartReason(), status.Config{
		Version:       version,
		Hostname:      hostname,
		PollMs:        cfg.Poll().Milliseconds(),
		Broker:        cfg.MQTT.Broker,
		HTTPPort:      cfg.HTTPAddr,
		StateFile:     cfg.StateFile,
		CurrentSource: cfg.CurrentSense.Source,
	})
	tracker.SetSettings(settings)
	if info := readNetworkInfo(); info != nil {
		tracker.SetNetwork(info)
	}
	hub := web.NewHub()

	msgs := make(chan mqtt.Message, messageQueue)
	client, err := mqtt.NewRealClient(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topics:   cfg.MQTT.Topics,
	}, func(m mqtt.Message) {
		select {
		case msgs <- m:
		default:
			log.Printf("mqtt: message queue full, dropped message on %s", m.Topic)
		}
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	events := make(eventSink, eventQueue)
	deps := logic.Deps{
		Switches: reader,
		Buttons:  reader,
		Actuator: driver,
		Store:    store,
		Alerter:  alerter,
		Notifier: events,
	}
	if sensor != nil {
		deps.Sensor = sensor
	}
	ctrl := logic.NewController(settings.Safety(), logic.Options{
		LimitSamples: cfg.LimitSamples,
		Logf:         log.Printf,
	}, deps, sig)
	pos, ok := store.Position()
	ctrl.Boot(time.Now(), pos, ok)

	ctrlTick := time.NewTicker(cfg.Poll())
	defer ctrlTick.Stop()
	ctrlDone := make(chan struct{})
	ctrlExit := make(chan struct{})
	go func() {
		runControl(ctrl, time.Now, ctrlTick.C, ctrlDone)
		close(ctrlExit)
	}()

	d := &daemon{
		ctrl:     ctrl,
		sig:      sig,
		settings: settings,
		store:    store,
		client:   client,
		conn:     client,
		topics:   cfg.MQTT.Topics,
		tracker:  tracker,
		hub:      hub,
		alerter:  alerter,
		rebooter: system.RealRebooter{},
		watchdog: netwatch.New(cfg.RestartGrace()),
		events:   events,
		msgs:     msgs,
		stopControl: func() {
			sig.Shutdown()
			close(ctrlDone)
			<-ctrlExit
		},
		restartDelay: time.Second,
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: version=%s poll=%v broker=%s state=%s", version, cfg.Poll(), cfg.MQTT.Broker, cfg.StateFile)
	d.startup(time.Now())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	err = d.runLoop(time.Now, ticker.C, sigCh)
	if n := client.Buffered(); n > 0 {
		log.Printf("mqtt: %d messages unsent at shutdown", n)
	}
	close(done)
	return err
}

// runControl is the control task: one engine cycle per tick. Closing done
// runs a final cycle so a pending shutdown stops the motor.
func runControl(ctrl *logic.Controller, now func() time.Time, tick <-chan time.Time, done <-chan struct{}) {
	for {
		select {
		case <-done:
			ctrl.Cycle(now())
			return
		case <-tick:
			ctrl.Cycle(now())
		}
	}
}

// eventSink hands state events from the control task to the background loop.
type eventSink chan logic.StateEvent

// Notify queues ev without blocking the control task.
func (s eventSink) Notify(ev logic.StateEvent) {
	select {
	case s <- ev:
	default:
		log.Printf("events: queue full, dropped %s event", ev.StateName())
	}
}

// logAlerter stands in for the buzzer when none is fitted.
type logAlerter struct{}

func (logAlerter) Alert(pattern string) {
	log.Printf("buzzer: not fitted, pattern=%s", pattern)
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
