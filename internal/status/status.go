// Package status provides a thread-safe status tracker for the blinds-control
// daemon. It is read by the HTTP handlers and the app state reports.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/blinds-control/internal/config"
	"github.com/sweeney/blinds-control/internal/logic"
)

// NetworkInfo is the network state reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config is the boot configuration shown on the status page.
type Config struct {
	Version       string
	Hostname      string
	PollMs        int64
	Broker        string
	HTTPPort      string
	StateFile     string
	CurrentSource string
}

// Snapshot combines the engine snapshot with daemon state for the status
// page and app state reports.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Engine        logic.Snapshot
	LastEvent     *logic.StateEvent
	MaxRotations  int
	Settings      config.Report
	StartTime     time.Time
	StartReason   string
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime is the time since the daemon started, measured at Now.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker is written by the background task and read by HTTP handlers.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker for a daemon started at startTime.
func NewTracker(startTime time.Time, startReason string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime:   startTime,
			StartReason: startReason,
			Config:      cfg,
		},
	}
}

// UpdateEngine stores the latest engine snapshot.
func (t *Tracker) UpdateEngine(s logic.Snapshot) {
	t.mu.Lock()
	t.snap.Engine = s
	t.mu.Unlock()
}

// SetLastEvent stores the most recent published state event.
func (t *Tracker) SetLastEvent(ev logic.StateEvent) {
	t.mu.Lock()
	t.snap.LastEvent = &ev
	t.mu.Unlock()
}

// SetSettings stores the active settings.
func (t *Tracker) SetSettings(s config.Settings) {
	t.mu.Lock()
	t.snap.Settings = s.Report()
	t.snap.MaxRotations = s.MaxOpenRotations
	t.mu.Unlock()
}

// SetMQTTConnected records the broker connection state.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork records the network state; nil when pi-helper is absent.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a copy safe to use after the lock is released, with Now
// set to the wall clock.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.LastEvent != nil {
		ev := *s.LastEvent
		s.LastEvent = &ev
	}
	s.Now = time.Now()
	return s
}
