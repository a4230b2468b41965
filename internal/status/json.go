package status

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sweeney/blinds-control/internal/config"
	"github.com/sweeney/blinds-control/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Version       string         `json:"version"`
	Device        string         `json:"device"`
	Blinds        BlindsJSON     `json:"blinds"`
	Motor         MotorJSON      `json:"motor"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Uptime        string         `json:"uptime"`
	StartTime     string         `json:"start_time"`
	StartReason   string         `json:"start_reason"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
	Settings      *config.Report `json:"settings,omitempty"`
}

// BlindsJSON is the published blinds state.
type BlindsJSON struct {
	State string `json:"state"`
	// Percentage is an integer, or "-" when unknown.
	Percentage   any  `json:"percentage"`
	Position     int  `json:"position"`
	LimitOpened  bool `json:"limit_opened"`
	LimitClosed  bool `json:"limit_closed"`
	MaxRotations int  `json:"max_rotations"`
}

// MotorJSON describes the motor and its stop history.
type MotorJSON struct {
	Running    bool           `json:"running"`
	Action     string         `json:"action"`
	Owner      string         `json:"owner"`
	Target     int            `json:"target"`
	Current    int            `json:"current"`
	Starts     int            `json:"starts"`
	LastStop   string         `json:"last_stop,omitempty"`
	LastStopAt string         `json:"last_stop_at,omitempty"`
	LastOwner  string         `json:"last_owner,omitempty"`
	StopCounts map[string]int `json:"stop_counts"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	Broker        string `json:"broker"`
	HTTPPort      string `json:"http_port"`
	StateFile     string `json:"state_file"`
	CurrentSource string `json:"current_source"`
}

// FormatUptime renders d as "<days>d<hours>:<minutes>:<seconds>".
func FormatUptime(d time.Duration) string {
	secs := int64(d.Truncate(time.Second).Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%dd%d:%02d:%02d", secs/86400, secs/3600%24, secs/60%60, secs%60)
}

// BlindsState derives the published state from the last event, or from the
// engine snapshot before any event was seen.
func BlindsState(snap Snapshot) BlindsJSON {
	m := snap.Engine.Motor
	b := BlindsJSON{
		State:        "open",
		Percentage:   "-",
		Position:     m.Position,
		LimitOpened:  snap.Engine.Switches.Opened.Set,
		LimitClosed:  snap.Engine.Switches.Closed.Set,
		MaxRotations: snap.MaxRotations,
	}
	if snap.LastEvent != nil {
		b.State = snap.LastEvent.StateName()
		if snap.LastEvent.Percentage != nil {
			b.Percentage = *snap.LastEvent.Percentage
		}
		return b
	}
	if b.LimitClosed {
		b.State = "closed"
	}
	if pct, ok := logic.Percentage(m.Position, snap.MaxRotations); ok {
		b.Percentage = pct
	}
	return b
}

func buildInner(snap Snapshot) StatusInner {
	e := snap.Engine
	counts := make(map[string]int, len(e.StopCounts))
	for reason, n := range e.StopCounts {
		if reason == logic.StopNone {
			continue
		}
		counts[string(reason)] = n
	}

	motor := MotorJSON{
		Running:    e.Motor.IsRunning,
		Action:     e.Motor.Action.String(),
		Owner:      e.Motor.Owner.String(),
		Target:     e.Motor.Target,
		Current:    e.Current,
		Starts:     e.Starts,
		LastStop:   string(e.LastStop),
		StopCounts: counts,
	}
	if !e.LastStopAt.IsZero() {
		motor.LastStopAt = e.LastStopAt.UTC().Format(time.RFC3339)
		motor.LastOwner = e.LastOwner.String()
	}

	inner := StatusInner{
		Version:       snap.Config.Version,
		Device:        snap.Config.Hostname,
		Blinds:        BlindsState(snap),
		Motor:         motor,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		Uptime:        FormatUptime(snap.Uptime()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		StartReason:   snap.StartReason,
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
			StateFile:     snap.Config.StateFile,
			CurrentSource: snap.Config.CurrentSource,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// StopReasons returns the stop counts sorted by reason, for display.
func StopReasons(snap Snapshot) []ReasonCount {
	var out []ReasonCount
	for reason, n := range snap.Engine.StopCounts {
		if reason == logic.StopNone {
			continue
		}
		out = append(out, ReasonCount{Reason: string(reason), Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reason < out[j].Reason })
	return out
}

// ReasonCount is one row of the stop count table.
type ReasonCount struct {
	Reason string
	Count  int
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	settings := snap.Settings
	inner.Settings = &settings

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT app state event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
