package web

import (
	"html/template"
	"io"
	"time"

	"github.com/sweeney/blinds-control/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": status.FormatUptime,
	"rfc3339": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Blinds</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.open { color: green; font-weight: bold; }
.closed { color: #888; font-weight: bold; }
.running { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Blinds{{if .Config.Hostname}} ({{.Config.Hostname}}){{end}}<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Blinds</th><td id="blinds-state" class="{{.Blinds.State}}">{{.Blinds.State}}</td></tr>
<tr><th>Open</th><td id="blinds-pct">{{.Blinds.Percentage}}{{if ne (printf "%v" .Blinds.Percentage) "-"}}%{{end}}</td></tr>
<tr><th>Position</th><td id="blinds-pos">{{if lt .Blinds.Position 0}}unknown{{else}}{{.Blinds.Position}} / {{.Blinds.MaxRotations}}{{end}}</td></tr>
<tr><th>Limit switches</th><td>{{if .Blinds.LimitOpened}}opened {{end}}{{if .Blinds.LimitClosed}}closed{{end}}{{if not (or .Blinds.LimitOpened .Blinds.LimitClosed)}}none{{end}}</td></tr>
</table>

<h2>Motor</h2>
<table>
<tr><th>Motor</th><td class="{{if .Engine.Motor.IsRunning}}running{{end}}">{{if .Engine.Motor.IsRunning}}{{.Engine.Motor.Action}} ({{.Engine.Motor.Owner}}){{else}}idle{{end}}</td></tr>
<tr><th>Current</th><td>{{.Engine.Current}}</td></tr>
<tr><th>Starts</th><td>{{.Engine.Starts}}</td></tr>
<tr><th>Last stop</th><td>{{if .Engine.LastStop}}{{.Engine.LastStop}} by {{.Engine.LastOwner}} at {{rfc3339 .Engine.LastStopAt}}{{else}}-{{end}}</td></tr>
</table>

<h2>Stop Counts</h2>
<table>
{{range .Stops}}<tr><th>{{.Reason}}</th><td>{{.Count}}</td></tr>
{{else}}<tr><td>none</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Settings</h2>
<table>
<tr><th>Remote control</th><td>{{.Settings.AllowRemoteControl}}</td></tr>
<tr><th>Remote bleep</th><td>{{.Settings.AllowRemoteBleep}}</td></tr>
<tr><th>Max rotations</th><td>{{.Settings.MaxOpenRotations}}</td></tr>
<tr><th>Rotation limits</th><td>{{.Settings.RotationLimits}}</td></tr>
<tr><th>Closed offset</th><td>{{.Settings.ClosedRotationOffset}}</td></tr>
<tr><th>Open duration</th><td>{{.Settings.OpenDuration}}s</td></tr>
<tr><th>Max run duration</th><td>{{.Settings.MaxRunDuration}}s</td></tr>
<tr><th>Max current</th><td>{{if eq .Settings.MaxCurrentLimit 0}}disabled{{else}}{{.Settings.MaxCurrentLimit}}{{end}}</td></tr>
<tr><th>State interval</th><td>{{if eq .Settings.StateInterval 0}}disabled{{else}}{{.Settings.StateInterval}}m{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Version</th><td>{{.Config.Version}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{rfc3339 .StartTime}}{{if .StartReason}} ({{.StartReason}}){{end}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("blinds-state");
  var pctEl = document.getElementById("blinds-pct");
  var posEl = document.getElementById("blinds-pos");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(e) {
      try {
        var msg = JSON.parse(e.data);
        stateEl.textContent = msg.state;
        stateEl.className = msg.state;
        pctEl.textContent = msg.percentage === "-" ? "-" : msg.percentage + "%";
        if (msg.position >= 0) { posEl.textContent = msg.position; }
      } catch (err) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has methods but the template needs plain fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Blinds status.BlindsJSON
		Stops  []status.ReasonCount
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Blinds:   status.BlindsState(snap),
		Stops:    status.StopReasons(snap),
	}
	indexTmpl.Execute(w, data)
}
