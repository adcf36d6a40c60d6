package web

import (
	"html/template"
	"strings"

	"race-telemetry-dashboard/internal/charts"
	"race-telemetry-dashboard/internal/dashboard"
	"race-telemetry-dashboard/internal/drivers"
	"race-telemetry-dashboard/internal/models"
)

type chartPanel struct {
	Slot    string
	Title   string
	Legend  []charts.LegendEntry
	Loaded  bool
	Metrics bool
}

type sessionOption struct {
	Value    models.Session
	Text     string
	Selected bool
}

type pageData struct {
	View       dashboard.View
	RaceSelect template.HTML
	Sessions   []sessionOption
	Panels     []chartPanel
	Drivers    []drivers.Driver
}

// panel order of the page with the legend shown below each chart
var panels = []struct{ slot, legend string }{
	{charts.SlotLapTimes, dashboard.LegendLapTimes},
	{charts.SlotTelemetry, dashboard.LegendTelemetry},
	{charts.SlotTires, dashboard.LegendTires},
	{charts.SlotTireStrategy, ""},
}

func newPageData(v dashboard.View, raceSelect template.HTML) pageData {
	p := pageData{View: v, RaceSelect: raceSelect, Drivers: drivers.All()}
	for _, s := range []models.Session{models.SessionRace, models.SessionQualifying} {
		p.Sessions = append(p.Sessions, sessionOption{Value: s, Text: s.String(), Selected: v.State.Session == s})
	}
	for _, pn := range panels {
		_, loaded := v.Charts[pn.slot]
		p.Panels = append(p.Panels, chartPanel{
			Slot:    pn.slot,
			Title:   chartTitle(v, pn.slot),
			Legend:  v.Legends[pn.legend],
			Loaded:  loaded,
			Metrics: pn.slot == charts.SlotTelemetry,
		})
	}
	return p
}

var funcMap = template.FuncMap{
	"swatch": func(e charts.LegendEntry) template.CSS {
		style := "solid"
		if e.Dashed {
			style = "dashed"
		}
		// colors come from the static driver table
		return template.CSS("border-top:3px " + style + " " + e.Color)
	},
	"css": func(s string) template.CSS {
		return template.CSS(strings.NewReplacer(";", "", "}", "").Replace(s))
	},
}

var pageTmpl = template.Must(template.New("page").Funcs(funcMap).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>Race Telemetry Dashboard</title>
<style>
*{box-sizing:border-box}
body{font-family:system-ui,sans-serif;margin:0;background:#15151e;color:#f0f0f0}
header{background:#e10600;padding:12px 20px;font-weight:700;font-size:18px}
main{padding:16px 20px}
form.controls{display:flex;gap:16px;flex-wrap:wrap;align-items:flex-end;margin-bottom:16px}
.help-text{display:block;color:#999;font-size:11px}
.banner{background:#5c1a1a;border:1px solid #e10600;padding:8px 12px;margin-bottom:12px;display:flex;justify-content:space-between}
.cards{display:flex;gap:12px;flex-wrap:wrap;margin-bottom:16px}
.card{background:#1f1f2b;border-radius:6px;padding:10px 14px;min-width:180px}
.card .lbl{font-weight:600;margin-bottom:4px}
.grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(480px,1fr));gap:16px}
.chart-container{background:#1f1f2b;border-radius:6px;padding:12px}
.chart-container h3{margin:0 0 8px;font-size:15px;display:flex;gap:12px;align-items:center}
.chart-container img{width:100%;background:#fff;border-radius:4px}
.legend{display:flex;gap:12px;flex-wrap:wrap;font-size:12px;margin-top:6px}
.legend span.line{display:inline-block;width:24px;vertical-align:middle;margin-right:4px}
.empty{color:#777;padding:40px;text-align:center}
table{border-collapse:collapse;font-size:12px;margin-top:20px}
td,th{padding:3px 10px;border-bottom:1px solid #333;text-align:left}
.loading{color:#f5c518}
</style>
</head>
<body>
<header>Race Telemetry Dashboard</header>
<main>
{{with .View.State.Error}}
<div class="banner" role="alert">
  <span>{{.Message}}</span>
  <form method="post" action="/dashboard/dismiss"><input type="hidden" name="id" value="{{.ID}}"><button>&times;</button></form>
</div>
{{end}}

<form class="controls" method="post" action="/dashboard/race">
{{.RaceSelect}}
</form>

<form class="controls" method="post" action="/dashboard/session">
  <label for="session">Session:</label>
  <select id="session" name="session" onchange="this.form.submit()">
  {{- range .Sessions}}
    <option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Text}}</option>
  {{- end}}
  </select>
</form>

<form class="controls" method="post" action="/dashboard/load">
  <input type="hidden" name="driver_form" value="1">
  <fieldset>
    <legend>Drivers</legend>
    {{- range .View.DriverOptions}}
    <label><input type="checkbox" name="drivers" value="{{.ID}}"{{if .Selected}} checked{{end}}> {{.Label}}</label>
    {{- else}}
    <span class="help-text">Select a race to list its drivers</span>
    {{- end}}
  </fieldset>
  <label for="lap">Lap:</label>
  <select id="lap" name="lap">
  {{- $lap := .View.State.Lap}}
  {{- range .View.State.Laps}}
    <option value="{{.}}"{{if eq . $lap}} selected{{end}}>Lap {{.}}</option>
  {{- else}}
    <option value="{{$lap}}" selected>Lap {{$lap}}</option>
  {{- end}}
  </select>
  <button type="submit"{{if .View.State.Loading}} disabled{{end}}>{{if .View.State.Loading}}Loading...{{else}}Load Data{{end}}</button>
</form>

{{if .View.Summary}}
<div class="cards" id="summary-stats">
{{- range .View.Summary}}
  <div class="card" style="border-left:4px solid {{css .Color}}">
    <div class="lbl">{{.Label}}</div>
    <div>Fastest Lap: {{.FastestLap}}</div>
    <div>Average Lap: {{.AverageLap}}</div>
    <div>Laps Completed: {{.LapsCompleted}}</div>
  </div>
{{- end}}
</div>
{{end}}

<div class="grid">
{{- $version := .View.Version}}
{{- $metrics := .View.MetricOptions}}
{{- range .Panels}}
  <div class="chart-container">
    <h3>{{.Title}}
    {{- if .Metrics}}
      <form method="post" action="/dashboard/metric">
        <select id="telemetry-metric-select" name="metric" onchange="this.form.submit()">
        {{- range $metrics}}
          <option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Text}}</option>
        {{- end}}
        </select>
      </form>
    {{- end}}
    </h3>
    {{- if .Loaded}}
    <img id="{{.Slot}}" src="/charts/{{.Slot}}.png?v={{$version}}" alt="{{.Title}}">
    {{- else}}
    <div class="empty">No data loaded</div>
    {{- end}}
    {{- with .Legend}}
    <div class="legend">
    {{- range .}}
      <span><span class="line" style="{{swatch .}}"></span>{{.Label}}</span>
    {{- end}}
    </div>
    {{- end}}
  </div>
{{- end}}
</div>

<table>
  <tr><th>#</th><th>Driver</th><th>Team</th></tr>
  {{- range .Drivers}}
  <tr><td>{{.Number}}</td><td>{{.Name}}</td><td><span style="color:{{css .Color}}">&#9632;</span> {{.Team}}</td></tr>
  {{- end}}
</table>
</main>
<script>
(function () {
  var version = {{.View.Version}};
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function (ev) {
    var view = JSON.parse(ev.data);
    if (view.version > version && !view.state.loading) {
      location.reload();
    }
  };
})();
</script>
</body>
</html>
`))
