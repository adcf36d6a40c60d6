package dashboard

import (
	"slices"

	"race-telemetry-dashboard/internal/charts"
	"race-telemetry-dashboard/internal/drivers"
	"race-telemetry-dashboard/internal/models"
	"race-telemetry-dashboard/internal/widget"
)

type DriverOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type MetricOption struct {
	Value    models.Metric `json:"value"`
	Text     string        `json:"text"`
	Selected bool          `json:"selected"`
}

// View is everything the page needs to render the dashboard.
type View struct {
	Version        uint64                          `json:"version"`
	State          State                           `json:"state"`
	RaceOptions    []widget.Option                 `json:"raceOptions"`
	DriverOptions  []DriverOption                  `json:"driverOptions"`
	MetricOptions  []MetricOption                  `json:"metricOptions"`
	Charts         map[string]charts.Config        `json:"charts"`
	Legends        map[string][]charts.LegendEntry `json:"legends"`
	Summary        []charts.SummaryCard            `json:"summary"`
	TelemetryTitle string                          `json:"telemetryTitle"`
}

var metricText = map[models.Metric]string{
	models.MetricSpeed:    "Speed",
	models.MetricRPM:      "RPM",
	models.MetricGear:     "Gear",
	models.MetricThrottle: "Throttle",
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	s := c.state
	s.Drivers = slices.Clone(s.Drivers)
	s.Selected = slices.Clone(s.Selected)
	s.Laps = slices.Clone(s.Laps)
	if s.Error != nil {
		b := *s.Error
		s.Error = &b
	}

	v := View{
		Version:     c.version,
		State:       s,
		RaceOptions: c.raceSelect.Options(),
		Charts:      c.registry.Snapshot(),
		Legends:     make(map[string][]charts.LegendEntry, len(c.legends)),
		Summary:     slices.Clone(c.summary),
	}
	for _, id := range s.Drivers {
		v.DriverOptions = append(v.DriverOptions, DriverOption{
			ID:       id,
			Label:    drivers.Label(id),
			Selected: slices.Contains(s.Selected, id),
		})
	}
	for _, m := range models.Metrics {
		v.MetricOptions = append(v.MetricOptions, MetricOption{
			Value: m, Text: metricText[m], Selected: m == s.Metric,
		})
	}
	for k, entries := range c.legends {
		v.Legends[k] = slices.Clone(entries)
	}
	v.TelemetryTitle = charts.SlotTitle(charts.SlotTelemetry)
	if c.telemetryLap > 0 {
		v.TelemetryTitle = charts.TelemetryTitle(c.telemetryLap)
	}
	return v
}

func (c *Controller) publish() {
	c.mu.Lock()
	c.version++
	v := c.viewLocked()
	c.mu.Unlock()
	c.notifier.Publish(v)
}
