// Package charts builds declarative chart configurations from API responses.
//
// The configurations follow the Chart.js configuration layout so the page can
// hand them to the browser library unchanged. RenderPNG draws the same
// configurations server side.
package charts

import (
	"encoding/json"

	"race-telemetry-dashboard/internal/models"
)

type ChartType string

const (
	TypeLine    ChartType = "line"
	TypeScatter ChartType = "scatter"
	TypeBar     ChartType = "bar"
)

type Config struct {
	Type    ChartType `json:"type"`
	Data    Data      `json:"data"`
	Options Options   `json:"options"`
}

type Data struct {
	Labels   []string  `json:"labels,omitempty"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label            string  `json:"label"`
	Data             []Point `json:"data"`
	BorderColor      string  `json:"borderColor"`
	BackgroundColor  string  `json:"backgroundColor"`
	BorderDash       []int   `json:"borderDash,omitempty"`
	BorderWidth      int     `json:"borderWidth,omitempty"`
	Fill             bool    `json:"fill"`
	Tension          float64 `json:"tension,omitempty"`
	PointRadius      int     `json:"pointRadius,omitempty"`
	PointHoverRadius int     `json:"pointHoverRadius,omitempty"`
	// DriverID is empty for datasets not tied to a single driver.
	DriverID string `json:"driverId,omitempty"`
}

// Dashed reports whether the dataset is drawn with a dash pattern.
func (d Dataset) Dashed() bool { return len(d.BorderDash) > 0 }

// Point is a data point. Category replaces X on categorical axes.
type Point struct {
	X        float64
	Category string
	Y        float64
	Compound models.Compound
	LapTime  float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	type point struct {
		X        any             `json:"x"`
		Y        float64         `json:"y"`
		Compound models.Compound `json:"compound,omitempty"`
		LapTime  float64         `json:"lapTime,omitempty"`
	}
	out := point{X: p.X, Y: p.Y, Compound: p.Compound, LapTime: p.LapTime}
	if p.Category != "" {
		out.X = p.Category
	}
	return json.Marshal(out)
}

type Options struct {
	Responsive          bool            `json:"responsive"`
	MaintainAspectRatio bool            `json:"maintainAspectRatio"`
	Plugins             Plugins         `json:"plugins"`
	Scales              map[string]Axis `json:"scales"`
}

type Plugins struct {
	Title   *Title        `json:"title,omitempty"`
	Legend  LegendOptions `json:"legend"`
	Tooltip Tooltip       `json:"tooltip"`
}

type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type LegendOptions struct {
	Display bool `json:"display"`
}

type Tooltip struct {
	BackgroundColor string `json:"backgroundColor"`
	TitleColor      string `json:"titleColor"`
	BodyColor       string `json:"bodyColor"`
	BorderColor     string `json:"borderColor"`
	BorderWidth     int    `json:"borderWidth"`
	// Format names the value formatter used by the page: lapTime or a metric.
	Format string `json:"format,omitempty"`
}

type Axis struct {
	Type        string    `json:"type,omitempty"`
	Title       AxisTitle `json:"title"`
	Ticks       Ticks     `json:"ticks"`
	Grid        Grid      `json:"grid"`
	BeginAtZero bool      `json:"beginAtZero,omitempty"`
}

type AxisTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
	Color   string `json:"color,omitempty"`
}

type Ticks struct {
	Color    string  `json:"color"`
	StepSize float64 `json:"stepSize,omitempty"`
	// Format names the tick formatter used by the page, e.g. lapTime.
	Format string `json:"format,omitempty"`
}

type Grid struct {
	Color string `json:"color"`
}

const (
	tickColor  = "#495057"
	gridColor  = "#e9ecef"
	titleColor = "#333"
	accent     = "#e10600"

	FormatLapTimeName = "lapTime"
)

func baseOptions() Options {
	return Options{
		Responsive:          true,
		MaintainAspectRatio: false,
		Plugins: Plugins{
			Legend: LegendOptions{Display: false},
			Tooltip: Tooltip{
				BackgroundColor: "rgba(255, 255, 255, 0.95)",
				TitleColor:      titleColor,
				BodyColor:       titleColor,
				BorderColor:     accent,
				BorderWidth:     1,
			},
		},
		Scales: map[string]Axis{
			"x": baseAxis(""),
			"y": baseAxis(""),
		},
	}
}

func baseAxis(title string) Axis {
	a := Axis{
		Ticks: Ticks{Color: tickColor},
		Grid:  Grid{Color: gridColor},
	}
	if title != "" {
		a.Title = AxisTitle{Display: true, Text: title, Color: titleColor}
	}
	return a
}

// Empty reports whether the configuration carries no data points at all.
func (c Config) Empty() bool {
	for _, ds := range c.Data.Datasets {
		if len(ds.Data) > 0 {
			return false
		}
	}
	return true
}
