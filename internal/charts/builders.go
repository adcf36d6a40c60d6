package charts

import (
	"fmt"

	"race-telemetry-dashboard/internal/drivers"
	"race-telemetry-dashboard/internal/models"
)

var dashPattern = []int{5, 5}

// TireColors maps compounds to their display color.
var TireColors = map[models.Compound]string{
	models.CompoundSoft:         "#FF3333",
	models.CompoundMedium:       "#e3cb7c",
	models.CompoundHard:         "#FFFFFF",
	models.CompoundIntermediate: "#00FF00",
	models.CompoundWet:          "#0066FF",
	models.CompoundUnknown:      "#888888",
}

func TireColor(c models.Compound) string {
	if col, ok := TireColors[c]; ok {
		return col
	}
	return TireColors[models.CompoundUnknown]
}

// DashedDrivers applies the teammate rule to ids in the given order: when two or
// more ids share a team color, the second of them is dashed. Everybody else,
// including a third driver of the same color, is solid.
func DashedDrivers(ids []string) map[string]bool {
	byColor := make(map[string][]string)
	for _, id := range ids {
		c := drivers.TeamColor(id)
		byColor[c] = append(byColor[c], id)
	}
	ret := make(map[string]bool, len(ids))
	for _, id := range ids {
		group := byColor[drivers.TeamColor(id)]
		ret[id] = len(group) > 1 && group[1] == id
	}
	return ret
}

func driverDataset(id string, dashed bool) Dataset {
	color := drivers.TeamColor(id)
	ds := Dataset{
		Label:           drivers.Label(id),
		BorderColor:     color,
		BackgroundColor: color + "20",
		DriverID:        id,
	}
	if dashed {
		ds.BorderDash = dashPattern
	}
	return ds
}

// LapTimes builds the lap time line chart, one dataset per driver in response order.
func LapTimes(resp models.LapsResponse) Config {
	dashed := DashedDrivers(resp.Keys())
	datasets := make([]Dataset, 0, resp.Len())
	for id, laps := range resp.All() {
		ds := driverDataset(id, dashed[id])
		ds.Tension = 0.1
		ds.PointRadius = 3
		ds.PointHoverRadius = 5
		ds.Data = make([]Point, 0, len(laps))
		for _, lap := range laps {
			ds.Data = append(ds.Data, Point{X: float64(lap.LapNumber), Y: lap.LapTimeSeconds})
		}
		datasets = append(datasets, ds)
	}

	opts := baseOptions()
	x := baseAxis("Lap Number")
	x.Type = "linear"
	x.Ticks.StepSize = 1
	y := baseAxis("Lap Time (seconds)")
	y.Ticks.Format = FormatLapTimeName
	opts.Scales = map[string]Axis{"x": x, "y": y}
	opts.Plugins.Tooltip.Format = FormatLapTimeName

	return Config{Type: TypeLine, Data: Data{Datasets: datasets}, Options: opts}
}

// Telemetry builds the telemetry line chart of one metric over time.
func Telemetry(resp models.TelemetryResponse, metric models.Metric) Config {
	dashed := DashedDrivers(resp.Keys())
	datasets := make([]Dataset, 0, resp.Len())
	for id, samples := range resp.All() {
		ds := driverDataset(id, dashed[id])
		ds.Tension = 0.1
		ds.PointRadius = 1
		ds.PointHoverRadius = 3
		ds.Data = make([]Point, 0, len(samples))
		for _, s := range samples {
			ds.Data = append(ds.Data, Point{X: s.TimestampSeconds, Y: metric.Value(s)})
		}
		datasets = append(datasets, ds)
	}

	opts := baseOptions()
	x := baseAxis("Time (seconds)")
	x.Type = "linear"
	opts.Scales = map[string]Axis{"x": x, "y": baseAxis(metric.Label())}
	opts.Plugins.Tooltip.Format = string(metric)

	return Config{Type: TypeLine, Data: Data{Datasets: datasets}, Options: opts}
}

// TireStrategy builds the per lap compound scatter. Laps without compound are left out.
func TireStrategy(resp models.LapsResponse) Config {
	var datasets []Dataset
	labels := make([]string, 0, resp.Len())
	for id, laps := range resp.All() {
		category := "#" + id
		labels = append(labels, category)
		for _, compound := range models.Compounds {
			var points []Point
			for _, lap := range laps {
				if lap.Compound == compound {
					points = append(points, Point{
						Category: category,
						Y:        float64(lap.LapNumber),
						Compound: compound,
						LapTime:  lap.LapTimeSeconds,
					})
				}
			}
			if len(points) == 0 {
				continue
			}
			color := TireColor(compound)
			datasets = append(datasets, Dataset{
				Label:           string(compound),
				Data:            points,
				BorderColor:     color,
				BackgroundColor: color,
				BorderWidth:     1,
				PointRadius:     4,
				DriverID:        id,
			})
		}
	}

	opts := baseOptions()
	x := baseAxis("Driver")
	x.Type = "category"
	y := baseAxis("Lap Number")
	y.Ticks.StepSize = 1
	opts.Scales = map[string]Axis{"x": x, "y": y}

	return Config{Type: TypeScatter, Data: Data{Labels: labels, Datasets: datasets}, Options: opts}
}

type CompoundCount struct {
	Compound models.Compound `json:"compound"`
	Laps     int             `json:"laps"`
}

// CountCompounds counts laps per compound in first seen order.
// Laps without compound count as UNKNOWN.
func CountCompounds(laps []models.Lap) []CompoundCount {
	var ret []CompoundCount
	index := make(map[models.Compound]int)
	for _, lap := range laps {
		c := lap.Compound
		if c == "" {
			c = models.CompoundUnknown
		}
		i, ok := index[c]
		if !ok {
			i = len(ret)
			index[c] = i
			ret = append(ret, CompoundCount{Compound: c})
		}
		ret[i].Laps++
	}
	return ret
}

// TireCounts builds the bar chart of laps per compound per driver.
func TireCounts(resp models.LapsResponse) Config {
	var datasets []Dataset
	byCompound := make(map[models.Compound]int)
	labels := make([]string, 0, resp.Len())
	for id, laps := range resp.All() {
		category := "#" + id
		labels = append(labels, category)
		for _, cc := range CountCompounds(laps) {
			i, ok := byCompound[cc.Compound]
			if !ok {
				i = len(datasets)
				byCompound[cc.Compound] = i
				datasets = append(datasets, Dataset{
					Label:           string(cc.Compound),
					BackgroundColor: TireColor(cc.Compound),
					BorderColor:     "#000000",
					BorderWidth:     2,
				})
			}
			datasets[i].Data = append(datasets[i].Data, Point{Category: category, Y: float64(cc.Laps)})
		}
	}

	opts := baseOptions()
	opts.Plugins.Legend.Display = true
	x := baseAxis("Driver")
	x.Type = "category"
	y := baseAxis("Number of Laps")
	y.BeginAtZero = true
	opts.Scales = map[string]Axis{"x": x, "y": y}

	return Config{Type: TypeBar, Data: Data{Labels: labels, Datasets: datasets}, Options: opts}
}

type LegendEntry struct {
	DriverID  string `json:"driverId"`
	Label     string `json:"label"`
	Color     string `json:"color"`
	Dashed    bool   `json:"dashed"`
	LineStyle string `json:"lineStyle"`
}

// Legend describes the driver swatches for ids in the given order.
func Legend(ids []string) []LegendEntry {
	dashed := DashedDrivers(ids)
	ret := make([]LegendEntry, 0, len(ids))
	for _, id := range ids {
		e := LegendEntry{
			DriverID:  id,
			Label:     drivers.Label(id),
			Color:     drivers.TeamColor(id),
			Dashed:    dashed[id],
			LineStyle: "solid",
		}
		if e.Dashed {
			e.LineStyle = "dashed"
		}
		ret = append(ret, e)
	}
	return ret
}

type SummaryCard struct {
	DriverID      string `json:"driverId"`
	Label         string `json:"label"`
	Color         string `json:"color"`
	FastestLap    string `json:"fastestLap"`
	AverageLap    string `json:"averageLap"`
	LapsCompleted int    `json:"lapsCompleted"`
}

func (c SummaryCard) String() string {
	return fmt.Sprintf("%s fastest %s average %s laps %d",
		c.Label, c.FastestLap, c.AverageLap, c.LapsCompleted)
}

// SummaryCards creates one card per driver in response order.
func SummaryCards(resp models.SummaryResponse) []SummaryCard {
	ret := make([]SummaryCard, 0, resp.Len())
	for id, s := range resp.All() {
		ret = append(ret, SummaryCard{
			DriverID:      id,
			Label:         drivers.Label(id),
			Color:         drivers.TeamColor(id),
			FastestLap:    FormatLapTime(s.FastestLapTime),
			AverageLap:    FormatLapTime(s.AverageLapTime),
			LapsCompleted: s.LapsCompleted,
		})
	}
	return ret
}
