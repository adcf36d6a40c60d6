package charts

import (
	"bytes"
	"encoding/json"
	"image/png"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"race-telemetry-dashboard/internal/models"
)

func lap(driver string, n int, t float64, c models.Compound) models.Lap {
	return models.Lap{RaceID: "r1", Driver: models.DriverID(driver), Session: models.SessionRace,
		LapNumber: n, LapTimeSeconds: t, Compound: c}
}

func lapsResponse(ids []string, laps ...models.Lap) models.LapsResponse {
	var resp models.LapsResponse
	for _, id := range ids {
		var mine []models.Lap
		for _, l := range laps {
			if string(l.Driver) == id {
				mine = append(mine, l)
			}
		}
		resp.Set(id, mine)
	}
	return resp
}

func TestDashedDrivers(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want map[string]bool
	}{
		{
			name: "second teammate dashed",
			ids:  []string{"1", "11", "44"},
			want: map[string]bool{"1": false, "11": true, "44": false},
		},
		{
			name: "response order decides",
			ids:  []string{"11", "44", "1"},
			want: map[string]bool{"11": false, "44": false, "1": true},
		},
		{
			name: "third teammate stays solid",
			ids:  []string{"3", "22", "21"},
			want: map[string]bool{"3": false, "22": true, "21": false},
		},
		{
			name: "unknown drivers share the fallback color",
			ids:  []string{"98", "99"},
			want: map[string]bool{"98": false, "99": true},
		},
		{
			name: "lone driver",
			ids:  []string{"16"},
			want: map[string]bool{"16": false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DashedDrivers(tt.ids))
		})
	}
}

func TestLapTimes(t *testing.T) {
	resp := lapsResponse([]string{"44", "63"},
		lap("44", 2, 91.5, models.CompoundSoft),
		lap("44", 1, 95.1, models.CompoundSoft),
		lap("63", 1, 94.0, ""),
	)
	cfg := LapTimes(resp)

	assert.Equal(t, TypeLine, cfg.Type)
	require.Len(t, cfg.Data.Datasets, 2)
	first := cfg.Data.Datasets[0]
	assert.Equal(t, "#44 Lewis Hamilton", first.Label)
	assert.Equal(t, "#00D2BE", first.BorderColor)
	assert.Equal(t, "#00D2BE20", first.BackgroundColor)
	assert.False(t, first.Dashed())
	// record order, no re-sort
	if diff := cmp.Diff([]Point{{X: 2, Y: 91.5}, {X: 1, Y: 95.1}}, first.Data); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{5, 5}, cfg.Data.Datasets[1].BorderDash)
	assert.Equal(t, "Lap Number", cfg.Options.Scales["x"].Title.Text)
	assert.Equal(t, float64(1), cfg.Options.Scales["x"].Ticks.StepSize)
	assert.Equal(t, "Lap Time (seconds)", cfg.Options.Scales["y"].Title.Text)
	assert.Equal(t, FormatLapTimeName, cfg.Options.Scales["y"].Ticks.Format)
}

func TestTelemetry(t *testing.T) {
	var resp models.TelemetryResponse
	resp.Set("16", []models.TelemetrySample{
		{LapNumber: 3, TimestampSeconds: 0.0, Speed: 280, Gear: 7},
		{LapNumber: 3, TimestampSeconds: 0.2, Speed: 284, Gear: 8},
	})
	resp.Set("55", nil)

	cfg := Telemetry(resp, models.MetricGear)
	require.Len(t, cfg.Data.Datasets, 2)
	assert.Equal(t, []Point{{X: 0, Y: 7}, {X: 0.2, Y: 8}}, cfg.Data.Datasets[0].Data)
	assert.True(t, cfg.Data.Datasets[1].Dashed())
	assert.Empty(t, cfg.Data.Datasets[1].Data)
	assert.Equal(t, "Gear", cfg.Options.Scales["y"].Title.Text)
	assert.Equal(t, "Time (seconds)", cfg.Options.Scales["x"].Title.Text)
	assert.Equal(t, 1, cfg.Data.Datasets[0].PointRadius)
}

func TestTireStrategy(t *testing.T) {
	resp := lapsResponse([]string{"4", "81"},
		lap("4", 1, 90, models.CompoundMedium),
		lap("4", 2, 89, models.CompoundSoft),
		lap("4", 3, 89, ""),
		lap("81", 1, 92, models.CompoundHard),
	)
	cfg := TireStrategy(resp)

	labels := make([]string, 0, len(cfg.Data.Datasets))
	for _, ds := range cfg.Data.Datasets {
		labels = append(labels, ds.DriverID+":"+ds.Label)
	}
	// compound order is fixed, laps without compound are skipped
	assert.Equal(t, []string{"4:SOFT", "4:MEDIUM", "81:HARD"}, labels)
	assert.Equal(t, []string{"#4", "#81"}, cfg.Data.Labels)

	soft := cfg.Data.Datasets[0]
	assert.Equal(t, "#FF3333", soft.BackgroundColor)
	assert.Equal(t, []Point{{Category: "#4", Y: 2, Compound: models.CompoundSoft, LapTime: 89}}, soft.Data)

	b, err := json.Marshal(soft.Data[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":"#4","y":2,"compound":"SOFT","lapTime":89}`, string(b))
}

func TestCountCompounds(t *testing.T) {
	got := CountCompounds([]models.Lap{
		lap("1", 1, 90, models.CompoundSoft),
		lap("1", 2, 90, models.CompoundSoft),
		lap("1", 3, 90, ""),
	})
	assert.Equal(t, []CompoundCount{
		{Compound: models.CompoundSoft, Laps: 2},
		{Compound: models.CompoundUnknown, Laps: 1},
	}, got)
	assert.Empty(t, CountCompounds(nil))
}

func TestTireCounts(t *testing.T) {
	resp := lapsResponse([]string{"1", "44"},
		lap("1", 1, 90, models.CompoundMedium),
		lap("1", 2, 90, models.CompoundMedium),
		lap("44", 1, 90, ""),
		lap("44", 2, 90, models.CompoundMedium),
	)
	cfg := TireCounts(resp)

	assert.Equal(t, TypeBar, cfg.Type)
	assert.Equal(t, []string{"#1", "#44"}, cfg.Data.Labels)
	require.Len(t, cfg.Data.Datasets, 2)
	medium, unknown := cfg.Data.Datasets[0], cfg.Data.Datasets[1]
	assert.Equal(t, "MEDIUM", medium.Label)
	assert.Equal(t, []Point{{Category: "#1", Y: 2}, {Category: "#44", Y: 1}}, medium.Data)
	assert.Equal(t, "UNKNOWN", unknown.Label)
	assert.Equal(t, "#888888", unknown.BackgroundColor)
	assert.Equal(t, "#000000", unknown.BorderColor)
	assert.Equal(t, 2, unknown.BorderWidth)
	assert.True(t, cfg.Options.Plugins.Legend.Display)
	assert.Equal(t, "Number of Laps", cfg.Options.Scales["y"].Title.Text)
}

func TestLegend(t *testing.T) {
	got := Legend([]string{"16", "55", "99"})
	assert.Equal(t, []LegendEntry{
		{DriverID: "16", Label: "#16 Charles Leclerc", Color: "#DC143C", LineStyle: "solid"},
		{DriverID: "55", Label: "#55 Carlos Sainz", Color: "#DC143C", Dashed: true, LineStyle: "dashed"},
		{DriverID: "99", Label: "#99 Driver #99", Color: "#888888", LineStyle: "solid"},
	}, got)
}

func TestSummaryCards(t *testing.T) {
	var resp models.SummaryResponse
	resp.Set("14", models.Summary{FastestLapTime: 82.123, AverageLapTime: 85.5, LapsCompleted: 51})
	resp.Set("18", models.Summary{})

	got := SummaryCards(resp)
	require.Len(t, got, 2)
	assert.Equal(t, SummaryCard{
		DriverID: "14", Label: "#14 Fernando Alonso", Color: "#006F62",
		FastestLap: "1:22.123", AverageLap: "1:25.500", LapsCompleted: 51,
	}, got[0])
	assert.Equal(t, "--:---.---", got[1].FastestLap)
}

func TestRenderPNG(t *testing.T) {
	resp := lapsResponse([]string{"1", "11"},
		lap("1", 1, 90.2, models.CompoundSoft),
		lap("1", 2, 89.7, models.CompoundSoft),
		lap("11", 1, 91.0, models.CompoundMedium),
		lap("11", 2, 90.4, ""),
	)
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "line", cfg: LapTimes(resp)},
		{name: "scatter", cfg: TireStrategy(resp)},
		{name: "bar", cfg: TireCounts(resp)},
		{name: "empty", cfg: LapTimes(models.LapsResponse{})},
		{name: "single point", cfg: LapTimes(lapsResponse([]string{"1"}, lap("1", 1, 90, "")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, RenderPNG(&buf, tt.cfg, tt.name, 320, 200))
			img, err := png.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, 320, img.Bounds().Dx())
			assert.Equal(t, 200, img.Bounds().Dy())
		})
	}
}
