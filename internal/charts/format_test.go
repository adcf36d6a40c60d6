package charts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"race-telemetry-dashboard/internal/models"
)

func TestFormatLapTime(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{name: "zero", seconds: 0, want: "--:---.---"},
		{name: "negative", seconds: -3.2, want: "--:---.---"},
		{name: "nan", seconds: math.NaN(), want: "--:---.---"},
		{name: "over a minute", seconds: 75.5, want: "1:15.500"},
		{name: "below a minute", seconds: 45.25, want: "45.250s"},
		{name: "exactly a minute", seconds: 60, want: "1:00.000"},
		{name: "pads seconds", seconds: 63.2, want: "1:03.200"},
		{name: "two minutes", seconds: 121.0456, want: "2:01.046"},
		{name: "tiny", seconds: 0.0004, want: "0.000s"},
		{name: "binary tie rounds on exact value", seconds: 1.0005, want: "1.000s"},
		{name: "exact tie rounds up", seconds: 0.0625, want: "0.063s"},
		{name: "rounds to sixty", seconds: 119.9999, want: "1:60.000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatLapTime(tt.seconds))
		})
	}
}

func TestToFixed(t *testing.T) {
	assert.Equal(t, "1.3", toFixed(1.25, 1))
	assert.Equal(t, "1.1", toFixed(1.05, 1))
	assert.Equal(t, "1.00", toFixed(1.005, 2))
	assert.Equal(t, "-2.5", toFixed(-2.45, 1))
	assert.Equal(t, "-0.000", toFixed(-0.0001, 3))
	assert.Equal(t, "12", toFixed(11.5, 0))
}

func TestFormatMetricValue(t *testing.T) {
	assert.Equal(t, "312.4", FormatMetricValue(models.MetricSpeed, 312.44))
	assert.Equal(t, "7", FormatMetricValue(models.MetricGear, 6.6))
	assert.Equal(t, "11800.0", FormatMetricValue(models.MetricRPM, 11800))
}
