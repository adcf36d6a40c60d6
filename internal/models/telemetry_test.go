package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverMapKeepsDocumentOrder(t *testing.T) {
	var resp LapsResponse
	err := json.Unmarshal([]byte(`{
		"44": [{"driver": "44", "lap_number": 1, "lap_time_seconds": 91.2}],
		"1":  [{"driver": 1, "lap_number": 1, "lap_time_seconds": 90.8, "compound": "SOFT"}],
		"63": []
	}`), &resp)
	require.NoError(t, err)

	assert.Equal(t, []string{"44", "1", "63"}, resp.Keys())
	laps, ok := resp.Get("1")
	require.True(t, ok)
	want := []Lap{{Driver: "1", LapNumber: 1, LapTimeSeconds: 90.8, Compound: CompoundSoft}}
	if diff := cmp.Diff(want, laps); diff != "" {
		t.Errorf("laps mismatch (-want +got):\n%s", diff)
	}
}

func TestDriverMapDuplicateKey(t *testing.T) {
	var resp SummaryResponse
	err := json.Unmarshal([]byte(`{"1":{"laps_completed":3},"44":{"laps_completed":5},"1":{"laps_completed":7}}`), &resp)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "44"}, resp.Keys())
	s, _ := resp.Get("1")
	assert.Equal(t, 7, s.LapsCompleted)
}

func TestDriverMapNullAndInvalid(t *testing.T) {
	var resp SummaryResponse
	require.NoError(t, json.Unmarshal([]byte(`null`), &resp))
	assert.Equal(t, 0, resp.Len())

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &resp))
	assert.Error(t, json.Unmarshal([]byte(`{"1": "fast"}`), &resp))
}

func TestDriverMapMarshalAndRetain(t *testing.T) {
	var m DriverMap[int]
	m.Set("16", 1)
	m.Set("1", 2)
	m.Set("44", 3)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"16":1,"1":2,"44":3}`, string(b))

	kept := m.Retain([]string{"44", "16", "99"})
	assert.Equal(t, []string{"16", "44"}, kept.Keys())
	assert.Equal(t, 3, m.Len(), "retain must not modify the receiver")

	var order []string
	for k := range kept.All() {
		order = append(order, k)
	}
	assert.Equal(t, []string{"16", "44"}, order)
}

func TestDriverList(t *testing.T) {
	var l DriverList
	require.NoError(t, json.Unmarshal([]byte(`["1", 44, "63"]`), &l))
	assert.Equal(t, DriverList{"1", "44", "63"}, l)

	assert.Error(t, json.Unmarshal([]byte(`[true]`), &l))
}

func TestParseSession(t *testing.T) {
	tests := []struct {
		in      string
		want    Session
		wantErr bool
	}{
		{in: "", want: SessionRace},
		{in: "R", want: SessionRace},
		{in: "q", want: SessionQualifying},
		{in: "FP1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSession(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetric(t *testing.T) {
	s := TelemetrySample{Speed: 312.4, RPM: 11800, Gear: 7, Throttle: 98.5}
	tests := []struct {
		metric Metric
		label  string
		value  float64
	}{
		{MetricSpeed, "Speed (km/h)", 312.4},
		{MetricRPM, "RPM", 11800},
		{MetricGear, "Gear", 7},
		{MetricThrottle, "Throttle (%)", 98.5},
	}
	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			assert.Equal(t, tt.label, tt.metric.Label())
			assert.Equal(t, tt.value, tt.metric.Value(s))
		})
	}

	m, err := ParseMetric(" RPM ")
	assert.NoError(t, err)
	assert.Equal(t, MetricRPM, m)
	_, err = ParseMetric("brake")
	assert.Error(t, err)
}
