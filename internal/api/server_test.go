package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"race-telemetry-dashboard/internal/db"
	"race-telemetry-dashboard/internal/log"
	"race-telemetry-dashboard/internal/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	database, err := db.New()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, database.InsertRaces(ctx, []models.Race{
		{RaceID: "r1", Name: "Race One", Circuit: "Circuit One", Date: "2024-03-02"},
		{RaceID: "r2", Name: "Race Two", Circuit: "Circuit Two", Date: "2024-03-09"},
	}))
	_, err = database.InsertLapsBatch(ctx, []models.Lap{
		{RaceID: "r1", Driver: "44", Session: "R", LapNumber: 1, LapTimeSeconds: 92, Compound: "SOFT"},
		{RaceID: "r1", Driver: "1", Session: "R", LapNumber: 1, LapTimeSeconds: 91, Compound: "SOFT"},
		{RaceID: "r1", Driver: "44", Session: "R", LapNumber: 2, LapTimeSeconds: 90, Compound: "HARD"},
		{RaceID: "r1", Driver: "16", Session: "Q", LapNumber: 1, LapTimeSeconds: 88.5},
	})
	require.NoError(t, err)
	_, err = database.InsertTelemetryBatch(ctx, []models.TelemetrySample{
		{RaceID: "r1", Driver: "44", Session: "R", LapNumber: 1, TimestampSeconds: 0, Speed: 200},
		{RaceID: "r1", Driver: "44", Session: "R", LapNumber: 2, TimestampSeconds: 0, Speed: 210},
		{RaceID: "r1", Driver: "1", Session: "R", LapNumber: 1, TimestampSeconds: 0, Speed: 205},
	})
	require.NoError(t, err)

	srv := NewServer(database, WithLogger(log.New(io.Discard, log.DebugLevel)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	return resp.StatusCode, string(body)
}

func TestEndpoints(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"health", "/health", 200, `{"status":"healthy"}`},
		{
			"races", "/api/races", 200,
			`[{"race_id":"r1","name":"Race One","circuit":"Circuit One","date":"2024-03-02"},` +
				`{"race_id":"r2","name":"Race Two","circuit":"Circuit Two","date":"2024-03-09"}]`,
		},
		{"drivers in dataset order", "/api/drivers?race_id=r1", 200, `["44","1"]`},
		{"qualifying drivers", "/api/drivers?race_id=r1&session=q", 200, `["16"]`},
		{"drivers of unknown race", "/api/drivers?race_id=zz", 200, `[]`},
		{"drivers without race", "/api/drivers", 400, `{"error":"race_id is required"}`},
		{"invalid session", "/api/laps?race_id=r1&session=FP1", 400, `{"error":"invalid session \"FP1\", expected R or Q"}`},
		{"unknown race laps", "/api/laps?race_id=zz", 404, `{"error":"race not found: zz"}`},
		{
			"laps keyed in request order", "/api/laps?race_id=r1&drivers=1,%2044,99", 200,
			`{"1":[{"race_id":"r1","driver":"1","session":"R","lap_number":1,"lap_time_seconds":91,"compound":"SOFT"}],` +
				`"44":[{"race_id":"r1","driver":"44","session":"R","lap_number":1,"lap_time_seconds":92,"compound":"SOFT"},` +
				`{"race_id":"r1","driver":"44","session":"R","lap_number":2,"lap_time_seconds":90,"compound":"HARD"}]}`,
		},
		{
			"telemetry of one lap", "/api/telemetry?race_id=r1&drivers=44&lap_number=2", 200,
			`{"44":[{"race_id":"r1","driver":"44","session":"R","lap_number":2,"timestamp_seconds":0,` +
				`"speed":210,"rpm":0,"gear":0,"throttle":0}]}`,
		},
		{"bad lap number", "/api/telemetry?race_id=r1&lap_number=0", 400, `{"error":"lap_number must be a positive integer"}`},
		{"unknown race summary", "/api/summary?race_id=zz&drivers=1", 404, `{"error":"race not found: zz"}`},
		{
			"summary", "/api/summary?race_id=r1", 200,
			`{"44":{"race_id":"r1","driver":"44","session":"R","average_lap_time":91,"fastest_lap_time":90,"laps_completed":2},` +
				`"1":{"race_id":"r1","driver":"1","session":"R","average_lap_time":91,"fastest_lap_time":91,"laps_completed":1}}`,
		},
		{"empty selection", "/api/laps?race_id=r2&drivers=44", 200, `{}`},
		{"stats", "/api/stats", 200, `{"races":2,"laps":4,"telemetry":3}`},
		{"unknown path", "/api/nope", 404, `{"error":"not found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, ts, tt.path)
			assert.Equal(t, tt.status, status)
			assert.JSONEq(t, tt.body, body)
		})
	}
}

func TestMapOrderIsPreserved(t *testing.T) {
	ts := newTestServer(t)

	_, body := get(t, ts, "/api/summary?race_id=r1&drivers=1,44")
	var resp models.SummaryResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, []string{"1", "44"}, resp.Keys())

	_, body = get(t, ts, "/api/laps?race_id=r1")
	var laps models.LapsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &laps))
	assert.Equal(t, []string{"44", "1"}, laps.Keys())
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/races", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
