package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"race-telemetry-dashboard/internal/models"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api/")
}

func TestListRaces(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/races", r.URL.Path)
		_, _ = w.Write([]byte(`[{"race_id":"2023_monza","name":"Italian Grand Prix","circuit":"Monza","date":"2023-09-03"}]`))
	})

	races, err := c.ListRaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Race{
		{RaceID: "2023_monza", Name: "Italian Grand Prix", Circuit: "Monza", Date: "2023-09-03"},
	}, races)
}

func TestQueryParameters(t *testing.T) {
	var rawQuery string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		switch r.URL.Path {
		case "/api/drivers":
			_, _ = w.Write([]byte(`["1", 44]`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
	ctx := context.Background()

	ids, err := c.ListDrivers(ctx, "2023 monza", models.SessionQualifying)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "44"}, ids)
	assert.Equal(t, "race_id=2023+monza&session=Q", rawQuery)

	_, err = c.GetTelemetry(ctx, "r1", []string{"1", "44"}, 3, models.SessionRace)
	require.NoError(t, err)
	assert.Equal(t, "race_id=r1&drivers=1%2C44&lap_number=3&session=R", rawQuery)

	_, err = c.GetSummary(ctx, "r1", []string{"16"}, models.SessionRace)
	require.NoError(t, err)
	assert.Equal(t, "race_id=r1&drivers=16&session=R", rawQuery)
}

func TestGetLapsOrder(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"44":[{"lap_number":1,"lap_time_seconds":80.1}],"1":[]}`))
	})
	resp, err := c.GetLaps(context.Background(), "r1", []string{"1", "44"}, models.SessionRace)
	require.NoError(t, err)
	assert.Equal(t, []string{"44", "1"}, resp.Keys())
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantStatus int
	}{
		{
			name:       "error member",
			status:     http.StatusNotFound,
			body:       `{"error":"Race not found"}`,
			wantMsg:    "Race not found",
			wantStatus: 404,
		},
		{
			name:       "plain body",
			status:     http.StatusInternalServerError,
			body:       `oops`,
			wantMsg:    "HTTP 500: Internal Server Error",
			wantStatus: 500,
		},
		{
			name:       "empty error member",
			status:     http.StatusBadGateway,
			body:       `{"error":""}`,
			wantMsg:    "HTTP 502: Bad Gateway",
			wantStatus: 502,
		},
		{
			name:    "undecodable success",
			status:  http.StatusOK,
			body:    `not json`,
			wantMsg: "invalid response from /races",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.ListRaces(context.Background())
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Contains(t, apiErr.Message, tt.wantMsg)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL)
	srv.Close()

	_, err := c.ListRaces(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
	assert.False(t, c.CheckHealth(context.Background()))
}

func TestCanceledContext(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListRaces(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCheckHealth(t *testing.T) {
	healthy := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/races", r.URL.Path)
		_, _ = w.Write([]byte(`[]`))
	})
	assert.True(t, healthy.CheckHealth(context.Background()))

	failing := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.False(t, failing.CheckHealth(context.Background()))
}
