// Package client is a thin client for the racing REST API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"race-telemetry-dashboard/internal/log"
	"race-telemetry-dashboard/internal/models"
)

// APIError is the only error kind returned by the client.
// Status is 0 if no HTTP response was received or the response was not decodable.
type APIError struct {
	Message string
	Status  int
	cause   error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error { return e.cause }

type Client struct {
	baseURL string
	http    *http.Client
	log     *log.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(l *log.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// WithTimeout limits the duration of each request.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		hc := *cl.http
		hc.Timeout = d
		cl.http = &hc
	}
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8000/api
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     log.Default().Named("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) ListRaces(ctx context.Context) ([]models.Race, error) {
	var races []models.Race
	if err := c.get(ctx, "/races", nil, &races); err != nil {
		return nil, err
	}
	return races, nil
}

func (c *Client) ListDrivers(ctx context.Context, raceID string, session models.Session) ([]string, error) {
	var list models.DriverList
	err := c.get(ctx, "/drivers", params{
		{"race_id", raceID},
		{"session", string(session)},
	}, &list)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetLaps(
	ctx context.Context, raceID string, driverIDs []string, session models.Session,
) (models.LapsResponse, error) {
	var resp models.LapsResponse
	err := c.get(ctx, "/laps", params{
		{"race_id", raceID},
		{"drivers", strings.Join(driverIDs, ",")},
		{"session", string(session)},
	}, &resp)
	return resp, err
}

func (c *Client) GetTelemetry(
	ctx context.Context, raceID string, driverIDs []string, lapNumber int, session models.Session,
) (models.TelemetryResponse, error) {
	var resp models.TelemetryResponse
	err := c.get(ctx, "/telemetry", params{
		{"race_id", raceID},
		{"drivers", strings.Join(driverIDs, ",")},
		{"lap_number", strconv.Itoa(lapNumber)},
		{"session", string(session)},
	}, &resp)
	return resp, err
}

func (c *Client) GetSummary(
	ctx context.Context, raceID string, driverIDs []string, session models.Session,
) (models.SummaryResponse, error) {
	var resp models.SummaryResponse
	err := c.get(ctx, "/summary", params{
		{"race_id", raceID},
		{"drivers", strings.Join(driverIDs, ",")},
		{"session", string(session)},
	}, &resp)
	return resp, err
}

// CheckHealth reports whether the race list endpoint answers with a 2xx status.
func (c *Client) CheckHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/races", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("health check failed", log.ErrorField(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// params keeps query parameters in insertion order.
type params [][2]string

func (p params) encode() string {
	return strings.Join(lo.Map(p, func(kv [2]string, _ int) string {
		return url.QueryEscape(kv[0]) + "=" + url.QueryEscape(kv[1])
	}), "&")
}

func (c *Client) get(ctx context.Context, path string, p params, target any) error {
	u := c.baseURL + path
	if len(p) > 0 {
		u += "?" + p.encode()
	}
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return &APIError{Message: err.Error(), cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", log.String("url", u), log.ErrorField(err))
		return &APIError{Message: err.Error(), cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Message: err.Error(), cause: err}
	}
	c.log.Debug("request done",
		log.String("url", u),
		log.Int("status", resp.StatusCode),
		log.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Message: errorMessage(resp, body), Status: resp.StatusCode}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &APIError{Message: fmt.Sprintf("invalid response from %s: %v", path, err), cause: err}
	}
	return nil
}

// errorMessage prefers the "error" member of a JSON body over the status line.
func errorMessage(resp *http.Response, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, text)
}
