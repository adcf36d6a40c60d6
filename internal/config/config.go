package config

import (
	"fmt"
	"time"
)

// this holds the resolved configuration values from CLI, config file and env
var (
	APIURL         string   // base URL of the racing API, e.g. http://localhost:8000/api
	Addr           string   // listen addr of the dashboard server
	APIAddr        string   // listen addr of the fixture API server
	FixturesDir    string   // directory holding races.json, laps.csv and telemetry.csv
	AllowedOrigins []string // CORS origins accepted by the fixture API
	RequestTimeout string   // timeout for a single request against the racing API
	SessionTTL     string   // idle time after which a dashboard session is dropped
	ErrorTimeout   string   // time an error banner stays visible
	LogLevel       string   // sets the log level (zap log level values)
	LogFormat      string   // text vs json
	LogFile        string   // optional rotated log file
	LogFilter      string   // zapfilter rules, e.g. "debug+:client info+:*"
)

const (
	DefaultAPIURL         = "http://localhost:8000/api"
	DefaultRequestTimeout = "10s"
	DefaultSessionTTL     = "1h"
	DefaultErrorTimeout   = "5s"
)

// ParseDuration parses a duration config value. An empty value yields def.
func ParseDuration(key, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, value)
	}
	return d, nil
}
