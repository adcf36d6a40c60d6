package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Race represents a race weekend as listed by the racing API
type Race struct {
	RaceID  string `json:"race_id"`
	Name    string `json:"name"`
	Circuit string `json:"circuit"`
	Date    string `json:"date"`
}

// Lap represents a single completed lap of a driver
type Lap struct {
	RaceID         string   `json:"race_id"`
	Driver         DriverID `json:"driver"`
	Session        Session  `json:"session"`
	LapNumber      int      `json:"lap_number"`
	LapTimeSeconds float64  `json:"lap_time_seconds"` // <= 0 means no time recorded
	Compound       Compound `json:"compound,omitempty"`
}

// TelemetrySample represents a single car telemetry reading within a lap
type TelemetrySample struct {
	RaceID           string   `json:"race_id"`
	Driver           DriverID `json:"driver"`
	Session          Session  `json:"session"`
	LapNumber        int      `json:"lap_number"`
	TimestampSeconds float64  `json:"timestamp_seconds"`
	Speed            float64  `json:"speed"`    // km/h
	RPM              float64  `json:"rpm"`
	Gear             int      `json:"gear"`
	Throttle         float64  `json:"throttle"` // percentage
}

// Summary provides aggregated lap statistics of a driver in a session
type Summary struct {
	RaceID         string   `json:"race_id"`
	Driver         DriverID `json:"driver"`
	Session        Session  `json:"session"`
	AverageLapTime float64  `json:"average_lap_time"`
	FastestLapTime float64  `json:"fastest_lap_time"`
	LapsCompleted  int      `json:"laps_completed"`
}

// Per driver responses, keyed by driver id in the order sent by the API.
type (
	LapsResponse      = DriverMap[[]Lap]
	TelemetryResponse = DriverMap[[]TelemetrySample]
	SummaryResponse   = DriverMap[Summary]
)

// DriverID is the opaque driver token, usually the car number.
// The API may send it as a JSON string or number.
type DriverID string

func (d *DriverID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	if err != nil {
		return err
	}
	*d = DriverID(s)
	return nil
}

// DriverList is the driver list of a race session.
type DriverList []string

func (l *DriverList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ret := make(DriverList, 0, len(raw))
	for _, r := range raw {
		s, err := decodeID(r)
		if err != nil {
			return err
		}
		ret = append(ret, s)
	}
	*l = ret
	return nil
}

func decodeID(data []byte) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("driver id must be a string or number, got %s", data)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

// Session identifies the session type of a race weekend
type Session string

const (
	SessionRace       Session = "R"
	SessionQualifying Session = "Q"
)

// ParseSession accepts R or Q (case insensitive). Empty yields the race session.
func ParseSession(s string) (Session, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "R":
		return SessionRace, nil
	case "Q":
		return SessionQualifying, nil
	}
	return "", fmt.Errorf("invalid session %q, expected R or Q", s)
}

func (s Session) String() string {
	if s == SessionQualifying {
		return "Qualifying"
	}
	return "Race"
}

// Compound is the tire compound used for a lap
type Compound string

const (
	CompoundSoft         Compound = "SOFT"
	CompoundMedium       Compound = "MEDIUM"
	CompoundHard         Compound = "HARD"
	CompoundIntermediate Compound = "INTERMEDIATE"
	CompoundWet          Compound = "WET"
	// CompoundUnknown buckets laps without compound information
	CompoundUnknown Compound = "UNKNOWN"
)

// Compounds lists the known compounds from softest to wettest.
var Compounds = []Compound{
	CompoundSoft, CompoundMedium, CompoundHard, CompoundIntermediate, CompoundWet,
}

// Metric is the telemetry channel plotted over time
type Metric string

const (
	MetricSpeed    Metric = "speed"
	MetricRPM      Metric = "rpm"
	MetricGear     Metric = "gear"
	MetricThrottle Metric = "throttle"
)

var Metrics = []Metric{MetricSpeed, MetricRPM, MetricGear, MetricThrottle}

func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Metrics {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid metric %q", s)
}

// Label is the axis title of the metric.
func (m Metric) Label() string {
	switch m {
	case MetricSpeed:
		return "Speed (km/h)"
	case MetricRPM:
		return "RPM"
	case MetricGear:
		return "Gear"
	case MetricThrottle:
		return "Throttle (%)"
	}
	return string(m)
}

// Value extracts the metric from a sample.
func (m Metric) Value(s TelemetrySample) float64 {
	switch m {
	case MetricRPM:
		return s.RPM
	case MetricGear:
		return float64(s.Gear)
	case MetricThrottle:
		return s.Throttle
	default:
		return s.Speed
	}
}
