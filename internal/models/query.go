package models

// LapQuery represents query parameters for lap searches
type LapQuery struct {
	RaceID  string
	Session Session
	Drivers []string // empty means all drivers
}

// TelemetryQuery represents query parameters for telemetry searches
type TelemetryQuery struct {
	RaceID    string
	Session   Session
	Drivers   []string // empty means all drivers
	LapNumber int      // 0 means all laps
}

// DatasetStats counts the records of a fixture dataset
type DatasetStats struct {
	Races     int64 `json:"races"`
	Laps      int64 `json:"laps"`
	Telemetry int64 `json:"telemetry"`
}
