package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"race-telemetry-dashboard/internal/log"
	"race-telemetry-dashboard/internal/models"
)

// Parser handles parsing of racing data files
type Parser struct {
	format string
	log    *log.Logger
}

// NewParser creates a new parser with the specified format (csv, json or jsonl)
func NewParser(format string, logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{format: strings.ToLower(format), log: logger}
}

// FormatOf derives the parser format from the file extension
func FormatOf(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "csv"
	case ".jsonl", ".ndjson":
		return "jsonl"
	case ".json":
		return "json"
	}
	return ""
}

// ParseRaces parses a JSON array of races
func (p *Parser) ParseRaces(r io.Reader) ([]models.Race, error) {
	var races []models.Race
	if err := json.NewDecoder(r).Decode(&races); err != nil {
		return nil, fmt.Errorf("failed to decode races: %w", err)
	}
	for i := range races {
		if races[i].RaceID == "" {
			return nil, fmt.Errorf("race %d: race_id is required", i+1)
		}
	}
	return races, nil
}

// ParseLaps parses lap records. Invalid records are logged and skipped.
func (p *Parser) ParseLaps(r io.Reader) ([]models.Lap, error) {
	return parse(p, r, recordToLap, ValidateLap)
}

// ParseTelemetry parses telemetry records. Invalid records are logged and skipped.
func (p *Parser) ParseTelemetry(r io.Reader) ([]models.TelemetrySample, error) {
	return parse(p, r, recordToTelemetry, ValidateTelemetry)
}

func parse[T any](p *Parser, r io.Reader, fromCSV func(get func(string) string) (T, error), validate func(*T) []string) ([]T, error) {
	var (
		results []T
		err     error
	)
	switch p.format {
	case "csv":
		results, err = parseCSV(p, r, fromCSV)
	case "json", "jsonl":
		results, err = parseJSON[T](p, r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", p.format)
	}
	if err != nil {
		return nil, err
	}

	valid := results[:0]
	for i := range results {
		if problems := validate(&results[i]); len(problems) > 0 {
			p.log.Warn("skipping invalid record",
				log.Int("record", i+1), log.Strings("problems", problems))
			continue
		}
		valid = append(valid, results[i])
	}
	return valid, nil
}

// parseCSV parses CSV formatted records using the header to locate columns
func parseCSV[T any](p *Parser, r io.Reader, convert func(get func(string) string) (T, error)) ([]T, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable fields

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	indices := make(map[string]int)
	for i, h := range header {
		indices[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var results []T
	lineNum := 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			return results, fmt.Errorf("error at line %d: %w", lineNum, err)
		}

		get := func(key string) string {
			if idx, ok := indices[key]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}
		data, err := convert(get)
		if err != nil {
			p.log.Warn("skipping csv line", log.Int("line", lineNum), log.ErrorField(err))
			continue
		}
		results = append(results, data)
	}

	return results, nil
}

// parseJSON accepts a JSON array or newline-delimited JSON
func parseJSON[T any](p *Parser, r io.Reader) ([]T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var results []T
		if err := json.Unmarshal(trimmed, &results); err == nil {
			return results, nil
		}
	}
	return parseJSONLines[T](p, bytes.NewReader(data))
}

// parseJSONLines parses newline-delimited JSON
func parseJSONLines[T any](p *Parser, r io.Reader) ([]T, error) {
	var results []T
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "[" || line == "]" {
			continue
		}
		line = strings.TrimSuffix(line, ",")

		var t T
		if err := json.Unmarshal([]byte(line), &t); err != nil {
			p.log.Warn("skipping json line", log.Int("line", lineNum), log.ErrorField(err))
			continue
		}
		results = append(results, t)
	}

	return results, scanner.Err()
}

func recordToLap(get func(string) string) (models.Lap, error) {
	var l models.Lap
	var err error

	l.RaceID = get("race_id")
	l.Driver = models.DriverID(get("driver"))
	if l.Session, err = models.ParseSession(get("session")); err != nil {
		return l, err
	}
	if l.LapNumber, err = strconv.Atoi(get("lap_number")); err != nil {
		return l, fmt.Errorf("invalid lap_number: %w", err)
	}
	// an empty lap time is a lap without a recorded time
	if v := get("lap_time_seconds"); v != "" {
		if l.LapTimeSeconds, err = strconv.ParseFloat(v, 64); err != nil {
			return l, fmt.Errorf("invalid lap_time_seconds: %w", err)
		}
	}
	l.Compound = models.Compound(strings.ToUpper(get("compound")))
	return l, nil
}

func recordToTelemetry(get func(string) string) (models.TelemetrySample, error) {
	var t models.TelemetrySample
	var err error

	t.RaceID = get("race_id")
	t.Driver = models.DriverID(get("driver"))
	if t.Session, err = models.ParseSession(get("session")); err != nil {
		return t, err
	}
	if t.LapNumber, err = strconv.Atoi(get("lap_number")); err != nil {
		return t, fmt.Errorf("invalid lap_number: %w", err)
	}
	if t.TimestampSeconds, err = strconv.ParseFloat(get("timestamp_seconds"), 64); err != nil {
		return t, fmt.Errorf("invalid timestamp_seconds: %w", err)
	}

	t.Speed, _ = strconv.ParseFloat(get("speed"), 64)
	t.RPM, _ = strconv.ParseFloat(get("rpm"), 64)
	t.Gear, _ = strconv.Atoi(get("gear"))
	t.Throttle, _ = strconv.ParseFloat(get("throttle"), 64)
	return t, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ValidateLap validates a lap record
func ValidateLap(l *models.Lap) []string {
	var errors []string

	if l.RaceID == "" {
		errors = append(errors, "race_id is required")
	}
	if l.Driver == "" {
		errors = append(errors, "driver is required")
	}
	if l.Session != models.SessionRace && l.Session != models.SessionQualifying {
		errors = append(errors, "session must be R or Q")
	}
	if l.LapNumber < 1 {
		errors = append(errors, "lap_number must be positive")
	}
	if !finite(l.LapTimeSeconds) {
		errors = append(errors, "lap_time_seconds must be finite")
	}
	return errors
}

// ValidateTelemetry validates a telemetry sample
func ValidateTelemetry(t *models.TelemetrySample) []string {
	var errors []string

	if t.RaceID == "" {
		errors = append(errors, "race_id is required")
	}
	if t.Driver == "" {
		errors = append(errors, "driver is required")
	}
	if t.Session != models.SessionRace && t.Session != models.SessionQualifying {
		errors = append(errors, "session must be R or Q")
	}
	if t.LapNumber < 1 {
		errors = append(errors, "lap_number must be positive")
	}
	if t.TimestampSeconds < 0 || !finite(t.TimestampSeconds) {
		errors = append(errors, "timestamp_seconds must be a non-negative number")
	}
	if t.Speed < 0 {
		errors = append(errors, "speed cannot be negative")
	}
	if t.RPM < 0 {
		errors = append(errors, "rpm cannot be negative")
	}
	if t.Gear < 0 || t.Gear > 8 {
		errors = append(errors, "gear must be between 0 and 8")
	}
	if t.Throttle < 0 || t.Throttle > 100 {
		errors = append(errors, "throttle must be between 0 and 100")
	}
	return errors
}
