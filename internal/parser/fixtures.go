package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"race-telemetry-dashboard/internal/log"
	"race-telemetry-dashboard/internal/models"
)

// Store receives the parsed fixture records
type Store interface {
	InsertRaces(ctx context.Context, races []models.Race) error
	InsertLapsBatch(ctx context.Context, laps []models.Lap) (int64, error)
	InsertTelemetryBatch(ctx context.Context, samples []models.TelemetrySample) (int64, error)
}

// Fixture file names inside a fixture directory. Laps and telemetry may be
// stored as csv, json or jsonl; the first existing variant is used.
const RacesFile = "races.json"

var (
	lapFiles       = []string{"laps.csv", "laps.json", "laps.jsonl"}
	telemetryFiles = []string{"telemetry.csv", "telemetry.json", "telemetry.jsonl"}
)

// LoadDir reads a fixture directory into the store
func LoadDir(ctx context.Context, dir string, store Store, logger *log.Logger) (models.DatasetStats, error) {
	var stats models.DatasetStats
	if logger == nil {
		logger = log.Default()
	}

	f, err := os.Open(filepath.Join(dir, RacesFile))
	if err != nil {
		return stats, fmt.Errorf("failed to open races: %w", err)
	}
	races, err := NewParser("json", logger).ParseRaces(f)
	f.Close()
	if err != nil {
		return stats, err
	}
	if err := store.InsertRaces(ctx, races); err != nil {
		return stats, fmt.Errorf("failed to insert races: %w", err)
	}
	stats.Races = int64(len(races))

	if path, ok := firstExisting(dir, lapFiles); ok {
		laps, err := parseFile(path, logger, (*Parser).ParseLaps)
		if err != nil {
			return stats, err
		}
		if stats.Laps, err = store.InsertLapsBatch(ctx, laps); err != nil {
			return stats, fmt.Errorf("failed to insert laps: %w", err)
		}
	} else {
		logger.Warn("no lap fixtures found", log.String("dir", dir))
	}

	if path, ok := firstExisting(dir, telemetryFiles); ok {
		samples, err := parseFile(path, logger, (*Parser).ParseTelemetry)
		if err != nil {
			return stats, err
		}
		if stats.Telemetry, err = store.InsertTelemetryBatch(ctx, samples); err != nil {
			return stats, fmt.Errorf("failed to insert telemetry: %w", err)
		}
	}

	logger.Info("fixtures loaded",
		log.String("dir", dir),
		log.Int64("races", stats.Races),
		log.Int64("laps", stats.Laps),
		log.Int64("telemetry", stats.Telemetry))
	return stats, nil
}

func parseFile[T any](path string, logger *log.Logger, fn func(*Parser, io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	records, err := fn(NewParser(FormatOf(path), logger.WithFields(log.String("file", path))), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

func firstExisting(dir string, names []string) (string, bool) {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		} else if !errors.Is(err, fs.ErrNotExist) {
			return path, true // let the open report it
		}
	}
	return "", false
}
