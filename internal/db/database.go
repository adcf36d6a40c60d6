package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"race-telemetry-dashboard/internal/models"
)

// Database holds a racing dataset in an in-memory SQLite database.
// Nothing is persisted; the data is gone once the database is closed.
type Database struct {
	conn *sql.DB
}

// New creates an empty in-memory database
func New() (*Database, error) {
	// a named shared cache keeps the data alive for the single pooled connection
	connStr := fmt.Sprintf("file:race-%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	db := &Database{conn: conn}
	if err := db.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// initialize creates tables and indexes
func (db *Database) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS races (
		race_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		circuit TEXT NOT NULL,
		date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS laps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		race_id TEXT NOT NULL,
		driver TEXT NOT NULL,
		session TEXT NOT NULL,
		lap_number INTEGER NOT NULL,
		lap_time_seconds REAL NOT NULL,
		compound TEXT,
		UNIQUE (race_id, session, driver, lap_number),
		FOREIGN KEY (race_id) REFERENCES races(race_id)
	);

	CREATE TABLE IF NOT EXISTS telemetry (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		race_id TEXT NOT NULL,
		driver TEXT NOT NULL,
		session TEXT NOT NULL,
		lap_number INTEGER NOT NULL,
		timestamp_seconds REAL NOT NULL,
		speed REAL NOT NULL,
		rpm REAL NOT NULL,
		gear INTEGER NOT NULL,
		throttle REAL NOT NULL,
		FOREIGN KEY (race_id) REFERENCES races(race_id)
	);

	CREATE INDEX IF NOT EXISTS idx_laps_race_session ON laps(race_id, session);
	CREATE INDEX IF NOT EXISTS idx_telemetry_race_lap ON telemetry(race_id, session, lap_number);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.conn.Close()
}

// InsertRaces adds races, replacing known ones
func (db *Database) InsertRaces(ctx context.Context, races []models.Race) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO races (race_id, name, circuit, date) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range races {
		if _, err := stmt.ExecContext(ctx, r.RaceID, r.Name, r.Circuit, r.Date); err != nil {
			return fmt.Errorf("race %s: %w", r.RaceID, err)
		}
	}
	return tx.Commit()
}

// InsertLapsBatch efficiently inserts multiple laps
func (db *Database) InsertLapsBatch(ctx context.Context, laps []models.Lap) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO laps (race_id, driver, session, lap_number, lap_time_seconds, compound)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int64
	for _, l := range laps {
		var compound sql.NullString
		if l.Compound != "" {
			compound = sql.NullString{String: string(l.Compound), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			l.RaceID, string(l.Driver), string(l.Session), l.LapNumber, l.LapTimeSeconds, compound)
		if err != nil {
			return count, fmt.Errorf("lap %d of driver %s: %w", l.LapNumber, l.Driver, err)
		}
		count++
	}
	return count, tx.Commit()
}

// InsertTelemetryBatch efficiently inserts multiple telemetry samples
func (db *Database) InsertTelemetryBatch(ctx context.Context, samples []models.TelemetrySample) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO telemetry
		(race_id, driver, session, lap_number, timestamp_seconds, speed, rpm, gear, throttle)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int64
	for _, t := range samples {
		_, err := stmt.ExecContext(ctx,
			t.RaceID, string(t.Driver), string(t.Session), t.LapNumber, t.TimestampSeconds,
			t.Speed, t.RPM, t.Gear, t.Throttle,
		)
		if err != nil {
			return count, err
		}
		count++
	}
	return count, tx.Commit()
}

// ListRaces returns all races in insertion order
func (db *Database) ListRaces(ctx context.Context) ([]models.Race, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT race_id, name, circuit, date FROM races ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	races := []models.Race{}
	for rows.Next() {
		var r models.Race
		if err := rows.Scan(&r.RaceID, &r.Name, &r.Circuit, &r.Date); err != nil {
			return nil, err
		}
		races = append(races, r)
	}
	return races, rows.Err()
}

// RaceExists reports whether the race is part of the dataset
func (db *Database) RaceExists(ctx context.Context, raceID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM races WHERE race_id = ?`, raceID).Scan(&n)
	return n > 0, err
}

// ListDrivers returns the drivers of a session in order of their first lap record
func (db *Database) ListDrivers(ctx context.Context, raceID string, session models.Session) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT driver FROM laps
		WHERE race_id = ? AND session = ?
		GROUP BY driver
		ORDER BY MIN(id)
	`, raceID, string(session))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func whereRaceSession(raceID string, session models.Session, drivers []string) ([]string, []any) {
	conditions := []string{"race_id = ?", "session = ?"}
	args := []any{raceID, string(session)}
	if len(drivers) > 0 {
		conditions = append(conditions,
			"driver IN ("+strings.TrimSuffix(strings.Repeat("?,", len(drivers)), ",")+")")
		for _, d := range drivers {
			args = append(args, d)
		}
	}
	return conditions, args
}

// QueryLaps retrieves laps ordered by lap number
func (db *Database) QueryLaps(ctx context.Context, q models.LapQuery) ([]models.Lap, error) {
	conditions, args := whereRaceSession(q.RaceID, q.Session, q.Drivers)
	query := `
		SELECT race_id, driver, session, lap_number, lap_time_seconds, compound
		FROM laps
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY lap_number, id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.Lap
	for rows.Next() {
		var l models.Lap
		var driver, session string
		var compound sql.NullString
		if err := rows.Scan(&l.RaceID, &driver, &session, &l.LapNumber, &l.LapTimeSeconds, &compound); err != nil {
			return nil, err
		}
		l.Driver = models.DriverID(driver)
		l.Session = models.Session(session)
		if compound.Valid {
			l.Compound = models.Compound(compound.String)
		}
		results = append(results, l)
	}
	return results, rows.Err()
}

// QueryTelemetry retrieves telemetry samples ordered by timestamp
func (db *Database) QueryTelemetry(ctx context.Context, q models.TelemetryQuery) ([]models.TelemetrySample, error) {
	conditions, args := whereRaceSession(q.RaceID, q.Session, q.Drivers)
	if q.LapNumber > 0 {
		conditions = append(conditions, "lap_number = ?")
		args = append(args, q.LapNumber)
	}
	query := `
		SELECT race_id, driver, session, lap_number, timestamp_seconds, speed, rpm, gear, throttle
		FROM telemetry
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY lap_number, timestamp_seconds, id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.TelemetrySample
	for rows.Next() {
		var t models.TelemetrySample
		var driver, session string
		err := rows.Scan(&t.RaceID, &driver, &session, &t.LapNumber, &t.TimestampSeconds,
			&t.Speed, &t.RPM, &t.Gear, &t.Throttle)
		if err != nil {
			return nil, err
		}
		t.Driver = models.DriverID(driver)
		t.Session = models.Session(session)
		results = append(results, t)
	}
	return results, rows.Err()
}

// GetSummaries returns lap statistics per driver. Only laps with a positive
// time are taken into account.
func (db *Database) GetSummaries(
	ctx context.Context, raceID string, session models.Session, drivers []string,
) ([]models.Summary, error) {
	conditions, args := whereRaceSession(raceID, session, drivers)
	conditions = append(conditions, "lap_time_seconds > 0")
	query := `
		SELECT
			race_id,
			driver,
			session,
			AVG(lap_time_seconds) as average_lap_time,
			MIN(lap_time_seconds) as fastest_lap_time,
			COUNT(*) as laps_completed
		FROM laps
		WHERE ` + strings.Join(conditions, " AND ") + `
		GROUP BY race_id, driver, session
		ORDER BY MIN(id)`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.Summary
	for rows.Next() {
		var s models.Summary
		var driver, sess string
		err := rows.Scan(&s.RaceID, &driver, &sess, &s.AverageLapTime, &s.FastestLapTime, &s.LapsCompleted)
		if err != nil {
			return nil, err
		}
		s.Driver = models.DriverID(driver)
		s.Session = models.Session(sess)
		results = append(results, s)
	}
	return results, rows.Err()
}

// GetStats returns record counts of the dataset
func (db *Database) GetStats(ctx context.Context) (models.DatasetStats, error) {
	var s models.DatasetStats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM races),
			(SELECT COUNT(*) FROM laps),
			(SELECT COUNT(*) FROM telemetry)
	`).Scan(&s.Races, &s.Laps, &s.Telemetry)
	return s, err
}
