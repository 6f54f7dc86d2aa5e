// Package devstore is a SQLite-backed implementation of the store contract,
// used by tests and local/offline runs that don't have Postgres available.
// Connection setup (WAL mode, single-writer pool, PRAGMA tuning) follows the
// teacher's db/sqlite.go verbatim.
package devstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection satisfying store.DynamicStore and
// store.StaticReader/Writer.
type Store struct {
	conn *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path with WAL
// mode and foreign keys enabled. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("devstore: open: %w", err)
	}

	// SQLite allows only one writer at a time; cap the pool to 1 to avoid
	// "cannot start a transaction within a transaction" errors.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("devstore: ping: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 10000",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			log.Printf("devstore: warning: failed to set %s: %v", pragma, err)
		}
	}

	s := &Store{conn: conn}
	if err := s.ensureSchema(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.conn.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS stops (
		stop_id TEXT PRIMARY KEY, stop_name TEXT, stop_lat REAL, stop_lon REAL,
		location_type INTEGER, parent_station TEXT, wheelchair_boarding TEXT
	);
	CREATE TABLE IF NOT EXISTS routes (
		route_id TEXT PRIMARY KEY, route_short_name TEXT, route_long_name TEXT,
		route_type INTEGER, route_color TEXT, route_text_color TEXT,
		network_id TEXT, is_circular INTEGER
	);
	CREATE TABLE IF NOT EXISTS networks (
		network_id TEXT PRIMARY KEY, name TEXT, region TEXT, transport_type TEXT,
		color TEXT, text_color TEXT
	);
	CREATE TABLE IF NOT EXISTS trips (
		trip_id TEXT PRIMARY KEY, route_id TEXT, service_id TEXT, trip_headsign TEXT,
		direction_id INTEGER, shape_id TEXT
	);
	CREATE TABLE IF NOT EXISTS stop_times (
		trip_id TEXT, stop_sequence INTEGER, stop_id TEXT,
		arrival_seconds INTEGER, departure_seconds INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_stop_times_trip ON stop_times(trip_id, stop_sequence);
	CREATE TABLE IF NOT EXISTS calendar (
		service_id TEXT PRIMARY KEY, monday INTEGER, tuesday INTEGER, wednesday INTEGER,
		thursday INTEGER, friday INTEGER, saturday INTEGER, sunday INTEGER,
		start_date TEXT, end_date TEXT
	);
	CREATE TABLE IF NOT EXISTS calendar_dates (
		service_id TEXT, date TEXT, exception_type INTEGER
	);
	CREATE TABLE IF NOT EXISTS route_frequencies (
		route_id TEXT, day_type TEXT, start_time TEXT, end_time TEXT, headway_secs INTEGER
	);
	CREATE TABLE IF NOT EXISTS shapes (
		shape_id TEXT, shape_pt_sequence INTEGER, shape_pt_lat REAL, shape_pt_lon REAL,
		shape_dist_traveled REAL
	);
	CREATE TABLE IF NOT EXISTS transfers (
		from_stop_id TEXT, to_stop_id TEXT, min_transfer_time INTEGER
	);
	CREATE TABLE IF NOT EXISTS route_stop_sequences (
		route_id TEXT, direction_id INTEGER, stop_id TEXT, sequence INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_route_stop_sequences_route ON route_stop_sequences(route_id, direction_id, sequence);

	CREATE TABLE IF NOT EXISTS rt_snapshots (
		snapshot_id TEXT PRIMARY KEY, polled_at_utc TEXT
	);
	CREATE TABLE IF NOT EXISTS vehicle_positions (
		vehicle_id TEXT PRIMARY KEY, snapshot_id TEXT, trip_id TEXT, lat REAL, lon REAL,
		status TEXT, stop_id TEXT, label TEXT, platform TEXT,
		vehicle_timestamp_utc TEXT, updated_at TEXT
	);
	CREATE TABLE IF NOT EXISTS trip_updates (
		trip_id TEXT PRIMARY KEY, snapshot_id TEXT, delay_secs INTEGER, vehicle_id TEXT,
		wheelchair TEXT, timestamp_utc TEXT, updated_at TEXT
	);
	CREATE TABLE IF NOT EXISTS stop_time_updates (
		trip_id TEXT, stop_id TEXT, arrival_delay INTEGER, arrival_time_utc TEXT,
		departure_delay INTEGER, departure_time_utc TEXT, platform TEXT,
		occupancy_percent INTEGER, headsign TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_stu_trip ON stop_time_updates(trip_id);
	CREATE TABLE IF NOT EXISTS alerts (
		alert_id TEXT PRIMARY KEY, cause TEXT, effect TEXT, header TEXT, description TEXT,
		url TEXT, active_period_start TEXT, active_period_end TEXT, source TEXT,
		ai_severity TEXT, ai_status TEXT, ai_summary TEXT, ai_affected_segments TEXT,
		updated_at TEXT
	);
	CREATE TABLE IF NOT EXISTS alert_informed_entities (
		alert_id TEXT, route_id TEXT, stop_id TEXT, trip_id TEXT
	);
	CREATE TABLE IF NOT EXISTS platform_history (
		stop_id TEXT, route_short_name TEXT, headsign TEXT, platform TEXT,
		count INTEGER, observation_date TEXT, last_seen TEXT,
		PRIMARY KEY (stop_id, route_short_name, headsign, platform, observation_date)
	);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("devstore: ensure schema: %w", err)
	}
	return nil
}
