// Package pgstore is the production persistence-layer implementation
// (§4.C), backed by Postgres via pgx/pgxpool. Pool sizing and upsert
// idioms follow the teacher's repository layer.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// Store is a pgx-backed store.DynamicStore + store.StaticReader/Writer.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres with a pool tuned for a read-heavy workload
// polled every tens of seconds, matching the teacher's repository sizing.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// LoadStaticSnapshot reads the full static schedule in one pass for the ISS
// loader (§4.D). Query shape follows the teacher's repository SELECT style.
func (s *Store) LoadStaticSnapshot(ctx context.Context) (*store.StaticSnapshot, error) {
	snap := &store.StaticSnapshot{Shapes: make(map[string][]gtfs.ShapePoint)}

	if err := s.queryStops(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.queryRoutes(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.queryNetworks(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.queryTrips(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.queryStopTimes(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.queryCalendars(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.queryCalendarExceptions(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.queryRouteFrequencies(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.queryShapes(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.queryTransfers(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.queryRouteStopSequences(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) queryStops(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT stop_id, stop_name, stop_lat, stop_lon, location_type,
		       COALESCE(parent_station, ''), COALESCE(wheelchair_boarding, '')
		FROM stops`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryStops", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st gtfs.Stop
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon, &st.LocationType,
			&st.ParentStationID, &st.WheelchairBoarding); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryStops.scan", err)
		}
		snap.Stops = append(snap.Stops, st)
	}
	return rows.Err()
}

func (s *Store) queryRoutes(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT route_id, route_short_name, route_long_name, route_type,
		       COALESCE(route_color, ''), COALESCE(route_text_color, ''),
		       COALESCE(network_id, ''), is_circular
		FROM routes`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryRoutes", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rt gtfs.Route
		if err := rows.Scan(&rt.ID, &rt.ShortName, &rt.LongName, &rt.Type,
			&rt.Color, &rt.TextColor, &rt.NetworkID, &rt.IsCircular); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryRoutes.scan", err)
		}
		snap.Routes = append(snap.Routes, rt)
	}
	return rows.Err()
}

func (s *Store) queryNetworks(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT network_id, name, COALESCE(region, ''), COALESCE(transport_type, ''),
		       COALESCE(color, ''), COALESCE(text_color, '')
		FROM networks`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryNetworks", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n gtfs.Network
		if err := rows.Scan(&n.Code, &n.Name, &n.Region, &n.TransportType, &n.Color, &n.TextColor); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryNetworks.scan", err)
		}
		snap.Networks = append(snap.Networks, n)
	}
	return rows.Err()
}

func (s *Store) queryTrips(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT trip_id, route_id, service_id, COALESCE(trip_headsign, ''),
		       direction_id, COALESCE(shape_id, '')
		FROM trips`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryTrips", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t gtfs.Trip
		if err := rows.Scan(&t.ID, &t.RouteID, &t.ServiceID, &t.Headsign, &t.DirectionID, &t.ShapeID); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryTrips.scan", err)
		}
		snap.Trips = append(snap.Trips, t)
	}
	return rows.Err()
}

func (s *Store) queryStopTimes(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT trip_id, stop_sequence, stop_id, arrival_seconds, departure_seconds
		FROM stop_times ORDER BY trip_id, stop_sequence`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryStopTimes", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st gtfs.StopTime
		if err := rows.Scan(&st.TripID, &st.StopSequence, &st.StopID, &st.ArrivalSeconds, &st.DepartureSeconds); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryStopTimes.scan", err)
		}
		snap.StopTimes = append(snap.StopTimes, st)
	}
	return rows.Err()
}

func (s *Store) queryCalendars(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday,
		       start_date, end_date
		FROM calendar`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryCalendars", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c gtfs.Calendar
		if err := rows.Scan(&c.ServiceID, &c.Monday, &c.Tuesday, &c.Wednesday, &c.Thursday,
			&c.Friday, &c.Saturday, &c.Sunday, &c.StartDate, &c.EndDate); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryCalendars.scan", err)
		}
		snap.Calendars = append(snap.Calendars, c)
	}
	return rows.Err()
}

func (s *Store) queryCalendarExceptions(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `SELECT service_id, date, exception_type FROM calendar_dates`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryCalendarExceptions", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ce gtfs.CalendarException
		if err := rows.Scan(&ce.ServiceID, &ce.Date, &ce.ExceptionType); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryCalendarExceptions.scan", err)
		}
		snap.CalendarExceptions = append(snap.CalendarExceptions, ce)
	}
	return rows.Err()
}

func (s *Store) queryRouteFrequencies(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT route_id, day_type, start_time, end_time, headway_secs FROM route_frequencies`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryRouteFrequencies", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rf gtfs.RouteFrequency
		if err := rows.Scan(&rf.RouteID, &rf.DayType, &rf.StartTime, &rf.EndTime, &rf.HeadwaySecs); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryRouteFrequencies.scan", err)
		}
		snap.RouteFrequencies = append(snap.RouteFrequencies, rf)
	}
	return rows.Err()
}

func (s *Store) queryShapes(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT shape_id, shape_pt_sequence, shape_pt_lat, shape_pt_lon,
		       COALESCE(shape_dist_traveled, 0)
		FROM shapes ORDER BY shape_id, shape_pt_sequence`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryShapes", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p gtfs.ShapePoint
		if err := rows.Scan(&p.ShapeID, &p.Sequence, &p.Lat, &p.Lon, &p.DistTraveled); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryShapes.scan", err)
		}
		snap.Shapes[p.ShapeID] = append(snap.Shapes[p.ShapeID], p)
	}
	return rows.Err()
}

func (s *Store) queryTransfers(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT from_stop_id, to_stop_id, COALESCE(min_transfer_time, 0)
		FROM transfers`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryTransfers", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t gtfs.Transfer
		if err := rows.Scan(&t.FromStopID, &t.ToStopID, &t.WalkTimeS); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryTransfers.scan", err)
		}
		snap.Transfers = append(snap.Transfers, t)
	}
	return rows.Err()
}

func (s *Store) queryRouteStopSequences(ctx context.Context, snap *store.StaticSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT route_id, direction_id, stop_id, sequence
		FROM route_stop_sequences ORDER BY route_id, direction_id, sequence`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryRouteStopSequences", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rs gtfs.RouteStopSequence
		if err := rows.Scan(&rs.RouteID, &rs.DirectionID, &rs.StopID, &rs.Sequence); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.queryRouteStopSequences.scan", err)
		}
		snap.RouteStopSequences = append(snap.RouteStopSequences, rs)
	}
	return rows.Err()
}
