package pgstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// CreateSnapshot records a new ingestion snapshot, mirroring the teacher's
// rt_snapshots table.
func (s *Store) CreateSnapshot(ctx context.Context, polledAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rt_snapshots (snapshot_id, polled_at_utc) VALUES ($1, $2)`,
		id, polledAt.UTC())
	if err != nil {
		return "", apperr.New(apperr.KindPersistenceFailure, "pgstore.CreateSnapshot", err)
	}
	return id, nil
}

// UpsertVehiclePositions upserts current positions and appends a history
// row per position, the same upsert-then-history shape as the teacher's
// UpsertRodaliesPositions/UpsertMetroPositions generalized across operators.
func (s *Store) UpsertVehiclePositions(ctx context.Context, snapshotID string, positions []store.VehiclePosition) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertVehiclePositions.begin", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range positions {
		_, err := tx.Exec(ctx, `
			INSERT INTO vehicle_positions (
				vehicle_id, snapshot_id, trip_id, lat, lon, status, stop_id,
				label, platform, vehicle_timestamp_utc, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
			ON CONFLICT (vehicle_id) DO UPDATE SET
				snapshot_id = excluded.snapshot_id,
				trip_id = excluded.trip_id,
				lat = excluded.lat,
				lon = excluded.lon,
				status = excluded.status,
				stop_id = excluded.stop_id,
				label = excluded.label,
				platform = excluded.platform,
				vehicle_timestamp_utc = excluded.vehicle_timestamp_utc,
				updated_at = now()
		`, p.VehicleID, snapshotID, nullable(p.TripID), p.Lat, p.Lon, string(p.Status),
			nullable(p.StopID), nullable(p.Label), nullable(p.Platform), p.Timestamp.UTC())
		if err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertVehiclePositions.exec", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO vehicle_position_history (
				vehicle_id, snapshot_id, trip_id, lat, lon, status, stop_id,
				label, platform, vehicle_timestamp_utc
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, p.VehicleID, snapshotID, nullable(p.TripID), p.Lat, p.Lon, string(p.Status),
			nullable(p.StopID), nullable(p.Label), nullable(p.Platform), p.Timestamp.UTC())
		if err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertVehiclePositions.history", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertVehiclePositions.commit", err)
	}
	return nil
}

// UpsertTripUpdates replaces each trip's StopTimeUpdate children wholesale
// on every refresh (§3: "deleted and re-inserted"), matching the teacher's
// handling of rt child rows.
func (s *Store) UpsertTripUpdates(ctx context.Context, snapshotID string, updates []store.TripUpdate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertTripUpdates.begin", err)
	}
	defer tx.Rollback(ctx)

	for _, u := range updates {
		_, err := tx.Exec(ctx, `
			INSERT INTO trip_updates (trip_id, snapshot_id, delay_secs, vehicle_id,
				wheelchair, timestamp_utc, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (trip_id) DO UPDATE SET
				snapshot_id = excluded.snapshot_id,
				delay_secs = excluded.delay_secs,
				vehicle_id = excluded.vehicle_id,
				wheelchair = excluded.wheelchair,
				timestamp_utc = excluded.timestamp_utc,
				updated_at = now()
		`, u.TripID, snapshotID, u.DelaySecs, nullable(u.VehicleID), nullable(u.Wheelchair), u.Timestamp.UTC())
		if err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertTripUpdates.exec", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM stop_time_updates WHERE trip_id = $1`, u.TripID); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertTripUpdates.delete_children", err)
		}
		for _, stu := range u.StopTimeUpdates {
			_, err := tx.Exec(ctx, `
				INSERT INTO stop_time_updates (trip_id, stop_id, arrival_delay,
					arrival_time_utc, departure_delay, departure_time_utc, platform,
					occupancy_percent, headsign)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, stu.TripID, stu.StopID, stu.ArrivalDelay, stu.ArrivalTime, stu.DepartureDelay,
				stu.DepartureTime, nullable(stu.Platform), stu.OccupancyPercent, nullable(stu.Headsign))
			if err != nil {
				return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertTripUpdates.insert_child", err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertTripUpdates.commit", err)
	}
	return nil
}

// UpsertAlerts upserts alerts and replaces their informed-entity children.
func (s *Store) UpsertAlerts(ctx context.Context, alerts []store.Alert) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertAlerts.begin", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range alerts {
		source := a.Source
		if source == "" {
			source = "feed"
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO alerts (alert_id, cause, effect, header, description, url,
				active_period_start, active_period_end, source,
				ai_severity, ai_status, ai_summary, ai_affected_segments, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
			ON CONFLICT (alert_id) DO UPDATE SET
				cause = excluded.cause,
				effect = excluded.effect,
				header = excluded.header,
				description = excluded.description,
				url = excluded.url,
				active_period_start = excluded.active_period_start,
				active_period_end = excluded.active_period_end,
				source = excluded.source,
				ai_severity = COALESCE(NULLIF(excluded.ai_severity, ''), alerts.ai_severity),
				ai_status = COALESCE(NULLIF(excluded.ai_status, ''), alerts.ai_status),
				ai_summary = COALESCE(NULLIF(excluded.ai_summary, ''), alerts.ai_summary),
				ai_affected_segments = CASE WHEN array_length(excluded.ai_affected_segments, 1) > 0
					THEN excluded.ai_affected_segments ELSE alerts.ai_affected_segments END,
				updated_at = now()
		`, a.AlertID, a.Cause, a.Effect, a.Header, a.Description, nullable(a.URL),
			a.ActivePeriodStart, a.ActivePeriodEnd, source,
			a.AISeverity, a.AIStatus, a.AISummary, a.AIAffectedSegments)
		if err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertAlerts.exec", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM alert_informed_entities WHERE alert_id = $1`, a.AlertID); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertAlerts.delete_children", err)
		}
		for _, ie := range a.InformedEntities {
			_, err := tx.Exec(ctx, `
				INSERT INTO alert_informed_entities (alert_id, route_id, stop_id, trip_id)
				VALUES ($1, $2, $3, $4)
			`, a.AlertID, nullable(ie.RouteID), nullable(ie.StopID), nullable(ie.TripID))
			if err != nil {
				return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertAlerts.insert_child", err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.UpsertAlerts.commit", err)
	}
	return nil
}

func (s *Store) VehiclePositionsByTrip(ctx context.Context, tripIDs []string) (map[string]store.VehiclePosition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT vehicle_id, trip_id, lat, lon, status, COALESCE(stop_id, ''),
		       COALESCE(label, ''), COALESCE(platform, ''), vehicle_timestamp_utc, updated_at
		FROM vehicle_positions WHERE trip_id = ANY($1)`, tripIDs)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "pgstore.VehiclePositionsByTrip", err)
	}
	defer rows.Close()

	out := make(map[string]store.VehiclePosition)
	for rows.Next() {
		var p store.VehiclePosition
		var status string
		if err := rows.Scan(&p.VehicleID, &p.TripID, &p.Lat, &p.Lon, &status,
			&p.StopID, &p.Label, &p.Platform, &p.Timestamp, &p.UpdatedAt); err != nil {
			return nil, apperr.New(apperr.KindPersistenceFailure, "pgstore.VehiclePositionsByTrip.scan", err)
		}
		p.Status = store.VehicleStatus(status)
		out[p.TripID] = p
	}
	return out, rows.Err()
}

func (s *Store) TripUpdatesByTrip(ctx context.Context, tripIDs []string) (map[string]store.TripUpdate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT trip_id, delay_secs, COALESCE(vehicle_id, ''), COALESCE(wheelchair, ''),
		       timestamp_utc, updated_at
		FROM trip_updates WHERE trip_id = ANY($1)`, tripIDs)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "pgstore.TripUpdatesByTrip", err)
	}
	defer rows.Close()

	out := make(map[string]store.TripUpdate)
	for rows.Next() {
		var u store.TripUpdate
		if err := rows.Scan(&u.TripID, &u.DelaySecs, &u.VehicleID, &u.Wheelchair, &u.Timestamp, &u.UpdatedAt); err != nil {
			return nil, apperr.New(apperr.KindPersistenceFailure, "pgstore.TripUpdatesByTrip.scan", err)
		}
		out[u.TripID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for tripID, u := range out {
		stuRows, err := s.pool.Query(ctx, `
			SELECT trip_id, stop_id, arrival_delay, arrival_time_utc, departure_delay,
			       departure_time_utc, COALESCE(platform, ''), occupancy_percent,
			       COALESCE(headsign, '')
			FROM stop_time_updates WHERE trip_id = $1`, tripID)
		if err != nil {
			return nil, apperr.New(apperr.KindPersistenceFailure, "pgstore.TripUpdatesByTrip.children", err)
		}
		var children []store.StopTimeUpdate
		for stuRows.Next() {
			var stu store.StopTimeUpdate
			if err := stuRows.Scan(&stu.TripID, &stu.StopID, &stu.ArrivalDelay, &stu.ArrivalTime,
				&stu.DepartureDelay, &stu.DepartureTime, &stu.Platform, &stu.OccupancyPercent, &stu.Headsign); err != nil {
				stuRows.Close()
				return nil, apperr.New(apperr.KindPersistenceFailure, "pgstore.TripUpdatesByTrip.children.scan", err)
			}
			children = append(children, stu)
		}
		stuRows.Close()
		u.StopTimeUpdates = children
		out[tripID] = u
	}
	return out, nil
}

func (s *Store) ActiveAlerts(ctx context.Context, now time.Time) ([]store.Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT alert_id, cause, effect, header, description, COALESCE(url, ''),
		       active_period_start, active_period_end, COALESCE(source, ''),
		       COALESCE(ai_severity, ''), COALESCE(ai_status, ''), COALESCE(ai_summary, ''),
		       COALESCE(ai_affected_segments, ARRAY[]::text[])
		FROM alerts
		WHERE (active_period_start IS NULL OR active_period_start <= $1)
		  AND (active_period_end IS NULL OR active_period_end >= $1)`, now.UTC())
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "pgstore.ActiveAlerts", err)
	}
	defer rows.Close()

	var out []store.Alert
	for rows.Next() {
		var a store.Alert
		if err := rows.Scan(&a.AlertID, &a.Cause, &a.Effect, &a.Header, &a.Description,
			&a.URL, &a.ActivePeriodStart, &a.ActivePeriodEnd, &a.Source,
			&a.AISeverity, &a.AIStatus, &a.AISummary, &a.AIAffectedSegments); err != nil {
			return nil, apperr.New(apperr.KindPersistenceFailure, "pgstore.ActiveAlerts.scan", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PurgeStaleTripUpdates removes TripUpdates older than the retention window
// and their children, matching the teacher's cleanup retention pattern.
func (s *Store) PurgeStaleTripUpdates(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trip_updates WHERE timestamp_utc < $1`, olderThan.UTC())
	if err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "pgstore.PurgeStaleTripUpdates", err)
	}
	return int(tag.RowsAffected()), nil
}

// PurgeExpiredAlerts implements both §4.F eviction rules: fully-elapsed
// active periods, and open-ended alerts that have gone stale for 12h and
// are not manually pinned (source = 'manual').
func (s *Store) PurgeExpiredAlerts(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM alerts WHERE
			(active_period_end IS NOT NULL AND active_period_end < $1)
			OR (active_period_end IS NULL AND COALESCE(updated_at, $1) < $1 - INTERVAL '12 hours'
				AND COALESCE(source, '') <> 'manual')
	`, now.UTC())
	if err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "pgstore.PurgeExpiredAlerts", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) RecordPlatformObservation(ctx context.Context, obs gtfs.PlatformHistory) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO platform_history (stop_id, route_short_name, headsign, platform,
			count, observation_date, last_seen)
		VALUES ($1, $2, $3, $4, 1, $5, now())
		ON CONFLICT (stop_id, route_short_name, headsign, platform, observation_date)
		DO UPDATE SET count = platform_history.count + 1, last_seen = now()
	`, obs.StopID, obs.RouteShortName, obs.Headsign, obs.Platform, obs.ObservationDate)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "pgstore.RecordPlatformObservation", err)
	}
	return nil
}

func (s *Store) PlatformHistoryFor(ctx context.Context, stopID, routeShortName, headsign string) ([]gtfs.PlatformHistory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT stop_id, route_short_name, headsign, platform, count, observation_date, last_seen
		FROM platform_history
		WHERE stop_id = $1 AND route_short_name = $2 AND headsign = $3
		ORDER BY count DESC`, stopID, routeShortName, headsign)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "pgstore.PlatformHistoryFor", err)
	}
	defer rows.Close()
	var out []gtfs.PlatformHistory
	for rows.Next() {
		var h gtfs.PlatformHistory
		if err := rows.Scan(&h.StopID, &h.RouteShortName, &h.Headsign, &h.Platform, &h.Count, &h.ObservationDate, &h.LastSeen); err != nil {
			return nil, apperr.New(apperr.KindPersistenceFailure, "pgstore.PlatformHistoryFor.scan", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// PurgePlatformHistoryBefore implements the 30-day retention cleanup
// (§4.E), grounded on the teacher's cleanup.go retention-window DELETE.
func (s *Store) PurgePlatformHistoryBefore(ctx context.Context, cutoffDate string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM platform_history WHERE observation_date < $1`, cutoffDate)
	if err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "pgstore.PurgePlatformHistoryBefore", err)
	}
	return int(tag.RowsAffected()), nil
}

// BulkBackfillPlatforms is the post-processor's step-1 bulk correlation: set
// the platform on every still-unknown stop_time_update matching the
// (stop, route, headsign) tuple, in one UPDATE rather than per-row.
func (s *Store) BulkBackfillPlatforms(ctx context.Context, stopID, routeShortName, headsign, platform string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE stop_time_updates stu
		SET platform = $4
		FROM trip_updates tu, trips t, routes r
		WHERE stu.trip_id = tu.trip_id
		  AND tu.trip_id = t.trip_id
		  AND t.route_id = r.route_id
		  AND stu.stop_id = $1
		  AND r.route_short_name = $2
		  AND COALESCE(stu.headsign, t.trip_headsign) = $3
		  AND (stu.platform IS NULL OR stu.platform = '')
	`, stopID, routeShortName, headsign, platform)
	if err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "pgstore.BulkBackfillPlatforms", err)
	}
	return int(tag.RowsAffected()), nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
