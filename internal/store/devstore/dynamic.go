package devstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

func (s *Store) CreateSnapshot(ctx context.Context, polledAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO rt_snapshots (snapshot_id, polled_at_utc) VALUES (?, ?)`,
		id, polledAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", apperr.New(apperr.KindPersistenceFailure, "devstore.CreateSnapshot", err)
	}
	return id, nil
}

func (s *Store) UpsertVehiclePositions(ctx context.Context, snapshotID string, positions []store.VehiclePosition) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertVehiclePositions.begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vehicle_positions (vehicle_id, snapshot_id, trip_id, lat, lon, status,
			stop_id, label, platform, vehicle_timestamp_utc, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (vehicle_id) DO UPDATE SET
			snapshot_id = excluded.snapshot_id, trip_id = excluded.trip_id,
			lat = excluded.lat, lon = excluded.lon, status = excluded.status,
			stop_id = excluded.stop_id, label = excluded.label, platform = excluded.platform,
			vehicle_timestamp_utc = excluded.vehicle_timestamp_utc, updated_at = datetime('now')
	`)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertVehiclePositions.prepare", err)
	}
	defer stmt.Close()

	for _, p := range positions {
		if _, err := stmt.ExecContext(ctx, p.VehicleID, snapshotID, p.TripID, p.Lat, p.Lon,
			string(p.Status), p.StopID, p.Label, p.Platform, p.Timestamp.UTC().Format(time.RFC3339)); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertVehiclePositions.exec", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertVehiclePositions.commit", err)
	}
	return nil
}

func (s *Store) UpsertTripUpdates(ctx context.Context, snapshotID string, updates []store.TripUpdate) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertTripUpdates.begin", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trip_updates (trip_id, snapshot_id, delay_secs, vehicle_id,
				wheelchair, timestamp_utc, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
			ON CONFLICT (trip_id) DO UPDATE SET
				snapshot_id = excluded.snapshot_id, delay_secs = excluded.delay_secs,
				vehicle_id = excluded.vehicle_id, wheelchair = excluded.wheelchair,
				timestamp_utc = excluded.timestamp_utc, updated_at = datetime('now')
		`, u.TripID, snapshotID, u.DelaySecs, u.VehicleID, u.Wheelchair, u.Timestamp.UTC().Format(time.RFC3339))
		if err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertTripUpdates.exec", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM stop_time_updates WHERE trip_id = ?`, u.TripID); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertTripUpdates.delete_children", err)
		}
		for _, stu := range u.StopTimeUpdates {
			var arrT, depT *string
			if stu.ArrivalTime != nil {
				v := stu.ArrivalTime.UTC().Format(time.RFC3339)
				arrT = &v
			}
			if stu.DepartureTime != nil {
				v := stu.DepartureTime.UTC().Format(time.RFC3339)
				depT = &v
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO stop_time_updates (trip_id, stop_id, arrival_delay, arrival_time_utc,
					departure_delay, departure_time_utc, platform, occupancy_percent, headsign)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, stu.TripID, stu.StopID, stu.ArrivalDelay, arrT, stu.DepartureDelay, depT,
				stu.Platform, stu.OccupancyPercent, stu.Headsign); err != nil {
				return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertTripUpdates.insert_child", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertTripUpdates.commit", err)
	}
	return nil
}

func (s *Store) UpsertAlerts(ctx context.Context, alerts []store.Alert) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertAlerts.begin", err)
	}
	defer tx.Rollback()

	for _, a := range alerts {
		var start, end *string
		if a.ActivePeriodStart != nil {
			v := a.ActivePeriodStart.UTC().Format(time.RFC3339)
			start = &v
		}
		if a.ActivePeriodEnd != nil {
			v := a.ActivePeriodEnd.UTC().Format(time.RFC3339)
			end = &v
		}
		source := a.Source
		if source == "" {
			source = "feed"
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO alerts (alert_id, cause, effect, header, description, url,
				active_period_start, active_period_end, source,
				ai_severity, ai_status, ai_summary, ai_affected_segments, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
			ON CONFLICT (alert_id) DO UPDATE SET
				cause = excluded.cause, effect = excluded.effect, header = excluded.header,
				description = excluded.description, url = excluded.url,
				active_period_start = excluded.active_period_start,
				active_period_end = excluded.active_period_end,
				source = excluded.source,
				ai_severity = CASE WHEN excluded.ai_severity <> '' THEN excluded.ai_severity ELSE alerts.ai_severity END,
				ai_status = CASE WHEN excluded.ai_status <> '' THEN excluded.ai_status ELSE alerts.ai_status END,
				ai_summary = CASE WHEN excluded.ai_summary <> '' THEN excluded.ai_summary ELSE alerts.ai_summary END,
				ai_affected_segments = CASE WHEN excluded.ai_affected_segments <> '' THEN excluded.ai_affected_segments ELSE alerts.ai_affected_segments END,
				updated_at = datetime('now')
		`, a.AlertID, a.Cause, a.Effect, a.Header, a.Description, a.URL, start, end, source,
			a.AISeverity, a.AIStatus, a.AISummary, joinSegments(a.AIAffectedSegments))
		if err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertAlerts.exec", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM alert_informed_entities WHERE alert_id = ?`, a.AlertID); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertAlerts.delete_children", err)
		}
		for _, ie := range a.InformedEntities {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO alert_informed_entities (alert_id, route_id, stop_id, trip_id) VALUES (?, ?, ?, ?)
			`, a.AlertID, ie.RouteID, ie.StopID, ie.TripID); err != nil {
				return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertAlerts.insert_child", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "devstore.UpsertAlerts.commit", err)
	}
	return nil
}

func (s *Store) VehiclePositionsByTrip(ctx context.Context, tripIDs []string) (map[string]store.VehiclePosition, error) {
	out := make(map[string]store.VehiclePosition)
	for _, tripID := range tripIDs {
		row := s.conn.QueryRowContext(ctx, `
			SELECT vehicle_id, trip_id, lat, lon, status, stop_id, label, platform,
			       vehicle_timestamp_utc, updated_at
			FROM vehicle_positions WHERE trip_id = ?`, tripID)
		var p store.VehiclePosition
		var status, ts, upd string
		if err := row.Scan(&p.VehicleID, &p.TripID, &p.Lat, &p.Lon, &status, &p.StopID,
			&p.Label, &p.Platform, &ts, &upd); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.VehiclePositionsByTrip", err)
		}
		p.Status = store.VehicleStatus(status)
		p.Timestamp, _ = time.Parse(time.RFC3339, ts)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, upd)
		out[tripID] = p
	}
	return out, nil
}

func (s *Store) TripUpdatesByTrip(ctx context.Context, tripIDs []string) (map[string]store.TripUpdate, error) {
	out := make(map[string]store.TripUpdate)
	for _, tripID := range tripIDs {
		row := s.conn.QueryRowContext(ctx, `
			SELECT trip_id, delay_secs, vehicle_id, wheelchair, timestamp_utc, updated_at
			FROM trip_updates WHERE trip_id = ?`, tripID)
		var u store.TripUpdate
		var ts, upd string
		if err := row.Scan(&u.TripID, &u.DelaySecs, &u.VehicleID, &u.Wheelchair, &ts, &upd); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.TripUpdatesByTrip", err)
		}
		u.Timestamp, _ = time.Parse(time.RFC3339, ts)
		u.UpdatedAt, _ = time.Parse(time.RFC3339, upd)

		rows, err := s.conn.QueryContext(ctx, `
			SELECT trip_id, stop_id, arrival_delay, arrival_time_utc, departure_delay,
			       departure_time_utc, platform, occupancy_percent, headsign
			FROM stop_time_updates WHERE trip_id = ?`, tripID)
		if err != nil {
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.TripUpdatesByTrip.children", err)
		}
		for rows.Next() {
			var stu store.StopTimeUpdate
			var arrT, depT sql.NullString
			if err := rows.Scan(&stu.TripID, &stu.StopID, &stu.ArrivalDelay, &arrT,
				&stu.DepartureDelay, &depT, &stu.Platform, &stu.OccupancyPercent, &stu.Headsign); err != nil {
				rows.Close()
				return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.TripUpdatesByTrip.children.scan", err)
			}
			if arrT.Valid {
				t, _ := time.Parse(time.RFC3339, arrT.String)
				stu.ArrivalTime = &t
			}
			if depT.Valid {
				t, _ := time.Parse(time.RFC3339, depT.String)
				stu.DepartureTime = &t
			}
			u.StopTimeUpdates = append(u.StopTimeUpdates, stu)
		}
		rows.Close()
		out[tripID] = u
	}
	return out, nil
}

func (s *Store) ActiveAlerts(ctx context.Context, now time.Time) ([]store.Alert, error) {
	nowStr := now.UTC().Format(time.RFC3339)
	rows, err := s.conn.QueryContext(ctx, `
		SELECT alert_id, cause, effect, header, description, url, active_period_start, active_period_end,
		       COALESCE(source, ''), COALESCE(ai_severity, ''), COALESCE(ai_status, ''),
		       COALESCE(ai_summary, ''), COALESCE(ai_affected_segments, '')
		FROM alerts
		WHERE (active_period_start IS NULL OR active_period_start <= ?)
		  AND (active_period_end IS NULL OR active_period_end >= ?)`, nowStr, nowStr)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.ActiveAlerts", err)
	}
	defer rows.Close()

	var out []store.Alert
	for rows.Next() {
		var a store.Alert
		var start, end sql.NullString
		var segments string
		if err := rows.Scan(&a.AlertID, &a.Cause, &a.Effect, &a.Header, &a.Description, &a.URL, &start, &end,
			&a.Source, &a.AISeverity, &a.AIStatus, &a.AISummary, &segments); err != nil {
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.ActiveAlerts.scan", err)
		}
		if start.Valid {
			t, _ := time.Parse(time.RFC3339, start.String)
			a.ActivePeriodStart = &t
		}
		if end.Valid {
			t, _ := time.Parse(time.RFC3339, end.String)
			a.ActivePeriodEnd = &t
		}
		a.AIAffectedSegments = splitSegments(segments)
		out = append(out, a)
	}
	return out, rows.Err()
}

// joinSegments/splitSegments encode the AI-classifier's affected-segments
// list as a single delimited column; no pack repo carries a Postgres/SQLite
// array abstraction usable from both backends, so a plain delimiter is used
// instead of a real array type.
func joinSegments(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "|"
		}
		out += s
	}
	return out
}

func splitSegments(joined string) []string {
	if joined == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(joined); i++ {
		if joined[i] == '|' {
			out = append(out, joined[start:i])
			start = i + 1
		}
	}
	out = append(out, joined[start:])
	return out
}

// PurgeStaleTripUpdates implements §3's 2h retention window, keyed on
// updated_at (write time) rather than timestamp_utc (feed time) so a trip
// re-observed with a stale feed timestamp isn't purged out from under
// itself. It also deletes the now-orphaned stop_time_updates children,
// since the schema carries no FK/ON DELETE CASCADE for that relationship.
func (s *Store) PurgeStaleTripUpdates(ctx context.Context, olderThan time.Time) (int, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "devstore.PurgeStaleTripUpdates.begin", err)
	}
	defer tx.Rollback()

	cutoff := olderThan.UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx, `DELETE FROM trip_updates WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "devstore.PurgeStaleTripUpdates", err)
	}
	n, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM stop_time_updates
		WHERE trip_id NOT IN (SELECT trip_id FROM trip_updates)
	`); err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "devstore.PurgeStaleTripUpdates.delete_orphans", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "devstore.PurgeStaleTripUpdates.commit", err)
	}
	return int(n), nil
}

// PurgeExpiredAlerts implements both §4.F eviction rules: alerts whose
// active period has fully elapsed, and alerts with no active_period_end at
// all that have gone stale (no feed update in 12h) and are not manually
// pinned (source = 'manual').
func (s *Store) PurgeExpiredAlerts(ctx context.Context, now time.Time) (int, error) {
	nowStr := now.UTC().Format(time.RFC3339)
	staleCutoff := now.Add(-12 * time.Hour).UTC().Format(time.RFC3339)
	res, err := s.conn.ExecContext(ctx, `
		DELETE FROM alerts WHERE
			(active_period_end IS NOT NULL AND active_period_end < ?)
			OR (active_period_end IS NULL AND COALESCE(updated_at, ?) < ? AND COALESCE(source, '') <> 'manual')
	`, nowStr, nowStr, staleCutoff)
	if err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "devstore.PurgeExpiredAlerts", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) RecordPlatformObservation(ctx context.Context, obs gtfs.PlatformHistory) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO platform_history (stop_id, route_short_name, headsign, platform,
			count, observation_date, last_seen)
		VALUES (?, ?, ?, ?, 1, ?, datetime('now'))
		ON CONFLICT (stop_id, route_short_name, headsign, platform, observation_date)
		DO UPDATE SET count = count + 1, last_seen = datetime('now')
	`, obs.StopID, obs.RouteShortName, obs.Headsign, obs.Platform, obs.ObservationDate)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "devstore.RecordPlatformObservation", err)
	}
	return nil
}

func (s *Store) PlatformHistoryFor(ctx context.Context, stopID, routeShortName, headsign string) ([]gtfs.PlatformHistory, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT stop_id, route_short_name, headsign, platform, count, observation_date, last_seen
		FROM platform_history
		WHERE stop_id = ? AND route_short_name = ? AND headsign = ?
		ORDER BY count DESC`, stopID, routeShortName, headsign)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.PlatformHistoryFor", err)
	}
	defer rows.Close()
	var out []gtfs.PlatformHistory
	for rows.Next() {
		var h gtfs.PlatformHistory
		if err := rows.Scan(&h.StopID, &h.RouteShortName, &h.Headsign, &h.Platform, &h.Count, &h.ObservationDate, &h.LastSeen); err != nil {
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.PlatformHistoryFor.scan", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) PurgePlatformHistoryBefore(ctx context.Context, cutoffDate string) (int, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM platform_history WHERE observation_date < ?`, cutoffDate)
	if err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "devstore.PurgePlatformHistoryBefore", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// BulkBackfillPlatforms is the sqlite analogue of the pgstore join-UPDATE;
// SQLite's UPDATE...FROM is recent enough in modernc's driver that we do the
// join in Go instead, matching the teacher's preference for explicit
// application-level loops over exotic SQL in the sqlite path.
func (s *Store) BulkBackfillPlatforms(ctx context.Context, stopID, routeShortName, headsign, platform string) (int, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT stu.rowid FROM stop_time_updates stu
		JOIN trip_updates tu ON stu.trip_id = tu.trip_id
		JOIN trips t ON t.trip_id = tu.trip_id
		JOIN routes r ON r.route_id = t.route_id
		WHERE stu.stop_id = ? AND r.route_short_name = ?
		  AND COALESCE(NULLIF(stu.headsign, ''), t.trip_headsign) = ?
		  AND (stu.platform IS NULL OR stu.platform = '')`, stopID, routeShortName, headsign)
	if err != nil {
		return 0, apperr.New(apperr.KindPersistenceFailure, "devstore.BulkBackfillPlatforms.select", err)
	}
	var rowids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, apperr.New(apperr.KindPersistenceFailure, "devstore.BulkBackfillPlatforms.scan", err)
		}
		rowids = append(rowids, id)
	}
	rows.Close()

	for _, id := range rowids {
		if _, err := s.conn.ExecContext(ctx, `UPDATE stop_time_updates SET platform = ? WHERE rowid = ?`, platform, id); err != nil {
			return 0, apperr.New(apperr.KindPersistenceFailure, "devstore.BulkBackfillPlatforms.update", err)
		}
	}
	return len(rowids), nil
}
