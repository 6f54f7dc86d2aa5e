package devstore

import (
	"context"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

func (s *Store) LoadStaticSnapshot(ctx context.Context) (*store.StaticSnapshot, error) {
	snap := &store.StaticSnapshot{Shapes: make(map[string][]gtfs.ShapePoint)}

	stopRows, err := s.conn.QueryContext(ctx,
		`SELECT stop_id, stop_name, stop_lat, stop_lon, location_type, parent_station, wheelchair_boarding FROM stops`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.stops", err)
	}
	for stopRows.Next() {
		var st gtfs.Stop
		if err := stopRows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon, &st.LocationType, &st.ParentStationID, &st.WheelchairBoarding); err != nil {
			stopRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.stops.scan", err)
		}
		snap.Stops = append(snap.Stops, st)
	}
	stopRows.Close()

	routeRows, err := s.conn.QueryContext(ctx,
		`SELECT route_id, route_short_name, route_long_name, route_type, route_color, route_text_color, network_id, is_circular FROM routes`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.routes", err)
	}
	for routeRows.Next() {
		var rt gtfs.Route
		if err := routeRows.Scan(&rt.ID, &rt.ShortName, &rt.LongName, &rt.Type, &rt.Color, &rt.TextColor, &rt.NetworkID, &rt.IsCircular); err != nil {
			routeRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.routes.scan", err)
		}
		snap.Routes = append(snap.Routes, rt)
	}
	routeRows.Close()

	netRows, err := s.conn.QueryContext(ctx, `SELECT network_id, name, region, transport_type, color, text_color FROM networks`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.networks", err)
	}
	for netRows.Next() {
		var n gtfs.Network
		if err := netRows.Scan(&n.Code, &n.Name, &n.Region, &n.TransportType, &n.Color, &n.TextColor); err != nil {
			netRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.networks.scan", err)
		}
		snap.Networks = append(snap.Networks, n)
	}
	netRows.Close()

	tripRows, err := s.conn.QueryContext(ctx, `SELECT trip_id, route_id, service_id, trip_headsign, direction_id, shape_id FROM trips`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.trips", err)
	}
	for tripRows.Next() {
		var t gtfs.Trip
		if err := tripRows.Scan(&t.ID, &t.RouteID, &t.ServiceID, &t.Headsign, &t.DirectionID, &t.ShapeID); err != nil {
			tripRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.trips.scan", err)
		}
		snap.Trips = append(snap.Trips, t)
	}
	tripRows.Close()

	stRows, err := s.conn.QueryContext(ctx, `SELECT trip_id, stop_sequence, stop_id, arrival_seconds, departure_seconds FROM stop_times ORDER BY trip_id, stop_sequence`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.stop_times", err)
	}
	for stRows.Next() {
		var st gtfs.StopTime
		if err := stRows.Scan(&st.TripID, &st.StopSequence, &st.StopID, &st.ArrivalSeconds, &st.DepartureSeconds); err != nil {
			stRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.stop_times.scan", err)
		}
		snap.StopTimes = append(snap.StopTimes, st)
	}
	stRows.Close()

	calRows, err := s.conn.QueryContext(ctx, `SELECT service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date FROM calendar`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.calendar", err)
	}
	for calRows.Next() {
		var c gtfs.Calendar
		if err := calRows.Scan(&c.ServiceID, &c.Monday, &c.Tuesday, &c.Wednesday, &c.Thursday, &c.Friday, &c.Saturday, &c.Sunday, &c.StartDate, &c.EndDate); err != nil {
			calRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.calendar.scan", err)
		}
		snap.Calendars = append(snap.Calendars, c)
	}
	calRows.Close()

	cdRows, err := s.conn.QueryContext(ctx, `SELECT service_id, date, exception_type FROM calendar_dates`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.calendar_dates", err)
	}
	for cdRows.Next() {
		var ce gtfs.CalendarException
		if err := cdRows.Scan(&ce.ServiceID, &ce.Date, &ce.ExceptionType); err != nil {
			cdRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.calendar_dates.scan", err)
		}
		snap.CalendarExceptions = append(snap.CalendarExceptions, ce)
	}
	cdRows.Close()

	rfRows, err := s.conn.QueryContext(ctx, `SELECT route_id, day_type, start_time, end_time, headway_secs FROM route_frequencies`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.route_frequencies", err)
	}
	for rfRows.Next() {
		var rf gtfs.RouteFrequency
		if err := rfRows.Scan(&rf.RouteID, &rf.DayType, &rf.StartTime, &rf.EndTime, &rf.HeadwaySecs); err != nil {
			rfRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.route_frequencies.scan", err)
		}
		snap.RouteFrequencies = append(snap.RouteFrequencies, rf)
	}
	rfRows.Close()

	shapeRows, err := s.conn.QueryContext(ctx, `SELECT shape_id, shape_pt_sequence, shape_pt_lat, shape_pt_lon, shape_dist_traveled FROM shapes ORDER BY shape_id, shape_pt_sequence`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.shapes", err)
	}
	for shapeRows.Next() {
		var p gtfs.ShapePoint
		if err := shapeRows.Scan(&p.ShapeID, &p.Sequence, &p.Lat, &p.Lon, &p.DistTraveled); err != nil {
			shapeRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.shapes.scan", err)
		}
		snap.Shapes[p.ShapeID] = append(snap.Shapes[p.ShapeID], p)
	}
	shapeRows.Close()

	trRows, err := s.conn.QueryContext(ctx, `SELECT from_stop_id, to_stop_id, min_transfer_time FROM transfers`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.transfers", err)
	}
	for trRows.Next() {
		var t gtfs.Transfer
		if err := trRows.Scan(&t.FromStopID, &t.ToStopID, &t.WalkTimeS); err != nil {
			trRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.transfers.scan", err)
		}
		snap.Transfers = append(snap.Transfers, t)
	}
	trRows.Close()

	rsRows, err := s.conn.QueryContext(ctx, `SELECT route_id, direction_id, stop_id, sequence FROM route_stop_sequences`)
	if err != nil {
		return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.route_stop_sequences", err)
	}
	for rsRows.Next() {
		var rs gtfs.RouteStopSequence
		if err := rsRows.Scan(&rs.RouteID, &rs.DirectionID, &rs.StopID, &rs.Sequence); err != nil {
			rsRows.Close()
			return nil, apperr.New(apperr.KindPersistenceFailure, "devstore.LoadStaticSnapshot.route_stop_sequences.scan", err)
		}
		snap.RouteStopSequences = append(snap.RouteStopSequences, rs)
	}
	rsRows.Close()

	return snap, nil
}

// ReplaceStaticSnapshot wipes and rewrites the static tables. Used by tests
// to seed a devstore fixture; no administrative importer ships in this repo
// (§1 Non-goals), but the write contract still needs one real
// implementation to be testable in isolation.
func (s *Store) ReplaceStaticSnapshot(ctx context.Context, snap *store.StaticSnapshot) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.begin", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"stops", "routes", "networks", "trips", "stop_times",
		"calendar", "calendar_dates", "route_frequencies", "shapes", "transfers", "route_stop_sequences"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.clear", err)
		}
	}

	for _, st := range snap.Stops {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon, location_type, parent_station, wheelchair_boarding) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			st.ID, st.Name, st.Lat, st.Lon, st.LocationType, st.ParentStationID, st.WheelchairBoarding); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.stops", err)
		}
	}
	for _, rt := range snap.Routes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO routes (route_id, route_short_name, route_long_name, route_type, route_color, route_text_color, network_id, is_circular) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rt.ID, rt.ShortName, rt.LongName, rt.Type, rt.Color, rt.TextColor, rt.NetworkID, rt.IsCircular); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.routes", err)
		}
	}
	for _, n := range snap.Networks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO networks (network_id, name, region, transport_type, color, text_color) VALUES (?, ?, ?, ?, ?, ?)`,
			n.Code, n.Name, n.Region, n.TransportType, n.Color, n.TextColor); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.networks", err)
		}
	}
	for _, t := range snap.Trips {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trips (trip_id, route_id, service_id, trip_headsign, direction_id, shape_id) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.RouteID, t.ServiceID, t.Headsign, t.DirectionID, t.ShapeID); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.trips", err)
		}
	}
	for _, st := range snap.StopTimes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stop_times (trip_id, stop_sequence, stop_id, arrival_seconds, departure_seconds) VALUES (?, ?, ?, ?, ?)`,
			st.TripID, st.StopSequence, st.StopID, st.ArrivalSeconds, st.DepartureSeconds); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.stop_times", err)
		}
	}
	for _, c := range snap.Calendars {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO calendar (service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ServiceID, c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday, c.Sunday, c.StartDate, c.EndDate); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.calendar", err)
		}
	}
	for _, ce := range snap.CalendarExceptions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO calendar_dates (service_id, date, exception_type) VALUES (?, ?, ?)`,
			ce.ServiceID, ce.Date, ce.ExceptionType); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.calendar_dates", err)
		}
	}
	for _, rf := range snap.RouteFrequencies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO route_frequencies (route_id, day_type, start_time, end_time, headway_secs) VALUES (?, ?, ?, ?, ?)`,
			rf.RouteID, rf.DayType, rf.StartTime, rf.EndTime, rf.HeadwaySecs); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.route_frequencies", err)
		}
	}
	for shapeID, pts := range snap.Shapes {
		for _, p := range pts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO shapes (shape_id, shape_pt_sequence, shape_pt_lat, shape_pt_lon, shape_dist_traveled) VALUES (?, ?, ?, ?, ?)`,
				shapeID, p.Sequence, p.Lat, p.Lon, p.DistTraveled); err != nil {
				return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.shapes", err)
			}
		}
	}
	for _, t := range snap.Transfers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transfers (from_stop_id, to_stop_id, min_transfer_time) VALUES (?, ?, ?)`,
			t.FromStopID, t.ToStopID, t.WalkTimeS); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.transfers", err)
		}
	}

	for _, rs := range snap.RouteStopSequences {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO route_stop_sequences (route_id, direction_id, stop_id, sequence) VALUES (?, ?, ?, ?)`,
			rs.RouteID, rs.DirectionID, rs.StopID, rs.Sequence); err != nil {
			return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.route_stop_sequences", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "devstore.ReplaceStaticSnapshot.commit", err)
	}
	return nil
}
