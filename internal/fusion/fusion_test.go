package fusion

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/iss"
	"github.com/mini-rodalies-3d/transit/internal/store"
	"github.com/mini-rodalies-3d/transit/internal/store/devstore"
)

func newTestEngine(t *testing.T, snap *store.StaticSnapshot) (*Engine, *devstore.Store) {
	t.Helper()
	dstore, err := devstore.Open(filepath.Join(t.TempDir(), "fusion_test.db"))
	if err != nil {
		t.Fatalf("devstore.Open: %v", err)
	}
	t.Cleanup(func() { dstore.Close() })

	if err := dstore.ReplaceStaticSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("ReplaceStaticSnapshot: %v", err)
	}

	store := iss.New(dstore)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("iss.Load: %v", err)
	}

	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return &Engine{ISS: store, Store: dstore, Location: loc}, dstore
}

// baseSnapshot is a single R1-style route with one trip calling at two
// stops, valid on weekdays, with no end date restriction.
func baseSnapshot() *store.StaticSnapshot {
	return &store.StaticSnapshot{
		Shapes: map[string][]gtfs.ShapePoint{},
		Stops: []gtfs.Stop{
			{ID: "STOP_A", Name: "Barcelona Sants", Lat: 41.0, Lon: 2.0},
			{ID: "STOP_B", Name: "Girona", Lat: 41.9, Lon: 2.8},
		},
		Routes: []gtfs.Route{
			{ID: "R1", ShortName: "R1", LongName: "Barcelona - Girona", Type: 2},
		},
		Trips: []gtfs.Trip{
			{ID: "T1", RouteID: "R1", ServiceID: "WEEKDAY", Headsign: "GIRONA", DirectionID: 0},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "T1", StopSequence: 1, StopID: "STOP_A", ArrivalTime: "08:00:00", DepartureTime: "08:00:00"},
			{TripID: "T1", StopSequence: 2, StopID: "STOP_B", ArrivalTime: "09:00:00", DepartureTime: "09:00:00"},
		},
		Calendars: []gtfs.Calendar{
			{ServiceID: "WEEKDAY", Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true,
				StartDate: "20200101", EndDate: "20301231"},
		},
	}
}

func seedSeconds(snap *store.StaticSnapshot) {
	// The ISS/devstore pipeline expects ArrivalSeconds/DepartureSeconds
	// pre-computed, matching how the real GTFS loader populates them.
	for i := range snap.StopTimes {
		st := &snap.StopTimes[i]
		st.ArrivalSeconds = parseHMS(st.ArrivalTime)
		st.DepartureSeconds = parseHMS(st.DepartureTime)
	}
}

func parseHMS(s string) int {
	sec, ok := parseGTFSTime(s)
	if !ok {
		return 0
	}
	return sec
}

func TestGetDepartures_ScheduledOnly(t *testing.T) {
	snap := baseSnapshot()
	seedSeconds(snap)
	engine, _ := newTestEngine(t, snap)

	loc, _ := time.LoadLocation("Europe/Madrid")
	// A Tuesday, 07:30 local: before the 08:00 departure.
	now := time.Date(2026, 3, 17, 7, 30, 0, 0, loc)

	departures, err := engine.GetDepartures(context.Background(), "STOP_A", "", 10, now)
	if err != nil {
		t.Fatalf("GetDepartures: %v", err)
	}
	if len(departures) != 1 {
		t.Fatalf("GetDepartures() = %d entries, want 1: %+v", len(departures), departures)
	}
	d := departures[0]
	if d.TripID != "T1" || d.RouteID != "R1" {
		t.Errorf("unexpected departure: %+v", d)
	}
	if d.Headsign != "Girona" {
		t.Errorf("Headsign = %q, want Title-Cased Girona", d.Headsign)
	}
	if d.ScheduledDepartureSeconds != 8*3600 {
		t.Errorf("ScheduledDepartureSeconds = %d, want 28800", d.ScheduledDepartureSeconds)
	}
}

func TestGetDepartures_ExcludesTerminusStop(t *testing.T) {
	snap := baseSnapshot()
	seedSeconds(snap)
	engine, _ := newTestEngine(t, snap)

	loc, _ := time.LoadLocation("Europe/Madrid")
	now := time.Date(2026, 3, 17, 7, 30, 0, 0, loc)

	// STOP_B is the trip's terminus: it should never appear as a departure.
	departures, err := engine.GetDepartures(context.Background(), "STOP_B", "", 10, now)
	if err != nil {
		t.Fatalf("GetDepartures: %v", err)
	}
	if len(departures) != 0 {
		t.Fatalf("terminus stop should yield no departures, got %+v", departures)
	}
}

func TestGetDepartures_InactiveServiceExcluded(t *testing.T) {
	snap := baseSnapshot()
	snap.Calendars[0] = gtfs.Calendar{
		ServiceID: "WEEKDAY", Saturday: true, Sunday: true,
		StartDate: "20200101", EndDate: "20301231",
	}
	seedSeconds(snap)
	engine, _ := newTestEngine(t, snap)

	loc, _ := time.LoadLocation("Europe/Madrid")
	// Tuesday: WEEKDAY service (now Sat/Sun only) is not active.
	now := time.Date(2026, 3, 17, 7, 30, 0, 0, loc)

	departures, err := engine.GetDepartures(context.Background(), "STOP_A", "", 10, now)
	if err != nil {
		t.Fatalf("GetDepartures: %v", err)
	}
	if len(departures) != 0 {
		t.Fatalf("expected no departures for an inactive service, got %+v", departures)
	}
}

func TestGetDepartures_RealtimeDelayEnrichment(t *testing.T) {
	snap := baseSnapshot()
	seedSeconds(snap)
	engine, dstore := newTestEngine(t, snap)

	ctx := context.Background()
	snapshotID, err := dstore.CreateSnapshot(ctx, time.Now())
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	delay := 180
	err = dstore.UpsertTripUpdates(ctx, snapshotID, []store.TripUpdate{
		{
			TripID:    "T1",
			DelaySecs: delay,
			Timestamp: time.Now(),
			StopTimeUpdates: []store.StopTimeUpdate{
				{TripID: "T1", StopID: "STOP_A", DepartureDelay: &delay},
			},
		},
	})
	if err != nil {
		t.Fatalf("UpsertTripUpdates: %v", err)
	}

	loc, _ := time.LoadLocation("Europe/Madrid")
	now := time.Date(2026, 3, 17, 7, 30, 0, 0, loc)

	departures, err := engine.GetDepartures(ctx, "STOP_A", "", 10, now)
	if err != nil {
		t.Fatalf("GetDepartures: %v", err)
	}
	if len(departures) != 1 {
		t.Fatalf("GetDepartures() = %d entries, want 1", len(departures))
	}
	d := departures[0]
	if d.DelaySecs == nil || *d.DelaySecs != delay {
		t.Fatalf("DelaySecs = %v, want %d", d.DelaySecs, delay)
	}
	if d.RealtimeDepartureSeconds == nil || *d.RealtimeDepartureSeconds != 8*3600+delay {
		t.Fatalf("RealtimeDepartureSeconds = %v, want %d", d.RealtimeDepartureSeconds, 8*3600+delay)
	}
	if !d.IsDelayed {
		t.Error("a 180s delay is above the 60s threshold and should mark IsDelayed")
	}
}

func TestGetDepartures_UnknownStop(t *testing.T) {
	snap := baseSnapshot()
	seedSeconds(snap)
	engine, _ := newTestEngine(t, snap)

	_, err := engine.GetDepartures(context.Background(), "NOPE", "", 10, time.Now())
	if err == nil {
		t.Fatal("expected an error for an unknown stop ID")
	}
}

func TestGetDepartures_FrequencyFallbackForMetroStop(t *testing.T) {
	snap := &store.StaticSnapshot{
		Shapes: map[string][]gtfs.ShapePoint{},
		Stops: []gtfs.Stop{
			{ID: "METRO_L1_1", Name: "Catalunya", Lat: 41.38, Lon: 2.17},
			{ID: "METRO_L1_2", Name: "Universitat", Lat: 41.38, Lon: 2.16},
		},
		Routes: []gtfs.Route{
			{ID: "METRO_L1", ShortName: "L1", LongName: "Línia 1", Type: 1},
		},
		RouteFrequencies: []gtfs.RouteFrequency{
			{RouteID: "METRO_L1", DayType: gtfs.DayWeekday, StartTime: "05:00:00", EndTime: "24:00:00", HeadwaySecs: 240},
		},
		RouteStopSequences: []gtfs.RouteStopSequence{
			{RouteID: "METRO_L1", DirectionID: 0, StopID: "METRO_L1_1", Sequence: 1},
			{RouteID: "METRO_L1", DirectionID: 0, StopID: "METRO_L1_2", Sequence: 2},
		},
	}
	engine, _ := newTestEngine(t, snap)

	loc, _ := time.LoadLocation("Europe/Madrid")
	now := time.Date(2026, 3, 17, 9, 0, 0, 0, loc)

	departures, err := engine.GetDepartures(context.Background(), "METRO_L1_1", "", 10, now)
	if err != nil {
		t.Fatalf("GetDepartures: %v", err)
	}
	if len(departures) == 0 {
		t.Fatal("expected frequency-synthesized departures for a stop_times-less Metro route")
	}
	for _, d := range departures {
		if !d.IsFrequencyBased {
			t.Errorf("departure %+v should be marked IsFrequencyBased", d)
		}
		if d.RouteID != "METRO_L1" {
			t.Errorf("unexpected route in frequency fallback: %+v", d)
		}
	}
}

func TestGetDepartures_RouteFilter(t *testing.T) {
	snap := baseSnapshot()
	snap.Routes = append(snap.Routes, gtfs.Route{ID: "R2", ShortName: "R2", LongName: "Other", Type: 2})
	snap.Trips = append(snap.Trips, gtfs.Trip{ID: "T2", RouteID: "R2", ServiceID: "WEEKDAY", Headsign: "GIRONA", DirectionID: 0})
	snap.StopTimes = append(snap.StopTimes,
		gtfs.StopTime{TripID: "T2", StopSequence: 1, StopID: "STOP_A", ArrivalTime: "08:10:00", DepartureTime: "08:10:00"},
		gtfs.StopTime{TripID: "T2", StopSequence: 2, StopID: "STOP_B", ArrivalTime: "09:10:00", DepartureTime: "09:10:00"},
	)
	seedSeconds(snap)
	engine, _ := newTestEngine(t, snap)

	loc, _ := time.LoadLocation("Europe/Madrid")
	now := time.Date(2026, 3, 17, 7, 30, 0, 0, loc)

	departures, err := engine.GetDepartures(context.Background(), "STOP_A", "R2", 10, now)
	if err != nil {
		t.Fatalf("GetDepartures: %v", err)
	}
	if len(departures) != 1 || departures[0].RouteID != "R2" {
		t.Fatalf("GetDepartures() with routeFilter=R2 = %+v, want only R2's departure", departures)
	}
}
