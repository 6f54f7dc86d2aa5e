package raptor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/iss"
	"github.com/mini-rodalies-3d/transit/internal/store"
	"github.com/mini-rodalies-3d/transit/internal/store/devstore"
)

func newTestPlanner(t *testing.T, snap *store.StaticSnapshot) *Planner {
	t.Helper()
	dstore, err := devstore.Open(filepath.Join(t.TempDir(), "raptor_test.db"))
	if err != nil {
		t.Fatalf("devstore.Open: %v", err)
	}
	t.Cleanup(func() { dstore.Close() })

	if err := dstore.ReplaceStaticSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("ReplaceStaticSnapshot: %v", err)
	}

	s := iss.New(dstore)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("iss.Load: %v", err)
	}

	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return &Planner{ISS: s, Store: dstore, Location: loc}
}

func seedStopTimeSeconds(snap *store.StaticSnapshot) {
	for i := range snap.StopTimes {
		st := &snap.StopTimes[i]
		st.ArrivalSeconds, _ = parseHMSForTest(st.ArrivalTime)
		st.DepartureSeconds, _ = parseHMSForTest(st.DepartureTime)
	}
}

// parseHMSForTest reimplements the tiny "HH:MM:SS"->seconds conversion the
// real GTFS loader applies, since it lives unexported in the gtfs package.
func parseHMSForTest(s string) (int, bool) {
	if len(s) != 8 {
		return 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	sec := int(s[6]-'0')*10 + int(s[7]-'0')
	return h*3600 + m*60 + sec, true
}

// directSnapshot is one route R1, two stops, one trip: STOP_A (08:00) ->
// STOP_B (08:30).
func directSnapshot() *store.StaticSnapshot {
	return &store.StaticSnapshot{
		Shapes: map[string][]gtfs.ShapePoint{},
		Stops: []gtfs.Stop{
			{ID: "STOP_A", Name: "Sants", Lat: 41.0, Lon: 2.0},
			{ID: "STOP_B", Name: "Girona", Lat: 41.9, Lon: 2.8},
		},
		Routes: []gtfs.Route{
			{ID: "R1", ShortName: "R1", LongName: "Sants - Girona", Type: 2},
		},
		Trips: []gtfs.Trip{
			{ID: "T1", RouteID: "R1", ServiceID: "WEEKDAY", Headsign: "GIRONA", DirectionID: 0},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "T1", StopSequence: 1, StopID: "STOP_A", ArrivalTime: "08:00:00", DepartureTime: "08:00:00"},
			{TripID: "T1", StopSequence: 2, StopID: "STOP_B", ArrivalTime: "08:30:00", DepartureTime: "08:30:00"},
		},
		Calendars: []gtfs.Calendar{
			{ServiceID: "WEEKDAY", Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true,
				StartDate: "20200101", EndDate: "20301231"},
		},
	}
}

func madridNow(t *testing.T, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	// 2026-03-17 is a Tuesday.
	return time.Date(2026, 3, 17, hh, mm, 0, 0, loc)
}

func TestPlanJourney_DirectNoTransfer(t *testing.T) {
	snap := directSnapshot()
	seedStopTimeSeconds(snap)
	p := newTestPlanner(t, snap)

	result, err := p.PlanJourney(context.Background(), "STOP_A", "STOP_B", madridNow(t, 7, 30), 3, 3)
	if err != nil {
		t.Fatalf("PlanJourney: %v", err)
	}
	if !result.Success || len(result.Journeys) == 0 {
		t.Fatalf("PlanJourney() = %+v, want a successful direct journey", result)
	}
	j := result.Journeys[0]
	if j.Transfers != 0 {
		t.Errorf("Transfers = %d, want 0 for a single-trip ride", j.Transfers)
	}
	if len(j.Segments) != 1 || j.Segments[0].Kind != "transit" {
		t.Fatalf("Segments = %+v, want one transit segment", j.Segments)
	}
	if j.Segments[0].TripID != "T1" {
		t.Errorf("TripID = %q, want T1", j.Segments[0].TripID)
	}
	if j.ArrivalSeconds != 8*3600+30*60 {
		t.Errorf("ArrivalSeconds = %d, want 08:30:00", j.ArrivalSeconds)
	}
}

func TestPlanJourney_OriginEqualsDestination(t *testing.T) {
	snap := directSnapshot()
	seedStopTimeSeconds(snap)
	p := newTestPlanner(t, snap)

	result, err := p.PlanJourney(context.Background(), "STOP_A", "STOP_A", madridNow(t, 7, 30), 3, 3)
	if err != nil {
		t.Fatalf("PlanJourney: %v", err)
	}
	if !result.Success || len(result.Journeys) != 1 {
		t.Fatalf("PlanJourney() = %+v, want one zero-length journey", result)
	}
	j := result.Journeys[0]
	if len(j.Segments) != 0 {
		t.Errorf("a zero-length journey should have no segments, got %+v", j.Segments)
	}
	if j.ArrivalSeconds != j.DepartureSeconds {
		t.Errorf("ArrivalSeconds (%d) should equal DepartureSeconds (%d) for the same stop", j.ArrivalSeconds, j.DepartureSeconds)
	}
}

func TestPlanJourney_UnknownStop(t *testing.T) {
	snap := directSnapshot()
	seedStopTimeSeconds(snap)
	p := newTestPlanner(t, snap)

	_, err := p.PlanJourney(context.Background(), "NOPE", "STOP_B", madridNow(t, 7, 30), 3, 3)
	if err == nil {
		t.Fatal("expected an error for an unknown origin stop")
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("error kind = %v, want KindNotFound", err)
	}
}

func TestPlanJourney_NoRouteFound(t *testing.T) {
	snap := directSnapshot()
	// Add an unreachable island stop with no trips or transfers touching it.
	snap.Stops = append(snap.Stops, gtfs.Stop{ID: "ISLAND", Name: "Isolated", Lat: 0, Lon: 0})
	seedStopTimeSeconds(snap)
	p := newTestPlanner(t, snap)

	result, err := p.PlanJourney(context.Background(), "STOP_A", "ISLAND", madridNow(t, 7, 30), 3, 3)
	if err != nil {
		t.Fatalf("PlanJourney: %v", err)
	}
	if result.Success {
		t.Fatalf("PlanJourney() = %+v, want Success=false for an unreachable destination", result)
	}
	if result.Message == "" {
		t.Error("expected a non-empty failure message")
	}
}

// TestPlanJourney_OneTransferOneWalk models the spec's worked example: a
// destination reachable only via one rail transfer and one walking
// transfer, producing transfers=1, two transit segments, and a walking
// segment whose duration equals the transfer's configured walk time.
func TestPlanJourney_OneTransferOneWalk(t *testing.T) {
	snap := &store.StaticSnapshot{
		Shapes: map[string][]gtfs.ShapePoint{},
		Stops: []gtfs.Stop{
			{ID: "METRO_BILBAO_7", Name: "Bilbao (L7)", Lat: 41.40, Lon: 2.18},
			{ID: "METRO_GLORIES_7", Name: "Glòries (L7)", Lat: 41.40, Lon: 2.19},
			{ID: "METRO_GLORIES_1", Name: "Glòries (L1)", Lat: 41.40, Lon: 2.19},
			{ID: "METRO_ARC_1", Name: "Arc de Triomf (L1)", Lat: 41.39, Lon: 2.18},
		},
		Routes: []gtfs.Route{
			{ID: "METRO_L7", ShortName: "L7", LongName: "Línia 7", Type: 1},
			{ID: "METRO_L1", ShortName: "L1", LongName: "Línia 1", Type: 1},
		},
		Trips: []gtfs.Trip{
			{ID: "L7_T1", RouteID: "METRO_L7", ServiceID: "WEEKDAY", Headsign: "GLORIES", DirectionID: 0},
			{ID: "L1_T1", RouteID: "METRO_L1", ServiceID: "WEEKDAY", Headsign: "ARC", DirectionID: 0},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "L7_T1", StopSequence: 1, StopID: "METRO_BILBAO_7", ArrivalTime: "09:00:00", DepartureTime: "09:00:00"},
			{TripID: "L7_T1", StopSequence: 2, StopID: "METRO_GLORIES_7", ArrivalTime: "09:05:00", DepartureTime: "09:05:00"},
			{TripID: "L1_T1", StopSequence: 1, StopID: "METRO_GLORIES_1", ArrivalTime: "09:10:00", DepartureTime: "09:10:00"},
			{TripID: "L1_T1", StopSequence: 2, StopID: "METRO_ARC_1", ArrivalTime: "09:15:00", DepartureTime: "09:15:00"},
		},
		Calendars: []gtfs.Calendar{
			{ServiceID: "WEEKDAY", Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true,
				StartDate: "20200101", EndDate: "20301231"},
		},
		Transfers: []gtfs.Transfer{
			{FromStopID: "METRO_GLORIES_7", ToStopID: "METRO_GLORIES_1", WalkTimeS: 180},
		},
	}
	seedStopTimeSeconds(snap)
	p := newTestPlanner(t, snap)

	result, err := p.PlanJourney(context.Background(), "METRO_BILBAO_7", "METRO_ARC_1", madridNow(t, 8, 30), 3, 3)
	if err != nil {
		t.Fatalf("PlanJourney: %v", err)
	}
	if !result.Success || len(result.Journeys) == 0 {
		t.Fatalf("PlanJourney() = %+v, want a successful transfer journey", result)
	}
	j := result.Journeys[0]
	if j.Transfers != 1 {
		t.Fatalf("Transfers = %d, want 1", j.Transfers)
	}

	var transitSegs, walkSegs int
	var walkSeconds int
	for _, seg := range j.Segments {
		switch seg.Kind {
		case "transit":
			transitSegs++
		case "walk":
			walkSegs++
			walkSeconds = seg.WalkSeconds
		}
	}
	if transitSegs != 2 {
		t.Errorf("transit segments = %d, want 2: %+v", transitSegs, j.Segments)
	}
	if walkSegs != 1 {
		t.Errorf("walk segments = %d, want 1: %+v", walkSegs, j.Segments)
	}
	if walkSeconds != 180 {
		t.Errorf("walk segment duration = %ds, want 180s (the transfer's configured walk time)", walkSeconds)
	}
}
