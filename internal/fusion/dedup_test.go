package fusion

import "testing"

func rt(delaySecs int) *int {
	return &delaySecs
}

func TestDedupe_CollapsesCloseStaticDepartures(t *testing.T) {
	in := []Departure{
		{RouteShortName: "R1", Headsign: "Girona", ScheduledDepartureSeconds: 1000},
		{RouteShortName: "R1", Headsign: "Girona", ScheduledDepartureSeconds: 1050}, // 50s later, within gap: dropped
		{RouteShortName: "R1", Headsign: "Girona", ScheduledDepartureSeconds: 1200}, // 200s after first: kept
	}
	out := dedupe(in)
	if len(out) != 2 {
		t.Fatalf("dedupe() = %d entries, want 2: %+v", len(out), out)
	}
	if out[0].ScheduledDepartureSeconds != 1000 || out[1].ScheduledDepartureSeconds != 1200 {
		t.Errorf("dedupe() kept wrong entries: %+v", out)
	}
}

func TestDedupe_NeverDropsRealtimeBacked(t *testing.T) {
	delay := 30
	in := []Departure{
		{RouteShortName: "R1", Headsign: "Girona", ScheduledDepartureSeconds: 1000, DelaySecs: &delay, RealtimeDepartureSeconds: rt(1030)},
		{RouteShortName: "R1", Headsign: "Girona", ScheduledDepartureSeconds: 1010, DelaySecs: &delay, RealtimeDepartureSeconds: rt(1040)},
	}
	out := dedupe(in)
	if len(out) != 2 {
		t.Fatalf("real-time-backed departures must never be deduplicated, got %d entries", len(out))
	}
}

func TestDedupe_DifferentHeadsignsNeverCollapse(t *testing.T) {
	in := []Departure{
		{RouteShortName: "R1", Headsign: "Girona", ScheduledDepartureSeconds: 1000},
		{RouteShortName: "R1", Headsign: "Maçanet", ScheduledDepartureSeconds: 1010},
	}
	out := dedupe(in)
	if len(out) != 2 {
		t.Fatalf("entries with different headsigns must not collapse, got %d entries", len(out))
	}
}

func TestSortAndTruncate(t *testing.T) {
	early, late := 1.0, 9.0
	in := []Departure{
		{MinutesUntil: 5},
		{MinutesUntil: 2, RealtimeMinutesUntil: &early},
		{MinutesUntil: 8, RealtimeMinutesUntil: &late},
	}
	out := sortAndTruncate(in, 2)
	if len(out) != 2 {
		t.Fatalf("sortAndTruncate(limit=2) = %d entries, want 2", len(out))
	}
	if out[0].RealtimeMinutesUntil == nil || *out[0].RealtimeMinutesUntil != 1.0 {
		t.Errorf("expected the real-time sort key to win ordering, got %+v", out[0])
	}
}
