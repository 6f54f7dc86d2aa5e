package raptor

import "testing"

func TestDominates(t *testing.T) {
	a := Journey{ArrivalSeconds: 100, Transfers: 1, TotalWalkingSeconds: 50}
	b := Journey{ArrivalSeconds: 200, Transfers: 1, TotalWalkingSeconds: 50}
	if !dominates(a, b) {
		t.Fatal("earlier arrival with equal everything else should dominate")
	}
	if dominates(b, a) {
		t.Fatal("later arrival should not dominate an earlier one")
	}

	// Neither dominates: c arrives earlier, d has fewer transfers.
	c := Journey{ArrivalSeconds: 100, Transfers: 2, TotalWalkingSeconds: 50}
	d := Journey{ArrivalSeconds: 150, Transfers: 1, TotalWalkingSeconds: 50}
	if dominates(c, d) || dominates(d, c) {
		t.Fatal("incomparable journeys should not dominate each other")
	}

	// Identical on every criterion: neither strictly dominates.
	if dominates(a, a) {
		t.Fatal("a journey should not dominate an identical copy of itself")
	}
}

func TestParetoFilter_DropsDominated(t *testing.T) {
	fast := Journey{ArrivalSeconds: 100, Transfers: 2, Segments: []Segment{{Kind: "transit", TripID: "T1", From: StopRef{ID: "A"}, To: StopRef{ID: "B"}}}}
	slowFewerTransfers := Journey{ArrivalSeconds: 200, Transfers: 0, Segments: []Segment{{Kind: "transit", TripID: "T2", From: StopRef{ID: "A"}, To: StopRef{ID: "B"}}}}
	dominated := Journey{ArrivalSeconds: 300, Transfers: 2, Segments: []Segment{{Kind: "transit", TripID: "T3", From: StopRef{ID: "A"}, To: StopRef{ID: "B"}}}}

	kept := paretoFilter([]Journey{fast, slowFewerTransfers, dominated}, 8)
	if len(kept) != 2 {
		t.Fatalf("paretoFilter() kept %d journeys, want 2: %+v", len(kept), kept)
	}
	if kept[0].ArrivalSeconds != 100 {
		t.Errorf("first kept journey should be the earliest arrival, got %+v", kept[0])
	}
}

func TestParetoFilter_Dedupes(t *testing.T) {
	j := Journey{ArrivalSeconds: 100, Segments: []Segment{{Kind: "transit", TripID: "T1", From: StopRef{ID: "A"}, To: StopRef{ID: "B"}}}}
	dup := Journey{ArrivalSeconds: 100, Segments: []Segment{{Kind: "transit", TripID: "T1", From: StopRef{ID: "A"}, To: StopRef{ID: "B"}}}}

	kept := paretoFilter([]Journey{j, dup}, 8)
	if len(kept) != 1 {
		t.Fatalf("paretoFilter() kept %d journeys for an identical segment chain, want 1", len(kept))
	}
}

func TestParetoFilter_CapsAtLimit(t *testing.T) {
	// Arrival ascends while transfers descends, so every pair trades off
	// and none dominates another — all 5 survive the Pareto pass itself,
	// leaving only the limit to cut the result down.
	var journeys []Journey
	for i := 0; i < 5; i++ {
		journeys = append(journeys, Journey{
			ArrivalSeconds: 100 + i,
			Transfers:      4 - i,
			Segments:       []Segment{{Kind: "transit", TripID: stopRefID(i), From: StopRef{ID: "A"}, To: StopRef{ID: "B"}}},
		})
	}
	kept := paretoFilter(journeys, 2)
	if len(kept) != 2 {
		t.Fatalf("paretoFilter() with limit=2 kept %d, want 2", len(kept))
	}
	if kept[0].ArrivalSeconds != 100 {
		t.Errorf("kept[0].ArrivalSeconds = %d, want the earliest arrival 100", kept[0].ArrivalSeconds)
	}
}

func stopRefID(i int) string {
	return string(rune('A' + i))
}
