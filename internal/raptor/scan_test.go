package raptor

import (
	"testing"

	"github.com/mini-rodalies-3d/transit/internal/iss"
)

func TestStopPosition(t *testing.T) {
	order := []string{"A", "B", "C"}
	if pos, ok := stopPosition(order, "B"); !ok || pos != 1 {
		t.Errorf("stopPosition(B) = (%d, %v), want (1, true)", pos, ok)
	}
	if _, ok := stopPosition(order, "Z"); ok {
		t.Error("stopPosition(Z) should report not found")
	}
}

func TestEarliestMarkedStop(t *testing.T) {
	order := []string{"A", "B", "C", "D"}
	marked := map[string]bool{"C": true, "B": true}
	stop, pos, ok := earliestMarkedStop(order, marked)
	if !ok || stop != "B" || pos != 1 {
		t.Fatalf("earliestMarkedStop() = (%q, %d, %v), want (B, 1, true)", stop, pos, ok)
	}
}

func TestEarliestMarkedStop_NoneMarked(t *testing.T) {
	order := []string{"A", "B"}
	if _, _, ok := earliestMarkedStop(order, map[string]bool{}); ok {
		t.Error("earliestMarkedStop() with nothing marked should report not found")
	}
}

func TestStopTimeStopIDs(t *testing.T) {
	entries := []iss.StopTimeEntry{{StopID: "A"}, {StopID: "B"}, {StopID: "C"}}
	got := stopTimeStopIDs(entries)
	want := []string{"A", "B", "C"}
	if len(got) != len(want) {
		t.Fatalf("stopTimeStopIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stopTimeStopIDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
