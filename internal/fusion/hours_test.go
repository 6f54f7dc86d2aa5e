package fusion

import (
	"testing"

	"github.com/mini-rodalies-3d/transit/internal/gtfs"
)

func TestOperatingWindow_IgnoresAggregateRows(t *testing.T) {
	freqs := []gtfs.RouteFrequency{
		{DayType: gtfs.DayWeekday, StartTime: "00:00:00", EndTime: "27:00:00", HeadwaySecs: 1200}, // aggregate: ignored
		{DayType: gtfs.DayWeekday, StartTime: "06:00:00", EndTime: "23:00:00", HeadwaySecs: 600},
	}
	minStart, maxEnd, ok := operatingWindow(freqs, gtfs.DayWeekday)
	if !ok || minStart != 6*3600 || maxEnd != 23*3600 {
		t.Fatalf("operatingWindow() = (%d, %d, %v), want (21600, 82800, true)", minStart, maxEnd, ok)
	}
}

func TestOperatingWindow_NoMatchingRows(t *testing.T) {
	freqs := []gtfs.RouteFrequency{
		{DayType: gtfs.DaySunday, StartTime: "07:00:00", EndTime: "23:00:00", HeadwaySecs: 900},
	}
	if _, _, ok := operatingWindow(freqs, gtfs.DayWeekday); ok {
		t.Error("expected no window when no row matches the requested day type")
	}
}

func TestOperatingWindow_EndOfZeroMeansMidnight(t *testing.T) {
	freqs := []gtfs.RouteFrequency{
		{DayType: gtfs.DayWeekday, StartTime: "05:00:00", EndTime: "00:00:00", HeadwaySecs: 600},
	}
	_, maxEnd, ok := operatingWindow(freqs, gtfs.DayWeekday)
	if !ok || maxEnd != 24*3600 {
		t.Fatalf("operatingWindow() maxEnd = %d, want 86400 (midnight)", maxEnd)
	}
}

func TestHasLiveRT(t *testing.T) {
	if !hasLiveRT("RENFE_C1") {
		t.Error("RENFE routes have a live feed and should skip operating-hours gating")
	}
	if hasLiveRT("METRO_L1") {
		t.Error("plain METRO_ prefix (Madrid) is not in the live-RT set")
	}
	if !hasLiveRT("TMB_METRO_L1") {
		t.Error("TMB_METRO_ routes have a live feed")
	}
}
