package fusion

import (
	"testing"

	"github.com/mini-rodalies-3d/transit/internal/gtfs"
)

func TestParseGTFSTime(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"06:00:00", 6 * 3600, true},
		{"25:30:00", 25*3600 + 30*60, true},
		{"", 0, false},
		{"garbage", 0, false},
	}
	for _, c := range cases {
		got, ok := parseGTFSTime(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("parseGTFSTime(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestActiveFrequencyPeriod_PrefersActiveOverUpcoming(t *testing.T) {
	freqs := []gtfs.RouteFrequency{
		{RouteID: "L1", DayType: gtfs.DayWeekday, StartTime: "06:00:00", EndTime: "09:00:00", HeadwaySecs: 300},
		{RouteID: "L1", DayType: gtfs.DayWeekday, StartTime: "09:00:00", EndTime: "22:00:00", HeadwaySecs: 600},
		{RouteID: "L1", DayType: gtfs.DaySunday, StartTime: "07:00:00", EndTime: "23:00:00", HeadwaySecs: 900},
	}
	nowSec := 8 * 3600 // 08:00, inside the first weekday window
	got, ok := activeFrequencyPeriod(freqs, gtfs.DayWeekday, nowSec)
	if !ok || got.HeadwaySecs != 300 {
		t.Fatalf("activeFrequencyPeriod() = %+v, ok=%v, want the 06:00-09:00/300s window", got, ok)
	}
}

func TestActiveFrequencyPeriod_FallsBackToUpcoming(t *testing.T) {
	freqs := []gtfs.RouteFrequency{
		{RouteID: "L1", DayType: gtfs.DayWeekday, StartTime: "06:00:00", EndTime: "09:00:00", HeadwaySecs: 300},
		{RouteID: "L1", DayType: gtfs.DayWeekday, StartTime: "16:00:00", EndTime: "22:00:00", HeadwaySecs: 600},
	}
	nowSec := 12 * 3600 // between the two windows: no active one
	got, ok := activeFrequencyPeriod(freqs, gtfs.DayWeekday, nowSec)
	if !ok || got.HeadwaySecs != 600 {
		t.Fatalf("activeFrequencyPeriod() = %+v, ok=%v, want the upcoming 16:00 window", got, ok)
	}
}

func TestActiveFrequencyPeriod_NoneForDayType(t *testing.T) {
	freqs := []gtfs.RouteFrequency{
		{RouteID: "L1", DayType: gtfs.DaySunday, StartTime: "07:00:00", EndTime: "23:00:00", HeadwaySecs: 900},
	}
	if _, ok := activeFrequencyPeriod(freqs, gtfs.DayWeekday, 8*3600); ok {
		t.Error("expected no active/upcoming period when no row matches the requested day type")
	}
}

func TestSynthesizeDepartures_DirectionOffset(t *testing.T) {
	period := gtfs.RouteFrequency{StartTime: "06:00:00", EndTime: "22:00:00", HeadwaySecs: 600}

	dir0 := synthesizeDepartures(period, 0, 6*3600)
	if len(dir0) != maxSynthesizedPerDirection || dir0[0] != 6*3600 {
		t.Fatalf("direction 0 first departure = %+v, want starting at 06:00:00", dir0)
	}

	dir1 := synthesizeDepartures(period, 1, 6*3600)
	if dir1[0] != 6*3600+300 {
		t.Fatalf("direction 1 first departure = %d, want half-headway offset 06:05:00", dir1[0])
	}
}

func TestSynthesizeDepartures_AdvancesPastNow(t *testing.T) {
	period := gtfs.RouteFrequency{StartTime: "06:00:00", EndTime: "22:00:00", HeadwaySecs: 600}
	got := synthesizeDepartures(period, 0, 6*3600+601) // now = 06:10:01
	want := 6*3600 + 11*60 // next 60-second boundary >= now: 06:11:00
	if got[0] != want {
		t.Fatalf("first synthesized departure = %d, want the next 60s boundary %d (06:11:00)", got[0], want)
	}
	if got[1] != want+600 {
		t.Fatalf("second synthesized departure = %d, want %d (headway spacing from the anchor)", got[1], want+600)
	}
}

func TestSynthesizeDepartures_ZeroHeadwayIsEmpty(t *testing.T) {
	period := gtfs.RouteFrequency{StartTime: "06:00:00", EndTime: "22:00:00", HeadwaySecs: 0}
	if got := synthesizeDepartures(period, 0, 0); got != nil {
		t.Errorf("zero headway should yield no synthesized departures, got %+v", got)
	}
}
