package fusion

import (
	"testing"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/gtfs"
)

func TestEffectiveDayType(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Madrid")
	tests := []struct {
		name string
		date time.Time
		want gtfs.DayType
	}{
		// March 17 2026 is an ordinary Tuesday (see holidays_test.go).
		{"ordinary tuesday", time.Date(2026, 3, 17, 8, 0, 0, 0, loc), gtfs.DayWeekday},
		{"friday", time.Date(2026, 3, 20, 8, 0, 0, 0, loc), gtfs.DayFriday},
		{"saturday", time.Date(2026, 3, 21, 8, 0, 0, 0, loc), gtfs.DaySaturday},
		{"sunday", time.Date(2026, 3, 22, 8, 0, 0, 0, loc), gtfs.DaySunday},
		{"holiday itself forces sunday schedule", time.Date(2026, 1, 1, 8, 0, 0, 0, loc), gtfs.DaySunday},
		// Dec 7 2026 is a Monday; Dec 8 (Immaculate Conception) is a holiday,
		// so Dec 7 runs the víspera de festivo (Friday) schedule.
		{"weekday before a holiday runs friday schedule", time.Date(2026, 12, 7, 20, 0, 0, 0, loc), gtfs.DayFriday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveDayType(tt.date); got != tt.want {
				t.Errorf("EffectiveDayType(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}
