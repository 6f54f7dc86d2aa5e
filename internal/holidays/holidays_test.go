package holidays

import (
	"testing"
	"time"
)

func TestIsHoliday(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Madrid")
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"new year", time.Date(2026, 1, 1, 10, 0, 0, 0, loc), true},
		{"constitution day", time.Date(2026, 12, 6, 0, 0, 0, 0, loc), true},
		{"ordinary tuesday", time.Date(2026, 3, 17, 0, 0, 0, 0, loc), false},
		{"madrid regional san isidro", time.Date(2026, 5, 15, 0, 0, 0, 0, loc), true},
		// Easter Sunday 2026 is April 5; Maundy Thursday is April 2, Good Friday April 3.
		{"maundy thursday 2026", time.Date(2026, 4, 2, 0, 0, 0, 0, loc), true},
		{"good friday 2026", time.Date(2026, 4, 3, 0, 0, 0, 0, loc), true},
		{"easter sunday itself is not in the fixed/relative set", time.Date(2026, 4, 5, 0, 0, 0, 0, loc), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHoliday(tt.date); got != tt.want {
				t.Errorf("IsHoliday(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}
