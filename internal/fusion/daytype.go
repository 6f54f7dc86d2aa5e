package fusion

import (
	"time"

	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/holidays"
)

// EffectiveDayType implements §4.H Step 2's day-type determination rule.
func EffectiveDayType(now time.Time) gtfs.DayType {
	if holidays.IsHoliday(now) {
		return gtfs.DaySunday
	}
	switch now.Weekday() {
	case time.Sunday:
		return gtfs.DaySunday
	case time.Saturday:
		return gtfs.DaySaturday
	case time.Friday:
		return gtfs.DayFriday
	default:
		if holidays.IsHoliday(now.AddDate(0, 0, 1)) {
			return gtfs.DayFriday
		}
		return gtfs.DayWeekday
	}
}
