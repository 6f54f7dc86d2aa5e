// Package holidays implements the Spanish national + Madrid-regional
// holiday calendar used by the day-type determination step of the DFE
// (§4.H step 2, §6 holiday table).
package holidays

import "time"

// fixedNational is month/day pairs observed nationwide every year.
var fixedNational = [][2]int{
	{1, 1},   // New Year
	{1, 6},   // Epiphany
	{5, 1},   // Labour Day
	{8, 15},  // Assumption
	{10, 12}, // National Day
	{11, 1},  // All Saints
	{12, 6},  // Constitution Day
	{12, 8},  // Immaculate Conception
	{12, 25}, // Christmas
}

// fixedMadrid is month/day pairs observed in the Madrid region on top of
// the national calendar.
var fixedMadrid = [][2]int{
	{5, 2},  // Community of Madrid Day
	{5, 15}, // San Isidro
	{11, 9}, // Almudena
}

// IsHoliday reports whether date (in local wall-clock terms, time component
// ignored) is a Spanish national or Madrid-regional holiday, including the
// Easter-relative Maundy Thursday and Good Friday.
func IsHoliday(date time.Time) bool {
	month, day := int(date.Month()), date.Day()
	for _, md := range fixedNational {
		if md[0] == month && md[1] == day {
			return true
		}
	}
	for _, md := range fixedMadrid {
		if md[0] == month && md[1] == day {
			return true
		}
	}
	thursday, friday := easterRelative(date.Year())
	return sameDate(date, thursday) || sameDate(date, friday)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// easterRelative returns Maundy Thursday and Good Friday for year, computed
// from Easter Sunday via the Anonymous Gregorian algorithm (a.k.a.
// Meeus/Jones/Butcher).
func easterRelative(year int) (maundyThursday, goodFriday time.Time) {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	easterSunday := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	goodFriday = easterSunday.AddDate(0, 0, -2)
	maundyThursday = easterSunday.AddDate(0, 0, -3)
	return maundyThursday, goodFriday
}
