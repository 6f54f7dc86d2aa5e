package fusion

import "sort"

// dedupMinGapSecs is the §4.H Step 8 minimum spacing enforced between
// static-only departures sharing (route_short_name, headsign).
const dedupMinGapSecs = 90

// dedupe implements §4.H Step 8: real-time-backed departures are never
// deduplicated; among static-only departures, consecutive entries (sorted
// by scheduled departure) sharing (route_short_name, headsign) within
// dedupMinGapSecs are collapsed to the earlier one.
func dedupe(departures []Departure) []Departure {
	var rtBacked, staticOnly []Departure
	for _, d := range departures {
		if d.RealtimeDepartureSeconds != nil {
			rtBacked = append(rtBacked, d)
		} else {
			staticOnly = append(staticOnly, d)
		}
	}

	sort.SliceStable(staticOnly, func(i, j int) bool {
		return staticOnly[i].ScheduledDepartureSeconds < staticOnly[j].ScheduledDepartureSeconds
	})

	lastSeen := make(map[string]int)
	kept := staticOnly[:0:0]
	for _, d := range staticOnly {
		key := d.RouteShortName + "\x00" + d.Headsign
		if last, ok := lastSeen[key]; ok && d.ScheduledDepartureSeconds-last < dedupMinGapSecs {
			continue
		}
		lastSeen[key] = d.ScheduledDepartureSeconds
		kept = append(kept, d)
	}

	return append(rtBacked, kept...)
}

// sortAndTruncate implements §4.H Step 9.
func sortAndTruncate(departures []Departure, limit int) []Departure {
	sort.SliceStable(departures, func(i, j int) bool {
		return sortKey(departures[i]) < sortKey(departures[j])
	})
	if len(departures) > limit {
		departures = departures[:limit]
	}
	return departures
}

func sortKey(d Departure) float64 {
	if d.RealtimeMinutesUntil != nil {
		return *d.RealtimeMinutesUntil
	}
	return d.MinutesUntil
}
