package fusion

import "github.com/mini-rodalies-3d/transit/internal/gtfs"

// liveRTPrefixes are the canonical route-ID prefixes for networks whose
// live feed already governs whether a service is running; operating-hours
// gating (§4.H Step 7) only applies outside this set.
var liveRTPrefixes = []string{"RENFE_", "TMB_METRO_", "FGC_", "EUSKOTREN_", "METRO_BILBAO_"}

func hasLiveRT(routeID string) bool {
	for _, prefix := range liveRTPrefixes {
		if hasPrefix(routeID, prefix) {
			return true
		}
	}
	return false
}

// operatingWindow computes [min_start, max_end] across a route's
// RouteFrequency rows for dayType, ignoring aggregate rows (start=0 AND
// end>=25h) per §4.H Step 7. The second return is false when no row yields a
// usable window, meaning the caller should assume the route is running.
func operatingWindow(freqs []gtfs.RouteFrequency, dayType gtfs.DayType) (minStart, maxEnd int, ok bool) {
	minStart, maxEnd = -1, -1
	for _, f := range freqs {
		if f.DayType != dayType {
			continue
		}
		start, ok1 := parseGTFSTime(f.StartTime)
		end, ok2 := parseGTFSTime(f.EndTime)
		if !ok1 || !ok2 {
			continue
		}
		if end == 0 {
			end = 24 * 3600
		}
		if start == 0 && end >= 25*3600 {
			continue // aggregate row, not a real operating bound
		}
		if minStart == -1 || start < minStart {
			minStart = start
		}
		if maxEnd == -1 || end > maxEnd {
			maxEnd = end
		}
	}
	if minStart == -1 {
		return 0, 0, false
	}
	return minStart, maxEnd, true
}

// OperatingWindow exposes operatingWindow for the route-operating-hours
// query endpoint (§6): the same [min_start, max_end] computation the
// departures pipeline uses internally for Step 7's gating.
func OperatingWindow(freqs []gtfs.RouteFrequency, dayType gtfs.DayType) (minStart, maxEnd int, ok bool) {
	return operatingWindow(freqs, dayType)
}

type cachedWindow struct {
	minStart, maxEnd int
	ok               bool
}

// gateOperatingHours implements §4.H Step 7.
func (e *Engine) gateOperatingHours(departures []Departure, dayType gtfs.DayType) []Departure {
	out := departures[:0:0]
	cache := make(map[string]cachedWindow)

	for _, d := range departures {
		if hasLiveRT(d.RouteID) {
			out = append(out, d)
			continue
		}
		w, cached := cache[d.RouteID]
		if !cached {
			freqs, err := e.ISS.GetRouteFrequencies(d.RouteID)
			if err != nil {
				out = append(out, d)
				continue
			}
			minStart, maxEnd, ok := operatingWindow(freqs, dayType)
			w = cachedWindow{minStart: minStart, maxEnd: maxEnd, ok: ok}
			cache[d.RouteID] = w
		}
		if !w.ok || (d.ScheduledDepartureSeconds >= w.minStart && d.ScheduledDepartureSeconds <= w.maxEnd) {
			out = append(out, d)
		}
	}
	return out
}
