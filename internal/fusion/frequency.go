package fusion

import (
	"fmt"

	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/ids"
	"github.com/mini-rodalies-3d/transit/internal/iss"
)

// maxSynthesizedPerDirection bounds how many frequency-based departures are
// generated per route/direction; the final sort+truncate (Step 9) trims to
// the caller's limit anyway, this just keeps the working set small.
const maxSynthesizedPerDirection = 6

// parseGTFSTime parses an "HH:MM:SS" string into seconds since local
// midnight; hours may exceed 24 for past-midnight service (§3).
func parseGTFSTime(s string) (int, bool) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return 0, false
	}
	return h*3600 + m*60 + sec, true
}

// activeFrequencyPeriod picks the currently-active RouteFrequency row for
// dayType, or failing that the next upcoming one, per §4.H Step 5.
func activeFrequencyPeriod(freqs []gtfs.RouteFrequency, dayType gtfs.DayType, nowSec int) (gtfs.RouteFrequency, bool) {
	var active, upcoming gtfs.RouteFrequency
	haveActive, haveUpcoming := false, false
	activeStart, upcomingStart := -1, -1

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
			end = 24 * 3600 // "00:00:00" means until midnight (§3)
		}
		if nowSec >= start && nowSec < end {
			if !haveActive || start > activeStart {
				active, haveActive, activeStart = f, true, start
			}
			continue
		}
		if start > nowSec && (!haveUpcoming || start < upcomingStart) {
			upcoming, haveUpcoming, upcomingStart = f, true, start
		}
	}
	if haveActive {
		return active, true
	}
	if haveUpcoming {
		return upcoming, true
	}
	return gtfs.RouteFrequency{}, false
}

// synthesizeDepartures returns up to maxSynthesizedPerDirection departure
// seconds at period.HeadwaySecs intervals, starting at or after nowSec, with
// a half-headway offset applied to direction 1 (§4.H Step 5).
func synthesizeDepartures(period gtfs.RouteFrequency, direction, nowSec int) []int {
	if period.HeadwaySecs <= 0 {
		return nil
	}
	start, ok := parseGTFSTime(period.StartTime)
	if !ok {
		return nil
	}
	// §8 scenario 2: the first synthesized departure is the next 60-second
	// boundary at or after the query clock (clamped to the period start for
	// an upcoming period), not a slot on the period's headway grid — it only
	// lands on that grid by coincidence.
	anchor := nowSec
	if anchor < start {
		anchor = start
	}
	first := ((anchor + 59) / 60) * 60
	if direction == 1 {
		first += period.HeadwaySecs / 2
	}

	out := make([]int, 0, maxSynthesizedPerDirection)
	for i := 0; i < maxSynthesizedPerDirection; i++ {
		out = append(out, first+i*period.HeadwaySecs)
	}
	return out
}

// directionPosition records whether a route-stop-sequence direction serves a
// given stop, and whether that stop is the terminus of the direction.
type directionPosition struct {
	isTerminus bool
}

func stopDirections(seqByDirection map[int][]iss.RouteStopSeqEntry, stopID string) map[int]directionPosition {
	out := make(map[int]directionPosition)
	for dir, entries := range seqByDirection {
		for i, e := range entries {
			if e.StopID == stopID {
				out[dir] = directionPosition{isTerminus: i == len(entries)-1}
				break
			}
		}
	}
	return out
}

// frequencyDepartures implements §4.H Step 5: synthesize departures for
// routes lacking stop_times, restricted to onlyRoutes when non-nil (the
// "supplement missing Metro routes" clause).
func (e *Engine) frequencyDepartures(resolvedStops []string, dayType gtfs.DayType, nowSec int, onlyRoutes map[string]bool) ([]Departure, error) {
	var out []Departure

	for _, stopID := range resolvedStops {
		routeIDs, err := e.ISS.GetRoutesAtStop(stopID)
		if err != nil {
			return nil, err
		}
		for _, routeID := range routeIDs {
			if onlyRoutes != nil && !onlyRoutes[routeID] {
				continue
			}
			freqs, err := e.ISS.GetRouteFrequencies(routeID)
			if err != nil {
				return nil, err
			}
			if len(freqs) == 0 {
				continue
			}
			route, err := e.ISS.GetRouteInfo(routeID)
			if err != nil {
				continue
			}
			period, ok := activeFrequencyPeriod(freqs, dayType, nowSec)
			if !ok {
				continue
			}
			seqByDirection, err := e.ISS.GetRouteStopSequence(routeID)
			if err != nil {
				return nil, err
			}

			directions := []int{0}
			if positions := stopDirections(seqByDirection, stopID); len(positions) > 0 {
				directions = directions[:0]
				for dir, pos := range positions {
					// "at terminus stops, only the outbound direction is reported"
					if pos.isTerminus && dir != 0 {
						continue
					}
					directions = append(directions, dir)
				}
			}

			for _, dir := range directions {
				headsign := ""
				if entries := seqByDirection[dir]; len(entries) > 0 {
					if last, err := e.ISS.GetStopInfo(entries[len(entries)-1].StopID); err == nil {
						headsign = titleCaseHeadsign(last.Name)
					}
				}
				for _, depSec := range synthesizeDepartures(period, dir, nowSec) {
					out = append(out, Departure{
						TripID:                    fmt.Sprintf("FREQ_%s_%d_%d", routeID, dir, depSec),
						RouteID:                   routeID,
						RouteShortName:            ids.ExtractRouteShortName(route.ShortName, headsign),
						Headsign:                  headsign,
						StopID:                    stopID,
						DirectionID:               dir,
						ScheduledDepartureSeconds: depSec,
						ScheduledArrivalSeconds:   depSec,
						IsFrequencyBased:          true,
					})
				}
			}
		}
	}
	return out, nil
}
