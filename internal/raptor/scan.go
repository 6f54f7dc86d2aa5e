package raptor

import (
	"github.com/mini-rodalies-3d/transit/internal/iss"
)

// routeStopOrder approximates a route's canonical stop pattern so step 1 can
// rank marked stops by position along the route. It samples the route's
// trips (the ISS has no separate "pattern" table) and keeps the longest
// stop_times sequence found; for a stop_times-less route it falls back to
// the extension table used by the DFE's frequency fallback. A route whose
// trips genuinely vary in stop pattern (e.g. express vs all-stops) may rank
// imperfectly here — this only affects which marked stop step 1 starts
// scanning from, never the correctness of an arrival once a trip is chosen.
func (p *Planner) routeStopOrder(routeID string) ([]string, error) {
	trips, err := p.ISS.GetTripsByRoute(routeID)
	if err != nil {
		return nil, err
	}
	var longest []string
	for _, t := range trips {
		stopTimes, err := p.ISS.GetStopTimes(t.TripID)
		if err != nil {
			return nil, err
		}
		if len(stopTimes) > len(longest) {
			longest = make([]string, len(stopTimes))
			for i, st := range stopTimes {
				longest[i] = st.StopID
			}
		}
	}
	if len(longest) > 0 {
		return longest, nil
	}

	seqByDirection, err := p.ISS.GetRouteStopSequence(routeID)
	if err != nil {
		return nil, err
	}
	for _, entries := range seqByDirection {
		if len(entries) > len(longest) {
			longest = make([]string, len(entries))
			for i, e := range entries {
				longest[i] = e.StopID
			}
		}
	}
	return longest, nil
}

func stopPosition(order []string, stopID string) (int, bool) {
	for i, s := range order {
		if s == stopID {
			return i, true
		}
	}
	return 0, false
}

// scanRoutes implements §4.I steps 1-2: find every route serving a marked
// stop, board the earliest marked stop along it, and relax downstream
// arrivals, with the "catch an earlier trip" re-boarding check at each
// downstream stop.
func (p *Planner) scanRoutes(k int, marked map[string]bool, touched []map[string]label, bestArrival map[string]int, destSet map[string]bool, bestDestArrival **int, activeServices map[string]struct{}) (map[string]bool, error) {
	routesServed := make(map[string]bool)
	for stop := range marked {
		routeIDs, err := p.ISS.GetRoutesAtStop(stop)
		if err != nil {
			return nil, err
		}
		for _, r := range routeIDs {
			routesServed[r] = true
		}
	}

	newlyMarked := make(map[string]bool)

	for routeID := range routesServed {
		order, err := p.routeStopOrder(routeID)
		if err != nil || len(order) == 0 {
			continue
		}

		boardStop, _, ok := earliestMarkedStop(order, marked)
		if !ok {
			continue
		}
		boardLabel, ok := touched[k-1][boardStop]
		if !ok {
			continue
		}

		tripID, found, err := p.ISS.GetEarliestTrip(routeID, boardLabel.arrival, activeServices)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		if err := p.rideAndRelax(k, routeID, tripID, boardStop, touched, bestArrival, destSet, bestDestArrival, activeServices, newlyMarked); err != nil {
			return nil, err
		}
	}

	return newlyMarked, nil
}

// earliestMarkedStop returns the marked stop with the lowest position in
// order, i.e. the first opportunity to board this round.
func earliestMarkedStop(order []string, marked map[string]bool) (stop string, pos int, ok bool) {
	best := -1
	for i, s := range order {
		if !marked[s] {
			continue
		}
		if best == -1 || i < best {
			best, stop, ok = i, s, true
		}
	}
	return stop, best, ok
}

// rideAndRelax scans downstream from boardStop along tripID, relabeling
// stops whose arrival improves, and re-boards an earlier trip at any
// downstream stop that already has a better round-(k-1) label than the
// current ride offers (the "catch an earlier trip" optimization).
func (p *Planner) rideAndRelax(k int, routeID, tripID, boardStop string, touched []map[string]label, bestArrival map[string]int, destSet map[string]bool, bestDestArrival **int, activeServices map[string]struct{}, newlyMarked map[string]bool) error {
	stopTimes, err := p.ISS.GetStopTimes(tripID)
	if err != nil {
		return err
	}
	idx, ok := stopPosition(stopTimeStopIDs(stopTimes), boardStop)
	if !ok {
		return nil
	}

	currentTrip := tripID
	currentStopTimes := stopTimes
	currentIdx := idx
	currentBoardStop := boardStop

	for currentIdx+1 < len(currentStopTimes) {
		currentIdx++
		entry := currentStopTimes[currentIdx]
		q := entry.StopID

		bound, hasBound := bestArrival[q]
		pruneBound := *bestDestArrival
		improves := (!hasBound || entry.ArrivalSeconds < bound) &&
			(pruneBound == nil || entry.ArrivalSeconds < *pruneBound || destSet[q])

		if improves {
			touched[k][q] = label{
				arrival: entry.ArrivalSeconds,
				back: &backPointer{
					kind: "transit", prevStop: currentBoardStop, prevRound: k - 1,
					tripID: currentTrip,
				},
			}
			bestArrival[q] = entry.ArrivalSeconds
			newlyMarked[q] = true
		}

		// Catch-an-earlier-trip: if q already carries a better round-(k-1)
		// label than riding currentTrip got us here, try re-boarding from q.
		if prevLabel, ok := touched[k-1][q]; ok && prevLabel.arrival < entry.ArrivalSeconds {
			betterTripID, found, err := p.ISS.GetEarliestTrip(routeID, prevLabel.arrival, activeServices)
			if err != nil {
				return err
			}
			if found && betterTripID != currentTrip {
				betterStopTimes, err := p.ISS.GetStopTimes(betterTripID)
				if err != nil {
					return err
				}
				if newIdx, ok := stopPosition(stopTimeStopIDs(betterStopTimes), q); ok {
					currentTrip = betterTripID
					currentStopTimes = betterStopTimes
					currentIdx = newIdx
					currentBoardStop = q
				}
			}
		}
	}
	return nil
}

func stopTimeStopIDs(entries []iss.StopTimeEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.StopID
	}
	return out
}
