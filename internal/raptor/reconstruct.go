package raptor

import (
	"context"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/store"
)

// rawLeg is one hop recovered from the back-pointer chain, before it is
// turned into a caller-facing Segment.
type rawLeg struct {
	kind                string
	tripID              string
	fromStop, toStop    string
	boardSec, alightSec int
	walkSeconds         int
}

// walkBack reconstructs the ordered leg chain from origin to (round, stop)
// by following back pointers to their source label, which for a transit
// hop lives at round-1 and for a walk hop lives at the same round (§4.I
// journey reconstruction).
func walkBack(touched []map[string]label, round int, stop string) []rawLeg {
	var legs []rawLeg
	curRound, curStop := round, stop
	for {
		lbl, ok := touched[curRound][curStop]
		if !ok || lbl.back == nil {
			break
		}
		bp := lbl.back
		boardArrival := touched[bp.prevRound][bp.prevStop].arrival
		legs = append(legs, rawLeg{
			kind: bp.kind, tripID: bp.tripID,
			fromStop: bp.prevStop, toStop: curStop,
			boardSec: boardArrival, alightSec: lbl.arrival,
			walkSeconds: bp.walkSeconds,
		})
		curRound, curStop = bp.prevRound, bp.prevStop
	}
	for i, j := 0, len(legs)-1; i < j; i, j = i+1, j-1 {
		legs[i], legs[j] = legs[j], legs[i]
	}
	return legs
}

func (p *Planner) reconstructAll(ctx context.Context, candidates []candidate, touched []map[string]label) ([]Journey, error) {
	journeys := make([]Journey, 0, len(candidates))
	for _, c := range candidates {
		legs := walkBack(touched, c.round, c.stop)
		if len(legs) == 0 {
			continue
		}
		j, err := p.buildJourney(legs)
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}
	return journeys, nil
}

func (p *Planner) buildJourney(legs []rawLeg) (Journey, error) {
	j := Journey{
		DepartureSeconds: legs[0].boardSec,
		ArrivalSeconds:   legs[len(legs)-1].alightSec,
	}
	for _, leg := range legs {
		seg, err := p.buildSegment(leg)
		if err != nil {
			return Journey{}, err
		}
		j.Segments = append(j.Segments, seg)
		if seg.Kind == "transit" {
			j.Transfers++
		} else {
			j.TotalWalkingSeconds += seg.WalkSeconds
		}
	}
	if j.Transfers > 0 {
		j.Transfers--
	}
	return j, nil
}

func (p *Planner) buildSegment(leg rawLeg) (Segment, error) {
	fromInfo, err := p.ISS.GetStopInfo(leg.fromStop)
	if err != nil {
		return Segment{}, err
	}
	toInfo, err := p.ISS.GetStopInfo(leg.toStop)
	if err != nil {
		return Segment{}, err
	}

	seg := Segment{
		Kind:             leg.kind,
		From:             StopRef{ID: fromInfo.ID, Name: fromInfo.Name},
		To:               StopRef{ID: toInfo.ID, Name: toInfo.Name},
		DepartureSeconds: leg.boardSec,
		ArrivalSeconds:   leg.alightSec,
	}

	if leg.kind == "walk" {
		seg.WalkSeconds = leg.walkSeconds
		return seg, nil
	}

	trip, err := p.ISS.GetTripInfo(leg.tripID)
	if err != nil {
		return Segment{}, err
	}
	route, err := p.ISS.GetRouteInfo(trip.RouteID)
	if err != nil {
		return Segment{}, err
	}
	seg.RouteID = trip.RouteID
	seg.RouteShortName = routeShortName(route, trip.Headsign)
	seg.RouteColor = route.Color
	seg.Headsign = trip.Headsign
	seg.TripID = leg.tripID

	stopTimes, err := p.ISS.GetStopTimes(leg.tripID)
	if err != nil {
		return Segment{}, err
	}
	fromIdx, _ := stopPosition(stopTimeStopIDs(stopTimes), leg.fromStop)
	toIdx, _ := stopPosition(stopTimeStopIDs(stopTimes), leg.toStop)
	for i := fromIdx + 1; i < toIdx; i++ {
		st := stopTimes[i]
		info, err := p.ISS.GetStopInfo(st.StopID)
		if err != nil {
			continue
		}
		seg.IntermediateStops = append(seg.IntermediateStops, IntermediateStop{
			Stop:             StopRef{ID: info.ID, Name: info.Name},
			ArrivalSeconds:   st.ArrivalSeconds,
			DepartureSeconds: st.DepartureSeconds,
		})
	}

	if trip.ShapeID != "" {
		points, err := p.ISS.GetShapePoints(trip.ShapeID)
		if err == nil {
			seg.ShapePoints = points
		}
	}

	return seg, nil
}

// attachAlerts implements the §4.I alerts overlay: active alerts whose
// informed entities intersect any route/stop/trip used by the journey.
func (p *Planner) attachAlerts(ctx context.Context, journeys []Journey) error {
	if len(journeys) == 0 {
		return nil
	}
	active, err := p.Store.ActiveAlerts(ctx, time.Now())
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}

	for i := range journeys {
		routes, stops, trips := usedEntities(journeys[i])
		for _, alert := range active {
			if alertApplies(alert, routes, stops, trips) {
				journeys[i].Alerts = append(journeys[i].Alerts, alert)
			}
		}
	}
	return nil
}

func usedEntities(j Journey) (routes, stops, trips map[string]bool) {
	routes, stops, trips = make(map[string]bool), make(map[string]bool), make(map[string]bool)
	for _, seg := range j.Segments {
		stops[seg.From.ID] = true
		stops[seg.To.ID] = true
		if seg.Kind == "transit" {
			routes[seg.RouteID] = true
			trips[seg.TripID] = true
		}
	}
	return routes, stops, trips
}

func alertApplies(alert store.Alert, routes, stops, trips map[string]bool) bool {
	for _, e := range alert.InformedEntities {
		if e.RouteID != "" && routes[e.RouteID] {
			return true
		}
		if e.StopID != "" && stops[e.StopID] {
			return true
		}
		if e.TripID != "" && trips[e.TripID] {
			return true
		}
	}
	return false
}
