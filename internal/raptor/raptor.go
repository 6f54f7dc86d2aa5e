// Package raptor implements the Multi-Criteria Journey Planner (MCJP §4.I):
// a RAPTOR (Round-bAsed Public Transit Optimized Router) variant over the
// ISS, with bounded rounds, walking-transfer relaxation, and Pareto-optimal
// alternatives across (arrival time, transfer count, total walking time).
package raptor

import (
	"context"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
	"github.com/mini-rodalies-3d/transit/internal/fusion"
	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/ids"
	"github.com/mini-rodalies-3d/transit/internal/iss"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// defaultMaxTransfers and the bounds around it implement "K = maxTransfers +
// 1 (default K <= 4)".
const (
	defaultMaxTransfers = 3
	maxMaxTransfers     = 6
	defaultAlternatives = 3
	maxAlternativesCap  = 8
)

// StopRef names one stop in a journey leg.
type StopRef struct {
	ID   string
	Name string
}

// IntermediateStop is one stop a transit segment passes through without the
// rider boarding or alighting there.
type IntermediateStop struct {
	Stop             StopRef
	ArrivalSeconds   int
	DepartureSeconds int
}

// Segment is one leg of a Journey: either a transit ride or a walking
// transfer between two platforms.
type Segment struct {
	Kind string // "transit" or "walk"

	RouteID        string
	RouteShortName string
	RouteColor     string
	Headsign       string
	TripID         string

	From StopRef
	To   StopRef

	DepartureSeconds int
	ArrivalSeconds   int

	IntermediateStops []IntermediateStop
	ShapePoints       []gtfs.ShapePoint

	WalkSeconds int
}

// Journey is one Pareto-candidate itinerary from origin to destination.
type Journey struct {
	DepartureSeconds    int
	ArrivalSeconds      int
	Transfers           int
	TotalWalkingSeconds int
	Segments            []Segment
	Alerts              []store.Alert
}

// Result is the MCJP response for one planning request.
type Result struct {
	Success  bool
	Message  string
	Journeys []Journey
}

// Planner is the MCJP, bound to the ISS for schedule reads and the dynamic
// store for the alerts overlay.
type Planner struct {
	ISS      *iss.Store
	Store    store.DynamicStore
	Location *time.Location
}

func (p *Planner) location() *time.Location {
	if p.Location != nil {
		return p.Location
	}
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		return time.UTC
	}
	return loc
}

// label is one stop's best-known state at a given round.
type label struct {
	arrival int
	back    *backPointer
}

// backPointer records how a label was reached: a transit ride (prevStop is
// the boarding stop, read from round-1's label) or a walk (prevStop is read
// from the SAME round, since footpath relaxation runs after the round's
// route scan).
type backPointer struct {
	kind        string
	prevStop    string
	prevRound   int
	tripID      string
	walkSeconds int
}

// PlanJourney runs the bounded-round RAPTOR search from originStopID to
// destStopID, departing at or after departure, and returns up to
// maxAlternatives Pareto-optimal journeys over at most maxTransfers
// transfers.
func (p *Planner) PlanJourney(ctx context.Context, originStopID, destStopID string, departure time.Time, maxTransfers, maxAlternatives int) (*Result, error) {
	if maxTransfers <= 0 {
		maxTransfers = defaultMaxTransfers
	}
	if maxTransfers > maxMaxTransfers {
		maxTransfers = maxMaxTransfers
	}
	if maxAlternatives <= 0 {
		maxAlternatives = defaultAlternatives
	}
	if maxAlternatives > maxAlternativesCap {
		maxAlternatives = maxAlternativesCap
	}

	if _, err := p.ISS.GetStopInfo(originStopID); err != nil {
		return nil, err
	}
	if _, err := p.ISS.GetStopInfo(destStopID); err != nil {
		return nil, err
	}

	departure = departure.In(p.location())
	depSec := departure.Hour()*3600 + departure.Minute()*60 + departure.Second()

	if originStopID == destStopID {
		return &Result{Success: true, Journeys: []Journey{{DepartureSeconds: depSec, ArrivalSeconds: depSec}}}, nil
	}

	originStops, err := fusion.ResolveStops(p.ISS, originStopID)
	if err != nil {
		return nil, err
	}
	destStops, err := fusion.ResolveStops(p.ISS, destStopID)
	if err != nil {
		return nil, err
	}
	destSet := make(map[string]bool, len(destStops))
	for _, d := range destStops {
		destSet[d] = true
	}

	activeServices, err := p.ISS.GetActiveServices(departure)
	if err != nil {
		return nil, apperr.New(apperr.KindUnavailable, "raptor.PlanJourney", err)
	}

	K := maxTransfers + 1
	touched := make([]map[string]label, K+1)
	for i := range touched {
		touched[i] = make(map[string]label)
	}
	bestArrival := make(map[string]int)
	marked := make(map[string]bool, len(originStops))

	for _, o := range originStops {
		touched[0][o] = label{arrival: depSec}
		bestArrival[o] = depSec
		marked[o] = true
	}

	var bestDestArrival *int
	updateDestBound(destSet, touched[0], &bestDestArrival)

	for k := 1; k <= K && len(marked) > 0; k++ {
		transitMarked, err := p.scanRoutes(k, marked, touched, bestArrival, destSet, &bestDestArrival, activeServices)
		if err != nil {
			return nil, apperr.New(apperr.KindUnavailable, "raptor.PlanJourney", err)
		}
		updateDestBound(destSet, touched[k], &bestDestArrival)

		walkMarked, err := p.relaxTransfers(k, transitMarked, touched, bestArrival, destSet, &bestDestArrival)
		if err != nil {
			return nil, apperr.New(apperr.KindUnavailable, "raptor.PlanJourney", err)
		}
		updateDestBound(destSet, touched[k], &bestDestArrival)

		marked = make(map[string]bool, len(transitMarked)+len(walkMarked))
		for s := range transitMarked {
			marked[s] = true
		}
		for s := range walkMarked {
			marked[s] = true
		}
	}

	candidates := p.collectCandidates(touched, destSet)
	if len(candidates) == 0 {
		return &Result{Success: false, Message: "no route found within the transfer limit"}, nil
	}

	journeys, err := p.reconstructAll(ctx, candidates, touched)
	if err != nil {
		return nil, apperr.New(apperr.KindUnavailable, "raptor.PlanJourney", err)
	}

	journeys = paretoFilter(journeys, maxAlternatives)
	if err := p.attachAlerts(ctx, journeys); err != nil {
		return nil, apperr.New(apperr.KindUnavailable, "raptor.PlanJourney", err)
	}

	return &Result{Success: true, Journeys: journeys}, nil
}

// updateDestBound keeps bound set to the earliest arrival across destSet
// found so far in any touched round, the pruning term spec calls
// "τ_K*[destinations]".
func updateDestBound(destSet map[string]bool, round map[string]label, bound **int) {
	for stop := range destSet {
		lbl, ok := round[stop]
		if !ok {
			continue
		}
		if *bound == nil || lbl.arrival < **bound {
			v := lbl.arrival
			*bound = &v
		}
	}
}

// candidate is one (round, destination stop) pair whose label represents a
// genuinely new best arrival using at most that round's trip count.
type candidate struct {
	round int
	stop  string
}

func (p *Planner) collectCandidates(touched []map[string]label, destSet map[string]bool) []candidate {
	var out []candidate
	for k := 1; k < len(touched); k++ {
		for stop := range destSet {
			if _, ok := touched[k][stop]; ok {
				out = append(out, candidate{round: k, stop: stop})
			}
		}
	}
	return out
}

// routeShortName resolves the display short name for a trip's route,
// applying the same Madrid C4/C8 branch disambiguation the DFE uses.
func routeShortName(route iss.RouteInfo, headsign string) string {
	return ids.ExtractRouteShortName(route.ShortName, headsign)
}
