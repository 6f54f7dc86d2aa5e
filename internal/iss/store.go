package iss

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// Store is the ISS singleton: an atomically-swapped pointer to the current
// Snapshot, with a reload lock serializing concurrent rebuilds. Readers
// never block on a reload — they either see the old snapshot to completion
// or, once the swap completes, the new one.
type Store struct {
	reader store.StaticReader

	current    atomic.Pointer[Snapshot]
	reloadMu   sync.Mutex
}

// New builds a Store bound to reader; call Load before serving any query.
func New(reader store.StaticReader) *Store {
	return &Store{reader: reader}
}

// Load performs the first build. Subsequent reloads use Reload.
func (s *Store) Load(ctx context.Context) error {
	return s.Reload(ctx)
}

// Reload builds a new snapshot in isolation and swaps the atomic pointer in
// one step (§4.D "Atomic reload"). Concurrent Reload calls are serialized by
// reloadMu; concurrent readers are never blocked by it.
func (s *Store) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	raw, err := s.reader.LoadStaticSnapshot(ctx)
	if err != nil {
		return apperr.New(apperr.KindPersistenceFailure, "iss.Reload", err)
	}
	snap := buildSnapshot(raw)
	snap.loadedAtUnixNano = time.Now().UnixNano()
	s.current.Store(snap)
	log.Printf("ISS: reload complete (%d stops, %d routes, %d trips) in %s",
		len(snap.stopsInfo), len(snap.routesInfo), len(snap.tripsInfo), time.Since(start))
	return nil
}

// Loaded reports whether Load/Reload has completed at least once, for the
// readiness probe (§5 "Health readiness").
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// snapshot returns the current snapshot, or NotLoaded if Load/Reload has
// never completed. Every query operation goes through this first.
func (s *Store) snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, apperr.New(apperr.KindNotLoaded, "iss.snapshot", nil)
	}
	return snap, nil
}

func (s *Store) GetStopInfo(stopID string) (StopInfo, error) {
	snap, err := s.snapshot()
	if err != nil {
		return StopInfo{}, err
	}
	info, ok := snap.stopsInfo[stopID]
	if !ok {
		return StopInfo{}, apperr.New(apperr.KindNotFound, "iss.GetStopInfo", nil)
	}
	return info, nil
}

func (s *Store) GetRouteInfo(routeID string) (RouteInfo, error) {
	snap, err := s.snapshot()
	if err != nil {
		return RouteInfo{}, err
	}
	info, ok := snap.routesInfo[routeID]
	if !ok {
		return RouteInfo{}, apperr.New(apperr.KindNotFound, "iss.GetRouteInfo", nil)
	}
	return info, nil
}

func (s *Store) GetTripInfo(tripID string) (TripInfo, error) {
	snap, err := s.snapshot()
	if err != nil {
		return TripInfo{}, err
	}
	info, ok := snap.tripsInfo[tripID]
	if !ok {
		return TripInfo{}, apperr.New(apperr.KindNotFound, "iss.GetTripInfo", nil)
	}
	return info, nil
}

func (s *Store) GetStopTimes(tripID string) ([]StopTimeEntry, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.stopTimesByTrip[tripID], nil
}

// GetStopDepartures returns stopTimesByStop[stopID] entries whose departure
// second is >= minDepartureSec, ascending, via a single binary search into
// the pre-sorted slice (§4.H Step 3).
func (s *Store) GetStopDepartures(stopID string, minDepartureSec int) ([]StopDepartureEntry, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	entries := snap.stopTimesByStop[stopID]
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].DepartureSeconds >= minDepartureSec })
	return entries[idx:], nil
}

func (s *Store) GetTripsByRoute(routeID string) ([]RouteTripEntry, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.tripsByRoute[routeID], nil
}

func (s *Store) GetRoutesAtStop(stopID string) ([]string, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	set := snap.routesByStop[stopID]
	out := make([]string, 0, len(set))
	for routeID := range set {
		out = append(out, routeID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetTransfers(stopID string) ([]TransferEntry, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.transfers[stopID], nil
}

func (s *Store) GetRouteFrequencies(routeID string) ([]gtfs.RouteFrequency, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.routeFrequencies[routeID], nil
}

// GetChildStops returns the direct parent-station children of parentID,
// used by the DFE/MCJP station-to-platform resolution rule (§4.H Step 1).
func (s *Store) GetChildStops(parentID string) ([]string, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.childrenByParent[parentID], nil
}

// GetStopsByPrefix returns every stop ID carrying the given prefix, in
// ascending order. Stop IDs are sorted once at snapshot-build time, so a
// prefix lookup is a binary search to the range start plus a linear scan of
// the matching contiguous block — not a full table scan.
func (s *Store) GetStopsByPrefix(prefix string) ([]string, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	ids := snap.sortedStopIDs
	start := sort.Search(len(ids), func(i int) bool { return ids[i] >= prefix })
	var out []string
	for i := start; i < len(ids) && strings.HasPrefix(ids[i], prefix); i++ {
		out = append(out, ids[i])
	}
	return out, nil
}

// GetRouteStopSequence returns the canonical ordered stop pattern for every
// direction of routeID, used by the DFE's frequency-based fallback (§4.H
// Step 5) to discover direction and terminus stops for routes with no
// explicit stop_times.
func (s *Store) GetRouteStopSequence(routeID string) (map[int][]RouteStopSeqEntry, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.routeStopSequences[routeID], nil
}

// GetShapePoints returns the ordered polyline points for shapeID, used by the
// MCJP's journey reconstruction to attach ride geometry to a transit segment.
func (s *Store) GetShapePoints(shapeID string) ([]gtfs.ShapePoint, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.shapes[shapeID], nil
}

// GetAllRoutes returns every route, ordered by ID, for the routes listing
// endpoint (§6).
func (s *Store) GetAllRoutes() ([]RouteInfo, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]RouteInfo, 0, len(snap.sortedRouteIDs))
	for _, id := range snap.sortedRouteIDs {
		out = append(out, snap.routesInfo[id])
	}
	return out, nil
}

// GetAllStops returns every stop, ordered by ID, for the stops listing
// endpoint (§6).
func (s *Store) GetAllStops() ([]StopInfo, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]StopInfo, 0, len(snap.sortedStopIDs))
	for _, id := range snap.sortedStopIDs {
		out = append(out, snap.stopsInfo[id])
	}
	return out, nil
}

// GetNetworks returns every network (the agency-equivalent grouping, §3
// Network type), ordered by code, for the agencies/networks endpoints (§6).
func (s *Store) GetNetworks() ([]gtfs.Network, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]gtfs.Network, 0, len(snap.sortedNetworkCodes))
	for _, code := range snap.sortedNetworkCodes {
		out = append(out, snap.networksInfo[code])
	}
	return out, nil
}

// GetNetworkInfo looks up a single network by code.
func (s *Store) GetNetworkInfo(networkCode string) (gtfs.Network, error) {
	snap, err := s.snapshot()
	if err != nil {
		return gtfs.Network{}, err
	}
	n, ok := snap.networksInfo[networkCode]
	if !ok {
		return gtfs.Network{}, apperr.New(apperr.KindNotFound, "iss.GetNetworkInfo", nil)
	}
	return n, nil
}

// GetNetworkRoutes returns every route belonging to networkCode ("network
// lines", §6), ordered by ID.
func (s *Store) GetNetworkRoutes(networkCode string) ([]RouteInfo, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	var out []RouteInfo
	for _, id := range snap.sortedRouteIDs {
		if info := snap.routesInfo[id]; info.NetworkID == networkCode {
			out = append(out, info)
		}
	}
	return out, nil
}

func (s *Store) GetPlatforms(stopID string) ([]gtfs.Platform, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.platforms[stopID], nil
}

// GetActiveServices implements §4.D's getActiveServices: weekday set, union
// added exceptions for the date, subtract removed exceptions, and bound
// every service by its calendar validity window.
func (s *Store) GetActiveServices(date time.Time) (map[string]struct{}, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	weekday := int(date.Weekday())
	dateStr := date.Format("20060102")

	active := make(map[string]struct{})
	for serviceID := range snap.servicesByWeekday[weekday] {
		if withinValidity(snap, serviceID, dateStr) {
			active[serviceID] = struct{}{}
		}
	}
	if exc, ok := snap.calendarExceptions[dateStr]; ok {
		for serviceID := range exc.Added {
			active[serviceID] = struct{}{}
		}
		for serviceID := range exc.Removed {
			delete(active, serviceID)
		}
	}
	return active, nil
}

func withinValidity(snap *Snapshot, serviceID, dateStr string) bool {
	window, ok := snap.calendarValidity[serviceID]
	if !ok {
		return true
	}
	start, end := window[0], window[1]
	if start != "" && dateStr < start {
		return false
	}
	if end != "" && dateStr > end {
		return false
	}
	return true
}

// GetEarliestTrip implements §4.D's getEarliestTrip: linear scan of
// tripsByRoute[route_id] (already sorted by first_departure_sec, then
// trip_id) from the first entry with first_departure >= minDepartureSec,
// returning the first whose service is active.
func (s *Store) GetEarliestTrip(routeID string, minDepartureSec int, activeServices map[string]struct{}) (string, bool, error) {
	snap, err := s.snapshot()
	if err != nil {
		return "", false, err
	}
	entries := snap.tripsByRoute[routeID]
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].FirstDepartureSec >= minDepartureSec })
	for i := idx; i < len(entries); i++ {
		trip := snap.tripsInfo[entries[i].TripID]
		if _, active := activeServices[trip.ServiceID]; active {
			return entries[i].TripID, true, nil
		}
	}
	return "", false, nil
}
