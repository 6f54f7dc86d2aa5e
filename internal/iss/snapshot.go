// Package iss is the In-Memory Schedule Store (§4.D): the static schedule
// held entirely in RAM with O(1) point lookups, behind an atomically-swapped
// snapshot pointer so readers never block on a reload.
package iss

import (
	"sort"

	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// StopInfo is the ISS's stopsInfo projection.
type StopInfo struct {
	ID              string
	Name            string
	Lat             float64
	Lon             float64
	LocationType    gtfs.LocationType
	ParentStationID string
}

// RouteInfo is the ISS's routesInfo projection.
type RouteInfo struct {
	ID         string
	ShortName  string
	LongName   string
	Color      string
	TextColor  string
	RouteType  int
	NetworkID  string
	IsCircular bool
}

// TripInfo is the ISS's tripsInfo projection.
type TripInfo struct {
	ID        string
	RouteID   string
	Headsign  string
	ServiceID string
	DirectionID int
	ShapeID   string
}

// StopTimeEntry is one ordered member of stopTimesByTrip[trip_id].
type StopTimeEntry struct {
	StopID           string
	StopSequence     int
	ArrivalSeconds   int
	DepartureSeconds int
}

// RouteTripEntry is one ordered member of tripsByRoute[route_id].
type RouteTripEntry struct {
	FirstDepartureSec int
	TripID            string
}

// StopDepartureEntry is one ordered member of stopTimesByStop[stop_id]: a
// single trip's passage through that stop, used by the DFE's scheduled-query
// step (§4.H Step 3) to list every departure at a stop without scanning
// every trip.
type StopDepartureEntry struct {
	TripID           string
	StopSequence     int
	IsTerminus       bool // true when this is the last stop_time row of the trip — it does not re-depart
	ArrivalSeconds   int
	DepartureSeconds int
}

// TransferEntry is one member of transfers[stop_id].
type TransferEntry struct {
	ToStopID   string
	WalkSeconds int
}

// RouteStopSeqEntry is one ordered member of routeStopSequences[route_id][direction_id].
type RouteStopSeqEntry struct {
	StopID   string
	Sequence int
}

// ExceptionSet is the add/remove pair for one calendar_dates.txt date.
type ExceptionSet struct {
	Added   map[string]struct{}
	Removed map[string]struct{}
}

// Snapshot is one immutable, fully-built static schedule. Once returned by
// build, nothing mutates it — a reload builds a brand new Snapshot and the
// Store swaps to it atomically.
type Snapshot struct {
	stopsInfo    map[string]StopInfo
	routesInfo   map[string]RouteInfo
	tripsInfo    map[string]TripInfo
	networksInfo map[string]gtfs.Network

	// sortedRouteIDs and sortedNetworkCodes give the "list everything"
	// endpoints (agencies, routes, networks) a stable, deterministic order
	// without re-sorting on every request.
	sortedRouteIDs     []string
	sortedNetworkCodes []string

	stopTimesByTrip map[string][]StopTimeEntry
	stopTimesByStop map[string][]StopDepartureEntry
	tripsByRoute    map[string][]RouteTripEntry
	routesByStop    map[string]map[string]struct{}

	// childrenByParent indexes stops by parent_station, for the DFE/MCJP
	// station-to-platform resolution rule (§4.H Step 1).
	childrenByParent map[string][]string
	// sortedStopIDs is stopsInfo's keys sorted ascending, enabling the
	// prefix-range lookups the same resolution rule needs (TMB/FGC suffix
	// heuristics) via sort.Search rather than a full scan.
	sortedStopIDs []string

	transfers map[string][]TransferEntry

	servicesByWeekday [7]map[string]struct{} // index 0=Sunday .. 6=Saturday, matching time.Weekday
	calendarExceptions map[string]ExceptionSet

	routeFrequencies map[string][]gtfs.RouteFrequency
	// routeStopSequences[route_id][direction_id] is the canonical ordered
	// stop pattern for that direction, sorted by sequence (§4.H Step 5).
	routeStopSequences map[string]map[int][]RouteStopSeqEntry
	shapes             map[string][]gtfs.ShapePoint

	platforms  map[string][]gtfs.Platform
	accesses   map[string][]gtfs.Access
	vestibules map[string][]gtfs.Vestibule

	// calendarValidity[service_id] = [start_date, end_date], both
	// "YYYYMMDD", used to bound getActiveServices per calendar row.
	calendarValidity map[string][2]string

	loadedAtUnixNano int64
}

// buildSnapshot constructs an immutable Snapshot from a StaticSnapshot read
// in one pass, per the §4.D load algorithm: stream the entities, intern
// nothing exotic (Go's string interning is handled by the runtime for
// identical literals; map keys here are the already-canonical IDs from the
// persistence layer), and build every inverse index in a single pass over
// stop_times.
func buildSnapshot(raw *store.StaticSnapshot) *Snapshot {
	s := &Snapshot{
		stopsInfo:          make(map[string]StopInfo, len(raw.Stops)),
		routesInfo:         make(map[string]RouteInfo, len(raw.Routes)),
		tripsInfo:          make(map[string]TripInfo, len(raw.Trips)),
		networksInfo:       make(map[string]gtfs.Network, len(raw.Networks)),
		stopTimesByTrip:    make(map[string][]StopTimeEntry),
		stopTimesByStop:    make(map[string][]StopDepartureEntry),
		tripsByRoute:       make(map[string][]RouteTripEntry),
		routesByStop:       make(map[string]map[string]struct{}),
		transfers:          make(map[string][]TransferEntry),
		calendarExceptions: make(map[string]ExceptionSet),
		routeFrequencies:   make(map[string][]gtfs.RouteFrequency),
		routeStopSequences: make(map[string]map[int][]RouteStopSeqEntry),
		shapes:             raw.Shapes,
		platforms:          make(map[string][]gtfs.Platform),
		accesses:           make(map[string][]gtfs.Access),
		vestibules:         make(map[string][]gtfs.Vestibule),
	}
	for i := range s.servicesByWeekday {
		s.servicesByWeekday[i] = make(map[string]struct{})
	}

	for _, st := range raw.Stops {
		s.stopsInfo[st.ID] = StopInfo{
			ID: st.ID, Name: st.Name, Lat: st.Lat, Lon: st.Lon,
			LocationType: gtfs.LocationType(st.LocationType), ParentStationID: st.ParentStationID,
		}
	}
	for _, rt := range raw.Routes {
		s.routesInfo[rt.ID] = RouteInfo{
			ID: rt.ID, ShortName: rt.ShortName, LongName: rt.LongName, Color: rt.Color, TextColor: rt.TextColor,
			RouteType: rt.Type, NetworkID: rt.NetworkID, IsCircular: rt.IsCircular,
		}
	}
	for _, t := range raw.Trips {
		s.tripsInfo[t.ID] = TripInfo{
			ID: t.ID, RouteID: t.RouteID, Headsign: t.Headsign, ServiceID: t.ServiceID,
			DirectionID: t.DirectionID, ShapeID: t.ShapeID,
		}
	}
	for _, n := range raw.Networks {
		s.networksInfo[n.Code] = n
	}

	// Single pass over stop_times builds stopTimesByTrip and routesByStop.
	for _, stt := range raw.StopTimes {
		s.stopTimesByTrip[stt.TripID] = append(s.stopTimesByTrip[stt.TripID], StopTimeEntry{
			StopID: stt.StopID, StopSequence: stt.StopSequence,
			ArrivalSeconds: stt.ArrivalSeconds, DepartureSeconds: stt.DepartureSeconds,
		})
		trip, ok := s.tripsInfo[stt.TripID]
		if !ok {
			continue
		}
		if s.routesByStop[stt.StopID] == nil {
			s.routesByStop[stt.StopID] = make(map[string]struct{})
		}
		s.routesByStop[stt.StopID][trip.RouteID] = struct{}{}
	}
	for tripID, entries := range s.stopTimesByTrip {
		sort.Slice(entries, func(i, j int) bool { return entries[i].StopSequence < entries[j].StopSequence })
		s.stopTimesByTrip[tripID] = entries
	}

	// stopTimesByStop: the same rows re-keyed by stop, sorted by departure
	// second, so a departures-at-stop query is a single binary search rather
	// than a scan of every trip.
	for tripID, entries := range s.stopTimesByTrip {
		for i, e := range entries {
			s.stopTimesByStop[e.StopID] = append(s.stopTimesByStop[e.StopID], StopDepartureEntry{
				TripID: tripID, StopSequence: e.StopSequence, IsTerminus: i == len(entries)-1,
				ArrivalSeconds: e.ArrivalSeconds, DepartureSeconds: e.DepartureSeconds,
			})
		}
	}
	for stopID, entries := range s.stopTimesByStop {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].DepartureSeconds != entries[j].DepartureSeconds {
				return entries[i].DepartureSeconds < entries[j].DepartureSeconds
			}
			return entries[i].TripID < entries[j].TripID
		})
		s.stopTimesByStop[stopID] = entries
	}

	// tripsByRoute: first-stop departure second per trip, sorted ascending.
	firstDeparture := make(map[string]int, len(s.tripsInfo))
	for tripID, entries := range s.stopTimesByTrip {
		if len(entries) == 0 {
			continue
		}
		firstDeparture[tripID] = entries[0].DepartureSeconds
	}
	for tripID, trip := range s.tripsInfo {
		dep, ok := firstDeparture[tripID]
		if !ok {
			continue
		}
		s.tripsByRoute[trip.RouteID] = append(s.tripsByRoute[trip.RouteID], RouteTripEntry{
			FirstDepartureSec: dep, TripID: tripID,
		})
	}
	for routeID, entries := range s.tripsByRoute {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].FirstDepartureSec != entries[j].FirstDepartureSec {
				return entries[i].FirstDepartureSec < entries[j].FirstDepartureSec
			}
			return entries[i].TripID < entries[j].TripID
		})
		s.tripsByRoute[routeID] = entries
	}

	// transfers: self-transfer invariant (from != to) and walk_seconds > 0.
	for _, tr := range raw.Transfers {
		if tr.FromStopID == tr.ToStopID || tr.WalkTimeS <= 0 {
			continue
		}
		s.transfers[tr.FromStopID] = append(s.transfers[tr.FromStopID], TransferEntry{
			ToStopID: tr.ToStopID, WalkSeconds: tr.WalkTimeS,
		})
	}

	// servicesByWeekday, pre-filtered to each service's validity window is
	// deferred to query time (start_date/end_date bound getActiveServices
	// per-date, not per-weekday, since validity windows vary per service).
	for _, c := range raw.Calendars {
		days := []bool{c.Sunday, c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday}
		for wd, active := range days {
			if active {
				s.servicesByWeekday[wd][c.ServiceID] = struct{}{}
			}
		}
	}
	s.calendarValidity = make(map[string][2]string, len(raw.Calendars))
	for _, c := range raw.Calendars {
		s.calendarValidity[c.ServiceID] = [2]string{c.StartDate, c.EndDate}
	}

	for _, ce := range raw.CalendarExceptions {
		set := s.calendarExceptions[ce.Date]
		if set.Added == nil {
			set.Added = make(map[string]struct{})
			set.Removed = make(map[string]struct{})
		}
		if ce.ExceptionType == gtfs.ExceptionAdded {
			set.Added[ce.ServiceID] = struct{}{}
		} else if ce.ExceptionType == gtfs.ExceptionRemoved {
			set.Removed[ce.ServiceID] = struct{}{}
		}
		s.calendarExceptions[ce.Date] = set
	}

	for _, rf := range raw.RouteFrequencies {
		s.routeFrequencies[rf.RouteID] = append(s.routeFrequencies[rf.RouteID], rf)
	}

	for _, rs := range raw.RouteStopSequences {
		byDirection := s.routeStopSequences[rs.RouteID]
		if byDirection == nil {
			byDirection = make(map[int][]RouteStopSeqEntry)
			s.routeStopSequences[rs.RouteID] = byDirection
		}
		byDirection[rs.DirectionID] = append(byDirection[rs.DirectionID], RouteStopSeqEntry{StopID: rs.StopID, Sequence: rs.Sequence})

		// A frequency-only route (no stop_times rows) would otherwise be
		// invisible to routesByStop, which is built from stop_times alone.
		if s.routesByStop[rs.StopID] == nil {
			s.routesByStop[rs.StopID] = make(map[string]struct{})
		}
		s.routesByStop[rs.StopID][rs.RouteID] = struct{}{}
	}
	for _, byDirection := range s.routeStopSequences {
		for dir, entries := range byDirection {
			sort.Slice(entries, func(i, j int) bool { return entries[i].Sequence < entries[j].Sequence })
			byDirection[dir] = entries
		}
	}

	for _, p := range raw.Platforms {
		s.platforms[p.StopID] = append(s.platforms[p.StopID], p)
	}
	for _, a := range raw.Accesses {
		s.accesses[a.StopID] = append(s.accesses[a.StopID], a)
	}
	for _, v := range raw.Vestibules {
		s.vestibules[v.StopID] = append(s.vestibules[v.StopID], v)
	}

	s.childrenByParent = make(map[string][]string)
	s.sortedStopIDs = make([]string, 0, len(s.stopsInfo))
	for id, info := range s.stopsInfo {
		s.sortedStopIDs = append(s.sortedStopIDs, id)
		if info.ParentStationID != "" {
			s.childrenByParent[info.ParentStationID] = append(s.childrenByParent[info.ParentStationID], id)
		}
	}
	sort.Strings(s.sortedStopIDs)
	for parent, children := range s.childrenByParent {
		sort.Strings(children)
		s.childrenByParent[parent] = children
	}

	s.sortedRouteIDs = make([]string, 0, len(s.routesInfo))
	for id := range s.routesInfo {
		s.sortedRouteIDs = append(s.sortedRouteIDs, id)
	}
	sort.Strings(s.sortedRouteIDs)

	s.sortedNetworkCodes = make([]string, 0, len(s.networksInfo))
	for code := range s.networksInfo {
		s.sortedNetworkCodes = append(s.sortedNetworkCodes, code)
	}
	sort.Strings(s.sortedNetworkCodes)

	return s
}
