package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mini-rodalies-3d/transit/internal/ids"
	"github.com/mini-rodalies-3d/transit/internal/iss"
)

// routeShortNameFor applies the Madrid C4/C8 branch disambiguation (§4.A)
// to a route's display name.
func routeShortNameFor(route iss.RouteInfo, headsign string) string {
	return ids.ExtractRouteShortName(route.ShortName, headsign)
}

const defaultDeparturesLimit = 10

// stopDepartures handles GET /stops/{stopId}/departures, the DFE's main
// entry point (§4.H). ?route= filters by canonical route ID, ?limit=
// bounds the board size, ?verbose=true returns every fusion field instead
// of the compact polling shape.
func (a *api) stopDepartures(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopId")
	routeFilter := r.URL.Query().Get("route")
	limit := defaultDeparturesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	departures, err := a.Fusion.GetDepartures(r.Context(), stopID, routeFilter, limit, a.now())
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("verbose") == "true" {
		out := make([]VerboseDeparture, 0, len(departures))
		for _, d := range departures {
			out = append(out, verboseFrom(d))
		}
		w.Header().Set("Cache-Control", "public, max-age=15, stale-while-revalidate=10")
		writeJSON(w, http.StatusOK, out)
		return
	}

	out := make([]CompactDeparture, 0, len(departures))
	for _, d := range departures {
		out = append(out, compactFrom(d))
	}
	w.Header().Set("Cache-Control", "public, max-age=15, stale-while-revalidate=10")
	writeJSON(w, http.StatusOK, out)
}

// tripDetail handles GET /trips/{tripId}: the trip's full stop_times
// itinerary alongside its route's display name.
func (a *api) tripDetail(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")

	trip, err := a.ISS.GetTripInfo(tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	route, err := a.ISS.GetRouteInfo(trip.RouteID)
	if err != nil {
		writeError(w, err)
		return
	}
	stopTimes, err := a.ISS.GetStopTimes(tripID)
	if err != nil {
		writeError(w, err)
		return
	}

	detail := TripDetail{
		TripID:         trip.ID,
		RouteID:        trip.RouteID,
		RouteShortName: routeShortNameFor(route, trip.Headsign),
		Headsign:       trip.Headsign,
		DirectionID:    trip.DirectionID,
	}
	for _, st := range stopTimes {
		name := st.StopID
		if info, err := a.ISS.GetStopInfo(st.StopID); err == nil {
			name = info.Name
		}
		detail.StopTimes = append(detail.StopTimes, StopVisit{
			StopID: st.StopID, StopName: name, StopSequence: st.StopSequence,
			ArrivalSeconds: st.ArrivalSeconds, DepartureSeconds: st.DepartureSeconds,
		})
	}
	writeJSON(w, http.StatusOK, detail)
}
