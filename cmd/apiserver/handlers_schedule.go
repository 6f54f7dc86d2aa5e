package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mini-rodalies-3d/transit/internal/fusion"
	"github.com/mini-rodalies-3d/transit/internal/gtfs"
)

// listAgencies handles GET /agencies: the Network table is this system's
// agency-equivalent (§3's Network type is sourced from agency.txt plus the
// network_id extension column), so agencies and networks share one listing.
func (a *api) listAgencies(w http.ResponseWriter, r *http.Request) {
	networks, err := a.ISS.GetNetworks()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]Agency, 0, len(networks))
	for _, n := range networks {
		out = append(out, agencyFrom(n))
	}
	writeJSON(w, http.StatusOK, out)
}

// networkLines handles GET /networks/{networkId}/lines.
func (a *api) networkLines(w http.ResponseWriter, r *http.Request) {
	networkID := chi.URLParam(r, "networkId")
	if _, err := a.ISS.GetNetworkInfo(networkID); err != nil {
		writeError(w, err)
		return
	}
	routes, err := a.ISS.GetNetworkRoutes(networkID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]Route, 0, len(routes))
	for _, rt := range routes {
		out = append(out, routeFrom(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

// listRoutes handles GET /routes.
func (a *api) listRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := a.ISS.GetAllRoutes()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]Route, 0, len(routes))
	for _, rt := range routes {
		out = append(out, routeFrom(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

// routeDetail handles GET /routes/{routeId}.
func (a *api) routeDetail(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	info, err := a.ISS.GetRouteInfo(routeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routeFrom(info))
}

// routeStops handles GET /routes/{routeId}/stops: the canonical ordered
// stop pattern per direction (§4.H Step 5's stop_route_sequence).
func (a *api) routeStops(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	if _, err := a.ISS.GetRouteInfo(routeID); err != nil {
		writeError(w, err)
		return
	}
	byDirection, err := a.ISS.GetRouteStopSequence(routeID)
	if err != nil {
		writeError(w, err)
		return
	}
	var out []RouteStop
	for direction, entries := range byDirection {
		for _, e := range entries {
			name := e.StopID
			if info, err := a.ISS.GetStopInfo(e.StopID); err == nil {
				name = info.Name
			}
			out = append(out, RouteStop{StopID: e.StopID, StopName: name, Sequence: e.Sequence, DirectionID: direction})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// routeFrequencies handles GET /routes/{routeId}/frequencies.
func (a *api) routeFrequencies(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	if _, err := a.ISS.GetRouteInfo(routeID); err != nil {
		writeError(w, err)
		return
	}
	freqs, err := a.ISS.GetRouteFrequencies(routeID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]RouteFrequency, 0, len(freqs))
	for _, f := range freqs {
		out = append(out, routeFrequencyFrom(f))
	}
	writeJSON(w, http.StatusOK, out)
}

// routeHours handles GET /routes/{routeId}/hours: the operating window
// (§4.H Step 7) for the day type named by ?dayType=, defaulting to today's
// effective day type.
func (a *api) routeHours(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	if _, err := a.ISS.GetRouteInfo(routeID); err != nil {
		writeError(w, err)
		return
	}
	dayType := gtfs.DayType(r.URL.Query().Get("dayType"))
	if dayType == "" {
		dayType = fusion.EffectiveDayType(a.now())
	}
	freqs, err := a.ISS.GetRouteFrequencies(routeID)
	if err != nil {
		writeError(w, err)
		return
	}
	start, end, ok := fusion.OperatingWindow(freqs, dayType)
	writeJSON(w, http.StatusOK, OperatingHours{
		DayType: string(dayType), StartSeconds: start, EndSeconds: end, AlwaysRunning: !ok,
	})
}

// routeShape handles GET /routes/{routeId}/shape?direction=0: the shape of
// the route's earliest trip in that direction, since shapes are keyed by
// trip rather than by route.
func (a *api) routeShape(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	if _, err := a.ISS.GetRouteInfo(routeID); err != nil {
		writeError(w, err)
		return
	}
	wantDirection := -1
	if v := r.URL.Query().Get("direction"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			wantDirection = d
		}
	}

	trips, err := a.ISS.GetTripsByRoute(routeID)
	if err != nil {
		writeError(w, err)
		return
	}
	var shapeID string
	for _, rt := range trips {
		trip, err := a.ISS.GetTripInfo(rt.TripID)
		if err != nil || trip.ShapeID == "" {
			continue
		}
		if wantDirection != -1 && trip.DirectionID != wantDirection {
			continue
		}
		shapeID = trip.ShapeID
		break
	}
	if shapeID == "" {
		writeJSON(w, http.StatusOK, []ShapePoint{})
		return
	}
	points, err := a.ISS.GetShapePoints(shapeID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]ShapePoint, 0, len(points))
	for _, p := range points {
		out = append(out, ShapePoint{Sequence: p.Sequence, Lat: p.Lat, Lon: p.Lon})
	}
	writeJSON(w, http.StatusOK, out)
}

// listStops handles GET /stops.
func (a *api) listStops(w http.ResponseWriter, r *http.Request) {
	stops, err := a.ISS.GetAllStops()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]Stop, 0, len(stops))
	for _, s := range stops {
		out = append(out, stopFrom(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// stopDetail handles GET /stops/{stopId}.
func (a *api) stopDetail(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopId")
	info, err := a.ISS.GetStopInfo(stopID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stopFrom(info))
}

// stopPlatforms handles GET /stops/{stopId}/platforms.
func (a *api) stopPlatforms(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopId")
	if _, err := a.ISS.GetStopInfo(stopID); err != nil {
		writeError(w, err)
		return
	}
	platforms, err := a.ISS.GetPlatforms(stopID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]Platform, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, platformFrom(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// stopCorrespondences handles GET /stops/{stopId}/correspondences: the
// directed walking transfers out of this stop (§3 Transfer/Correspondence).
func (a *api) stopCorrespondences(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopId")
	if _, err := a.ISS.GetStopInfo(stopID); err != nil {
		writeError(w, err)
		return
	}
	transfers, err := a.ISS.GetTransfers(stopID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]Correspondence, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, Correspondence{ToStopID: t.ToStopID, WalkSeconds: t.WalkSeconds})
	}
	writeJSON(w, http.StatusOK, out)
}
