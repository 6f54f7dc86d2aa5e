package fusion

import (
	"github.com/mini-rodalies-3d/transit/internal/ids"
)

// scheduledDepartures implements §4.H Step 4: the StopTime x Trip x Route
// join, filtered to active services and non-terminus stop_times, capped at
// limit*3 rows to absorb later-step attrition.
func (e *Engine) scheduledDepartures(resolvedStops []string, activeServices map[string]struct{}, nowSec, limit int) ([]Departure, error) {
	maxRows := limit * 3
	var out []Departure

	for _, stopID := range resolvedStops {
		entries, err := e.ISS.GetStopDepartures(stopID, nowSec)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsTerminus {
				continue
			}
			trip, err := e.ISS.GetTripInfo(entry.TripID)
			if err != nil {
				continue
			}
			if _, active := activeServices[trip.ServiceID]; !active {
				continue
			}
			route, err := e.ISS.GetRouteInfo(trip.RouteID)
			if err != nil {
				continue
			}
			out = append(out, Departure{
				TripID:                    entry.TripID,
				RouteID:                   trip.RouteID,
				RouteShortName:            ids.ExtractRouteShortName(route.ShortName, trip.Headsign),
				Headsign:                  trip.Headsign,
				StopID:                    stopID,
				DirectionID:               trip.DirectionID,
				ScheduledDepartureSeconds: entry.DepartureSeconds,
				ScheduledArrivalSeconds:   entry.ArrivalSeconds,
			})
			if len(out) >= maxRows {
				return out, nil
			}
		}
	}
	return out, nil
}
