// Package fusion implements the Departures Fusion Engine (§4.H): for a
// queried stop it merges scheduled stop_times, real-time delays and
// positions, cached platform history, frequency-based estimation, express
// detection, deduplication, and operating-hours gating into one ordered
// departure board.
package fusion

import (
	"context"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
	"github.com/mini-rodalies-3d/transit/internal/iss"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// Departure is one board entry after the full fusion pipeline has run.
type Departure struct {
	TripID         string
	RouteID        string
	RouteShortName string
	Headsign       string
	StopID         string
	DirectionID    int

	ScheduledDepartureSeconds int
	ScheduledArrivalSeconds   int

	DelaySecs                *int
	RealtimeDepartureSeconds *int
	IsDelayed                bool

	Platform          string
	PlatformEstimated bool

	OccupancyPercent *int
	OccupancyStatus  string

	IsExpress    bool
	ExpressName  string
	ExpressColor string

	// IsFrequencyBased marks a Step 5 synthetic departure: it has no backing
	// TripUpdate/VehiclePosition and is never real-time enriched.
	IsFrequencyBased bool

	MinutesUntil         float64
	RealtimeMinutesUntil *float64
}

// Engine is the DFE, bound to the ISS for schedule reads and the dynamic
// store for real-time reads.
type Engine struct {
	ISS      *iss.Store
	Store    store.DynamicStore
	Location *time.Location
}

func (e *Engine) location() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDepartures runs the full §4.H pipeline for one stop query.
func (e *Engine) GetDepartures(ctx context.Context, stopID, routeFilter string, limit int, now time.Time) ([]Departure, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	now = now.In(e.location())

	if _, err := e.ISS.GetStopInfo(stopID); err != nil {
		return nil, err
	}
	resolved, err := ResolveStops(e.ISS, stopID)
	if err != nil {
		return nil, err
	}

	dayType := EffectiveDayType(now)
	activeServices, err := e.ISS.GetActiveServices(now)
	if err != nil {
		return nil, apperr.New(apperr.KindUnavailable, "fusion.GetDepartures", err)
	}
	nowSec := secondsSinceMidnight(now)

	departures, err := e.scheduledDepartures(resolved, activeServices, nowSec, limit)
	if err != nil {
		return nil, apperr.New(apperr.KindUnavailable, "fusion.GetDepartures", err)
	}

	if len(departures) == 0 && anyStopNeedsFrequencyFallback(resolved) {
		freq, err := e.frequencyDepartures(resolved, dayType, nowSec, nil)
		if err != nil {
			return nil, apperr.New(apperr.KindUnavailable, "fusion.GetDepartures", err)
		}
		departures = append(departures, freq...)
	} else if len(departures) > 0 {
		missing, err := e.missingMetroRoutes(resolved, routeSet(departures))
		if err != nil {
			return nil, apperr.New(apperr.KindUnavailable, "fusion.GetDepartures", err)
		}
		if len(missing) > 0 {
			freq, err := e.frequencyDepartures(resolved, dayType, nowSec, missing)
			if err != nil {
				return nil, apperr.New(apperr.KindUnavailable, "fusion.GetDepartures", err)
			}
			departures = append(departures, freq...)
		}
	}

	if routeFilter != "" {
		departures = filterByRoute(departures, routeFilter)
	}

	if err := e.enrich(ctx, departures, nowSec); err != nil {
		return nil, apperr.New(apperr.KindUnavailable, "fusion.GetDepartures", err)
	}

	departures = e.gateOperatingHours(departures, dayType)
	departures = dedupe(departures)
	departures = sortAndTruncate(departures, limit)

	return departures, nil
}

func secondsSinceMidnight(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func routeSet(departures []Departure) map[string]bool {
	set := make(map[string]bool, len(departures))
	for _, d := range departures {
		set[d.RouteID] = true
	}
	return set
}

func filterByRoute(departures []Departure, routeID string) []Departure {
	out := departures[:0:0]
	for _, d := range departures {
		if d.RouteID == routeID {
			out = append(out, d)
		}
	}
	return out
}

// frequencyFallbackPrefixes are the canonical-ID prefixes the stop-level
// networks that lack stop_times entirely (§4.H Step 5).
var frequencyFallbackPrefixes = []string{"METRO_", "ML_", "TRAM_SEV_", "TMB_METRO_1.", "FGC_"}

func anyStopNeedsFrequencyFallback(resolvedStops []string) bool {
	for _, stopID := range resolvedStops {
		for _, prefix := range frequencyFallbackPrefixes {
			if hasPrefix(stopID, prefix) {
				return true
			}
		}
	}
	return false
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// missingMetroRoutes finds routes serving the resolved stops that belong to
// a frequency-fallback network (§4.H Step 5's "supplement" clause) and are
// not already represented among the scheduled departures found.
func (e *Engine) missingMetroRoutes(resolvedStops []string, represented map[string]bool) (map[string]bool, error) {
	missing := make(map[string]bool)
	for _, stopID := range resolvedStops {
		isFreqNetwork := false
		for _, prefix := range frequencyFallbackPrefixes {
			if hasPrefix(stopID, prefix) {
				isFreqNetwork = true
				break
			}
		}
		if !isFreqNetwork {
			continue
		}
		routeIDs, err := e.ISS.GetRoutesAtStop(stopID)
		if err != nil {
			return nil, err
		}
		for _, routeID := range routeIDs {
			if !represented[routeID] {
				missing[routeID] = true
			}
		}
	}
	return missing, nil
}

// occupancyBucket converts a 0-100 occupancy percentage into the GTFS
// OccupancyStatus bucket named by §4.H Step 6.
func occupancyBucket(percent int) string {
	switch {
	case percent <= 10:
		return "EMPTY"
	case percent <= 30:
		return "MANY_SEATS_AVAILABLE"
	case percent <= 50:
		return "FEW_SEATS_AVAILABLE"
	case percent <= 70:
		return "STANDING_ROOM_ONLY"
	case percent <= 85:
		return "CRUSHED_STANDING_ROOM_ONLY"
	default:
		return "FULL"
	}
}
