package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// visorTimeout is the Renfe visor fallback's own HTTP budget (§4.G step 2),
// distinct from the RTIE worker's 30s feed-fetch timeout.
const visorTimeout = 10 * time.Second

// HistoryMinCount is the §4.G step 3 / §4.H Step 6 threshold: a historical
// platform is only adopted once it has been seen at least this many times.
// Exported so the DFE's read-time enrichment applies the identical rule.
const HistoryMinCount = 3

// BestHistoricalPlatform picks the most-observed platform from a
// PlatformHistoryFor result, requiring at least HistoryMinCount observations
// before it is trusted as a prediction.
func BestHistoricalPlatform(history []gtfs.PlatformHistory) (string, bool) {
	best, bestCount := "", 0
	for _, h := range history {
		if h.Count > bestCount {
			best, bestCount = h.Platform, h.Count
		}
	}
	if bestCount < HistoryMinCount {
		return "", false
	}
	return best, true
}

// renfeVisorResponse is Renfe's station-departures visor JSON. Grounded on
// the teacher's rodalies/client.go response-struct idiom: a flat departures
// list keyed by the real-time trip identifier.
type renfeVisorResponse struct {
	Salidas []struct {
		TripID string `json:"tripId"`
		Anden  string `json:"anden"`
	} `json:"salidas"`
}

// StopCodeResolver maps a canonical stop ID to the short numeric code Renfe's
// visor endpoint expects in its URL path.
type StopCodeResolver func(stopID string) (code string, ok bool)

// TripLookup resolves which (stop, route_short_name, headsign) triple a
// trip_id belongs to, so a correlated platform can be written back to
// history. The ISS is the natural source for this.
type TripLookup func(tripID string) (stopID, routeShortName, headsign string, ok bool)

// PostProcessor runs the three sequential steps of §4.G after every
// ingestion tick has persisted its fetched data.
type PostProcessor struct {
	Store             store.DynamicStore
	Recorder          Recorder
	VisorURLTemplate  string
	ResolveStopCode   StopCodeResolver
	LookupTrip        TripLookup
	HTTPClient        *http.Client
}

func (p PostProcessor) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: visorTimeout}
}

// Run executes correlation, Renfe visor fallback, and historical prediction
// in sequence, for the given set of (stop_id, route_short_name, headsign)
// triples that still lack a platform after persistence. Renfe-specific steps
// are skipped when renfeStopIDs is empty.
func (p PostProcessor) Run(ctx context.Context, pending []PendingAssignment, renfeStopIDs []string) {
	p.correlate(ctx, pending)
	p.renfeVisorFallback(ctx, renfeStopIDs)
	p.historicalPrediction(ctx, pending)
}

// PendingAssignment identifies one (stop, route, headsign) combination whose
// platform is still unresolved after persistence, along with a representative
// trip_id the correlation step can use to look up a live VehiclePosition.
type PendingAssignment struct {
	StopID         string
	RouteShortName string
	Headsign       string
	TripID         string
}

// correlate runs the §4.G step 1 pass: for each pending assignment, look up
// the representative trip's VehiclePosition and, if it already carries a
// platform, backfill every still-unknown stop_time_update sharing the same
// (stop, route, headsign) with it in one bulk write.
func (p PostProcessor) correlate(ctx context.Context, pending []PendingAssignment) {
	tripIDs := make([]string, 0, len(pending))
	for _, pa := range pending {
		if pa.TripID != "" {
			tripIDs = append(tripIDs, pa.TripID)
		}
	}
	if len(tripIDs) == 0 {
		return
	}
	positions, err := p.Store.VehiclePositionsByTrip(ctx, tripIDs)
	if err != nil {
		log.Printf("platform: correlation pass failed to load vehicle positions: %v", err)
		return
	}
	for _, pa := range pending {
		pos, ok := positions[pa.TripID]
		if !ok || pos.Platform == "" || pos.StopID != pa.StopID {
			continue
		}
		n, err := p.Store.BulkBackfillPlatforms(ctx, pa.StopID, pa.RouteShortName, pa.Headsign, pos.Platform)
		if err != nil {
			log.Printf("platform: correlation pass failed for %s/%s/%s: %v", pa.StopID, pa.RouteShortName, pa.Headsign, err)
			continue
		}
		if n > 0 {
			log.Printf("platform: correlation backfilled %d stop_time_update rows for %s/%s/%s", n, pa.StopID, pa.RouteShortName, pa.Headsign)
		}
	}
}

// renfeVisorFallback runs the §4.G step 2 Renfe-only fallback: fetch each
// station's visor JSON and match by trip_id.
func (p PostProcessor) renfeVisorFallback(ctx context.Context, renfeStopIDs []string) {
	if p.VisorURLTemplate == "" || p.ResolveStopCode == nil {
		return
	}
	client := p.httpClient()
	for _, stopID := range renfeStopIDs {
		code, ok := p.ResolveStopCode(stopID)
		if !ok {
			continue
		}
		if err := p.fetchVisorStation(ctx, client, stopID, code); err != nil {
			log.Printf("platform: renfe visor fallback failed for stop %s: %v", stopID, err)
		}
	}
}

func (p PostProcessor) fetchVisorStation(ctx context.Context, client *http.Client, stopID, code string) error {
	url := fmt.Sprintf(p.VisorURLTemplate, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.New(apperr.KindFeedUnavailable, "platform.fetchVisorStation", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return apperr.New(apperr.KindFeedUnavailable, "platform.fetchVisorStation", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindFeedUnavailable, "platform.fetchVisorStation", fmt.Errorf("visor returned status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.New(apperr.KindFeedUnavailable, "platform.fetchVisorStation", err)
	}
	var parsed renfeVisorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return apperr.New(apperr.KindDecodeFailure, "platform.fetchVisorStation", err)
	}

	for _, s := range parsed.Salidas {
		if s.TripID == "" || s.Anden == "" {
			continue
		}
		routeShortName, headsign := "", ""
		resolvedStop := stopID
		if p.LookupTrip != nil {
			if rs, rsName, hs, ok := p.LookupTrip(s.TripID); ok {
				resolvedStop, routeShortName, headsign = rs, rsName, hs
			}
		}
		if _, err := p.Store.BulkBackfillPlatforms(ctx, resolvedStop, routeShortName, headsign, s.Anden); err != nil {
			log.Printf("platform: visor backfill write failed for trip %s: %v", s.TripID, err)
			continue
		}
		if err := p.Recorder.Observe(ctx, store.VehiclePosition{
			Status:   store.StatusStoppedAt,
			StopID:   resolvedStop,
			Platform: s.Anden,
		}, routeShortName, headsign); err != nil {
			log.Printf("platform: visor history record failed for trip %s: %v", s.TripID, err)
		}
	}
	return nil
}

// historicalPrediction runs the §4.G step 3 fallback: adopt the most
// frequently observed platform for a (stop, route, headsign) triple, but
// only once it has been seen at least HistoryMinCount times.
func (p PostProcessor) historicalPrediction(ctx context.Context, pending []PendingAssignment) {
	for _, pa := range pending {
		history, err := p.Store.PlatformHistoryFor(ctx, pa.StopID, pa.RouteShortName, pa.Headsign)
		if err != nil {
			log.Printf("platform: history lookup failed for %s/%s/%s: %v", pa.StopID, pa.RouteShortName, pa.Headsign, err)
			continue
		}
		best, ok := BestHistoricalPlatform(history)
		if !ok {
			continue
		}
		if _, err := p.Store.BulkBackfillPlatforms(ctx, pa.StopID, pa.RouteShortName, pa.Headsign, best); err != nil {
			log.Printf("platform: historical prediction write failed for %s/%s/%s: %v", pa.StopID, pa.RouteShortName, pa.Headsign, err)
		}
	}
}
