package ingest

import (
	"context"
	"log"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/decode"
	"github.com/mini-rodalies-3d/transit/internal/ids"
	"github.com/mini-rodalies-3d/transit/internal/platform"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// workerResult carries back what the post-processor and platform history
// recorder need after a worker's fetch-decode-persist pass.
type workerResult struct {
	pending      []platform.PendingAssignment
	touchedStops []string
}

// runWorker implements §4.F's per-operator worker: fetch each configured
// endpoint (30s HTTP timeout each, via o.Fetcher), decode, normalize IDs,
// persist, and record platform-history observations.
func (o *Orchestrator) runWorker(ctx context.Context, w OperatorWorker) (workerResult, error) {
	var result workerResult
	fetcher := o.Fetcher
	if fetcher == nil {
		fetcher = HTTPFetcher{}
	}

	var feed decode.Feed
	headsignByTrip := map[string]string{}

	if w.REST != nil {
		if w.URLs.VehiclePositions == "" {
			return result, nil
		}
		raw, err := fetcher.Fetch(ctx, w.URLs.VehiclePositions, o.Config.FetchTimeout)
		if err != nil {
			return result, err
		}
		positions, updates, err := w.REST.DecodePredictions(raw)
		if err != nil {
			return result, err
		}
		feed.VehiclePositions = positions
		feed.TripUpdates = updates
	} else {
		if w.URLs.VehiclePositions != "" {
			raw, err := fetcher.Fetch(ctx, w.URLs.VehiclePositions, o.Config.FetchTimeout)
			if err != nil {
				log.Printf("ingest: %s vehicle_positions fetch failed: %v", w.Operator, err)
			} else if positions, err := w.Decoder.DecodeVehiclePositions(raw); err != nil {
				log.Printf("ingest: %s vehicle_positions decode failed: %v", w.Operator, err)
			} else {
				feed.VehiclePositions = positions
			}
		}
		if w.URLs.TripUpdates != "" {
			raw, err := fetcher.Fetch(ctx, w.URLs.TripUpdates, o.Config.FetchTimeout)
			if err != nil {
				log.Printf("ingest: %s trip_updates fetch failed: %v", w.Operator, err)
			} else if updates, err := w.Decoder.DecodeTripUpdates(raw); err != nil {
				log.Printf("ingest: %s trip_updates decode failed: %v", w.Operator, err)
			} else {
				feed.TripUpdates = updates
			}
		}
		if w.URLs.Alerts != "" {
			raw, err := fetcher.Fetch(ctx, w.URLs.Alerts, o.Config.FetchTimeout)
			if err != nil {
				log.Printf("ingest: %s alerts fetch failed: %v", w.Operator, err)
			} else if alerts, err := w.Decoder.DecodeAlerts(raw); err != nil {
				log.Printf("ingest: %s alerts decode failed: %v", w.Operator, err)
			} else {
				feed.Alerts = alerts
			}
		}
	}

	for _, tu := range feed.TripUpdates {
		if len(tu.StopTimeUpdates) > 0 && tu.StopTimeUpdates[0].Headsign != "" {
			headsignByTrip[tu.TripID] = tu.StopTimeUpdates[0].Headsign
		}
	}

	snapshotID, err := o.Store.CreateSnapshot(ctx, time.Now())
	if err != nil {
		return result, err
	}

	storePositions := make([]store.VehiclePosition, 0, len(feed.VehiclePositions))
	for _, p := range feed.VehiclePositions {
		sp, err := o.normalizePosition(p, w.Operator)
		if err != nil {
			log.Printf("ingest: %s position normalization skipped: %v", w.Operator, err)
			continue
		}
		storePositions = append(storePositions, sp)

		routeShortName := ids.ExtractRouteShortName(p.RouteID, headsignByTrip[p.TripID])
		if err := o.Recorder.Observe(ctx, sp, routeShortName, headsignByTrip[p.TripID]); err != nil {
			log.Printf("ingest: platform history observe failed: %v", err)
		}
		if sp.Platform == "" {
			result.pending = append(result.pending, platform.PendingAssignment{
				StopID: sp.StopID, RouteShortName: routeShortName, Headsign: headsignByTrip[p.TripID], TripID: sp.TripID,
			})
			if w.Operator == ids.Renfe && sp.StopID != "" {
				result.touchedStops = append(result.touchedStops, sp.StopID)
			}
		}
	}
	if err := o.Store.UpsertVehiclePositions(ctx, snapshotID, storePositions); err != nil {
		return result, err
	}

	storeUpdates := make([]store.TripUpdate, 0, len(feed.TripUpdates))
	for _, u := range feed.TripUpdates {
		su, err := o.normalizeTripUpdate(u, w.Operator)
		if err != nil {
			log.Printf("ingest: %s trip update normalization skipped: %v", w.Operator, err)
			continue
		}
		storeUpdates = append(storeUpdates, su)
	}
	if err := o.Store.UpsertTripUpdates(ctx, snapshotID, storeUpdates); err != nil {
		return result, err
	}

	if len(feed.Alerts) > 0 {
		storeAlerts := make([]store.Alert, 0, len(feed.Alerts))
		for _, a := range feed.Alerts {
			sa := o.normalizeAlert(ctx, a, w.Operator)
			storeAlerts = append(storeAlerts, sa)
		}
		if err := o.Store.UpsertAlerts(ctx, storeAlerts); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (o *Orchestrator) normalizePosition(p decode.VehiclePosition, op ids.Operator) (store.VehiclePosition, error) {
	sp := store.VehiclePosition{
		VehicleID: p.VehicleID,
		Lat:       p.Lat,
		Lon:       p.Lon,
		Status:    store.VehicleStatus(p.Status),
		Label:     p.Label,
		Platform:  p.Platform,
		Timestamp: p.Timestamp,
	}
	var err error
	if p.TripID != "" {
		if sp.TripID, err = ids.PrefixTrip(p.TripID, op); err != nil {
			return store.VehiclePosition{}, err
		}
	}
	if p.StopID != "" {
		if sp.StopID, err = ids.PrefixStop(p.StopID, op); err != nil {
			return store.VehiclePosition{}, err
		}
	}
	return sp, nil
}

func (o *Orchestrator) normalizeTripUpdate(u decode.TripUpdate, op ids.Operator) (store.TripUpdate, error) {
	tripID, err := ids.PrefixTrip(u.TripID, op)
	if err != nil {
		return store.TripUpdate{}, err
	}
	su := store.TripUpdate{
		TripID:    tripID,
		DelaySecs: u.DelaySecs,
		VehicleID: u.VehicleID,
		Timestamp: u.Timestamp,
	}
	for _, c := range u.StopTimeUpdates {
		stopID, err := ids.PrefixStop(c.StopID, op)
		if err != nil {
			continue
		}
		su.StopTimeUpdates = append(su.StopTimeUpdates, store.StopTimeUpdate{
			TripID: tripID, StopID: stopID,
			ArrivalDelay: c.ArrivalDelay, ArrivalTime: c.ArrivalTime,
			DepartureDelay: c.DepartureDelay, DepartureTime: c.DepartureTime,
			Platform: c.Platform, OccupancyPercent: c.OccupancyPercent, Headsign: c.Headsign,
		})
	}
	return su, nil
}

// normalizeAlert translates a decoded alert and, for Renfe only, runs the
// best-effort AI classifier (§4.F). Classifier failures never block
// persistence: on error the alert is written with its enrichment fields
// blank, which the upsert's ON CONFLICT preserves from the prior row.
func (o *Orchestrator) normalizeAlert(ctx context.Context, a decode.Alert, op ids.Operator) store.Alert {
	sa := store.Alert{
		AlertID: a.AlertID, Cause: a.Cause, Effect: a.Effect,
		Header: a.Header, Description: a.Description, URL: a.URL,
		ActivePeriodStart: a.ActivePeriodStart, ActivePeriodEnd: a.ActivePeriodEnd,
		Source: "feed",
	}
	for _, ie := range a.InformedEntities {
		entity := store.InformedEntity{TripID: ie.TripID}
		if ie.RouteID != "" {
			if rid, err := ids.PrefixRoute(ie.RouteID, op); err == nil {
				entity.RouteID = rid
			}
		}
		if ie.StopID != "" {
			if sid, err := ids.PrefixStop(ie.StopID, op); err == nil {
				entity.StopID = sid
			}
		}
		sa.InformedEntities = append(sa.InformedEntities, entity)
	}

	if op == ids.Renfe && o.Classifier != nil {
		result, err := o.Classifier.Classify(ctx, a.Header, a.Description)
		if err != nil {
			log.Printf("ingest: renfe alert classifier failed for %s: %v", a.AlertID, err)
		} else {
			sa.AISeverity = result.Severity
			sa.AIStatus = result.Status
			sa.AISummary = result.Summary
			sa.AIAffectedSegments = result.AffectedSegments
		}
	}
	return sa
}
