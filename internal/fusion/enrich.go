package fusion

import (
	"context"
	"log"

	"github.com/mini-rodalies-3d/transit/internal/platform"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// delayThresholdSecs is the §4.H Step 6 is_delayed cutoff.
const delayThresholdSecs = 60

// enrich implements §4.H Step 6 for every candidate departure: delay,
// platform, headsign, occupancy, and CIVIS express detection. Frequency-
// synthesized departures (Step 5) have no backing trip and are skipped for
// everything except headsign Title-Casing, which already happened at
// synthesis time.
func (e *Engine) enrich(ctx context.Context, departures []Departure, nowSec int) error {
	tripIDs := make([]string, 0, len(departures))
	seen := make(map[string]bool, len(departures))
	for _, d := range departures {
		if d.IsFrequencyBased || seen[d.TripID] {
			continue
		}
		seen[d.TripID] = true
		tripIDs = append(tripIDs, d.TripID)
	}

	tripUpdates, err := e.Store.TripUpdatesByTrip(ctx, tripIDs)
	if err != nil {
		return err
	}
	positions, err := e.Store.VehiclePositionsByTrip(ctx, tripIDs)
	if err != nil {
		return err
	}

	for i := range departures {
		d := &departures[i]
		if !d.IsFrequencyBased {
			tu, tuOK := tripUpdates[d.TripID]
			pos, posOK := positions[d.TripID]

			e.enrichHeadsign(d)
			enrichDelay(d, tu, tuOK)
			e.enrichPlatform(ctx, d, tu, tuOK, pos, posOK)
			enrichOccupancy(d, tu, tuOK)
			e.enrichExpress(d)
		}
		enrichMinutesUntil(d, nowSec)
	}
	return nil
}

// enrichMinutesUntil computes the Step 9 sort key.
func enrichMinutesUntil(d *Departure, nowSec int) {
	d.MinutesUntil = float64(d.ScheduledDepartureSeconds-nowSec) / 60.0
	if d.RealtimeDepartureSeconds != nil {
		v := float64(*d.RealtimeDepartureSeconds-nowSec) / 60.0
		d.RealtimeMinutesUntil = &v
	}
}

func (e *Engine) enrichHeadsign(d *Departure) {
	headsign := d.Headsign
	if headsign == "" {
		if stopTimes, err := e.ISS.GetStopTimes(d.TripID); err == nil && len(stopTimes) > 0 {
			if last, err := e.ISS.GetStopInfo(stopTimes[len(stopTimes)-1].StopID); err == nil {
				headsign = last.Name
			}
		}
	}
	d.Headsign = titleCaseHeadsign(headsign)
}

func enrichDelay(d *Departure, tu store.TripUpdate, tuOK bool) {
	if !tuOK {
		return
	}
	var delay *int
	for _, stu := range tu.StopTimeUpdates {
		if stu.StopID != d.StopID {
			continue
		}
		if stu.DepartureDelay != nil {
			v := *stu.DepartureDelay
			delay = &v
		} else if stu.ArrivalDelay != nil {
			v := *stu.ArrivalDelay
			delay = &v
		}
		break
	}
	if delay == nil {
		v := tu.DelaySecs
		delay = &v
	}
	d.DelaySecs = delay
	realtime := d.ScheduledDepartureSeconds + *delay
	d.RealtimeDepartureSeconds = &realtime
	d.IsDelayed = *delay > delayThresholdSecs
}

// enrichPlatform implements the Step 6 platform chain: StopTimeUpdate ->
// VehiclePosition -> historical prediction. The "stop-id indexed
// VehiclePositions" link the spec also names is already folded into the
// StopTimeUpdate's platform by the time this runs, since the Platform
// Post-Processor's correlation pass (§4.G step 1) backfills it at ingest
// time — there is nothing left for read time to correlate independently.
func (e *Engine) enrichPlatform(ctx context.Context, d *Departure, tu store.TripUpdate, tuOK bool, pos store.VehiclePosition, posOK bool) {
	if tuOK {
		for _, stu := range tu.StopTimeUpdates {
			if stu.StopID == d.StopID && stu.Platform != "" {
				d.Platform = stu.Platform
				return
			}
		}
	}
	if posOK && pos.Platform != "" && pos.StopID == d.StopID &&
		(pos.Status == store.StatusStoppedAt || pos.Status == store.StatusIncomingAt) {
		d.Platform = pos.Platform
		return
	}
	history, err := e.Store.PlatformHistoryFor(ctx, d.StopID, d.RouteShortName, d.Headsign)
	if err != nil {
		log.Printf("fusion: platform history lookup failed for %s/%s/%s: %v", d.StopID, d.RouteShortName, d.Headsign, err)
		return
	}
	if best, ok := platform.BestHistoricalPlatform(history); ok {
		d.Platform = best
		d.PlatformEstimated = true
	}
}

func enrichOccupancy(d *Departure, tu store.TripUpdate, tuOK bool) {
	if !tuOK {
		return
	}
	for _, stu := range tu.StopTimeUpdates {
		if stu.StopID != d.StopID || stu.OccupancyPercent == nil {
			continue
		}
		d.OccupancyPercent = stu.OccupancyPercent
		d.OccupancyStatus = occupancyBucket(*stu.OccupancyPercent)
		return
	}
}

func (e *Engine) enrichExpress(d *Departure) {
	stopTimes, err := e.ISS.GetStopTimes(d.TripID)
	if err != nil {
		return
	}
	isExpress, name, color := detectExpress(d.RouteShortName, len(stopTimes))
	d.IsExpress = isExpress
	d.ExpressName = name
	d.ExpressColor = color
}
