package platform

import (
	"context"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// Recorder implements the Platform-History Recorder (§4.E): the RTIE calls
// Observe for every VehiclePosition it ingests, and Observe decides on its
// own whether the observation is worth keeping.
type Recorder struct {
	Store store.PlatformHistoryStore
	// Now lets tests inject a fixed clock; defaults to time.Now if nil.
	Now func() time.Time
}

func (r Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// ShouldRecord gates an observation: only STOPPED_AT/INCOMING_AT positions
// with both a stop and an extractable platform are worth a history row.
func ShouldRecord(status store.VehicleStatus, stopID, platform string) bool {
	if stopID == "" || platform == "" {
		return false
	}
	return status == store.StatusStoppedAt || status == store.StatusIncomingAt
}

// Observe records one platform sighting for (stopID, routeShortName,
// headsign, platform) if ShouldRecord allows it. Race-safety comes entirely
// from the store's UPSERT primitive (§4.E) — Observe does no locking of its
// own.
func (r Recorder) Observe(ctx context.Context, pos store.VehiclePosition, routeShortName, headsign string) error {
	if !ShouldRecord(pos.Status, pos.StopID, pos.Platform) {
		return nil
	}
	now := r.now()
	obs := gtfs.PlatformHistory{
		StopID:          pos.StopID,
		RouteShortName:  routeShortName,
		Headsign:        headsign,
		Platform:        pos.Platform,
		Count:           1,
		ObservationDate: now.Format("2006-01-02"),
		LastSeen:        now.Format(time.RFC3339),
	}
	return r.Store.RecordPlatformObservation(ctx, obs)
}

// PurgeOlderThan30Days runs the nightly retention cleanup (§4.E): rows whose
// observation_date predates the 30-day window are deleted.
func (r Recorder) PurgeOlderThan30Days(ctx context.Context) (int, error) {
	cutoff := r.now().AddDate(0, 0, -30).Format("2006-01-02")
	return r.Store.PurgePlatformHistoryBefore(ctx, cutoff)
}
