// Package store defines the persistence-layer contract (§4.C): the
// interface the ISS loads static entities through and the ingestion engine
// writes dynamic (real-time) entities through. Two implementations satisfy
// it: pgstore (production, Postgres via pgx) and devstore (sqlite, for
// tests and offline runs).
package store

import (
	"context"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/gtfs"
)

// VehicleStatus mirrors the GTFS-RT vehicle position status enum (§3).
type VehicleStatus string

const (
	StatusStoppedAt   VehicleStatus = "STOPPED_AT"
	StatusIncomingAt  VehicleStatus = "INCOMING_AT"
	StatusInTransitTo VehicleStatus = "IN_TRANSIT_TO"
)

// VehiclePosition is the dynamic entity written by the ingestion engine and
// read by the DFE/MCJP (§3).
type VehiclePosition struct {
	VehicleID string
	TripID    string
	Lat       float64
	Lon       float64
	Status    VehicleStatus
	StopID    string
	Label     string
	Platform  string
	Timestamp time.Time
	UpdatedAt time.Time
}

// TripUpdate is the dynamic per-trip delay/occupancy record (§3).
type TripUpdate struct {
	TripID     string
	DelaySecs  int
	VehicleID  string
	Wheelchair string
	Timestamp  time.Time
	UpdatedAt  time.Time
	StopTimeUpdates []StopTimeUpdate
}

// StopTimeUpdate is a child row of TripUpdate (§3); rows are deleted and
// re-inserted wholesale on each TripUpdate refresh rather than diffed.
type StopTimeUpdate struct {
	TripID            string
	StopID            string
	ArrivalDelay      *int
	ArrivalTime       *time.Time
	DepartureDelay    *int
	DepartureTime     *time.Time
	Platform          string
	OccupancyPercent  *int
	OccupancyPerCar   []int
	Headsign          string
}

// InformedEntity narrows an Alert to a specific route/stop/trip (§3).
type InformedEntity struct {
	RouteID string
	StopID  string
	TripID  string
}

// Alert is a service alert (§3). The AI* fields hold the Renfe-only
// classifier enrichment (§4.F); they are left zero-valued for every other
// operator and preserved verbatim across ticks when the classifier has
// nothing new to say.
type Alert struct {
	AlertID           string
	Cause             string
	Effect            string
	Header            string
	Description       string
	URL               string
	ActivePeriodStart *time.Time
	ActivePeriodEnd   *time.Time
	InformedEntities  []InformedEntity
	Source            string // "manual" exempts an alert from the null-active_period_end eviction rule (§4.F)

	AISeverity         string
	AIStatus           string
	AISummary          string
	AIAffectedSegments []string
}

// StaticSnapshot is everything the ISS needs to build a queryable snapshot,
// fetched from the persistence layer in one pass at load/reload time.
type StaticSnapshot struct {
	Stops              []gtfs.Stop
	Routes             []gtfs.Route
	Networks           []gtfs.Network
	Trips              []gtfs.Trip
	StopTimes          []gtfs.StopTime
	Calendars          []gtfs.Calendar
	CalendarExceptions []gtfs.CalendarException
	RouteFrequencies   []gtfs.RouteFrequency
	RouteStopSequences []gtfs.RouteStopSequence
	Shapes             map[string][]gtfs.ShapePoint
	Transfers          []gtfs.Transfer
	Platforms          []gtfs.Platform
	Accesses           []gtfs.Access
	Vestibules         []gtfs.Vestibule
}

// StaticReader is the read side the ISS loader (§4.D) depends on.
type StaticReader interface {
	LoadStaticSnapshot(ctx context.Context) (*StaticSnapshot, error)
}

// Store is the full persistence contract a single-process binary opens one
// connection against: static reads for the ISS plus the dynamic read/write
// surface for the RTIE, DFE, and MCJP. Both pgstore and devstore satisfy it.
type Store interface {
	StaticReader
	DynamicStore
}

// StaticWriter is the write side the (out-of-scope) import utilities use to
// populate the relational store; declared here so the contract is complete
// even though no importer ships in this repo (§1 Non-goals).
type StaticWriter interface {
	ReplaceStaticSnapshot(ctx context.Context, snap *StaticSnapshot) error
}

// DynamicStore is the read/write contract the RTIE (§4.F) and the Platform
// post-processor (§4.G) use for real-time state.
type DynamicStore interface {
	CreateSnapshot(ctx context.Context, polledAt time.Time) (string, error)

	UpsertVehiclePositions(ctx context.Context, snapshotID string, positions []VehiclePosition) error
	UpsertTripUpdates(ctx context.Context, snapshotID string, updates []TripUpdate) error
	UpsertAlerts(ctx context.Context, alerts []Alert) error

	VehiclePositionsByTrip(ctx context.Context, tripIDs []string) (map[string]VehiclePosition, error)
	TripUpdatesByTrip(ctx context.Context, tripIDs []string) (map[string]TripUpdate, error)
	ActiveAlerts(ctx context.Context, now time.Time) ([]Alert, error)

	// PurgeStaleTripUpdates deletes TripUpdates (and their StopTimeUpdates)
	// older than the retention window (§3 invariant: "older than 2h purged").
	PurgeStaleTripUpdates(ctx context.Context, olderThan time.Time) (int, error)
	// PurgeExpiredAlerts deletes alerts whose active period has fully
	// elapsed relative to now.
	PurgeExpiredAlerts(ctx context.Context, now time.Time) (int, error)

	PlatformHistoryStore
}

// PlatformHistoryStore is the Platform-History Recorder's persistence
// surface (§4.E/§4.G).
type PlatformHistoryStore interface {
	RecordPlatformObservation(ctx context.Context, obs gtfs.PlatformHistory) error
	PlatformHistoryFor(ctx context.Context, stopID, routeShortName, headsign string) ([]gtfs.PlatformHistory, error)
	PurgePlatformHistoryBefore(ctx context.Context, cutoffDate string) (int, error)
	BulkBackfillPlatforms(ctx context.Context, stopID, routeShortName, headsign, platform string) (int, error)
}

// GeoLookup resolves which administrative province contains a point. It is
// kept behind an interface because the production implementation depends on
// PostGIS's ST_Contains over province polygons — an external geospatial
// dependency this module does not own (see DESIGN.md Open Question).
type GeoLookup interface {
	ProvinceFor(ctx context.Context, lat, lon float64) (string, error)
}
