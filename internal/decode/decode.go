// Package decode implements the three wire-format decoders (§4.B): GTFS-RT
// Protobuf, Renfe's Operator JSON, and the TMB/Metrovalencia REST
// predictions format. Each produces the same common Feed shape so the RTIE
// can treat operators polymorphically.
package decode

import "time"

// VehiclePosition is the decoder's output shape for one real-time vehicle,
// pre-normalization (canonical ID prefixing happens after decode, in the
// ingestion worker).
type VehiclePosition struct {
	VehicleID string
	TripID    string
	RouteID   string
	Lat       float64
	Lon       float64
	Status    string // STOPPED_AT | INCOMING_AT | IN_TRANSIT_TO
	StopID    string
	Label     string
	Platform  string
	Timestamp time.Time
}

// StopTimeUpdate is one child row of a TripUpdate.
type StopTimeUpdate struct {
	StopID           string
	StopSequence     int
	ArrivalDelay     *int
	ArrivalTime      *time.Time
	DepartureDelay   *int
	DepartureTime    *time.Time
	Platform         string
	OccupancyPercent *int
	Headsign         string
}

// TripUpdate is the decoder's output shape for one trip's delay/occupancy
// state.
type TripUpdate struct {
	TripID          string
	VehicleID       string
	Wheelchair      string
	Timestamp       time.Time
	StopTimeUpdates []StopTimeUpdate
	// DelaySecs is the trip-level delay. The Protobuf and operator-JSON
	// decoders take it from the first StopTimeUpdate (its arrival delay,
	// else its departure delay) and set HasDelay when one was found; with
	// HasDelay=false DelaySecs is 0.
	DelaySecs int
	HasDelay  bool
}

// InformedEntity narrows an alert to a route/stop/trip.
type InformedEntity struct {
	RouteID string
	StopID  string
	TripID  string
}

// Alert is the decoder's output shape for one service alert. Description is
// already resolved to a single language (Spanish preferred, else the first
// available translation, per §4.B).
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
}

// Feed is everything one decoder invocation can produce. A decoder is free
// to populate only the slices relevant to the endpoint it was pointed at
// (e.g. a vehicle-positions-only protobuf feed leaves TripUpdates/Alerts
// nil); this mirrors GTFS-RT's own one-feed-per-concern convention.
type Feed struct {
	VehiclePositions []VehiclePosition
	TripUpdates      []TripUpdate
	Alerts           []Alert
}
