package main

import (
	"time"

	"github.com/mini-rodalies-3d/transit/internal/fusion"
	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/iss"
	"github.com/mini-rodalies-3d/transit/internal/raptor"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// ErrorResponse is the JSON error response structure for every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Agency is the agencies/networks listing entry.
type Agency struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Region        string `json:"region,omitempty"`
	TransportType string `json:"transportType,omitempty"`
	Color         string `json:"color,omitempty"`
	TextColor     string `json:"textColor,omitempty"`
}

func agencyFrom(n gtfs.Network) Agency {
	return Agency{
		Code: n.Code, Name: n.Name, Region: n.Region,
		TransportType: n.TransportType, Color: n.Color, TextColor: n.TextColor,
	}
}

// Route is the routes listing / route detail entry.
type Route struct {
	ID         string `json:"id"`
	ShortName  string `json:"shortName"`
	LongName   string `json:"longName,omitempty"`
	Color      string `json:"color,omitempty"`
	TextColor  string `json:"textColor,omitempty"`
	Type       int    `json:"type"`
	NetworkID  string `json:"networkId,omitempty"`
	IsCircular bool   `json:"isCircular,omitempty"`
}

func routeFrom(r iss.RouteInfo) Route {
	return Route{
		ID: r.ID, ShortName: r.ShortName, LongName: r.LongName, Color: r.Color,
		TextColor: r.TextColor, Type: r.RouteType, NetworkID: r.NetworkID, IsCircular: r.IsCircular,
	}
}

// Stop is the stops listing / stop detail entry.
type Stop struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	IsStation       bool    `json:"isStation"`
	ParentStationID string  `json:"parentStationId,omitempty"`
}

func stopFrom(s iss.StopInfo) Stop {
	return Stop{
		ID: s.ID, Name: s.Name, Lat: s.Lat, Lon: s.Lon,
		IsStation: s.LocationType == gtfs.LocationStation, ParentStationID: s.ParentStationID,
	}
}

// CompactDeparture is the trimmed departure board shape for frequent polling.
type CompactDeparture struct {
	TripID           string  `json:"tripId"`
	RouteID          string  `json:"routeId"`
	RouteShortName   string  `json:"routeShortName"`
	Headsign         string  `json:"headsign"`
	Platform         string  `json:"platform,omitempty"`
	MinutesUntil     float64 `json:"minutesUntil"`
	IsDelayed        bool    `json:"isDelayed"`
	IsFrequencyBased bool    `json:"isFrequencyBased,omitempty"`
}

// VerboseDeparture carries every field the fusion engine produced.
type VerboseDeparture struct {
	TripID         string `json:"tripId"`
	RouteID        string `json:"routeId"`
	RouteShortName string `json:"routeShortName"`
	Headsign       string `json:"headsign"`
	StopID         string `json:"stopId"`
	DirectionID    int    `json:"directionId"`

	ScheduledDepartureSeconds int `json:"scheduledDepartureSeconds"`
	ScheduledArrivalSeconds   int `json:"scheduledArrivalSeconds"`

	DelaySecs                *int `json:"delaySecs,omitempty"`
	RealtimeDepartureSeconds *int `json:"realtimeDepartureSeconds,omitempty"`
	IsDelayed                bool `json:"isDelayed"`

	Platform          string `json:"platform,omitempty"`
	PlatformEstimated bool   `json:"platformEstimated,omitempty"`

	OccupancyPercent *int   `json:"occupancyPercent,omitempty"`
	OccupancyStatus  string `json:"occupancyStatus,omitempty"`

	IsExpress    bool   `json:"isExpress,omitempty"`
	ExpressName  string `json:"expressName,omitempty"`
	ExpressColor string `json:"expressColor,omitempty"`

	IsFrequencyBased bool `json:"isFrequencyBased,omitempty"`

	MinutesUntil         float64  `json:"minutesUntil"`
	RealtimeMinutesUntil *float64 `json:"realtimeMinutesUntil,omitempty"`
}

func compactFrom(d fusion.Departure) CompactDeparture {
	return CompactDeparture{
		TripID: d.TripID, RouteID: d.RouteID, RouteShortName: d.RouteShortName, Headsign: d.Headsign,
		Platform: d.Platform, MinutesUntil: d.MinutesUntil, IsDelayed: d.IsDelayed, IsFrequencyBased: d.IsFrequencyBased,
	}
}

func verboseFrom(d fusion.Departure) VerboseDeparture {
	return VerboseDeparture{
		TripID: d.TripID, RouteID: d.RouteID, RouteShortName: d.RouteShortName, Headsign: d.Headsign,
		StopID: d.StopID, DirectionID: d.DirectionID,
		ScheduledDepartureSeconds: d.ScheduledDepartureSeconds, ScheduledArrivalSeconds: d.ScheduledArrivalSeconds,
		DelaySecs: d.DelaySecs, RealtimeDepartureSeconds: d.RealtimeDepartureSeconds, IsDelayed: d.IsDelayed,
		Platform: d.Platform, PlatformEstimated: d.PlatformEstimated,
		OccupancyPercent: d.OccupancyPercent, OccupancyStatus: d.OccupancyStatus,
		IsExpress: d.IsExpress, ExpressName: d.ExpressName, ExpressColor: d.ExpressColor,
		IsFrequencyBased: d.IsFrequencyBased, MinutesUntil: d.MinutesUntil, RealtimeMinutesUntil: d.RealtimeMinutesUntil,
	}
}

// TripDetail is the GET /trips/{tripId} response.
type TripDetail struct {
	TripID         string      `json:"tripId"`
	RouteID        string      `json:"routeId"`
	RouteShortName string      `json:"routeShortName"`
	Headsign       string      `json:"headsign"`
	DirectionID    int         `json:"directionId"`
	StopTimes      []StopVisit `json:"stopTimes"`
}

// StopVisit is one stop_times row in a trip's itinerary.
type StopVisit struct {
	StopID           string `json:"stopId"`
	StopName         string `json:"stopName"`
	StopSequence     int    `json:"stopSequence"`
	ArrivalSeconds   int    `json:"arrivalSeconds"`
	DepartureSeconds int    `json:"departureSeconds"`
}

// RouteStop is one entry of a route's canonical ordered stop pattern.
type RouteStop struct {
	StopID      string `json:"stopId"`
	StopName    string `json:"stopName"`
	Sequence    int    `json:"sequence"`
	DirectionID int    `json:"directionId"`
}

// Correspondence is a stop's directed walking transfer to another stop.
type Correspondence struct {
	ToStopID    string `json:"toStopId"`
	WalkSeconds int    `json:"walkSeconds"`
}

// RouteFrequency is a route_frequencies row, camelCased for the wire.
type RouteFrequency struct {
	DayType     string `json:"dayType"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	HeadwaySecs int    `json:"headwaySecs"`
}

func routeFrequencyFrom(f gtfs.RouteFrequency) RouteFrequency {
	return RouteFrequency{DayType: string(f.DayType), StartTime: f.StartTime, EndTime: f.EndTime, HeadwaySecs: f.HeadwaySecs}
}

// Platform is a physical platform at a station.
type Platform struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

func platformFrom(p gtfs.Platform) Platform {
	return Platform{ID: p.ID, Name: p.Name, Code: p.Code}
}

// OperatingHours is the GET /routes/{routeId}/hours response for one day type.
type OperatingHours struct {
	DayType       string `json:"dayType"`
	StartSeconds  int    `json:"startSeconds,omitempty"`
	EndSeconds    int    `json:"endSeconds,omitempty"`
	AlwaysRunning bool   `json:"alwaysRunning,omitempty"`
}

// JourneyResponse mirrors raptor.Result, rewritten into camelCase DTOs.
type JourneyResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	Journeys []Journey `json:"journeys,omitempty"`
}

// Journey is one Pareto-candidate itinerary.
type Journey struct {
	DepartureSeconds    int       `json:"departureSeconds"`
	ArrivalSeconds      int       `json:"arrivalSeconds"`
	Transfers           int       `json:"transfers"`
	TotalWalkingSeconds int       `json:"totalWalkingSeconds"`
	Segments            []Segment `json:"segments"`
	Alerts              []Alert   `json:"alerts,omitempty"`
}

// Segment is one leg of a Journey.
type Segment struct {
	Kind string `json:"kind"`

	RouteID        string `json:"routeId,omitempty"`
	RouteShortName string `json:"routeShortName,omitempty"`
	RouteColor     string `json:"routeColor,omitempty"`
	Headsign       string `json:"headsign,omitempty"`
	TripID         string `json:"tripId,omitempty"`

	From StopRef `json:"from"`
	To   StopRef `json:"to"`

	DepartureSeconds int `json:"departureSeconds"`
	ArrivalSeconds   int `json:"arrivalSeconds"`

	IntermediateStops []StopVisitBrief `json:"intermediateStops,omitempty"`
	ShapePoints       []ShapePoint     `json:"shapePoints,omitempty"`

	WalkSeconds int `json:"walkSeconds,omitempty"`
}

// StopRef names one stop in a journey leg.
type StopRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StopVisitBrief is an intermediate stop a transit segment passes through.
type StopVisitBrief struct {
	Stop             StopRef `json:"stop"`
	ArrivalSeconds   int     `json:"arrivalSeconds"`
	DepartureSeconds int     `json:"departureSeconds"`
}

// ShapePoint is one ordered point of a ride's polyline geometry.
type ShapePoint struct {
	Sequence int     `json:"sequence"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// Alert is a service alert attached to a journey.
type Alert struct {
	AlertID     string `json:"alertId"`
	Cause       string `json:"cause,omitempty"`
	Effect      string `json:"effect,omitempty"`
	Header      string `json:"header"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`

	AISeverity string `json:"aiSeverity,omitempty"`
	AIStatus   string `json:"aiStatus,omitempty"`
	AISummary  string `json:"aiSummary,omitempty"`
}

func journeyResponseFrom(r *raptor.Result) JourneyResponse {
	out := JourneyResponse{Success: r.Success, Message: r.Message}
	for _, j := range r.Journeys {
		out.Journeys = append(out.Journeys, journeyFrom(j))
	}
	return out
}

func journeyFrom(j raptor.Journey) Journey {
	out := Journey{
		DepartureSeconds: j.DepartureSeconds, ArrivalSeconds: j.ArrivalSeconds,
		Transfers: j.Transfers, TotalWalkingSeconds: j.TotalWalkingSeconds,
	}
	for _, seg := range j.Segments {
		out.Segments = append(out.Segments, segmentFrom(seg))
	}
	for _, a := range j.Alerts {
		out.Alerts = append(out.Alerts, alertFrom(a))
	}
	return out
}

func segmentFrom(seg raptor.Segment) Segment {
	out := Segment{
		Kind: seg.Kind, RouteID: seg.RouteID, RouteShortName: seg.RouteShortName, RouteColor: seg.RouteColor,
		Headsign: seg.Headsign, TripID: seg.TripID,
		From: StopRef{ID: seg.From.ID, Name: seg.From.Name}, To: StopRef{ID: seg.To.ID, Name: seg.To.Name},
		DepartureSeconds: seg.DepartureSeconds, ArrivalSeconds: seg.ArrivalSeconds, WalkSeconds: seg.WalkSeconds,
	}
	for _, is := range seg.IntermediateStops {
		out.IntermediateStops = append(out.IntermediateStops, StopVisitBrief{
			Stop:             StopRef{ID: is.Stop.ID, Name: is.Stop.Name},
			ArrivalSeconds:   is.ArrivalSeconds,
			DepartureSeconds: is.DepartureSeconds,
		})
	}
	for _, sp := range seg.ShapePoints {
		out.ShapePoints = append(out.ShapePoints, ShapePoint{Sequence: sp.Sequence, Lat: sp.Lat, Lon: sp.Lon})
	}
	return out
}

func alertFrom(a store.Alert) Alert {
	return Alert{
		AlertID: a.AlertID, Cause: a.Cause, Effect: a.Effect, Header: a.Header, Description: a.Description,
		URL: a.URL, AISeverity: a.AISeverity, AIStatus: a.AIStatus, AISummary: a.AISummary,
	}
}

// readyState is a tiny timestamped wrapper for the readiness/health probes.
type readyState struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}
