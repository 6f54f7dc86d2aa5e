package decode

import (
	"encoding/json"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
)

// Renfe's three endpoints (/vehicle_positions.json, /trip_updates.json,
// /alerts.json) carry the same semantic fields as GTFS-RT Protobuf, wrapped
// in plain JSON with per-language translation arrays — new code in the
// teacher's `encoding/json` + explicit-struct idiom (metro/client.go's
// response structs), since the teacher has no JSON operator feed itself.

type jsonTranslation struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

type jsonVehicleEntity struct {
	ID      string `json:"id"`
	Vehicle struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"vehicle"`
	Trip struct {
		TripID  string `json:"trip_id"`
		RouteID string `json:"route_id"`
	} `json:"trip"`
	Position struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"position"`
	CurrentStatus int    `json:"current_status"`
	StopID        string `json:"stop_id"`
	Timestamp     int64  `json:"timestamp"`
}

type jsonVehiclePositionsFeed struct {
	Entities []jsonVehicleEntity `json:"entity"`
}

type jsonStopTimeUpdate struct {
	StopID       string `json:"stop_id"`
	StopSequence int    `json:"stop_sequence"`
	Arrival      struct {
		Delay *int   `json:"delay"`
		Time  *int64 `json:"time"`
	} `json:"arrival"`
	Departure struct {
		Delay *int   `json:"delay"`
		Time  *int64 `json:"time"`
	} `json:"departure"`
	Platform         string `json:"platform"`
	OccupancyPercent *int   `json:"occupancy_percent"`
	Headsign         string `json:"headsign"`
}

type jsonTripUpdateEntity struct {
	ID         string `json:"id"`
	TripUpdate struct {
		Trip struct {
			TripID string `json:"trip_id"`
		} `json:"trip"`
		Vehicle struct {
			ID string `json:"id"`
		} `json:"vehicle"`
		Timestamp      int64                `json:"timestamp"`
		StopTimeUpdate []jsonStopTimeUpdate `json:"stop_time_update"`
	} `json:"trip_update"`
}

type jsonTripUpdatesFeed struct {
	Entities []jsonTripUpdateEntity `json:"entity"`
}

type jsonActivePeriod struct {
	Start *int64 `json:"start"`
	End   *int64 `json:"end"`
}

type jsonInformedEntity struct {
	RouteID string `json:"route_id"`
	StopID  string `json:"stop_id"`
	TripID  string `json:"trip_id"`
}

type jsonAlertEntity struct {
	ID    string `json:"id"`
	Alert struct {
		Cause           string             `json:"cause"`
		Effect          string             `json:"effect"`
		HeaderText      []jsonTranslation  `json:"header_text"`
		DescriptionText []jsonTranslation  `json:"description_text"`
		URL             []jsonTranslation  `json:"url"`
		ActivePeriod    []jsonActivePeriod `json:"active_period"`
		InformedEntity  []jsonInformedEntity `json:"informed_entity"`
	} `json:"alert"`
}

type jsonAlertsFeed struct {
	Entities []jsonAlertEntity `json:"entity"`
}

// OperatorJSONDecoder decodes Renfe's JSON-encoded real-time feeds.
type OperatorJSONDecoder struct{}

func (OperatorJSONDecoder) DecodeVehiclePositions(raw []byte) ([]VehiclePosition, error) {
	var feed jsonVehiclePositionsFeed
	if err := json.Unmarshal(raw, &feed); err != nil {
		return nil, apperr.New(apperr.KindDecodeFailure, "decode.OperatorJSONDecoder.DecodeVehiclePositions", err)
	}
	out := make([]VehiclePosition, 0, len(feed.Entities))
	for _, e := range feed.Entities {
		status := ""
		switch e.CurrentStatus {
		case 0:
			status = "INCOMING_AT"
		case 1:
			status = "STOPPED_AT"
		case 2:
			status = "IN_TRANSIT_TO"
		}
		vehicleID := e.Vehicle.ID
		if vehicleID == "" {
			vehicleID = "entity:" + e.ID
		}
		out = append(out, VehiclePosition{
			VehicleID: vehicleID,
			TripID:    e.Trip.TripID,
			RouteID:   e.Trip.RouteID,
			Lat:       e.Position.Latitude,
			Lon:       e.Position.Longitude,
			Status:    status,
			StopID:    e.StopID,
			Label:     e.Vehicle.Label,
			Timestamp: time.Unix(e.Timestamp, 0).UTC(),
		})
	}
	return out, nil
}

func (OperatorJSONDecoder) DecodeTripUpdates(raw []byte) ([]TripUpdate, error) {
	var feed jsonTripUpdatesFeed
	if err := json.Unmarshal(raw, &feed); err != nil {
		return nil, apperr.New(apperr.KindDecodeFailure, "decode.OperatorJSONDecoder.DecodeTripUpdates", err)
	}
	out := make([]TripUpdate, 0, len(feed.Entities))
	for _, e := range feed.Entities {
		tu := e.TripUpdate
		if tu.Trip.TripID == "" {
			continue
		}
		update := TripUpdate{
			TripID:    tu.Trip.TripID,
			VehicleID: tu.Vehicle.ID,
			Timestamp: time.Unix(tu.Timestamp, 0).UTC(),
		}
		for _, stu := range tu.StopTimeUpdate {
			if stu.StopID == "" {
				continue
			}
			child := StopTimeUpdate{
				StopID: stu.StopID, StopSequence: stu.StopSequence,
				ArrivalDelay: stu.Arrival.Delay, DepartureDelay: stu.Departure.Delay,
				Platform: stu.Platform, OccupancyPercent: stu.OccupancyPercent, Headsign: stu.Headsign,
			}
			if stu.Arrival.Time != nil {
				t := time.Unix(*stu.Arrival.Time, 0).UTC()
				child.ArrivalTime = &t
			}
			if stu.Departure.Time != nil {
				t := time.Unix(*stu.Departure.Time, 0).UTC()
				child.DepartureTime = &t
			}
			update.StopTimeUpdates = append(update.StopTimeUpdates, child)
		}
		if len(update.StopTimeUpdates) > 0 {
			first := update.StopTimeUpdates[0]
			if first.ArrivalDelay != nil {
				update.DelaySecs = *first.ArrivalDelay
				update.HasDelay = true
			} else if first.DepartureDelay != nil {
				update.DelaySecs = *first.DepartureDelay
				update.HasDelay = true
			}
		}
		out = append(out, update)
	}
	return out, nil
}

func (OperatorJSONDecoder) DecodeAlerts(raw []byte) ([]Alert, error) {
	var feed jsonAlertsFeed
	if err := json.Unmarshal(raw, &feed); err != nil {
		return nil, apperr.New(apperr.KindDecodeFailure, "decode.OperatorJSONDecoder.DecodeAlerts", err)
	}
	out := make([]Alert, 0, len(feed.Entities))
	for _, e := range feed.Entities {
		a := e.Alert
		alert := Alert{
			AlertID:     e.ID,
			Cause:       a.Cause,
			Effect:      a.Effect,
			Header:      bestJSONTranslation(a.HeaderText),
			Description: bestJSONTranslation(a.DescriptionText),
			URL:         bestJSONTranslation(a.URL),
		}
		for _, p := range a.ActivePeriod {
			if p.Start != nil {
				t := time.Unix(*p.Start, 0).UTC()
				alert.ActivePeriodStart = &t
			}
			if p.End != nil {
				t := time.Unix(*p.End, 0).UTC()
				alert.ActivePeriodEnd = &t
			}
		}
		for _, ie := range a.InformedEntity {
			alert.InformedEntities = append(alert.InformedEntities, InformedEntity{
				RouteID: ie.RouteID, StopID: ie.StopID, TripID: ie.TripID,
			})
		}
		out = append(out, alert)
	}
	return out, nil
}

// bestJSONTranslation prefers Spanish, else the first entry — the JSON
// analogue of protobuf.go's bestTranslation.
func bestJSONTranslation(ts []jsonTranslation) string {
	if len(ts) == 0 {
		return ""
	}
	for _, t := range ts {
		if t.Language == "es" {
			return t.Text
		}
	}
	return ts[0].Text
}
