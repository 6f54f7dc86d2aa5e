package decode

import (
	"log"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
)

// statusMap mirrors the teacher's GTFS-RT VehiclePosition.current_status
// enum mapping (Metro Bilbao, Euskotren, FGC all speak standard GTFS-RT).
var statusMap = map[int32]string{
	0: "INCOMING_AT",
	1: "STOPPED_AT",
	2: "IN_TRANSIT_TO",
}

// ProtobufDecoder decodes a standard GTFS-RT Protobuf feed (Metro Bilbao,
// Euskotren, FGC). Per-entity malformed rows are logged and skipped; a
// malformed feed envelope is a DecodeFailure.
type ProtobufDecoder struct{}

func (ProtobufDecoder) DecodeVehiclePositions(raw []byte) ([]VehiclePosition, error) {
	feed := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(raw, feed); err != nil {
		return nil, apperr.New(apperr.KindDecodeFailure, "decode.ProtobufDecoder.DecodeVehiclePositions", err)
	}

	var out []VehiclePosition
	for _, entity := range feed.Entity {
		if entity.Vehicle == nil {
			continue
		}
		v := entity.Vehicle
		pos := VehiclePosition{}

		if v.Vehicle != nil && v.Vehicle.GetId() != "" {
			pos.VehicleID = v.Vehicle.GetId()
		} else if entity.Id != nil {
			pos.VehicleID = "entity:" + entity.GetId()
		} else {
			log.Printf("decode: protobuf: skipping vehicle entity with no id")
			continue
		}
		if v.Vehicle != nil {
			pos.Label = v.Vehicle.GetLabel()
		}
		if v.Trip != nil {
			pos.TripID = v.Trip.GetTripId()
			pos.RouteID = v.Trip.GetRouteId()
		}
		if v.Position != nil {
			pos.Lat = float64(v.Position.GetLatitude())
			pos.Lon = float64(v.Position.GetLongitude())
		}
		if v.CurrentStatus != nil {
			if status, ok := statusMap[int32(v.GetCurrentStatus())]; ok {
				pos.Status = status
			}
		}
		if v.StopId != nil {
			pos.StopID = v.GetStopId()
		}
		if v.Timestamp != nil {
			pos.Timestamp = time.Unix(int64(v.GetTimestamp()), 0).UTC()
		}
		out = append(out, pos)
	}
	return out, nil
}

func (ProtobufDecoder) DecodeTripUpdates(raw []byte) ([]TripUpdate, error) {
	feed := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(raw, feed); err != nil {
		return nil, apperr.New(apperr.KindDecodeFailure, "decode.ProtobufDecoder.DecodeTripUpdates", err)
	}

	var out []TripUpdate
	for _, entity := range feed.Entity {
		if entity.TripUpdate == nil || entity.TripUpdate.Trip == nil || entity.TripUpdate.Trip.TripId == nil {
			continue
		}
		tu := entity.TripUpdate
		update := TripUpdate{TripID: tu.Trip.GetTripId()}
		if tu.Vehicle != nil {
			update.VehicleID = tu.Vehicle.GetId()
		}
		if tu.Timestamp != nil {
			update.Timestamp = time.Unix(int64(tu.GetTimestamp()), 0).UTC()
		}

		for _, stu := range tu.StopTimeUpdate {
			if stu.StopId == nil {
				continue
			}
			child := StopTimeUpdate{StopID: stu.GetStopId()}
			if stu.StopSequence != nil {
				child.StopSequence = int(stu.GetStopSequence())
			}
			if stu.Arrival != nil {
				if stu.Arrival.Delay != nil {
					d := int(stu.Arrival.GetDelay())
					child.ArrivalDelay = &d
				}
				if stu.Arrival.Time != nil {
					t := time.Unix(stu.Arrival.GetTime(), 0).UTC()
					child.ArrivalTime = &t
				}
			}
			if stu.Departure != nil {
				if stu.Departure.Delay != nil {
					d := int(stu.Departure.GetDelay())
					child.DepartureDelay = &d
				}
				if stu.Departure.Time != nil {
					t := time.Unix(stu.Departure.GetTime(), 0).UTC()
					child.DepartureTime = &t
				}
			}
			update.StopTimeUpdates = append(update.StopTimeUpdates, child)
		}

		// Trip-level delay is absent from standard GTFS-RT TripUpdate; derive
		// it from the first stop_time_update's arrival- or departure-delay,
		// per §4.B.
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

// cause/effect maps follow the GTFS-RT Alert enums; grounded on the
// teacher's rodalies/alerts.go Cause/Effect tables.
var causeMap = map[int32]string{
	1: "UNKNOWN_CAUSE", 2: "OTHER_CAUSE", 3: "TECHNICAL_PROBLEM", 4: "STRIKE",
	5: "DEMONSTRATION", 6: "ACCIDENT", 7: "HOLIDAY", 8: "WEATHER",
	9: "MAINTENANCE", 10: "CONSTRUCTION", 11: "POLICE_ACTIVITY", 12: "MEDICAL_EMERGENCY",
}

var effectMap = map[int32]string{
	1: "NO_SERVICE", 2: "REDUCED_SERVICE", 3: "SIGNIFICANT_DELAYS",
	4: "DETOUR", 5: "ADDITIONAL_SERVICE", 6: "MODIFIED_SERVICE",
	7: "OTHER_EFFECT", 8: "UNKNOWN_EFFECT", 9: "STOP_MOVED", 10: "NO_EFFECT",
}

func (ProtobufDecoder) DecodeAlerts(raw []byte) ([]Alert, error) {
	feed := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(raw, feed); err != nil {
		return nil, apperr.New(apperr.KindDecodeFailure, "decode.ProtobufDecoder.DecodeAlerts", err)
	}

	var out []Alert
	for _, entity := range feed.Entity {
		if entity.Alert == nil {
			continue
		}
		a := entity.Alert
		alert := Alert{AlertID: entity.GetId()}
		if a.Cause != nil {
			alert.Cause = causeMap[int32(a.GetCause())]
		}
		if a.Effect != nil {
			alert.Effect = effectMap[int32(a.GetEffect())]
		}
		alert.Header = bestTranslation(a.HeaderText)
		alert.Description = bestTranslation(a.DescriptionText)
		if a.Url != nil {
			alert.URL = bestTranslation(a.Url)
		}
		for _, p := range a.ActivePeriod {
			if p.Start != nil {
				t := time.Unix(int64(p.GetStart()), 0).UTC()
				alert.ActivePeriodStart = &t
			}
			if p.End != nil {
				t := time.Unix(int64(p.GetEnd()), 0).UTC()
				alert.ActivePeriodEnd = &t
			}
		}
		for _, ie := range a.InformedEntity {
			alert.InformedEntities = append(alert.InformedEntities, InformedEntity{
				RouteID: ie.GetRouteId(), StopID: ie.GetStopId(), TripID: ie.GetTrip().GetTripId(),
			})
		}
		out = append(out, alert)
	}
	return out, nil
}

// bestTranslation prefers the Spanish translation, else the first available
// (§4.B's "translations are per-language arrays, prefer Spanish else the
// first" rule, shared across both the Protobuf and Operator-JSON decoders).
func bestTranslation(ts *gtfsrt.TranslatedString) string {
	if ts == nil || len(ts.Translation) == 0 {
		return ""
	}
	for _, tr := range ts.Translation {
		if tr.GetLanguage() == "es" {
			return tr.GetText()
		}
	}
	return ts.Translation[0].GetText()
}
