package decode

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
)

// imetroStation is one TMB iMetro station block: a flat array of
// station/direction groups, each with its own arrivals list — grounded
// directly on the teacher's metro/client.go fetchArrivals decode.
type imetroStation struct {
	CodiLinia    int    `json:"codi_linia"`
	CodiVia      int    `json:"codi_via"`
	CodiEstacio  int    `json:"codi_estacio"`
	PropersTrens []struct {
		CodiServei    string `json:"codi_servei"`
		NomLinia      string `json:"nom_linia"`
		TempsRestant  int    `json:"temps_restant"`
		DestiTrajecte string `json:"desti_trajecte"`
		CodiTrajecte  string `json:"codi_trajecte"`
		OcupacioPercent *int `json:"ocupacio_percent"`
	} `json:"propers_trens"`
}

// RESTPredictionsDecoder decodes TMB iMetro and Metrovalencia's REST
// prediction endpoints: a flat list of station/direction blocks, each
// carrying a list of upcoming trains expressed as seconds-until-arrival
// (`temps_restant`) rather than an absolute timestamp or stop_sequence.
// There is no native trip_id in this format, so one is synthesized.
type RESTPredictionsDecoder struct {
	// StopCodeResolver maps a numeric station code (codi_estacio) to the
	// canonical stop ID; required because the feed only carries the bare
	// integer, not a GTFS stop_id.
	StopCodeResolver func(codiEstacio int) (stopID string, ok bool)
	// Now lets tests inject a fixed clock; defaults to time.Now if nil.
	Now func() time.Time
}

func (d RESTPredictionsDecoder) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// DecodePredictions turns the raw iMetro/Metrovalencia response into
// VehiclePositions (one synthetic "vehicle" per predicted train) and
// TripUpdates (one per predicted train, carrying the converted arrival
// time and platform/occupancy if present).
func (d RESTPredictionsDecoder) DecodePredictions(raw []byte) ([]VehiclePosition, []TripUpdate, error) {
	var stations []imetroStation
	if err := json.Unmarshal(raw, &stations); err != nil {
		return nil, nil, apperr.New(apperr.KindDecodeFailure, "decode.RESTPredictionsDecoder.DecodePredictions", err)
	}

	now := d.now()
	var positions []VehiclePosition
	var updates []TripUpdate

	for _, st := range stations {
		lineCode := fmt.Sprintf("L%d", st.CodiLinia)
		stopID := fmt.Sprintf("%d", st.CodiEstacio)
		if d.StopCodeResolver != nil {
			if resolved, ok := d.StopCodeResolver(st.CodiEstacio); ok {
				stopID = resolved
			}
		}
		platform := fmt.Sprintf("%d", st.CodiVia)

		for _, train := range st.PropersTrens {
			if train.CodiServei == "" {
				continue
			}
			if train.NomLinia != "" {
				lineCode = train.NomLinia
			}

			// Synthetic trip_id: <line>_<route_code>_<train_id>, since the
			// REST format has no native GTFS trip_id (§4.B).
			routeCode := strings.TrimSpace(train.CodiTrajecte)
			tripID := fmt.Sprintf("%s_%s_%s", lineCode, routeCode, train.CodiServei)
			arrival := now.Add(time.Duration(train.TempsRestant) * time.Second)

			status := "IN_TRANSIT_TO"
			if train.TempsRestant <= 0 {
				status = "STOPPED_AT"
			} else if train.TempsRestant <= 30 {
				status = "INCOMING_AT"
			}

			positions = append(positions, VehiclePosition{
				VehicleID: tripID,
				TripID:    tripID,
				RouteID:   lineCode,
				Status:    status,
				StopID:    stopID,
				Platform:  platform,
				Timestamp: now,
			})

			update := TripUpdate{
				TripID:    tripID,
				Timestamp: now,
				StopTimeUpdates: []StopTimeUpdate{{
					StopID:           stopID,
					ArrivalTime:      &arrival,
					Platform:         platform,
					OccupancyPercent: train.OcupacioPercent,
					Headsign:         train.DestiTrajecte,
				}},
			}
			updates = append(updates, update)
		}
	}
	return positions, updates, nil
}
