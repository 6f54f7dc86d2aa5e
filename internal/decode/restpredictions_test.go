package decode

import (
	"testing"
	"time"
)

func TestRESTPredictionsDecoder_DecodePredictions(t *testing.T) {
	fixedNow := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	raw := []byte(`[
		{
			"codi_linia": 1, "codi_via": 2, "codi_estacio": 105,
			"propers_trens": [
				{"codi_servei": "S123", "nom_linia": "L1", "temps_restant": 45, "desti_trajecte": "Hospital de Bellvitge", "codi_trajecte": "A"}
			]
		}
	]`)

	d := RESTPredictionsDecoder{
		StopCodeResolver: func(code int) (string, bool) {
			if code == 105 {
				return "TMB_METRO_1.105", true
			}
			return "", false
		},
		Now: func() time.Time { return fixedNow },
	}

	positions, updates, err := d.DecodePredictions(raw)
	if err != nil {
		t.Fatalf("DecodePredictions: %v", err)
	}
	if len(positions) != 1 || len(updates) != 1 {
		t.Fatalf("expected 1 position and 1 update, got %d/%d", len(positions), len(updates))
	}

	pos := positions[0]
	if pos.StopID != "TMB_METRO_1.105" {
		t.Errorf("StopID = %q, want resolved canonical stop", pos.StopID)
	}
	if pos.Platform != "2" {
		t.Errorf("Platform = %q, want codi_via '2'", pos.Platform)
	}
	if pos.Status != "INCOMING_AT" {
		t.Errorf("Status = %q, want INCOMING_AT for temps_restant=45", pos.Status)
	}
	wantTripID := "L1_A_S123"
	if pos.TripID != wantTripID {
		t.Errorf("TripID = %q, want %q", pos.TripID, wantTripID)
	}

	update := updates[0]
	wantArrival := fixedNow.Add(45 * time.Second)
	if len(update.StopTimeUpdates) != 1 || !update.StopTimeUpdates[0].ArrivalTime.Equal(wantArrival) {
		t.Errorf("arrival time = %v, want %v", update.StopTimeUpdates[0].ArrivalTime, wantArrival)
	}
}

func TestRESTPredictionsDecoder_SkipsBlankTrainID(t *testing.T) {
	raw := []byte(`[{"codi_linia": 3, "codi_via": 1, "codi_estacio": 1, "propers_trens": [{"codi_servei": "", "temps_restant": 10}]}]`)
	d := RESTPredictionsDecoder{}
	positions, updates, err := d.DecodePredictions(raw)
	if err != nil {
		t.Fatalf("DecodePredictions: %v", err)
	}
	if len(positions) != 0 || len(updates) != 0 {
		t.Errorf("expected blank codi_servei to be skipped, got %d positions, %d updates", len(positions), len(updates))
	}
}
