package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/classifier"
	"github.com/mini-rodalies-3d/transit/internal/config"
	"github.com/mini-rodalies-3d/transit/internal/decode"
	"github.com/mini-rodalies-3d/transit/internal/ids"
	"github.com/mini-rodalies-3d/transit/internal/platform"
	"github.com/mini-rodalies-3d/transit/internal/store/devstore"
)

// fakeDecoder returns a single canned vehicle position/trip update pair, so
// the worker pipeline can be exercised without a live feed.
type fakeDecoder struct{}

func (fakeDecoder) DecodeVehiclePositions(raw []byte) ([]decode.VehiclePosition, error) {
	return []decode.VehiclePosition{{
		VehicleID: "veh1", TripID: "8842", RouteID: "S1", Status: "STOPPED_AT",
		StopID: "100", Timestamp: time.Now(),
	}}, nil
}

func (fakeDecoder) DecodeTripUpdates(raw []byte) ([]decode.TripUpdate, error) {
	return []decode.TripUpdate{{
		TripID: "8842", Timestamp: time.Now(),
		StopTimeUpdates: []decode.StopTimeUpdate{{StopID: "100", Headsign: "Terrassa"}},
	}}, nil
}

func (fakeDecoder) DecodeAlerts(raw []byte) ([]decode.Alert, error) { return nil, nil }

type fakeFetcher struct{}

func (fakeFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	return []byte("stub"), nil
}

func TestOrchestrator_RunWorker_PersistsNormalizedData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ingest_test.db")
	dstore, err := devstore.Open(dbPath)
	if err != nil {
		t.Fatalf("devstore.Open: %v", err)
	}
	defer dstore.Close()

	o := &Orchestrator{
		Config:        &config.Config{FetchTimeout: 5 * time.Second},
		Store:         dstore,
		Recorder:      platform.Recorder{Store: dstore},
		PostProcessor: platform.PostProcessor{Store: dstore, Recorder: platform.Recorder{Store: dstore}},
		Classifier:    classifier.NoOp{},
		Fetcher:       fakeFetcher{},
	}

	w := OperatorWorker{
		Operator: ids.FGC,
		URLs:     config.OperatorURLs{VehiclePositions: "http://example.test/vp", TripUpdates: "http://example.test/tu"},
		Decoder:  fakeDecoder{},
	}

	ctx := context.Background()
	result, err := o.runWorker(ctx, w)
	if err != nil {
		t.Fatalf("runWorker: %v", err)
	}
	if len(result.pending) != 1 || result.pending[0].StopID != "FGC_100" {
		t.Errorf("pending assignments = %+v, want one entry for FGC_100", result.pending)
	}

	positions, err := dstore.VehiclePositionsByTrip(ctx, []string{"8842"})
	if err != nil {
		t.Fatalf("VehiclePositionsByTrip (raw id): %v", err)
	}
	if len(positions) != 0 {
		t.Fatalf("expected no match for un-normalized trip id, got %v", positions)
	}

	positions, err = dstore.VehiclePositionsByTrip(ctx, []string{"FGC_8842"})
	if err != nil {
		t.Fatalf("VehiclePositionsByTrip: %v", err)
	}
	pos, ok := positions["FGC_8842"]
	if !ok {
		t.Fatalf("expected normalized position for FGC_8842, got %v", positions)
	}
	if pos.StopID != "FGC_100" {
		t.Errorf("StopID = %q, want FGC_100", pos.StopID)
	}
}
