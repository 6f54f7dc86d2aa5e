package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mini-rodalies-3d/transit/internal/classifier"
	"github.com/mini-rodalies-3d/transit/internal/config"
	"github.com/mini-rodalies-3d/transit/internal/decode"
	"github.com/mini-rodalies-3d/transit/internal/ids"
	"github.com/mini-rodalies-3d/transit/internal/ingest"
	"github.com/mini-rodalies-3d/transit/internal/iss"
	"github.com/mini-rodalies-3d/transit/internal/platform"
	"github.com/mini-rodalies-3d/transit/internal/store"
	"github.com/mini-rodalies-3d/transit/internal/store/devstore"
	"github.com/mini-rodalies-3d/transit/internal/store/pgstore"
)

func main() {
	log.Println("ingestor: starting")

	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := config.Load()
	dstore, closeStore, err := openStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("ingestor: failed to open store: %v", err)
	}
	defer closeStore()

	// The ingestor needs a static schedule lookup only for the Renfe visor
	// fallback's trip_id -> (stop, route, headsign) correlation (§4.G step
	// 2); it never serves schedule queries itself, so one best-effort load
	// at boot is enough — a failure here degrades the visor fallback only,
	// it never blocks ingestion.
	schedule := iss.New(dstore)
	if err := schedule.Load(context.Background()); err != nil {
		log.Printf("ingestor: static schedule load failed, visor trip lookup disabled: %v", err)
	}

	recorder := platform.Recorder{Store: dstore}
	postProcessor := platform.PostProcessor{
		Store:            dstore,
		Recorder:         recorder,
		VisorURLTemplate: cfg.RenfeVisorURLTemplate,
		ResolveStopCode:  renfeStopCodeResolver,
		LookupTrip:       tripLookup(schedule),
	}

	orchestrator := &ingest.Orchestrator{
		Config:        cfg,
		Store:         dstore,
		Recorder:      recorder,
		PostProcessor: postProcessor,
		Classifier:    classifier.NoOp{},
		Workers:       buildWorkers(cfg),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go orchestrator.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("ingestor: shutting down")
	cancel()
}

// openStore picks the persistence backend by URL scheme: a postgres:// or
// postgresql:// DSN uses pgstore, anything else is treated as a devstore
// (SQLite) file path — the same dual-backend split used by the test suite.
func openStore(databaseURL string) (store.Store, func(), error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		s, err := pgstore.Open(context.Background(), databaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	s, err := devstore.Open(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

// buildWorkers wires one OperatorWorker per real-time feed (§4.F): standard
// GTFS-RT Protobuf for Metro Bilbao/Euskotren/FGC, Renfe's JSON translation
// of the same fields, and REST predictions (TMB iMetro, Metrovalencia) for
// operators with no native GTFS-RT feed.
func buildWorkers(cfg *config.Config) []ingest.OperatorWorker {
	workers := []ingest.OperatorWorker{
		{Operator: ids.Renfe, URLs: cfg.Renfe, Decoder: decode.OperatorJSONDecoder{}},
		{Operator: ids.MetroBilbao, URLs: cfg.MetroBilbao, Decoder: decode.ProtobufDecoder{}},
		{Operator: ids.Euskotren, URLs: cfg.Euskotren, Decoder: decode.ProtobufDecoder{}},
		{Operator: ids.FGC, URLs: cfg.FGC, Decoder: decode.ProtobufDecoder{}},
	}

	if cfg.TMBAppID != "" && cfg.TMBAppKey != "" {
		workers = append(workers, ingest.OperatorWorker{
			Operator: ids.TMB,
			URLs:     cfg.TMB,
			REST:     &decode.RESTPredictionsDecoder{StopCodeResolver: restStopCodeResolver},
		})
	} else {
		log.Println("ingestor: TMB_APP_ID/TMB_APP_KEY not set, disabling the TMB worker")
	}

	if cfg.Metrovalencia.VehiclePositions != "" {
		workers = append(workers, ingest.OperatorWorker{
			Operator: ids.Metro,
			URLs:     cfg.Metrovalencia,
			REST:     &decode.RESTPredictionsDecoder{StopCodeResolver: restStopCodeResolver},
		})
	}

	return workers
}

// restStopCodeResolver hands the raw station code straight to the
// Identifier Normalizer's prefixing step; the REST feeds carry no other
// stop identifier, so the numeric station code IS the native suffix.
func restStopCodeResolver(codiEstacio int) (string, bool) {
	return strconv.Itoa(codiEstacio), true
}

// renfeStopCodeResolver inverts PrefixStop for the visor fallback: Renfe
// canonical stop IDs are "RENFE_<native code>", so stripping the prefix
// recovers the code the visor endpoint expects in its URL path.
func renfeStopCodeResolver(stopID string) (string, bool) {
	const prefix = "RENFE_"
	if !strings.HasPrefix(stopID, prefix) {
		return "", false
	}
	return strings.TrimPrefix(stopID, prefix), true
}

// tripLookup adapts the ISS to platform.TripLookup, used only by the Renfe
// visor fallback to resolve a trip_id into the (stop, route, headsign)
// triple its JSON response doesn't carry.
func tripLookup(schedule *iss.Store) platform.TripLookup {
	return func(tripID string) (stopID, routeShortName, headsign string, ok bool) {
		trip, err := schedule.GetTripInfo(tripID)
		if err != nil {
			return "", "", "", false
		}
		route, err := schedule.GetRouteInfo(trip.RouteID)
		if err != nil {
			return "", "", "", false
		}
		stopTimes, err := schedule.GetStopTimes(tripID)
		if err != nil || len(stopTimes) == 0 {
			return "", "", "", false
		}
		return stopTimes[0].StopID, ids.ExtractRouteShortName(route.ShortName, trip.Headsign), trip.Headsign, true
	}
}
