// Package ingest implements the Real-Time Ingestion Engine (§4.F): a single
// orchestrator loop that fans fetch-decode-normalize-persist work out to one
// worker per operator on every tick, then runs the Platform Post-Processor.
package ingest

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/classifier"
	"github.com/mini-rodalies-3d/transit/internal/config"
	"github.com/mini-rodalies-3d/transit/internal/decode"
	"github.com/mini-rodalies-3d/transit/internal/ids"
	"github.com/mini-rodalies-3d/transit/internal/platform"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// Decoder is the common shape ProtobufDecoder and OperatorJSONDecoder both
// satisfy — every operator except TMB/Metrovalencia's REST endpoint, which
// is handled separately since it has no native trip_id.
type Decoder interface {
	DecodeVehiclePositions(raw []byte) ([]decode.VehiclePosition, error)
	DecodeTripUpdates(raw []byte) ([]decode.TripUpdate, error)
	DecodeAlerts(raw []byte) ([]decode.Alert, error)
}

// OperatorWorker describes one operator's feed endpoints and decoder.
type OperatorWorker struct {
	Operator ids.Operator
	URLs     config.OperatorURLs
	Decoder  Decoder // nil when REST is set
	REST     *decode.RESTPredictionsDecoder
}

// Orchestrator runs the fixed-tick ingestion loop described in §4.F.
type Orchestrator struct {
	Config        *config.Config
	Store         store.DynamicStore
	Recorder      platform.Recorder
	PostProcessor platform.PostProcessor
	Classifier    classifier.AlertClassifier
	Fetcher       Fetcher
	Workers       []OperatorWorker

	fetchCount int64
	errorCount int64
	lastFetch  atomic.Int64 // unix nanos
}

// Stats is a point-in-time snapshot of orchestrator counters, exposed for
// the API's readiness/health endpoints.
type Stats struct {
	FetchCount int64
	ErrorCount int64
	LastFetch  time.Time
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		FetchCount: atomic.LoadInt64(&o.fetchCount),
		ErrorCount: atomic.LoadInt64(&o.errorCount),
		LastFetch:  time.Unix(0, o.lastFetch.Load()),
	}
}

// Run starts the orchestrator loop: an immediate tick, then one every
// Config.TickInterval, until ctx is cancelled. On cancellation, in-flight
// workers are given up to their own WorkerTimeout to finish before Run
// returns (§4.F "Cancellation").
func (o *Orchestrator) Run(ctx context.Context) {
	log.Println("ingest: starting RTIE orchestrator")
	o.tick(ctx)

	ticker := time.NewTicker(o.Config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.tick(ctx)
		case <-ctx.Done():
			log.Println("ingest: orchestrator stopped")
			return
		}
	}
}

func (o *Orchestrator) tick(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, o.Config.TickDeadline)
	defer cancel()

	o.evictStaleData(ctx)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		pending []platform.PendingAssignment
		renfe   []string
	)
	for _, w := range o.Workers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			workerCtx, cancel := context.WithTimeout(ctx, o.Config.WorkerTimeout)
			defer cancel()
			result, err := o.runWorker(workerCtx, w)
			if err != nil {
				atomic.AddInt64(&o.errorCount, 1)
				log.Printf("ingest: worker %s failed: %v", w.Operator, err)
				return
			}
			mu.Lock()
			pending = append(pending, result.pending...)
			if w.Operator == ids.Renfe {
				renfe = append(renfe, result.touchedStops...)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	atomic.AddInt64(&o.fetchCount, 1)
	o.lastFetch.Store(time.Now().UnixNano())

	o.PostProcessor.Run(ctx, pending, renfe)
}

// evictStaleData runs the §4.F pre-ingestion cleanup: stale TripUpdates and
// alerts past their active period (or abandoned with no end date).
func (o *Orchestrator) evictStaleData(ctx context.Context) {
	now := time.Now().UTC()
	if n, err := o.Store.PurgeStaleTripUpdates(ctx, now.Add(-o.Config.RetentionWindow)); err != nil {
		log.Printf("ingest: stale trip_update eviction failed: %v", err)
	} else if n > 0 {
		log.Printf("ingest: evicted %d stale trip updates", n)
	}
	if n, err := o.Store.PurgeExpiredAlerts(ctx, now); err != nil {
		log.Printf("ingest: expired alert eviction failed: %v", err)
	} else if n > 0 {
		log.Printf("ingest: evicted %d expired alerts", n)
	}
}
