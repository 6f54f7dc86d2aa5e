package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mini-rodalies-3d/transit/internal/config"
	"github.com/mini-rodalies-3d/transit/internal/fusion"
	"github.com/mini-rodalies-3d/transit/internal/iss"
	"github.com/mini-rodalies-3d/transit/internal/raptor"
	"github.com/mini-rodalies-3d/transit/internal/store"
	"github.com/mini-rodalies-3d/transit/internal/store/devstore"
	"github.com/mini-rodalies-3d/transit/internal/store/pgstore"
)

func main() {
	log.Println("apiserver: starting")

	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := config.Load()
	dstore, closeStore, err := openStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("apiserver: failed to open store: %v", err)
	}
	defer closeStore()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("apiserver: unknown timezone %q, falling back to UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}

	schedule := iss.New(dstore)
	log.Println("apiserver: loading static schedule into the ISS")
	if err := schedule.Load(context.Background()); err != nil {
		// The process still starts: readiness stays 503 until a later
		// /admin/reload succeeds, rather than crash-looping on a transient
		// DB outage at boot.
		log.Printf("apiserver: initial ISS load failed, serving 503 until reload succeeds: %v", err)
	}

	a := &api{
		ISS:        schedule,
		Fusion:     &fusion.Engine{ISS: schedule, Store: dstore, Location: loc},
		Planner:    &raptor.Planner{ISS: schedule, Store: dstore, Location: loc},
		Store:      dstore,
		Location:   loc,
		AdminToken: cfg.AdminToken,
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      a.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("apiserver: listening on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("apiserver: server failed: %v", err)
	}
}

// openStore picks the persistence backend by URL scheme, the same
// postgres:// vs sqlite-file split the ingestor uses.
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
