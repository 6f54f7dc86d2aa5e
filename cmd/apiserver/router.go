package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/mini-rodalies-3d/transit/internal/fusion"
	"github.com/mini-rodalies-3d/transit/internal/iss"
	"github.com/mini-rodalies-3d/transit/internal/raptor"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

// api wires the ISS, the DFE, and the MCJP to their HTTP handlers.
type api struct {
	ISS      *iss.Store
	Fusion   *fusion.Engine
	Planner  *raptor.Planner
	Store    store.DynamicStore
	Location *time.Location

	AdminToken string

	// Now lets tests inject a fixed clock; defaults to time.Now.
	Now func() time.Time
}

func (a *api) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().In(a.Location)
}

func (a *api) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.readyz)
	r.Post("/admin/reload", a.reload)

	r.Get("/agencies", a.requireISSLoaded(a.listAgencies))
	r.Get("/networks", a.requireISSLoaded(a.listAgencies))
	r.Get("/networks/{networkId}/lines", a.requireISSLoaded(a.networkLines))

	r.Get("/routes", a.requireISSLoaded(a.listRoutes))
	r.Get("/routes/{routeId}", a.requireISSLoaded(a.routeDetail))
	r.Get("/routes/{routeId}/stops", a.requireISSLoaded(a.routeStops))
	r.Get("/routes/{routeId}/frequencies", a.requireISSLoaded(a.routeFrequencies))
	r.Get("/routes/{routeId}/hours", a.requireISSLoaded(a.routeHours))
	r.Get("/routes/{routeId}/shape", a.requireISSLoaded(a.routeShape))

	r.Get("/stops", a.requireISSLoaded(a.listStops))
	r.Get("/stops/{stopId}", a.requireISSLoaded(a.stopDetail))
	r.Get("/stops/{stopId}/departures", a.requireISSLoaded(a.stopDepartures))
	r.Get("/stops/{stopId}/platforms", a.requireISSLoaded(a.stopPlatforms))
	r.Get("/stops/{stopId}/correspondences", a.requireISSLoaded(a.stopCorrespondences))

	r.Get("/trips/{tripId}", a.requireISSLoaded(a.tripDetail))

	r.Get("/journey", a.requireISSLoaded(a.planJourney))

	return r
}
