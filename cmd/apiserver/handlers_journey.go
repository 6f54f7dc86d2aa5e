package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
)

var errMissingStops = errors.New("origin and destination are required")

const (
	defaultMaxTransfers   = 3
	defaultAlternatives   = 3
	journeyQueryParamTime = "2006-01-02T15:04:05"
)

// planJourney handles GET /journey?origin=&destination=&departure=&maxTransfers=&alternatives=
// — the MCJP entry point (§4.I).
func (a *api) planJourney(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin := q.Get("origin")
	destination := q.Get("destination")
	if origin == "" || destination == "" {
		writeError(w, apperr.New(apperr.KindMalformedID, "apiserver.planJourney", errMissingStops))
		return
	}

	departure := a.now()
	if v := q.Get("departure"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			departure = t
		} else if t, err := time.ParseInLocation(journeyQueryParamTime, v, a.Location); err == nil {
			departure = t
		}
	}

	maxTransfers := defaultMaxTransfers
	if v := q.Get("maxTransfers"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxTransfers = n
		}
	}
	alternatives := defaultAlternatives
	if v := q.Get("alternatives"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			alternatives = n
		}
	}

	result, err := a.Planner.PlanJourney(r.Context(), origin, destination, departure, maxTransfers, alternatives)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, journeyResponseFrom(result))
}
