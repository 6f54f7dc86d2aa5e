package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"
)

// readyz handles GET /readyz: until the ISS has completed its first load,
// departures/planner endpoints must refuse traffic (§5 "Health readiness").
func (a *api) readyz(w http.ResponseWriter, r *http.Request) {
	if !a.ISS.Loaded() {
		writeJSON(w, http.StatusServiceUnavailable, readyState{Status: "loading", Timestamp: time.Now().UTC()})
		return
	}
	writeJSON(w, http.StatusOK, readyState{Status: "ready", Timestamp: time.Now().UTC()})
}

// healthz is a liveness probe: it never blocks on ISS state, only on the
// process being able to respond at all.
func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, readyState{Status: "ok", Timestamp: time.Now().UTC()})
}

// requireISSLoaded gates a handler behind the readiness rule.
func (a *api) requireISSLoaded(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.ISS.Loaded() {
			writeJSON(w, http.StatusServiceUnavailable, readyState{Status: "loading", Timestamp: time.Now().UTC(), Detail: "static schedule not yet loaded"})
			return
		}
		next(w, r)
	}
}

// reload handles POST /admin/reload: rebuilds the ISS snapshot from the
// persistence layer. ADMIN_TOKEN is required and compared in constant time
// (§6) to avoid a timing side-channel on the token check.
func (a *api) reload(w http.ResponseWriter, r *http.Request) {
	if a.AdminToken == "" {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "reload endpoint disabled: ADMIN_TOKEN not configured"})
		return
	}
	token := r.Header.Get("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.AdminToken)) != 1 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid admin token"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()
	if err := a.ISS.Reload(ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readyState{Status: "reloaded", Timestamp: time.Now().UTC()})
}
