package main

import (
	"encoding/json"
	"net/http"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a typed error to its HTTP status per the error handling
// design (§7): NotFound -> 404, NotLoaded/Unavailable -> 503, MalformedID ->
// 400, everything else -> 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.Is(err, apperr.KindNotFound):
		status = http.StatusNotFound
	case apperr.Is(err, apperr.KindNotLoaded):
		status = http.StatusServiceUnavailable
	case apperr.Is(err, apperr.KindUnavailable):
		status = http.StatusServiceUnavailable
	case apperr.Is(err, apperr.KindMalformedID):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kindOf(err)})
}

func kindOf(err error) string {
	for _, k := range []apperr.Kind{
		apperr.KindNotLoaded, apperr.KindNotFound, apperr.KindMalformedID, apperr.KindDecodeFailure,
		apperr.KindFeedUnavailable, apperr.KindTimeout, apperr.KindPersistenceFailure,
		apperr.KindClassifierFailure, apperr.KindPartialData, apperr.KindUnavailable,
	} {
		if apperr.Is(err, k) {
			return k.String()
		}
	}
	return ""
}
