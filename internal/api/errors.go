package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
	"github.com/edmondoalex/buspro-core/internal/device"
	"github.com/edmondoalex/buspro-core/internal/store"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, device.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, device.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, device.ErrValidation), errors.Is(err, buspro.ErrInvalidAddress):
		status = http.StatusBadRequest
	case errors.Is(err, buspro.ErrTransportNotReady):
		// Commands before the socket is bound fail visibly, not silently.
		status = http.StatusServiceUnavailable
	case errors.Is(err, store.ErrPersistence):
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeUnauthorized writes a 401 with the standard envelope.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: msg})
}

// writeBadRequest writes a 400 with the standard envelope.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
