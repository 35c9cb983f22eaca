package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/lootmap/pkg/location"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, status int, msg string) {
	writeJSON(w, log, status, ErrorResponse{Error: msg})
}

// writeStoreError maps the store's error taxonomy onto HTTP status codes
func writeStoreError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, location.ErrValidation):
		writeError(w, log, http.StatusBadRequest, err.Error())
	case errors.Is(err, location.ErrNotFound):
		writeError(w, log, http.StatusNotFound, err.Error())
	case errors.Is(err, location.ErrStorage):
		log.Error("Storage failure", "error", err)
		writeError(w, log, http.StatusInternalServerError, "Failed to persist locations")
	default:
		log.Error("Unexpected store error", "error", err)
		writeError(w, log, http.StatusInternalServerError, "Internal server error")
	}
}
