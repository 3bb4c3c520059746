package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeLedgerError maps ledger failures onto HTTP statuses.
func writeLedgerError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, scoreboard.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scoreboard.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scoreboard.ErrStateCorrupt):
		logger.Error("stored state is corrupt", "error", err)
		writeError(w, http.StatusInternalServerError, "stored state is corrupt")
	default:
		logger.Error("ledger operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
