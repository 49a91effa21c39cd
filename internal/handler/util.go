package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/promptdeck/agent-platform/internal/model"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeDomainError maps the error taxonomy to HTTP statuses. Forbidden maps
// to the same 404 body as NotFound so ownership checks never leak existence.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrUpstreamTimeout):
		writeError(w, http.StatusGatewayTimeout, "completion provider timed out")
	case errors.Is(err, model.ErrUpstream):
		writeError(w, http.StatusBadGateway, "completion provider failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
