// Helper functions for sending standardized JSON responses.

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/movie-tracker/movietracker-web/internal/backend"
	"github.com/movie-tracker/movietracker-web/internal/dialog"
)

// RespondWithJSON writes a JSON response with the given status code and payload.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithError writes a standardized JSON error response.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// errorResponse carries per-field messages next to the error, for forms.
type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

// RespondWithAppError maps a core error to an HTTP status.
func RespondWithAppError(w http.ResponseWriter, err error) {
	code, kind := statusForError(err)
	if code >= 500 {
		log.Printf("Request failed: %v", err)
	}
	RespondWithJSON(w, code, errorResponse{
		Error:  err.Error(),
		Kind:   kind,
		Fields: backend.FieldErrors(err),
	})
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, dialog.ErrNotOpen), errors.Is(err, dialog.ErrSaving), errors.Is(err, dialog.ErrReplaced):
		return http.StatusConflict, "dialog"
	case errors.Is(err, backend.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, backend.ErrAuth):
		return http.StatusUnauthorized, "auth"
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, backend.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, backend.ErrNetwork):
		return http.StatusBadGateway, "network"
	case errors.Is(err, backend.ErrServer):
		return http.StatusBadGateway, "server"
	case errors.Is(err, backend.ErrUnknown):
		return http.StatusBadGateway, "unknown"
	}
	return http.StatusInternalServerError, "internal"
}
