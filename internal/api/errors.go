package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/tavernlight-core/internal/audio"
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeUnavailable    = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps package sentinel errors to HTTP responses.
// Anything unrecognised becomes a 500 with a generic message.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case catalog.IsNotFound(err),
		errors.Is(err, orchestrator.ErrRecordNotFound),
		errors.Is(err, catalog.ErrPlaylistNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, audio.ErrInvalidVolume),
		errors.Is(err, audio.ErrUnknownCategory),
		errors.Is(err, audio.ErrEmptySource),
		errors.Is(err, audio.ErrUnsupportedFormat),
		errors.Is(err, catalog.ErrEmptyPlaylist):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, audio.ErrNoMusic):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, audio.ErrPlaybackRejected):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case errors.Is(err, orchestrator.ErrShuttingDown):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		writeInternalError(w, fallback)
	}
}
