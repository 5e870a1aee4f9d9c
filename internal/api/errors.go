package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rushdelivery/rush-core/internal/auth"
	"github.com/rushdelivery/rush-core/internal/tracking"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
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

// writeValidationError writes a 400 error response for rejected input.
func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeStoreError maps store and auth failures to transport responses.
// Every typed failure surfaces one stable code; anything unrecognised is
// an internal error.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracking.ErrParcelNotFound),
		errors.Is(err, tracking.ErrDriverNotFound),
		errors.Is(err, tracking.ErrUserNotFound),
		errors.Is(err, tracking.ErrNotificationNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, tracking.ErrEmailExists),
		errors.Is(err, tracking.ErrTrackingIDExists),
		errors.Is(err, tracking.ErrStatusOrder):
		writeConflict(w, err.Error())
	case errors.Is(err, tracking.ErrInvalidStatus),
		errors.Is(err, tracking.ErrInvalidField):
		writeValidationError(w, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeForbidden(w, err.Error())
	case errors.Is(err, auth.ErrNoCredential),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, err.Error())
	default:
		writeInternalError(w, "internal server error")
	}
}
