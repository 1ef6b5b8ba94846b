// Package httpx holds the JSON envelope helpers used by every handler.
// Success bodies are {"success":true,"data":...}; failures are
// {"success":false,"error":...} with optional per-field details.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/icalvete/facturador/internal/apperrors"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Success: true, Data: data})
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	write(w, status, envelope{Success: false, Error: msg, Details: details})
}

// Error maps storage errors onto HTTP statuses: validation 400, not found
// 404, duplicate 409, anything else 500 with a generic message.
func Error(w http.ResponseWriter, err error) {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		JSONError(w, http.StatusBadRequest, "validation_failed", verr.Violations)
	case errors.Is(err, apperrors.ErrValidation):
		JSONError(w, http.StatusBadRequest, "validation_failed", nil)
	case errors.Is(err, apperrors.ErrNotFound):
		JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, apperrors.ErrDuplicate):
		JSONError(w, http.StatusConflict, "duplicate", nil)
	default:
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(payload)
	if err != nil {
		// best-effort error response; avoid writing partial JSON
		http.Error(w, `{"success":false,"error":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}
