package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/httpx"
	"github.com/icalvete/facturador/internal/store"
)

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validationf("id", "invalid_id")
	}
	return id, nil
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Validationf("body", "invalid_json")
	}
	return nil
}

// logActivity records a mutation; failures are logged and swallowed so the
// log never blocks the actual operation.
func (h *Handler) logActivity(r *http.Request, action, entityType string, entityID int64, description string) {
	err := h.store.LogActivity(r.Context(), store.ActivityInput{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
	})
	if err != nil {
		h.logger.Warn("activity log write failed", "action", action, "error", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !apperrors.IsClientError(err) {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	httpx.Error(w, err)
}
