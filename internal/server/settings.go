package server

import (
	"context"
	"net/http"

	"github.com/icalvete/facturador/internal/httpx"
)

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.AppSettings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) saveCompanySettings(w http.ResponseWriter, r *http.Request) {
	h.saveSettings(w, r, h.store.SaveCompanySettings)
}

func (h *Handler) saveInvoiceSettings(w http.ResponseWriter, r *http.Request) {
	h.saveSettings(w, r, h.store.SaveInvoiceSettings)
}

// saveSettings merges the posted keys and returns the resulting full view so
// the client never needs a follow-up GET.
func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request,
	save func(ctx context.Context, values map[string]string) error) {
	var values map[string]string
	if err := decode(r, &values); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := save(r.Context(), values); err != nil {
		h.fail(w, r, err)
		return
	}
	settings, err := h.store.AppSettings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logActivity(r, "update", "settings", 0, "Configuración guardada")
	httpx.JSON(w, http.StatusOK, settings)
}
