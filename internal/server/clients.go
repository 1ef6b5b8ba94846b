package server

import (
	"fmt"
	"net/http"

	"github.com/icalvete/facturador/internal/httpx"
	"github.com/icalvete/facturador/internal/store"
)

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	var err error
	var clients any
	if q := r.URL.Query().Get("q"); q != "" {
		clients, err = h.store.SearchClients(r.Context(), q)
	} else {
		clients, err = h.store.Clients(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, clients)
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var in store.ClientInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.store.CreateClient(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logActivity(r, "create", "client", c.ID, fmt.Sprintf("Cliente creado: %s", c.Name))
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.store.ClientByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in store.ClientInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.store.UpdateClient(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logActivity(r, "update", "client", c.ID, fmt.Sprintf("Cliente actualizado: %s", c.Name))
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.DeleteClient(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logActivity(r, "delete", "client", id, "Cliente desactivado")
	httpx.JSON(w, http.StatusOK, nil)
}
