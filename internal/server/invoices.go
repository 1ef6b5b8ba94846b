package server

import (
	"fmt"
	"net/http"

	"github.com/icalvete/facturador/internal/httpx"
	"github.com/icalvete/facturador/internal/pdf"
	"github.com/icalvete/facturador/internal/services"
	"github.com/icalvete/facturador/internal/store"
)

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.store.Invoices(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

// Totals are always recomputed server-side from the lines; whatever amounts
// the client sent are discarded.
func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var in store.InvoiceInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	in.Subtotal, in.VATTotal, in.Total, in.Lines = services.ComputeInvoiceTotals(in.Lines, in.Discount)
	inv, err := h.store.CreateInvoice(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logActivity(r, "create", "invoice", inv.ID, fmt.Sprintf("Factura creada: %s", inv.Number))
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	inv, err := h.store.InvoiceByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in store.InvoiceInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	in.Subtotal, in.VATTotal, in.Total, in.Lines = services.ComputeInvoiceTotals(in.Lines, in.Discount)
	inv, err := h.store.UpdateInvoice(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logActivity(r, "update", "invoice", inv.ID, fmt.Sprintf("Factura actualizada: %s", inv.Number))
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) updateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	inv, err := h.store.UpdateInvoiceStatus(r.Context(), id, body.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logActivity(r, "status", "invoice", inv.ID,
		fmt.Sprintf("Factura %s: estado %s", inv.Number, inv.Status))
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.DeleteInvoice(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logActivity(r, "delete", "invoice", id, "Factura eliminada")
	httpx.JSON(w, http.StatusOK, nil)
}

func (h *Handler) nextInvoiceNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.store.NextInvoiceNumber(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"number": number})
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	inv, err := h.store.InvoiceByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	client, err := h.store.ClientByID(r.Context(), inv.ClientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	settings, err := h.store.AppSettings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	doc, err := pdf.RenderInvoice(inv, client, settings)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", inv.Number+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}
