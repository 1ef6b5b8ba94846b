package pdf_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/pdf"
	"github.com/icalvete/facturador/internal/store"
)

func TestRenderInvoice(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := &models.Invoice{
		ID:        1,
		Number:    "FAC-2026-0001",
		ClientID:  1,
		IssueDate: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		DueDate:   &due,
		Subtotal:  decimal.RequireFromString("100.00"),
		VATTotal:  decimal.RequireFromString("21.00"),
		Total:     decimal.RequireFromString("121.00"),
		Status:    models.StatusSent,
		Notes:     "Gracias por su confianza",
		Lines: []models.InvoiceLine{
			{
				Concept:   "Desarrollo web",
				Quantity:  decimal.RequireFromString("10"),
				UnitPrice: decimal.RequireFromString("10.00"),
				VATRate:   decimal.RequireFromString("21"),
				Total:     decimal.RequireFromString("121.00"),
			},
		},
	}
	client := &models.Client{
		ID:    1,
		Name:  "Acme SL",
		TaxID: "B12345678",
		Email: "facturas@acme.es",
	}
	settings := store.BuildAppSettings(nil)

	doc, err := pdf.RenderInvoice(inv, client, settings)
	require.NoError(t, err)
	require.NotEmpty(t, doc)
	assert.Equal(t, "%PDF", string(doc[:4]))
}

func TestRenderInvoiceWithoutOptionalFields(t *testing.T) {
	inv := &models.Invoice{
		Number:    "FAC-2026-0002",
		IssueDate: time.Now(),
		Subtotal:  decimal.Zero,
		VATTotal:  decimal.Zero,
		Total:     decimal.Zero,
	}
	client := &models.Client{Name: "Mínimo SL"}

	doc, err := pdf.RenderInvoice(inv, client, store.BuildAppSettings(nil))
	require.NoError(t, err)
	assert.NotEmpty(t, doc)
}
