package services_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icalvete/facturador/internal/services"
	"github.com/icalvete/facturador/internal/store"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeLine(t *testing.T) {
	sub, vat, total := services.ComputeLine(dec("10"), dec("10.00"), decimal.Zero, dec("21"))
	assert.True(t, sub.Equal(dec("100.00")), "subtotal %s", sub)
	assert.True(t, vat.Equal(dec("21.00")), "vat %s", vat)
	assert.True(t, total.Equal(dec("121.00")), "total %s", total)
}

func TestComputeLineDiscount(t *testing.T) {
	// 3 × 50 = 150, minus 10% = 135, plus 21% VAT = 163.35
	sub, vat, total := services.ComputeLine(dec("3"), dec("50.00"), dec("10"), dec("21"))
	assert.True(t, sub.Equal(dec("135.00")), "subtotal %s", sub)
	assert.True(t, vat.Equal(dec("28.35")), "vat %s", vat)
	assert.True(t, total.Equal(dec("163.35")), "total %s", total)
}

func TestComputeLineRounding(t *testing.T) {
	// 0.333 × 9.99 = 3.32667 → 3.33 at the cents boundary.
	sub, vat, _ := services.ComputeLine(dec("0.333"), dec("9.99"), decimal.Zero, dec("21"))
	assert.True(t, sub.Equal(dec("3.33")), "subtotal %s", sub)
	assert.True(t, vat.Equal(dec("0.70")), "vat %s", vat)
}

func TestComputeInvoiceTotals(t *testing.T) {
	lines := []store.InvoiceLineInput{
		{Concept: "Diseño", Quantity: dec("2"), UnitPrice: dec("100.00"), VATRate: dec("21")},
		{Concept: "Hosting", Quantity: dec("1"), UnitPrice: dec("50.00"), VATRate: dec("10")},
	}
	subtotal, vat, total, out := services.ComputeInvoiceTotals(lines, decimal.Zero)

	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Position)
	assert.Equal(t, 2, out[1].Position)
	assert.True(t, out[0].Subtotal.Equal(dec("200.00")))
	assert.True(t, out[1].VATAmount.Equal(dec("5.00")))

	assert.True(t, subtotal.Equal(dec("250.00")), "subtotal %s", subtotal)
	assert.True(t, vat.Equal(dec("47.00")), "vat %s", vat)
	assert.True(t, total.Equal(dec("297.00")), "total %s", total)
}

func TestComputeInvoiceTotalsGlobalDiscount(t *testing.T) {
	lines := []store.InvoiceLineInput{
		{Concept: "Servicio", Quantity: dec("1"), UnitPrice: dec("100.00"), VATRate: dec("21")},
	}
	_, _, total, _ := services.ComputeInvoiceTotals(lines, dec("20.00"))
	assert.True(t, total.Equal(dec("101.00")), "total %s", total)
}

func TestComputeInvoiceTotalsKeepsPositions(t *testing.T) {
	lines := []store.InvoiceLineInput{
		{Concept: "B", Quantity: dec("1"), UnitPrice: dec("1"), Position: 2},
		{Concept: "A", Quantity: dec("1"), UnitPrice: dec("1"), Position: 1},
	}
	_, _, _, out := services.ComputeInvoiceTotals(lines, decimal.Zero)
	assert.Equal(t, 2, out[0].Position, "explicit positions are preserved")
	assert.Equal(t, 1, out[1].Position)
}

func TestComputeInvoiceTotalsEmpty(t *testing.T) {
	subtotal, vat, total, out := services.ComputeInvoiceTotals(nil, decimal.Zero)
	assert.Empty(t, out)
	assert.True(t, subtotal.IsZero())
	assert.True(t, vat.IsZero())
	assert.True(t, total.IsZero())
}
