package services

import (
	"github.com/shopspring/decimal"

	"github.com/icalvete/facturador/internal/store"
)

var hundred = decimal.NewFromInt(100)

// ComputeLine derives the amounts of one invoice line. Quantity times unit
// price, minus the line discount percentage, plus VAT. Each derived amount is
// rounded to cents.
func ComputeLine(qty, unitPrice, discountPct, vatPct decimal.Decimal) (subtotal, vat, total decimal.Decimal) {
	base := qty.Mul(unitPrice)
	if discountPct.IsPositive() {
		base = base.Sub(base.Mul(discountPct).Div(hundred))
	}
	subtotal = base.Round(2)
	vat = subtotal.Mul(vatPct).Div(hundred).Round(2)
	total = subtotal.Add(vat)
	return subtotal, vat, total
}

// ComputeInvoiceTotals fills the derived amounts of every line in place and
// returns the invoice subtotal, VAT total and grand total. The invoice-level
// discount is an absolute amount subtracted at the end:
// total = subtotal + vat − discount. Backends store whatever they are given
// and never re-verify this arithmetic; the API layer is the single caller
// that computes it.
func ComputeInvoiceTotals(lines []store.InvoiceLineInput, discount decimal.Decimal) (subtotal, vat, total decimal.Decimal, out []store.InvoiceLineInput) {
	out = make([]store.InvoiceLineInput, len(lines))
	for i, ln := range lines {
		s, v, t := ComputeLine(ln.Quantity, ln.UnitPrice, ln.Discount, ln.VATRate)
		ln.Subtotal, ln.VATAmount, ln.Total = s, v, t
		if ln.Position == 0 {
			ln.Position = i + 1
		}
		out[i] = ln
		subtotal = subtotal.Add(s)
		vat = vat.Add(v)
	}
	total = subtotal.Add(vat)
	if discount.IsPositive() {
		total = total.Sub(discount)
	}
	return subtotal, vat, total, out
}
