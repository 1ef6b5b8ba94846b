// Package pdf renders a finalized invoice to PDF bytes with maroto.
package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/icalvete/facturador/internal/models"
)

func euros(d decimal.Decimal) string {
	return d.StringFixed(2) + " €"
}

// RenderInvoice produces the printable document. Company data comes from the
// stored settings, so a fresh install still renders with the defaults.
func RenderInvoice(inv *models.Invoice, client *models.Client, settings *models.AppSettings) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build()
	m := maroto.New(cfg)

	addHeader(m, inv, settings.Company)
	addParties(m, client)
	addLineTable(m, inv.Lines)
	addTotals(m, inv)
	addFooter(m, inv, settings.Invoice)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generate %s: %w", inv.Number, err)
	}
	return doc.GetBytes(), nil
}

func addHeader(m core.Maroto, inv *models.Invoice, company map[string]string) {
	m.AddRow(12,
		text.NewCol(8, company["company_name"], props.Text{
			Size: 16, Style: fontstyle.Bold,
		}),
		text.NewCol(4, "FACTURA", props.Text{
			Size: 16, Style: fontstyle.Bold, Align: align.Right,
		}),
	)
	m.AddRow(6,
		text.NewCol(8, company["company_tax_id"], props.Text{Size: 9}),
		text.NewCol(4, inv.Number, props.Text{Size: 11, Align: align.Right}),
	)
	m.AddRow(6,
		text.NewCol(8, company["company_address"], props.Text{Size: 9}),
		text.NewCol(4, "Fecha: "+inv.IssueDate.Format("02/01/2006"), props.Text{
			Size: 9, Align: align.Right,
		}),
	)
	due := ""
	if inv.DueDate != nil {
		due = "Vencimiento: " + inv.DueDate.Format("02/01/2006")
	}
	m.AddRow(6,
		text.NewCol(8, company["company_city"], props.Text{Size: 9}),
		text.NewCol(4, due, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(4, line.NewCol(12))
}

func addParties(m core.Maroto, client *models.Client) {
	m.AddRow(8, text.NewCol(12, "Facturar a:", props.Text{Size: 10, Style: fontstyle.Bold}))
	m.AddRow(5, text.NewCol(12, client.Name, props.Text{Size: 10}))
	if client.TaxID != "" {
		m.AddRow(5, text.NewCol(12, "NIF/CIF: "+client.TaxID, props.Text{Size: 9}))
	}
	if client.Address != "" {
		addr := client.Address
		if client.City != "" {
			addr += ", " + client.PostalCode + " " + client.City
		}
		m.AddRow(5, text.NewCol(12, addr, props.Text{Size: 9}))
	}
	if client.Email != "" {
		m.AddRow(5, text.NewCol(12, client.Email, props.Text{Size: 9}))
	}
	m.AddRow(4, line.NewCol(12))
}

func addLineTable(m core.Maroto, lines []models.InvoiceLine) {
	bold := props.Text{Size: 9, Style: fontstyle.Bold}
	boldRight := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	m.AddRow(7,
		text.NewCol(5, "Concepto", bold),
		text.NewCol(1, "Cant.", boldRight),
		text.NewCol(2, "Precio", boldRight),
		text.NewCol(1, "IVA %", boldRight),
		text.NewCol(3, "Importe", boldRight),
	)
	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	for _, ln := range lines {
		m.AddRow(6,
			text.NewCol(5, ln.Concept, cell),
			text.NewCol(1, ln.Quantity.String(), cellRight),
			text.NewCol(2, euros(ln.UnitPrice), cellRight),
			text.NewCol(1, ln.VATRate.StringFixed(0), cellRight),
			text.NewCol(3, euros(ln.Total), cellRight),
		)
	}
	m.AddRow(4, line.NewCol(12))
}

func addTotals(m core.Maroto, inv *models.Invoice) {
	right := props.Text{Size: 10, Align: align.Right}
	m.AddRow(6,
		col.New(7),
		text.NewCol(2, "Base imponible", right),
		text.NewCol(3, euros(inv.Subtotal), right),
	)
	m.AddRow(6,
		col.New(7),
		text.NewCol(2, "IVA", right),
		text.NewCol(3, euros(inv.VATTotal), right),
	)
	if inv.Discount.IsPositive() {
		m.AddRow(6,
			col.New(7),
			text.NewCol(2, "Descuento", right),
			text.NewCol(3, "-"+euros(inv.Discount), right),
		)
	}
	m.AddRow(8,
		col.New(7),
		text.NewCol(2, "TOTAL", props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(3, euros(inv.Total), props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
	)
}

func addFooter(m core.Maroto, inv *models.Invoice, invoiceSettings map[string]string) {
	terms := inv.PaymentTerms
	if terms == "" {
		terms = invoiceSettings["default_payment_terms"]
	}
	rows := []core.Row{}
	if terms != "" {
		rows = append(rows, row.New(6).Add(
			text.NewCol(12, "Condiciones de pago: "+terms, props.Text{Size: 9}),
		))
	}
	if inv.PaymentMethod != "" {
		rows = append(rows, row.New(6).Add(
			text.NewCol(12, "Forma de pago: "+inv.PaymentMethod, props.Text{Size: 9}),
		))
	}
	if inv.Notes != "" {
		rows = append(rows, row.New(6).Add(
			text.NewCol(12, inv.Notes, props.Text{Size: 9}),
		))
	} else if n := invoiceSettings["invoice_notes"]; n != "" {
		rows = append(rows, row.New(6).Add(
			text.NewCol(12, n, props.Text{Size: 9}),
		))
	}
	m.AddRows(rows...)
}
