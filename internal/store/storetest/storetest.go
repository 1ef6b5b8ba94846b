// Package storetest is a contract suite run against every backend. Each
// backend package calls Run from its own tests with a factory that opens a
// fresh, empty store.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/services"
	"github.com/icalvete/facturador/internal/store"
)

// Factory returns a fresh empty store. Cleanup is registered on t.
type Factory func(t *testing.T) store.Store

// Run executes the full contract suite against the given backend.
func Run(t *testing.T, open Factory) {
	t.Run("Clients", func(t *testing.T) { testClients(t, open) })
	t.Run("ClientSearch", func(t *testing.T) { testClientSearch(t, open) })
	t.Run("Products", func(t *testing.T) { testProducts(t, open) })
	t.Run("Users", func(t *testing.T) { testUsers(t, open) })
	t.Run("Invoices", func(t *testing.T) { testInvoices(t, open) })
	t.Run("InvoiceNumbering", func(t *testing.T) { testNumbering(t, open) })
	t.Run("Attachments", func(t *testing.T) { testAttachments(t, open) })
	t.Run("Settings", func(t *testing.T) { testSettings(t, open) })
	t.Run("Activity", func(t *testing.T) { testActivity(t, open) })
	t.Run("Dashboard", func(t *testing.T) { testDashboard(t, open) })
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newClient(t *testing.T, s store.Store, name string) *models.Client {
	t.Helper()
	c, err := s.CreateClient(context.Background(), store.ClientInput{Name: name})
	require.NoError(t, err)
	return c
}

func testClients(t *testing.T, open Factory) {
	s := open(t)
	ctx := context.Background()

	c, err := s.CreateClient(ctx, store.ClientInput{
		Name:  "Acme SL",
		Email: "facturas@acme.es",
		Phone: "600111222",
		TaxID: "B12345678",
	})
	require.NoError(t, err)
	require.NotZero(t, c.ID)
	assert.True(t, c.Active)
	assert.Equal(t, "Acme SL", c.Name)

	got, err := s.ClientByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "facturas@acme.es", got.Email)

	_, err = s.ClientByID(ctx, 99999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = s.CreateClient(ctx, store.ClientInput{Name: "Bad", Email: "not-an-email"})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "email")

	_, err = s.CreateClient(ctx, store.ClientInput{Email: "ok@acme.es"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	upd, err := s.UpdateClient(ctx, c.ID, store.ClientInput{Name: "Acme Renamed SL", City: "Madrid"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Renamed SL", upd.Name)
	assert.Equal(t, "Madrid", upd.City)

	// Soft delete: disappears from listings, repeat delete is a no-op.
	other := newClient(t, s, "Beta SA")
	require.NoError(t, s.DeleteClient(ctx, other.ID))
	require.NoError(t, s.DeleteClient(ctx, other.ID))
	list, err := s.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}

func testClientSearch(t *testing.T, open Factory) {
	s := open(t)
	ctx := context.Background()

	_, err := s.CreateClient(ctx, store.ClientInput{Name: "García e Hijos", Email: "info@garcia.es", Phone: "911222333"})
	require.NoError(t, err)
	// No email, no phone: search must not choke on empty optionals.
	newClient(t, s, "Sin Datos SL")
	_, err = s.CreateClient(ctx, store.ClientInput{Name: "Otra Empresa", TaxID: "A99887766"})
	require.NoError(t, err)

	all, err := s.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	empty, err := s.SearchClients(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, all, empty)

	byName, err := s.SearchClients(ctx, "garcía")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "García e Hijos", byName[0].Name)

	byPhone, err := s.SearchClients(ctx, "911")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)

	byTax, err := s.SearchClients(ctx, "a998")
	require.NoError(t, err)
	require.Len(t, byTax, 1)
	assert.Equal(t, "Otra Empresa", byTax[0].Name)

	none, err := s.SearchClients(ctx, "zzzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testProducts(t *testing.T, open Factory) {
	s := open(t)
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, store.ProductInput{
		Code:      "SRV-001",
		Name:      "Consultoría",
		UnitPrice: dec("60.00"),
	})
	require.NoError(t, err)
	require.NotZero(t, p.ID)
	assert.True(t, p.VATRate.Equal(models.DefaultVATRate), "zero VAT falls back to the default rate")

	_, err = s.CreateProduct(ctx, store.ProductInput{Name: "Sin código"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = s.CreateProduct(ctx, store.ProductInput{
		Code: "NEG", Name: "Negativo", UnitPrice: dec("-1"),
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	upd, err := s.UpdateProduct(ctx, p.ID, store.ProductInput{
		Code: "SRV-001", Name: "Consultoría senior", UnitPrice: dec("80.00"), VATRate: dec("10"),
	})
	require.NoError(t, err)
	assert.True(t, upd.UnitPrice.Equal(dec("80.00")))
	assert.True(t, upd.VATRate.Equal(dec("10")))

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	list, err := s.Products(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.ProductByID(ctx, 424242)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func testUsers(t *testing.T, open Factory) {
	s := open(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, store.UserInput{
		Email:        "Admin@Empresa.es",
		Name:         "Admin",
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@empresa.es", u.Email, "emails are stored lowercased")
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.Active)

	_, err = s.CreateUser(ctx, store.UserInput{
		Email: "admin@empresa.es", PasswordHash: "x",
	})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	byEmail, err := s.UserByEmail(ctx, "ADMIN@empresa.es")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	require.NoError(t, s.UpdateUserPassword(ctx, u.ID, "$2a$10$otherhashotherhashother"))
	require.NoError(t, s.TouchLastLogin(ctx, u.ID))
	after, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, after.LastLoginAt)

	assert.ErrorIs(t, s.UpdateUserPassword(ctx, 9999, "h"), apperrors.ErrNotFound)

	require.NoError(t, s.DeactivateUser(ctx, u.ID))
	deactivated, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)
}

func invoiceInput(clientID int64) store.InvoiceInput {
	subtotal, vat, total, lines := services.ComputeInvoiceTotals([]store.InvoiceLineInput{
		{Concept: "Desarrollo web", Quantity: dec("10"), UnitPrice: dec("10.00"), VATRate: dec("21")},
	}, decimal.Zero)
	return store.InvoiceInput{
		ClientID: clientID,
		Subtotal: subtotal,
		VATTotal: vat,
		Total:    total,
		Lines:    lines,
	}
}

func testInvoices(t *testing.T, open Factory) {
	s := open(t)
	ctx := context.Background()
	c := newClient(t, s, "Cliente Facturado")

	inv, err := s.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	require.NotZero(t, inv.ID)
	assert.Equal(t, models.StatusDraft, inv.Status)
	assert.False(t, inv.IssueDate.IsZero())
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, inv.ID, inv.Lines[0].InvoiceID)
	assert.True(t, inv.Total.Equal(dec("121.00")))

	year := time.Now().Year()
	assert.Equal(t, fmt.Sprintf("FAC-%d-0001", year), inv.Number)

	_, err = s.CreateInvoice(ctx, invoiceInput(987654))
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = s.CreateInvoice(ctx, store.InvoiceInput{
		ClientID: c.ID,
		Lines:    []store.InvoiceLineInput{{Concept: "", Quantity: dec("1"), UnitPrice: dec("5")}},
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	got, err := s.InvoiceByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 1, got.Lines[0].Position)

	// Full update replaces the line set.
	in := invoiceInput(c.ID)
	in.Lines = append(in.Lines, store.InvoiceLineInput{
		Concept: "Mantenimiento", Quantity: dec("2"), UnitPrice: dec("30.00"), VATRate: dec("21"),
	})
	in.Subtotal, in.VATTotal, in.Total, in.Lines = services.ComputeInvoiceTotals(in.Lines, decimal.Zero)
	upd, err := s.UpdateInvoice(ctx, inv.ID, in)
	require.NoError(t, err)
	require.Len(t, upd.Lines, 2)
	assert.Equal(t, inv.Number, upd.Number, "update keeps the assigned number")

	paid, err := s.UpdateInvoiceStatus(ctx, inv.ID, models.StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)

	_, err = s.UpdateInvoiceStatus(ctx, inv.ID, "inventado")
	require.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = s.UpdateInvoiceStatus(ctx, 777777, models.StatusSent)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	att, err := s.AddAttachment(ctx, store.AttachmentInput{
		InvoiceID: inv.ID, OriginalName: "contrato.pdf", StoredName: "abc123.pdf",
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteInvoice(ctx, inv.ID))
	_, err = s.InvoiceByID(ctx, inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = s.AttachmentByID(ctx, att.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "attachments go with the invoice")
}

func testNumbering(t *testing.T, open Factory) {
	s := open(t)
	ctx := context.Background()
	c := newClient(t, s, "Numerado SL")
	year := time.Now().Year()

	// No persisted counter: repeated previews agree until something is created.
	n1, err := s.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	n2, err := s.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, n1, n2)
	assert.Equal(t, fmt.Sprintf("FAC-%d-0001", year), n1)

	first, err := s.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	assert.Equal(t, n1, first.Number)

	second, err := s.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("FAC-%d-0002", year), second.Number)

	// The sequence follows the configured prefix.
	require.NoError(t, s.SaveInvoiceSettings(ctx, map[string]string{"invoice_prefix": "INV"}))
	n3, err := s.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%d-0001", year), n3)

	// An explicit number is kept as-is.
	in := invoiceInput(c.ID)
	in.Number = "MANUAL-001"
	manual, err := s.CreateInvoice(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "MANUAL-001", manual.Number)
}

func testAttachments(t *testing.T, open Factory) {
	s := open(t)
	ctx := context.Background()
	c := newClient(t, s, "Con Adjuntos")
	inv, err := s.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)

	a1, err := s.AddAttachment(ctx, store.AttachmentInput{
		InvoiceID:    inv.ID,
		OriginalName: "presupuesto.pdf",
		StoredName:   "f00.pdf",
		Size:         2048,
		MimeType:     "application/pdf",
		Extension:    ".pdf",
	})
	require.NoError(t, err)
	require.NotZero(t, a1.ID)

	_, err = s.AddAttachment(ctx, store.AttachmentInput{InvoiceID: inv.ID})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	a2, err := s.AddAttachment(ctx, store.AttachmentInput{
		InvoiceID: inv.ID, OriginalName: "albaran.pdf", StoredName: "f01.pdf",
	})
	require.NoError(t, err)

	list, err := s.InvoiceAttachments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a1.ID, list[0].ID)

	require.NoError(t, s.DeleteAttachment(ctx, a1.ID))
	list, err = s.InvoiceAttachments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a2.ID, list[0].ID)
}

func testSettings(t *testing.T, open Factory) {
	s := open(t)
	ctx := context.Background()

	// First run: defaults without any write.
	app, err := s.AppSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mi Empresa", app.Company["company_name"])
	assert.Equal(t, "FAC", app.Invoice["invoice_prefix"])
	assert.Equal(t, "21", app.Invoice["default_vat"])
	assert.Equal(t, "Pago a 30 días", app.Invoice["default_payment_terms"])

	require.NoError(t, s.SaveCompanySettings(ctx, map[string]string{
		"company_name":   "Talleres López SL",
		"company_tax_id": "B11223344",
	}))
	// A later partial save merges, it does not wipe the earlier keys.
	require.NoError(t, s.SaveCompanySettings(ctx, map[string]string{
		"company_city": "Sevilla",
	}))
	require.NoError(t, s.SaveInvoiceSettings(ctx, map[string]string{
		"invoice_prefix": "TLL",
	}))

	app, err = s.AppSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Talleres López SL", app.Company["company_name"])
	assert.Equal(t, "B11223344", app.Company["company_tax_id"])
	assert.Equal(t, "Sevilla", app.Company["company_city"])
	assert.Equal(t, "TLL", app.Invoice["invoice_prefix"])
	assert.Equal(t, "21", app.Invoice["default_vat"], "untouched keys keep their defaults")
}

func testActivity(t *testing.T, open Factory) {
	s := open(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.LogActivity(ctx, store.ActivityInput{
			UserID:      1,
			Action:      "create",
			EntityType:  "client",
			EntityID:    int64(i),
			Description: fmt.Sprintf("cliente %d", i),
		}))
	}
	require.ErrorIs(t, s.LogActivity(ctx, store.ActivityInput{}), apperrors.ErrValidation)

	recent, err := s.RecentActivity(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(5), recent[0].EntityID, "newest first")
	assert.Equal(t, int64(3), recent[2].EntityID)

	all, err := s.RecentActivity(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func testDashboard(t *testing.T, open Factory) {
	s := open(t)
	ctx := context.Background()

	stats, err := s.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalClients)
	assert.Zero(t, stats.TotalInvoices)
	assert.Zero(t, stats.PendingInvoices)
	assert.Zero(t, stats.InvoicesThisMonth)
	assert.True(t, stats.TotalRevenue.IsZero())

	c := newClient(t, s, "Estadístico SL")
	ghost := newClient(t, s, "Fantasma SL")
	require.NoError(t, s.DeleteClient(ctx, ghost.ID))

	paid, err := s.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	_, err = s.UpdateInvoiceStatus(ctx, paid.ID, models.StatusPaid)
	require.NoError(t, err)

	_, err = s.CreateInvoice(ctx, invoiceInput(c.ID)) // stays borrador
	require.NoError(t, err)

	sent, err := s.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	_, err = s.UpdateInvoiceStatus(ctx, sent.ID, models.StatusSent)
	require.NoError(t, err)

	cancelled, err := s.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	_, err = s.UpdateInvoiceStatus(ctx, cancelled.ID, models.StatusCancelled)
	require.NoError(t, err)

	stats, err = s.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalClients, "soft-deleted clients are not counted")
	assert.Equal(t, int64(4), stats.TotalInvoices)
	assert.Equal(t, int64(1), stats.PendingInvoices, "only enviada counts as pending")
	assert.Equal(t, int64(4), stats.InvoicesThisMonth)
	assert.True(t, stats.TotalRevenue.Equal(dec("121.00")),
		"revenue only sums pagada invoices, got %s", stats.TotalRevenue)
}
