package validation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/validation"
)

func violations(t *testing.T, err error) map[string]string {
	t.Helper()
	require.ErrorIs(t, err, apperrors.ErrValidation)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Violations
}

func TestClient(t *testing.T) {
	assert.NoError(t, validation.Client(store.ClientInput{Name: "Acme SL"}))
	assert.NoError(t, validation.Client(store.ClientInput{Name: "Acme SL", Email: "a@b.es"}))

	v := violations(t, validation.Client(store.ClientInput{}))
	assert.Equal(t, "required", v["name"])

	v = violations(t, validation.Client(store.ClientInput{Name: "X", Email: "nope"}))
	assert.Equal(t, "invalid_email", v["email"])
}

func TestUser(t *testing.T) {
	assert.NoError(t, validation.User(store.UserInput{
		Email: "u@e.es", PasswordHash: "h", Role: "admin",
	}))

	v := violations(t, validation.User(store.UserInput{Email: "bad", Role: "root"}))
	assert.Equal(t, "invalid_email", v["email"])
	assert.Equal(t, "required", v["password_hash"])
	assert.Equal(t, "invalid_value", v["role"])
}

func TestProduct(t *testing.T) {
	assert.NoError(t, validation.Product(store.ProductInput{Code: "P1", Name: "Prod"}))

	v := violations(t, validation.Product(store.ProductInput{
		UnitPrice: decimal.NewFromInt(-5),
		VATRate:   decimal.NewFromInt(-1),
	}))
	assert.Equal(t, "required", v["code"])
	assert.Equal(t, "required", v["name"])
	assert.Equal(t, "must_not_be_negative", v["unit_price"])
	assert.Equal(t, "must_not_be_negative", v["vat_rate"])
}

func TestInvoice(t *testing.T) {
	assert.NoError(t, validation.Invoice(store.InvoiceInput{ClientID: 1}))

	v := violations(t, validation.Invoice(store.InvoiceInput{Status: "perdida"}))
	assert.Equal(t, "required", v["client_id"])
	assert.Equal(t, "invalid_status", v["status"])

	v = violations(t, validation.Invoice(store.InvoiceInput{
		ClientID: 1,
		Lines: []store.InvoiceLineInput{
			{Concept: "   ", Quantity: decimal.Zero},
		},
	}))
	assert.Equal(t, "required", v["lines.concept"])
	assert.Equal(t, "must_be_positive", v["lines.quantity"])
}

func TestStatus(t *testing.T) {
	for _, s := range []string{"borrador", "enviada", "pagada", "vencida", "anulada"} {
		assert.NoError(t, validation.Status(s))
	}
	v := violations(t, validation.Status("cobrada"))
	assert.Equal(t, "invalid_status", v["status"])
}

func TestAttachment(t *testing.T) {
	assert.NoError(t, validation.Attachment(store.AttachmentInput{
		InvoiceID: 1, OriginalName: "a.pdf", StoredName: "x.pdf",
	}))
	v := violations(t, validation.Attachment(store.AttachmentInput{}))
	assert.Equal(t, "required", v["invoice_id"])
	assert.Equal(t, "required", v["original_name"])
	assert.Equal(t, "required", v["stored_name"])
}
