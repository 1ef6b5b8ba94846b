// Package validation holds the input checks shared by every storage backend,
// so the rules are written once and cannot drift between implementations.
package validation

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func User(in store.UserInput) error {
	v := structViolations(in)
	return asError(v)
}

func Client(in store.ClientInput) error {
	v := structViolations(in)
	return asError(v)
}

func Product(in store.ProductInput) error {
	v := structViolations(in)
	if in.UnitPrice.IsNegative() {
		v["unit_price"] = "must_not_be_negative"
	}
	if in.VATRate.IsNegative() {
		v["vat_rate"] = "must_not_be_negative"
	}
	return asError(v)
}

func Invoice(in store.InvoiceInput) error {
	v := structViolations(in)
	if in.Status != "" && !models.ValidStatus(in.Status) {
		v["status"] = "invalid_status"
	}
	for _, ln := range in.Lines {
		if strings.TrimSpace(ln.Concept) == "" {
			v["lines.concept"] = "required"
		}
		if !ln.Quantity.IsPositive() {
			v["lines.quantity"] = "must_be_positive"
		}
		if ln.UnitPrice.IsNegative() {
			v["lines.unit_price"] = "must_not_be_negative"
		}
	}
	return asError(v)
}

func Attachment(in store.AttachmentInput) error {
	return asError(structViolations(in))
}

func Activity(in store.ActivityInput) error {
	return asError(structViolations(in))
}

// Status validates a bare status transition value.
func Status(s string) error {
	if !models.ValidStatus(s) {
		return apperrors.Validationf("status", "invalid_status")
	}
	return nil
}

func structViolations(in any) map[string]string {
	v := map[string]string{}
	err := validate.Struct(in)
	if err == nil {
		return v
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		v["input"] = "invalid"
		return v
	}
	for _, fe := range verrs {
		v[snake(fe.Field())] = code(fe.Tag())
	}
	return v
}

func code(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "invalid_email"
	case "oneof":
		return "invalid_value"
	}
	return tag
}

func snake(field string) string {
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 && (i+1 == len(field) || !unicode.IsUpper(rune(field[i-1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	// TaxID -> tax_id, ClientID -> client_id
	return strings.ReplaceAll(b.String(), "_i_d", "_id")
}

func asError(v map[string]string) error {
	if len(v) == 0 {
		return nil
	}
	return apperrors.NewValidation(v)
}
