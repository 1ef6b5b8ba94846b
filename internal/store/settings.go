package store

import (
	"strings"

	"github.com/icalvete/facturador/internal/models"
)

// DefaultInvoicePrefix is used when no invoice_prefix setting is stored.
const DefaultInvoicePrefix = "FAC"

// First-run defaults. They are overlaid on reads until the user saves real
// values, so a fresh install always renders a complete settings form.
func defaultCompanySettings() map[string]string {
	return map[string]string{
		"company_name":        "Mi Empresa",
		"company_tax_id":      "",
		"company_address":     "",
		"company_city":        "",
		"company_postal_code": "",
		"company_phone":       "",
		"company_email":       "",
		"company_website":     "",
	}
}

func defaultInvoiceSettings() map[string]string {
	return map[string]string{
		"invoice_prefix":        DefaultInvoicePrefix,
		"invoice_notes":         "",
		"default_vat":           "21",
		"default_payment_terms": "Pago a 30 días",
	}
}

// CategoryForKey maps a setting key to its category by prefix.
func CategoryForKey(key string) string {
	switch {
	case strings.HasPrefix(key, "company_"):
		return models.SettingCategoryCompany
	case strings.HasPrefix(key, "invoice_"), strings.HasPrefix(key, "default_"):
		return models.SettingCategoryInvoice
	}
	return models.SettingCategoryGeneral
}

// BuildAppSettings groups stored settings into the company/invoice view,
// overlaying stored values on the first-run defaults. Shared by all backends
// so the grouping logic exists exactly once.
func BuildAppSettings(rows []models.Setting) *models.AppSettings {
	out := &models.AppSettings{
		Company: defaultCompanySettings(),
		Invoice: defaultInvoiceSettings(),
	}
	for _, s := range rows {
		switch CategoryForKey(s.Key) {
		case models.SettingCategoryCompany:
			out.Company[s.Key] = s.Value
		case models.SettingCategoryInvoice:
			out.Invoice[s.Key] = s.Value
		}
	}
	return out
}

// PrefixFrom extracts the configured invoice prefix from stored settings.
func PrefixFrom(rows []models.Setting) string {
	for _, s := range rows {
		if s.Key == "invoice_prefix" && s.Value != "" {
			return s.Value
		}
	}
	return DefaultInvoicePrefix
}
