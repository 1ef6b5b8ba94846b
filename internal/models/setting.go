package models

import "time"

// Setting is a single key/value configuration entry. Keys are namespaced by
// prefix: company_* belongs to the company category, invoice_* and default_*
// to the invoice category.
type Setting struct {
	Key         string    `gorm:"primaryKey;size:80" json:"key"`
	Value       string    `json:"value"`
	Category    string    `gorm:"index" json:"category"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	SettingCategoryCompany = "company"
	SettingCategoryInvoice = "invoice"
	SettingCategoryGeneral = "general"
)

// AppSettings is the grouped view served to the UI.
type AppSettings struct {
	Company map[string]string `json:"company"`
	Invoice map[string]string `json:"invoice"`
}
