package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product entity. Code is unique and human-readable; VATRate is a percentage
// (21 meaning 21%).
type Product struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"size:40;not null;uniqueIndex" json:"code"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric;not null" json:"unit_price"`
	Category    string          `json:"category,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	VATRate     decimal.Decimal `gorm:"type:numeric" json:"vat_rate"`
	Active      bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DefaultVATRate is the Spanish general VAT rate applied when a product or
// invoice line does not specify one.
var DefaultVATRate = decimal.NewFromInt(21)
