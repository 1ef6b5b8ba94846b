package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are persisted and served as JSON numbers, matching the layout the
	// application has always written to disk.
	decimal.MarshalJSONWithoutQuotes = true
}

// Invoice statuses keep the original Spanish values stored in existing data.
const (
	StatusDraft     = "borrador"
	StatusSent      = "enviada"
	StatusPaid      = "pagada"
	StatusOverdue   = "vencida"
	StatusCancelled = "anulada"
)

// ValidStatus reports whether s is one of the known invoice statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Invoice entity. Number follows PREFIX-YYYY-NNNN (e.g. FAC-2024-0007).
// Totals are computed by the caller; backends persist them as given.
type Invoice struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	Number        string          `gorm:"uniqueIndex;not null" json:"number"`
	ClientID      int64           `gorm:"not null;index" json:"client_id"`
	IssueDate     time.Time       `gorm:"not null" json:"issue_date"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Subtotal      decimal.Decimal `gorm:"type:numeric" json:"subtotal"`
	VATTotal      decimal.Decimal `gorm:"type:numeric" json:"vat_total"`
	Total         decimal.Decimal `gorm:"type:numeric" json:"total"`
	Discount      decimal.Decimal `gorm:"type:numeric" json:"discount"`
	Status        string          `gorm:"not null;default:'borrador';index" json:"status"`
	Notes         string          `json:"notes,omitempty"`
	PaymentTerms  string          `json:"payment_terms,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Lines         []InvoiceLine   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InvoiceLine is one billable row. Discount and VATRate are percentages;
// Subtotal/VATAmount/Total are the caller-computed derived amounts.
type InvoiceLine struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	InvoiceID int64           `gorm:"not null;index" json:"invoice_id"`
	ProductID *int64          `json:"product_id,omitempty"`
	Concept   string          `gorm:"not null" json:"concept"`
	Quantity  decimal.Decimal `gorm:"type:numeric;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric;not null" json:"unit_price"`
	Discount  decimal.Decimal `gorm:"type:numeric" json:"discount"`
	VATRate   decimal.Decimal `gorm:"type:numeric" json:"vat_rate"`
	Subtotal  decimal.Decimal `gorm:"type:numeric" json:"subtotal"`
	VATAmount decimal.Decimal `gorm:"type:numeric" json:"vat_amount"`
	Total     decimal.Decimal `gorm:"type:numeric" json:"total"`
	Position  int             `json:"position"`
}
