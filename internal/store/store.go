// Package store defines the persistence contract implemented by the three
// interchangeable backends (JSON file, PostgreSQL, SQLite). Exactly one
// backend is active per process, chosen at startup by the selector.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/icalvete/facturador/internal/models"
)

// Store is the uniform surface consumed by the API layer. Lookups return
// apperrors.ErrNotFound for missing ids; create/update either return the
// fully persisted record or an error, never a half-written one.
type Store interface {
	// Users. Never hard-deleted; DeactivateUser flips the active flag.
	CreateUser(ctx context.Context, in UserInput) (*models.User, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id int64) error
	DeactivateUser(ctx context.Context, id int64) error

	// Clients. Delete is a soft-delete and is idempotent. Clients and
	// SearchClients only return active records, ordered by name using
	// Spanish collation.
	CreateClient(ctx context.Context, in ClientInput) (*models.Client, error)
	ClientByID(ctx context.Context, id int64) (*models.Client, error)
	Clients(ctx context.Context) ([]models.Client, error)
	UpdateClient(ctx context.Context, id int64, in ClientInput) (*models.Client, error)
	DeleteClient(ctx context.Context, id int64) error
	// SearchClients matches term case-insensitively against name, email,
	// phone and tax id. An empty term returns the same set as Clients.
	SearchClients(ctx context.Context, term string) ([]models.Client, error)

	// Products. Same soft-delete semantics as clients.
	CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error)
	ProductByID(ctx context.Context, id int64) (*models.Product, error)
	Products(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	// Invoices. Create/Update persist the lines atomically with the header;
	// Delete cascades to lines and attachments. InvoiceByID includes lines,
	// Invoices does not.
	CreateInvoice(ctx context.Context, in InvoiceInput) (*models.Invoice, error)
	InvoiceByID(ctx context.Context, id int64) (*models.Invoice, error)
	Invoices(ctx context.Context) ([]models.Invoice, error)
	UpdateInvoice(ctx context.Context, id int64, in InvoiceInput) (*models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id int64, status string) (*models.Invoice, error)
	DeleteInvoice(ctx context.Context, id int64) error
	// NextInvoiceNumber derives PREFIX-YYYY-NNNN from existing data on every
	// call; no counter is persisted. Two calls without an intervening create
	// may legally return the same number (single-writer assumption).
	NextInvoiceNumber(ctx context.Context) (string, error)

	// Attachments are hard-deleted, and removed with their invoice.
	AddAttachment(ctx context.Context, in AttachmentInput) (*models.FileAttachment, error)
	AttachmentByID(ctx context.Context, id int64) (*models.FileAttachment, error)
	InvoiceAttachments(ctx context.Context, invoiceID int64) ([]models.FileAttachment, error)
	DeleteAttachment(ctx context.Context, id int64) error

	// Settings are merged key by key, never replaced wholesale.
	SaveCompanySettings(ctx context.Context, values map[string]string) error
	SaveInvoiceSettings(ctx context.Context, values map[string]string) error
	AppSettings(ctx context.Context) (*models.AppSettings, error)

	LogActivity(ctx context.Context, in ActivityInput) error
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityLog, error)

	DashboardStats(ctx context.Context) (*models.DashboardStats, error)

	// Name identifies the backend ("json", "postgres", "sqlite").
	Name() string
	// Close releases the underlying handle. Idempotent.
	Close() error
}

type UserInput struct {
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-" validate:"required"`
	Role         string `json:"role" validate:"omitempty,oneof=admin user"`
}

type ClientInput struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	TaxID      string `json:"tax_id"`
	Notes      string `json:"notes"`
}

type ProductInput struct {
	Code        string          `json:"code" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

type InvoiceLineInput struct {
	ProductID *int64          `json:"product_id"`
	Concept   string          `json:"concept" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	VATRate   decimal.Decimal `json:"vat_rate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	VATAmount decimal.Decimal `json:"vat_amount"`
	Total     decimal.Decimal `json:"total"`
	Position  int             `json:"position"`
}

type InvoiceInput struct {
	Number        string             `json:"number"`
	ClientID      int64              `json:"client_id" validate:"required"`
	IssueDate     time.Time          `json:"issue_date"`
	DueDate       *time.Time         `json:"due_date"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	VATTotal      decimal.Decimal    `json:"vat_total"`
	Total         decimal.Decimal    `json:"total"`
	Discount      decimal.Decimal    `json:"discount"`
	Status        string             `json:"status"`
	Notes         string             `json:"notes"`
	PaymentTerms  string             `json:"payment_terms"`
	PaymentMethod string             `json:"payment_method"`
	Lines         []InvoiceLineInput `json:"lines"`
}

type AttachmentInput struct {
	InvoiceID    int64  `json:"invoice_id" validate:"required"`
	OriginalName string `json:"original_name" validate:"required"`
	StoredName   string `json:"stored_name" validate:"required"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	Extension    string `json:"extension"`
}

type ActivityInput struct {
	UserID      int64  `json:"user_id"`
	Action      string `json:"action" validate:"required"`
	EntityType  string `json:"entity_type"`
	EntityID    int64  `json:"entity_id"`
	Description string `json:"description"`
}
