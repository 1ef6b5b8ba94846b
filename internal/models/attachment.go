package models

import "time"

// FileAttachment is a document linked to an invoice (uploaded receipt,
// delivery note, signed copy...). The file itself lives under the data
// directory; this record only tracks it.
type FileAttachment struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	InvoiceID    int64     `gorm:"not null;index" json:"invoice_id"`
	OriginalName string    `gorm:"not null" json:"original_name"`
	StoredName   string    `gorm:"not null" json:"stored_name"`
	Path         string    `json:"path,omitempty"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type,omitempty"`
	Extension    string    `json:"extension,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
