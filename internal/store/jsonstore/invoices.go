package jsonstore

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/services"
	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/validation"
)

func (s *Store) CreateInvoice(_ context.Context, in store.InvoiceInput) (*models.Invoice, error) {
	if err := validation.Invoice(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.clientExistsLocked(in.ClientID) {
		return nil, apperrors.Validationf("client_id", "unknown_client")
	}
	number := in.Number
	if number == "" {
		number = s.nextInvoiceNumberLocked()
	}
	// Deliberately no uniqueness check on the number here: this backend has
	// no constraint to lean on and assumes a single writer.
	now := time.Now().UTC()
	inv := models.Invoice{
		ID:            s.nextID("invoices"),
		Number:        number,
		ClientID:      in.ClientID,
		IssueDate:     issueDateOrNow(in.IssueDate),
		DueDate:       in.DueDate,
		Subtotal:      in.Subtotal,
		VATTotal:      in.VATTotal,
		Total:         in.Total,
		Discount:      in.Discount,
		Status:        statusOrDraft(in.Status),
		Notes:         in.Notes,
		PaymentTerms:  in.PaymentTerms,
		PaymentMethod: in.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.doc.Data.Invoices = append(s.doc.Data.Invoices, inv)
	lines := s.insertLinesLocked(inv.ID, in.Lines)
	if err := s.persist(); err != nil {
		return nil, err
	}
	inv.Lines = lines
	return &inv, nil
}

func (s *Store) InvoiceByID(_ context.Context, id int64) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.doc.Data.Invoices {
		if s.doc.Data.Invoices[i].ID == id {
			inv := s.doc.Data.Invoices[i]
			inv.Lines = s.linesForLocked(id)
			return &inv, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// Invoices returns headers only, newest issue date first.
func (s *Store) Invoices(_ context.Context) ([]models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Invoice, len(s.doc.Data.Invoices))
	copy(out, s.doc.Data.Invoices)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.After(out[j].IssueDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateInvoice(_ context.Context, id int64, in store.InvoiceInput) (*models.Invoice, error) {
	if err := validation.Invoice(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.clientExistsLocked(in.ClientID) {
		return nil, apperrors.Validationf("client_id", "unknown_client")
	}
	for i := range s.doc.Data.Invoices {
		if s.doc.Data.Invoices[i].ID != id {
			continue
		}
		inv := &s.doc.Data.Invoices[i]
		if in.Number != "" {
			inv.Number = in.Number
		}
		inv.ClientID = in.ClientID
		if !in.IssueDate.IsZero() {
			inv.IssueDate = in.IssueDate
		}
		inv.DueDate = in.DueDate
		inv.Subtotal = in.Subtotal
		inv.VATTotal = in.VATTotal
		inv.Total = in.Total
		inv.Discount = in.Discount
		if in.Status != "" {
			inv.Status = in.Status
		}
		inv.Notes = in.Notes
		inv.PaymentTerms = in.PaymentTerms
		inv.PaymentMethod = in.PaymentMethod
		inv.UpdatedAt = time.Now().UTC()
		s.dropLinesLocked(id)
		lines := s.insertLinesLocked(id, in.Lines)
		if err := s.persist(); err != nil {
			return nil, err
		}
		out := *inv
		out.Lines = lines
		return &out, nil
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) UpdateInvoiceStatus(_ context.Context, id int64, status string) (*models.Invoice, error) {
	if err := validation.Status(status); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Data.Invoices {
		if s.doc.Data.Invoices[i].ID == id {
			s.doc.Data.Invoices[i].Status = status
			s.doc.Data.Invoices[i].UpdatedAt = time.Now().UTC()
			if err := s.persist(); err != nil {
				return nil, err
			}
			inv := s.doc.Data.Invoices[i]
			inv.Lines = s.linesForLocked(id)
			return &inv, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// DeleteInvoice hard-deletes the invoice with its lines and attachments.
func (s *Store) DeleteInvoice(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.doc.Data.Invoices[:0]
	found := false
	for _, inv := range s.doc.Data.Invoices {
		if inv.ID == id {
			found = true
			continue
		}
		kept = append(kept, inv)
	}
	if !found {
		return nil
	}
	s.doc.Data.Invoices = kept
	s.dropLinesLocked(id)
	atts := s.doc.Data.FileAttachments[:0]
	for _, a := range s.doc.Data.FileAttachments {
		if a.InvoiceID != id {
			atts = append(atts, a)
		}
	}
	s.doc.Data.FileAttachments = atts
	return s.persist()
}

func (s *Store) NextInvoiceNumber(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextInvoiceNumberLocked(), nil
}

// nextInvoiceNumberLocked scans the stored numbers for the current year and
// returns max sequence + 1. This differs from the relational backends, which
// count rows for the year; the divergence after out-of-order deletions is a
// long-standing quirk kept as-is.
func (s *Store) nextInvoiceNumberLocked() string {
	prefix := store.PrefixFrom(s.doc.Data.Settings)
	year := time.Now().Year()
	pattern := services.NumberPattern(prefix, year)
	max := 0
	for _, inv := range s.doc.Data.Invoices {
		m := pattern.FindStringSubmatch(inv.Number)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return services.FormatInvoiceNumber(prefix, year, max+1)
}

func (s *Store) clientExistsLocked(id int64) bool {
	for _, c := range s.doc.Data.Clients {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) insertLinesLocked(invoiceID int64, lines []store.InvoiceLineInput) []models.InvoiceLine {
	out := make([]models.InvoiceLine, 0, len(lines))
	for i, ln := range lines {
		pos := ln.Position
		if pos == 0 {
			pos = i + 1
		}
		rec := models.InvoiceLine{
			ID:        s.nextID("invoice_lines"),
			InvoiceID: invoiceID,
			ProductID: ln.ProductID,
			Concept:   ln.Concept,
			Quantity:  ln.Quantity,
			UnitPrice: ln.UnitPrice,
			Discount:  ln.Discount,
			VATRate:   ln.VATRate,
			Subtotal:  ln.Subtotal,
			VATAmount: ln.VATAmount,
			Total:     ln.Total,
			Position:  pos,
		}
		s.doc.Data.InvoiceLines = append(s.doc.Data.InvoiceLines, rec)
		out = append(out, rec)
	}
	return out
}

func (s *Store) dropLinesLocked(invoiceID int64) {
	kept := s.doc.Data.InvoiceLines[:0]
	for _, ln := range s.doc.Data.InvoiceLines {
		if ln.InvoiceID != invoiceID {
			kept = append(kept, ln)
		}
	}
	s.doc.Data.InvoiceLines = kept
}

func (s *Store) linesForLocked(invoiceID int64) []models.InvoiceLine {
	var out []models.InvoiceLine
	for _, ln := range s.doc.Data.InvoiceLines {
		if ln.InvoiceID == invoiceID {
			out = append(out, ln)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func statusOrDraft(status string) string {
	if status == "" {
		return models.StatusDraft
	}
	return status
}

func issueDateOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	return t
}
