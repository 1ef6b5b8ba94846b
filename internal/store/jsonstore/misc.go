package jsonstore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/validation"
)

// --- attachments ---

func (s *Store) AddAttachment(_ context.Context, in store.AttachmentInput) (*models.FileAttachment, error) {
	if err := validation.Attachment(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.invoiceExistsLocked(in.InvoiceID) {
		return nil, apperrors.Validationf("invoice_id", "unknown_invoice")
	}
	a := models.FileAttachment{
		ID:           s.nextID("file_attachments"),
		InvoiceID:    in.InvoiceID,
		OriginalName: in.OriginalName,
		StoredName:   in.StoredName,
		Path:         in.Path,
		Size:         in.Size,
		MimeType:     in.MimeType,
		Extension:    in.Extension,
		CreatedAt:    time.Now().UTC(),
	}
	s.doc.Data.FileAttachments = append(s.doc.Data.FileAttachments, a)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) AttachmentByID(_ context.Context, id int64) (*models.FileAttachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.doc.Data.FileAttachments {
		if s.doc.Data.FileAttachments[i].ID == id {
			a := s.doc.Data.FileAttachments[i]
			return &a, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) InvoiceAttachments(_ context.Context, invoiceID int64) ([]models.FileAttachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.FileAttachment{}
	for _, a := range s.doc.Data.FileAttachments {
		if a.InvoiceID == invoiceID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) DeleteAttachment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.doc.Data.FileAttachments[:0]
	found := false
	for _, a := range s.doc.Data.FileAttachments {
		if a.ID == id {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	s.doc.Data.FileAttachments = kept
	if !found {
		return nil
	}
	return s.persist()
}

func (s *Store) invoiceExistsLocked(id int64) bool {
	for _, inv := range s.doc.Data.Invoices {
		if inv.ID == id {
			return true
		}
	}
	return false
}

// --- settings ---

func (s *Store) SaveCompanySettings(_ context.Context, values map[string]string) error {
	return s.saveSettings(values)
}

func (s *Store) SaveInvoiceSettings(_ context.Context, values map[string]string) error {
	return s.saveSettings(values)
}

// saveSettings upserts key by key; keys not present in values are untouched.
func (s *Store) saveSettings(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for key, value := range values {
		updated := false
		for i := range s.doc.Data.Settings {
			if s.doc.Data.Settings[i].Key == key {
				s.doc.Data.Settings[i].Value = value
				s.doc.Data.Settings[i].UpdatedAt = now
				updated = true
				break
			}
		}
		if !updated {
			s.doc.Data.Settings = append(s.doc.Data.Settings, models.Setting{
				Key:       key,
				Value:     value,
				Category:  store.CategoryForKey(key),
				UpdatedAt: now,
			})
		}
	}
	return s.persist()
}

func (s *Store) AppSettings(_ context.Context) (*models.AppSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.BuildAppSettings(s.doc.Data.Settings), nil
}

// --- activity log ---

func (s *Store) LogActivity(_ context.Context, in store.ActivityInput) error {
	if err := validation.Activity(in); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Data.ActivityLog = append(s.doc.Data.ActivityLog, models.ActivityLog{
		ID:          s.nextID("activity_log"),
		UserID:      in.UserID,
		Action:      in.Action,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	})
	return s.persist()
}

func (s *Store) RecentActivity(_ context.Context, limit int) ([]models.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	log := s.doc.Data.ActivityLog
	out := []models.ActivityLog{}
	for i := len(log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, log[i])
	}
	return out, nil
}

// --- dashboard ---

func (s *Store) DashboardStats(_ context.Context) (*models.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &models.DashboardStats{TotalRevenue: decimal.Zero}
	for _, c := range s.doc.Data.Clients {
		if c.Active {
			stats.TotalClients++
		}
	}
	now := time.Now()
	month := now.Format("2006-01")
	for _, inv := range s.doc.Data.Invoices {
		stats.TotalInvoices++
		switch inv.Status {
		case models.StatusSent:
			stats.PendingInvoices++
		case models.StatusPaid:
			stats.TotalRevenue = stats.TotalRevenue.Add(inv.Total)
		}
		if inv.IssueDate.Format("2006-01") == month {
			stats.InvoicesThisMonth++
		}
	}
	return stats, nil
}
