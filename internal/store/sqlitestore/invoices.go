package sqlitestore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/services"
	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/validation"
)

func (s *Store) CreateInvoice(ctx context.Context, in store.InvoiceInput) (*models.Invoice, error) {
	if err := validation.Invoice(in); err != nil {
		return nil, err
	}
	var inv models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clientExists(tx, in.ClientID); err != nil {
			return err
		}
		number := in.Number
		if number == "" {
			var err error
			if number, err = nextNumber(tx); err != nil {
				return err
			}
		}
		inv = invoiceFromInput(in)
		inv.Number = number
		inv.Lines = linesFromInput(0, in.Lines)
		return tx.Create(&inv).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (s *Store) InvoiceByID(ctx context.Context, id int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&inv, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (s *Store) Invoices(ctx context.Context) ([]models.Invoice, error) {
	out := []models.Invoice{}
	err := s.db.WithContext(ctx).Order("issue_date DESC, id DESC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) UpdateInvoice(ctx context.Context, id int64, in store.InvoiceInput) (*models.Invoice, error) {
	if err := validation.Invoice(in); err != nil {
		return nil, err
	}
	var inv models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, id).Error; err != nil {
			return err
		}
		if err := clientExists(tx, in.ClientID); err != nil {
			return err
		}
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
		inv.Lines = nil
		if err := tx.Save(&inv).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		lines := linesFromInput(id, in.Lines)
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		inv.Lines = lines
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, id int64, status string) (*models.Invoice, error) {
	if err := validation.Status(status); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}
	return s.InvoiceByID(ctx, id)
}

func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.FileAttachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, id).Error
	})
	return translate(err)
}

func (s *Store) NextInvoiceNumber(ctx context.Context) (string, error) {
	number, err := nextNumber(s.db.WithContext(ctx))
	return number, translate(err)
}

// nextNumber counts the current year's invoices and adds one, like the
// postgres backend (and unlike the JSON one, which scans for the max).
func nextNumber(tx *gorm.DB) (string, error) {
	var rows []models.Setting
	if err := tx.Find(&rows).Error; err != nil {
		return "", err
	}
	prefix := store.PrefixFrom(rows)
	year := time.Now().Year()
	var count int64
	err := tx.Model(&models.Invoice{}).
		Where("number LIKE ?", services.NumberLikePrefix(prefix, year)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return services.FormatInvoiceNumber(prefix, year, int(count)+1), nil
}

func clientExists(tx *gorm.DB, clientID int64) error {
	var n int64
	if err := tx.Model(&models.Client{}).Where("id = ?", clientID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperrors.Validationf("client_id", "unknown_client")
	}
	return nil
}

func invoiceFromInput(in store.InvoiceInput) models.Invoice {
	status := in.Status
	if status == "" {
		status = models.StatusDraft
	}
	issue := in.IssueDate
	if issue.IsZero() {
		issue = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return models.Invoice{
		ClientID:      in.ClientID,
		IssueDate:     issue,
		DueDate:       in.DueDate,
		Subtotal:      in.Subtotal,
		VATTotal:      in.VATTotal,
		Total:         in.Total,
		Discount:      in.Discount,
		Status:        status,
		Notes:         in.Notes,
		PaymentTerms:  in.PaymentTerms,
		PaymentMethod: in.PaymentMethod,
	}
}

func linesFromInput(invoiceID int64, lines []store.InvoiceLineInput) []models.InvoiceLine {
	out := make([]models.InvoiceLine, 0, len(lines))
	for i, ln := range lines {
		pos := ln.Position
		if pos == 0 {
			pos = i + 1
		}
		out = append(out, models.InvoiceLine{
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
		})
	}
	return out
}

// --- attachments ---

func (s *Store) AddAttachment(ctx context.Context, in store.AttachmentInput) (*models.FileAttachment, error) {
	if err := validation.Attachment(in); err != nil {
		return nil, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", in.InvoiceID).Count(&n).Error; err != nil {
		return nil, translate(err)
	}
	if n == 0 {
		return nil, apperrors.Validationf("invoice_id", "unknown_invoice")
	}
	a := models.FileAttachment{
		InvoiceID:    in.InvoiceID,
		OriginalName: in.OriginalName,
		StoredName:   in.StoredName,
		Path:         in.Path,
		Size:         in.Size,
		MimeType:     in.MimeType,
		Extension:    in.Extension,
	}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) AttachmentByID(ctx context.Context, id int64) (*models.FileAttachment, error) {
	var a models.FileAttachment
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) InvoiceAttachments(ctx context.Context, invoiceID int64) ([]models.FileAttachment, error) {
	out := []models.FileAttachment{}
	err := s.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("id").Find(&out).Error
	return out, translate(err)
}

func (s *Store) DeleteAttachment(ctx context.Context, id int64) error {
	return translate(s.db.WithContext(ctx).Delete(&models.FileAttachment{}, id).Error)
}

// --- settings ---

func (s *Store) SaveCompanySettings(ctx context.Context, values map[string]string) error {
	return s.saveSettings(ctx, values)
}

func (s *Store) SaveInvoiceSettings(ctx context.Context, values map[string]string) error {
	return s.saveSettings(ctx, values)
}

func (s *Store) saveSettings(ctx context.Context, values map[string]string) error {
	now := time.Now().UTC()
	for key, value := range values {
		row := models.Setting{
			Key:       key,
			Value:     value,
			Category:  store.CategoryForKey(key),
			UpdatedAt: now,
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return translate(err)
		}
	}
	return nil
}

func (s *Store) AppSettings(ctx context.Context) (*models.AppSettings, error) {
	var rows []models.Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return store.BuildAppSettings(rows), nil
}

// --- activity log ---

func (s *Store) LogActivity(ctx context.Context, in store.ActivityInput) error {
	if err := validation.Activity(in); err != nil {
		return err
	}
	return translate(s.db.WithContext(ctx).Create(&models.ActivityLog{
		UserID:      in.UserID,
		Action:      in.Action,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		Description: in.Description,
	}).Error)
}

func (s *Store) RecentActivity(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 20
	}
	out := []models.ActivityLog{}
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&out).Error
	return out, translate(err)
}

// --- dashboard ---

func (s *Store) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &models.DashboardStats{TotalRevenue: decimal.Zero}
	if err := db.Model(&models.Client{}).Where("active = ?", true).
		Count(&stats.TotalClients).Error; err != nil {
		return nil, translate(err)
	}
	if err := db.Model(&models.Invoice{}).Count(&stats.TotalInvoices).Error; err != nil {
		return nil, translate(err)
	}
	if err := db.Model(&models.Invoice{}).Where("status = ?", models.StatusSent).
		Count(&stats.PendingInvoices).Error; err != nil {
		return nil, translate(err)
	}
	// Sum in Go over decimals; SQLite would coerce the numeric column to
	// float inside SUM().
	var paid []models.Invoice
	if err := db.Select("total").Where("status = ?", models.StatusPaid).
		Find(&paid).Error; err != nil {
		return nil, translate(err)
	}
	for _, inv := range paid {
		stats.TotalRevenue = stats.TotalRevenue.Add(inv.Total)
	}
	start := monthStart(time.Now())
	if err := db.Model(&models.Invoice{}).
		Where("issue_date >= ? AND issue_date < ?", start, start.AddDate(0, 1, 0)).
		Count(&stats.InvoicesThisMonth).Error; err != nil {
		return nil, translate(err)
	}
	return stats, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
