package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/validation"
)

// --- attachments ---

const attachmentCols = `id, invoice_id, original_name, stored_name, path, size, mime_type, extension, created_at`

func scanAttachmentRow(row pgx.Row) (*models.FileAttachment, error) {
	var a models.FileAttachment
	err := row.Scan(&a.ID, &a.InvoiceID, &a.OriginalName, &a.StoredName, &a.Path,
		&a.Size, &a.MimeType, &a.Extension, &a.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) AddAttachment(ctx context.Context, in store.AttachmentInput) (*models.FileAttachment, error) {
	if err := validation.Attachment(in); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO file_attachments (invoice_id, original_name, stored_name, path, size, mime_type, extension)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+attachmentCols,
		in.InvoiceID, in.OriginalName, in.StoredName, in.Path, in.Size, in.MimeType, in.Extension)
	return scanAttachmentRow(row)
}

func (s *Store) AttachmentByID(ctx context.Context, id int64) (*models.FileAttachment, error) {
	return scanAttachmentRow(s.pool.QueryRow(ctx,
		`SELECT `+attachmentCols+` FROM file_attachments WHERE id = $1`, id))
}

func (s *Store) InvoiceAttachments(ctx context.Context, invoiceID int64) ([]models.FileAttachment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+attachmentCols+` FROM file_attachments WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []models.FileAttachment{}
	for rows.Next() {
		a, err := scanAttachmentRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, translate(rows.Err())
}

func (s *Store) DeleteAttachment(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM file_attachments WHERE id = $1`, id)
	return translate(err)
}

// --- settings ---

func (s *Store) SaveCompanySettings(ctx context.Context, values map[string]string) error {
	return s.saveSettings(ctx, values)
}

func (s *Store) SaveInvoiceSettings(ctx context.Context, values map[string]string) error {
	return s.saveSettings(ctx, values)
}

func (s *Store) saveSettings(ctx context.Context, values map[string]string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for key, value := range values {
			_, err := tx.Exec(ctx, `
				INSERT INTO settings (key, value, category)
				VALUES ($1, $2, $3)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
				key, value, store.CategoryForKey(key))
			if err != nil {
				return translate(err)
			}
		}
		return nil
	})
}

func (s *Store) AppSettings(ctx context.Context) (*models.AppSettings, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value, category, description, updated_at FROM settings`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var settings []models.Setting
	for rows.Next() {
		var st models.Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.Category, &st.Description, &st.UpdatedAt); err != nil {
			return nil, translate(err)
		}
		settings = append(settings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return store.BuildAppSettings(settings), nil
}

// --- activity log ---

func (s *Store) LogActivity(ctx context.Context, in store.ActivityInput) error {
	if err := validation.Activity(in); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO activity_log (user_id, action, entity_type, entity_id, description)
		VALUES ($1, $2, $3, $4, $5)`,
		in.UserID, in.Action, in.EntityType, in.EntityID, in.Description)
	return translate(err)
}

func (s *Store) RecentActivity(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, action, entity_type, entity_id, description, created_at
		FROM activity_log ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []models.ActivityLog{}
	for rows.Next() {
		var e models.ActivityLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID,
			&e.Description, &e.CreatedAt); err != nil {
			return nil, translate(err)
		}
		out = append(out, e)
	}
	return out, translate(rows.Err())
}

// --- dashboard ---

func (s *Store) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM clients WHERE active),
			(SELECT count(*) FROM invoices),
			(SELECT count(*) FROM invoices WHERE status = 'enviada'),
			(SELECT COALESCE(SUM(total), 0) FROM invoices WHERE status = 'pagada'),
			(SELECT count(*) FROM invoices WHERE date_trunc('month', issue_date) = date_trunc('month', now()))`).
		Scan(&stats.TotalClients, &stats.TotalInvoices, &stats.PendingInvoices,
			&stats.TotalRevenue, &stats.InvoicesThisMonth)
	if err != nil {
		return nil, translate(err)
	}
	return &stats, nil
}
