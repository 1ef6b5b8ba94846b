package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/services"
	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/validation"
)

const invoiceCols = `id, number, client_id, issue_date, due_date, subtotal, vat_total, total,
	discount, status, notes, payment_terms, payment_method, created_at, updated_at`

const lineCols = `id, invoice_id, product_id, concept, quantity, unit_price, discount,
	vat_rate, subtotal, vat_amount, total, "position"`

func scanInvoiceRow(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.ClientID, &inv.IssueDate, &inv.DueDate,
		&inv.Subtotal, &inv.VATTotal, &inv.Total, &inv.Discount, &inv.Status,
		&inv.Notes, &inv.PaymentTerms, &inv.PaymentMethod, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func scanLineRow(row pgx.Row) (*models.InvoiceLine, error) {
	var ln models.InvoiceLine
	err := row.Scan(&ln.ID, &ln.InvoiceID, &ln.ProductID, &ln.Concept, &ln.Quantity,
		&ln.UnitPrice, &ln.Discount, &ln.VATRate, &ln.Subtotal, &ln.VATAmount,
		&ln.Total, &ln.Position)
	if err != nil {
		return nil, translate(err)
	}
	return &ln, nil
}

func (s *Store) CreateInvoice(ctx context.Context, in store.InvoiceInput) (*models.Invoice, error) {
	if err := validation.Invoice(in); err != nil {
		return nil, err
	}
	var inv *models.Invoice
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.clientExists(ctx, tx, in.ClientID); err != nil {
			return err
		}
		number := in.Number
		if number == "" {
			var err error
			if number, err = s.nextNumber(ctx, tx); err != nil {
				return err
			}
		}
		status := in.Status
		if status == "" {
			status = models.StatusDraft
		}
		issue := in.IssueDate
		if issue.IsZero() {
			issue = time.Now().UTC().Truncate(24 * time.Hour)
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO invoices (number, client_id, issue_date, due_date, subtotal,
				vat_total, total, discount, status, notes, payment_terms, payment_method)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING `+invoiceCols,
			number, in.ClientID, issue, in.DueDate, in.Subtotal, in.VATTotal,
			in.Total, in.Discount, status, in.Notes, in.PaymentTerms, in.PaymentMethod)
		var err error
		if inv, err = scanInvoiceRow(row); err != nil {
			return err
		}
		lines, err := s.insertLines(ctx, tx, inv.ID, in.Lines)
		if err != nil {
			return err
		}
		inv.Lines = lines
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return inv, nil
}

func (s *Store) InvoiceByID(ctx context.Context, id int64) (*models.Invoice, error) {
	inv, err := scanInvoiceRow(s.pool.QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	lines, err := s.linesFor(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return inv, nil
}

func (s *Store) Invoices(ctx context.Context) ([]models.Invoice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+invoiceCols+` FROM invoices ORDER BY issue_date DESC, id DESC`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoiceRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, translate(rows.Err())
}

func (s *Store) UpdateInvoice(ctx context.Context, id int64, in store.InvoiceInput) (*models.Invoice, error) {
	if err := validation.Invoice(in); err != nil {
		return nil, err
	}
	var inv *models.Invoice
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := scanInvoiceRow(tx.QueryRow(ctx,
			`SELECT `+invoiceCols+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := s.clientExists(ctx, tx, in.ClientID); err != nil {
			return err
		}
		number := in.Number
		if number == "" {
			number = current.Number
		}
		status := in.Status
		if status == "" {
			status = current.Status
		}
		issue := in.IssueDate
		if issue.IsZero() {
			issue = current.IssueDate
		}
		row := tx.QueryRow(ctx, `
			UPDATE invoices
			SET number = $1, client_id = $2, issue_date = $3, due_date = $4,
			    subtotal = $5, vat_total = $6, total = $7, discount = $8,
			    status = $9, notes = $10, payment_terms = $11, payment_method = $12,
			    updated_at = now()
			WHERE id = $13
			RETURNING `+invoiceCols,
			number, in.ClientID, issue, in.DueDate, in.Subtotal, in.VATTotal,
			in.Total, in.Discount, status, in.Notes, in.PaymentTerms,
			in.PaymentMethod, id)
		if inv, err = scanInvoiceRow(row); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, id); err != nil {
			return err
		}
		lines, err := s.insertLines(ctx, tx, id, in.Lines)
		if err != nil {
			return err
		}
		inv.Lines = lines
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return inv, nil
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, id int64, status string) (*models.Invoice, error) {
	if err := validation.Status(status); err != nil {
		return nil, err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return nil, translate(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}
	return s.InvoiceByID(ctx, id)
}

// DeleteInvoice relies on ON DELETE CASCADE for lines and attachments.
func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	return translate(err)
}

func (s *Store) NextInvoiceNumber(ctx context.Context) (string, error) {
	return s.nextNumber(ctx, s.pool)
}

// nextNumber counts the current year's rows and adds one. Same strategy as
// the sqlite backend; the JSON backend scans for the max instead.
func (s *Store) nextNumber(ctx context.Context, q querier) (string, error) {
	prefix, err := s.currentPrefix(ctx, q)
	if err != nil {
		return "", err
	}
	year := time.Now().Year()
	var count int
	err = q.QueryRow(ctx, `SELECT count(*) FROM invoices WHERE number LIKE $1`,
		services.NumberLikePrefix(prefix, year)).Scan(&count)
	if err != nil {
		return "", translate(err)
	}
	return services.FormatInvoiceNumber(prefix, year, count+1), nil
}

func (s *Store) clientExists(ctx context.Context, q querier, clientID int64) error {
	var n int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM clients WHERE id = $1`, clientID).Scan(&n); err != nil {
		return translate(err)
	}
	if n == 0 {
		return apperrors.Validationf("client_id", "unknown_client")
	}
	return nil
}

func (s *Store) insertLines(ctx context.Context, q querier, invoiceID int64, lines []store.InvoiceLineInput) ([]models.InvoiceLine, error) {
	out := make([]models.InvoiceLine, 0, len(lines))
	for i, ln := range lines {
		pos := ln.Position
		if pos == 0 {
			pos = i + 1
		}
		row := q.QueryRow(ctx, `
			INSERT INTO invoice_lines (invoice_id, product_id, concept, quantity,
				unit_price, discount, vat_rate, subtotal, vat_amount, total, "position")
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING `+lineCols,
			invoiceID, ln.ProductID, ln.Concept, ln.Quantity, ln.UnitPrice,
			ln.Discount, ln.VATRate, ln.Subtotal, ln.VATAmount, ln.Total, pos)
		rec, err := scanLineRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *Store) linesFor(ctx context.Context, q querier, invoiceID int64) ([]models.InvoiceLine, error) {
	rows, err := q.Query(ctx,
		`SELECT `+lineCols+` FROM invoice_lines WHERE invoice_id = $1 ORDER BY "position"`, invoiceID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []models.InvoiceLine
	for rows.Next() {
		ln, err := scanLineRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ln)
	}
	return out, translate(rows.Err())
}
