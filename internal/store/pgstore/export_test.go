package pgstore

import "context"

// TruncateAll empties every table so contract subtests start clean. Test-only.
func TruncateAll(ctx context.Context, s *Store) error {
	_, err := s.pool.Exec(ctx, `
		TRUNCATE activity_log, settings, file_attachments, invoice_lines,
			invoices, products, clients, users RESTART IDENTITY CASCADE`)
	return err
}
