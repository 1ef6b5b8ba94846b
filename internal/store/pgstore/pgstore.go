// Package pgstore implements the storage contract on PostgreSQL using pgx.
// Schema lives in embedded SQL migrations applied on open.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/validation"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects, pings and migrates. A single attempt: the selector decides
// what to do when postgres is unreachable.
func Open(ctx context.Context, dsn string) (*Store, error) {
	dsn = NormalizeDSN(dsn)
	if dsn == "" {
		return nil, errors.New("pgstore: empty DSN")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse DSN: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	if err := runMigrations(dsn); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Name() string { return "postgres" }

// Close is idempotent; pgxpool tolerates repeated Close calls.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperrors.ErrDuplicate
		case "23503":
			return apperrors.Validationf("reference", "unknown_record")
		}
	}
	return err
}

// --- users ---

const userCols = `id, email, name, password_hash, role, active, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role,
		&u.Active, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, in store.UserInput) (*models.User, error) {
	if err := validation.User(in); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userCols,
		strings.ToLower(strings.TrimSpace(in.Email)), in.Name, in.PasswordHash, role)
	return scanUser(row)
}

func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1`, strings.ToLower(email)))
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		passwordHash, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *Store) DeactivateUser(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET active = FALSE, updated_at = now() WHERE id = $1`, id)
	return translate(err)
}

// --- clients ---

const clientCols = `id, name, email, phone, address, city, postal_code, tax_id, notes, active, created_at, updated_at`

func scanClientRow(row pgx.Row) (*models.Client, error) {
	var c models.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City,
		&c.PostalCode, &c.TaxID, &c.Notes, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func collectClients(rows pgx.Rows) ([]models.Client, error) {
	defer rows.Close()
	out := []models.Client{}
	for rows.Next() {
		c, err := scanClientRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, translate(rows.Err())
}

func (s *Store) CreateClient(ctx context.Context, in store.ClientInput) (*models.Client, error) {
	if err := validation.Client(in); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO clients (name, email, phone, address, city, postal_code, tax_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+clientCols,
		in.Name, in.Email, in.Phone, in.Address, in.City, in.PostalCode, in.TaxID, in.Notes)
	return scanClientRow(row)
}

func (s *Store) ClientByID(ctx context.Context, id int64) (*models.Client, error) {
	return scanClientRow(s.pool.QueryRow(ctx,
		`SELECT `+clientCols+` FROM clients WHERE id = $1`, id))
}

func (s *Store) Clients(ctx context.Context) ([]models.Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+clientCols+` FROM clients WHERE active ORDER BY lower(name)`)
	if err != nil {
		return nil, translate(err)
	}
	return collectClients(rows)
}

func (s *Store) UpdateClient(ctx context.Context, id int64, in store.ClientInput) (*models.Client, error) {
	if err := validation.Client(in); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE clients
		SET name = $1, email = $2, phone = $3, address = $4, city = $5,
		    postal_code = $6, tax_id = $7, notes = $8, updated_at = now()
		WHERE id = $9
		RETURNING `+clientCols,
		in.Name, in.Email, in.Phone, in.Address, in.City, in.PostalCode, in.TaxID, in.Notes, id)
	return scanClientRow(row)
}

func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE clients SET active = FALSE, updated_at = now() WHERE id = $1`, id)
	return translate(err)
}

func (s *Store) SearchClients(ctx context.Context, term string) ([]models.Client, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.Clients(ctx)
	}
	like := "%" + strings.ToLower(term) + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+clientCols+` FROM clients
		WHERE active AND (lower(name) LIKE $1 OR lower(email) LIKE $1
		      OR lower(phone) LIKE $1 OR lower(tax_id) LIKE $1)
		ORDER BY lower(name)`, like)
	if err != nil {
		return nil, translate(err)
	}
	return collectClients(rows)
}

// --- products ---

const productCols = `id, code, name, description, unit_price, category, unit, vat_rate, active, created_at, updated_at`

func scanProductRow(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.UnitPrice,
		&p.Category, &p.Unit, &p.VATRate, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, in store.ProductInput) (*models.Product, error) {
	if err := validation.Product(in); err != nil {
		return nil, err
	}
	vat := in.VATRate
	if vat.IsZero() {
		vat = models.DefaultVATRate
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, description, unit_price, category, unit, vat_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productCols,
		in.Code, in.Name, in.Description, in.UnitPrice, in.Category, in.Unit, vat)
	return scanProductRow(row)
}

func (s *Store) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	return scanProductRow(s.pool.QueryRow(ctx,
		`SELECT `+productCols+` FROM products WHERE id = $1`, id))
}

func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productCols+` FROM products WHERE active ORDER BY lower(name)`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []models.Product{}
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, translate(rows.Err())
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, in store.ProductInput) (*models.Product, error) {
	if err := validation.Product(in); err != nil {
		return nil, err
	}
	current, err := s.ProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	vat := in.VATRate
	if vat.IsZero() {
		vat = current.VATRate
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE products
		SET code = $1, name = $2, description = $3, unit_price = $4,
		    category = $5, unit = $6, vat_rate = $7, updated_at = now()
		WHERE id = $8
		RETURNING `+productCols,
		in.Code, in.Name, in.Description, in.UnitPrice, in.Category, in.Unit, vat, id)
	return scanProductRow(row)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE products SET active = FALSE, updated_at = now() WHERE id = $1`, id)
	return translate(err)
}

// currentPrefix reads the configured invoice prefix.
func (s *Store) currentPrefix(ctx context.Context, q querier) (string, error) {
	rows, err := q.Query(ctx, `SELECT key, value, category, description, updated_at FROM settings`)
	if err != nil {
		return "", translate(err)
	}
	defer rows.Close()
	var settings []models.Setting
	for rows.Next() {
		var st models.Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.Category, &st.Description, &st.UpdatedAt); err != nil {
			return "", translate(err)
		}
		settings = append(settings, st)
	}
	if err := rows.Err(); err != nil {
		return "", translate(err)
	}
	return store.PrefixFrom(settings), nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
