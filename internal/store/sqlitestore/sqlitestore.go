// Package sqlitestore implements the storage contract on an embedded SQLite
// database through gorm. Schema is auto-migrated on open.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/validation"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database file. Use "file::memory:?cache=shared"
// for tests.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	for _, m := range []any{
		&models.User{}, &models.Client{}, &models.Product{},
		&models.Invoice{}, &models.InvoiceLine{}, &models.FileAttachment{},
		&models.Setting{}, &models.ActivityLog{},
	} {
		if err := db.AutoMigrate(m); err != nil {
			return nil, fmt.Errorf("sqlitestore: automigrate %T: %w", m, err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Name() string { return "sqlite" }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.ErrDuplicate
	}
	return err
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, in store.UserInput) (*models.User, error) {
	if err := validation.User(in); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	u := models.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
		Role:         role,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("last_login_at", time.Now().UTC())
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *Store) DeactivateUser(ctx context.Context, id int64) error {
	return translate(s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).Update("active", false).Error)
}

// --- clients ---

func (s *Store) CreateClient(ctx context.Context, in store.ClientInput) (*models.Client, error) {
	if err := validation.Client(in); err != nil {
		return nil, err
	}
	c := clientFromInput(in)
	c.Active = true
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func clientFromInput(in store.ClientInput) models.Client {
	return models.Client{
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Address:    in.Address,
		City:       in.City,
		PostalCode: in.PostalCode,
		TaxID:      in.TaxID,
		Notes:      in.Notes,
	}
}

func (s *Store) ClientByID(ctx context.Context, id int64) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) Clients(ctx context.Context) ([]models.Client, error) {
	out := []models.Client{}
	err := s.db.WithContext(ctx).Where("active = ?", true).
		Order("name COLLATE NOCASE").Find(&out).Error
	return out, translate(err)
}

func (s *Store) UpdateClient(ctx context.Context, id int64, in store.ClientInput) (*models.Client, error) {
	if err := validation.Client(in); err != nil {
		return nil, err
	}
	var c models.Client
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	c.Name = in.Name
	c.Email = in.Email
	c.Phone = in.Phone
	c.Address = in.Address
	c.City = in.City
	c.PostalCode = in.PostalCode
	c.TaxID = in.TaxID
	c.Notes = in.Notes
	if err := s.db.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	return translate(s.db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ?", id).Update("active", false).Error)
}

func (s *Store) SearchClients(ctx context.Context, term string) ([]models.Client, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.Clients(ctx)
	}
	like := "%" + strings.ToLower(term) + "%"
	out := []models.Client{}
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Where("lower(name) LIKE ? OR lower(email) LIKE ? OR lower(phone) LIKE ? OR lower(tax_id) LIKE ?",
			like, like, like, like).
		Order("name COLLATE NOCASE").
		Find(&out).Error
	return out, translate(err)
}

// --- products ---

func (s *Store) CreateProduct(ctx context.Context, in store.ProductInput) (*models.Product, error) {
	if err := validation.Product(in); err != nil {
		return nil, err
	}
	vat := in.VATRate
	if vat.IsZero() {
		vat = models.DefaultVATRate
	}
	p := models.Product{
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		UnitPrice:   in.UnitPrice,
		Category:    in.Category,
		Unit:        in.Unit,
		VATRate:     vat,
		Active:      true,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	out := []models.Product{}
	err := s.db.WithContext(ctx).Where("active = ?", true).
		Order("name COLLATE NOCASE").Find(&out).Error
	return out, translate(err)
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, in store.ProductInput) (*models.Product, error) {
	if err := validation.Product(in); err != nil {
		return nil, err
	}
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	p.Code = in.Code
	p.Name = in.Name
	p.Description = in.Description
	p.UnitPrice = in.UnitPrice
	p.Category = in.Category
	p.Unit = in.Unit
	if !in.VATRate.IsZero() {
		p.VATRate = in.VATRate
	}
	if err := s.db.WithContext(ctx).Save(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	return translate(s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).Update("active", false).Error)
}
