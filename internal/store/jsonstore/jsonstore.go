// Package jsonstore implements the storage contract on a single JSON file.
// The whole document lives in memory and is rewritten on every mutation via
// a temp file and an atomic rename. The on-disk layout is the one the
// application has always used:
//
//	{"data": {"users": [...], "clients": [...], ...},
//	 "nextIds": {"clients": 4, ...},
//	 "lastUpdated": "..."}
//
// Single logical writer assumed; the mutex only protects concurrent API
// handlers inside one process.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/models"
	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/validation"
)

type tables struct {
	Users           []models.User           `json:"users"`
	Clients         []models.Client         `json:"clients"`
	Products        []models.Product        `json:"products"`
	Invoices        []models.Invoice        `json:"invoices"`
	InvoiceLines    []models.InvoiceLine    `json:"invoice_lines"`
	FileAttachments []models.FileAttachment `json:"file_attachments"`
	Settings        []models.Setting        `json:"settings"`
	ActivityLog     []models.ActivityLog    `json:"activity_log"`
}

type document struct {
	Data        tables           `json:"data"`
	NextIDs     map[string]int64 `json:"nextIds"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

type Store struct {
	mu     sync.RWMutex
	path   string
	doc    document
	coll   *collate.Collator
	closed bool
}

var _ store.Store = (*Store)(nil)

// Open loads (or creates) the database file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonstore: create data dir: %w", err)
	}
	s := &Store{
		path: path,
		coll: collate.New(language.Spanish, collate.IgnoreCase),
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.doc); err != nil {
			return nil, fmt.Errorf("jsonstore: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		s.doc = emptyDocument()
		if err := s.persist(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("jsonstore: read %s: %w", path, err)
	}
	if s.doc.NextIDs == nil {
		s.doc.NextIDs = emptyDocument().NextIDs
	}
	return s, nil
}

func emptyDocument() document {
	return document{
		Data: tables{
			Users:           []models.User{},
			Clients:         []models.Client{},
			Products:        []models.Product{},
			Invoices:        []models.Invoice{},
			InvoiceLines:    []models.InvoiceLine{},
			FileAttachments: []models.FileAttachment{},
			Settings:        []models.Setting{},
			ActivityLog:     []models.ActivityLog{},
		},
		NextIDs: map[string]int64{
			"users": 1, "clients": 1, "products": 1, "invoices": 1,
			"invoice_lines": 1, "file_attachments": 1, "activity_log": 1,
		},
		LastUpdated: time.Now().UTC(),
	}
}

func (s *Store) Name() string { return "json" }

// Close is idempotent; there is no open handle to release, only a flag so
// that a close-then-use shows up during development.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// persist writes the whole document through a temp file and a rename so a
// crash mid-write can never truncate the store. Caller holds the write lock.
func (s *Store) persist() error {
	s.doc.LastUpdated = time.Now().UTC()
	raw, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonstore: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".facturador-*.json")
	if err != nil {
		return fmt.Errorf("jsonstore: temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("jsonstore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("jsonstore: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("jsonstore: replace %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) nextID(table string) int64 {
	id := s.doc.NextIDs[table]
	if id <= 0 {
		id = 1
	}
	s.doc.NextIDs[table] = id + 1
	return id
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, in store.UserInput) (*models.User, error) {
	if err := validation.User(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	for _, u := range s.doc.Data.Users {
		if strings.EqualFold(u.Email, email) {
			return nil, apperrors.ErrDuplicate
		}
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	now := time.Now().UTC()
	u := models.User{
		ID:           s.nextID("users"),
		Email:        email,
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.doc.Data.Users = append(s.doc.Data.Users, u)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.doc.Data.Users {
		if s.doc.Data.Users[i].ID == id {
			u := s.doc.Data.Users[i]
			return &u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.doc.Data.Users {
		if strings.EqualFold(s.doc.Data.Users[i].Email, email) {
			u := s.doc.Data.Users[i]
			return &u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) UpdateUserPassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Data.Users {
		if s.doc.Data.Users[i].ID == id {
			s.doc.Data.Users[i].PasswordHash = passwordHash
			s.doc.Data.Users[i].UpdatedAt = time.Now().UTC()
			return s.persist()
		}
	}
	return apperrors.ErrNotFound
}

func (s *Store) TouchLastLogin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Data.Users {
		if s.doc.Data.Users[i].ID == id {
			now := time.Now().UTC()
			s.doc.Data.Users[i].LastLoginAt = &now
			return s.persist()
		}
	}
	return apperrors.ErrNotFound
}

func (s *Store) DeactivateUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Data.Users {
		if s.doc.Data.Users[i].ID == id {
			if !s.doc.Data.Users[i].Active {
				return nil
			}
			s.doc.Data.Users[i].Active = false
			s.doc.Data.Users[i].UpdatedAt = time.Now().UTC()
			return s.persist()
		}
	}
	return nil
}

// --- clients ---

func (s *Store) CreateClient(_ context.Context, in store.ClientInput) (*models.Client, error) {
	if err := validation.Client(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c := models.Client{
		ID:         s.nextID("clients"),
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Address:    in.Address,
		City:       in.City,
		PostalCode: in.PostalCode,
		TaxID:      in.TaxID,
		Notes:      in.Notes,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.doc.Data.Clients = append(s.doc.Data.Clients, c)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ClientByID(_ context.Context, id int64) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.doc.Data.Clients {
		if s.doc.Data.Clients[i].ID == id {
			c := s.doc.Data.Clients[i]
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) Clients(_ context.Context) ([]models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeClientsLocked(""), nil
}

func (s *Store) UpdateClient(_ context.Context, id int64, in store.ClientInput) (*models.Client, error) {
	if err := validation.Client(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Data.Clients {
		if s.doc.Data.Clients[i].ID != id {
			continue
		}
		c := &s.doc.Data.Clients[i]
		c.Name = in.Name
		c.Email = in.Email
		c.Phone = in.Phone
		c.Address = in.Address
		c.City = in.City
		c.PostalCode = in.PostalCode
		c.TaxID = in.TaxID
		c.Notes = in.Notes
		c.UpdatedAt = time.Now().UTC()
		if err := s.persist(); err != nil {
			return nil, err
		}
		out := *c
		return &out, nil
	}
	return nil, apperrors.ErrNotFound
}

// DeleteClient soft-deletes; a second call on the same id is a no-op.
func (s *Store) DeleteClient(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Data.Clients {
		if s.doc.Data.Clients[i].ID == id {
			if !s.doc.Data.Clients[i].Active {
				return nil
			}
			s.doc.Data.Clients[i].Active = false
			s.doc.Data.Clients[i].UpdatedAt = time.Now().UTC()
			return s.persist()
		}
	}
	return nil
}

func (s *Store) SearchClients(_ context.Context, term string) ([]models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeClientsLocked(strings.TrimSpace(term)), nil
}

// activeClientsLocked filters, optionally matches and sorts by name using
// Spanish collation. Optional fields are plain strings here, so matching is
// safe on records that were stored without email or phone.
func (s *Store) activeClientsLocked(term string) []models.Client {
	needle := strings.ToLower(term)
	out := []models.Client{}
	for _, c := range s.doc.Data.Clients {
		if !c.Active {
			continue
		}
		if needle != "" && !clientMatches(c, needle) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.coll.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

func clientMatches(c models.Client, needle string) bool {
	for _, f := range []string{c.Name, c.Email, c.Phone, c.TaxID} {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// --- products ---

func (s *Store) CreateProduct(_ context.Context, in store.ProductInput) (*models.Product, error) {
	if err := validation.Product(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.doc.Data.Products {
		if strings.EqualFold(p.Code, in.Code) {
			return nil, apperrors.ErrDuplicate
		}
	}
	vat := in.VATRate
	if vat.IsZero() {
		vat = models.DefaultVATRate
	}
	now := time.Now().UTC()
	p := models.Product{
		ID:          s.nextID("products"),
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		UnitPrice:   in.UnitPrice,
		Category:    in.Category,
		Unit:        in.Unit,
		VATRate:     vat,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.doc.Data.Products = append(s.doc.Data.Products, p)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ProductByID(_ context.Context, id int64) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.doc.Data.Products {
		if s.doc.Data.Products[i].ID == id {
			p := s.doc.Data.Products[i]
			return &p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) Products(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Product{}
	for _, p := range s.doc.Data.Products {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.coll.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out, nil
}

func (s *Store) UpdateProduct(_ context.Context, id int64, in store.ProductInput) (*models.Product, error) {
	if err := validation.Product(in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.doc.Data.Products {
		if p.ID != id && strings.EqualFold(p.Code, in.Code) {
			return nil, apperrors.ErrDuplicate
		}
	}
	for i := range s.doc.Data.Products {
		if s.doc.Data.Products[i].ID != id {
			continue
		}
		p := &s.doc.Data.Products[i]
		p.Code = in.Code
		p.Name = in.Name
		p.Description = in.Description
		p.UnitPrice = in.UnitPrice
		p.Category = in.Category
		p.Unit = in.Unit
		if !in.VATRate.IsZero() {
			p.VATRate = in.VATRate
		}
		p.UpdatedAt = time.Now().UTC()
		if err := s.persist(); err != nil {
			return nil, err
		}
		out := *p
		return &out, nil
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Data.Products {
		if s.doc.Data.Products[i].ID == id {
			if !s.doc.Data.Products[i].Active {
				return nil
			}
			s.doc.Data.Products[i].Active = false
			s.doc.Data.Products[i].UpdatedAt = time.Now().UTC()
			return s.persist()
		}
	}
	return nil
}
