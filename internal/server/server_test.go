package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icalvete/facturador/internal/server"
	"github.com/icalvete/facturador/internal/store/jsonstore"
)

type env struct {
	t      *testing.T
	router http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	s, err := jsonstore.Open(filepath.Join(dir, "data.json"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := server.New(s, logger, filepath.Join(dir, "uploads"))
	return &env{t: t, router: h.Router()}
}

func (e *env) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) decode(rec *httptest.ResponseRecorder, dst any) {
	e.t.Helper()
	var envl struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &envl))
	require.True(e.t, envl.Success, "expected success envelope, got error %q", envl.Error)
	if dst != nil {
		require.NoError(e.t, json.Unmarshal(envl.Data, dst))
	}
}

func (e *env) createClient(name string) int64 {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/clients", map[string]string{"name": name})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var c struct {
		ID int64 `json:"id"`
	}
	e.decode(rec, &c)
	return c.ID
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]string
	e.decode(rec, &data)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "json", data["backend"])
}

func TestClientLifecycle(t *testing.T) {
	e := newEnv(t)

	id := e.createClient("Acme SL")

	rec := e.do(http.MethodGet, "/api/clients/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodPut, "/api/clients/"+itoa(id), map[string]string{
		"name": "Acme Renovada SL", "city": "Bilbao",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var c struct {
		Name string `json:"name"`
		City string `json:"city"`
	}
	e.decode(rec, &c)
	assert.Equal(t, "Acme Renovada SL", c.Name)
	assert.Equal(t, "Bilbao", c.City)

	rec = e.do(http.MethodDelete, "/api/clients/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/clients/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientValidationErrors(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/api/clients", map[string]string{"email": "x@y.es"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envl struct {
		Success bool              `json:"success"`
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envl))
	assert.False(t, envl.Success)
	assert.Equal(t, "validation_failed", envl.Error)
	assert.Equal(t, "required", envl.Details["name"])

	rec = e.do(http.MethodPost, "/api/clients", map[string]string{"name": "X", "email": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientSearch(t *testing.T) {
	e := newEnv(t)
	e.createClient("García SL")
	e.createClient("Pérez SA")

	rec := e.do(http.MethodGet, "/api/clients/?q=garc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	e.decode(rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "García SL", list[0]["name"])
}

func TestInvoiceTotalsComputedServerSide(t *testing.T) {
	e := newEnv(t)
	clientID := e.createClient("Facturado SL")

	rec := e.do(http.MethodPost, "/api/invoices", map[string]any{
		"client_id": clientID,
		// Bogus totals on purpose; the server must ignore them.
		"subtotal": 1, "vat_total": 1, "total": 1,
		"lines": []map[string]any{
			{"concept": "Desarrollo web", "quantity": 10, "unit_price": 10.00, "vat_rate": 21},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var inv struct {
		ID       int64           `json:"id"`
		Number   string          `json:"number"`
		Subtotal json.RawMessage `json:"subtotal"`
		VATTotal json.RawMessage `json:"vat_total"`
		Total    json.RawMessage `json:"total"`
		Status   string          `json:"status"`
	}
	e.decode(rec, &inv)
	assert.Equal(t, "100", string(inv.Subtotal))
	assert.Equal(t, "21", string(inv.VATTotal))
	assert.Equal(t, "121", string(inv.Total))
	assert.Equal(t, "borrador", inv.Status)
	assert.Contains(t, inv.Number, "FAC-")

	rec = e.do(http.MethodPut, "/api/invoices/"+itoa(inv.ID)+"/status", map[string]string{"status": "pagada"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodPut, "/api/invoices/"+itoa(inv.ID)+"/status", map[string]string{"status": "perdida"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		TotalRevenue json.RawMessage `json:"totalRevenue"`
	}
	e.decode(rec, &stats)
	assert.Equal(t, "121", string(stats.TotalRevenue))
}

func TestNextInvoiceNumber(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodGet, "/api/invoices/next-number", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]string
	e.decode(rec, &data)
	assert.Regexp(t, `^FAC-\d{4}-0001$`, data["number"])
}

func TestInvoiceUnknownClient(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodPost, "/api/invoices", map[string]any{"client_id": 42})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsMerge(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPut, "/api/settings/company", map[string]string{
		"company_name": "Taller Uno SL",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodPut, "/api/settings/company", map[string]string{
		"company_city": "Valencia",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var settings struct {
		Company map[string]string `json:"company"`
		Invoice map[string]string `json:"invoice"`
	}
	rec = e.do(http.MethodGet, "/api/settings/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	e.decode(rec, &settings)
	assert.Equal(t, "Taller Uno SL", settings.Company["company_name"])
	assert.Equal(t, "Valencia", settings.Company["company_city"])
	assert.Equal(t, "FAC", settings.Invoice["invoice_prefix"])
}

func TestUserRegistrationAndLogin(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/api/users", map[string]string{
		"email": "admin@taller.es", "name": "Admin", "password": "superseguro1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u struct {
		Email        string `json:"email"`
		PasswordHash string `json:"password_hash"`
	}
	e.decode(rec, &u)
	assert.Equal(t, "admin@taller.es", u.Email)
	assert.Empty(t, u.PasswordHash, "hash never leaves the server")

	rec = e.do(http.MethodPost, "/api/users", map[string]string{
		"email": "otro@taller.es", "password": "corta",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/login", map[string]string{
		"email": "admin@taller.es", "password": "superseguro1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodPost, "/api/login", map[string]string{
		"email": "admin@taller.es", "password": "equivocada",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodPost, "/api/login", map[string]string{
		"email": "nadie@taller.es", "password": "superseguro1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttachmentUploadAndDelete(t *testing.T) {
	e := newEnv(t)
	clientID := e.createClient("Con Adjuntos SL")

	rec := e.do(http.MethodPost, "/api/invoices", map[string]any{
		"client_id": clientID,
		"lines": []map[string]any{
			{"concept": "Trabajo", "quantity": 1, "unit_price": 100},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var inv struct {
		ID int64 `json:"id"`
	}
	e.decode(rec, &inv)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "contrato.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/"+itoa(inv.ID)+"/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	upRec := httptest.NewRecorder()
	e.router.ServeHTTP(upRec, req)
	require.Equal(t, http.StatusCreated, upRec.Code, upRec.Body.String())

	var att struct {
		ID           int64  `json:"id"`
		OriginalName string `json:"original_name"`
		Size         int64  `json:"size"`
	}
	e.decode(upRec, &att)
	assert.Equal(t, "contrato.pdf", att.OriginalName)
	assert.Equal(t, int64(13), att.Size)

	rec = e.do(http.MethodGet, "/api/invoices/"+itoa(inv.ID)+"/attachments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	e.decode(rec, &list)
	require.Len(t, list, 1)

	rec = e.do(http.MethodGet, "/api/attachments/"+itoa(att.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 fake", rec.Body.String())

	rec = e.do(http.MethodDelete, "/api/attachments/"+itoa(att.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodGet, "/api/attachments/"+itoa(att.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivityEndpoint(t *testing.T) {
	e := newEnv(t)
	e.createClient("Uno SL")
	e.createClient("Dos SL")

	rec := e.do(http.MethodGet, "/api/activity?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []struct {
		Action     string `json:"action"`
		EntityType string `json:"entity_type"`
	}
	e.decode(rec, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "create", entries[0].Action)
	assert.Equal(t, "client", entries[0].EntityType)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
