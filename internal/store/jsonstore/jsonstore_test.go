package jsonstore_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/store/jsonstore"
	"github.com/icalvete/facturador/internal/store/storetest"
)

func openStore(t *testing.T) store.Store {
	t.Helper()
	s, err := jsonstore.Open(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestContract(t *testing.T) {
	storetest.Run(t, openStore)
}

func TestFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := jsonstore.Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateClient(context.Background(), store.ClientInput{Name: "Layout SL"})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Contains(t, doc, "data")
	require.Contains(t, doc, "nextIds")
	require.Contains(t, doc, "lastUpdated")

	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["data"], &data))
	for _, table := range []string{
		"users", "clients", "products", "invoices",
		"invoice_lines", "file_attachments", "settings", "activity_log",
	} {
		assert.Contains(t, data, table)
	}

	var nextIds map[string]int64
	require.NoError(t, json.Unmarshal(doc["nextIds"], &nextIds))
	assert.Equal(t, int64(2), nextIds["clients"], "counter advances past the created record")
	assert.Equal(t, int64(1), nextIds["products"])
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ctx := context.Background()

	s, err := jsonstore.Open(path)
	require.NoError(t, err)
	c, err := s.CreateClient(ctx, store.ClientInput{Name: "Persistente SL", Email: "p@p.es"})
	require.NoError(t, err)
	inv, err := s.CreateInvoice(ctx, store.InvoiceInput{ClientID: c.ID})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := jsonstore.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ClientByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persistente SL", got.Name)

	gotInv, err := reopened.InvoiceByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Number, gotInv.Number)

	// Id counters survive the restart, no reuse after reopen.
	c2, err := reopened.CreateClient(ctx, store.ClientInput{Name: "Nuevo SL"})
	require.NoError(t, err)
	assert.Greater(t, c2.ID, c.ID)
}

func TestOpenCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "data.json")
	s, err := jsonstore.Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)

	clients, err := s.Clients(context.Background())
	require.NoError(t, err)
	assert.Empty(t, clients)
}
