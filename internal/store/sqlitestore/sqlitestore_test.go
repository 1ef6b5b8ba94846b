package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/store/sqlitestore"
	"github.com/icalvete/facturador/internal/store/storetest"
)

func openStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlitestore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestContract(t *testing.T) {
	storetest.Run(t, openStore)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := sqlitestore.Open(path)
	require.NoError(t, err)
	c, err := s.CreateClient(ctx, store.ClientInput{Name: "Duradero SL"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := sqlitestore.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ClientByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Duradero SL", got.Name)
}

func TestDuplicateProductCode(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, store.ProductInput{Code: "DUP-1", Name: "Uno"})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, store.ProductInput{Code: "DUP-1", Name: "Dos"})
	require.Error(t, err)
}
