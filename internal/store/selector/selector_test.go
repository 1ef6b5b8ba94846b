package selector_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icalvete/facturador/internal/config"
	"github.com/icalvete/facturador/internal/store/selector"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAutoFallsBackToJSON(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := config.Config{
		Driver:      config.DriverAuto,
		DatabaseDSN: "postgres://nobody@127.0.0.1:1/ghost?sslmode=disable",
		DataDir:     t.TempDir(),
	}
	s, err := selector.Open(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "json", s.Name())
}

func TestExplicitJSON(t *testing.T) {
	cfg := config.Config{Driver: config.DriverJSON, DataDir: t.TempDir()}
	s, err := selector.Open(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "json", s.Name())
}

func TestExplicitSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{Driver: config.DriverSQLite, SQLitePath: dir + "/app.db"}
	s, err := selector.Open(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "sqlite", s.Name())
}

// An explicit postgres choice must not fall back silently.
func TestExplicitPostgresFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := config.Config{
		Driver:      config.DriverPostgres,
		DatabaseDSN: "postgres://nobody@127.0.0.1:1/ghost?sslmode=disable",
	}
	_, err := selector.Open(ctx, cfg, testLogger())
	require.Error(t, err)
}

func TestUnknownDriver(t *testing.T) {
	_, err := selector.Open(context.Background(), config.Config{Driver: "oracle"}, testLogger())
	require.Error(t, err)
}
