// Package selector picks the storage backend at startup.
//
// With STORAGE_DRIVER=auto it tries PostgreSQL and falls back to the JSON
// file store when the database is unreachable. SQLite is only used when
// asked for explicitly.
package selector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icalvete/facturador/internal/config"
	"github.com/icalvete/facturador/internal/store"
	"github.com/icalvete/facturador/internal/store/jsonstore"
	"github.com/icalvete/facturador/internal/store/pgstore"
	"github.com/icalvete/facturador/internal/store/sqlitestore"
)

// InitError reports that no backend could be opened in auto mode.
type InitError struct {
	Postgres error
	JSON     error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("selector: no storage backend available: postgres: %v; json: %v", e.Postgres, e.JSON)
}

// Open opens the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case config.DriverPostgres:
		return pgstore.Open(ctx, cfg.DatabaseDSN)
	case config.DriverSQLite:
		return sqlitestore.Open(cfg.SQLitePath)
	case config.DriverJSON:
		return jsonstore.Open(cfg.DataFile())
	case config.DriverAuto, "":
		pg, pgErr := pgstore.Open(ctx, cfg.DatabaseDSN)
		if pgErr == nil {
			logger.Info("storage backend selected", "driver", pg.Name())
			return pg, nil
		}
		logger.Warn("postgres unavailable, falling back to JSON store", "error", pgErr)
		js, jsonErr := jsonstore.Open(cfg.DataFile())
		if jsonErr != nil {
			return nil, &InitError{Postgres: pgErr, JSON: jsonErr}
		}
		logger.Info("storage backend selected", "driver", js.Name())
		return js, nil
	default:
		return nil, fmt.Errorf("selector: unknown storage driver %q", cfg.Driver)
	}
}
