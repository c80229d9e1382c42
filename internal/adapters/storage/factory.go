package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// SQLiteFile is the database file created under the storage path.
const SQLiteFile = "quotesync.db"

// Backend is a persistent KeyValueStore that reports its health and owns resources.
type Backend interface {
	ports.KeyValueStore
	ports.HealthChecker
	io.Closer
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageFile:
		return NewFileStore(cfg.Path)
	case config.StorageSQLite:
		return NewSQLiteStore(ctx, filepath.Join(cfg.Path, SQLiteFile))
	case config.StorageMongo:
		return NewMongoStore(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
