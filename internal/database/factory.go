package database

import (
	"fmt"
	"os"
	"path/filepath"

	"caltrack/internal/config"
	"caltrack/internal/tracker"
)

// NewStoreFromConfig creates a store based on the database config type.
// The returned store has not been migrated yet; callers run Migrate before
// first use.
func NewStoreFromConfig(cfg config.DatabaseConfig, clock tracker.Clock) (*SQLiteStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, "caltrack.db")
		return NewSQLiteStore(dbPath, clock, nil)
	case "memory":
		return NewSQLiteStore(":memory:", clock, nil)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
