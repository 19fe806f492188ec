package audit

import (
	"fmt"
	"path/filepath"
)

// StoreConfig holds the parameters needed to create a Store backend.
type StoreConfig struct {
	Backend    string         `json:"backend"     yaml:"backend"     env:"BACKEND"` // "none", "file", "sqlite", "postgres"
	Dir        string         `json:"dir"         yaml:"dir"         env:"DIR"`
	SQLitePath string         `json:"sqlite_path" yaml:"sqlite_path" env:"SQLITE_PATH"`
	Postgres   PostgresConfig `json:"postgres"    yaml:"postgres"`
}

// NewStore creates the appropriate Store implementation based on config.
//
// Backends:
//   - "none": auditing disabled (returns a nil Store)
//   - "file": append-only JSONL (default)
//   - "sqlite": single-file durable store
//   - "postgres": shared store for multi-instance deployments
func NewStore(cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "none":
		return nil, nil

	case "", "file":
		dir := cfg.Dir
		if dir == "" {
			return nil, fmt.Errorf("file audit store requires dir")
		}
		return NewFileStore(dir), nil

	case "sqlite":
		dbPath := cfg.SQLitePath
		if dbPath == "" {
			if cfg.Dir == "" {
				return nil, fmt.Errorf("sqlite audit store requires sqlite_path or dir")
			}
			dbPath = filepath.Join(cfg.Dir, "audit.db")
		}
		return NewSQLiteStore(dbPath)

	case "postgres":
		if cfg.Postgres.Host == "" {
			return nil, fmt.Errorf("postgres audit store requires postgres config")
		}
		return NewPostgresStore(cfg.Postgres)

	default:
		return nil, fmt.Errorf("unknown audit store backend: %q (supported: none, file, sqlite, postgres)", cfg.Backend)
	}
}
