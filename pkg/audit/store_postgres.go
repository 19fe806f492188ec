// PostgreSQL-backed audit store for deployments where several SolGuard
// instances share one trail.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresConfig holds connection parameters for PostgreSQL.
type PostgresConfig struct {
	Host     string `json:"host"     yaml:"host"     env:"PG_HOST"`
	Port     int    `json:"port"     yaml:"port"     env:"PG_PORT"`
	User     string `json:"user"     yaml:"user"     env:"PG_USER"`
	Password string `json:"password" yaml:"password" env:"PG_PASSWORD"`
	Database string `json:"database" yaml:"database" env:"PG_DATABASE"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode" env:"PG_SSLMODE"` // "disable", "require", "verify-full"
}

// DSN returns a PostgreSQL connection string.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslMode)
}

// PostgresStore implements Store with PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and prepares the schema.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS solguard_events (
			id TEXT PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			type TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			tool TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL DEFAULT 0,
			errors BIGINT NOT NULL DEFAULT 0,
			metadata JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_solguard_events_ts ON solguard_events(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_solguard_events_tool ON solguard_events(tool)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Append writes an event row.
func (s *PostgresStore) Append(ctx context.Context, event *Event) error {
	stamp(event)

	status := ""
	var durationMS, errCount int64
	if event.Result != nil {
		status = event.Result.Status
		durationMS = event.Result.Duration.Milliseconds()
		errCount = int64(event.Result.Errors)
	}
	metaJSON, _ := json.Marshal(event.Metadata)
	if event.Metadata == nil {
		metaJSON = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO solguard_events (id, ts, type, session_id, tool, status, duration_ms, errors, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.Timestamp.UTC(), string(event.Type), event.SessionID,
		event.Tool, status, durationMS, errCount, string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Query retrieves matching events, oldest first.
func (s *PostgresStore) Query(ctx context.Context, opts QueryOptions) ([]*Event, error) {
	query := `SELECT id, ts, type, session_id, tool, status, duration_ms, errors, metadata FROM solguard_events WHERE 1=1`
	var args []any
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if opts.Tool != "" {
		query += " AND tool = " + arg(opts.Tool)
	}
	if opts.Type != "" {
		query += " AND type = " + arg(string(opts.Type))
	}
	if !opts.Since.IsZero() {
		query += " AND ts >= " + arg(opts.Since.UTC())
	}
	if !opts.Until.IsZero() {
		query += " AND ts <= " + arg(opts.Until.UTC())
	}
	query += " ORDER BY ts ASC"
	if opts.Limit > 0 {
		query += " LIMIT " + arg(opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
