// SQLite-backed durable audit store.
//
// SQLiteStore keeps the audit trail in a single database file, suitable for
// single-node production deployments. For shared multi-instance deployments,
// use PostgresStore instead.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGo)
)

// SQLiteStore implements Store with SQLite persistence.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed audit store at dbPath.
// Use ":memory:" for an in-memory database (testing).
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// WAL improves concurrent read performance for history queries.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			ts DATETIME NOT NULL,
			type TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			tool TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL DEFAULT 0,
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
		`CREATE INDEX IF NOT EXISTS idx_events_tool ON events(tool)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Append writes an event row.
func (s *SQLiteStore) Append(ctx context.Context, event *Event) error {
	stamp(event)

	status := ""
	var durationMS, errCount int64
	if event.Result != nil {
		status = event.Result.Status
		durationMS = event.Result.Duration.Milliseconds()
		errCount = int64(event.Result.Errors)
	}
	metaJSON, _ := json.Marshal(event.Metadata)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, ts, type, session_id, tool, status, duration_ms, errors, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC(), string(event.Type), event.SessionID,
		event.Tool, status, durationMS, errCount, string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Query retrieves matching events, oldest first.
func (s *SQLiteStore) Query(ctx context.Context, opts QueryOptions) ([]*Event, error) {
	query := `SELECT id, ts, type, session_id, tool, status, duration_ms, errors, metadata FROM events WHERE 1=1`
	var args []any
	if opts.Tool != "" {
		query += " AND tool = ?"
		args = append(args, opts.Tool)
	}
	if opts.Type != "" {
		query += " AND type = ?"
		args = append(args, string(opts.Type))
	}
	if !opts.Since.IsZero() {
		query += " AND ts >= ?"
		args = append(args, opts.Since.UTC())
	}
	if !opts.Until.IsZero() {
		query += " AND ts <= ?"
		args = append(args, opts.Until.UTC())
	}
	query += " ORDER BY ts ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanEvent(rows *sql.Rows) (*Event, error) {
	var (
		e          Event
		ts         time.Time
		typ        string
		status     string
		durationMS int64
		errCount   int64
		metaJSON   string
	)
	if err := rows.Scan(&e.ID, &ts, &typ, &e.SessionID, &e.Tool, &status, &durationMS, &errCount, &metaJSON); err != nil {
		return nil, fmt.Errorf("scan audit event: %w", err)
	}
	e.Timestamp = ts
	e.Type = EventType(typ)
	if status != "" || durationMS != 0 || errCount != 0 {
		e.Result = &EventResult{
			Status:   status,
			Duration: time.Duration(durationMS) * time.Millisecond,
			Errors:   int(errCount),
		}
	}
	if metaJSON != "" && metaJSON != "{}" && metaJSON != "null" {
		_ = json.Unmarshal([]byte(metaJSON), &e.Metadata)
	}
	return &e, nil
}
