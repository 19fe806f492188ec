// Package audit provides an append-only, structured trail of SolGuard
// activity: every tool invocation and session handshake is recorded as an
// immutable event. The trail is telemetry; no protocol state is ever read
// back from it.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes audit events.
type EventType string

const (
	EventToolCall    EventType = "tool.call"
	EventSessionInit EventType = "session.init"
	EventServerStart EventType = "server.start"
)

// Event is a single immutable audit record.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"ts"`
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Result    *EventResult   `json:"result,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// EventResult captures the outcome of a tool invocation.
type EventResult struct {
	Status   string        `json:"status"` // "success", "failure"
	Duration time.Duration `json:"duration_ms,omitempty"`
	Errors   int           `json:"errors,omitempty"`
}

// QueryOptions filters audit log queries.
type QueryOptions struct {
	Tool  string
	Type  EventType
	Since time.Time
	Until time.Time
	Limit int
}

// Store is the persistence interface for the audit trail.
type Store interface {
	// Append writes an event. Events are immutable once written.
	Append(ctx context.Context, event *Event) error

	// Query retrieves events matching the given filters, oldest first.
	Query(ctx context.Context, opts QueryOptions) ([]*Event, error)

	Close() error
}

func stamp(event *Event) {
	if event.ID == "" {
		event.ID = "evt_" + uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}

// ------------------------------------------------------------------
// File-based store (append-only JSONL)
// ------------------------------------------------------------------

// FileStore is an append-only JSON Lines store. Each line is a complete
// event; the file is never modified, only appended to.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file-based audit store at the given directory.
func NewFileStore(dir string) *FileStore {
	os.MkdirAll(dir, 0o700)
	return &FileStore{dir: dir}
}

func (s *FileStore) logFile() string {
	return filepath.Join(s.dir, "audit.jsonl")
}

// Append writes an event to the audit log.
func (s *FileStore) Append(ctx context.Context, event *Event) error {
	stamp(event)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.logFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Query reads events matching the given filters.
func (s *FileStore) Query(ctx context.Context, opts QueryOptions) ([]*Event, error) {
	all, err := s.readAll()
	if err != nil {
		return nil, err
	}

	var results []*Event
	for _, e := range all {
		if opts.Tool != "" && e.Tool != opts.Tool {
			continue
		}
		if opts.Type != "" && e.Type != opts.Type {
			continue
		}
		if !opts.Since.IsZero() && e.Timestamp.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && e.Timestamp.After(opts.Until) {
			continue
		}
		results = append(results, e)
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}
	return results, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) readAll() ([]*Event, error) {
	data, err := os.ReadFile(s.logFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var events []*Event
	for _, line := range splitLines(data) {
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue // skip malformed lines
		}
		events = append(events, &e)
	}
	return events, nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i := range data {
		if data[i] == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

// ------------------------------------------------------------------
// Logger is a convenience wrapper for emitting audit events
// ------------------------------------------------------------------

// Logger provides helper methods for common audit patterns. A nil Logger
// (auditing disabled) is safe to call.
type Logger struct {
	store Store
}

// NewLogger creates an audit logger; a nil store yields a nil logger.
func NewLogger(store Store) *Logger {
	if store == nil {
		return nil
	}
	return &Logger{store: store}
}

// LogToolCall records one tool invocation.
func (l *Logger) LogToolCall(ctx context.Context, sessionID, tool string, success bool, elapsed time.Duration, errCount int) error {
	if l == nil {
		return nil
	}
	status := "success"
	if !success {
		status = "failure"
	}
	return l.store.Append(ctx, &Event{
		Type:      EventToolCall,
		SessionID: sessionID,
		Tool:      tool,
		Result: &EventResult{
			Status:   status,
			Duration: elapsed,
			Errors:   errCount,
		},
	})
}

// LogSessionInit records a completed initialize handshake.
func (l *Logger) LogSessionInit(ctx context.Context, sessionID string) error {
	if l == nil {
		return nil
	}
	return l.store.Append(ctx, &Event{Type: EventSessionInit, SessionID: sessionID})
}

// LogServerStart records process startup.
func (l *Logger) LogServerStart(ctx context.Context, addr string) error {
	if l == nil {
		return nil
	}
	return l.store.Append(ctx, &Event{
		Type:     EventServerStart,
		Metadata: map[string]any{"addr": addr},
	})
}
