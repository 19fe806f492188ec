// Package logger provides leveled, component-tagged logging for SolGuard.
// All output goes to stderr so stdout stays clean for the stdio MCP transport.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Level aliases slog's levels so callers can write logger.SetLevel(logger.DEBUG).
type Level = slog.Level

const (
	DEBUG Level = slog.LevelDebug
	INFO  Level = slog.LevelInfo
	WARN  Level = slog.LevelWarn
	ERROR Level = slog.LevelError
)

var (
	mu       sync.Mutex
	levelVar slog.LevelVar
	base     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar}))
)

// SetLevel adjusts the global minimum log level.
func SetLevel(l Level) {
	levelVar.Set(l)
}

// SetOutput redirects log output (tests).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar}))
}

// DebugCF logs at DEBUG with a component tag and structured fields.
func DebugCF(component, msg string, fields map[string]any) { logCF(DEBUG, component, msg, fields) }

// InfoCF logs at INFO with a component tag and structured fields.
func InfoCF(component, msg string, fields map[string]any) { logCF(INFO, component, msg, fields) }

// WarnCF logs at WARN with a component tag and structured fields.
func WarnCF(component, msg string, fields map[string]any) { logCF(WARN, component, msg, fields) }

// ErrorCF logs at ERROR with a component tag and structured fields.
func ErrorCF(component, msg string, fields map[string]any) { logCF(ERROR, component, msg, fields) }

func logCF(level Level, component, msg string, fields map[string]any) {
	args := make([]any, 0, 2+2*len(fields))
	args = append(args, "component", component)

	// Sorted keys keep output stable for log scraping.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}

	mu.Lock()
	l := base
	mu.Unlock()
	l.Log(context.Background(), level, msg, args...)
}
