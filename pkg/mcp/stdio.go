// SolGuard - Solidity compile & audit MCP server
// License: MIT
//
// Copyright (c) 2026 SolGuard contributors

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/solguard/solguard/pkg/logger"
)

// Server is the stdio transport: newline-delimited JSON-RPC over
// stdin/stdout, with one implicit session for the process lifetime.
type Server struct {
	dispatcher *Dispatcher
	session    *Session
	in         io.Reader
	out        io.Writer
	mu         sync.Mutex // serializes writes to stdout
}

// NewServer creates a stdio MCP server reading from stdin and writing to
// stdout.
func NewServer(dispatcher *Dispatcher) *Server {
	return NewServerWithIO(dispatcher, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a stdio MCP server with custom I/O (for testing).
func NewServerWithIO(dispatcher *Dispatcher, in io.Reader, out io.Writer) *Server {
	return &Server{
		dispatcher: dispatcher,
		session:    NewSession(),
		in:         in,
		out:        out,
	}
}

// Serve runs the request loop until EOF or ctx cancellation. Requests are
// handled in arrival order; responses are emitted in the same order.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	// Tool results can be large (combined-json output), increase buffer.
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if resp := s.dispatcher.Dispatch(ctx, s.session, []byte(line)); resp != nil {
			s.writeJSON(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stdin read error: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		// Last-resort: log and drop.
		logger.ErrorCF("mcp", "Failed to marshal response",
			map[string]any{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stdio transport: one JSON object per line.
	_, _ = s.out.Write(data)
	_, _ = s.out.Write([]byte("\n"))
}
