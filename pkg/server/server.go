// SolGuard - Solidity compile & audit MCP server
// License: MIT
//
// Copyright (c) 2026 SolGuard contributors

// Package server binds the MCP dispatcher to HTTP: a synchronous JSON-RPC
// endpoint plus SSE and WebSocket notification streams. Route names are
// deployment plumbing; the durable contract is the JSON-RPC envelope.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/solguard/solguard/pkg/bus"
	"github.com/solguard/solguard/pkg/health"
	"github.com/solguard/solguard/pkg/logger"
	"github.com/solguard/solguard/pkg/mcp"
	"github.com/solguard/solguard/pkg/observability"
)

// SessionHeader correlates HTTP requests into one logical MCP connection.
// The server issues an id on first contact and echoes it on every response.
const SessionHeader = "Mcp-Session-Id"

// maxBodyBytes bounds a single JSON-RPC request body.
const maxBodyBytes = 10 * 1024 * 1024

// Config holds the HTTP server parameters.
type Config struct {
	Host string
	Port int
}

// Server is the HTTP transport shim.
type Server struct {
	cfg        Config
	dispatcher *mcp.Dispatcher
	sessions   *mcp.SessionManager
	notifier   *bus.NotificationBus
	metrics    *observability.MetricsRegistry
	health     *health.Server
	srv        *http.Server
}

// New assembles the HTTP server around an existing dispatcher stack.
func New(cfg Config, dispatcher *mcp.Dispatcher, sessions *mcp.SessionManager,
	notifier *bus.NotificationBus, metrics *observability.MetricsRegistry, h *health.Server) *Server {
	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		sessions:   sessions,
		notifier:   notifier,
		metrics:    metrics,
		health:     h,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleRPC)
	mux.HandleFunc("/events", s.handleSSE)
	mux.HandleFunc("/ws", s.handleWS)
	if s.metrics != nil {
		mux.HandleFunc("/metrics", s.metrics.Handler())
	}
	if s.health != nil {
		s.health.Register(mux)
	}
	return mux
}

// Start listens until ctx is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:     s.routes(),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: SSE and WebSocket streams are long-lived.
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	logger.InfoCF("server", "Listening", map[string]any{"addr": s.srv.Addr})
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleRPC serves one JSON-RPC envelope per POST. Notifications get a 202
// with an empty body; everything else gets the response envelope.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := s.sessions.GetOrCreate(r.Header.Get(SessionHeader))
	w.Header().Set(SessionHeader, sess.ID())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeResponse(w, &mcp.Response{
			JSONRPC: "2.0",
			Error:   &mcp.Error{Code: mcp.ErrParse, Message: "failed to read request body"},
		})
		return
	}

	resp := s.dispatcher.Dispatch(r.Context(), sess, body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	s.writeResponse(w, resp)
}

func (s *Server) writeResponse(w http.ResponseWriter, resp *mcp.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorCF("server", "Failed to write response", map[string]any{"error": err.Error()})
	}
}
