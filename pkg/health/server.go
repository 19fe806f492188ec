// Package health exposes liveness and readiness endpoints. Readiness gates
// on registered checks (solc on PATH, audit store reachable) so orchestrators
// hold traffic until the analysis toolchain is usable.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one dependency, returning pass/fail plus detail.
type CheckFunc func() (bool, string)

// CheckResult reports one dependency probe in the readiness body.
type CheckResult struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// StatusResponse is the body of /health and /ready.
type StatusResponse struct {
	Status string                 `json:"status"`
	Uptime string                 `json:"uptime"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Server serves the health endpoints. It can run standalone via Start or
// mount its handlers onto an existing mux via Register.
type Server struct {
	addr    string
	started time.Time
	srv     *http.Server

	mu     sync.RWMutex
	ready  bool
	checks map[string]CheckFunc
}

// NewServer creates a health server for host:port. It starts not ready.
func NewServer(host string, port int) *Server {
	return &Server{
		addr:    fmt.Sprintf("%s:%d", host, port),
		started: time.Now(),
		checks:  make(map[string]CheckFunc),
	}
}

// SetReady flips the readiness gate.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// RegisterCheck adds a named readiness probe.
func (s *Server) RegisterCheck(name string, check CheckFunc) {
	s.mu.Lock()
	s.checks[name] = check
	s.mu.Unlock()
}

// Register mounts /health and /ready on an existing mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/ready", s.readyHandler)
}

// Start runs a standalone health listener. Blocks until Stop or failure.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	s.Register(mux)
	s.srv = &http.Server{Addr: s.addr, Handler: mux, ReadTimeout: 5 * time.Second}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the standalone listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) readyHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ready := s.ready
	checks := make(map[string]CheckFunc, len(s.checks))
	for name, fn := range s.checks {
		checks[name] = fn
	}
	s.mu.RUnlock()

	uptime := time.Since(s.started).Round(time.Second).String()

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "not ready", Uptime: uptime})
		return
	}

	results := make(map[string]CheckResult, len(checks))
	allOK := true
	for name, fn := range checks {
		ok, detail := fn()
		results[name] = CheckResult{OK: ok, Detail: detail}
		if !ok {
			allOK = false
		}
	}

	if !allOK {
		writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "not ready", Uptime: uptime, Checks: results})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready", Uptime: uptime, Checks: results})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
