// SolGuard - Solidity compile & audit MCP server
// License: MIT
//
// Copyright (c) 2026 SolGuard contributors

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/solguard/solguard/pkg/logger"
)

// handleWS streams notifications over a WebSocket for clients that cannot
// consume SSE. Write-only: inbound frames are drained and discarded.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.WarnCF("server", "WebSocket accept failed", map[string]any{"error": err.Error()})
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := r.Context()
	// Reads only serve to detect close; payloads are ignored.
	ctx = conn.CloseRead(ctx)

	sub := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(sub)
	s.trackSubscriber(1)
	defer s.trackSubscriber(-1)

	for {
		select {
		case <-ctx.Done():
			return
		case n, open := <-sub.C():
			if !open {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
