// SolGuard - Solidity compile & audit MCP server
// License: MIT
//
// Copyright (c) 2026 SolGuard contributors

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleSSE streams notifications as server-sent events. The only
// cancellation trigger is connection close; a slow consumer loses messages
// rather than backpressuring producers.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(sub)
	s.trackSubscriber(1)
	defer s.trackSubscriber(-1)

	// Leading comment opens the stream through buffering proxies.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, open := <-sub.C():
			if !open {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) trackSubscriber(delta float64) {
	if s.metrics != nil {
		s.metrics.GetGauge("stream_subscribers", "Attached notification stream subscribers").Add(delta)
	}
}
