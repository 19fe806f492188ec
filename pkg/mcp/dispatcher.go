// SolGuard - Solidity compile & audit MCP server
// License: MIT
//
// Copyright (c) 2026 SolGuard contributors

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/solguard/solguard/pkg/audit"
	"github.com/solguard/solguard/pkg/bus"
	"github.com/solguard/solguard/pkg/logger"
	"github.com/solguard/solguard/pkg/observability"
	"github.com/solguard/solguard/pkg/tools"
)

const (
	// ProtocolVersion is the MCP spec version this server supports.
	ProtocolVersion = "2024-11-05"
	ServerName      = "solguard"
	ServerVersion   = "1.0.0"
)

// DispatcherConfig wires the dispatcher's collaborators. Notifier, Audit,
// and Metrics are optional.
type DispatcherConfig struct {
	// StrictSession rejects tools/call until the client has sent
	// notifications/initialized.
	StrictSession bool
	Notifier      *bus.NotificationBus
	Audit         *audit.Logger
	Metrics       *observability.MetricsRegistry
}

// Dispatcher decodes inbound JSON-RPC envelopes, routes them by method, and
// wraps tool results. One Dispatcher serves every connection; all
// per-connection state lives in the Session passed to Dispatch.
type Dispatcher struct {
	registry *tools.ToolRegistry
	strict   bool
	notifier *bus.NotificationBus
	audit    *audit.Logger
	metrics  *observability.MetricsRegistry
}

// NewDispatcher creates a dispatcher backed by the given tool registry.
func NewDispatcher(registry *tools.ToolRegistry, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		strict:   cfg.StrictSession,
		notifier: cfg.Notifier,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
	}
}

// Dispatch decodes one JSON-RPC envelope and routes it. A nil return means
// the message was a notification and no response envelope is sent.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, ErrParse, "parse error: "+err.Error())
	}
	return d.HandleRequest(ctx, sess, &req)
}

// HandleRequest routes a decoded request. Uncaught handler panics become
// -32603 error envelopes; the connection never crashes.
func (d *Dispatcher) HandleRequest(ctx context.Context, sess *Session, req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("mcp", "Recovered from handler panic",
				map[string]any{"method": req.Method, "panic": fmt.Sprint(r)})
			resp = errorResponse(req.ID, ErrInternal, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if d.metrics != nil {
		d.metrics.GetCounter("rpc_requests_total", "JSON-RPC requests received").Inc()
	}

	switch req.Method {
	case "initialize":
		return d.handleInitialize(req)
	case "notifications/initialized":
		sess.MarkInitialized()
		_ = d.audit.LogSessionInit(ctx, sess.ID())
		return nil
	case "tools/list":
		return resultResponse(req.ID, ToolsListResult{Tools: d.toolInfos()})
	case "tools/call":
		return d.handleToolsCall(ctx, sess, req)
	case "ping":
		return resultResponse(req.ID, map[string]any{})
	default:
		// Unknown method: if it has an ID it expects a response.
		// Notifications (no ID) are silently ignored per JSON-RPC.
		if req.ID != nil {
			return errorResponse(req.ID, ErrNotFound, "method not found: "+req.Method)
		}
		return nil
	}
}

// ── Method handlers ────────────────────────────────────────────────

func (d *Dispatcher) handleInitialize(req *Request) *Response {
	result := InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapability{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo: EntityInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
		Tools: d.toolInfos(),
	}
	return resultResponse(req.ID, result)
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, sess *Session, req *Request) *Response {
	if d.strict && !sess.Initialized() {
		return errorResponse(req.ID, ErrInvalidReq,
			"session not initialized: send notifications/initialized first")
	}

	var params ToolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, ErrInvalidParams, "invalid tools/call params: "+err.Error())
		}
	}
	if params.Name == "" {
		return errorResponse(req.ID, ErrInvalidParams, "tool name is required")
	}

	logger.InfoCF("mcp", "Tool call",
		map[string]any{"tool": params.Name, "session": sess.ID()})

	start := time.Now()
	result, err := d.registry.Execute(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			return errorResponse(req.ID, ErrNotFound, "tool not found: "+params.Name)
		}
		return errorResponse(req.ID, ErrInternal, err.Error())
	}
	elapsed := time.Since(start)

	text, err := json.Marshal(result)
	if err != nil {
		return errorResponse(req.ID, ErrInternal, "failed to encode tool result: "+err.Error())
	}

	d.announce(params.Name, req.ID, result.Success, elapsed)
	d.record(ctx, sess, params.Name, result, elapsed)

	return resultResponse(req.ID, ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: string(text)}},
		IsError: !result.Success,
	})
}

// toolInfos converts the registry catalog into MCP tool descriptors. The
// Parameters() output already follows JSON Schema, which is exactly what
// MCP's inputSchema expects.
func (d *Dispatcher) toolInfos() []ToolInfo {
	list := d.registry.List()
	infos := make([]ToolInfo, 0, len(list))
	for _, t := range list {
		schema := t.Parameters()
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		infos = append(infos, ToolInfo{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: schema,
		})
	}
	return infos
}

// announce enqueues a best-effort completion notification. The response
// path never waits on subscribers; overflow is a silent drop.
func (d *Dispatcher) announce(tool string, id any, success bool, elapsed time.Duration) {
	if d.notifier == nil {
		return
	}
	d.notifier.Publish(bus.Notification{
		Method: "notifications/tools/call_completed",
		Params: map[string]any{
			"tool":        tool,
			"id":          id,
			"success":     success,
			"duration_ms": elapsed.Milliseconds(),
		},
	})
	if d.metrics != nil {
		d.metrics.GetGauge("notifications_dropped", "Notifications dropped so far").
			Set(float64(d.notifier.Dropped()))
	}
}

func (d *Dispatcher) record(ctx context.Context, sess *Session, tool string, res *tools.Result, elapsed time.Duration) {
	if d.metrics != nil {
		d.metrics.GetCounter("tool_calls_total", "Tool invocations").Inc()
		if !res.Success {
			d.metrics.GetCounter("tool_failures_total", "Tool invocations reporting failure").Inc()
		}
		d.metrics.GetHistogram("tool_duration_seconds", "Tool invocation duration",
			[]float64{0.1, 0.5, 1, 5, 15, 30, 60}).Observe(elapsed.Seconds())
	}
	if err := d.audit.LogToolCall(ctx, sess.ID(), tool, res.Success, elapsed, len(res.Errors)); err != nil {
		logger.WarnCF("mcp", "Audit append failed", map[string]any{"error": err.Error()})
	}
}

// ── Envelope helpers ───────────────────────────────────────────────

func resultResponse(id any, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id any, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message}}
}
