// SolGuard - Solidity compile & audit MCP server
// License: MIT
//
// Copyright (c) 2026 SolGuard contributors

// Package mcp implements the Model Context Protocol (MCP) server core:
// JSON-RPC 2.0 envelopes, per-connection session state, and the dispatcher
// that routes initialize / tools/list / tools/call to the tool registry.
//
// Protocol: JSON-RPC 2.0, transported over stdio or HTTP+SSE.
// Spec: https://modelcontextprotocol.io/specification
package mcp

import "encoding/json"

// ── JSON-RPC 2.0 envelope ──────────────────────────────────────────

// Request is a JSON-RPC 2.0 request/notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"` // nil for notifications
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool { return r.ID == nil }

// Response is a JSON-RPC 2.0 response. Exactly one of Result/Error is set.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ── MCP initialize ─────────────────────────────────────────────────

// InitializeParams is sent by the client on the "initialize" method.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities,omitempty"`
	ClientInfo      EntityInfo     `json:"clientInfo,omitempty"`
}

// InitializeResult is returned by the server in response to "initialize".
// The tool catalog is included inline so clients can skip a tools/list
// round trip.
type InitializeResult struct {
	ProtocolVersion string           `json:"protocolVersion"`
	Capabilities    ServerCapability `json:"capabilities"`
	ServerInfo      EntityInfo       `json:"serverInfo"`
	Tools           []ToolInfo       `json:"tools,omitempty"`
}

// EntityInfo identifies a client or server.
type EntityInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ServerCapability advertises supported features.
type ServerCapability struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability describes the tools feature.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ── tools/list ─────────────────────────────────────────────────────

// ToolsListResult is the response to "tools/list".
type ToolsListResult struct {
	Tools []ToolInfo `json:"tools"`
}

// ToolInfo describes a single MCP tool.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ── tools/call ─────────────────────────────────────────────────────

// ToolCallParams is the input for "tools/call".
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolCallResult is the response to "tools/call". IsError mirrors the
// tool-domain success flag; a compile error is data, not a protocol fault.
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// ContentBlock is a text content block in the MCP response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ── JSON-RPC error codes ───────────────────────────────────────────

const (
	ErrParse         = -32700
	ErrInvalidReq    = -32600
	ErrNotFound      = -32601
	ErrInvalidParams = -32602
	ErrInternal      = -32603
)
