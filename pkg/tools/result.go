// Package tools implements SolGuard's tool registry and the adapters that
// wrap the solc compiler and the Slither static analyzer behind a single
// uniform invocation result.
package tools

import (
	"context"
	"encoding/json"
)

// Tool is one callable analysis operation exposed over MCP.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema for the tool's arguments.
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) *Result
}

// Result is the normalized record every tool returns regardless of the
// underlying binary: a success flag, ordered error and warning lists, and a
// tool-specific payload. Tool-domain failures (compile errors, analysis
// timeouts) are expressed here, never as transport errors.
type Result struct {
	Success  bool
	Errors   []string
	Warnings []string
	// Payload holds tool-specific fields (contracts, findings, ...). It is
	// flattened into the top-level JSON object on encode, so every tool's
	// wire shape starts with {"success":..., "errors":..., "warnings":...}.
	Payload map[string]any
}

// ErrorResult builds a failed Result carrying a single error message.
func ErrorResult(msg string) *Result {
	return &Result{Success: false, Errors: []string{msg}, Warnings: []string{}}
}

// MarshalJSON flattens Payload into the top-level object. Payload keys never
// shadow the three fixed fields.
func (r *Result) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, 3+len(r.Payload))
	obj["success"] = r.Success
	obj["errors"] = emptyIfNil(r.Errors)
	obj["warnings"] = emptyIfNil(r.Warnings)
	for k, v := range r.Payload {
		switch k {
		case "success", "errors", "warnings":
			continue
		}
		obj[k] = v
	}
	return json.Marshal(obj)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
