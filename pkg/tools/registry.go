package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownTool is returned by Execute when no tool matches the given name.
// The dispatcher maps it to a JSON-RPC -32601 error.
var ErrUnknownTool = errors.New("unknown tool")

// ToolRegistry is a static name→Tool table, populated once at startup.
// List preserves registration order.
type ToolRegistry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the handler but keeps
// its original position in the catalog.
func (r *ToolRegistry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *ToolRegistry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Execute dispatches an invocation to the named tool. A missing name yields
// ErrUnknownTool; everything else, including tool-domain failures, comes back
// as a *Result.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]any) (*Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return t.Execute(ctx, args), nil
}
