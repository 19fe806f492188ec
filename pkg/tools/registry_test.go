package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTool is a canned-result Tool for registry and workflow tests.
type stubTool struct {
	name   string
	result *Result
	calls  int
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (s *stubTool) Execute(_ context.Context, _ map[string]any) *Result {
	s.calls++
	return s.result
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewToolRegistry()
	tool := &stubTool{name: "alpha", result: &Result{Success: true}}
	reg.Register(tool)

	got, ok := reg.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, tool, got)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_ListPreservesRegistrationOrder(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(&stubTool{name: "charlie"})
	reg.Register(&stubTool{name: "alpha"})
	reg.Register(&stubTool{name: "bravo"})

	assert.Equal(t, []string{"charlie", "alpha", "bravo"}, reg.Names())

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "charlie", list[0].Name())
}

func TestRegistry_ReRegisterKeepsPosition(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(&stubTool{name: "alpha", result: &Result{Success: false}})
	reg.Register(&stubTool{name: "bravo"})

	replacement := &stubTool{name: "alpha", result: &Result{Success: true}}
	reg.Register(replacement)

	assert.Equal(t, []string{"alpha", "bravo"}, reg.Names())

	got, ok := reg.Get("alpha")
	require.True(t, ok)
	assert.Same(t, replacement, got)
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	reg := NewToolRegistry()

	res, err := reg.Execute(context.Background(), "ghost", nil)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTool))
	assert.Contains(t, err.Error(), "ghost")
}

func TestRegistry_ExecuteNilArgs(t *testing.T) {
	reg := NewToolRegistry()
	tool := &stubTool{name: "alpha", result: &Result{Success: true}}
	reg.Register(tool)

	res, err := reg.Execute(context.Background(), "alpha", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, tool.calls)
}

func TestResult_MarshalFlattensPayload(t *testing.T) {
	res := &Result{
		Success:  true,
		Warnings: []string{"minor"},
		Payload: map[string]any{
			"contracts": map[string]any{"C": map[string]any{}},
			"success":   "must not shadow",
		},
	}

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))

	assert.Equal(t, true, obj["success"], "payload keys must not shadow the fixed fields")
	assert.Equal(t, []any{}, obj["errors"], "nil errors must encode as an empty list")
	assert.Equal(t, []any{"minor"}, obj["warnings"])
	assert.Contains(t, obj, "contracts")
}

func TestErrorResult(t *testing.T) {
	res := ErrorResult("boom")
	assert.False(t, res.Success)
	assert.Equal(t, []string{"boom"}, res.Errors)
	assert.Empty(t, res.Warnings)
}
