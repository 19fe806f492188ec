package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_CompileFailureSkipsAudit(t *testing.T) {
	compile := &stubTool{name: "compile_solidity", result: ErrorResult("Error: expected ';'")}
	audit := &stubTool{name: "security_audit", result: &Result{Success: true}}

	wf := NewWorkflowTool(compile, audit)
	res := wf.Execute(context.Background(), map[string]any{"code": "contract C {"})

	assert.False(t, res.Success)
	assert.Equal(t, 1, compile.calls)
	assert.Equal(t, 0, audit.calls, "audit must not run when compilation fails")

	assert.Equal(t, false, res.Payload["overall_success"])
	step, ok := res.Payload["audit_step"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, step["skipped"])
	assert.Equal(t, "Compilation failed", step["reason"])
}

func TestWorkflow_BothStepsSucceed(t *testing.T) {
	compile := &stubTool{name: "compile_solidity", result: &Result{
		Success: true,
		Payload: map[string]any{"contracts": map[string]any{"C": map[string]any{}}},
	}}
	audit := &stubTool{name: "security_audit", result: &Result{
		Success: true,
		Payload: map[string]any{"findings": []map[string]any{}},
	}}

	wf := NewWorkflowTool(compile, audit)
	res := wf.Execute(context.Background(), map[string]any{"code": "contract C {}"})

	assert.True(t, res.Success)
	assert.Equal(t, 1, compile.calls)
	assert.Equal(t, 1, audit.calls)
	assert.Equal(t, true, res.Payload["overall_success"])
	assert.Equal(t, "compile_and_audit", res.Payload["workflow"])
}

func TestWorkflow_AuditFailureFailsOverall(t *testing.T) {
	compile := &stubTool{name: "compile_solidity", result: &Result{Success: true}}
	audit := &stubTool{name: "security_audit", result: ErrorResult("Analysis timeout")}

	wf := NewWorkflowTool(compile, audit)
	res := wf.Execute(context.Background(), map[string]any{"code": "contract C {}"})

	assert.False(t, res.Success, "overall success is the AND of both steps")
	assert.Equal(t, false, res.Payload["overall_success"])
}

func TestWorkflow_WireShape(t *testing.T) {
	compile := &stubTool{name: "compile_solidity", result: &Result{
		Success: true,
		Payload: map[string]any{"contracts": map[string]any{}},
	}}
	audit := &stubTool{name: "security_audit", result: &Result{
		Success: true,
		Payload: map[string]any{"findings": []map[string]any{}, "summary": map[string]any{"total_findings": 0}},
	}}

	wf := NewWorkflowTool(compile, audit)
	res := wf.Execute(context.Background(), map[string]any{"code": "contract C {}"})

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))

	// Nested step results keep the uniform success/errors/warnings shape.
	step, ok := obj["compile_step"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, step["success"])
	assert.Equal(t, []any{}, step["errors"])

	step, ok = obj["audit_step"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, step, "findings")
}

func TestWorkflow_Catalog(t *testing.T) {
	wf := NewWorkflowTool(
		NewCompileTool("solc", 0),
		NewAuditTool("slither", 0),
	)

	assert.Equal(t, "compile_and_audit", wf.Name())
	schema := wf.Parameters()
	assert.Equal(t, []string{"code"}, schema["required"])
}
