package tools

import "context"

// WorkflowTool chains compilation and analysis into one call. The audit step
// only runs when compilation succeeds: static analysis is far more expensive
// than compiling and meaningless on code that does not compile.
type WorkflowTool struct {
	compile Tool
	audit   Tool
}

// NewWorkflowTool composes a compile adapter and an audit adapter.
func NewWorkflowTool(compile, audit Tool) *WorkflowTool {
	return &WorkflowTool{compile: compile, audit: audit}
}

func (t *WorkflowTool) Name() string { return "compile_and_audit" }

func (t *WorkflowTool) Description() string {
	return "Complete workflow: compile Solidity code then run security audit"
}

func (t *WorkflowTool) Parameters() map[string]any {
	return sourceSchema()
}

func (t *WorkflowTool) Execute(ctx context.Context, args map[string]any) *Result {
	compileRes := t.compile.Execute(ctx, args)

	if !compileRes.Success {
		return &Result{
			Success:  false,
			Errors:   []string{},
			Warnings: []string{},
			Payload: map[string]any{
				"workflow":     "compile_and_audit",
				"compile_step": compileRes,
				"audit_step": map[string]any{
					"skipped": true,
					"reason":  "Compilation failed",
				},
				"overall_success": false,
			},
		}
	}

	auditRes := t.audit.Execute(ctx, args)
	overall := compileRes.Success && auditRes.Success

	return &Result{
		Success:  overall,
		Errors:   []string{},
		Warnings: []string{},
		Payload: map[string]any{
			"workflow":        "compile_and_audit",
			"compile_step":    compileRes,
			"audit_step":      auditRes,
			"overall_success": overall,
		},
	}
}
