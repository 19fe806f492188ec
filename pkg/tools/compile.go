package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// CompileTool wraps the solc compiler. It writes the supplied source to an
// ephemeral file, runs solc with combined JSON output, and classifies the
// compiler's free-text diagnostics into errors and warnings.
type CompileTool struct {
	solcPath   string
	allowPaths []string
	timeout    time.Duration
}

// NewCompileTool creates a compile adapter. An empty solcPath means "solc"
// from PATH; a non-positive timeout falls back to 30 seconds.
func NewCompileTool(solcPath string, timeout time.Duration) *CompileTool {
	if solcPath == "" {
		solcPath = "solc"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CompileTool{solcPath: solcPath, timeout: timeout}
}

// SetAllowPaths configures extra import search paths passed to solc.
func (t *CompileTool) SetAllowPaths(paths []string) {
	t.allowPaths = paths
}

func (t *CompileTool) Name() string { return "compile_solidity" }

func (t *CompileTool) Description() string {
	return "Compile Solidity code and return compilation results"
}

func (t *CompileTool) Parameters() map[string]any {
	return sourceSchema()
}

func (t *CompileTool) Execute(ctx context.Context, args map[string]any) *Result {
	code, filename, fail := sourceArgs(args)
	if fail != nil {
		return fail
	}

	cmdArgs := []string{"--combined-json", "abi,bin,metadata"}
	if len(t.allowPaths) > 0 {
		cmdArgs = append(cmdArgs, "--allow-paths", strings.Join(t.allowPaths, ","))
	}

	out, err := runOnSource(ctx, t.solcPath, cmdArgs, code, filename, t.timeout)
	if err != nil {
		res := ErrorResult(err.Error())
		res.Payload = map[string]any{"contracts": nil, "filename": filename}
		return res
	}
	if out.timedOut {
		res := ErrorResult("Compilation timeout")
		res.Payload = map[string]any{"contracts": nil, "filename": filename}
		return res
	}

	res := &Result{
		Success:  out.exitCode == 0,
		Errors:   []string{},
		Warnings: []string{},
	}

	var contracts map[string]any
	if res.Success && out.stdout != "" {
		contracts, err = parseContracts(out.stdout)
		if err != nil {
			res.Errors = append(res.Errors, "Failed to parse compilation output")
		}
	}

	errs, warns := classifyDiagnostics(out.stderr)
	res.Errors = append(res.Errors, errs...)
	res.Warnings = append(res.Warnings, warns...)

	res.Payload = map[string]any{"contracts": contracts, "filename": filename}
	return res
}

// parseContracts extracts the contracts map from solc --combined-json output.
func parseContracts(stdout string) (map[string]any, error) {
	var doc struct {
		Contracts map[string]any `json:"contracts"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		return nil, err
	}
	return doc.Contracts, nil
}

// classifyDiagnostics splits solc's free-text stderr into errors and
// warnings by substring match. Best-effort line classification is the
// documented contract for this adapter.
func classifyDiagnostics(stderr string) (errs, warns []string) {
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		switch {
		case strings.Contains(line, "Error:"):
			errs = append(errs, strings.TrimSpace(line))
		case strings.Contains(line, "Warning:"):
			warns = append(warns, strings.TrimSpace(line))
		}
	}
	return errs, warns
}

// sourceSchema is the shared input schema for all Solidity source tools:
// required code, optional filename with a default.
func sourceSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "The Solidity source code as text",
			},
			"filename": map[string]any{
				"type":        "string",
				"description": "Optional filename for the contract",
				"default":     defaultFilename,
			},
		},
		"required": []string{"code"},
	}
}

// sourceArgs extracts the common code/filename arguments, enforcing the
// required code field.
func sourceArgs(args map[string]any) (code, filename string, fail *Result) {
	c, ok := args["code"].(string)
	if !ok || strings.TrimSpace(c) == "" {
		return "", "", ErrorResult("code is required and must be non-empty")
	}
	filename = defaultFilename
	if f, ok := args["filename"].(string); ok && f != "" {
		filename = f
	}
	return c, filename, nil
}
