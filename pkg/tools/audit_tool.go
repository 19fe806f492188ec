package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// AuditTool wraps the Slither static analyzer. Analysis gets a longer budget
// than compilation; Slither is an order of magnitude slower than solc.
type AuditTool struct {
	slitherPath string
	timeout     time.Duration
}

// NewAuditTool creates a security-analysis adapter. An empty slitherPath
// means "slither" from PATH; a non-positive timeout falls back to 60 seconds.
func NewAuditTool(slitherPath string, timeout time.Duration) *AuditTool {
	if slitherPath == "" {
		slitherPath = "slither"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AuditTool{slitherPath: slitherPath, timeout: timeout}
}

func (t *AuditTool) Name() string { return "security_audit" }

func (t *AuditTool) Description() string {
	return "Run Slither security analysis on Solidity code"
}

func (t *AuditTool) Parameters() map[string]any {
	return sourceSchema()
}

func (t *AuditTool) Execute(ctx context.Context, args map[string]any) *Result {
	code, filename, fail := sourceArgs(args)
	if fail != nil {
		fail.Payload = emptyAuditPayload(filename)
		return fail
	}

	out, err := runOnSource(ctx, t.slitherPath, []string{"--json", "-"}, code, filename, t.timeout)
	if err != nil {
		res := ErrorResult(err.Error())
		res.Payload = emptyAuditPayload(filename)
		return res
	}
	if out.timedOut {
		res := ErrorResult("Analysis timeout")
		res.Payload = emptyAuditPayload(filename)
		return res
	}

	findings := []map[string]any{}
	summary := map[string]any{}
	errs := []string{}
	parsed := false

	if out.stdout != "" {
		if f, perr := parseDetectors(out.stdout); perr == nil {
			parsed = true
			findings = f
			summary = summarizeFindings(f)
		} else {
			errs = append(errs, "Failed to parse Slither output")
		}
	}
	if out.stderr != "" && !parsed {
		errs = append(errs, strings.TrimSpace(out.stderr))
	}

	return &Result{
		// Slither exits non-zero when it reports findings, so structured
		// output counts as success; a quiet exit 0 gets the benefit of the
		// doubt and is treated as a clean run with no findings.
		Success:  parsed || out.exitCode == 0,
		Errors:   errs,
		Warnings: []string{},
		Payload: map[string]any{
			"findings": findings,
			"summary":  summary,
			"filename": filename,
		},
	}
}

// parseDetectors extracts detector findings from Slither's JSON output.
func parseDetectors(stdout string) ([]map[string]any, error) {
	var doc struct {
		Results struct {
			Detectors []map[string]any `json:"detectors"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		return nil, err
	}
	if doc.Results.Detectors == nil {
		return []map[string]any{}, nil
	}
	return doc.Results.Detectors, nil
}

// summarizeFindings counts findings per impact level.
func summarizeFindings(findings []map[string]any) map[string]any {
	severity := map[string]int{}
	for _, f := range findings {
		impact, _ := f["impact"].(string)
		if impact == "" {
			impact = "unknown"
		}
		severity[impact]++
	}
	return map[string]any{
		"total_findings":     len(findings),
		"severity_breakdown": severity,
	}
}

func emptyAuditPayload(filename string) map[string]any {
	p := map[string]any{
		"findings": []map[string]any{},
		"summary":  map[string]any{},
	}
	if filename != "" {
		p["filename"] = filename
	}
	return p
}
