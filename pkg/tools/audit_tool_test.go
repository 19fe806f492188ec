package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestAudit_BinaryNotOnPath(t *testing.T) {
	tool := NewAuditTool("solguard-test-no-such-slither", time.Second)

	res := tool.Execute(context.Background(), map[string]any{"code": "contract C {}"})
	if res.Success {
		t.Fatal("expected failure when the analyzer binary is absent")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "not found in PATH") {
		t.Errorf("errors = %v", res.Errors)
	}
	if _, ok := res.Payload["findings"]; !ok {
		t.Error("payload missing findings field")
	}
	if _, ok := res.Payload["summary"]; !ok {
		t.Error("payload missing summary field")
	}
}

func TestAudit_MissingCode(t *testing.T) {
	tool := NewAuditTool("slither", time.Second)

	res := tool.Execute(context.Background(), map[string]any{})
	if res.Success {
		t.Fatal("expected failure without code")
	}
	if len(res.Errors) == 0 || !strings.Contains(res.Errors[0], "code is required") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestParseDetectors(t *testing.T) {
	stdout := `{"success":true,"results":{"detectors":[
		{"check":"reentrancy-eth","impact":"High","description":"Reentrancy in C.withdraw()"},
		{"check":"solc-version","impact":"Informational","description":"Pragma allows old compilers"}
	]}}`

	findings, err := parseDetectors(stdout)
	if err != nil {
		t.Fatalf("parseDetectors: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("finding count = %d, want 2", len(findings))
	}
	if findings[0]["check"] != "reentrancy-eth" {
		t.Errorf("check = %v", findings[0]["check"])
	}
}

func TestParseDetectors_NoDetectors(t *testing.T) {
	findings, err := parseDetectors(`{"success":true,"results":{}}`)
	if err != nil {
		t.Fatalf("parseDetectors: %v", err)
	}
	if findings == nil || len(findings) != 0 {
		t.Errorf("findings = %v, want empty non-nil slice", findings)
	}
}

func TestParseDetectors_Malformed(t *testing.T) {
	if _, err := parseDetectors("<<<garbage>>>"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSummarizeFindings(t *testing.T) {
	findings := []map[string]any{
		{"check": "a", "impact": "High"},
		{"check": "b", "impact": "High"},
		{"check": "c", "impact": "Medium"},
		{"check": "d"}, // no impact field
	}

	summary := summarizeFindings(findings)

	if summary["total_findings"] != 4 {
		t.Errorf("total_findings = %v, want 4", summary["total_findings"])
	}
	breakdown, ok := summary["severity_breakdown"].(map[string]int)
	if !ok {
		t.Fatal("missing severity_breakdown")
	}
	if breakdown["High"] != 2 || breakdown["Medium"] != 1 || breakdown["unknown"] != 1 {
		t.Errorf("breakdown = %v", breakdown)
	}
}

func TestSummarizeFindings_Empty(t *testing.T) {
	summary := summarizeFindings(nil)
	if summary["total_findings"] != 0 {
		t.Errorf("total_findings = %v, want 0", summary["total_findings"])
	}
}
