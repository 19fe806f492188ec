package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func resetOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(INFO)
	})
	return &buf
}

func TestInfoCF_IncludesComponentAndFields(t *testing.T) {
	buf := resetOutput(t)
	SetLevel(INFO)

	InfoCF("mcp", "Tool call", map[string]any{
		"tool":    "compile_solidity",
		"session": "abc",
	})

	out := buf.String()
	for _, want := range []string{"component=mcp", "Tool call", "tool=compile_solidity", "session=abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestSetLevel_FiltersBelow(t *testing.T) {
	buf := resetOutput(t)
	SetLevel(WARN)

	DebugCF("test", "debug line", nil)
	InfoCF("test", "info line", nil)
	WarnCF("test", "warn line", nil)
	ErrorCF("test", "error line", nil)

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("filtered levels leaked:\n%s", out)
	}
	if !strings.Contains(out, "warn line") || !strings.Contains(out, "error line") {
		t.Errorf("expected warn and error lines:\n%s", out)
	}
}

func TestFieldOrderIsStable(t *testing.T) {
	buf := resetOutput(t)
	SetLevel(INFO)

	InfoCF("test", "ordered", map[string]any{"zeta": 1, "alpha": 2, "mid": 3})

	out := buf.String()
	if strings.Index(out, "alpha=") > strings.Index(out, "mid=") ||
		strings.Index(out, "mid=") > strings.Index(out, "zeta=") {
		t.Errorf("fields not sorted:\n%s", out)
	}
}
