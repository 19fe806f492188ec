package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const defaultFilename = "Contract.sol"

// runOutput captures one external tool invocation.
type runOutput struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
}

// runOnSource writes source to an ephemeral file in a private temp directory,
// runs bin with args plus the file path appended, and captures the outcome.
// The temp directory is removed on every exit path, including timeouts and
// start errors. Timeouts kill the whole process tree.
func runOnSource(ctx context.Context, bin string, args []string, source, filename string, timeout time.Duration) (out *runOutput, err error) {
	binPath, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH", bin)
	}

	dir, err := os.MkdirTemp("", "solguard-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if filename == "" {
		filename = defaultFilename
	}
	srcPath := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(srcPath, []byte(source), 0o600); err != nil {
		return nil, fmt.Errorf("write source: %w", err)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, binPath, append(append([]string{}, args...), srcPath)...)
	cmd.Env = os.Environ()
	prepareCommandForTermination(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var execErr error
	select {
	case execErr = <-done:
	case <-cmdCtx.Done():
		_ = terminateProcessTree(cmd)
		select {
		case execErr = <-done:
		case <-time.After(3 * time.Second):
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			execErr = <-done
		}
	}

	out = &runOutput{stdout: stdout.String(), stderr: stderr.String()}
	if cmdCtx.Err() == context.DeadlineExceeded {
		out.timedOut = true
		return out, nil
	}
	if execErr != nil {
		var exitErr *exec.ExitError
		if errors.As(execErr, &exitErr) {
			out.exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("run %s: %w", bin, execErr)
		}
	}
	return out, nil
}
