//go:build !windows

package tools

import (
	"os/exec"
	"syscall"
)

// prepareCommandForTermination places the child in its own process group so
// the entire tree can be signalled on timeout.
func prepareCommandForTermination(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateProcessTree kills the child's process group.
func terminateProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
