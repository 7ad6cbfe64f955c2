//go:build unix

package tools

import (
	"os/exec"
	"syscall"
	"time"
)

// setProcAttr puts the child in its own process group so a timeout kill
// reaches grandchildren too.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcessGroup attempts graceful shutdown with SIGTERM, escalating to
// SIGKILL after the grace period.
func killProcessGroup(cmd *exec.Cmd, grace time.Duration) {
	if cmd.Process == nil {
		return
	}

	pid := cmd.Process.Pid

	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		// Process group kill failed, try the process directly
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}

	time.Sleep(grace)

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}
