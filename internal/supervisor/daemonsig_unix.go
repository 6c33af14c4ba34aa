//go:build !windows

package supervisor

import (
	"errors"
	"os/exec"
	"syscall"
)

func daemonAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	// EPERM means the pid exists but isn't ours to signal.
	return err == nil || errors.Is(err, syscall.EPERM)
}

func daemonSetDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

func daemonSendTerm(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

func daemonSendKill(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}
