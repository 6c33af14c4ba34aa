//go:build !windows

package engine

import (
	"errors"
	"os/exec"
	"syscall"
)

// detach configures cmd to run in a new session, so it survives the
// controlling tool's exit and receives no signals sent to the tool's
// own process group.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

func killGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}

func processExists(pid int) bool {
	err := syscall.Kill(pid, 0)
	// EPERM means the pid exists but isn't ours to signal.
	return err == nil || errors.Is(err, syscall.EPERM)
}
