//go:build windows

package engine

import (
	"os/exec"
	"syscall"
)

// detach configures cmd to run detached from the controlling console.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// killGroup maps the POSIX signal escalation onto Windows: anything
// short of SIGKILL is a best-effort no-op since there is no portable
// graceful-termination signal, and SIGKILL terminates the process tree.
func killGroup(pid int, sig syscall.Signal) error {
	if sig != syscall.SIGKILL {
		return nil
	}
	p, err := syscall.OpenProcess(syscall.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer func() { _ = syscall.CloseHandle(p) }()
	return syscall.TerminateProcess(p, 1)
}

func processExists(pid int) bool {
	h, err := syscall.OpenProcess(syscall.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	_ = syscall.CloseHandle(h)
	return true
}
