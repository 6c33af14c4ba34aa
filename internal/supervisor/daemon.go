package supervisor

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/loykin/sentinel/internal/errs"
)

// daemonPIDFile is the conventional path for the live daemon's PID,
// relative to the state directory (<HOME>/.sentinel/daemon.pid).
func daemonPIDFile(stateDir string) string {
	return filepath.Join(stateDir, "daemon.pid")
}

// DaemonStatus reports whether a daemon is currently running, per the
// PID file plus a liveness check (no start-time verification: the
// daemon isn't a Registry-tracked ProcessRecord, so there's no
// started_at to compare against — reused PIDs are an accepted,
// narrow race here).
func DaemonStatus(stateDir string) (pid int, running bool, err error) {
	raw, err := os.ReadFile(daemonPIDFile(stateDir))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, errs.New(errs.IOFailure, daemonPIDFile(stateDir), err)
	}
	pid, convErr := strconv.Atoi(strings.TrimSpace(string(raw)))
	if convErr != nil {
		return 0, false, nil
	}
	return pid, daemonAlive(pid), nil
}

// DaemonStart re-execs the current binary with the given args in a new
// session, detached from the controlling terminal, and writes its PID
// to the PID file. It refuses with AlreadyRunning if a live daemon is
// already recorded. args is whatever the presentation layer needs to
// tell the re-exec'd process to run the daemon loop (e.g. ["daemon",
// "run"]) — this package doesn't know its own CLI surface.
func DaemonStart(stateDir string, args []string, logFile string) (int, error) {
	if pid, running, err := DaemonStatus(stateDir); err != nil {
		return 0, err
	} else if running {
		return pid, errs.New(errs.AlreadyRunning, strconv.Itoa(pid), nil)
	}

	exe, err := os.Executable()
	if err != nil {
		return 0, errs.New(errs.IOFailure, "executable path", err)
	}

	// #nosec G204
	cmd := exec.Command(exe, args...)
	daemonSetDetached(cmd)
	cmd.Stdin = nil

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return 0, errs.New(errs.IOFailure, logFile, err)
		}
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		return 0, errs.New(errs.SpawnFailed, exe, err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()

	if err := os.WriteFile(daemonPIDFile(stateDir), []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return 0, errs.New(errs.IOFailure, daemonPIDFile(stateDir), err)
	}
	return pid, nil
}

// DaemonStop sends SIGTERM to the recorded daemon, waits up to 5
// seconds, escalates to SIGKILL, then removes the PID file once the
// process has exited.
func DaemonStop(stateDir string) error {
	pid, running, err := DaemonStatus(stateDir)
	if err != nil {
		return err
	}
	if !running {
		_ = os.Remove(daemonPIDFile(stateDir))
		return nil
	}

	if err := daemonSendTerm(pid); err != nil {
		return errs.New(errs.StopFailed, strconv.Itoa(pid), err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !daemonAlive(pid) {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	if daemonAlive(pid) {
		if err := daemonSendKill(pid); err != nil {
			return errs.New(errs.StopFailed, strconv.Itoa(pid), err)
		}
		time.Sleep(200 * time.Millisecond)
	}
	return os.Remove(daemonPIDFile(stateDir))
}

// RunForeground is the daemon process's own main body once re-exec'd:
// it runs the sweep Loop at the given interval until a value arrives
// on sig (the caller installs the SIGTERM/SIGINT handlers feeding it),
// then lets the current sweep finish and returns, logging each tick's
// outcome through log. A nil log discards diagnostics.
func RunForeground(s *Supervisor, interval time.Duration, sig <-chan os.Signal, log *slog.Logger) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		log.Info("daemon started", "interval", interval)
		s.Loop(interval, stop, func(err error) {
			if err != nil {
				log.Warn("sweep failed", "error", err)
			} else {
				log.Debug("sweep completed")
			}
		})
		close(done)
	}()
	<-sig
	log.Info("daemon shutting down")
	close(stop)
	<-done
}
