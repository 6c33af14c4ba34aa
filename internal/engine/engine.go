// Package engine is the process lifecycle engine: it spawns detached
// children, stops them with signal escalation, and reports liveness
// and runtime metrics. It never keeps a child's *exec.Cmd alive across
// calls — each entry point is self-contained, consulting only a PID
// and a recorded start time, since the controlling tool is expected to
// exit between invocations and rediscover state from the Registry.
package engine

import (
	"os"
	"strconv"
	"syscall"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"

	"github.com/loykin/sentinel/internal/errs"
)

// startTimeTolerance bounds how far a live PID's observed start time
// may drift from the recorded started_at before it's treated as a
// different process that happens to reuse the PID.
const startTimeTolerance = time.Second

// stopGrace is how long Stop waits after SIGTERM before escalating to
// SIGKILL.
const stopGrace = 5 * time.Second

// SpawnInput carries everything Spawn needs to start a detached child.
// Env is the fully-resolved overlay (ambient ∘ group ∘ process) the
// caller has already merged; the engine does not merge environments
// itself.
type SpawnInput struct {
	Command string
	CWD     string
	Env     map[string]string
	Stdout  *os.File
	Stderr  *os.File
}

// SpawnResult carries the values a successful spawn realized, for the
// caller to persist into a ProcessRecord.
type SpawnResult struct {
	PID       int
	StartedAt time.Time
}

// Spawn starts in.Command as a detached child: its own session, stdio
// wired to the given sinks (or /dev/null if nil), stdin read from
// /dev/null. It
// does not touch the Registry; the caller persists the result.
func Spawn(in SpawnInput) (SpawnResult, error) {
	cmd := buildCommand(in.Command)
	if in.CWD != "" {
		cmd.Dir = in.CWD
	}
	if len(in.Env) > 0 {
		env := make([]string, 0, len(in.Env))
		for k, v := range in.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	detach(cmd)

	if in.Stdout != nil {
		cmd.Stdout = in.Stdout
	} else if null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0); err == nil {
		cmd.Stdout = null
	}
	if in.Stderr != nil {
		cmd.Stderr = in.Stderr
	} else if null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0); err == nil {
		cmd.Stderr = null
	}
	if null, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0); err == nil {
		cmd.Stdin = null
	}

	if err := cmd.Start(); err != nil {
		return SpawnResult{}, errs.New(errs.SpawnFailed, in.Command, err)
	}
	pid := cmd.Process.Pid
	started := time.Now().UTC()

	// Detached: release our handle immediately; this process never
	// waits on the child.
	_ = cmd.Process.Release()

	return SpawnResult{PID: pid, StartedAt: started}, nil
}

// Exists reports whether pid both (a) refers to a live OS process that
// is not a zombie and (b) that process's observed start time matches
// startedAt within startTimeTolerance — guarding against the OS having
// recycled pid for an unrelated process since the record was written.
func Exists(pid int, startedAt time.Time) bool {
	if pid <= 0 || !processExists(pid) {
		return false
	}
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	if states, err := p.Status(); err == nil {
		for _, s := range states {
			if s == gopsproc.Zombie {
				return false
			}
		}
	}
	ms, err := p.CreateTime()
	if err != nil || ms <= 0 {
		// Can't verify identity; treat kernel presence alone as enough
		// rather than falsely reporting death.
		return true
	}
	observed := time.UnixMilli(ms)
	if startedAt.IsZero() {
		return true
	}
	diff := observed.Sub(startedAt)
	if diff < 0 {
		diff = -diff
	}
	return diff <= startTimeTolerance
}

// Metrics is the runtime snapshot Status reports for a live PID.
type Metrics struct {
	Exists     bool
	CPUPercent float64
	MemBytes   uint64
	Uptime     time.Duration
}

// Status samples liveness and, when alive, CPU/memory/uptime for pid.
func Status(pid int, startedAt time.Time) Metrics {
	if !Exists(pid, startedAt) {
		return Metrics{Exists: false}
	}
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return Metrics{Exists: false}
	}
	cpu, _ := p.CPUPercent()
	var memBytes uint64
	if mi, err := p.MemoryInfo(); err == nil && mi != nil {
		memBytes = mi.RSS
	}
	return Metrics{
		Exists:     true,
		CPUPercent: cpu,
		MemBytes:   memBytes,
		Uptime:     time.Since(startedAt),
	}
}

// StopOutcome reports how Stop concluded.
type StopOutcome int

const (
	Stopped StopOutcome = iota
	AlreadyDead
)

// Stop signals pid's process group: SIGTERM then, after stopGrace
// without exit, SIGKILL — or SIGKILL immediately when force is true.
// A pid that is already dead (or fails the identity check) is reported
// as AlreadyDead without sending any signal.
func Stop(pid int, startedAt time.Time, force bool) (StopOutcome, error) {
	if !Exists(pid, startedAt) {
		return AlreadyDead, nil
	}

	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	if err := killGroup(pid, sig); err != nil {
		return 0, errs.New(errs.StopFailed, strconv.Itoa(pid), err)
	}
	if force {
		waitForExit(pid, 200*time.Millisecond)
		return Stopped, nil
	}

	if waitForExit(pid, stopGrace) {
		return Stopped, nil
	}
	if err := killGroup(pid, syscall.SIGKILL); err != nil {
		return 0, errs.New(errs.StopFailed, strconv.Itoa(pid), err)
	}
	waitForExit(pid, 200*time.Millisecond)
	return Stopped, nil
}

func waitForExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processExists(pid) {
			return true
		}
		time.Sleep(25 * time.Millisecond)
	}
	return !processExists(pid)
}

