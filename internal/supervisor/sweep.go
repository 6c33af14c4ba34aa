// Package supervisor implements the Restart Supervisor (the sweep that
// respawns dead restart-flagged processes, available both as a
// one-shot pass and a long-running timer loop) and the Group Manager
// (bulk lifecycle operations over a named set of processes).
package supervisor

import (
	"time"

	"github.com/loykin/sentinel/internal/engine"
	"github.com/loykin/sentinel/internal/errs"
	"github.com/loykin/sentinel/internal/logs"
	"github.com/loykin/sentinel/internal/registry"
)

// Supervisor ties the Registry, the Process Engine and the Log Router
// together for the respawn pass. It carries no state of its own beyond
// its dependencies, so constructing one is cheap and safe to do once
// per CLI invocation or once for the life of the daemon.
type Supervisor struct {
	Registry *registry.Registry
	Logs     *logs.Router
}

// New returns a Supervisor over the given Registry and Log Router.
func New(reg *registry.Registry, router *logs.Router) *Supervisor {
	return &Supervisor{Registry: reg, Logs: router}
}

// respawn restarts a single record in place: a fresh spawn of its
// stored command/cwd/env, with the record updated to the new
// pid/started_at on success. It is shared by the sweeps and the bulk
// start/restart operations. Failures are returned, not retried here —
// the caller decides whether to keep going.
func (s *Supervisor) respawn(rec registry.ProcessRecord) error {
	out, errf, err := s.Logs.Open(rec.Name)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close(); _ = errf.Close() }()

	res, err := engine.Spawn(engine.SpawnInput{
		Command: rec.Command,
		CWD:     rec.CWD,
		Env:     rec.Env,
		Stdout:  out,
		Stderr:  errf,
	})
	if err != nil {
		return err
	}

	pid := res.PID
	started := res.StartedAt
	_, err = s.Registry.UpdateProcess(rec.ID, registry.ProcessPatch{
		PID:       &pid,
		StartedAt: &started,
	})
	return err
}

// SweepAll scans every restart-flagged record in the Registry and
// respawns the ones that are dead. It refreshes the Registry's view
// first, so it observes mutations committed by other processes since
// this Supervisor was constructed. Per-target failures are collected
// into a MultiError; the sweep always runs to completion.
func (s *Supervisor) SweepAll() error {
	if err := s.Registry.Refresh(); err != nil {
		return err
	}
	procs := s.Registry.SnapshotProcesses()
	multi := &errs.MultiError{}
	for i, p := range procs {
		if !p.Restart {
			continue
		}
		if engine.Exists(p.PID, p.StartedAt) {
			continue
		}
		multi.Add(i, s.respawn(p))
	}
	return multi.ErrOrNil()
}

// SweepOne performs the same check as SweepAll, but only for the
// single record matching selector. Used by the status command, which
// targets one process, per the target-only sweep-scope decision; list
// still uses SweepAll.
func (s *Supervisor) SweepOne(selector string) error {
	if err := s.Registry.Refresh(); err != nil {
		return err
	}
	p, err := s.Registry.FindProcess(selector)
	if err != nil {
		return err
	}
	if !p.Restart || engine.Exists(p.PID, p.StartedAt) {
		return nil
	}
	return s.respawn(p)
}

// Loop runs SweepAll every interval until stop is closed, reporting
// each tick's outcome to onTick (nil is fine; errors are otherwise
// swallowed since a sweep retries on the next tick regardless). It is
// the daemon's main body; a one-shot Sweep (SweepAll/SweepOne) is the
// same logic invoked opportunistically from the CLI, so the two paths
// can never drift apart in how they respawn.
func (s *Supervisor) Loop(interval time.Duration, stop <-chan struct{}, onTick func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := s.SweepAll()
			if onTick != nil {
				onTick(err)
			}
		}
	}
}
