package supervisor

import (
	"github.com/loykin/sentinel/internal/engine"
	"github.com/loykin/sentinel/internal/errs"
)

// StartAll spawns every member of group name that is not currently
// alive, using each member's stored command/cwd/env, exactly as a
// restart-supervisor respawn would. Per-member failures are collected
// rather than aborting the batch.
func (s *Supervisor) StartAll(name string) error {
	if _, err := s.Registry.FindGroup(name); err != nil {
		return err
	}
	members := s.Registry.MembersOf(name)
	multi := &errs.MultiError{}
	for i, p := range members {
		if engine.Exists(p.PID, p.StartedAt) {
			continue
		}
		multi.Add(i, s.respawn(p))
	}
	return multi.ErrOrNil()
}

// StopAll stops every live member of group name. force is passed
// through to engine.Stop unchanged.
func (s *Supervisor) StopAll(name string, force bool) error {
	if _, err := s.Registry.FindGroup(name); err != nil {
		return err
	}
	members := s.Registry.MembersOf(name)
	multi := &errs.MultiError{}
	for i, p := range members {
		_, err := engine.Stop(p.PID, p.StartedAt, force)
		multi.Add(i, err)
	}
	return multi.ErrOrNil()
}

// RestartAll stops (gracefully) then respawns every member of group
// name.
func (s *Supervisor) RestartAll(name string) error {
	if _, err := s.Registry.FindGroup(name); err != nil {
		return err
	}
	members := s.Registry.MembersOf(name)
	multi := &errs.MultiError{}
	for i, p := range members {
		if _, err := engine.Stop(p.PID, p.StartedAt, false); err != nil {
			multi.Add(i, err)
			continue
		}
		multi.Add(i, s.respawn(p))
	}
	return multi.ErrOrNil()
}

// DeleteGroup tears down (if stopMembers) then removes group name,
// detaching whatever members remain.
func (s *Supervisor) DeleteGroup(name string, stopMembers bool) error {
	if stopMembers {
		if err := s.StopAll(name, true); err != nil {
			// A dead member is still removed from the group
			// successfully, so a stop failure here is not fatal to
			// the delete itself.
			_ = err
		}
	}
	return s.Registry.RemoveGroup(name)
}

// StopAllProcesses stops every process in the catalog regardless of
// group, for the top-level `stopall` verb.
func (s *Supervisor) StopAllProcesses(force bool) error {
	procs := s.Registry.SnapshotProcesses()
	multi := &errs.MultiError{}
	for i, p := range procs {
		_, err := engine.Stop(p.PID, p.StartedAt, force)
		multi.Add(i, err)
	}
	return multi.ErrOrNil()
}

// StartAllProcesses respawns every dead, non-restart-flagged process
// too (unlike SweepAll, which only touches restart=true records), for
// the top-level `startall` verb.
func (s *Supervisor) StartAllProcesses() error {
	procs := s.Registry.SnapshotProcesses()
	multi := &errs.MultiError{}
	for i, p := range procs {
		if engine.Exists(p.PID, p.StartedAt) {
			continue
		}
		multi.Add(i, s.respawn(p))
	}
	return multi.ErrOrNil()
}

// RestartAllProcesses stops then respawns every process in the
// catalog, for the top-level `restartall` verb.
func (s *Supervisor) RestartAllProcesses() error {
	procs := s.Registry.SnapshotProcesses()
	multi := &errs.MultiError{}
	for i, p := range procs {
		if _, err := engine.Stop(p.PID, p.StartedAt, false); err != nil {
			multi.Add(i, err)
			continue
		}
		multi.Add(i, s.respawn(p))
	}
	return multi.ErrOrNil()
}
