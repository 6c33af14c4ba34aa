// Package registry holds the in-memory catalog of processes, groups and
// ports, and is the single entry point for all reads and writes to it.
// Every mutation is validated against the invariants in the data model
// (unique names, unique ports, consistent group membership, a strictly
// increasing ID counter) and flushed through the Store before it is
// considered to have happened.
package registry

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/loykin/sentinel/internal/errs"
	"github.com/loykin/sentinel/internal/store"
)

// Registry is the threadsafe catalog of processes, groups and ports. It
// owns a single in-memory copy of the Store's document and keeps it in
// sync: every mutating method reloads the document under the Store's
// advisory lock, applies its change, validates invariants, and saves
// before releasing — so two Registry instances in different processes
// (a CLI invocation and the daemon, say) never interleave a partial
// transaction.
type Registry struct {
	mu sync.Mutex
	st store.Store
	// cat is this process's most recently observed view of the catalog.
	// It is refreshed at construction and on every successful
	// transaction; Refresh pulls the latest cross-process state
	// explicitly for long-lived callers such as the restart supervisor.
	cat store.Catalog
}

// New constructs a Registry backed by st, loading the current catalog
// (or an empty one, if the store file doesn't exist yet).
func New(st store.Store) (*Registry, error) {
	cat, err := st.Load()
	if err != nil {
		return nil, err
	}
	return &Registry{st: st, cat: cat}, nil
}

// Refresh reloads the catalog from the Store, picking up committed
// writes made by other processes since the last transaction. It does
// not take the cross-process lock — a concurrent writer's rename is
// atomic, so this always observes a complete (if possibly stale)
// document.
func (r *Registry) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cat, err := r.st.Load()
	if err != nil {
		return err
	}
	r.cat = cat
	return nil
}

// transaction is the sole path by which any mutation reaches disk. It
// acquires the in-process mutex, then the Store's cross-process
// advisory lock, reloads the latest committed document, lets apply
// mutate a working copy, derives group membership from process.Group
// (invariant 3), validates the remaining invariants, saves, and only
// then commits the working copy as r.cat. A failed save or a failed
// invariant check leaves r.cat exactly as it was.
func (r *Registry) transaction(apply func(cat *store.Catalog) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	unlock, err := r.st.Lock()
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	cat, err := r.st.Load()
	if err != nil {
		return err
	}

	if err := apply(&cat); err != nil {
		return err
	}

	deriveGroupMembership(&cat)

	if err := validate(cat); err != nil {
		return err
	}

	if err := r.st.Save(cat); err != nil {
		// Save failed: the mutation is rejected, in-memory state (r.cat)
		// is untouched.
		return err
	}

	r.cat = cat
	return nil
}

// deriveGroupMembership recomputes every GroupRecord.Members from the
// processes' Group field, enforcing invariant 3 as a derivation rather
// than a second source of truth that could drift.
func deriveGroupMembership(cat *store.Catalog) {
	byGroup := make(map[string][]int64, len(cat.Groups))
	for _, p := range cat.Processes {
		if p.Group == "" {
			continue
		}
		byGroup[p.Group] = append(byGroup[p.Group], p.ID)
	}
	for i := range cat.Groups {
		members := byGroup[cat.Groups[i].Name]
		sort.Slice(members, func(a, b int) bool { return members[a] < members[b] })
		cat.Groups[i].Members = members
	}
}

// validate checks the catalog invariants that transaction() doesn't
// already guarantee by construction (name/port uniqueness and group
// existence; ID monotonicity and log-path determinism are guaranteed by
// the code paths that assign them).
func validate(cat store.Catalog) error {
	names := make(map[string]struct{}, len(cat.Processes))
	for _, p := range cat.Processes {
		if _, dup := names[p.Name]; dup {
			return conflict("process", p.Name)
		}
		names[p.Name] = struct{}{}
		if p.Group != "" {
			found := false
			for _, g := range cat.Groups {
				if g.Name == p.Group {
					found = true
					break
				}
			}
			if !found {
				return invalid("process " + p.Name + " references unknown group " + p.Group)
			}
		}
	}

	groupNames := make(map[string]struct{}, len(cat.Groups))
	for _, g := range cat.Groups {
		if g.Name == "" {
			return invalid("group name must not be empty")
		}
		if _, dup := groupNames[g.Name]; dup {
			return conflict("group", g.Name)
		}
		groupNames[g.Name] = struct{}{}
	}

	ports := make(map[int]struct{}, len(cat.Ports))
	for _, p := range cat.Ports {
		if p.Port < 1 || p.Port > 65535 {
			return invalid("port out of range")
		}
		if _, dup := ports[p.Port]; dup {
			return conflict("port", strconv.Itoa(p.Port))
		}
		ports[p.Port] = struct{}{}
	}
	return nil
}

// --- process operations ---

// AddProcess assigns the next ID, defaults Group to "" (null), rejects
// a name clash, and persists the new record. The returned record has
// its ID field populated.
func (r *Registry) AddProcess(rec ProcessRecord) (ProcessRecord, error) {
	if rec.Name == "" {
		return ProcessRecord{}, invalid("process name must not be empty")
	}
	var created ProcessRecord
	err := r.transaction(func(cat *store.Catalog) error {
		for _, p := range cat.Processes {
			if p.Name == rec.Name {
				return conflict("process", rec.Name)
			}
		}
		rec.ID = cat.NextID
		cat.NextID++
		if rec.Env == nil {
			rec.Env = map[string]string{}
		}
		cat.Processes = append(cat.Processes, rec)
		created = rec
		return nil
	})
	return created, err
}

// UpdateProcess applies patch to the record with the given ID.
func (r *Registry) UpdateProcess(id int64, patch ProcessPatch) (ProcessRecord, error) {
	var updated ProcessRecord
	err := r.transaction(func(cat *store.Catalog) error {
		idx := indexOfProcessID(cat.Processes, id)
		if idx < 0 {
			return notFound(idFmt(id))
		}
		p := &cat.Processes[idx]
		if patch.PID != nil {
			p.PID = *patch.PID
		}
		if patch.StartedAt != nil {
			p.StartedAt = *patch.StartedAt
		}
		if patch.Restart != nil {
			p.Restart = *patch.Restart
		}
		if patch.Group != nil {
			if *patch.Group != "" {
				found := false
				for _, g := range cat.Groups {
					if g.Name == *patch.Group {
						found = true
						break
					}
				}
				if !found {
					return notFound("group:" + *patch.Group)
				}
			}
			p.Group = *patch.Group
		}
		if patch.Env != nil {
			p.Env = patch.Env
		}
		if patch.CWD != nil {
			p.CWD = *patch.CWD
		}
		if patch.StdoutPath != nil {
			p.StdoutPath = *patch.StdoutPath
		}
		if patch.StderrPath != nil {
			p.StderrPath = *patch.StderrPath
		}
		updated = *p
		return nil
	})
	return updated, err
}

// RemoveProcess deletes the record with the given ID. Group membership
// is automatically consistent afterward because it is derived.
func (r *Registry) RemoveProcess(id int64) error {
	return r.transaction(func(cat *store.Catalog) error {
		idx := indexOfProcessID(cat.Processes, id)
		if idx < 0 {
			return notFound(idFmt(id))
		}
		cat.Processes = append(cat.Processes[:idx], cat.Processes[idx+1:]...)
		return nil
	})
}

// FindProcess resolves selector (a decimal ID or an exact name) against
// this Registry's current in-memory view.
func (r *Registry) FindProcess(selector string) (ProcessRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := parseSelector(selector); ok {
		if idx := indexOfProcessID(r.cat.Processes, id); idx >= 0 {
			return r.cat.Processes[idx], nil
		}
		// Fall through: a purely numeric name is legal too.
	}
	for _, p := range r.cat.Processes {
		if p.Name == selector {
			return p, nil
		}
	}
	return ProcessRecord{}, notFound(selector)
}

// SnapshotProcesses returns a deep copy of every process record,
// ordered by ID, safe to iterate outside any lock.
func (r *Registry) SnapshotProcesses() []ProcessRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProcessRecord, len(r.cat.Processes))
	for i, p := range r.cat.Processes {
		out[i] = p
		out[i].Env = copyEnv(p.Env)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// --- group operations ---

// AddGroup creates a new, empty group with the given environment
// overlay.
func (r *Registry) AddGroup(name string, env map[string]string) (GroupRecord, error) {
	if name == "" {
		return GroupRecord{}, invalid("group name must not be empty")
	}
	var created GroupRecord
	err := r.transaction(func(cat *store.Catalog) error {
		for _, g := range cat.Groups {
			if g.Name == name {
				return conflict("group", name)
			}
		}
		if env == nil {
			env = map[string]string{}
		}
		created = GroupRecord{Name: name, Env: env}
		cat.Groups = append(cat.Groups, created)
		return nil
	})
	return created, err
}

// UpdateGroupEnv replaces a group's environment overlay. The overlay is
// read at spawn time only, so this affects processes (re)spawned after
// the change; running members are untouched.
func (r *Registry) UpdateGroupEnv(name string, env map[string]string) (GroupRecord, error) {
	var updated GroupRecord
	err := r.transaction(func(cat *store.Catalog) error {
		idx := indexOfGroupName(cat.Groups, name)
		if idx < 0 {
			return notFound(name)
		}
		cat.Groups[idx].Env = env
		updated = cat.Groups[idx]
		return nil
	})
	return updated, err
}

// RemoveGroup deletes the group record and detaches every member (sets
// its Group field to ""). Tearing members down first, if requested, is
// the Group Manager's job (it must stop them via the Process Engine
// before calling this).
func (r *Registry) RemoveGroup(name string) error {
	return r.transaction(func(cat *store.Catalog) error {
		idx := indexOfGroupName(cat.Groups, name)
		if idx < 0 {
			return notFound(name)
		}
		cat.Groups = append(cat.Groups[:idx], cat.Groups[idx+1:]...)
		for i := range cat.Processes {
			if cat.Processes[i].Group == name {
				cat.Processes[i].Group = ""
			}
		}
		return nil
	})
}

// AddMember assigns process id to group name.
func (r *Registry) AddMember(name string, id int64) error {
	_, err := r.UpdateProcess(id, ProcessPatch{Group: &name})
	return err
}

// RemoveMember detaches process id from whatever group it's in.
func (r *Registry) RemoveMember(id int64) error {
	empty := ""
	_, err := r.UpdateProcess(id, ProcessPatch{Group: &empty})
	return err
}

// FindGroup looks up a group by exact name.
func (r *Registry) FindGroup(name string) (GroupRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := indexOfGroupName(r.cat.Groups, name); idx >= 0 {
		return r.cat.Groups[idx], nil
	}
	return GroupRecord{}, notFound(name)
}

// SnapshotGroups returns every group record, ordered by name.
func (r *Registry) SnapshotGroups() []GroupRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GroupRecord, len(r.cat.Groups))
	copy(out, r.cat.Groups)
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// MembersOf returns the process records currently assigned to group
// name, ordered by ID.
func (r *Registry) MembersOf(name string) []ProcessRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ProcessRecord
	for _, p := range r.cat.Processes {
		if p.Group == name {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// --- port operations ---

// AllocatePort reserves port (if non-nil) or an OS-assigned ephemeral
// port (if nil), recording it under name (defaulting to "default").
func (r *Registry) AllocatePort(port *int, name string, pick func() (int, error)) (PortRecord, error) {
	if name == "" {
		name = "default"
	}
	var created PortRecord
	err := r.transaction(func(cat *store.Catalog) error {
		taken := make(map[int]struct{}, len(cat.Ports))
		for _, p := range cat.Ports {
			taken[p.Port] = struct{}{}
		}

		num := 0
		if port != nil {
			if *port < 1 || *port > 65535 {
				return invalid("port out of range")
			}
			if _, dup := taken[*port]; dup {
				return conflict("port", strconv.Itoa(*port))
			}
			num = *port
		} else {
			for attempt := 0; attempt < 16; attempt++ {
				p, err := pick()
				if err != nil {
					return errs.New(errs.IOFailure, "port allocation", err)
				}
				if _, dup := taken[p]; !dup {
					num = p
					break
				}
			}
			if num == 0 {
				return errs.New(errs.IOFailure, "port allocation", nil)
			}
		}

		created = PortRecord{Port: num, Name: name, AllocatedAt: time.Now().UTC()}
		cat.Ports = append(cat.Ports, created)
		return nil
	})
	return created, err
}

// FreePort removes a port reservation.
func (r *Registry) FreePort(port int) error {
	return r.transaction(func(cat *store.Catalog) error {
		for i, p := range cat.Ports {
			if p.Port == port {
				cat.Ports = append(cat.Ports[:i], cat.Ports[i+1:]...)
				return nil
			}
		}
		return notFound(idFmt(int64(port)))
	})
}

// SnapshotPorts returns every port record sorted by port number.
func (r *Registry) SnapshotPorts() []PortRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PortRecord, len(r.cat.Ports))
	copy(out, r.cat.Ports)
	sort.Slice(out, func(a, b int) bool { return out[a].Port < out[b].Port })
	return out
}

// --- helpers ---

func indexOfProcessID(procs []store.Process, id int64) int {
	for i, p := range procs {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func indexOfGroupName(groups []store.Group, name string) int {
	for i, g := range groups {
		if g.Name == name {
			return i
		}
	}
	return -1
}

func copyEnv(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func idFmt(id int64) string {
	return strconv.FormatInt(id, 10)
}
