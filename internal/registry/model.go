package registry

import (
	"time"

	"github.com/loykin/sentinel/internal/store"
)

// ProcessRecord, GroupRecord and PortRecord are the in-memory shape of a
// catalog entry. They alias the store's serialized form directly: the
// Registry is the sole owner of that document in memory, so there is no
// separate "domain" struct to keep in sync with the wire format.
type (
	ProcessRecord = store.Process
	GroupRecord   = store.Group
	PortRecord    = store.Port
)

// ProcessPatch carries the fields UpdateProcess is allowed to change:
// pid, started_at, restart, group, env, cwd, and the stdout/stderr log
// paths. A nil field is left
// untouched; Env has no nil/empty distinction so a non-nil map always
// replaces the stored one.
type ProcessPatch struct {
	PID        *int
	StartedAt  *time.Time
	Restart    *bool
	Group      *string // nil group pointer = leave unchanged; pointer to "" = clear
	Env        map[string]string
	CWD        *string
	StdoutPath *string
	StderrPath *string
}
