package registry

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/sentinel/internal/errs"
	"github.com/loykin/sentinel/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	reg, err := New(st)
	require.NoError(t, err)
	return reg
}

func TestAddProcessAssignsIDAndRejectsNameClash(t *testing.T) {
	reg := newTestRegistry(t)
	a, err := reg.AddProcess(ProcessRecord{Name: "a", Command: "true"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, a.ID)

	b, err := reg.AddProcess(ProcessRecord{Name: "b", Command: "true"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, b.ID, "expected monotone ids")

	_, err = reg.AddProcess(ProcessRecord{Name: "a", Command: "true"})
	assert.Equal(t, errs.Conflict, errs.KindOf(err))
}

func TestFindProcessBySelector(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.AddProcess(ProcessRecord{Name: "web", Command: "true"})
	require.NoError(t, err)

	byID, err := reg.FindProcess("1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byID.ID)

	byName, err := reg.FindProcess("web")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byName.ID)

	_, err = reg.FindProcess("missing")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestUpdateProcessAppliesPatch(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.AddProcess(ProcessRecord{Name: "web", Command: "true"})
	require.NoError(t, err)

	newPID := 4242
	restart := true
	updated, err := reg.UpdateProcess(rec.ID, ProcessPatch{PID: &newPID, Restart: &restart})
	require.NoError(t, err)
	assert.Equal(t, newPID, updated.PID)
	assert.True(t, updated.Restart)
}

func TestRemoveProcessDetachesFromGroup(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.AddGroup("g", nil)
	require.NoError(t, err)
	rec, err := reg.AddProcess(ProcessRecord{Name: "m", Command: "true", Group: "g"})
	require.NoError(t, err)

	g, err := reg.FindGroup("g")
	require.NoError(t, err)
	assert.Equal(t, []int64{rec.ID}, g.Members)

	require.NoError(t, reg.RemoveProcess(rec.ID))

	g, err = reg.FindGroup("g")
	require.NoError(t, err)
	assert.Empty(t, g.Members)
}

func TestUpdateProcessRejectsUnknownGroup(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.AddProcess(ProcessRecord{Name: "m", Command: "true"})
	require.NoError(t, err)
	bogus := "does-not-exist"
	_, err = reg.UpdateProcess(rec.ID, ProcessPatch{Group: &bogus})
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestGroupNameUniqueness(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.AddGroup("g", nil)
	require.NoError(t, err)
	_, err = reg.AddGroup("g", nil)
	assert.Equal(t, errs.Conflict, errs.KindOf(err))
}

func TestRemoveGroupDetachesAllMembers(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.AddGroup("g", nil)
	require.NoError(t, err)
	m1, err := reg.AddProcess(ProcessRecord{Name: "m1", Command: "true", Group: "g"})
	require.NoError(t, err)
	m2, err := reg.AddProcess(ProcessRecord{Name: "m2", Command: "true", Group: "g"})
	require.NoError(t, err)

	require.NoError(t, reg.RemoveGroup("g"))

	_, err = reg.FindGroup("g")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))

	for _, id := range []int64{m1.ID, m2.ID} {
		p, err := reg.FindProcess(strconv.FormatInt(id, 10))
		require.NoError(t, err)
		assert.Empty(t, p.Group, "expected member %d detached", id)
	}
}

func TestAllocatePortExplicitAndConflict(t *testing.T) {
	reg := newTestRegistry(t)
	port := 9001
	rec, err := reg.AllocatePort(&port, "", func() (int, error) { return 0, nil })
	require.NoError(t, err)
	assert.Equal(t, 9001, rec.Port)
	assert.Equal(t, "default", rec.Name)

	_, err = reg.AllocatePort(&port, "", func() (int, error) { return 0, nil })
	assert.Equal(t, errs.Conflict, errs.KindOf(err))
}

func TestAllocatePortPicksDifferentFreePort(t *testing.T) {
	reg := newTestRegistry(t)
	taken := 9100
	_, err := reg.AllocatePort(&taken, "", nil)
	require.NoError(t, err)

	calls := 0
	picker := func() (int, error) {
		calls++
		if calls == 1 {
			return taken, nil
		}
		return taken + 1, nil
	}
	rec, err := reg.AllocatePort(nil, "", picker)
	require.NoError(t, err)
	assert.Equal(t, taken+1, rec.Port, "expected picker retry to land on a free port")
}

func TestFreePortRemovesRecord(t *testing.T) {
	reg := newTestRegistry(t)
	port := 9200
	_, err := reg.AllocatePort(&port, "", nil)
	require.NoError(t, err)
	require.NoError(t, reg.FreePort(port))
	assert.Empty(t, reg.SnapshotPorts())
}

func TestSnapshotsAreIndependentCopies(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.AddProcess(ProcessRecord{Name: "x", Command: "true", Env: map[string]string{"A": "1"}})
	require.NoError(t, err)
	snap := reg.SnapshotProcesses()
	snap[0].Env["A"] = "mutated"

	fresh, err := reg.FindProcess("x")
	require.NoError(t, err)
	assert.Equal(t, "1", fresh.Env["A"], "mutating a snapshot must not affect the registry's state")
}

func TestRollbackOnSaveFailureLeavesInMemoryStateUntouched(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.AddProcess(ProcessRecord{Name: "a", Command: "true"})
	require.NoError(t, err)

	// Seed brokenStore.loaded with the catalog as it stands so the
	// forthcoming transaction's reload finds the record and reaches
	// Save, rather than failing earlier with a spurious NotFound.
	committed, err := reg.st.Load()
	require.NoError(t, err)
	broken := &brokenStore{Store: nil, loaded: committed}
	reg.st = broken

	newPID := 1
	_, err = reg.UpdateProcess(rec.ID, ProcessPatch{PID: &newPID})
	require.Error(t, err, "expected the forced save failure to surface")
	assert.Equal(t, errs.IOFailure, errs.KindOf(err))

	reg.st = nil // ensure no further transaction calls into the broken store
	got, err := reg.FindProcess("a")
	require.NoError(t, err)
	assert.NotEqual(t, newPID, got.PID, "in-memory state should not have changed on save failure")
}

// brokenStore always fails Save, to exercise the rollback path; Load
// returns whatever the last successful Load produced so the reload
// inside transaction() still succeeds before the forced Save failure.
type brokenStore struct {
	store.Store
	loaded store.Catalog
}

func (b *brokenStore) Load() (store.Catalog, error) { return b.loaded, nil }
func (b *brokenStore) Save(store.Catalog) error {
	return errs.New(errs.IOFailure, "forced", nil)
}
func (b *brokenStore) Lock() (func() error, error) { return func() error { return nil }, nil }
func (b *brokenStore) Path() string                { return "" }
